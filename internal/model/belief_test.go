package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotKey(t *testing.T) {
	cases := []struct {
		in   string
		want SlotKey
	}{
		{"Cryo|9", SlotKey{Service: "Cryo", Hour: 9}},
		{"Red Light|17", SlotKey{Service: "Red Light", Hour: 17}},
		{"a|b|3", SlotKey{Service: "a|b", Hour: 3}},
	}
	for _, tc := range cases {
		got, err := ParseSlotKey(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.in, got.String())
	}

	for _, bad := range []string{"", "Cryo", "|9", "Cryo|", "Cryo|nine"} {
		_, err := ParseSlotKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestApply(t *testing.T) {
	r := &BeliefRecord{Service: "Cryo", Hour: 9, Alpha: 14, Beta: 6, NTotal: 10, NFull: 7,
		Prior: Distribution{0.5, 0.3, 0.2}}

	p := r.Apply(true)
	assert.Equal(t, 15.0, r.Alpha)
	assert.Equal(t, 6.0, r.Beta)
	assert.Equal(t, 11, r.NTotal)
	assert.Equal(t, 8, r.NFull)
	assert.Equal(t, 15.0/21, p)
	require.NotNil(t, r.PHat)
	assert.Equal(t, p, *r.PHat)

	p = r.Apply(false)
	assert.Equal(t, 7.0, r.Beta)
	assert.Equal(t, 12, r.NTotal)
	assert.Equal(t, 8, r.NFull)
	assert.Equal(t, 15.0/22, p)
	assert.Equal(t, Distribution{0.5, 0.3, 0.2}, r.Prior)
}

func TestCloneIsDeep(t *testing.T) {
	p := 0.7
	r := &BeliefRecord{Service: "Cryo", Hour: 9, Alpha: 1, Beta: 1, PHat: &p, Prior: Distribution{0.5, 0.5}}
	c := r.Clone()
	c.Prior[0] = 0
	*c.PHat = 0.1
	assert.Equal(t, 0.5, r.Prior[0])
	assert.Equal(t, 0.7, *r.PHat)
}

func TestValidate(t *testing.T) {
	good := func() *BeliefRecord {
		return &BeliefRecord{Service: "Cryo", Hour: 9, Alpha: 1, Beta: 1, NTotal: 2, NFull: 1,
			Prior: Distribution{0.25, 0.5, 0.25}}
	}
	require.NoError(t, good().Validate())

	bad := map[string]func(r *BeliefRecord){
		"empty service":  func(r *BeliefRecord) { r.Service = "" },
		"zero alpha":     func(r *BeliefRecord) { r.Alpha = 0 },
		"negative beta":  func(r *BeliefRecord) { r.Beta = -1 },
		"full > total":   func(r *BeliefRecord) { r.NFull = 3 },
		"negative total": func(r *BeliefRecord) { r.NTotal = -1 },
		"p_hat range":    func(r *BeliefRecord) { v := 1.5; r.PHat = &v },
		"prior mass":     func(r *BeliefRecord) { r.Prior = Distribution{0.5, 0.4} },
		"negative bin":   func(r *BeliefRecord) { r.Prior = Distribution{1.5, -0.5} },
		"empty prior":    func(r *BeliefRecord) { r.Prior = nil },
	}
	for name, mutate := range bad {
		r := good()
		mutate(r)
		assert.Error(t, r.Validate(), name)
	}
}

func TestDistributionHelpers(t *testing.T) {
	u := Uniform(3)
	assert.Equal(t, 3, u.Capacity())
	assert.True(t, u.Normalized())
	assert.InDelta(t, 0.25, u[2], 1e-15)

	h := OneHot(2, 2)
	assert.Equal(t, Distribution{0, 0, 1}, h)
	assert.True(t, h.Normalized())
}
