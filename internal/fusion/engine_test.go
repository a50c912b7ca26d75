package fusion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/metrics"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/posterior"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/store"
)

var cryo9 = model.SlotKey{Service: "Cryo", Hour: 9}

func newStore(t *testing.T, recs ...*model.BeliefRecord) *store.JSONStore {
	t.Helper()
	s, err := store.OpenJSON(filepath.Join(t.TempDir(), "beliefs.json"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	if len(recs) == 0 {
		recs = []*model.BeliefRecord{{
			Service: "Cryo", Hour: 9, Alpha: 14, Beta: 6, NTotal: 10, NFull: 7,
			Prior: model.Distribution{0.5, 0.3, 0.2},
		}}
	}
	require.NoError(t, s.Replace(context.Background(), recs))
	return s
}

func TestAugment(t *testing.T) {
	aug, err := Augment(model.Distribution{0.5, 0.3, 0.2}, 0.4)
	require.NoError(t, err)
	require.Len(t, aug, 3)
	assert.InDelta(t, 0.375, aug[0], 1e-12)
	assert.InDelta(t, 0.225, aug[1], 1e-12)
	assert.Equal(t, 0.4, aug[2])
	assert.InDelta(t, 1.0, aug.Sum(), 1e-12)
}

func TestAugmentZeroProbabilityRenormalizesPrior(t *testing.T) {
	prior := model.Distribution{0.2, 0.2, 0.4, 0.2}
	aug, err := Augment(prior, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, aug[3])
	assert.InDelta(t, 0.25, aug[0], 1e-12)
	assert.InDelta(t, 0.25, aug[1], 1e-12)
	assert.InDelta(t, 0.5, aug[2], 1e-12)
}

func TestAugmentErrors(t *testing.T) {
	_, err := Augment(model.Distribution{0, 0, 1}, 0.3)
	assert.ErrorIs(t, err, posterior.ErrDomain)

	_, err = Augment(model.Distribution{1}, 0.3)
	assert.ErrorIs(t, err, posterior.ErrDomain)

	for _, p := range []float64{-0.1, 1.1} {
		_, err = Augment(model.Distribution{0.5, 0.5}, p)
		assert.ErrorIs(t, err, posterior.ErrInvalidArgument)
	}
}

func TestFuseEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	m := metrics.New()
	e := NewEngine(s, nil, Options{UpdateBeliefs: true, Metrics: m})

	res, err := e.Fuse(ctx, cryo9, 0.4, 0.6)
	require.NoError(t, err)
	assert.False(t, res.Full)
	assert.Equal(t, 2, res.Capacity)
	assert.InDeltaSlice(t, []float64{0.375, 0.225, 0.4}, res.Augmented, 1e-12)
	assert.InDeltaSlice(t, []float64{0.625, 0.375}, res.Posterior, 1e-12)
	assert.InDelta(t, 0.375, res.Occupancy, 1e-12)

	// the not-full decision lands in beta
	rec, err := s.Get(ctx, cryo9)
	require.NoError(t, err)
	assert.Equal(t, 7.0, rec.Beta)
	assert.Equal(t, 14.0, rec.Alpha)
	assert.Equal(t, 11, rec.NTotal)
	assert.Equal(t, 7, rec.NFull)
	require.NotNil(t, res.PHat)
	assert.Equal(t, 14.0/21, *res.PHat)
	assert.Equal(t, model.Distribution{0.5, 0.3, 0.2}, rec.Prior)
}

func TestFuseCertainFull(t *testing.T) {
	ctx := context.Background()
	for _, threshold := range []float64{0, 0.3, 0.99} {
		s := newStore(t)
		e := NewEngine(s, nil, Options{UpdateBeliefs: true})

		res, err := e.Fuse(ctx, cryo9, 1.0, threshold)
		require.NoError(t, err)
		assert.True(t, res.Full)
		assert.Equal(t, 2.0, res.Occupancy)
		assert.Nil(t, res.Posterior)

		rec, _ := s.Get(ctx, cryo9)
		assert.Equal(t, 15.0, rec.Alpha)
		assert.Equal(t, 8, rec.NFull)
	}
}

func TestFuseZeroProbability(t *testing.T) {
	s := newStore(t)
	e := NewEngine(s, nil, Options{})

	res, err := e.Fuse(context.Background(), cryo9, 0, 0.5)
	require.NoError(t, err)
	assert.False(t, res.Full)
	assert.Equal(t, 0.0, res.Augmented[2])
	assert.InDelta(t, 0.625, res.Augmented[0], 1e-12)
	assert.InDelta(t, 0.375, res.Augmented[1], 1e-12)
	assert.Nil(t, res.PHat, "updates disabled")

	rec, _ := s.Get(context.Background(), cryo9)
	assert.Equal(t, 10, rec.NTotal)
}

func TestFuseMAP(t *testing.T) {
	s := newStore(t)
	e := NewEngine(s, nil, Options{Method: posterior.MethodMAP})

	res, err := e.Fuse(context.Background(), cryo9, 0.4, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Occupancy)
}

func TestFuseFailureLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, &model.BeliefRecord{
		Service: "Cryo", Hour: 9, Alpha: 1, Beta: 1,
		Prior: model.Distribution{0, 0, 1},
	})
	e := NewEngine(s, nil, Options{UpdateBeliefs: true})

	_, err := e.Fuse(ctx, cryo9, 0.2, 0.5)
	assert.ErrorIs(t, err, posterior.ErrDomain)

	rec, _ := s.Get(ctx, cryo9)
	assert.Equal(t, 0, rec.NTotal)
	assert.Equal(t, 1.0, rec.Beta)
}

func TestFuseUnknownSlot(t *testing.T) {
	e := NewEngine(newStore(t), nil, Options{})
	_, err := e.Fuse(context.Background(), model.SlotKey{Service: "Cryo", Hour: 3}, 0.5, 0.5)
	assert.ErrorIs(t, err, store.ErrUnknownSlot)
}

func TestEvaluateAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	s := newStore(t,
		&model.BeliefRecord{Service: "Cryo", Hour: 9, Alpha: 1, Beta: 1, Prior: model.Distribution{0.5, 0.3, 0.2}},
		&model.BeliefRecord{Service: "Cryo", Hour: 10, Alpha: 1, Beta: 1, Prior: model.Distribution{0, 0, 1}},
		&model.BeliefRecord{Service: "Sauna", Hour: 9, Alpha: 1, Beta: 1, Prior: model.Distribution{0.2, 0.2, 0.6}},
	)
	m := metrics.New()
	e := NewEngine(s, StaticClassifier{P: 0.4, T: 0.6}, Options{UpdateBeliefs: true, Metrics: m})

	keys := []model.SlotKey{
		cryo9,
		{Service: "Cryo", Hour: 10},
		{Service: "Plunge", Hour: 9},
		{Service: "Sauna", Hour: 9},
	}
	out := e.EvaluateAll(ctx, keys)
	require.Len(t, out, 4)

	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, posterior.ErrDomain)
	assert.ErrorIs(t, out[2].Err, store.ErrUnknownSlot)
	assert.NoError(t, out[3].Err)
	assert.Equal(t, "domain", ErrorKind(out[1].Err))
	assert.Equal(t, "unknown_slot", ErrorKind(out[2].Err))
	assert.Equal(t, "other", ErrorKind(errors.New("boom")))

	sauna, _ := s.Get(ctx, model.SlotKey{Service: "Sauna", Hour: 9})
	assert.Equal(t, 1, sauna.NTotal)
}

func TestEvaluateWithoutClassifier(t *testing.T) {
	e := NewEngine(newStore(t), nil, Options{})
	_, err := e.Evaluate(context.Background(), cryo9)
	assert.Error(t, err)
}
