package fusion

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/posterior"
)

const modelJSON = `{
  "features": ["hour", "day_of_week", "service_Cryo", "service_Sauna"],
  "coefficients": [0.5, 0.1, 1.0, -1.0],
  "intercept": -2.0,
  "scaler": {"mean": [12, 3, 0, 0], "scale": [4, 2, 0, 1]},
  "calibration": {"a": -1.5, "b": 0.2},
  "threshold": 0.42
}`

func TestFeatureVector(t *testing.T) {
	names := []string{"hour", "day_of_week", "service_Cryo", "service_Sauna", "is_weekend"}
	x := FeatureVector(names, model.SlotKey{Service: "Cryo", Hour: 15})
	assert.Equal(t, []float64{15, 0, 1, 0, 0}, x)

	x = FeatureVector(names, model.SlotKey{Service: "Plunge", Hour: 7})
	assert.Equal(t, []float64{7, 0, 0, 0, 0}, x)
}

func TestLogisticModel(t *testing.T) {
	m, err := ParseLogisticModel(strings.NewReader(modelJSON))
	require.NoError(t, err)
	assert.Equal(t, 0.42, m.Threshold())
	assert.Len(t, m.Features(), 4)

	x := FeatureVector(m.Features(), model.SlotKey{Service: "Cryo", Hour: 16})
	z, err := m.DecisionValue(x)
	require.NoError(t, err)
	// (16-12)/4*0.5 + (0-3)/2*0.1 + (1-0)/1*1.0 + 0 - 2.0; zero scale counts as 1
	assert.InDelta(t, 0.5-0.15+1.0-2.0, z, 1e-12)

	p, err := m.PredictProbability(x)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-1.5*z+0.2)), p, 1e-12)
}

func TestLogisticModelUncalibrated(t *testing.T) {
	m := &LogisticModel{FeatureNames: []string{"hour"}, Coefficients: []float64{0}, Intercept: 0}
	p, err := m.PredictProbability([]float64{9})
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)

	_, err = m.PredictProbability([]float64{1, 2})
	assert.ErrorIs(t, err, posterior.ErrInvalidArgument)
}

func TestParseLogisticModelInvalid(t *testing.T) {
	for _, in := range []string{
		`{"features": [], "coefficients": [], "threshold": 0.5}`,
		`{"features": ["hour"], "coefficients": [1, 2], "threshold": 0.5}`,
		`{"features": ["hour"], "coefficients": [1], "scaler": {"mean": [], "scale": []}, "threshold": 0.5}`,
		`{"features": ["hour"], "coefficients": [1], "threshold": 1.5}`,
		`not json`,
	} {
		_, err := ParseLogisticModel(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestEvaluateWithLogisticModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(modelJSON), 0o644))
	m, err := LoadLogisticModel(path)
	require.NoError(t, err)

	s := newStore(t)
	e := NewEngine(s, m, Options{UpdateBeliefs: true})
	res, err := e.Evaluate(context.Background(), cryo9)
	require.NoError(t, err)

	want, _ := m.PredictProbability(FeatureVector(m.Features(), cryo9))
	assert.Equal(t, want, res.PFull)
	assert.Equal(t, 0.42, res.Threshold)
	assert.Equal(t, want >= 0.42, res.Full)
}
