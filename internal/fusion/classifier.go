package fusion

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/posterior"
)

// Classifier is an externally trained model that scores P(slot fully booked).
type Classifier interface {
	// PredictProbability scores a feature vector ordered like Features().
	PredictProbability(features []float64) (float64, error)
	// Threshold is the decision threshold shipped with the model.
	Threshold() float64
	// Features lists the expected feature names in order.
	Features() []string
}

// ServiceFeature returns the one-hot feature name for a service.
func ServiceFeature(service string) string {
	return "service_" + service
}

// FeatureVector assembles the input for key: the service's one-hot column is
// 1, "hour" is the key's hour, everything else is 0.
func FeatureVector(names []string, key model.SlotKey) []float64 {
	svc := ServiceFeature(key.Service)
	x := make([]float64, len(names))
	for i, name := range names {
		switch name {
		case svc:
			x[i] = 1
		case "hour":
			x[i] = float64(key.Hour)
		}
	}
	return x
}

// StaticClassifier returns the same probability for every slot. It is used
// when the caller already has a score, e.g. from a backfill.
type StaticClassifier struct {
	P float64
	T float64
}

func (c StaticClassifier) PredictProbability([]float64) (float64, error) { return c.P, nil }

func (c StaticClassifier) Threshold() float64 { return c.T }

func (c StaticClassifier) Features() []string { return nil }

// LogisticModel is a standardized logistic regression with optional Platt
// calibration, exported from the training pipeline as JSON.
type LogisticModel struct {
	FeatureNames []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Scaler       *Scaler   `json:"scaler,omitempty"`
	Calibration  *Platt    `json:"calibration,omitempty"`
	Cutoff       float64   `json:"threshold"`
}

// Scaler standardizes features as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Platt maps a decision value f to 1 / (1 + exp(A*f + B)).
type Platt struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// LoadLogisticModel reads a model export from path.
func LoadLogisticModel(path string) (*LogisticModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open classifier: %w", err)
	}
	defer f.Close()
	return ParseLogisticModel(f)
}

// ParseLogisticModel decodes and validates a model export.
func ParseLogisticModel(r io.Reader) (*LogisticModel, error) {
	var m LogisticModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode classifier: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *LogisticModel) validate() error {
	n := len(m.FeatureNames)
	if n == 0 {
		return fmt.Errorf("%w: classifier has no features", posterior.ErrInvalidArgument)
	}
	if len(m.Coefficients) != n {
		return fmt.Errorf("%w: %d coefficients for %d features", posterior.ErrInvalidArgument, len(m.Coefficients), n)
	}
	if m.Scaler != nil && (len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n) {
		return fmt.Errorf("%w: scaler does not match %d features", posterior.ErrInvalidArgument, n)
	}
	if m.Cutoff < 0 || m.Cutoff > 1 {
		return fmt.Errorf("%w: threshold %v outside [0,1]", posterior.ErrInvalidArgument, m.Cutoff)
	}
	return nil
}

func (m *LogisticModel) Threshold() float64 { return m.Cutoff }

func (m *LogisticModel) Features() []string { return m.FeatureNames }

// DecisionValue returns the linear score before the link function.
func (m *LogisticModel) DecisionValue(x []float64) (float64, error) {
	if len(x) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: got %d features, want %d", posterior.ErrInvalidArgument, len(x), len(m.Coefficients))
	}
	z := m.Intercept
	for i, v := range x {
		if m.Scaler != nil {
			scale := m.Scaler.Scale[i]
			if scale == 0 {
				scale = 1
			}
			v = (v - m.Scaler.Mean[i]) / scale
		}
		z += m.Coefficients[i] * v
	}
	return z, nil
}

func (m *LogisticModel) PredictProbability(x []float64) (float64, error) {
	z, err := m.DecisionValue(x)
	if err != nil {
		return 0, err
	}
	if m.Calibration != nil {
		return 1 / (1 + math.Exp(m.Calibration.A*z+m.Calibration.B)), nil
	}
	return 1 / (1 + math.Exp(-z)), nil
}
