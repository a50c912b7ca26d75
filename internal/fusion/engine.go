// Package fusion combines a classifier's P(full) with a slot's Beta-Binomial
// prior, decides full/not-full, and feeds the decision back into the belief
// store.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/metrics"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/posterior"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/store"
)

// BeliefStore is the part of store.Store the engine needs.
type BeliefStore interface {
	Get(ctx context.Context, key model.SlotKey) (*model.BeliefRecord, error)
	Update(ctx context.Context, obs model.Observation) (float64, error)
}

// Augment overrides the top ("fully booked") bin of prior with pFull and
// rescales bins 0..N-1 to carry the remaining 1-pFull mass in the same
// proportions. It requires pFull in [0,1] and positive mass below the top bin.
func Augment(prior model.Distribution, pFull float64) (model.Distribution, error) {
	if pFull < 0 || pFull > 1 || math.IsNaN(pFull) {
		return nil, fmt.Errorf("%w: probability %v outside [0,1]", posterior.ErrInvalidArgument, pFull)
	}
	n := prior.Capacity()
	if n < 1 {
		return nil, fmt.Errorf("%w: prior needs at least two bins, got %d", posterior.ErrDomain, len(prior))
	}
	rest := prior[:n].Sum()
	if !(rest > 0) || math.IsInf(rest, 0) {
		return nil, fmt.Errorf("%w: no prior mass below occupancy %d", posterior.ErrDomain, n)
	}

	out := make(model.Distribution, n+1)
	scale := (1 - pFull) / rest
	for i := 0; i < n; i++ {
		out[i] = prior[i] * scale
	}
	out[n] = pFull
	return out, nil
}

// Result describes one fused slot.
type Result struct {
	Service   string             `json:"service"`
	Hour      int                `json:"hour"`
	PFull     float64            `json:"p_full"`
	Threshold float64            `json:"threshold"`
	Full      bool               `json:"full"`
	Occupancy float64            `json:"occupancy"`
	Capacity  int                `json:"capacity"`
	Augmented model.Distribution `json:"augmented"`
	Posterior model.Distribution `json:"posterior,omitempty"`
	// PHat is the store's full-rate after the feedback update, nil when
	// updates are disabled.
	PHat *float64 `json:"p_hat,omitempty"`
}

// Key returns the fused slot's key.
func (r *Result) Key() model.SlotKey {
	return model.SlotKey{Service: r.Service, Hour: r.Hour}
}

// Options configures an Engine.
type Options struct {
	// Method reduces the not-full posterior; defaults to posterior.MethodMean.
	Method posterior.Method
	// UpdateBeliefs folds each decision back into the store.
	UpdateBeliefs bool
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// Engine runs fusion against a belief store.
type Engine struct {
	store      BeliefStore
	classifier Classifier
	method     posterior.Method
	update     bool
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewEngine creates an Engine. classifier may be nil if only Fuse is used.
func NewEngine(s BeliefStore, classifier Classifier, opts Options) *Engine {
	if opts.Method == "" {
		opts.Method = posterior.MethodMean
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		store:      s,
		classifier: classifier,
		method:     opts.Method,
		update:     opts.UpdateBeliefs,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Fuse combines pFull with the stored prior for key and decides the slot is
// full iff pFull >= threshold. A full slot's occupancy is N; otherwise it is
// the estimate of the augmented prior conditioned on the slot being offered.
// Everything is computed before the store is touched, so a failure leaves
// the record unchanged.
func (e *Engine) Fuse(ctx context.Context, key model.SlotKey, pFull, threshold float64) (*Result, error) {
	if math.IsNaN(threshold) {
		return nil, fmt.Errorf("%w: threshold is NaN", posterior.ErrInvalidArgument)
	}
	rec, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	aug, err := Augment(rec.Prior, pFull)
	if err != nil {
		return nil, fmt.Errorf("augment %s: %w", key, err)
	}

	res := &Result{
		Service:   key.Service,
		Hour:      key.Hour,
		PFull:     pFull,
		Threshold: threshold,
		Full:      pFull >= threshold,
		Capacity:  aug.Capacity(),
		Augmented: aug,
	}
	if res.Full {
		res.Occupancy = float64(res.Capacity)
	} else {
		post, err := posterior.Posterior(aug, true)
		if err != nil {
			return nil, fmt.Errorf("posterior %s: %w", key, err)
		}
		occ, err := posterior.Estimate(post, e.method)
		if err != nil {
			return nil, err
		}
		res.Posterior = post
		res.Occupancy = occ
	}

	e.metrics.Decision(res.Full)
	e.logger.Debug("fused slot",
		zap.String("slot", key.String()),
		zap.Float64("p_full", pFull),
		zap.Float64("threshold", threshold),
		zap.Bool("full", res.Full),
		zap.Float64("occupancy", res.Occupancy))

	if e.update {
		obs := model.Observation{Key: key, IsFull: res.Full, Source: model.SourceDecision}
		pHat, err := e.store.Update(ctx, obs)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", key, err)
		}
		e.metrics.BeliefUpdate(obs)
		e.logger.Debug("updated belief",
			zap.String("slot", key.String()),
			zap.String("source", string(obs.Source)),
			zap.Float64("p_hat", pHat))
		res.PHat = &pHat
	}
	return res, nil
}

// Evaluate scores key with the engine's classifier and fuses the result.
func (e *Engine) Evaluate(ctx context.Context, key model.SlotKey) (*Result, error) {
	if e.classifier == nil {
		return nil, errors.New("fusion: no classifier configured")
	}
	p, err := e.classifier.PredictProbability(FeatureVector(e.classifier.Features(), key))
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", key, err)
	}
	return e.Fuse(ctx, key, p, e.classifier.Threshold())
}

// Outcome pairs a slot with its result or error.
type Outcome struct {
	Key    model.SlotKey
	Result *Result
	Err    error
}

// EvaluateAll evaluates every key in order. A failing slot is reported in its
// Outcome and does not stop the rest.
func (e *Engine) EvaluateAll(ctx context.Context, keys []model.SlotKey) []Outcome {
	out := make([]Outcome, 0, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			out = append(out, Outcome{Key: k, Err: err})
			continue
		}
		res, err := e.Evaluate(ctx, k)
		if err != nil {
			kind := ErrorKind(err)
			e.metrics.SlotError(kind)
			e.logger.Warn("slot evaluation failed",
				zap.String("slot", k.String()),
				zap.String("kind", kind),
				zap.Error(err))
		}
		out = append(out, Outcome{Key: k, Result: res, Err: err})
	}
	return out
}

// ErrorKind classifies err for reporting.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, store.ErrUnknownSlot):
		return "unknown_slot"
	case errors.Is(err, store.ErrFormat):
		return "format"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	case errors.Is(err, posterior.ErrDomain):
		return "domain"
	case errors.Is(err, posterior.ErrInvalidArgument):
		return "invalid_argument"
	}
	return "other"
}
