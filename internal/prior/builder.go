// Package prior builds per-slot Beta-Binomial priors from historical
// occupancy observations.
package prior

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/metrics"
	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

const (
	DefaultCapacity   = 30
	DefaultStrength   = 20.0
	DefaultMinSamples = 5
)

// Params configures prior construction.
type Params struct {
	// Capacity is N, the number of units in a slot.
	Capacity int
	// Strength is the pseudo-count S given to the empirical rate (alpha+beta).
	Strength float64
	// MinSamples is the row count below which the empirical rate is not trusted.
	MinSamples int
}

// DefaultParams returns N=30, S=20, M=5.
func DefaultParams() Params {
	return Params{
		Capacity:   DefaultCapacity,
		Strength:   DefaultStrength,
		MinSamples: DefaultMinSamples,
	}
}

// Validate rejects parameters that cannot produce a distribution.
func (p Params) Validate() error {
	if p.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1, got %d", ErrConfiguration, p.Capacity)
	}
	if !(p.Strength > 0) || math.IsInf(p.Strength, 0) {
		return fmt.Errorf("%w: strength must be positive, got %v", ErrConfiguration, p.Strength)
	}
	if p.MinSamples < 0 {
		return fmt.Errorf("%w: min samples must be non-negative, got %d", ErrConfiguration, p.MinSamples)
	}
	return nil
}

// Report is the result of a build.
type Report struct {
	Records map[model.SlotKey]*model.BeliefRecord
	// Fallbacks lists keys whose PMF underflowed and were replaced by the
	// uniform distribution.
	Fallbacks []model.SlotKey
}

// Keys returns the record keys ordered by service then hour.
func (r *Report) Keys() []model.SlotKey {
	keys := make([]model.SlotKey, 0, len(r.Records))
	for k := range r.Records {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// SortKeys orders keys by service then hour.
func SortKeys(keys []model.SlotKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Service != keys[j].Service {
			return keys[i].Service < keys[j].Service
		}
		return keys[i].Hour < keys[j].Hour
	})
}

// Builder turns a historical dataset into belief records.
type Builder struct {
	params  Params
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewBuilder creates a Builder. logger and m may be nil.
func NewBuilder(p Params, logger *zap.Logger, m *metrics.Metrics) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{params: p, logger: logger, metrics: m}
}

type tally struct {
	total, full int
}

// Build produces one record for every service × distinct hour in ds,
// including combinations with no rows, which get the weak uniform prior.
func (b *Builder) Build(ds *Dataset) (*Report, error) {
	if err := b.params.Validate(); err != nil {
		return nil, err
	}
	if ds == nil || len(ds.Services) == 0 {
		return nil, fmt.Errorf("%w: dataset has no service indicators", ErrConfiguration)
	}

	counts := make(map[model.SlotKey]*tally)
	hourSet := make(map[int]bool)
	for _, row := range ds.Rows {
		hourSet[row.Hour] = true
		for svc := range row.Services {
			k := model.SlotKey{Service: svc, Hour: row.Hour}
			t := counts[k]
			if t == nil {
				t = &tally{}
				counts[k] = t
			}
			t.total++
			if row.Full {
				t.full++
			}
		}
	}
	hours := make([]int, 0, len(hourSet))
	for h := range hourSet {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	rep := &Report{Records: make(map[model.SlotKey]*model.BeliefRecord)}
	for _, svc := range ds.Services {
		for _, h := range hours {
			k := model.SlotKey{Service: svc, Hour: h}
			var t tally
			if c := counts[k]; c != nil {
				t = *c
			}
			rec, fellBack := BuildRecord(k, t.total, t.full, b.params)
			if fellBack {
				b.logger.Warn("beta-binomial mass underflowed, using uniform prior",
					zap.String("slot", k.String()),
					zap.Float64("alpha", rec.Alpha),
					zap.Float64("beta", rec.Beta))
				b.metrics.UniformFallback()
				rep.Fallbacks = append(rep.Fallbacks, k)
			}
			rep.Records[k] = rec
		}
	}

	b.metrics.RecordsBuilt(len(rep.Records))
	b.logger.Info("built priors",
		zap.Int("records", len(rep.Records)),
		zap.Int("services", len(ds.Services)),
		zap.Int("hours", len(hours)),
		zap.Int("fallbacks", len(rep.Fallbacks)))
	return rep, nil
}

// BuildRecord derives Beta parameters from the counts and materializes the
// discrete prior. With nTotal >= MinSamples, alpha and beta are the empirical
// rate scaled by Strength and floored at model.MinShape; otherwise the weak
// prior alpha = beta = 1 is used and p_hat stays undefined.
func BuildRecord(k model.SlotKey, nTotal, nFull int, p Params) (*model.BeliefRecord, bool) {
	rec := &model.BeliefRecord{
		Service: k.Service,
		Hour:    k.Hour,
		NTotal:  nTotal,
		NFull:   nFull,
		Alpha:   1,
		Beta:    1,
	}
	if nTotal >= p.MinSamples && nTotal > 0 {
		pHat := float64(nFull) / float64(nTotal)
		rec.PHat = &pHat
		rec.Alpha = math.Max(model.MinShape, pHat*p.Strength)
		rec.Beta = math.Max(model.MinShape, (1-pHat)*p.Strength)
	}
	var fellBack bool
	rec.Prior, fellBack = BetaBinomial(p.Capacity, rec.Alpha, rec.Beta)
	return rec, fellBack
}
