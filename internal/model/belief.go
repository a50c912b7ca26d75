// Package model defines the core belief data types.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinShape is the floor applied to Beta shape parameters.
const MinShape = 0.001

// SumTolerance is how far a distribution's mass may drift from 1.
const SumTolerance = 1e-6

// SlotKey identifies a bookable slot by service and hour of day.
type SlotKey struct {
	Service string `json:"service"`
	Hour    int    `json:"hour"`
}

// String renders the key in the belief file's "<service>|<hour>" form.
func (k SlotKey) String() string {
	return k.Service + "|" + strconv.Itoa(k.Hour)
}

// ParseSlotKey parses "<service>|<hour>". The hour is taken after the last
// separator so service names may themselves contain '|'.
func ParseSlotKey(s string) (SlotKey, error) {
	i := strings.LastIndex(s, "|")
	if i <= 0 || i == len(s)-1 {
		return SlotKey{}, fmt.Errorf("invalid slot key %q (want <service>|<hour>)", s)
	}
	hour, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return SlotKey{}, fmt.Errorf("invalid slot key %q: hour: %w", s, err)
	}
	return SlotKey{Service: s[:i], Hour: hour}, nil
}

// Distribution is a discrete probability distribution over occupancy 0..N.
type Distribution []float64

// Capacity returns N, the index of the top ("fully booked") bin.
func (d Distribution) Capacity() int {
	return len(d) - 1
}

// Sum returns the total mass.
func (d Distribution) Sum() float64 {
	var s float64
	for _, p := range d {
		s += p
	}
	return s
}

// Clone returns a copy that shares no memory with d.
func (d Distribution) Clone() Distribution {
	if d == nil {
		return nil
	}
	out := make(Distribution, len(d))
	copy(out, d)
	return out
}

// Normalized reports whether d is non-negative and sums to 1 within SumTolerance.
func (d Distribution) Normalized() bool {
	if len(d) == 0 {
		return false
	}
	for _, p := range d {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return math.Abs(d.Sum()-1) <= SumTolerance
}

// Uniform returns the uniform distribution over 0..n.
func Uniform(n int) Distribution {
	d := make(Distribution, n+1)
	for i := range d {
		d[i] = 1.0 / float64(n+1)
	}
	return d
}

// OneHot returns a distribution over 0..n with all mass on bin k.
func OneHot(n, k int) Distribution {
	d := make(Distribution, n+1)
	d[k] = 1
	return d
}

// BeliefRecord is the per-slot Beta-Bernoulli state plus its discrete prior.
type BeliefRecord struct {
	Service string       `json:"service"`
	Hour    int          `json:"hour"`
	Alpha   float64      `json:"alpha"`
	Beta    float64      `json:"beta"`
	PHat    *float64     `json:"p_hat"`
	NTotal  int          `json:"n_total"`
	NFull   int          `json:"n_full"`
	Prior   Distribution `json:"prior"`

	// Version is the optimistic-concurrency stamp kept by stores that need one.
	Version int64 `json:"-"`
}

// Key returns the record's slot key.
func (r *BeliefRecord) Key() SlotKey {
	return SlotKey{Service: r.Service, Hour: r.Hour}
}

// Mean returns alpha/(alpha+beta), the Beta posterior mean of P(full).
func (r *BeliefRecord) Mean() float64 {
	return r.Alpha / (r.Alpha + r.Beta)
}

// Clone returns a deep copy.
func (r *BeliefRecord) Clone() *BeliefRecord {
	c := *r
	if r.PHat != nil {
		v := *r.PHat
		c.PHat = &v
	}
	c.Prior = r.Prior.Clone()
	return &c
}

// Apply folds one Bernoulli observation into the record and returns the new
// p_hat. The discrete prior is left untouched.
func (r *BeliefRecord) Apply(isFull bool) float64 {
	if isFull {
		r.Alpha++
		r.NFull++
	} else {
		r.Beta++
	}
	r.NTotal++
	p := r.Mean()
	r.PHat = &p
	return p
}

// Validate checks the record's structural invariants.
func (r *BeliefRecord) Validate() error {
	switch {
	case r.Service == "":
		return fmt.Errorf("empty service")
	case !(r.Alpha > 0) || math.IsInf(r.Alpha, 0):
		return fmt.Errorf("alpha must be positive, got %v", r.Alpha)
	case !(r.Beta > 0) || math.IsInf(r.Beta, 0):
		return fmt.Errorf("beta must be positive, got %v", r.Beta)
	case r.NTotal < 0 || r.NFull < 0:
		return fmt.Errorf("negative counters n_total=%d n_full=%d", r.NTotal, r.NFull)
	case r.NFull > r.NTotal:
		return fmt.Errorf("n_full %d exceeds n_total %d", r.NFull, r.NTotal)
	case r.PHat != nil && (*r.PHat < 0 || *r.PHat > 1):
		return fmt.Errorf("p_hat %v outside [0,1]", *r.PHat)
	case !r.Prior.Normalized():
		return fmt.Errorf("prior of length %d does not sum to 1", len(r.Prior))
	}
	return nil
}

// Source says where an observation came from.
type Source string

const (
	// SourceDecision marks an observation inferred from the fusion decision.
	SourceDecision Source = "decision"
	// SourceObserved marks a ground-truth observation.
	SourceObserved Source = "observed"
)

// ValidSources are the allowed observation sources.
var ValidSources = map[Source]bool{
	SourceDecision: true,
	SourceObserved: true,
}

// Observation is a single full/not-full outcome for a slot.
type Observation struct {
	Key    SlotKey
	IsFull bool
	Source Source
}
