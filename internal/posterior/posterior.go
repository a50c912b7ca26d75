// Package posterior reduces a discrete occupancy distribution and a binary
// availability observation to a posterior and a point estimate.
package posterior

import (
	"errors"
	"fmt"
	"math"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

var (
	// ErrDomain is returned when there is no probability mass left to renormalize.
	ErrDomain = errors.New("posterior: degenerate distribution")

	// ErrInvalidArgument is returned for unsupported methods or out-of-range inputs.
	ErrInvalidArgument = errors.New("posterior: invalid argument")
)

// Method selects how a posterior is reduced to a scalar.
type Method string

const (
	MethodMean Method = "mean"
	MethodMAP  Method = "map"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodMean, MethodMAP:
		return m, nil
	}
	return "", fmt.Errorf("%w: method must be %q or %q, got %q", ErrInvalidArgument, MethodMean, MethodMAP, s)
}

// Posterior conditions prior on whether the slot was still offered.
//
// present == true means the slot was bookable, so the top bin (fully booked)
// is impossible: bins 0..N-1 are kept and renormalized, and the result has N
// entries. present == false means the slot disappeared from availability, so
// all mass moves to bin N.
func Posterior(prior model.Distribution, present bool) (model.Distribution, error) {
	n := prior.Capacity()
	if n < 0 {
		return nil, fmt.Errorf("%w: empty distribution", ErrDomain)
	}
	if !present {
		return model.OneHot(n, n), nil
	}

	kept := prior[:n]
	var mass float64
	for i, p := range kept {
		if p < 0 || math.IsNaN(p) {
			return nil, fmt.Errorf("%w: bin %d has invalid mass %v", ErrDomain, i, p)
		}
		mass += p
	}
	if !(mass > 0) || math.IsInf(mass, 0) {
		return nil, fmt.Errorf("%w: no mass below occupancy %d", ErrDomain, n)
	}

	out := make(model.Distribution, n)
	for i, p := range kept {
		out[i] = p / mass
	}
	return out, nil
}

// Estimate reduces a posterior to a point estimate. MethodMean returns the
// expected occupancy; MethodMAP returns the most probable bin, lowest index
// on ties.
func Estimate(post model.Distribution, method Method) (float64, error) {
	if len(post) == 0 {
		return 0, fmt.Errorf("%w: empty distribution", ErrDomain)
	}
	switch method {
	case MethodMean:
		var mean float64
		for k, p := range post {
			mean += float64(k) * p
		}
		return mean, nil
	case MethodMAP:
		best := 0
		for k, p := range post {
			if p > post[best] {
				best = k
			}
		}
		return float64(best), nil
	}
	return 0, fmt.Errorf("%w: unsupported method %q", ErrInvalidArgument, method)
}
