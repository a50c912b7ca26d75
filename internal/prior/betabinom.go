package prior

import (
	"math"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// LogBeta returns ln B(a, b) for a, b > 0.
func LogBeta(a, b float64) float64 {
	return lgamma(a) + lgamma(b) - lgamma(a+b)
}

// LogChoose returns ln C(n, k).
func LogChoose(n, k int) float64 {
	return lgamma(float64(n+1)) - lgamma(float64(k+1)) - lgamma(float64(n-k+1))
}

// BetaBinomialPMF returns P(X=k) for X ~ BetaBinomial(n, alpha, beta):
//
//	C(n,k) * B(k+alpha, n-k+beta) / B(alpha, beta)
//
// Terms are evaluated in log space and exponentiated at the end.
func BetaBinomialPMF(k, n int, alpha, beta float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	return math.Exp(LogChoose(n, k) + LogBeta(float64(k)+alpha, float64(n-k)+beta) - LogBeta(alpha, beta))
}

// BetaBinomial materializes the PMF over 0..n and normalizes it. The second
// return value is true when the raw mass was unusable and the uniform
// distribution was substituted.
func BetaBinomial(n int, alpha, beta float64) (model.Distribution, bool) {
	raw := make(model.Distribution, n+1)
	for k := range raw {
		raw[k] = BetaBinomialPMF(k, n, alpha, beta)
	}
	return normalize(raw)
}

func normalize(raw model.Distribution) (model.Distribution, bool) {
	s := raw.Sum()
	if !(s > 0) || math.IsInf(s, 0) {
		return model.Uniform(raw.Capacity()), true
	}
	out := make(model.Distribution, len(raw))
	for i, p := range raw {
		out[i] = p / s
	}
	return out, false
}
