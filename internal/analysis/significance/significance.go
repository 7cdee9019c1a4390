// Package significance converts a one-sided error rate into the equivalent
// number of Gaussian standard deviations.
package significance

import (
	"math"

	"llrscan/internal/analysis/numeric"
)

const (
	// Cutoff stands in for +infinity as the upper limit of the tail integral
	Cutoff = 1000.0
	// Bracket bounds the root search; alphas beyond it saturate
	Bracket = 40.0

	start     = 1.0
	maxIter   = 200
	tolerance = 1e-12
	// tail integrand is below 1e-300 more than this far past n
	reach = 40.0
	panel = 0.5
)

var sqrt2Pi = math.Sqrt(2 * math.Pi)

// Converter solves ∫_n^Cutoff exp(-x²/2) dx = alpha*sqrt(2π) for n
type Converter struct {
	rule *numeric.GaussLegendre
}

// NewConverter builds a converter with its own quadrature rule
func NewConverter() *Converter {
	return &Converter{rule: numeric.NewGaussLegendre(20)}
}

var defaultConverter = NewConverter()

// ToSigma converts alpha with the shared converter
func ToSigma(alpha float64) float64 {
	return defaultConverter.ToSigma(alpha)
}

// Tail returns ∫_n^Cutoff exp(-x²/2) dx
func (c *Converter) Tail(n float64) float64 {
	f := func(x float64) float64 { return math.Exp(-x * x / 2) }
	near := math.Min(math.Max(n, 0)+reach, Cutoff)
	v, err := c.rule.IntegratePiecewise(f, n, near, panel)
	if err != nil {
		return math.NaN()
	}
	if near < Cutoff {
		far, err := c.rule.Integrate(f, near, Cutoff)
		if err == nil {
			v += far
		}
	}
	return v
}

// ToSigma returns n-sigma for alpha. ToSigma(0.5) is 0 and the result falls
// strictly as alpha grows. alpha <= 0 saturates at Bracket, alpha >= 1 at
// -Bracket. Reflection of alpha is the caller's job.
func (c *Converter) ToSigma(alpha float64) float64 {
	switch {
	case math.IsNaN(alpha):
		return math.NaN()
	case alpha == 0.5:
		return 0
	case alpha <= 0:
		return Bracket
	case alpha >= 1:
		return -Bracket
	}

	target := alpha * sqrt2Pi
	g := func(n float64) float64 { return c.Tail(n) - target }

	lo, hi := -Bracket, Bracket
	n := start
	for i := 0; i < maxIter; i++ {
		v := g(n)
		if v == 0 {
			return n
		}
		// g falls with n
		if v > 0 {
			lo = n
		} else {
			hi = n
		}

		next := math.NaN()
		if d := math.Exp(-n * n / 2); d > 0 {
			next = n + v/d
		}
		if math.IsNaN(next) || next <= lo || next >= hi {
			next = (lo + hi) / 2
		}
		if math.Abs(next-n) < tolerance {
			return next
		}
		n = next
	}
	return n
}
