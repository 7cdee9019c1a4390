// Package numeric holds the small numerical building blocks shared by the
// analysis packages: evenly spaced grids, numpy-compatible histogramming and a
// Gauss-Legendre rule whose nodes are computed once and reused.
package numeric

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"
)

// Linspace returns n evenly spaced values over [start, stop], both ends included
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// HistogramCounts bins values against edges using numpy semantics: bins are
// half-open [e_i, e_i+1) except the last, which also includes its right edge.
// Values outside [edges[0], edges[len-1]] and NaNs are ignored.
func HistogramCounts(values, edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	counts := make([]float64, len(edges)-1)
	lo, hi := edges[0], edges[len(edges)-1]
	last := len(counts) - 1
	for _, v := range values {
		if math.IsNaN(v) || v < lo || v > hi {
			continue
		}
		if v == hi {
			counts[last]++
			continue
		}
		// first edge strictly greater than v closes v's bin
		j := sort.Search(len(edges), func(k int) bool { return edges[k] > v })
		counts[j-1]++
	}
	return counts
}

// Widths returns the width of every bin delimited by edges
func Widths(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	w := make([]float64, len(edges)-1)
	for i := range w {
		w[i] = edges[i+1] - edges[i]
	}
	return w
}

// Area returns Σ values[i]*width[i]
func Area(values, edges []float64) float64 {
	w := Widths(edges)
	if len(w) != len(values) {
		panic(fmt.Sprintf("numeric: %d values for %d bins", len(values), len(w)))
	}
	return floats.Dot(values, w)
}

// GaussLegendre is an n-point Gauss-Legendre rule with nodes cached on [-1, 1].
// It satisfies quad.FixedLocationer so it can be handed straight to quad.Fixed.
type GaussLegendre struct {
	nodes   []float64
	weights []float64
}

// NewGaussLegendre computes the n-point rule once
func NewGaussLegendre(n int) *GaussLegendre {
	g := &GaussLegendre{
		nodes:   make([]float64, n),
		weights: make([]float64, n),
	}
	quad.Legendre{}.FixedLocations(g.nodes, g.weights, -1, 1)
	return g
}

// FixedLocations maps the cached nodes and weights onto [min, max]
func (g *GaussLegendre) FixedLocations(x, weight []float64, min, max float64) {
	if len(x) != len(g.nodes) || len(weight) != len(g.weights) {
		panic("numeric: location count does not match cached rule")
	}
	half := (max - min) / 2
	mid := (max + min) / 2
	for i, t := range g.nodes {
		x[i] = half*t + mid
		weight[i] = half * g.weights[i]
	}
}

// Len is the number of nodes of the rule
func (g *GaussLegendre) Len() int {
	return len(g.nodes)
}

// Integrate returns the signed integral of f from a to b. Reversed bounds
// flip the sign; non-finite bounds or results are reported as errors.
func (g *GaussLegendre) Integrate(f func(float64) float64, a, b float64) (float64, error) {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return math.NaN(), fmt.Errorf("non-finite integration bounds [%g, %g]", a, b)
	}
	sign := 1.0
	if a > b {
		a, b = b, a
		sign = -1
	}
	v := sign * quad.Fixed(f, a, b, len(g.nodes), g, 0)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, fmt.Errorf("integral over [%g, %g] is not finite", a, b)
	}
	return v, nil
}

// IntegratePiecewise splits [a, b] into pieces no wider than step and sums the
// integrals. Sharply peaked integrands on wide domains need this.
func (g *GaussLegendre) IntegratePiecewise(f func(float64) float64, a, b, step float64) (float64, error) {
	if step <= 0 {
		return g.Integrate(f, a, b)
	}
	sign := 1.0
	if a > b {
		a, b = b, a
		sign = -1
	}
	total := 0.0
	for lo := a; lo < b; lo += step {
		hi := math.Min(lo+step, b)
		v, err := g.Integrate(f, lo, hi)
		if err != nil {
			return v, err
		}
		total += v
	}
	return sign * total, nil
}
