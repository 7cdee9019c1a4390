package pdf

import (
	"fmt"

	"llrscan/internal/analysis/numeric"
	"llrscan/internal/errors"

	"gonum.org/v1/gonum/floats"
)

// Histogram is a binned distribution: len(Edges) == len(Values)+1 and the
// edges are strictly increasing. For a density, Σ Values[i]*width[i] == 1.
type Histogram struct {
	Edges  []float64
	Values []float64
}

// Len is the number of bins
func (h Histogram) Len() int {
	return len(h.Values)
}

// Centers returns the midpoint of every bin
func (h Histogram) Centers() []float64 {
	return Centers(h.Edges)
}

// Widths returns the width of every bin
func (h Histogram) Widths() []float64 {
	return numeric.Widths(h.Edges)
}

// Area returns the integral Σ Values[i]*width[i]
func (h Histogram) Area() float64 {
	return numeric.Area(h.Values, h.Edges)
}

// Clone returns a deep copy
func (h Histogram) Clone() Histogram {
	return Histogram{
		Edges:  append([]float64(nil), h.Edges...),
		Values: append([]float64(nil), h.Values...),
	}
}

// Centers returns the arithmetic midpoint of each adjacent edge pair
func Centers(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	c := make([]float64, len(edges)-1)
	for i := range c {
		c[i] = (edges[i] + edges[i+1]) / 2
	}
	return c
}

// Counts bins samples into nEdges-1 equal-width bins spanning [minBound, maxBound]
func Counts(samples []float64, minBound, maxBound float64, nEdges int) (Histogram, error) {
	if minBound == maxBound {
		return Histogram{}, errors.DegenerateRange(minBound, maxBound)
	}
	if nEdges < 2 {
		return Histogram{}, errors.InvalidInput(fmt.Sprintf("need at least 2 edges, got %d", nEdges))
	}
	if minBound > maxBound {
		return Histogram{}, errors.InvalidInput(fmt.Sprintf("histogram range [%g, %g] is reversed", minBound, maxBound))
	}
	edges := numeric.Linspace(minBound, maxBound, nEdges)
	return Histogram{Edges: edges, Values: numeric.HistogramCounts(samples, edges)}, nil
}

// Build returns the normalized density of samples over nEdges-1 equal-width
// bins spanning [minBound, maxBound]. Samples outside the range are ignored.
func Build(samples []float64, minBound, maxBound float64, nEdges int) (Histogram, error) {
	h, err := Counts(samples, minBound, maxBound, nEdges)
	if err != nil {
		return Histogram{}, err
	}
	inRange := floats.Sum(h.Values)
	if inRange == 0 {
		return Histogram{}, errors.EmptySupport(fmt.Sprintf("no samples inside [%g, %g]", minBound, maxBound))
	}
	for i, w := range h.Widths() {
		h.Values[i] /= inRange * w
	}
	return h, nil
}

// Cut is the outcome of a probability threshold applied to a density
type Cut struct {
	Histogram
	// Epsilon is the probability mass retained before renormalization
	Epsilon float64
	// Removed is the number of dropped bins
	Removed int
}

// ApplyThreshold drops every bin whose center lies below threshold and
// rescales what remains to unit area. The input is never modified.
func ApplyThreshold(h Histogram, threshold float64) (Cut, error) {
	centers := h.Centers()
	out := Histogram{}
	first := -1
	for i, c := range centers {
		if c < threshold {
			continue
		}
		if first < 0 {
			first = i
			out.Edges = append(out.Edges, h.Edges[i])
		}
		out.Edges = append(out.Edges, h.Edges[i+1])
		out.Values = append(out.Values, h.Values[i])
	}
	if first < 0 {
		return Cut{}, errors.EmptySupport(fmt.Sprintf("threshold %g removes every bin", threshold))
	}

	// dropped bins are a prefix, so the kept edges stay contiguous
	removed := len(centers) - out.Len()
	area := out.Area()
	if area <= 0 {
		return Cut{}, errors.EmptySupport(fmt.Sprintf("threshold %g leaves no probability mass", threshold))
	}
	epsilon := area
	if removed == 0 {
		// nothing dropped: keep event counts free of round-off in the area
		epsilon = 1
	}

	floats.Scale(1/area, out.Values)
	return Cut{Histogram: out, Epsilon: epsilon, Removed: removed}, nil
}
