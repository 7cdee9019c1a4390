// Package separation estimates the error rate at which the null and
// alternate LLR populations can be told apart.
package separation

import (
	"fmt"
	"math"

	"llrscan/internal/analysis/numeric"
	"llrscan/internal/errors"

	"gonum.org/v1/gonum/floats"
)

// Populations holds both LLR populations binned on shared edges
type Populations struct {
	Null []float64
	Alt  []float64

	Edges    []float64
	NullHist []float64
	AltHist  []float64
}

// Centers returns the bin midpoints of the shared edges
func (p Populations) Centers() []float64 {
	c := make([]float64, len(p.Edges)-1)
	for i := range c {
		c[i] = (p.Edges[i] + p.Edges[i+1]) / 2
	}
	return c
}

// BuildPopulations bins both populations on linspace(floor(min), ceil(max), nEdges)
// taken over the union of the two
func BuildPopulations(null, alt []float64, nEdges int) (Populations, error) {
	if len(null) == 0 || len(alt) == 0 {
		return Populations{}, errors.InvalidInput(fmt.Sprintf("empty LLR population (%d null, %d alt)", len(null), len(alt)))
	}
	if nEdges < 2 {
		return Populations{}, errors.InvalidInput(fmt.Sprintf("need at least 2 LLR edges, got %d", nEdges))
	}
	lo := math.Floor(math.Min(floats.Min(null), floats.Min(alt)))
	hi := math.Ceil(math.Max(floats.Max(null), floats.Max(alt)))
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return Populations{}, errors.InvalidInput("LLR population contains non-finite values")
	}
	if lo == hi {
		return Populations{}, errors.DegenerateRange(lo, hi)
	}

	edges := numeric.Linspace(lo, hi, nEdges)
	return Populations{
		Null:     null,
		Alt:      alt,
		Edges:    edges,
		NullHist: numeric.HistogramCounts(null, edges),
		AltHist:  numeric.HistogramCounts(alt, edges),
	}, nil
}
