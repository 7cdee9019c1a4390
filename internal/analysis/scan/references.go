package scan

import (
	"fmt"

	"llrscan/internal/analysis/pdf"
	"llrscan/internal/errors"
)

// References are the two reference densities every toy is drawn from and scored against
type References struct {
	Null pdf.Histogram
	Alt  pdf.Histogram
}

// NewReferences builds both densities on the same nEdges-1 bins over [minBound, maxBound]
func NewReferences(null, alt []float64, minBound, maxBound float64, nEdges int) (References, error) {
	n, err := pdf.Build(null, minBound, maxBound, nEdges)
	if err != nil {
		return References{}, errors.Wrap(err, "failed to build null reference density")
	}
	a, err := pdf.Build(alt, minBound, maxBound, nEdges)
	if err != nil {
		return References{}, errors.Wrap(err, "failed to build alternate reference density")
	}
	return References{Null: n, Alt: a}, nil
}

// Validate checks that both densities share one binning
func (r References) Validate() error {
	if r.Null.Len() < 2 || r.Null.Len() != r.Alt.Len() {
		return errors.InvalidInput(fmt.Sprintf("reference densities need matching bins, got %d and %d", r.Null.Len(), r.Alt.Len()))
	}
	for i, e := range r.Null.Edges {
		if r.Alt.Edges[i] != e {
			return errors.InvalidInput(fmt.Sprintf("reference densities disagree at edge %d: %g vs %g", i, e, r.Alt.Edges[i]))
		}
	}
	return nil
}
