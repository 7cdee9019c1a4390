package toys

import (
	"fmt"
	"math/rand/v2"

	"llrscan/internal/analysis/numeric"
	"llrscan/internal/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws toy experiments from one discretized density. It owns its
// random stream; a Sampler must not be shared between goroutines.
type Sampler struct {
	centers []float64
	edges   []float64
	dist    distuv.Categorical
}

// NewSampler prepares categorical sampling over centers weighted by density.
// The weights need not be normalized.
func NewSampler(density, centers []float64, src rand.Source) (*Sampler, error) {
	if len(density) != len(centers) {
		return nil, errors.InvalidInput(fmt.Sprintf("density has %d bins but %d centers", len(density), len(centers)))
	}
	if len(centers) < 2 {
		return nil, errors.InvalidInput("toy sampling needs at least two bins")
	}
	for i, w := range density {
		if w < 0 {
			return nil, errors.InvalidInput(fmt.Sprintf("negative density %g in bin %d", w, i))
		}
	}
	if floats.Sum(density) <= 0 {
		return nil, errors.EmptySupport("density has no mass to sample from")
	}

	// Re-binning range: [first center, last center + half a bin]. The extra
	// half bin is load-bearing: with len(density)+1 edges over this range every
	// drawn center k lands in bin k, and the last center stays strictly inside.
	width := centers[1] - centers[0]
	minP := floats.Min(centers)
	maxP := floats.Max(centers) + width/2

	return &Sampler{
		centers: centers,
		edges:   numeric.Linspace(minP, maxP, len(density)+1),
		dist:    distuv.NewCategorical(density, src),
	}, nil
}

// Edges returns the re-binning edges
func (s *Sampler) Edges() []float64 {
	return s.edges
}

// Draw samples nEvents centers with replacement and returns the per-bin counts
// of the re-binned toy, aligned with the density bins.
func (s *Sampler) Draw(nEvents int) ([]float64, error) {
	if nEvents < 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("negative event count %d", nEvents))
	}
	if nEvents == 0 {
		return make([]float64, len(s.centers)), nil
	}
	drawn := make([]float64, nEvents)
	for i := range drawn {
		drawn[i] = s.centers[int(s.dist.Rand())]
	}
	return numeric.HistogramCounts(drawn, s.edges), nil
}

// DrawCounts is the one-shot form of NewSampler followed by Draw
func DrawCounts(density, centers []float64, nEvents int, src rand.Source) ([]float64, error) {
	if nEvents == 0 && len(density) == len(centers) {
		return make([]float64, len(density)), nil
	}
	s, err := NewSampler(density, centers, src)
	if err != nil {
		return nil, err
	}
	return s.Draw(nEvents)
}
