package llr

import (
	"fmt"
	"math"

	"llrscan/internal/errors"
)

// ShapeSum returns Σ counts[i] * (-2 ln pdf[i]) over bins with pdf[i] > 0.
// Bins where the reference density is zero do not constrain the toy and are skipped.
func ShapeSum(counts, pdf []float64) float64 {
	sum := 0.0
	for i, c := range counts {
		if i >= len(pdf) {
			break
		}
		if pdf[i] > 0 {
			sum += c * (-2 * math.Log(pdf[i]))
		}
	}
	return sum
}

// PoissonLLR is the counting term -2*(n*ln(muNull/muAlt) + (muAlt-muNull)).
// Equal or non-positive means carry no counting information and give 0.
func PoissonLLR(n, muNull, muAlt float64) float64 {
	if muNull == muAlt || muNull <= 0 || muAlt <= 0 {
		return 0
	}
	return -2 * (n*math.Log(muNull/muAlt) + (muAlt - muNull))
}

// Combined adds the counting term to the shape difference. The difference is
// taken first so equal shape sums leave exactly the counting term.
func Combined(poisson, shapeUnderNull, shapeUnderAlt float64) float64 {
	return poisson + (shapeUnderNull - shapeUnderAlt)
}

// Evaluator scores toys against the two reference densities
type Evaluator struct {
	null []float64
	alt  []float64
}

// NewEvaluator binds the null and alternate reference densities. Both must share the binning.
func NewEvaluator(nullPDF, altPDF []float64) (*Evaluator, error) {
	if len(nullPDF) != len(altPDF) {
		return nil, errors.InvalidInput(fmt.Sprintf("reference densities differ in length: %d vs %d", len(nullPDF), len(altPDF)))
	}
	return &Evaluator{null: nullPDF, alt: altPDF}, nil
}

// Shapes returns the shape sums of one toy under the null and the alternate density
func (e *Evaluator) Shapes(counts []float64) (underNull, underAlt float64) {
	return ShapeSum(counts, e.null), ShapeSum(counts, e.alt)
}

// Score returns the combined LLR of one toy given its counting term
func (e *Evaluator) Score(counts []float64, poisson float64) float64 {
	underNull, underAlt := e.Shapes(counts)
	return Combined(poisson, underNull, underAlt)
}
