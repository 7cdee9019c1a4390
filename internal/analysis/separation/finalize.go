package separation

import (
	"math"

	"llrscan/domain/separation"
)

// Alphas are the reflected error rates of one point, ready for conversion to n-sigma
type Alphas struct {
	Gaussian float64
	NoBeta   float64
	Exact    float64
}

// Finalize turns the raw estimator outputs into error rates in [0, 0.5].
// Any failed or NaN estimate and any point whose hypotheses expect the same
// count give separation.NeutralAlpha.
//
// The no-beta rate is reflected with the finalized Gaussian-fit rate rather
// than its own value whenever its complement exceeds 0.5. Published curves
// were produced this way and are kept reproducible.
func Finalize(raw Raw, expected separation.Counts) Alphas {
	if expected.Equal() {
		return Alphas{separation.NeutralAlpha, separation.NeutralAlpha, separation.NeutralAlpha}
	}

	out := Alphas{
		Gaussian: separation.NeutralAlpha,
		NoBeta:   separation.NeutralAlpha,
		Exact:    separation.NeutralAlpha,
	}
	if raw.Gaussian.OK() {
		a := 1 - raw.Gaussian.Alpha
		if a > 0.5 {
			a = 1 - a
		}
		out.Gaussian = neutralIfNaN(a)
	}
	if raw.NoBeta.OK() {
		a := 1 - raw.NoBeta.Alpha
		if a > 0.5 {
			a = 1 - out.Gaussian
		}
		out.NoBeta = neutralIfNaN(a)
	}
	if raw.Exact.OK() {
		a := raw.Exact.Alpha
		if a > 0.5 {
			a = 1 - a
		}
		out.Exact = neutralIfNaN(a)
	}
	return out
}

func neutralIfNaN(a float64) float64 {
	if math.IsNaN(a) {
		return separation.NeutralAlpha
	}
	return a
}
