package separation

import (
	"fmt"
	"math"

	"llrscan/domain/separation"
	"llrscan/internal"
	"llrscan/internal/analysis/fit"
	"llrscan/internal/analysis/numeric"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

const (
	// Candidates is the number of trial cuts scanned by the Gaussian-fit estimator
	Candidates = 1000
	// domain and candidate half-widths in units of the mean fitted width
	domainWidths    = 50.0
	candidateWidths = 20.0
	// largest number of quadrature panels spent on one normalization
	maxPanels = 2000
)

// Estimator runs the three separation estimators. It holds no per-call state
// and may be shared between goroutines.
type Estimator struct {
	rule       *numeric.GaussLegendre
	fitOptions fit.Options
	logger     *internal.Logger
}

// NewEstimator creates an estimator with a 20-point Gauss-Legendre rule
func NewEstimator(logger *internal.Logger) *Estimator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Estimator{
		rule:       numeric.NewGaussLegendre(20),
		fitOptions: fit.DefaultOptions(),
		logger:     logger.With("separation"),
	}
}

// Fits are the fitted null and alternate curves plus the integration domain
// derived from them
type Fits struct {
	Null, Alt separation.GaussianFit
	// Min and Max bound every integral; Norm* are the full-domain integrals
	Min, Max          float64
	NormNull, NormAlt float64
	step              float64
}

// MeanWidth is the average of the two fitted widths
func (f Fits) MeanWidth() float64 {
	return (f.Null.StdDev + f.Alt.StdDev) / 2
}

// Fit fits both LLR histograms and integrates them over the shared domain
func (e *Estimator) Fit(p Populations) (Fits, error) {
	centers := p.Centers()
	null, err := e.fitOne(p.Null, p.NullHist, centers)
	if err != nil {
		return Fits{}, fmt.Errorf("null fit: %w", err)
	}
	alt, err := e.fitOne(p.Alt, p.AltHist, centers)
	if err != nil {
		return Fits{}, fmt.Errorf("alternate fit: %w", err)
	}

	f := Fits{Null: null, Alt: alt}
	width := f.MeanWidth()
	f.Min = alt.Mean - domainWidths*width
	f.Max = null.Mean + domainWidths*width
	f.step = math.Max(width, math.Abs(f.Max-f.Min)/maxPanels)
	if !(f.step > 0) || math.IsInf(f.step, 0) {
		return Fits{}, fmt.Errorf("unusable fitted width %g", width)
	}

	if f.NormNull, err = e.rule.IntegratePiecewise(null.Eval, f.Min, f.Max, f.step); err != nil {
		return Fits{}, err
	}
	if f.NormAlt, err = e.rule.IntegratePiecewise(alt.Eval, f.Min, f.Max, f.step); err != nil {
		return Fits{}, err
	}
	if f.NormNull == 0 || f.NormAlt == 0 {
		return Fits{}, fmt.Errorf("fitted curves integrate to zero over [%g, %g]", f.Min, f.Max)
	}
	return f, nil
}

func (e *Estimator) fitOne(population, hist, centers []float64) (separation.GaussianFit, error) {
	amp, err := stats.Max(hist)
	if err != nil {
		return separation.GaussianFit{}, err
	}
	mean, err := stats.Mean(population)
	if err != nil {
		return separation.GaussianFit{}, err
	}
	sd, err := stats.StandardDeviationPopulation(population)
	if err != nil {
		return separation.GaussianFit{}, err
	}
	guess := separation.GaussianFit{Amplitude: amp, Mean: mean, StdDev: sd}
	got, err := fit.Gaussian(centers, hist, guess, e.fitOptions)
	if err != nil {
		return separation.GaussianFit{}, err
	}
	e.logger.Trace("fit %+v from guess %+v", got, guess)
	return got, nil
}

// GaussianFit scans Candidates cuts between the fitted means and returns the
// null fraction below the cut where it is closest to the alternate fraction
// above it. The raw value is the large complement of the error rate; see Finalize.
func (e *Estimator) GaussianFit(f Fits) (est separation.Estimate) {
	defer recoverEstimate(separation.EstimatorGaussian, &est)

	width := f.MeanWidth()
	cuts := numeric.Linspace(f.Alt.Mean-candidateWidths*width, f.Null.Mean+candidateWidths*width, Candidates)

	// running integrals from f.Min to the current cut
	belowNull, err := e.rule.IntegratePiecewise(f.Null.Eval, f.Min, cuts[0], f.step)
	if err != nil {
		return separation.Failed(separation.EstimatorGaussian, separation.OutcomeIntegrationFailed, err.Error())
	}
	belowAlt, err := e.rule.IntegratePiecewise(f.Alt.Eval, f.Min, cuts[0], f.step)
	if err != nil {
		return separation.Failed(separation.EstimatorGaussian, separation.OutcomeIntegrationFailed, err.Error())
	}

	best := -1
	bestDiff := math.Inf(1)
	bestAlpha := math.NaN()
	for i, cut := range cuts {
		if i > 0 {
			dn, err := e.rule.Integrate(f.Null.Eval, cuts[i-1], cut)
			if err != nil {
				return separation.Failed(separation.EstimatorGaussian, separation.OutcomeIntegrationFailed, err.Error())
			}
			da, err := e.rule.Integrate(f.Alt.Eval, cuts[i-1], cut)
			if err != nil {
				return separation.Failed(separation.EstimatorGaussian, separation.OutcomeIntegrationFailed, err.Error())
			}
			belowNull += dn
			belowAlt += da
		}
		alpha := belowNull / f.NormNull
		beta := (f.NormAlt - belowAlt) / f.NormAlt
		if diff := math.Abs(alpha - beta); diff < bestDiff {
			best, bestDiff, bestAlpha = i, diff, alpha
		}
	}
	if best < 0 {
		return separation.Failed(separation.EstimatorGaussian, separation.OutcomeIntegrationFailed, "no candidate cut produced a finite difference")
	}
	return separation.Estimate{
		Estimator: separation.EstimatorGaussian,
		Alpha:     bestAlpha,
		Cut:       cuts[best],
		Outcome:   separation.OutcomeOK,
	}
}

// NoBeta places the cut at the mean of the alternate population and returns
// the null fraction below it
func (e *Estimator) NoBeta(f Fits, alt []float64) (est separation.Estimate) {
	defer recoverEstimate(separation.EstimatorNoBeta, &est)

	cut, err := stats.Mean(alt)
	if err != nil {
		return separation.Failed(separation.EstimatorNoBeta, separation.OutcomeDegenerate, err.Error())
	}
	below, err := e.rule.IntegratePiecewise(f.Null.Eval, f.Min, cut, f.step)
	if err != nil {
		return separation.Failed(separation.EstimatorNoBeta, separation.OutcomeIntegrationFailed, err.Error())
	}
	return separation.Estimate{
		Estimator: separation.EstimatorNoBeta,
		Alpha:     below / f.NormNull,
		Cut:       cut,
		Outcome:   separation.OutcomeOK,
	}
}

// Exact works on the histograms directly. For every edge index i it compares
// the null mass in bins at or above i with the alternate mass in bins at or
// below i and returns the null mass at the first index where they are closest.
func (e *Estimator) Exact(p Populations) (est separation.Estimate) {
	defer recoverEstimate(separation.EstimatorExact, &est)

	widths := numeric.Widths(p.Edges)
	null := make([]float64, len(widths))
	alt := make([]float64, len(widths))
	floats.MulTo(null, widths, p.NullHist)
	floats.MulTo(alt, widths, p.AltHist)
	totalNull, totalAlt := floats.Sum(null), floats.Sum(alt)
	if totalNull <= 0 || totalAlt <= 0 {
		return separation.Failed(separation.EstimatorExact, separation.OutcomeDegenerate, "empty LLR histogram")
	}

	// above[i] = Σ_{j>=i} null[j], computed for every edge index
	above := make([]float64, len(p.Edges))
	for i := len(null) - 1; i >= 0; i-- {
		above[i] = above[i+1] + null[i]
	}

	best := 0
	bestDiff := math.Inf(1)
	cumAlt := 0.0
	for i := range p.Edges {
		if i < len(alt) {
			cumAlt += alt[i]
		}
		diff := math.Abs(above[i]/totalNull - cumAlt/totalAlt)
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return separation.Estimate{
		Estimator: separation.EstimatorExact,
		Alpha:     above[best] / totalNull,
		Cut:       p.Edges[best],
		Outcome:   separation.OutcomeOK,
	}
}

// Raw is the unreflected output of all three estimators for one point
type Raw struct {
	Gaussian separation.Estimate
	NoBeta   separation.Estimate
	Exact    separation.Estimate
}

// Run bins the populations, fits once and runs the three estimators.
// Failures of one estimator never affect the others.
func (e *Estimator) Run(null, alt []float64, nEdges int) Raw {
	p, err := BuildPopulations(null, alt, nEdges)
	if err != nil {
		e.logger.Debug("LLR populations unusable: %v", err)
		return Raw{
			Gaussian: separation.Failed(separation.EstimatorGaussian, separation.OutcomeDegenerate, err.Error()),
			NoBeta:   separation.Failed(separation.EstimatorNoBeta, separation.OutcomeDegenerate, err.Error()),
			Exact:    separation.Failed(separation.EstimatorExact, separation.OutcomeDegenerate, err.Error()),
		}
	}

	raw := Raw{Exact: e.Exact(p)}
	fits, err := e.fitGuarded(p)
	if err != nil {
		e.logger.Debug("gaussian fit failed, falling back to neutral alpha: %v", err)
		raw.Gaussian = separation.Failed(separation.EstimatorGaussian, separation.OutcomeFitFailed, err.Error())
		raw.NoBeta = separation.Failed(separation.EstimatorNoBeta, separation.OutcomeFitFailed, err.Error())
		return raw
	}
	raw.Gaussian = e.GaussianFit(fits)
	raw.NoBeta = e.NoBeta(fits, alt)
	return raw
}

func (e *Estimator) fitGuarded(p Populations) (f Fits, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during fit: %v", r)
		}
	}()
	return e.Fit(p)
}

func recoverEstimate(estimator separation.Estimator, est *separation.Estimate) {
	if r := recover(); r != nil {
		*est = separation.Failed(estimator, separation.OutcomeIntegrationFailed, fmt.Sprintf("panic: %v", r))
	}
}
