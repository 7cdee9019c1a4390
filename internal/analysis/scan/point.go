package scan

import (
	"context"
	"math"
	"math/rand/v2"

	domain "llrscan/domain/separation"
	"llrscan/internal/analysis/llr"
	"llrscan/internal/analysis/pdf"
	"llrscan/internal/analysis/separation"
	"llrscan/internal/analysis/significance"
	"llrscan/internal/analysis/toys"
	"llrscan/internal/config"
	"llrscan/internal/errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Point evaluates one (luminosity, threshold) pair using r as its only source
// of randomness
func (s *Scanner) Point(ctx context.Context, r *rand.Rand, luminosity, threshold float64) (domain.LuminosityPoint, error) {
	eff := s.cfg.DetectorEfficiency
	p := domain.LuminosityPoint{
		Luminosity: luminosity,
		Threshold:  threshold,
		Expected: domain.Counts{
			Null: math.Trunc(luminosity * eff * s.cfg.SMCrossSection),
			Alt:  math.Trunc(luminosity * eff * s.cfg.EFTCrossSection),
		},
	}

	n := s.cfg.ToyCount
	nullN := make([]float64, n)
	altN := make([]float64, n)
	for t := 0; t < n; t++ {
		nullN[t] = poisson(p.Expected.Null, r)
		altN[t] = poisson(p.Expected.Alt, r)
	}

	nullCut, err := pdf.ApplyThreshold(s.refs.Null, threshold)
	if err != nil {
		return p, errors.Wrap(err, "null density cut")
	}
	altCut, err := pdf.ApplyThreshold(s.refs.Alt, threshold)
	if err != nil {
		return p, errors.Wrap(err, "alternate density cut")
	}
	p.Epsilon = domain.Counts{Null: nullCut.Epsilon, Alt: altCut.Epsilon}
	p.ExpectedAfterCut = domain.Counts{
		Null: math.Trunc(nullCut.Epsilon * p.Expected.Null),
		Alt:  math.Trunc(altCut.Epsilon * p.Expected.Alt),
	}
	nullAfter := scaleTrunc(nullN, nullCut.Epsilon)
	altAfter := scaleTrunc(altN, altCut.Epsilon)

	if n == 0 {
		s.logger.Debug("L=%g: no toys requested, reporting neutral separation", luminosity)
		return s.neutral(p, "no toys"), nil
	}

	// shapes come from the uncut densities unless configured otherwise;
	// the counting term always uses the after-cut counts
	nullShape, altShape := s.refs.Null, s.refs.Alt
	nullShapeN, altShapeN := nullN, altN
	if s.cfg.ShapeSource == config.ShapeSourceCut {
		nullShape, altShape = nullCut.Histogram, altCut.Histogram
		nullShapeN, altShapeN = nullAfter, altAfter
	}

	eval, err := llr.NewEvaluator(nullShape.Values, altShape.Values)
	if err != nil {
		return p, err
	}
	counting := func(events float64) float64 {
		return llr.PoissonLLR(events, p.ExpectedAfterCut.Null, p.ExpectedAfterCut.Alt)
	}

	nullLLR, err := s.population(ctx, r, nullShape, nullShapeN, nullAfter, eval, counting)
	if err != nil {
		return p, errors.Wrap(err, "null toys")
	}
	altLLR, err := s.population(ctx, r, altShape, altShapeN, altAfter, eval, counting)
	if err != nil {
		return p, errors.Wrap(err, "alternate toys")
	}

	raw := s.estimator.Run(nullLLR, altLLR, s.cfg.LLRBins)
	p.Gaussian, p.NoBeta, p.Exact = raw.Gaussian, raw.NoBeta, raw.Exact
	s.finish(&p, separation.Finalize(raw, p.Expected))

	meanNull, _ := stats.Mean(nullLLR)
	meanAlt, _ := stats.Mean(altLLR)
	s.logger.Info("L=%.4g Pcut=%.3g mu=(%v, %v) mean LLR=(%.3f, %.3f) alpha=(%.4g, %.4g, %.4g) nsigma=(%.3f, %.3f, %.3f)",
		luminosity, threshold, p.Expected.Null, p.Expected.Alt, meanNull, meanAlt,
		p.Alpha, p.AlphaNoBeta, p.AlphaExact, p.NSigma, p.NSigmaNoBeta, p.NSigmaExact)
	return p, nil
}

// population draws one toy per entry of shapeN from the density and scores it
func (s *Scanner) population(ctx context.Context, r *rand.Rand, density pdf.Histogram, shapeN, countN []float64,
	eval *llr.Evaluator, counting func(float64) float64) ([]float64, error) {
	sampler, err := toys.NewSampler(density.Values, density.Centers(), r)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(shapeN))
	for t := range shapeN {
		if t%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		counts, err := sampler.Draw(int(shapeN[t]))
		if err != nil {
			return nil, err
		}
		out[t] = eval.Score(counts, counting(countN[t]))
	}
	return out, nil
}

func (s *Scanner) neutral(p domain.LuminosityPoint, detail string) domain.LuminosityPoint {
	p.Gaussian = domain.Failed(domain.EstimatorGaussian, domain.OutcomeDegenerate, detail)
	p.NoBeta = domain.Failed(domain.EstimatorNoBeta, domain.OutcomeDegenerate, detail)
	p.Exact = domain.Failed(domain.EstimatorExact, domain.OutcomeDegenerate, detail)
	s.finish(&p, separation.Alphas{Gaussian: domain.NeutralAlpha, NoBeta: domain.NeutralAlpha, Exact: domain.NeutralAlpha})
	return p
}

func (s *Scanner) finish(p *domain.LuminosityPoint, a separation.Alphas) {
	p.Alpha, p.AlphaNoBeta, p.AlphaExact = a.Gaussian, a.NoBeta, a.Exact
	p.NSigma = s.converter.ToSigma(a.Gaussian)
	p.NSigmaNoBeta = s.converter.ToSigma(a.NoBeta)
	p.NSigmaExact = s.converter.ToSigma(a.Exact)

	for _, z := range []struct {
		name  string
		alpha float64
		sigma float64
	}{
		{"gaussian", a.Gaussian, p.NSigma},
		{"no-beta", a.NoBeta, p.NSigmaNoBeta},
		{"exact", a.Exact, p.NSigmaExact},
	} {
		if math.Abs(z.sigma) >= significance.Bracket {
			s.logger.Debug("L=%g Pcut=%g: %s alpha=%g saturates at %g sigma",
				p.Luminosity, p.Threshold, z.name, z.alpha, z.sigma)
		}
	}
}

func poisson(mu float64, r *rand.Rand) float64 {
	if mu <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: mu, Src: r}.Rand()
}

func scaleTrunc(counts []float64, epsilon float64) []float64 {
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = math.Trunc(epsilon * c)
	}
	return out
}
