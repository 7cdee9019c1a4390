package scan

import (
	"bytes"
	"context"
	"log"
	"math/rand/v2"
	"os"
	"testing"

	"llrscan/adapters/rng"
	domain "llrscan/domain/separation"
	"llrscan/internal"
	"llrscan/internal/analysis/llr"
	"llrscan/internal/analysis/numeric"
	"llrscan/internal/analysis/separation"
	"llrscan/internal/analysis/significance"
	"llrscan/internal/config"
	"llrscan/internal/errors"
	"llrscan/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separatedReferences(t *testing.T) References {
	t.Helper()
	nullCfg, altCfg := testkit.DefaultScoreConfigs()
	refs, err := NewReferences(
		testkit.NewScoreGenerator(nullCfg).Generate(),
		testkit.NewScoreGenerator(altCfg).Generate(),
		0, 1, 50)
	require.NoError(t, err)
	return refs
}

func overlappingReferences(t *testing.T) References {
	t.Helper()
	refs, err := NewReferences(
		testkit.GaussianScores(10000, 0.4, 0.15, 7),
		testkit.GaussianScores(10000, 0.6, 0.15, 8),
		0, 1, 50)
	require.NoError(t, err)
	return refs
}

func scanConfig(toys int) config.ScanConfig {
	cfg := config.Default().Scan
	cfg.ToyCount = toys
	cfg.Workers = 4
	return cfg
}

func newScanner(t *testing.T, cfg config.ScanConfig, refs References) *Scanner {
	t.Helper()
	s, err := NewScanner(cfg, refs, rng.NewSeededAdapter(), internal.NewLogger(internal.LogLevelError))
	require.NoError(t, err)
	return s
}

func TestRun_EqualCrossSectionsAreNeutral(t *testing.T) {
	cfg := scanConfig(200)
	cfg.SMCrossSection = 14.009
	cfg.EFTCrossSection = 14.009
	grid := numeric.Linspace(0.1, 8.0, 30)

	res, err := newScanner(t, cfg, separatedReferences(t)).Run(context.Background(), grid)
	require.NoError(t, err)
	require.Len(t, res.Points, 30)
	assert.Equal(t, grid, res.Luminosities())

	exact := res.NSigmaExact()
	for i := 1; i < len(exact); i++ {
		assert.GreaterOrEqual(t, exact[i], exact[i-1]-1e-9)
	}
	for _, p := range res.Points {
		assert.Equal(t, domain.NeutralAlpha, p.AlphaExact)
		assert.Zero(t, p.NSigmaExact)
	}
}

func TestRun_SignificanceGrowsWithLuminosity(t *testing.T) {
	cfg := scanConfig(300)
	grid := numeric.Linspace(0.1, 8.0, 30)

	res, err := newScanner(t, cfg, separatedReferences(t)).Run(context.Background(), grid)
	require.NoError(t, err)

	exact := res.NSigmaExact()
	// L=0.1 expects one event under both hypotheses
	assert.Zero(t, exact[0])
	for i := 1; i < len(exact); i++ {
		assert.GreaterOrEqual(t, exact[i], exact[i-1]-1.0, "n_sigma_exact dropped at L=%g", grid[i])
	}
	assert.Greater(t, exact[len(exact)-1], 2.0)

	last := res.Points[len(res.Points)-1]
	assert.Equal(t, 112.0, last.Expected.Null)
	assert.Equal(t, 137.0, last.Expected.Alt)
	assert.Equal(t, 1.0, last.Epsilon.Null)
	assert.Equal(t, last.Expected, last.ExpectedAfterCut)
	assert.True(t, last.Exact.OK())
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	refs := overlappingReferences(t)
	grid := []float64{0.5, 2, 4}

	cfg := scanConfig(100)
	cfg.Workers = 1
	a, err := newScanner(t, cfg, refs).Run(context.Background(), grid)
	require.NoError(t, err)

	cfg.Workers = 3
	b, err := newScanner(t, cfg, refs).Run(context.Background(), grid)
	require.NoError(t, err)

	assert.Equal(t, a.NSigma(), b.NSigma())
	assert.Equal(t, a.NSigmaNoBeta(), b.NSigmaNoBeta())
	assert.Equal(t, a.NSigmaExact(), b.NSigmaExact())
	assert.NotEqual(t, a.RunID, b.RunID)

	cfg.Seed = 7
	c, err := newScanner(t, cfg, refs).Run(context.Background(), grid)
	require.NoError(t, err)
	assert.NotEqual(t, a.NSigmaExact(), c.NSigmaExact())
}

func TestRun_NoToysGivesNeutralPoints(t *testing.T) {
	res, err := newScanner(t, scanConfig(0), overlappingReferences(t)).Run(context.Background(), []float64{1, 2, 3})
	require.NoError(t, err)
	for _, p := range res.Points {
		assert.Equal(t, domain.NeutralAlpha, p.Alpha)
		assert.Equal(t, domain.NeutralAlpha, p.AlphaNoBeta)
		assert.Equal(t, domain.NeutralAlpha, p.AlphaExact)
		assert.Zero(t, p.NSigma)
		assert.Zero(t, p.NSigmaNoBeta)
		assert.Zero(t, p.NSigmaExact)
		assert.Equal(t, domain.OutcomeDegenerate, p.Exact.Outcome)
	}
}

func identicalReferences(t *testing.T) References {
	t.Helper()
	sample := testkit.GaussianScores(10000, 0.5, 0.1, 3)
	refs, err := NewReferences(sample, sample, 0, 1, 50)
	require.NoError(t, err)
	require.Equal(t, refs.Null.Values, refs.Alt.Values)
	return refs
}

// identical densities remove only the shape term; a point is neutral only when
// the expected counts are equal too
func TestRun_IdenticalDensitiesAndEqualCountsAreNeutral(t *testing.T) {
	cfg := scanConfig(200)
	cfg.EFTCrossSection = cfg.SMCrossSection
	res, err := newScanner(t, cfg, identicalReferences(t)).Run(context.Background(), []float64{1, 4})
	require.NoError(t, err)
	for _, p := range res.Points {
		assert.Equal(t, domain.NeutralAlpha, p.Alpha)
		assert.Equal(t, domain.NeutralAlpha, p.AlphaNoBeta)
		assert.Equal(t, domain.NeutralAlpha, p.AlphaExact)
		assert.Zero(t, p.NSigma)
		assert.Zero(t, p.NSigmaNoBeta)
		assert.Zero(t, p.NSigmaExact)
	}
}

func TestRun_IdenticalDensitiesStillSeparateOnCounts(t *testing.T) {
	res, err := newScanner(t, scanConfig(500), identicalReferences(t)).Run(context.Background(), []float64{4})
	require.NoError(t, err)
	p := res.Points[0]
	assert.Equal(t, domain.Counts{Null: 56, Alt: 68}, p.Expected)
	assert.Less(t, p.AlphaExact, 0.45)
	assert.Greater(t, p.NSigmaExact, 0.0)
}

func TestPopulation_IdenticalDensitiesLeaveOnlyCountingTerm(t *testing.T) {
	refs := identicalReferences(t)
	s := newScanner(t, scanConfig(10), refs)
	eval, err := llr.NewEvaluator(refs.Null.Values, refs.Alt.Values)
	require.NoError(t, err)

	counting := func(n float64) float64 { return llr.PoissonLLR(n, 14, 17) }
	shapeN := []float64{0, 3, 14, 17, 40, 120}
	countN := []float64{0, 2, 14, 17, 35, 110}

	out, err := s.population(context.Background(), rand.New(rand.NewPCG(5, 6)), refs.Null, shapeN, countN, eval, counting)
	require.NoError(t, err)
	require.Len(t, out, len(shapeN))
	for i := range out {
		assert.Equal(t, llr.PoissonLLR(countN[i], 14, 17), out[i], "toy %d", i)
	}
}

func TestFinish_LogsSaturatedSignificance(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	s, err := NewScanner(scanConfig(10), overlappingReferences(t), rng.NewSeededAdapter(), internal.NewLogger(internal.LogLevelDebug))
	require.NoError(t, err)

	p := domain.LuminosityPoint{Luminosity: 0.645}
	s.finish(&p, separation.Alphas{Gaussian: 0.01, NoBeta: 0.2, Exact: 0})
	assert.Equal(t, significance.Bracket, p.NSigmaExact)
	assert.Contains(t, buf.String(), "exact alpha=0 saturates at 40 sigma")
	assert.NotContains(t, buf.String(), "gaussian alpha")
	assert.NotContains(t, buf.String(), "no-beta alpha")
}

func TestScanThresholds(t *testing.T) {
	thresholds := []float64{0, 0.2, 0.4}
	for _, source := range []string{config.ShapeSourceUncut, config.ShapeSourceCut} {
		t.Run(source, func(t *testing.T) {
			cfg := scanConfig(100)
			cfg.ShapeSource = source

			res, err := newScanner(t, cfg, overlappingReferences(t)).ScanThresholds(context.Background(), 4, thresholds)
			require.NoError(t, err)
			assert.Equal(t, thresholds, res.Thresholds())

			assert.Equal(t, 1.0, res.Points[0].Epsilon.Null)
			for i := 1; i < len(res.Points); i++ {
				prev, cur := res.Points[i-1], res.Points[i]
				assert.Less(t, cur.Epsilon.Null, prev.Epsilon.Null)
				assert.LessOrEqual(t, cur.ExpectedAfterCut.Null, prev.ExpectedAfterCut.Null)
				assert.Equal(t, 4.0, cur.Luminosity)
			}
			for _, p := range res.Points {
				assert.GreaterOrEqual(t, p.AlphaExact, 0.0)
				assert.LessOrEqual(t, p.AlphaExact, 0.5)
			}
		})
	}
}

func TestScanThresholds_CutRemovingEverythingAborts(t *testing.T) {
	_, err := newScanner(t, scanConfig(10), separatedReferences(t)).ScanThresholds(context.Background(), 2, []float64{0, 1.5})
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptySupport, errors.GetCode(err))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newScanner(t, scanConfig(10), overlappingReferences(t)).Run(ctx, []float64{1, 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewScanner_RejectsMismatchedReferences(t *testing.T) {
	refs := overlappingReferences(t)
	other, err := NewReferences(testkit.GaussianScores(1000, 0.5, 0.1, 1), testkit.GaussianScores(1000, 0.5, 0.1, 2), 0, 1, 20)
	require.NoError(t, err)
	refs.Alt = other.Alt

	_, err = NewScanner(scanConfig(10), refs, rng.NewSeededAdapter(), nil)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}
