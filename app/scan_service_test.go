package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"llrscan/adapters/arrays"
	"llrscan/adapters/rng"
	"llrscan/internal"
	"llrscan/internal/config"
	"llrscan/internal/errors"
	"llrscan/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScores(t *testing.T, dir, name string, scores []float64) string {
	t.Helper()
	var b strings.Builder
	for _, v := range scores {
		fmt.Fprintf(&b, "%.18e\n", v)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Samples.SMPath = writeScores(t, dir, "sm.txt", testkit.GaussianScores(5000, 0.4, 0.15, 1))
	cfg.Samples.EFTPath = writeScores(t, dir, "eft.txt", testkit.GaussianScores(5000, 0.6, 0.15, 2))
	cfg.Scan.ToyCount = 60
	cfg.Scan.LuminosityGrid = []float64{0.5, 2, 4}
	cfg.Scan.Thresholds = []float64{0, 0.3}
	cfg.Scan.Workers = 2
	cfg.Output.ArrayDir = filepath.Join(dir, "arrays")
	cfg.Output.PlotDir = filepath.Join(dir, "plots")
	require.NoError(t, cfg.Validate())
	return cfg
}

func newService(cfg *config.Config) *ScanService {
	return NewScanService(cfg, rng.NewSeededAdapter(), internal.NewLogger(internal.LogLevelError))
}

func TestRunLuminosityScan_WritesArraysAndPlots(t *testing.T) {
	cfg := testConfig(t)
	svc := newService(cfg)

	report, err := svc.RunLuminosityScan(context.Background(), ScanRequest{Plot: true})
	require.NoError(t, err)
	assert.Equal(t, "with_poisson_0Pcut_0ktoys999", report.Extension)
	assert.Len(t, report.Result.Points, 3)
	require.Len(t, report.ArrayPaths, 4)
	assert.Equal(t, 5000, report.Samples.SM.N)
	assert.InDelta(t, 0.4, report.Samples.SM.Mean, 0.01)
	assert.InDelta(t, 0.6, report.Samples.EFT.Mean, 0.01)
	for _, p := range append(report.ArrayPaths, report.PlotPaths...) {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	loaded, err := arrays.NewStore(cfg.Output.ArrayDir, nil).Load(arrays.StudyLuminosity, report.Extension)
	require.NoError(t, err)
	assert.Equal(t, cfg.Scan.LuminosityGrid, loaded.X)
	assert.Equal(t, report.Result.NSigmaExact(), loaded.NSigmaExact)

	out := filepath.Join(t.TempDir(), "replot.png")
	require.NoError(t, svc.Replot(arrays.StudyLuminosity, report.Extension, out))
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestRunThresholdScan(t *testing.T) {
	cfg := testConfig(t)
	report, err := newService(cfg).RunThresholdScan(context.Background(), 3, ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, arrays.StudyThreshold, report.Study)
	assert.Equal(t, cfg.Scan.Thresholds, report.Result.Thresholds())
	assert.Contains(t, report.ArrayPaths[0], "prob_thresholdZvsPcut_arr")
	assert.Empty(t, report.PlotPaths)

	_, err = newService(cfg).RunThresholdScan(context.Background(), 0, ScanRequest{})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestLoadReferences_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Samples.EFTPath = ""
	_, err := newService(cfg).LoadReferences()
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	cfg.Samples.EFTPath = filepath.Join(t.TempDir(), "missing.txt")
	_, err = newService(cfg).LoadReferences()
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
}
