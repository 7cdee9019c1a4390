package plot

import (
	"os"
	"path/filepath"
	"testing"

	"llrscan/adapters/arrays"
	"llrscan/internal/analysis/pdf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurves_WritesFile(t *testing.T) {
	c := arrays.Curves{
		X:            []float64{0.1, 1, 2, 4},
		NSigma:       []float64{0, 0.8, 1.3, 2.1},
		NSigmaNoBeta: []float64{0, 0.5, 1.0, 1.6},
		NSigmaExact:  []float64{0, 0.9, 1.4, 2.0},
	}
	for _, name := range []string{"curves.png", "nested/curves.pdf", "curves.svg"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, Curves(arrays.StudyLuminosity, c, "Z vs L", path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestDensities_WritesFile(t *testing.T) {
	h := pdf.Histogram{Edges: []float64{0, 0.5, 1}, Values: []float64{1.5, 0.5}}
	path := filepath.Join(t.TempDir(), "pdfs.png")
	require.NoError(t, Densities(h, h, "reference densities", path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCurves_UnknownFormat(t *testing.T) {
	c := arrays.Curves{X: []float64{1, 2}, NSigma: []float64{1, 2}, NSigmaNoBeta: []float64{1, 2}, NSigmaExact: []float64{1, 2}}
	err := Curves(arrays.StudyThreshold, c, "", filepath.Join(t.TempDir(), "curves.unknown"))
	assert.Error(t, err)
}
