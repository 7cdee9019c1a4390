package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinspace(t *testing.T) {
	tests := []struct {
		name        string
		start, stop float64
		n           int
		want        []float64
	}{
		{"empty", 0, 1, 0, nil},
		{"single", 3, 7, 1, []float64{3}},
		{"unit", 0, 1, 5, []float64{0, 0.25, 0.5, 0.75, 1}},
		{"descending", 1, -1, 3, []float64{1, 0, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Linspace(tt.start, tt.stop, tt.n)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-15)
			}
		})
	}
}

func TestHistogramCounts_NumpySemantics(t *testing.T) {
	edges := []float64{0, 1, 2, 3}
	values := []float64{0, 0.5, 1, 1.999, 2, 3, -0.1, 3.1, math.NaN()}

	// 3 lands in the last bin; values outside the range and NaN are dropped
	assert.Equal(t, []float64{2, 2, 2}, HistogramCounts(values, edges))
	assert.Nil(t, HistogramCounts(values, []float64{1}))
}

func TestWidthsAndArea(t *testing.T) {
	edges := []float64{0, 0.5, 2}
	assert.Equal(t, []float64{0.5, 1.5}, Widths(edges))
	assert.InDelta(t, 0.5*2+1.5*4, Area([]float64{2, 4}, edges), 1e-15)
	assert.Panics(t, func() { Area([]float64{1}, edges) })
}

func TestGaussLegendre_Integrate(t *testing.T) {
	g := NewGaussLegendre(64)
	assert.Equal(t, 64, g.Len())

	v, err := g.Integrate(func(x float64) float64 { return x * x }, 0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 9, v, 1e-12)

	v, err = g.Integrate(math.Sin, 0, math.Pi)
	require.NoError(t, err)
	assert.InDelta(t, 2, v, 1e-12)

	// reversed bounds flip the sign
	v, err = g.Integrate(func(x float64) float64 { return x * x }, 3, 0)
	require.NoError(t, err)
	assert.InDelta(t, -9, v, 1e-12)

	_, err = g.Integrate(math.Sin, 0, math.Inf(1))
	assert.Error(t, err)

	_, err = g.Integrate(func(float64) float64 { return math.NaN() }, 0, 1)
	assert.Error(t, err)
}

func TestGaussLegendre_IntegratePiecewise(t *testing.T) {
	g := NewGaussLegendre(32)
	gauss := func(x float64) float64 { return math.Exp(-x * x / 2) }

	v, err := g.IntegratePiecewise(gauss, -50, 50, 2)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(2*math.Pi), v, 1e-10)

	v, err = g.IntegratePiecewise(gauss, 50, -50, 2)
	require.NoError(t, err)
	assert.InDelta(t, -math.Sqrt(2*math.Pi), v, 1e-10)

	// non-positive step falls back to a single panel
	v, err = g.IntegratePiecewise(func(x float64) float64 { return 2 * x }, 0, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 1e-14)
}
