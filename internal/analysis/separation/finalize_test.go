package separation

import (
	"math"
	"testing"

	"llrscan/domain/separation"

	"github.com/stretchr/testify/assert"
)

func ok(estimator separation.Estimator, alpha float64) separation.Estimate {
	return separation.Estimate{Estimator: estimator, Alpha: alpha, Outcome: separation.OutcomeOK}
}

func TestFinalize(t *testing.T) {
	distinct := separation.Counts{Null: 14, Alt: 17}
	failed := func(e separation.Estimator) separation.Estimate {
		return separation.Failed(e, separation.OutcomeFitFailed, "x")
	}

	tests := []struct {
		name     string
		raw      Raw
		expected separation.Counts
		want     Alphas
	}{
		{
			name: "complements and reflections",
			raw: Raw{
				Gaussian: ok(separation.EstimatorGaussian, 0.9),
				NoBeta:   ok(separation.EstimatorNoBeta, 0.8),
				Exact:    ok(separation.EstimatorExact, 0.7),
			},
			expected: distinct,
			want:     Alphas{Gaussian: 0.1, NoBeta: 0.2, Exact: 0.3},
		},
		{
			name: "gaussian complement above half is reflected",
			raw: Raw{
				Gaussian: ok(separation.EstimatorGaussian, 0.3),
				NoBeta:   ok(separation.EstimatorNoBeta, 0.6),
				Exact:    ok(separation.EstimatorExact, 0.2),
			},
			expected: distinct,
			want:     Alphas{Gaussian: 0.3, NoBeta: 0.4, Exact: 0.2},
		},
		{
			name: "no-beta reflects with the gaussian rate",
			raw: Raw{
				Gaussian: ok(separation.EstimatorGaussian, 0.9),
				NoBeta:   ok(separation.EstimatorNoBeta, 0.25),
				Exact:    ok(separation.EstimatorExact, 0.1),
			},
			expected: distinct,
			want:     Alphas{Gaussian: 0.1, NoBeta: 0.9, Exact: 0.1},
		},
		{
			name: "no-beta reflection after a failed gaussian uses the neutral rate",
			raw: Raw{
				Gaussian: failed(separation.EstimatorGaussian),
				NoBeta:   ok(separation.EstimatorNoBeta, 0.25),
				Exact:    ok(separation.EstimatorExact, 0.1),
			},
			expected: distinct,
			want:     Alphas{Gaussian: 0.5, NoBeta: 0.5, Exact: 0.1},
		},
		{
			name: "failures are neutral",
			raw: Raw{
				Gaussian: failed(separation.EstimatorGaussian),
				NoBeta:   failed(separation.EstimatorNoBeta),
				Exact:    ok(separation.EstimatorExact, math.NaN()),
			},
			expected: distinct,
			want:     Alphas{0.5, 0.5, 0.5},
		},
		{
			name: "equal expected counts are neutral",
			raw: Raw{
				Gaussian: ok(separation.EstimatorGaussian, 0.99),
				NoBeta:   ok(separation.EstimatorNoBeta, 0.99),
				Exact:    ok(separation.EstimatorExact, 0.01),
			},
			expected: separation.Counts{Null: 14, Alt: 14},
			want:     Alphas{0.5, 0.5, 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Finalize(tt.raw, tt.expected)
			assert.InDelta(t, tt.want.Gaussian, got.Gaussian, 1e-12)
			assert.InDelta(t, tt.want.NoBeta, got.NoBeta, 1e-12)
			assert.InDelta(t, tt.want.Exact, got.Exact, 1e-12)
		})
	}
}
