package separation

import (
	"math"

	"llrscan/domain/core"
)

// NeutralAlpha is the error rate reported when no separation can be measured
const NeutralAlpha = 0.5

// Outcome tags how an estimator arrived at its alpha
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeDegenerate        Outcome = "degenerate"
	OutcomeFitFailed         Outcome = "fit_failed"
	OutcomeIntegrationFailed Outcome = "integration_failed"
)

// Estimator names used in logs and outputs
type Estimator string

const (
	EstimatorGaussian Estimator = "gaussian"
	EstimatorNoBeta   Estimator = "no_beta"
	EstimatorExact    Estimator = "exact"
)

// Estimate is the result of one separation estimator.
// Alpha is only meaningful when Outcome is OutcomeOK.
type Estimate struct {
	Estimator Estimator `json:"estimator"`
	Alpha     float64   `json:"alpha"`
	Cut       float64   `json:"cut"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// OK reports whether the estimate carries a usable alpha
func (e Estimate) OK() bool {
	return e.Outcome == OutcomeOK && !math.IsNaN(e.Alpha)
}

// AlphaOrNeutral returns Alpha, or NeutralAlpha for any failed or NaN estimate
func (e Estimate) AlphaOrNeutral() float64 {
	if !e.OK() {
		return NeutralAlpha
	}
	return e.Alpha
}

// Failed builds a non-OK estimate
func Failed(estimator Estimator, outcome Outcome, detail string) Estimate {
	return Estimate{
		Estimator: estimator,
		Alpha:     math.NaN(),
		Cut:       math.NaN(),
		Outcome:   outcome,
		Detail:    detail,
	}
}

// GaussianFit holds the parameters of A*exp(-((x-mean)/(4*stddev))^2).
// StdDev is always stored as an absolute value.
type GaussianFit struct {
	Amplitude float64 `json:"amplitude"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
}

// Eval evaluates the fitted curve at x
func (g GaussianFit) Eval(x float64) float64 {
	z := (x - g.Mean) / 4 / g.StdDev
	return g.Amplitude * math.Exp(-z*z)
}

// Counts are the expected event counts of a point for both hypotheses
type Counts struct {
	Null float64 `json:"null"`
	Alt  float64 `json:"alt"`
}

// Equal reports whether the hypotheses predict the same count
func (c Counts) Equal() bool {
	return c.Null == c.Alt
}

// LuminosityPoint is the evaluated separation at one scan value
type LuminosityPoint struct {
	Luminosity float64 `json:"luminosity"`
	Threshold  float64 `json:"threshold"`

	Expected         Counts `json:"expected"`
	ExpectedAfterCut Counts `json:"expected_after_cut"`
	Epsilon          Counts `json:"epsilon"`

	Gaussian Estimate `json:"gaussian"`
	NoBeta   Estimate `json:"no_beta"`
	Exact    Estimate `json:"exact"`

	Alpha       float64 `json:"alpha"`
	AlphaNoBeta float64 `json:"alpha_no_beta"`
	AlphaExact  float64 `json:"alpha_exact"`

	NSigma       float64 `json:"n_sigma"`
	NSigmaNoBeta float64 `json:"n_sigma_no_beta"`
	NSigmaExact  float64 `json:"n_sigma_exact"`
}

// ScanResult is a complete scan over an ordered grid
type ScanResult struct {
	RunID  core.RunID        `json:"run_id"`
	Points []LuminosityPoint `json:"points"`
}

// Luminosities returns the scanned luminosity grid
func (r *ScanResult) Luminosities() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Luminosity
	}
	return out
}

// Thresholds returns the probability cuts of each point
func (r *ScanResult) Thresholds() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Threshold
	}
	return out
}

// NSigma returns the Gaussian-fit significance curve
func (r *ScanResult) NSigma() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.NSigma
	}
	return out
}

// NSigmaNoBeta returns the no-beta significance curve
func (r *ScanResult) NSigmaNoBeta() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.NSigmaNoBeta
	}
	return out
}

// NSigmaExact returns the exact-histogram significance curve
func (r *ScanResult) NSigmaExact() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.NSigmaExact
	}
	return out
}
