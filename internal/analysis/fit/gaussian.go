// Package fit implements the nonlinear least-squares fit of the widened
// Gaussian form A*exp(-((x-mu)/(4*sigma))^2) to binned LLR distributions.
package fit

import (
	"fmt"
	"math"

	"llrscan/domain/separation"

	"gonum.org/v1/gonum/mat"
)

// Options control the Levenberg-Marquardt iteration
type Options struct {
	MaxIterations int
	// Tolerance is the relative change of the residual sum of squares that ends the fit
	Tolerance     float64
	InitialLambda float64
}

// DefaultOptions mirrors the tolerances of a typical curve_fit call
func DefaultOptions() Options {
	return Options{
		MaxIterations: 1000,
		Tolerance:     1e-12,
		InitialLambda: 1e-3,
	}
}

// ErrNoConvergence is returned when the iteration budget runs out
var ErrNoConvergence = fmt.Errorf("gaussian fit did not converge")

// Gaussian fits y(x) starting from the given guess. The returned StdDev is
// the absolute value of the fitted parameter; its sign is irrelevant to the model.
func Gaussian(x, y []float64, guess separation.GaussianFit, opts Options) (separation.GaussianFit, error) {
	if len(x) != len(y) {
		return separation.GaussianFit{}, fmt.Errorf("fit: %d x values for %d y values", len(x), len(y))
	}
	if len(x) < 3 {
		return separation.GaussianFit{}, fmt.Errorf("fit: need at least 3 points, got %d", len(x))
	}
	p := []float64{guess.Amplitude, guess.Mean, guess.StdDev}
	if !finite(p) || p[2] == 0 {
		return separation.GaussianFit{}, fmt.Errorf("fit: unusable initial guess %+v", guess)
	}

	n := len(x)
	jac := mat.NewDense(n, 3, nil)
	res := mat.NewVecDense(n, nil)
	var jtj mat.Dense
	var jtr, step mat.VecDense

	cost := residuals(x, y, p, res)
	lambda := opts.InitialLambda
	trial := make([]float64, 3)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		jacobian(x, p, jac)
		jtj.Mul(jac.T(), jac)
		jtr.MulVec(jac.T(), res)

		improved := false
		for attempt := 0; attempt < 30; attempt++ {
			damped := mat.DenseCopyOf(&jtj)
			for k := 0; k < 3; k++ {
				d := jtj.At(k, k)
				if d == 0 {
					d = 1
				}
				damped.Set(k, k, d*(1+lambda))
			}
			if err := step.SolveVec(damped, &jtr); err != nil {
				lambda *= 10
				continue
			}
			for k := range trial {
				trial[k] = p[k] + step.AtVec(k)
			}
			if trial[2] == 0 || !finite(trial) {
				lambda *= 10
				continue
			}
			trialRes := mat.NewVecDense(n, nil)
			trialCost := residuals(x, y, trial, trialRes)
			if trialCost <= cost {
				rel := (cost - trialCost) / math.Max(cost, math.SmallestNonzeroFloat64)
				copy(p, trial)
				res.CopyVec(trialRes)
				cost = trialCost
				lambda = math.Max(lambda/10, 1e-15)
				improved = true
				if rel < opts.Tolerance {
					return result(p), nil
				}
				break
			}
			lambda *= 10
		}
		if !improved {
			// no downhill step left at any damping: the current point is the minimum
			return result(p), nil
		}
	}
	return separation.GaussianFit{}, ErrNoConvergence
}

func result(p []float64) separation.GaussianFit {
	return separation.GaussianFit{Amplitude: p[0], Mean: p[1], StdDev: math.Abs(p[2])}
}

// residuals fills res with y - f(x; p) and returns the sum of squares
func residuals(x, y, p []float64, res *mat.VecDense) float64 {
	sum := 0.0
	for i, xi := range x {
		u := (xi - p[1]) / 4 / p[2]
		r := y[i] - p[0]*math.Exp(-u*u)
		res.SetVec(i, r)
		sum += r * r
	}
	return sum
}

// jacobian fills jac with the partial derivatives of f with respect to (A, mu, sigma)
func jacobian(x, p []float64, jac *mat.Dense) {
	a, mu, sigma := p[0], p[1], p[2]
	for i, xi := range x {
		u := (xi - mu) / 4 / sigma
		e := math.Exp(-u * u)
		f := a * e
		jac.Set(i, 0, e)
		jac.Set(i, 1, f*u/(2*sigma))
		jac.Set(i, 2, f*2*u*u/sigma)
	}
}

func finite(p []float64) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
