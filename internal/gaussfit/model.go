// Package gaussfit fits a scaled Gaussian density to a histogram with the simplex minimizer.
package gaussfit

import (
	"math"

	"gaussfit/domain/marks"
)

var sqrt2Pi = math.Sqrt(2 * math.Pi)

// GaussModel is A/(σ√2π)·exp(−½((x−μ)/σ)²) with parameters [μ, σ, A]
type GaussModel struct{}

// NumParams implements simplex.Model
func (GaussModel) NumParams() int { return marks.NumGaussParams }

// Predict implements simplex.Model
func (GaussModel) Predict(p []float64, x float64) float64 {
	return Density(x, p[marks.ParamMu], p[marks.ParamSigma], p[marks.ParamScale])
}

// Density evaluates the scaled Gaussian at x
func Density(x, mu, sigma, scale float64) float64 {
	z := (x - mu) / sigma
	return scale / (sigma * sqrt2Pi) * math.Exp(-0.5*z*z)
}

// barrier keeps the search in σ > 0
type barrier struct {
	GaussModel
}

func (b barrier) Predict(p []float64, x float64) float64 {
	if !(p[marks.ParamSigma] > 0) {
		return math.Inf(1)
	}
	return b.GaussModel.Predict(p, x)
}
