package simplex

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"gaussfit/internal/errors"
)

// Model predicts y at x for a parameter vector. Implementations must be pure.
type Model interface {
	NumParams() int
	Predict(params []float64, x float64) float64
}

// SumOfSquares returns the least-squares objective of model over (xs, ys)
func SumOfSquares(model Model, xs, ys []float64) Objective {
	return func(params []float64) float64 {
		var ss float64
		for i, x := range xs {
			r := ys[i] - model.Predict(params, x)
			ss += r * r
		}
		return ss
	}
}

// Predictions evaluates the model at every x
func Predictions(model Model, params []float64, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = model.Predict(params, x)
	}
	return out
}

// Covariance estimates the parameter covariance at params as s²·(JᵀJ)⁻¹, where J is the
// central-difference Jacobian of the predictions (the Gauss–Newton curvature of the
// sum-of-squares surface) and s² the residual variance.
func Covariance(model Model, params, xs []float64, residualVariance float64) (*mat.SymDense, error) {
	p := model.NumParams()
	if len(params) != p {
		return nil, errors.InvalidInput("parameter count does not match the model")
	}
	if len(xs) < p {
		return nil, errors.InsufficientDataError(p, len(xs), "covariance estimation")
	}

	jac := mat.NewDense(len(xs), p, nil)
	fd.Jacobian(jac, func(y, x []float64) {
		for i, xi := range xs {
			y[i] = model.Predict(x, xi)
		}
	}, params, &fd.JacobianSettings{Formula: fd.Central})

	jtj := mat.NewSymDense(p, nil)
	jtj.SymOuterK(1, jac.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(jtj); !ok {
		return nil, errors.New(errors.CodeDegenerateFit, "curvature matrix is not positive definite")
	}
	cov := mat.NewSymDense(p, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, errors.Wrap(err, "failed to invert curvature matrix")
	}
	cov.ScaleSym(residualVariance, cov)
	return cov, nil
}

// StandardErrors returns the square roots of the covariance diagonal, NaN where negative
func StandardErrors(cov *mat.SymDense) []float64 {
	n := cov.SymmetricDim()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := cov.At(i, i)
		if v < 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Sqrt(v)
	}
	return out
}
