package gaussfit

import (
	"gonum.org/v1/gonum/interp"

	"gaussfit/domain/marks"
)

// CurvePoints is the number of points sampled along the fitted curve
const CurvePoints = 200

// Curve samples a natural cubic spline through (centre, predicted frequency) at n evenly
// spaced points between the first and last centre. With fewer than three centres the
// model is evaluated directly.
func Curve(centers []float64, fit *marks.FitResult, n int) []marks.Point {
	if fit == nil || len(centers) == 0 || n < 2 {
		return nil
	}
	first, last := centers[0], centers[len(centers)-1]
	if first == last {
		return []marks.Point{{X: first, Y: Density(first, fit.Mu, fit.Sigma, fit.Scale)}}
	}

	predict := func(x float64) float64 { return Density(x, fit.Mu, fit.Sigma, fit.Scale) }
	if len(centers) >= 3 && len(fit.Predicted) == len(centers) {
		var spline interp.NaturalCubic
		if err := spline.Fit(centers, fit.Predicted); err == nil {
			predict = spline.Predict
		}
	}

	inc := (last - first) / float64(n-1)
	points := make([]marks.Point, n)
	for i := range points {
		x := first + float64(i)*inc
		if i == n-1 {
			x = last
		}
		points[i] = marks.Point{X: x, Y: predict(x)}
	}
	return points
}
