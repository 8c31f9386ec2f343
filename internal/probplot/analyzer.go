// Package probplot estimates Gaussian parameters from a probability plot regression.
package probplot

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"gaussfit/domain/marks"
	"gaussfit/internal/errors"
	"gaussfit/internal/simplex"
)

// MinSampleSize is the smallest sample the regression is defined for
const MinSampleSize = 3

// OrderStatisticMedians returns the Gaussian order statistic medians for n ranks using
// Filliben's uniform medians: m_n = 0.5^(1/n), m_1 = 1 − m_n,
// m_i = (i − 0.3175)/(n + 0.365), mapped through the inverse standard normal CDF.
func OrderStatisticMedians(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{0}
	}
	u := make([]float64, n)
	u[n-1] = math.Pow(0.5, 1/float64(n))
	u[0] = 1 - u[n-1]
	for i := 2; i < n; i++ {
		u[i-1] = (float64(i) - 0.3175) / (float64(n) + 0.365)
	}
	out := make([]float64, n)
	for i, p := range u {
		out[i] = distuv.UnitNormal.Quantile(p)
	}
	return out
}

// Analyze regresses the sorted sample on the Gaussian order statistic medians:
// the gradient estimates σ and the intercept μ.
func Analyze(values []float64) (*marks.ProbePlotResult, error) {
	n := len(values)
	if n < MinSampleSize {
		return nil, errors.InsufficientDataError(MinSampleSize, n, "probability plot regression")
	}

	ordered := append([]float64(nil), values...)
	sort.Float64s(ordered)
	medians := OrderStatisticMedians(n)

	intercept, gradient := stat.LinearRegression(medians, ordered, nil, false)

	res := &marks.ProbePlotResult{
		Gradient:              gradient,
		Intercept:             intercept,
		Mu:                    intercept,
		Sigma:                 gradient,
		OrderedData:           ordered,
		OrderStatisticMedians: medians,
		Residuals:             make([]float64, n),
		DegreesOfFreedom:      n - 2,
		Correlation:           stat.Correlation(medians, ordered, nil),
	}
	for i, x := range medians {
		r := ordered[i] - (intercept + gradient*x)
		res.Residuals[i] = r
		res.SumSquaredResiduals += r * r
	}

	meanX := stat.Mean(medians, nil)
	var sxx float64
	for _, x := range medians {
		sxx += (x - meanX) * (x - meanX)
	}
	s2 := res.SumSquaredResiduals / float64(res.DegreesOfFreedom)
	res.GradientError = math.Sqrt(s2 / sxx)
	res.InterceptError = math.Sqrt(s2 * (1/float64(n) + meanX*meanX/sxx))
	res.MuError = res.InterceptError
	res.SigmaError = res.GradientError

	res.TValues[0], res.PValues[0] = simplex.TTest(res.Mu, res.MuError, res.DegreesOfFreedom)
	res.TValues[1], res.PValues[1] = simplex.TTest(res.Sigma, res.SigmaError, res.DegreesOfFreedom)

	return res, nil
}
