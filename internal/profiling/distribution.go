// Package profiling computes descriptive statistics of a mark sample.
package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"gaussfit/domain/marks"
)

// Describe computes the moment statistics of a sample. It never mutates data.
//
// Conventions:
//   - StdDev is Bessel corrected (divisor n-1) and NaN for n < 2.
//   - Moment skewness and excess kurtosis average the central moments over n and
//     standardise by the Bessel corrected StdDev.
//   - Quartiles follow the Tukey halves rule: Q1 and Q3 are the medians of the lower and
//     upper halves of the sorted sample, excluding the median itself when n is odd.
//
// Any statistic whose denominator is zero or undefined is NaN.
func Describe(data []float64) marks.MomentStats {
	n := len(data)
	ms := marks.MomentStats{
		N:                n,
		Mean:             math.NaN(),
		StdDev:           math.NaN(),
		MomentSkewness:   math.NaN(),
		MedianSkewness:   math.NaN(),
		QuartileSkewness: math.NaN(),
		ExcessKurtosis:   math.NaN(),
		Min:              math.NaN(),
		Max:              math.NaN(),
		Median:           math.NaN(),
		Q1:               math.NaN(),
		Q3:               math.NaN(),
	}
	if n == 0 {
		return ms
	}

	ms.Mean, _ = stats.Mean(data)
	ms.Min, _ = stats.Min(data)
	ms.Max, _ = stats.Max(data)
	ms.Median, _ = stats.Median(data)

	if n >= 2 {
		ms.StdDev = StandardDeviation(data)
	}

	q1, q2, q3 := Quartiles(data)
	ms.Q1, ms.Q3 = q1, q3
	ms.QuartileSkewness = ratio(q3-2*q2+q1, q3-q1)

	if valid(ms.StdDev) {
		ms.MedianSkewness = ratio(3*(ms.Mean-ms.Median), ms.StdDev)
		ms.MomentSkewness = ratio(stat.MomentAbout(3, data, ms.Mean, nil), math.Pow(ms.StdDev, 3))
		kurt := ratio(stat.MomentAbout(4, data, ms.Mean, nil), math.Pow(ms.StdDev, 4))
		ms.ExcessKurtosis = kurt - 3
	}

	return ms
}

// StandardDeviation returns the Bessel corrected standard deviation, NaN for n < 2
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	sd, err := stats.StandardDeviationSample(data)
	if err != nil {
		return math.NaN()
	}
	return sd
}

// Quartiles returns Q1, Q2 and Q3 by the Tukey halves rule.
// With a single mark every quartile is that mark.
func Quartiles(data []float64) (q1, q2, q3 float64) {
	switch len(data) {
	case 0:
		return math.NaN(), math.NaN(), math.NaN()
	case 1:
		return data[0], data[0], data[0]
	}
	q, err := stats.Quartile(data)
	if err != nil {
		return math.NaN(), math.NaN(), math.NaN()
	}
	return q.Q1, q.Q2, q.Q3
}

func ratio(num, den float64) float64 {
	if den == 0 || !valid(den) || !valid(num) {
		return math.NaN()
	}
	return num / den
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
