// Package report renders an analysis as plain text, markdown, HTML or an Excel workbook.
package report

import (
	"math"
	"strconv"

	"gaussfit/app"
	"gaussfit/domain/marks"
)

// Placeholder for statistics that are undefined for the sample
const notAvailable = "n/a"

// num formats a statistic with six significant digits
func num(v float64) string {
	switch {
	case math.IsNaN(v):
		return notAvailable
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// fixed formats marks with a fixed number of decimals
func fixed(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return num(v)
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func cv(value, err float64) string {
	return num(marks.CoefficientOfVariation(value, err))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// statsRow is one line of the statistics table: a label and one cell per column
type statsRow struct {
	label string
	cells []string
}

// statsColumns returns the column headers of the statistics table
func statsColumns(a *app.Analysis) []string {
	cols := []string{"Entered"}
	if a.Scaled != nil {
		cols = append(cols, "Scaled")
	}
	return append(cols, "Probability plot", "Non-linear")
}

// statsTable lines up the descriptive statistics of each sample state next to the two
// Gaussian estimates. Cells an estimator does not produce are left empty.
func statsTable(a *app.Analysis) []statsRow {
	states := []marks.MomentStats{a.RawStats}
	samples := []marks.Sample{a.Raw}
	if a.ScaledStats != nil {
		states = append(states, *a.ScaledStats)
		samples = append(samples, *a.Scaled)
	}

	mu, sigma := []string{"", ""}, []string{"", ""}
	if a.Probe != nil {
		mu[0], sigma[0] = num(a.Probe.Mu), num(a.Probe.Sigma)
	} else {
		mu[0], sigma[0] = notAvailable, notAvailable
	}
	if a.Fit != nil {
		mu[1], sigma[1] = num(a.Fit.Mu), num(a.Fit.Sigma)
	} else {
		mu[1], sigma[1] = notAvailable, notAvailable
	}

	row := func(label string, f func(i int, s marks.MomentStats) string, estimates ...string) statsRow {
		r := statsRow{label: label}
		for i, s := range states {
			r.cells = append(r.cells, f(i, s))
		}
		if len(estimates) == 0 {
			estimates = []string{"", ""}
		}
		r.cells = append(r.cells, estimates...)
		return r
	}

	return []statsRow{
		row("Marks present", func(_ int, s marks.MomentStats) string { return strconv.Itoa(s.N) }),
		row("Marks missing", func(i int, _ marks.MomentStats) string { return strconv.Itoa(samples[i].AbsentCount()) }),
		row("Mean", func(_ int, s marks.MomentStats) string { return num(s.Mean) }, mu...),
		row("Standard deviation", func(_ int, s marks.MomentStats) string { return num(s.StdDev) }, sigma...),
		row("Median", func(_ int, s marks.MomentStats) string { return num(s.Median) }),
		row("Lower quartile", func(_ int, s marks.MomentStats) string { return num(s.Q1) }),
		row("Upper quartile", func(_ int, s marks.MomentStats) string { return num(s.Q3) }),
		row("Minimum", func(_ int, s marks.MomentStats) string { return num(s.Min) }),
		row("Maximum", func(_ int, s marks.MomentStats) string { return num(s.Max) }),
		row("Moment skewness", func(_ int, s marks.MomentStats) string { return num(s.MomentSkewness) }),
		row("Median skewness", func(_ int, s marks.MomentStats) string { return num(s.MedianSkewness) }),
		row("Quartile skewness", func(_ int, s marks.MomentStats) string { return num(s.QuartileSkewness) }),
		row("Excess kurtosis", func(_ int, s marks.MomentStats) string { return num(s.ExcessKurtosis) }),
	}
}

// dataRow is one entry of the data listing, with missing entries in input order
type dataRow struct {
	index   int
	entered string
	scaled  string
}

func dataRows(a *app.Analysis) []dataRow {
	rows := make([]dataRow, 0, a.Entered.Total())
	for i, o := range a.Entered.Observations {
		r := dataRow{index: o.Index + 1}
		if o.IsMissing() {
			r.entered = "missing (" + strconv.Quote(o.Text) + ")"
			r.scaled = "missing"
			rows = append(rows, r)
			continue
		}
		r.entered = fixed(o.Value, 2)
		if a.Scaled != nil && i < len(a.Scaled.Observations) {
			r.scaled = fixed(a.Scaled.Observations[i].Value, 2)
		}
		rows = append(rows, r)
	}
	return rows
}

func rescaleLabel(spec marks.RescaleSpec) string {
	switch spec.Mode {
	case marks.RescaleMultiplicative:
		return "multiplied by " + num(spec.Factor)
	case marks.RescaleAdditive:
		return "shifted by " + num(spec.Factor)
	case marks.RescaleTargetMeanSD:
		return "mapped to mean " + num(spec.Mean) + ", sd " + num(spec.SD)
	}
	return "none"
}

var paramNames = [marks.NumGaussParams]string{"mu", "sigma", "scale"}
