package report

import (
	"math"

	"github.com/xuri/excelize/v2"

	"gaussfit/app"
	"gaussfit/internal/errors"
)

// Workbook sheet names
const (
	SheetSummary    = "Summary"
	SheetProbPlot   = "Probability plot"
	SheetRegression = "Regression"
	SheetData       = "Data"
)

// BuildWorkbook lays the analysis out over four sheets
func BuildWorkbook(a *app.Analysis) (*excelize.File, error) {
	if a == nil {
		return nil, errors.InvalidInput("no analysis to report")
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to name summary sheet")
	}
	for _, name := range []string{SheetProbPlot, SheetRegression, SheetData} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "failed to add sheet %s", name)
		}
	}

	sw := &sheetWriter{f: f}
	writeSummary(sw, a)
	writeProbPlot(sw, a)
	writeRegression(sw, a)
	writeData(sw, a)
	if sw.err != nil {
		f.Close()
		return nil, errors.Wrap(sw.err, "failed to fill workbook")
	}
	return f, nil
}

// WriteXLSX saves the analysis workbook to path
func WriteXLSX(path string, a *app.Analysis) error {
	f, err := BuildWorkbook(a)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save workbook %s", path)
	}
	return nil
}

func writeSummary(sw *sheetWriter, a *app.Analysis) {
	s := SheetSummary
	sw.set(s, 1, 1, "Title")
	sw.set(s, 2, 1, titleOf(a))
	sw.set(s, 1, 2, "Analysis")
	sw.set(s, 2, 2, a.ID)
	sw.set(s, 1, 3, "Rescaling")
	sw.set(s, 2, 3, rescaleLabel(a.Options.Rescale))

	header := append([]string{"Statistic"}, statsColumns(a)...)
	for c, h := range header {
		sw.set(s, c+1, 5, h)
	}
	for r, row := range statsTable(a) {
		sw.set(s, 1, r+6, row.label)
		for c, cell := range row.cells {
			sw.set(s, c+2, r+6, cell)
		}
	}
}

func writeProbPlot(sw *sheetWriter, a *app.Analysis) {
	s := SheetProbPlot
	pr := a.Probe
	if pr == nil {
		sw.set(s, 1, 1, "Not available")
		sw.set(s, 2, 1, errText(a.ProbeErr))
		return
	}
	rows := [][]interface{}{
		{"", "Value", "Error", "t", "p"},
		{"Mu", cell(pr.Mu), cell(pr.MuError), cell(pr.TValues[0]), cell(pr.PValues[0])},
		{"Sigma", cell(pr.Sigma), cell(pr.SigmaError), cell(pr.TValues[1]), cell(pr.PValues[1])},
		{"Correlation R", cell(pr.Correlation)},
		{"Sum of squared residuals", cell(pr.SumSquaredResiduals)},
		{"Degrees of freedom", pr.DegreesOfFreedom},
		{},
		{"Ordered data", "Order statistic median", "Residual"},
	}
	for i := range pr.OrderedData {
		rows = append(rows, []interface{}{cell(pr.OrderedData[i]), cell(pr.OrderStatisticMedians[i]), cell(pr.Residuals[i])})
	}
	sw.rows(s, rows)
}

func writeRegression(sw *sheetWriter, a *app.Analysis) {
	s := SheetRegression
	fit := a.Fit
	var rows [][]interface{}
	if fit == nil {
		rows = append(rows, []interface{}{"Not available", errText(a.FitErr)})
	} else {
		rows = append(rows, []interface{}{"Parameter", "Estimate", "Error", "t", "p"})
		for i, v := range fit.Estimates() {
			rows = append(rows, []interface{}{paramNames[i], cell(v), cell(fit.StandardErrors[i]), cell(fit.TValues[i]), cell(fit.PValues[i])})
		}
		rows = append(rows,
			[]interface{}{},
			[]interface{}{"y/y correlation", cell(fit.YYCorrelation)},
			[]interface{}{"Coefficient of determination", cell(fit.RSquared)},
			[]interface{}{"Adjusted coefficient of determination", cell(fit.AdjustedRSquared)},
			[]interface{}{"F ratio", cell(fit.FRatio)},
			[]interface{}{"F probability", cell(fit.FProbability)},
			[]interface{}{"Sum of squared residuals", cell(fit.SumSquaredResiduals)},
			[]interface{}{"Degrees of freedom", fit.DegreesOfFreedom},
			[]interface{}{"Iterations", fit.Iterations},
			[]interface{}{"Converged", fit.Converged},
		)
	}
	if h := a.Histogram; h != nil {
		rows = append(rows, []interface{}{}, []interface{}{"Lower", "Upper", "Centre", "Observed", "Predicted"})
		for i, b := range h.Bins {
			row := []interface{}{cell(b.Lower), cell(b.Upper), cell(b.Center), b.Frequency}
			if fit != nil && i < len(fit.Predicted) {
				row = append(row, cell(fit.Predicted[i]))
			}
			rows = append(rows, row)
		}
	}
	sw.rows(s, rows)
}

func writeData(sw *sheetWriter, a *app.Analysis) {
	s := SheetData
	header := []interface{}{"#", "Entered"}
	if a.Scaled != nil {
		header = append(header, "Scaled")
	}
	rows := [][]interface{}{header}
	for i, o := range a.Entered.Observations {
		row := []interface{}{o.Index + 1}
		if o.IsMissing() {
			row = append(row, o.Text)
		} else {
			row = append(row, o.Value)
			if a.Scaled != nil && i < len(a.Scaled.Observations) {
				row = append(row, a.Scaled.Observations[i].Value)
			}
		}
		rows = append(rows, row)
	}
	sw.rows(s, rows)
}

// cell keeps NaN and infinities out of numeric cells
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return num(v)
	}
	return v
}

// sheetWriter keeps the first cell error
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (sw *sheetWriter) set(sheet string, col, row int, v interface{}) {
	if sw.err != nil {
		return
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		sw.err = err
		return
	}
	sw.err = sw.f.SetCellValue(sheet, name, v)
}

func (sw *sheetWriter) rows(sheet string, rows [][]interface{}) {
	for r, row := range rows {
		for c, v := range row {
			sw.set(sheet, c+1, r+1, v)
		}
	}
}
