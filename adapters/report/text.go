package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gaussfit/app"
	"gaussfit/internal/errors"
)

// WriteText writes the plain-text report: statistics, probability plot analysis,
// non-linear regression and the data listing.
func WriteText(w io.Writer, a *app.Analysis) error {
	if a == nil {
		return errors.InvalidInput("no analysis to report")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	p := &printer{w: tw}

	p.line("Gaussian fit of %s", titleOf(a))
	p.line("Analysis %s, %s", a.ID, a.CreatedAt.Format("2006-01-02 15:04:05"))
	p.line("Out-of-range marks clamped: %s\tRescaling: %s\t", yesNo(a.Options.ClampOutOfRange), rescaleLabel(a.Options.Rescale))
	p.blank()

	p.heading("Statistics")
	p.row(append([]string{""}, statsColumns(a)...)...)
	for _, r := range statsTable(a) {
		p.row(append([]string{r.label}, r.cells...)...)
	}
	p.blank()

	p.heading("Probability plot analysis")
	if a.Probe == nil {
		p.line("Not available: %s", errText(a.ProbeErr))
	} else {
		pr := a.Probe
		p.row("Correlation coefficient R", num(pr.Correlation))
		p.row("Sum of squared residuals", num(pr.SumSquaredResiduals))
		p.row("Degrees of freedom", fmt.Sprint(pr.DegreesOfFreedom))
		p.blank()
		p.row("", "Value", "Error", "CV %", "t", "p")
		p.row("Gradient", num(pr.Gradient), num(pr.GradientError), cv(pr.Gradient, pr.GradientError), "", "")
		p.row("Intercept", num(pr.Intercept), num(pr.InterceptError), cv(pr.Intercept, pr.InterceptError), "", "")
		p.row("Mu", num(pr.Mu), num(pr.MuError), cv(pr.Mu, pr.MuError), num(pr.TValues[0]), num(pr.PValues[0]))
		p.row("Sigma", num(pr.Sigma), num(pr.SigmaError), cv(pr.Sigma, pr.SigmaError), num(pr.TValues[1]), num(pr.PValues[1]))
		p.blank()
		p.row("Ordered data", "Order statistic median", "Residual")
		for i := range pr.OrderedData {
			p.row(fixed(pr.OrderedData[i], 2), fixed(pr.OrderStatisticMedians[i], 4), fixed(pr.Residuals[i], 4))
		}
	}
	p.blank()

	p.heading("Non-linear regression (simplex)")
	if a.Fit == nil {
		p.line("Not available: %s", errText(a.FitErr))
	} else {
		f := a.Fit
		p.row("y/y correlation", num(f.YYCorrelation))
		p.row("Coefficient of determination", num(f.RSquared))
		p.row("Adjusted coefficient of determination", num(f.AdjustedRSquared))
		p.row("F ratio", num(f.FRatio))
		p.row("F probability", num(f.FProbability))
		p.row("Sum of squared residuals", num(f.SumSquaredResiduals))
		p.row("Degrees of freedom", fmt.Sprint(f.DegreesOfFreedom))
		p.row("Iterations", fmt.Sprint(f.Iterations))
		p.row("Converged", yesNo(f.Converged))
		p.blank()
		p.row("Parameter", "Estimate", "Error", "CV %", "t", "p")
		for i, v := range f.Estimates() {
			p.row(paramNames[i], num(v), num(f.StandardErrors[i]), cv(v, f.StandardErrors[i]), num(f.TValues[i]), num(f.PValues[i]))
		}
	}
	if a.Histogram != nil {
		h := a.Histogram
		p.blank()
		p.line("Binned marks, width %s (requested %s)", num(h.Width), num(h.RequestedWidth))
		p.row("Lower", "Upper", "Centre", "Observed", "Predicted", "Residual")
		for i, b := range h.Bins {
			pred, res := "", ""
			if a.Fit != nil && i < len(a.Fit.Predicted) {
				pred, res = fixed(a.Fit.Predicted[i], 3), fixed(a.Fit.Residuals[i], 3)
			}
			p.row(fixed(b.Lower, 2), fixed(b.Upper, 2), fixed(b.Center, 2), fmt.Sprint(b.Frequency), pred, res)
		}
	}
	p.blank()

	p.heading("Data")
	if a.Scaled != nil {
		p.row("#", "Entered", "Scaled")
	} else {
		p.row("#", "Entered")
	}
	for _, d := range dataRows(a) {
		if a.Scaled != nil {
			p.row(fmt.Sprint(d.index), d.entered, d.scaled)
		} else {
			p.row(fmt.Sprint(d.index), d.entered)
		}
	}

	if warnings := a.Warnings(); len(warnings) > 0 {
		p.blank()
		p.heading("Warnings")
		for _, msg := range warnings {
			p.line("- %s", msg)
		}
	}

	if p.err != nil {
		return errors.Wrap(p.err, "failed to write report")
	}
	return errors.Wrap(tw.Flush(), "failed to write report")
}

func titleOf(a *app.Analysis) string {
	if strings.TrimSpace(a.Title) == "" {
		return "untitled marks"
	}
	return a.Title
}

// printer keeps the first write error so the report body reads straight through
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) row(cells ...string) {
	p.line("%s\t", strings.Join(cells, "\t"))
}

func (p *printer) heading(title string) {
	p.line("%s", strings.ToUpper(title))
	p.line("%s", strings.Repeat("=", len(title)))
}

func (p *printer) blank() {
	p.line("")
}
