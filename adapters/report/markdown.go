package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gaussfit/app"
)

// Markdown renders the analysis as a markdown document
func Markdown(a *app.Analysis) string {
	if a == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Gaussian fit of %s\n\n", escape(titleOf(a)))
	fmt.Fprintf(&b, "Analysis `%s`, %s. Out-of-range marks clamped: %s. Rescaling: %s.\n\n",
		a.ID, a.CreatedAt.Format("2006-01-02 15:04:05"), yesNo(a.Options.ClampOutOfRange), rescaleLabel(a.Options.Rescale))

	b.WriteString("## Statistics\n\n")
	table(&b, append([]string{""}, statsColumns(a)...), func(add func(...string)) {
		for _, r := range statsTable(a) {
			add(append([]string{r.label}, r.cells...)...)
		}
	})

	b.WriteString("## Probability plot analysis\n\n")
	if pr := a.Probe; pr == nil {
		fmt.Fprintf(&b, "Not available: %s\n\n", escape(errText(a.ProbeErr)))
	} else {
		fmt.Fprintf(&b, "Correlation coefficient R = %s, sum of squared residuals = %s, %d degrees of freedom.\n\n",
			num(pr.Correlation), num(pr.SumSquaredResiduals), pr.DegreesOfFreedom)
		table(&b, []string{"", "Value", "Error", "CV %", "t", "p"}, func(add func(...string)) {
			add("Gradient", num(pr.Gradient), num(pr.GradientError), cv(pr.Gradient, pr.GradientError), "", "")
			add("Intercept", num(pr.Intercept), num(pr.InterceptError), cv(pr.Intercept, pr.InterceptError), "", "")
			add("Mu", num(pr.Mu), num(pr.MuError), cv(pr.Mu, pr.MuError), num(pr.TValues[0]), num(pr.PValues[0]))
			add("Sigma", num(pr.Sigma), num(pr.SigmaError), cv(pr.Sigma, pr.SigmaError), num(pr.TValues[1]), num(pr.PValues[1]))
		})
	}

	b.WriteString("## Non-linear regression\n\n")
	if f := a.Fit; f == nil {
		fmt.Fprintf(&b, "Not available: %s\n\n", escape(errText(a.FitErr)))
	} else {
		table(&b, []string{"Diagnostic", "Value"}, func(add func(...string)) {
			add("y/y correlation", num(f.YYCorrelation))
			add("Coefficient of determination", num(f.RSquared))
			add("Adjusted coefficient of determination", num(f.AdjustedRSquared))
			add("F ratio", num(f.FRatio))
			add("F probability", num(f.FProbability))
			add("Sum of squared residuals", num(f.SumSquaredResiduals))
			add("Degrees of freedom", fmt.Sprint(f.DegreesOfFreedom))
			add("Iterations", fmt.Sprint(f.Iterations))
			add("Converged", yesNo(f.Converged))
		})
		table(&b, []string{"Parameter", "Estimate", "Error", "CV %", "t", "p"}, func(add func(...string)) {
			for i, v := range f.Estimates() {
				add(paramNames[i], num(v), num(f.StandardErrors[i]), cv(v, f.StandardErrors[i]), num(f.TValues[i]), num(f.PValues[i]))
			}
		})
	}
	if h := a.Histogram; h != nil {
		fmt.Fprintf(&b, "### Binned marks (width %s)\n\n", num(h.Width))
		table(&b, []string{"Lower", "Upper", "Centre", "Observed", "Predicted"}, func(add func(...string)) {
			for i, bin := range h.Bins {
				pred := ""
				if a.Fit != nil && i < len(a.Fit.Predicted) {
					pred = fixed(a.Fit.Predicted[i], 3)
				}
				add(fixed(bin.Lower, 2), fixed(bin.Upper, 2), fixed(bin.Center, 2), fmt.Sprint(bin.Frequency), pred)
			}
		})
	}

	if warnings := a.Warnings(); len(warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, msg := range warnings {
			fmt.Fprintf(&b, "- %s\n", escape(msg))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the markdown report as a complete HTML page
func HTML(a *app.Analysis) []byte {
	if a == nil {
		return nil
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Gaussian fit of " + titleOf(a),
	})
	return markdown.ToHTML([]byte(Markdown(a)), p, renderer)
}

func table(b *strings.Builder, header []string, rows func(add func(...string))) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	rows(func(cells ...string) {
		for i := range cells {
			cells[i] = escape(cells[i])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	})
	b.WriteString("\n")
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;")

func escape(s string) string {
	return mdEscaper.Replace(s)
}

func errText(err error) string {
	if err == nil {
		return "not computed"
	}
	return err.Error()
}
