package app

import (
	"time"

	"github.com/google/uuid"

	"gaussfit/domain/marks"
	"gaussfit/internal"
	"gaussfit/internal/config"
	"gaussfit/internal/errors"
	"gaussfit/internal/gaussfit"
	"gaussfit/internal/histogram"
	"gaussfit/internal/probplot"
	"gaussfit/internal/profiling"
	"gaussfit/internal/sample"
	"gaussfit/internal/simplex"
)

// Pipeline step names used in error messages
const (
	StepParse     = "parse"
	StepRescale   = "rescale"
	StepHistogram = "histogram"
	StepFit       = "simplex fit"
	StepProbPlot  = "probability plot"
)

// Options are the choices a UI or CLI collaborator supplies up front
type Options struct {
	ClampOutOfRange bool              `json:"clamp_out_of_range"`
	Rescale         marks.RescaleSpec `json:"rescale"`
	BinWidth        float64           `json:"bin_width"` // 0 selects the suggested width
	Simplex         simplex.Settings  `json:"-"`
}

// OptionsFromConfig builds run options from the environment configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ClampOutOfRange: cfg.Analysis.ClampOutOfRange,
		Rescale:         cfg.Analysis.Rescale,
		BinWidth:        cfg.Analysis.BinWidth,
		Simplex: simplex.Settings{
			MaxIterations: cfg.Simplex.MaxIterations,
			Tolerance:     cfg.Simplex.Tolerance,
			Restarts:      cfg.Simplex.Restarts,
		},
	}
}

// Analysis is everything the core computed for one run.
// Raw and scaled snapshots are both kept; Scaled fields are nil without rescaling.
// FitErr and ProbeErr isolate the two estimation paths from each other.
type Analysis struct {
	ID              string                 `json:"id"`
	CreatedAt       time.Time              `json:"created_at"`
	Title           string                 `json:"title"`
	Options         Options                `json:"options"`
	Entered         marks.Sample           `json:"entered"` // as parsed, before any clamping
	Raw             marks.Sample           `json:"raw"`     // after the limit policy
	RawViolation    marks.Violation        `json:"raw_violation"`
	RawStats        marks.MomentStats      `json:"raw_stats"`
	Scaled          *marks.Sample          `json:"scaled,omitempty"`
	ScaledViolation marks.Violation        `json:"scaled_violation"`
	ScaledStats     *marks.MomentStats     `json:"scaled_stats,omitempty"`
	SuggestedWidth  float64                `json:"suggested_width"`
	Histogram       *marks.Histogram       `json:"histogram,omitempty"`
	HistogramErr    error                  `json:"-"`
	Fit             *marks.FitResult       `json:"fit,omitempty"`
	FitErr          error                  `json:"-"`
	Curve           []marks.Point          `json:"curve,omitempty"`
	Probe           *marks.ProbePlotResult `json:"probe,omitempty"`
	ProbeErr        error                  `json:"-"`
}

// Final returns the sample every estimator ran on
func (a *Analysis) Final() marks.Sample {
	if a.Scaled != nil {
		return *a.Scaled
	}
	return a.Raw
}

// FinalStats returns the statistics of the final sample
func (a *Analysis) FinalStats() marks.MomentStats {
	if a.ScaledStats != nil {
		return *a.ScaledStats
	}
	return a.RawStats
}

// Warnings collects the non-fatal problems of the run
func (a *Analysis) Warnings() []string {
	var out []string
	if a.RawViolation != marks.ViolationNone {
		out = append(out, "entered marks outside [0, 100]: "+a.RawViolation.String())
	}
	if a.ScaledViolation != marks.ViolationNone {
		out = append(out, "rescaled marks outside [0, 100]: "+a.ScaledViolation.String())
	}
	if a.Histogram != nil && a.Histogram.Integrity != nil {
		out = append(out, a.Histogram.Integrity.Error())
	}
	if a.Fit != nil && !a.Fit.Converged {
		out = append(out, "simplex fit did not converge; best vertex reported")
	}
	for _, err := range []error{a.HistogramErr, a.FitErr, a.ProbeErr} {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

// AnalysisService runs the fixed pipeline:
// parse → limits → statistics → (rescale → limits → statistics) → probability plot and
// histogram on the final sample → simplex fit on the histogram.
type AnalysisService struct {
	logger *internal.Logger
	now    func() time.Time
}

// NewAnalysisService creates the pipeline
func NewAnalysisService(logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{logger: logger, now: time.Now}
}

// RunText parses a marks file body and analyses it
func (s *AnalysisService) RunText(text string, opts Options) (*Analysis, error) {
	title, tokens := sample.SplitText(text)
	return s.Run(title, tokens, opts)
}

// Run analyses already tokenized input. Only a parse or rescale failure aborts the run;
// histogram, fit and probability plot failures are recorded on the Analysis.
func (s *AnalysisService) Run(title string, tokens []string, opts Options) (*Analysis, error) {
	log := s.logger.With("Pipeline")

	entered, err := sample.ParseTokens(title, tokens)
	if err != nil {
		return nil, errors.InStep(StepParse, err)
	}

	a := &Analysis{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
		Title:     title,
		Options:   opts,
		Entered:   entered,
	}
	log.Info("analysis %s: %q, %d entries (%d present, %d absent)",
		a.ID, title, entered.Total(), entered.PresentCount(), entered.AbsentCount())

	limits := sample.NewLimitPolicy(opts.ClampOutOfRange, s.logger)
	a.Raw, a.RawViolation = limits.Apply(entered, sample.StageEntered)
	a.RawStats = profiling.Describe(a.Raw.Values())

	if opts.Rescale.Enabled() {
		scaled, err := sample.Rescale(a.Raw, opts.Rescale)
		if err != nil {
			return nil, errors.InStep(StepRescale, err)
		}
		scaled, a.ScaledViolation = limits.Apply(scaled, sample.StageRescaled)
		stats := profiling.Describe(scaled.Values())
		a.Scaled = &scaled
		a.ScaledStats = &stats
		log.Info("rescaled (%s): mean %.4g -> %.4g, sd %.4g -> %.4g",
			opts.Rescale.Mode, a.RawStats.Mean, stats.Mean, a.RawStats.StdDev, stats.StdDev)
	}

	final := a.Final().Values()
	finalStats := a.FinalStats()

	if probe, err := probplot.Analyze(final); err != nil {
		a.ProbeErr = errors.InStep(StepProbPlot, err)
		log.Warn("%v", a.ProbeErr)
	} else {
		a.Probe = probe
	}

	a.SuggestedWidth = histogram.SuggestWidth(finalStats.StdDev, len(final))
	width := opts.BinWidth
	if width <= 0 {
		width = a.SuggestedWidth
	}
	h, err := histogram.NewBuilder(s.logger).Build(final, width)
	if err != nil {
		a.HistogramErr = errors.InStep(StepHistogram, err)
		a.FitErr = errors.InStep(StepFit, errors.Wrap(err, "no histogram to fit"))
		log.Warn("%v", a.HistogramErr)
		return a, nil
	}
	a.Histogram = h

	fit, err := gaussfit.NewFitter(opts.Simplex, s.logger).FitHistogram(h, finalStats.StdDev)
	if err != nil {
		a.FitErr = errors.InStep(StepFit, err)
		log.Warn("%v", a.FitErr)
		return a, nil
	}
	a.Fit = fit
	a.Curve = gaussfit.Curve(h.Centers(), fit, gaussfit.CurvePoints)

	log.Info("analysis %s done: fit mu=%.4g sigma=%.4g, probability plot ok=%t",
		a.ID, fit.Mu, fit.Sigma, a.Probe != nil)
	return a, nil
}
