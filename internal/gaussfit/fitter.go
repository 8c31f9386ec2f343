package gaussfit

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"gaussfit/domain/marks"
	"gaussfit/internal"
	"gaussfit/internal/errors"
	"gaussfit/internal/simplex"
)

// Start is the initial simplex vertex and step sizes
type Start struct {
	Params [marks.NumGaussParams]float64
	Steps  [marks.NumGaussParams]float64
}

// StartFromPeak derives the initial vertex from the histogram peak and the sample
// standard deviation: μ0 = peak centre, σ0 = sd, A0 = peak·σ0·√2π, steps of about 10%.
func StartFromPeak(peakCenter float64, peakFrequency float64, stdDev float64) Start {
	var s Start
	s.Params[marks.ParamMu] = peakCenter
	if peakCenter == 0 {
		s.Steps[marks.ParamMu] = stdDev / 20
	} else {
		s.Steps[marks.ParamMu] = peakCenter / 10
	}
	s.Params[marks.ParamSigma] = stdDev
	s.Steps[marks.ParamSigma] = stdDev / 10
	s.Params[marks.ParamScale] = peakFrequency * stdDev * sqrt2Pi
	s.Steps[marks.ParamScale] = s.Params[marks.ParamScale] / 10
	return s
}

// Fitter fits the scaled Gaussian by Nelder–Mead
type Fitter struct {
	minimizer *simplex.Minimizer
	logger    *internal.Logger
}

// NewFitter creates a fitter with the given simplex settings
func NewFitter(settings simplex.Settings, logger *internal.Logger) *Fitter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Fitter{
		minimizer: simplex.NewMinimizer(settings),
		logger:    logger.With("GaussFit"),
	}
}

// FitHistogram fits the bin frequencies against the bin centres, starting from the
// peak bin and the standard deviation of the sample the histogram was built from.
func (f *Fitter) FitHistogram(h *marks.Histogram, stdDev float64) (*marks.FitResult, error) {
	if h == nil || len(h.Bins) == 0 {
		return nil, errors.InsufficientDataError(marks.NumGaussParams, 0, "gaussian fit")
	}
	start := StartFromPeak(h.PeakCenter, float64(h.PeakFrequency), stdDev)
	return f.Fit(h.Centers(), h.Frequencies(), start)
}

// Fit minimizes the sum of squared residuals of the model against (xs, ys)
func (f *Fitter) Fit(xs, ys []float64, start Start) (*marks.FitResult, error) {
	n := len(xs)
	if n != len(ys) {
		return nil, errors.InvalidInput("x and y series differ in length")
	}
	if n < marks.NumGaussParams {
		return nil, errors.InsufficientDataError(marks.NumGaussParams, n, "gaussian fit over histogram bins")
	}

	sigma0 := start.Params[marks.ParamSigma]
	if !(sigma0 > 0) || math.IsInf(sigma0, 0) {
		return nil, errors.DegenerateFitError("initial sigma estimate must be positive, got " + formatFloat(sigma0))
	}

	var model GaussModel
	objective := simplex.SumOfSquares(barrier{model}, xs, ys)

	res, err := f.minimizer.Minimize(objective, start.Params[:], start.Steps[:])
	if err != nil {
		return nil, errors.Wrap(err, "simplex minimization failed")
	}
	if !res.Converged {
		f.logger.Warn("simplex did not converge within %d iterations; reporting best vertex", f.minimizer.Settings().MaxIterations)
	}

	params := res.X
	if !(params[marks.ParamSigma] > 0) {
		return nil, errors.DegenerateFitError("minimizer drove sigma to a non-positive value " + formatFloat(params[marks.ParamSigma]))
	}

	result := &marks.FitResult{
		Mu:         params[marks.ParamMu],
		Sigma:      params[marks.ParamSigma],
		Scale:      params[marks.ParamScale],
		Iterations: res.Iterations,
		Converged:  res.Converged,
	}
	result.Predicted = simplex.Predictions(model, params, xs)
	result.Residuals = make([]float64, n)
	for i := range ys {
		r := ys[i] - result.Predicted[i]
		result.Residuals[i] = r
		result.SumSquaredResiduals += r * r
	}
	result.DegreesOfFreedom = n - marks.NumGaussParams

	f.errorsAndTests(model, params, xs, result)
	diagnostics(ys, result)

	f.logger.Debug("fit mu=%.4g sigma=%.4g scale=%.4g ssr=%.4g after %d iterations",
		result.Mu, result.Sigma, result.Scale, result.SumSquaredResiduals, result.Iterations)
	return result, nil
}

// errorsAndTests fills standard errors, t-values and two-sided p-values
func (f *Fitter) errorsAndTests(model GaussModel, params, xs []float64, result *marks.FitResult) {
	for i := range result.StandardErrors {
		result.StandardErrors[i] = math.NaN()
		result.TValues[i] = math.NaN()
		result.PValues[i] = math.NaN()
	}
	dof := result.DegreesOfFreedom
	if dof <= 0 {
		return
	}

	s2 := result.SumSquaredResiduals / float64(dof)
	cov, err := simplex.Covariance(model, params, xs, s2)
	if err != nil {
		f.logger.Warn("standard errors unavailable: %v", err)
		return
	}
	se := simplex.StandardErrors(cov)
	for i := range result.StandardErrors {
		result.StandardErrors[i] = se[i]
		result.TValues[i], result.PValues[i] = simplex.TTest(params[i], se[i], dof)
	}
}

// diagnostics fills R², adjusted R², the F-ratio and its tail probability, and the
// correlation between observed and predicted frequencies.
func diagnostics(ys []float64, result *marks.FitResult) {
	n := len(ys)
	dof := result.DegreesOfFreedom
	result.RSquared = math.NaN()
	result.AdjustedRSquared = math.NaN()
	result.FRatio = math.NaN()
	result.FProbability = math.NaN()
	result.YYCorrelation = stat.Correlation(ys, result.Predicted, nil)

	mean := stat.Mean(ys, nil)
	var sst float64
	for _, y := range ys {
		sst += (y - mean) * (y - mean)
	}
	if sst == 0 {
		return
	}
	r2 := 1 - result.SumSquaredResiduals/sst
	result.RSquared = r2
	if dof <= 0 {
		return
	}
	result.AdjustedRSquared = 1 - (1-r2)*float64(n-1)/float64(dof)

	numDof := float64(marks.NumGaussParams - 1)
	if r2 >= 1 {
		result.FRatio = math.Inf(1)
		result.FProbability = 0
		return
	}
	result.FRatio = (r2 / numDof) / ((1 - r2) / float64(dof))
	if result.FRatio < 0 {
		return
	}
	dist := distuv.F{D1: numDof, D2: float64(dof)}
	result.FProbability = dist.Survival(result.FRatio)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
