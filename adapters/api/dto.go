package api

import (
	"math"
	"time"

	"gaussfit/app"
	"gaussfit/domain/marks"
	"gaussfit/internal/errors"
)

// JSON has no NaN or infinity: undefined statistics are sent as null

// AnalysisResponse is the JSON view of an analysis
type AnalysisResponse struct {
	ID              string              `json:"id"`
	CreatedAt       time.Time           `json:"created_at"`
	Title           string              `json:"title"`
	Options         OptionsResponse     `json:"options"`
	Observations    []ObservationDTO    `json:"observations"`
	RawViolation    string              `json:"raw_violation"`
	RawStats        StatsDTO            `json:"raw_stats"`
	ScaledViolation string              `json:"scaled_violation,omitempty"`
	ScaledStats     *StatsDTO           `json:"scaled_stats,omitempty"`
	SuggestedWidth  *float64            `json:"suggested_width"`
	Histogram       *HistogramDTO       `json:"histogram,omitempty"`
	Fit             *FitDTO             `json:"fit,omitempty"`
	Curve           []PointDTO          `json:"curve,omitempty"`
	Probe           *ProbeDTO           `json:"probability_plot,omitempty"`
	Errors          map[string]ErrorDTO `json:"errors,omitempty"` // keyed by pipeline step
	Warnings        []string            `json:"warnings,omitempty"`
}

// OptionsResponse echoes the options the analysis ran with
type OptionsResponse struct {
	Clamp    bool       `json:"clamp"`
	Rescale  RescaleDTO `json:"rescale"`
	BinWidth *float64   `json:"bin_width"` // null when the suggested width was used
}

type RescaleDTO struct {
	Mode   string   `json:"mode"`
	Factor *float64 `json:"factor,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	SD     *float64 `json:"sd,omitempty"`
}

// ObservationDTO is one entry in input order; Entered is null for missing entries
type ObservationDTO struct {
	Index   int      `json:"index"`
	Text    string   `json:"text,omitempty"`
	Entered *float64 `json:"entered"`
	Raw     *float64 `json:"raw"`
	Scaled  *float64 `json:"scaled,omitempty"`
}

type StatsDTO struct {
	N                int      `json:"n"`
	Mean             *float64 `json:"mean"`
	StdDev           *float64 `json:"std_dev"`
	MomentSkewness   *float64 `json:"moment_skewness"`
	MedianSkewness   *float64 `json:"median_skewness"`
	QuartileSkewness *float64 `json:"quartile_skewness"`
	ExcessKurtosis   *float64 `json:"excess_kurtosis"`
	Min              *float64 `json:"min"`
	Max              *float64 `json:"max"`
	Median           *float64 `json:"median"`
	Q1               *float64 `json:"q1"`
	Q3               *float64 `json:"q3"`
}

type BinDTO struct {
	Lower     *float64 `json:"lower"`
	Upper     *float64 `json:"upper"`
	Center    *float64 `json:"center"`
	Frequency int      `json:"frequency"`
}

type PointDTO struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type HistogramDTO struct {
	Bins           []BinDTO   `json:"bins"`
	Width          *float64   `json:"width"`
	RequestedWidth *float64   `json:"requested_width"`
	Polyline       []PointDTO `json:"polyline"`
	Counted        int        `json:"counted"`
	Expected       int        `json:"expected"`
}

type ParamDTO struct {
	Name          string   `json:"name"`
	Estimate      *float64 `json:"estimate"`
	StandardError *float64 `json:"standard_error"`
	T             *float64 `json:"t"`
	P             *float64 `json:"p"`
}

type FitDTO struct {
	Params              []ParamDTO `json:"params"`
	Predicted           []*float64 `json:"predicted"`
	Residuals           []*float64 `json:"residuals"`
	RSquared            *float64   `json:"r_squared"`
	AdjustedRSquared    *float64   `json:"adjusted_r_squared"`
	FRatio              *float64   `json:"f_ratio"`
	FProbability        *float64   `json:"f_probability"`
	SumSquaredResiduals *float64   `json:"sum_squared_residuals"`
	DegreesOfFreedom    int        `json:"degrees_of_freedom"`
	YYCorrelation       *float64   `json:"yy_correlation"`
	Iterations          int        `json:"iterations"`
	Converged           bool       `json:"converged"`
}

type ProbeDTO struct {
	Params                []ParamDTO `json:"params"`
	Gradient              *float64   `json:"gradient"`
	GradientError         *float64   `json:"gradient_error"`
	Intercept             *float64   `json:"intercept"`
	InterceptError        *float64   `json:"intercept_error"`
	Correlation           *float64   `json:"correlation"`
	SumSquaredResiduals   *float64   `json:"sum_squared_residuals"`
	DegreesOfFreedom      int        `json:"degrees_of_freedom"`
	OrderedData           []*float64 `json:"ordered_data"`
	OrderStatisticMedians []*float64 `json:"order_statistic_medians"`
	Residuals             []*float64 `json:"residuals"`
}

// ErrorDTO is the JSON form of an AppError
type ErrorDTO struct {
	Code    string `json:"code"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message"`
}

// f maps NaN and infinities to null
func f(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fs(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = f(v)
	}
	return out
}

func points(ps []marks.Point) []PointDTO {
	if len(ps) == 0 {
		return nil
	}
	out := make([]PointDTO, len(ps))
	for i, p := range ps {
		out[i] = PointDTO{X: f(p.X), Y: f(p.Y)}
	}
	return out
}

func statsDTO(s marks.MomentStats) StatsDTO {
	return StatsDTO{
		N:                s.N,
		Mean:             f(s.Mean),
		StdDev:           f(s.StdDev),
		MomentSkewness:   f(s.MomentSkewness),
		MedianSkewness:   f(s.MedianSkewness),
		QuartileSkewness: f(s.QuartileSkewness),
		ExcessKurtosis:   f(s.ExcessKurtosis),
		Min:              f(s.Min),
		Max:              f(s.Max),
		Median:           f(s.Median),
		Q1:               f(s.Q1),
		Q3:               f(s.Q3),
	}
}

func errorDTO(err error) ErrorDTO {
	dto := ErrorDTO{Code: errors.GetCode(err), Message: err.Error()}
	if appErr, ok := err.(*errors.AppError); ok {
		dto.Step = appErr.Step
	}
	return dto
}

// NewAnalysisResponse converts an analysis to its JSON view
func NewAnalysisResponse(a *app.Analysis) AnalysisResponse {
	resp := AnalysisResponse{
		ID:             a.ID,
		CreatedAt:      a.CreatedAt,
		Title:          a.Title,
		RawViolation:   a.RawViolation.String(),
		RawStats:       statsDTO(a.RawStats),
		SuggestedWidth: f(a.SuggestedWidth),
		Curve:          points(a.Curve),
		Warnings:       a.Warnings(),
	}

	resp.Options = OptionsResponse{
		Clamp:   a.Options.ClampOutOfRange,
		Rescale: RescaleDTO{Mode: string(a.Options.Rescale.Mode)},
	}
	if resp.Options.Rescale.Mode == "" {
		resp.Options.Rescale.Mode = string(marks.RescaleNone)
	}
	switch a.Options.Rescale.Mode {
	case marks.RescaleMultiplicative, marks.RescaleAdditive:
		resp.Options.Rescale.Factor = f(a.Options.Rescale.Factor)
	case marks.RescaleTargetMeanSD:
		resp.Options.Rescale.Mean = f(a.Options.Rescale.Mean)
		resp.Options.Rescale.SD = f(a.Options.Rescale.SD)
	}
	if a.Options.BinWidth > 0 {
		resp.Options.BinWidth = f(a.Options.BinWidth)
	}

	for i, o := range a.Entered.Observations {
		dto := ObservationDTO{Index: o.Index}
		if o.IsMissing() {
			dto.Text = o.Text
		} else {
			dto.Entered = f(o.Value)
			if i < len(a.Raw.Observations) {
				dto.Raw = f(a.Raw.Observations[i].Value)
			}
			if a.Scaled != nil && i < len(a.Scaled.Observations) {
				dto.Scaled = f(a.Scaled.Observations[i].Value)
			}
		}
		resp.Observations = append(resp.Observations, dto)
	}

	if a.Scaled != nil {
		resp.ScaledViolation = a.ScaledViolation.String()
		stats := statsDTO(*a.ScaledStats)
		resp.ScaledStats = &stats
	}

	if h := a.Histogram; h != nil {
		hd := &HistogramDTO{
			Width:          f(h.Width),
			RequestedWidth: f(h.RequestedWidth),
			Polyline:       points(h.Polyline),
			Counted:        h.Counted,
			Expected:       h.Expected,
		}
		for _, b := range h.Bins {
			hd.Bins = append(hd.Bins, BinDTO{Lower: f(b.Lower), Upper: f(b.Upper), Center: f(b.Center), Frequency: b.Frequency})
		}
		resp.Histogram = hd
	}

	if fit := a.Fit; fit != nil {
		fd := &FitDTO{
			Predicted:           fs(fit.Predicted),
			Residuals:           fs(fit.Residuals),
			RSquared:            f(fit.RSquared),
			AdjustedRSquared:    f(fit.AdjustedRSquared),
			FRatio:              f(fit.FRatio),
			FProbability:        f(fit.FProbability),
			SumSquaredResiduals: f(fit.SumSquaredResiduals),
			DegreesOfFreedom:    fit.DegreesOfFreedom,
			YYCorrelation:       f(fit.YYCorrelation),
			Iterations:          fit.Iterations,
			Converged:           fit.Converged,
		}
		names := [marks.NumGaussParams]string{"mu", "sigma", "scale"}
		for i, v := range fit.Estimates() {
			fd.Params = append(fd.Params, ParamDTO{
				Name:          names[i],
				Estimate:      f(v),
				StandardError: f(fit.StandardErrors[i]),
				T:             f(fit.TValues[i]),
				P:             f(fit.PValues[i]),
			})
		}
		resp.Fit = fd
	}

	if pr := a.Probe; pr != nil {
		resp.Probe = &ProbeDTO{
			Params: []ParamDTO{
				{Name: "mu", Estimate: f(pr.Mu), StandardError: f(pr.MuError), T: f(pr.TValues[0]), P: f(pr.PValues[0])},
				{Name: "sigma", Estimate: f(pr.Sigma), StandardError: f(pr.SigmaError), T: f(pr.TValues[1]), P: f(pr.PValues[1])},
			},
			Gradient:              f(pr.Gradient),
			GradientError:         f(pr.GradientError),
			Intercept:             f(pr.Intercept),
			InterceptError:        f(pr.InterceptError),
			Correlation:           f(pr.Correlation),
			SumSquaredResiduals:   f(pr.SumSquaredResiduals),
			DegreesOfFreedom:      pr.DegreesOfFreedom,
			OrderedData:           fs(pr.OrderedData),
			OrderStatisticMedians: fs(pr.OrderStatisticMedians),
			Residuals:             fs(pr.Residuals),
		}
	}

	for _, err := range []error{a.HistogramErr, a.FitErr, a.ProbeErr} {
		if err == nil {
			continue
		}
		if resp.Errors == nil {
			resp.Errors = make(map[string]ErrorDTO)
		}
		dto := errorDTO(err)
		resp.Errors[dto.Step] = dto
	}
	return resp
}
