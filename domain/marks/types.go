package marks

import (
	"fmt"
	"math"
)

// Domain bounds for examination marks
const (
	MinMark = 0.0
	MaxMark = 100.0
)

// ============================================================================
// OBSERVATIONS AND SAMPLES
// ============================================================================

// Observation is one input token: either a parsed mark or a missing entry.
// Index is the 0-based position among all tokens, present and absent interleaved.
type Observation struct {
	Index   int     `json:"index"`
	Text    string  `json:"text,omitempty"` // Original token for missing entries
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
}

// Value creates a present observation
func Value(index int, v float64) Observation {
	return Observation{Index: index, Value: v, Present: true}
}

// Missing creates an absent observation that keeps its original text
func Missing(index int, text string) Observation {
	return Observation{Index: index, Text: text}
}

// IsMissing reports whether the observation carries no mark
func (o Observation) IsMissing() bool {
	return !o.Present
}

func (o Observation) String() string {
	if o.Present {
		return fmt.Sprintf("%d:%g", o.Index, o.Value)
	}
	return fmt.Sprintf("%d:missing(%q)", o.Index, o.Text)
}

// Sample is an ordered sequence of observations with a data title.
// Samples are treated as values: rescaling and clamping return new samples.
type Sample struct {
	Title        string        `json:"title"`
	Observations []Observation `json:"observations"`
}

// NewSample creates a sample from observations in input order
func NewSample(title string, observations []Observation) Sample {
	return Sample{Title: title, Observations: observations}
}

// Values returns the working sample: present marks in input order
func (s Sample) Values() []float64 {
	values := make([]float64, 0, len(s.Observations))
	for _, o := range s.Observations {
		if o.Present {
			values = append(values, o.Value)
		}
	}
	return values
}

// Missing returns the absent entries with their original positions and text
func (s Sample) Missing() []Observation {
	var missing []Observation
	for _, o := range s.Observations {
		if !o.Present {
			missing = append(missing, o)
		}
	}
	return missing
}

// PresentCount returns the number of parsed marks
func (s Sample) PresentCount() int {
	n := 0
	for _, o := range s.Observations {
		if o.Present {
			n++
		}
	}
	return n
}

// AbsentCount returns the number of missing entries
func (s Sample) AbsentCount() int {
	return len(s.Observations) - s.PresentCount()
}

// Total returns the number of entries, present and absent
func (s Sample) Total() int {
	return len(s.Observations)
}

// MapValues returns a copy of the sample with fn applied to every present mark.
// Missing entries keep their positions and text.
func (s Sample) MapValues(fn func(float64) float64) Sample {
	out := make([]Observation, len(s.Observations))
	for i, o := range s.Observations {
		if o.Present {
			o.Value = fn(o.Value)
		}
		out[i] = o
	}
	return Sample{Title: s.Title, Observations: out}
}

// ============================================================================
// LIMITS AND RESCALING
// ============================================================================

// Violation classifies marks outside [MinMark, MaxMark]
type Violation int

const (
	ViolationNone Violation = iota
	ViolationBelowMin
	ViolationAboveMax
	ViolationBoth
)

func (v Violation) String() string {
	switch v {
	case ViolationBelowMin:
		return "below-min"
	case ViolationAboveMax:
		return "above-max"
	case ViolationBoth:
		return "both"
	default:
		return "none"
	}
}

// RescaleMode selects the linear transform applied to the sample
type RescaleMode string

const (
	RescaleNone           RescaleMode = "none"
	RescaleMultiplicative RescaleMode = "multiplicative"
	RescaleAdditive       RescaleMode = "additive"
	RescaleTargetMeanSD   RescaleMode = "target"
)

// ParseRescaleMode accepts the mode names used on the command line and in requests
func ParseRescaleMode(s string) (RescaleMode, error) {
	switch s {
	case "", "none":
		return RescaleNone, nil
	case "multiplicative", "multiply", "mul":
		return RescaleMultiplicative, nil
	case "additive", "add":
		return RescaleAdditive, nil
	case "target", "targetMeanSd", "target-mean-sd", "meansd":
		return RescaleTargetMeanSD, nil
	}
	return RescaleNone, fmt.Errorf("unknown rescale mode %q", s)
}

// RescaleSpec carries the mode and its parameters.
// Factor is used by the multiplicative and additive modes, Mean and SD by the target mode.
type RescaleSpec struct {
	Mode   RescaleMode `json:"mode"`
	Factor float64     `json:"factor,omitempty"`
	Mean   float64     `json:"mean,omitempty"`
	SD     float64     `json:"sd,omitempty"`
}

// Enabled reports whether rescaling changes the sample at all
func (r RescaleSpec) Enabled() bool {
	return r.Mode != "" && r.Mode != RescaleNone
}

// ============================================================================
// DERIVED RESULTS
// ============================================================================

// MomentStats is a snapshot of descriptive statistics for one sample state
type MomentStats struct {
	N                int     `json:"n"`
	Mean             float64 `json:"mean"`
	StdDev           float64 `json:"std_dev"` // Bessel corrected, NaN for n < 2
	MomentSkewness   float64 `json:"moment_skewness"`
	MedianSkewness   float64 `json:"median_skewness"`
	QuartileSkewness float64 `json:"quartile_skewness"`
	ExcessKurtosis   float64 `json:"excess_kurtosis"`
	Min              float64 `json:"min"`
	Max              float64 `json:"max"`
	Median           float64 `json:"median"`
	Q1               float64 `json:"q1"`
	Q3               float64 `json:"q3"`
}

// Bin is one histogram class
type Bin struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Center    float64 `json:"center"`
	Frequency int     `json:"frequency"`
}

// Point is an (x, y) coordinate handed to plotting collaborators
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Histogram holds contiguous ascending bins and the step polyline that draws them
type Histogram struct {
	Bins           []Bin   `json:"bins"`
	Width          float64 `json:"width"`           // Width actually used after tiling the range
	RequestedWidth float64 `json:"requested_width"` // Width supplied by the caller or suggested
	Polyline       []Point `json:"polyline"`        // 3 points per bin plus a closing point
	PeakCenter     float64 `json:"peak_center"`
	PeakFrequency  int     `json:"peak_frequency"`
	Counted        int     `json:"counted"`  // Marks assigned to a bin
	Expected       int     `json:"expected"` // Present marks in the source sample
	Integrity      error   `json:"-"`        // Non-nil when Counted != Expected
}

// Centers returns the bin centres
func (h *Histogram) Centers() []float64 {
	out := make([]float64, len(h.Bins))
	for i, b := range h.Bins {
		out[i] = b.Center
	}
	return out
}

// Frequencies returns the bin frequencies as floats
func (h *Histogram) Frequencies() []float64 {
	out := make([]float64, len(h.Bins))
	for i, b := range h.Bins {
		out[i] = float64(b.Frequency)
	}
	return out
}

// Consistent reports whether every present mark landed in a bin
func (h *Histogram) Consistent() bool {
	return h.Counted == h.Expected
}

// Parameter indices of the Gaussian model
const (
	ParamMu = iota
	ParamSigma
	ParamScale
	NumGaussParams
)

// FitResult is the outcome of one Nelder–Mead fit of the scaled Gaussian to a histogram
type FitResult struct {
	Mu                  float64                 `json:"mu"`
	Sigma               float64                 `json:"sigma"`
	Scale               float64                 `json:"scale"`
	StandardErrors      [NumGaussParams]float64 `json:"standard_errors"`
	TValues             [NumGaussParams]float64 `json:"t_values"`
	PValues             [NumGaussParams]float64 `json:"p_values"`
	Predicted           []float64               `json:"predicted"`
	Residuals           []float64               `json:"residuals"` // observed - predicted
	RSquared            float64                 `json:"r_squared"`
	AdjustedRSquared    float64                 `json:"adjusted_r_squared"`
	FRatio              float64                 `json:"f_ratio"`
	FProbability        float64                 `json:"f_probability"`
	SumSquaredResiduals float64                 `json:"sum_squared_residuals"`
	DegreesOfFreedom    int                     `json:"degrees_of_freedom"`
	YYCorrelation       float64                 `json:"yy_correlation"` // Pearson r of observed vs predicted
	Iterations          int                     `json:"iterations"`
	Converged           bool                    `json:"converged"`
}

// Estimates returns mu, sigma and scale in parameter order
func (f *FitResult) Estimates() [NumGaussParams]float64 {
	return [NumGaussParams]float64{f.Mu, f.Sigma, f.Scale}
}

// ProbePlotResult is the outcome of the Gaussian probability plot regression
type ProbePlotResult struct {
	Mu                    float64    `json:"mu"`
	MuError               float64    `json:"mu_error"`
	Sigma                 float64    `json:"sigma"`
	SigmaError            float64    `json:"sigma_error"`
	Gradient              float64    `json:"gradient"`
	GradientError         float64    `json:"gradient_error"`
	Intercept             float64    `json:"intercept"`
	InterceptError        float64    `json:"intercept_error"`
	Correlation           float64    `json:"correlation"`
	SumSquaredResiduals   float64    `json:"sum_squared_residuals"`
	OrderedData           []float64  `json:"ordered_data"`
	OrderStatisticMedians []float64  `json:"order_statistic_medians"`
	Residuals             []float64  `json:"residuals"`
	TValues               [2]float64 `json:"t_values"` // mu, sigma
	PValues               [2]float64 `json:"p_values"`
	DegreesOfFreedom      int        `json:"degrees_of_freedom"`
}

// CoefficientOfVariation returns |100·err/value|, NaN when value is zero
func CoefficientOfVariation(value, err float64) float64 {
	if value == 0 {
		return math.NaN()
	}
	return math.Abs(100 * err / value)
}
