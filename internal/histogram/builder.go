// Package histogram bins a mark sample for the simplex fit and for plotting.
package histogram

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"gaussfit/domain/marks"
	"gaussfit/internal"
	"gaussfit/internal/errors"
)

// MinSuggestedWidth is the floor applied to the suggested bin width
const MinSuggestedWidth = 2.0

// MaxBins bounds the bin count a requested width may produce
const MaxBins = 10000

// Guard factors applied to the outer edges while counting
const (
	lowerGuard = 0.8
	upperGuard = 1.2
)

// SuggestWidth returns rint(2·sd/√n), never below MinSuggestedWidth.
// The caller decides the width actually used.
func SuggestWidth(stdDev float64, n int) float64 {
	if n <= 0 || math.IsNaN(stdDev) || math.IsInf(stdDev, 0) {
		return MinSuggestedWidth
	}
	w := math.RoundToEven(2 * stdDev / math.Sqrt(float64(n)))
	if w < MinSuggestedWidth {
		w = MinSuggestedWidth
	}
	return w
}

// Builder distributes marks into contiguous bins
type Builder struct {
	logger *internal.Logger
}

// NewBuilder creates a histogram builder
func NewBuilder(logger *internal.Logger) *Builder {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Builder{logger: logger.With("Histogram")}
}

// Build bins values with the requested width. The bin count is round(range/width) and
// the width is then recomputed so the bins tile [min, max] exactly. A frequency total
// that differs from len(values) is recorded on the histogram and logged, not returned.
// A width that would need more than MaxBins bins is rejected as invalid input.
func (b *Builder) Build(values []float64, width float64) (*marks.Histogram, error) {
	n := len(values)
	if n == 0 {
		return nil, errors.InsufficientDataError(1, 0, "histogram")
	}
	if !(width > 0) || math.IsInf(width, 0) {
		return nil, errors.InvalidInput("histogram bin width must be a positive number")
	}

	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo

	var starts, ends []float64
	usedWidth := width
	if span == 0 {
		// all marks equal: one bin of the requested width centred on the mark
		starts = []float64{lo - width/2}
		ends = []float64{lo + width/2}
	} else {
		count := math.Floor(span/width + 0.5)
		if !(count <= MaxBins) {
			return nil, errors.Newf(errors.CodeInvalidInput,
				"histogram bin width %g is too small for marks spanning %g: more than %d bins", width, span, MaxBins)
		}
		nBins := int(count)
		if nBins < 1 {
			nBins = 1
		}
		usedWidth = span / float64(nBins)
		starts = make([]float64, nBins)
		ends = make([]float64, nBins)
		starts[0] = lo
		ends[0] = lo + usedWidth
		for i := 1; i < nBins; i++ {
			starts[i] = ends[i-1]
			ends[i] = starts[i] + usedWidth
		}
	}
	nBins := len(starts)

	// Widen the outer edges while counting so the extreme marks cannot fall outside
	// through rounding; the true edges are reported.
	countStarts := append([]float64(nil), starts...)
	countEnds := append([]float64(nil), ends...)
	countStarts[0] = widenDown(starts[0], usedWidth)
	countEnds[nBins-1] = widenUp(ends[nBins-1], usedWidth)

	h := &marks.Histogram{
		Bins:           make([]marks.Bin, nBins),
		Width:          usedWidth,
		RequestedWidth: width,
		Expected:       n,
	}
	for i := range h.Bins {
		h.Bins[i] = marks.Bin{
			Lower:  starts[i],
			Upper:  ends[i],
			Center: (starts[i] + ends[i]) / 2,
		}
	}

	for _, v := range values {
		i := binIndex(v, starts, ends, usedWidth)
		if v >= countStarts[i] && v < countEnds[i] {
			h.Bins[i].Frequency++
			h.Counted++
		}
	}

	if h.Counted != h.Expected {
		h.Integrity = errors.DataIntegrityWarning(h.Counted, h.Expected)
		b.logger.Warn("%v", h.Integrity)
	}

	h.Polyline = Polyline(h.Bins)
	h.PeakCenter, h.PeakFrequency = peak(h.Bins)

	b.logger.Debug("built %d bins of width %.4g from %d marks (requested width %.4g)", nBins, usedWidth, n, width)
	return h, nil
}

// binIndex locates the bin of v from its offset to the first edge, then corrects
// for rounding against the neighbouring edges
func binIndex(v float64, starts, ends []float64, width float64) int {
	last := len(starts) - 1
	i := int(math.Floor((v - starts[0]) / width))
	if i < 0 || math.IsNaN(v) {
		i = 0
	}
	if i > last {
		i = last
	}
	if i > 0 && v < starts[i] {
		i--
	}
	if i < last && v >= ends[i] {
		i++
	}
	return i
}

// Polyline returns the step outline of the bins: for every bin the points
// (lower, 0), (lower, f), (upper, f), then a closing (lastUpper, 0).
func Polyline(bins []marks.Bin) []marks.Point {
	if len(bins) == 0 {
		return nil
	}
	points := make([]marks.Point, 0, 3*len(bins)+1)
	for _, b := range bins {
		f := float64(b.Frequency)
		points = append(points,
			marks.Point{X: b.Lower, Y: 0},
			marks.Point{X: b.Lower, Y: f},
			marks.Point{X: b.Upper, Y: f},
		)
	}
	points = append(points, marks.Point{X: bins[len(bins)-1].Upper, Y: 0})
	return points
}

// peak returns the centre and frequency of the first bin with the highest frequency
func peak(bins []marks.Bin) (float64, int) {
	best := 0
	for i, b := range bins {
		if b.Frequency > bins[best].Frequency {
			best = i
		}
	}
	return bins[best].Center, bins[best].Frequency
}

// widenDown scales a positive lower edge by 0.8; other edges move down by the
// same relative amount of max(|edge|, width).
func widenDown(edge, width float64) float64 {
	if edge > 0 && edge >= width {
		return edge * lowerGuard
	}
	return edge - (1-lowerGuard)*math.Max(math.Abs(edge), width)
}

// widenUp scales a positive upper edge by 1.2; other edges move up by the
// same relative amount of max(|edge|, width).
func widenUp(edge, width float64) float64 {
	if edge > 0 && edge >= width {
		return edge * upperGuard
	}
	return edge + (upperGuard-1)*math.Max(math.Abs(edge), width)
}
