package histogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaussfit/internal"
	"gaussfit/internal/errors"
)

func newTestBuilder() *Builder {
	return NewBuilder(internal.Discard())
}

func TestSuggestWidth(t *testing.T) {
	// sd of 40..80 step 10 is √250; 2·15.81/√5 = 14.14
	assert.Equal(t, 14.0, SuggestWidth(math.Sqrt(250), 5))
	assert.Equal(t, MinSuggestedWidth, SuggestWidth(1, 100), "floor applies")
	assert.Equal(t, MinSuggestedWidth, SuggestWidth(math.NaN(), 1))
	assert.Equal(t, MinSuggestedWidth, SuggestWidth(10, 0))
}

func TestBuildFiveMarks(t *testing.T) {
	h, err := newTestBuilder().Build([]float64{40, 50, 60, 70, 80}, 14)
	require.NoError(t, err)

	require.Len(t, h.Bins, 3)
	assert.InDelta(t, 40.0/3, h.Width, 1e-12)
	assert.Equal(t, 14.0, h.RequestedWidth)
	assert.Equal(t, []float64{2, 1, 2}, h.Frequencies())
	assert.Equal(t, 40.0, h.Bins[0].Lower)
	assert.InDelta(t, 80.0, h.Bins[2].Upper, 1e-12)
	assert.True(t, h.Consistent())
	assert.Nil(t, h.Integrity)

	assert.InDelta(t, 40+20.0/3, h.PeakCenter, 1e-12, "first of the tied peaks")
	assert.Equal(t, 2, h.PeakFrequency)
}

func TestBuildBinsAreContiguous(t *testing.T) {
	values := []float64{3, 17.5, 22, 22, 41, 56, 58, 63, 70, 71, 88, 99}
	h, err := newTestBuilder().Build(values, 9)
	require.NoError(t, err)

	for i := 1; i < len(h.Bins); i++ {
		assert.Equal(t, h.Bins[i-1].Upper, h.Bins[i].Lower)
		assert.Greater(t, h.Bins[i].Center, h.Bins[i-1].Center)
	}
	total := 0
	for _, b := range h.Bins {
		total += b.Frequency
	}
	assert.Equal(t, len(values), total)
	assert.Equal(t, len(values), h.Counted)
}

func TestBuildNegativeAndZeroEdges(t *testing.T) {
	values := []float64{-12, -3, 0, 4, 9}
	h, err := newTestBuilder().Build(values, 5)
	require.NoError(t, err)
	assert.True(t, h.Consistent())

	zeroEdge, err := newTestBuilder().Build([]float64{0, 1, 2, 10}, 2)
	require.NoError(t, err)
	assert.True(t, zeroEdge.Consistent())
}

func TestBuildSingleValueSample(t *testing.T) {
	h, err := newTestBuilder().Build([]float64{55, 55, 55}, 4)
	require.NoError(t, err)

	require.Len(t, h.Bins, 1)
	assert.Equal(t, 53.0, h.Bins[0].Lower)
	assert.Equal(t, 57.0, h.Bins[0].Upper)
	assert.Equal(t, 3, h.Bins[0].Frequency)
	assert.Equal(t, 55.0, h.PeakCenter)
}

func TestBuildWidthLargerThanRange(t *testing.T) {
	h, err := newTestBuilder().Build([]float64{10, 12}, 50)
	require.NoError(t, err)
	require.Len(t, h.Bins, 1)
	assert.Equal(t, 2.0, h.Width)
	assert.Equal(t, 2, h.Bins[0].Frequency)
}

func TestBuildErrors(t *testing.T) {
	_, err := newTestBuilder().Build(nil, 5)
	assert.True(t, errors.IsCode(err, errors.CodeInsufficientData))

	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err = newTestBuilder().Build([]float64{1, 2}, w)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidInput), "width %v", w)
	}
}

func TestBuildRejectsTooManyBins(t *testing.T) {
	for _, w := range []float64{1e-9, 1e-300, 100.0 / (MaxBins + 1)} {
		h, err := newTestBuilder().Build([]float64{0, 50, 100}, w)
		assert.Nil(t, h, "width %g", w)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidInput), "width %g: %v", w, err)
	}
}

func TestBuildAtBinLimit(t *testing.T) {
	values := make([]float64, 0, 2001)
	for i := 0; i <= 2000; i++ {
		values = append(values, float64(i)*MaxBins/2000)
	}

	h, err := newTestBuilder().Build(values, 1)
	require.NoError(t, err)
	require.Len(t, h.Bins, MaxBins)
	assert.NoError(t, h.Integrity)
	assert.Equal(t, len(values), h.Counted)

	total := 0
	for i, b := range h.Bins {
		total += b.Frequency
		if b.Frequency > 0 && i < MaxBins-1 {
			// every mark below the maximum lands in the bin starting at it
			assert.Equal(t, 0.0, math.Mod(b.Lower, 5), "bin %d", i)
		}
	}
	assert.Equal(t, len(values), total)
	assert.Equal(t, 1, h.Bins[MaxBins-1].Frequency, "the maximum joins the last bin")
	assert.Equal(t, 1, h.Bins[MaxBins-5].Frequency)
}

func TestPolyline(t *testing.T) {
	h, err := newTestBuilder().Build([]float64{40, 50, 60, 70, 80}, 14)
	require.NoError(t, err)

	p := h.Polyline
	require.Len(t, p, 3*len(h.Bins)+1)
	assert.Equal(t, 40.0, p[0].X)
	assert.Equal(t, 0.0, p[0].Y)
	assert.Equal(t, 40.0, p[1].X)
	assert.Equal(t, 2.0, p[1].Y)
	assert.Equal(t, h.Bins[0].Upper, p[2].X)
	assert.Equal(t, 2.0, p[2].Y)

	last := p[len(p)-1]
	assert.Equal(t, h.Bins[len(h.Bins)-1].Upper, last.X)
	assert.Equal(t, 0.0, last.Y)

	assert.Nil(t, Polyline(nil))
}
