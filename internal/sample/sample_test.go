package sample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaussfit/domain/marks"
	"gaussfit/internal"
	"gaussfit/internal/errors"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("10, 20;30:40\t50  60")
	assert.Equal(t, []string{"10", "20", "30", "40", "50", "60"}, tokens)
	assert.Empty(t, Tokenize(" ,;: "))
}

func TestParseDelimitedLine(t *testing.T) {
	s, err := Parse("Physics 2024\n10, abc, 30\n")
	require.NoError(t, err)

	assert.Equal(t, "Physics 2024", s.Title)
	assert.Equal(t, []float64{10, 30}, s.Values())
	assert.Equal(t, 3, s.Total())
	assert.Equal(t, 2, s.PresentCount())
	assert.Equal(t, 1, s.AbsentCount())

	missing := s.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, 1, missing[0].Index)
	assert.Equal(t, "abc", missing[0].Text)
}

func TestParseOnePerLine(t *testing.T) {
	s, err := Parse("\n\nChemistry\n45\n\n72.5\nabsent\n88\n\n")
	require.NoError(t, err)

	assert.Equal(t, "Chemistry", s.Title)
	assert.Equal(t, []float64{45, 72.5, 88}, s.Values())

	missing := s.Missing()
	require.Len(t, missing, 2)
	assert.Equal(t, 1, missing[0].Index, "blank line inside the data is a missing entry")
	assert.Equal(t, "", missing[0].Text)
	assert.Equal(t, 3, missing[1].Index)
	assert.Equal(t, "absent", missing[1].Text)
}

func TestParseRejectsEmptyInput(t *testing.T) {
	for _, text := range []string{"", "Title only\n", "\n\n"} {
		_, err := Parse(text)
		require.Error(t, err, "input %q", text)
		assert.True(t, errors.IsCode(err, errors.CodeParse))
	}
}

func TestParseNonFiniteTokensAreMissing(t *testing.T) {
	s, err := ParseTokens("t", []string{"NaN", "Inf", "-inf", "50"})
	require.NoError(t, err)
	assert.Equal(t, []float64{50}, s.Values())
	assert.Equal(t, 3, s.AbsentCount())
}

func TestLimitPolicyClamps(t *testing.T) {
	s, err := ParseTokens("t", []string{"-5", "50", "120", "x"})
	require.NoError(t, err)

	policy := NewLimitPolicy(true, internal.Discard())
	clamped, violation := policy.Apply(s, StageEntered)

	assert.Equal(t, marks.ViolationBoth, violation)
	assert.Equal(t, []float64{0, 50, 100}, clamped.Values())
	assert.Equal(t, []float64{-5, 50, 120}, s.Values(), "input sample must be left untouched")
	assert.Equal(t, 1, clamped.AbsentCount())
	assert.True(t, policy.Enabled())
}

func TestLimitPolicyDeclinedDisablesLaterChecks(t *testing.T) {
	s, err := ParseTokens("t", []string{"110", "50"})
	require.NoError(t, err)

	policy := NewLimitPolicy(false, internal.Discard())
	out, violation := policy.Apply(s, StageEntered)
	assert.Equal(t, marks.ViolationAboveMax, violation)
	assert.Equal(t, s.Values(), out.Values())
	assert.False(t, policy.Enabled())

	below, err := ParseTokens("t", []string{"-10"})
	require.NoError(t, err)
	out, violation = policy.Apply(below, StageRescaled)
	assert.Equal(t, marks.ViolationBelowMin, violation, "classification is still reported")
	assert.Equal(t, []float64{-10}, out.Values())
}

func TestLimitPolicyNoViolation(t *testing.T) {
	s, err := ParseTokens("t", []string{"0", "100", "55"})
	require.NoError(t, err)

	policy := NewLimitPolicy(false, internal.Discard())
	_, violation := policy.Apply(s, StageEntered)
	assert.Equal(t, marks.ViolationNone, violation)
	assert.True(t, policy.Enabled())
}

func TestRescaleMultiplicative(t *testing.T) {
	s, err := ParseTokens("t", []string{"40", "-", "50", "60"})
	require.NoError(t, err)

	out, err := Rescale(s, marks.RescaleSpec{Mode: marks.RescaleMultiplicative, Factor: 1.5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{60, 75, 90}, out.Values(), 1e-12)
	assert.Equal(t, 1, out.AbsentCount(), "missing entries keep their place")
	assert.Equal(t, 1, out.Missing()[0].Index)
}

func TestRescaleAdditive(t *testing.T) {
	s, err := ParseTokens("t", []string{"40", "50"})
	require.NoError(t, err)

	out, err := Rescale(s, marks.RescaleSpec{Mode: marks.RescaleAdditive, Factor: -5})
	require.NoError(t, err)
	assert.Equal(t, []float64{35, 45}, out.Values())
}

func TestRescaleToTargetMeanAndSD(t *testing.T) {
	s, err := ParseTokens("t", []string{"40", "50", "60", "70", "80"})
	require.NoError(t, err)

	out, err := Rescale(s, marks.RescaleSpec{Mode: marks.RescaleTargetMeanSD, Mean: 65, SD: 10})
	require.NoError(t, err)

	values := out.Values()
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	assert.InDelta(t, 65, mean, 1e-9)
	assert.InDelta(t, 10, math.Sqrt(ss/float64(len(values)-1)), 1e-9)
}

func TestRescaleToTargetNeedsSpread(t *testing.T) {
	single, err := ParseTokens("t", []string{"50"})
	require.NoError(t, err)
	_, err = Rescale(single, marks.RescaleSpec{Mode: marks.RescaleTargetMeanSD, Mean: 60, SD: 10})
	assert.True(t, errors.IsCode(err, errors.CodeInsufficientData))

	flat, err := ParseTokens("t", []string{"50", "50", "50"})
	require.NoError(t, err)
	_, err = Rescale(flat, marks.RescaleSpec{Mode: marks.RescaleTargetMeanSD, Mean: 60, SD: 10})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidInput))
}

func TestRescaleNoneReturnsSample(t *testing.T) {
	s, err := ParseTokens("t", []string{"40"})
	require.NoError(t, err)
	out, err := Rescale(s, marks.RescaleSpec{Mode: marks.RescaleNone})
	require.NoError(t, err)
	assert.Equal(t, s, out)
}
