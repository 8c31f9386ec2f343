package sample

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"gaussfit/domain/marks"
	"gaussfit/internal/errors"
)

// Rescale applies a linear transform to every present mark and returns the new sample.
// Limits are not checked here; the caller re-runs its LimitPolicy afterwards.
func Rescale(s marks.Sample, spec marks.RescaleSpec) (marks.Sample, error) {
	switch spec.Mode {
	case "", marks.RescaleNone:
		return s, nil
	case marks.RescaleMultiplicative:
		k := spec.Factor
		return s.MapValues(func(v float64) float64 { return v * k }), nil
	case marks.RescaleAdditive:
		k := spec.Factor
		return s.MapValues(func(v float64) float64 { return v + k }), nil
	case marks.RescaleTargetMeanSD:
		return rescaleToTarget(s, spec.Mean, spec.SD)
	}
	return s, errors.InvalidInput(fmt.Sprintf("unknown rescale mode %q", spec.Mode))
}

// rescaleToTarget maps the current mean and standard deviation onto the requested ones:
// new = targetMean + (old - mean) * targetSD / sd.
func rescaleToTarget(s marks.Sample, targetMean, targetSD float64) (marks.Sample, error) {
	values := s.Values()
	if len(values) < 2 {
		return s, errors.InsufficientDataError(2, len(values), "rescaling to a new mean and standard deviation")
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return s, errors.Wrap(err, "failed to compute mean for rescaling")
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return s, errors.Wrap(err, "failed to compute standard deviation for rescaling")
	}
	if sd == 0 || math.IsNaN(sd) {
		return s, errors.InvalidInput("cannot rescale marks with zero standard deviation to a new standard deviation")
	}

	ratio := targetSD / sd
	return s.MapValues(func(v float64) float64 {
		return targetMean + (v-mean)*ratio
	}), nil
}
