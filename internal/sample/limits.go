package sample

import (
	"gaussfit/domain/marks"
	"gaussfit/internal"
)

// Stage names the point in the pipeline at which limits are checked
type Stage string

const (
	StageEntered  Stage = "entered"
	StageRescaled Stage = "rescaled"
)

// LimitPolicy flags marks outside [0, 100] and optionally clamps them.
// Declining to clamp disables the policy for the rest of the run, so violations
// introduced later by rescaling are tolerated.
type LimitPolicy struct {
	clamp    bool
	disabled bool
	logger   *internal.Logger
}

// NewLimitPolicy creates a policy with the caller's clamp directive
func NewLimitPolicy(clamp bool, logger *internal.Logger) *LimitPolicy {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &LimitPolicy{clamp: clamp, logger: logger.With("Limits")}
}

// Enabled reports whether the policy still acts on violations
func (p *LimitPolicy) Enabled() bool {
	return !p.disabled
}

// Classify scans the present marks once
func Classify(values []float64) marks.Violation {
	var below, above bool
	for _, v := range values {
		if v < marks.MinMark {
			below = true
		}
		if v > marks.MaxMark {
			above = true
		}
	}
	switch {
	case below && above:
		return marks.ViolationBoth
	case below:
		return marks.ViolationBelowMin
	case above:
		return marks.ViolationAboveMax
	}
	return marks.ViolationNone
}

// Apply classifies the sample and, when the policy is enabled and clamping was requested,
// returns a copy with negative marks set to 0 and marks above 100 set to 100.
// The classification is returned even when the policy is disabled.
func (p *LimitPolicy) Apply(s marks.Sample, stage Stage) (marks.Sample, marks.Violation) {
	violation := Classify(s.Values())
	if violation == marks.ViolationNone || p.disabled {
		return s, violation
	}

	if !p.clamp {
		p.logger.Warn("%s marks contain %s values; clamping declined, limit checks disabled", stage, violation)
		p.disabled = true
		return s, violation
	}

	p.logger.Warn("%s marks contain %s values; clamping to [%g, %g]", stage, violation, marks.MinMark, marks.MaxMark)
	return s.MapValues(Clamp), violation
}

// Clamp limits one mark to [0, 100]
func Clamp(v float64) float64 {
	if v < marks.MinMark {
		return marks.MinMark
	}
	if v > marks.MaxMark {
		return marks.MaxMark
	}
	return v
}
