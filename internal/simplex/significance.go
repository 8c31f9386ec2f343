package simplex

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TTest returns estimate/error and the two-sided Student-t probability P > |t|
func TTest(estimate, stdErr float64, dof int) (t, p float64) {
	if dof <= 0 || math.IsNaN(stdErr) || math.IsNaN(estimate) {
		return math.NaN(), math.NaN()
	}
	if stdErr == 0 {
		if estimate == 0 {
			return math.NaN(), math.NaN()
		}
		return math.Copysign(math.Inf(1), estimate), 0
	}
	t = estimate / stdErr
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	p = 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	return t, p
}
