// Package simplex implements a Nelder–Mead minimizer and least-squares fitting of
// models that are handed in as strategies.
package simplex

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gaussfit/internal/errors"
)

// Nelder–Mead coefficients
const (
	reflection  = 1.0
	expansion   = 2.0
	contraction = 0.5
	shrinkage   = 0.5
)

// Settings control termination of the minimizer
type Settings struct {
	// MaxIterations caps the simplex iterations of each start.
	MaxIterations int
	// Tolerance is the bound on the standard deviation of the objective values
	// at the simplex vertices below which the simplex is considered converged.
	Tolerance float64
	// Restarts is the number of times the simplex is rebuilt around the best vertex
	// with the initial steps after converging.
	Restarts int
}

// DefaultSettings mirror the defaults of the configuration layer
func DefaultSettings() Settings {
	return Settings{MaxIterations: 3000, Tolerance: 1e-9, Restarts: 1}
}

// Objective is a function to minimize
type Objective func(x []float64) float64

// Result is the best vertex found
type Result struct {
	X          []float64
	F          float64
	Iterations int  // summed over every start, restarts included
	Converged  bool // whether the start that produced X converged
}

// Minimizer runs Nelder–Mead with fixed settings
type Minimizer struct {
	settings Settings
}

// NewMinimizer creates a minimizer, filling unset fields from DefaultSettings
func NewMinimizer(settings Settings) *Minimizer {
	def := DefaultSettings()
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = def.MaxIterations
	}
	if settings.Tolerance <= 0 {
		settings.Tolerance = def.Tolerance
	}
	if settings.Restarts < 0 {
		settings.Restarts = 0
	}
	return &Minimizer{settings: settings}
}

// Settings returns the effective settings
func (m *Minimizer) Settings() Settings {
	return m.settings
}

// Minimize searches from start with one initial step per coordinate.
// Hitting the iteration cap is not an error: the best vertex is returned with Converged false.
func (m *Minimizer) Minimize(f Objective, start, step []float64) (Result, error) {
	dim := len(start)
	if dim == 0 {
		return Result{}, errors.InvalidInput("simplex needs at least one parameter")
	}
	if len(step) != dim {
		return Result{}, errors.InvalidInput("simplex needs one step per parameter")
	}
	for i, s := range step {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return Result{}, errors.Newf(errors.CodeInvalidInput, "simplex step %d must be a finite non-zero number", i)
		}
	}

	best := Result{X: append([]float64(nil), start...)}
	best.F = f(best.X)
	iterations := 0
	for attempt := 0; attempt <= m.settings.Restarts; attempt++ {
		res := m.run(f, best.X, step)
		iterations += res.Iterations
		best = keepBetter(best, res)
		if !res.Converged {
			break
		}
	}
	best.Iterations = iterations
	return best, nil
}

// keepBetter returns the run with the lower objective value together with its own
// convergence flag. A tie goes to a converged run.
func keepBetter(best, res Result) Result {
	if less(res.F, best.F) || (res.F == best.F && res.Converged) {
		return res
	}
	return best
}

type vertex struct {
	x []float64
	f float64
}

func (m *Minimizer) run(f Objective, start, step []float64) Result {
	dim := len(start)
	simplex := make([]vertex, dim+1)
	simplex[0] = vertex{x: append([]float64(nil), start...)}
	for i := 0; i < dim; i++ {
		x := append([]float64(nil), start...)
		x[i] += step[i]
		simplex[i+1] = vertex{x: x}
	}
	for i := range simplex {
		simplex[i].f = f(simplex[i].x)
	}

	centroid := make([]float64, dim)
	values := make([]float64, dim+1)
	trial := func(from []float64, coef float64, toward []float64) vertex {
		// from + coef·(from - toward)
		x := make([]float64, dim)
		floats.SubTo(x, from, toward)
		floats.Scale(coef, x)
		floats.Add(x, from)
		return vertex{x: x, f: f(x)}
	}

	iter := 0
	for ; ; iter++ {
		sort.SliceStable(simplex, func(i, j int) bool { return less(simplex[i].f, simplex[j].f) })

		for i, v := range simplex {
			values[i] = v.f
		}
		if spread(values) < m.settings.Tolerance {
			return Result{X: simplex[0].x, F: simplex[0].f, Iterations: iter, Converged: true}
		}
		if iter >= m.settings.MaxIterations {
			return Result{X: simplex[0].x, F: simplex[0].f, Iterations: iter, Converged: false}
		}

		for j := range centroid {
			centroid[j] = 0
		}
		for _, v := range simplex[:dim] {
			floats.Add(centroid, v.x)
		}
		floats.Scale(1/float64(dim), centroid)

		worst := simplex[dim]
		reflected := trial(centroid, reflection, worst.x)

		switch {
		case less(reflected.f, simplex[0].f):
			expanded := trial(centroid, expansion, worst.x)
			if less(expanded.f, reflected.f) {
				simplex[dim] = expanded
			} else {
				simplex[dim] = reflected
			}
		case less(reflected.f, simplex[dim-1].f):
			simplex[dim] = reflected
		default:
			var contracted vertex
			if less(reflected.f, worst.f) {
				// outside contraction toward the reflected point
				contracted = trial(centroid, contraction, worst.x)
				if !less(reflected.f, contracted.f) {
					simplex[dim] = contracted
					continue
				}
			} else {
				// inside contraction toward the worst vertex
				contracted = trial(centroid, -contraction, worst.x)
				if less(contracted.f, worst.f) {
					simplex[dim] = contracted
					continue
				}
			}
			m.shrink(f, simplex)
		}
	}
}

// shrink pulls every vertex halfway toward the best one
func (m *Minimizer) shrink(f Objective, simplex []vertex) {
	bestX := simplex[0].x
	for i := 1; i < len(simplex); i++ {
		x := simplex[i].x
		floats.Sub(x, bestX)
		floats.Scale(shrinkage, x)
		floats.Add(x, bestX)
		simplex[i].f = f(x)
	}
}

// spread is the population standard deviation of the vertex values.
// Infinite or NaN values make the spread infinite so the search continues.
func spread(values []float64) float64 {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.Inf(1)
		}
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// less orders objective values with NaN treated as worst
func less(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}
