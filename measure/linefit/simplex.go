package linefit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	// simplexStep is the relative displacement of each initial vertex.
	simplexStep = 0.05
	// simplexZeroStep displaces coordinates that start at zero.
	simplexZeroStep = 0.00025
	// maxRestarts bounds the number of fresh simplices around the optimum.
	maxRestarts = 3
	// convergenceWindow is the number of major iterations, per vertex, over
	// which the best point must stay within tolerance.
	convergenceWindow = 5
)

type simplexResult struct {
	X           []float64
	F           float64
	Iterations  int
	Evaluations int
	Converged   bool
	Status      optimize.Status
}

// spreadConverger reports convergence once the best vertex has moved less
// than xtol in every coordinate and ftol in value over the last window
// major iterations.
type spreadConverger struct {
	xtol, ftol float64
	window     int
	xs         [][]float64
	fs         []float64
	next       int
	filled     int
}

func (c *spreadConverger) Init(dim int) {
	c.window = convergenceWindow * (dim + 1)
	c.xs = make([][]float64, c.window)
	for i := range c.xs {
		c.xs[i] = make([]float64, dim)
	}
	c.fs = make([]float64, c.window)
	c.next, c.filled = 0, 0
}

func (c *spreadConverger) Converged(loc *optimize.Location) optimize.Status {
	copy(c.xs[c.next], loc.X)
	c.fs[c.next] = loc.F
	c.next = (c.next + 1) % c.window
	if c.filled < c.window {
		c.filled++
		return optimize.NotTerminated
	}
	for i := range c.xs {
		if math.Abs(c.fs[i]-loc.F) > c.ftol {
			return optimize.NotTerminated
		}
		if floats.Distance(c.xs[i], loc.X, math.Inf(1)) > c.xtol {
			return optimize.NotTerminated
		}
	}
	return optimize.FunctionConvergence
}

// initialSimplex places one vertex at x0 and displaces each coordinate in
// turn by 5%, or by 0.00025 when it is zero.
func initialSimplex(x0 []float64, f0 float64, f func([]float64) float64) ([][]float64, []float64) {
	n := len(x0)
	vertices := make([][]float64, n+1)
	values := make([]float64, n+1)
	vertices[0] = append([]float64(nil), x0...)
	values[0] = f0
	for i := 0; i < n; i++ {
		v := append([]float64(nil), x0...)
		if v[i] != 0 {
			v[i] *= 1 + simplexStep
		} else {
			v[i] = simplexZeroStep
		}
		vertices[i+1] = v
		values[i+1] = f(v)
	}
	return vertices, values
}

// minimizeSimplex runs Nelder-Mead from x0 with value f0. A pass that
// converges is restarted from a fresh simplex around its optimum until a
// pass improves the objective by no more than ftol. maxIter bounds the
// total iterations and function evaluations over all passes.
func minimizeSimplex(ctx context.Context, f func([]float64) float64, x0 []float64, f0, xtol, ftol float64, maxIter int) (simplexResult, error) {
	evaluations := 0
	obj := func(x []float64) float64 {
		evaluations++
		v := f(x)
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}
	problem := optimize.Problem{
		Func: obj,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}

	res := simplexResult{X: append([]float64(nil), x0...), F: f0, Status: optimize.NotTerminated}
	for pass := 0; pass < maxRestarts; pass++ {
		remaining := maxIter - res.Iterations
		if remaining <= 0 || maxIter-evaluations <= len(x0) {
			res.Status = optimize.IterationLimit
			res.Converged = false
			break
		}

		vertices, values := initialSimplex(res.X, res.F, obj)
		for i, v := range values {
			if v < res.F {
				res.X = append(res.X[:0], vertices[i]...)
				res.F = v
			}
		}
		method := &optimize.NelderMead{
			InitialVertices: vertices,
			InitialValues:   values,
			Reflection:      1,
			Expansion:       2,
			Contraction:     0.5,
			Shrink:          0.5,
		}
		settings := &optimize.Settings{
			Converger:       &spreadConverger{xtol: xtol, ftol: ftol},
			MajorIterations: remaining,
			FuncEvaluations: maxIter - evaluations,
		}

		out, err := optimize.Minimize(problem, res.X, settings, method)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			if out == nil {
				return res, err
			}
		}
		res.Iterations += out.Stats.MajorIterations
		res.Status = out.Status
		res.Converged = out.Status == optimize.FunctionConvergence

		improved := res.F - out.F
		if out.F < res.F {
			res.X = append(res.X[:0], out.X...)
			res.F = out.F
		}
		if !res.Converged || pass > 0 && improved <= ftol {
			break
		}
	}
	res.Evaluations = evaluations
	return res, nil
}
