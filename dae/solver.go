package dae

import (
	"fmt"
	"math"

	dynamics "github.com/mechsym/go-dynamics"
	matutil "github.com/mechsym/go-dynamics/matrix"
	"github.com/mechsym/go-dynamics/symbolic"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// fdEps is the base finite difference step for the residual Jacobian.
const fdEps = 1.4901161193847656e-08

// solver integrates Mass(y)*dy/dt = f(y) with backward differentiation
// formulas. The first step (and every step after a step size change)
// uses implicit Euler; subsequent steps use second order BDF. Each step
// solves the implicit residual with a Newton iteration whose
// Jacobian is approximated by finite differences. A singular mass
// matrix is fine: algebraic equations contribute zero mass rows, and
// for a well-posed DAE the residual Jacobian stays regular.
type solver struct {
	mass symbolic.MatrixFunc
	f    symbolic.VectorFunc
	n    int
	cfg  Config
	log  *zap.Logger
}

func (s *solver) integrate(y0 []float64, duration float64) (*Trajectory, error) {
	traj := &Trajectory{n: s.n}
	traj.append(0, mat.NewVecDense(s.n, y0))

	yn := mat.NewVecDense(s.n, nil)
	yn.CopyVec(traj.states[0])
	var ynm1 *mat.VecDense

	t := 0.0
	h := s.cfg.InitialStep
	haveTwo := false
	steps := 0

	for t < duration*(1-1e-12) {
		if steps >= s.cfg.MaxSteps {
			return nil, fmt.Errorf("step limit %d reached at t=%g: %w", s.cfg.MaxSteps, t, dynamics.ErrIntegrationFailed)
		}
		hStep := math.Min(h, duration-t)
		clipped := hStep < h

		y, err := s.step(yn, ynm1, hStep, haveTwo && !clipped)
		if err != nil {
			// convergence failure: halve the step and retry
			h /= 2
			haveTwo = false
			if h < s.cfg.MinStep {
				return nil, fmt.Errorf("step size underflow at t=%g: %v: %w", t, err, dynamics.ErrIntegrationFailed)
			}
			s.log.Debug("step rejected", zap.Float64("t", t), zap.Float64("h", h))
			continue
		}

		t += hStep
		if t > duration*(1-1e-12) {
			// snap the final sample to the requested endpoint so that
			// sampling the trajectory at duration stays in range
			t = duration
		}
		steps++
		traj.append(t, y)
		ynm1 = yn
		yn = y
		haveTwo = !clipped
	}

	s.log.Debug("integration complete", zap.Float64("duration", duration), zap.Int("steps", steps))
	return traj, nil
}

// step advances the state by h using BDF2 when two equally spaced
// history points are available and implicit Euler otherwise.
func (s *solver) step(yn, ynm1 *mat.VecDense, h float64, bdf2 bool) (*mat.VecDense, error) {
	// The implicit step residual is
	//   R(Y) = M(Y)*(c0*Y - hist) - f(Y)
	// with c0 and hist from the BDF in use.
	var c0 float64
	hist := mat.NewVecDense(s.n, nil)
	if bdf2 && ynm1 != nil {
		c0 = 1.5 / h
		hist.AddScaledVec(hist, 2.0/h, yn)
		hist.AddScaledVec(hist, -0.5/h, ynm1)
	} else {
		c0 = 1.0 / h
		hist.AddScaledVec(hist, 1.0/h, yn)
	}

	residual := func(y mat.Vector) (mat.Vector, error) {
		raw := make([]float64, s.n)
		for i := range raw {
			raw[i] = y.AtVec(i)
		}
		m, err := s.mass(raw)
		if err != nil {
			return nil, err
		}
		fv, err := s.f(raw)
		if err != nil {
			return nil, err
		}
		dy := mat.NewVecDense(s.n, nil)
		dy.AddScaledVec(dy, c0, y)
		dy.SubVec(dy, hist)

		r := mat.NewVecDense(s.n, nil)
		r.MulVec(m, dy)
		r.SubVec(r, fv)
		return r, nil
	}

	y := mat.NewVecDense(s.n, nil)
	y.CopyVec(yn)

	for iter := 0; iter < s.cfg.MaxNewton; iter++ {
		r, err := residual(y)
		if err != nil {
			return nil, err
		}
		if mat.Norm(r, math.Inf(1)) <= s.cfg.Tolerance {
			return y, nil
		}

		jac, err := matutil.NumJacobian(residual, y, fdEps)
		if err != nil {
			return nil, err
		}

		var lu mat.LU
		lu.Factorize(jac)
		dy := mat.NewVecDense(s.n, nil)
		if err := lu.SolveVecTo(dy, false, r); err != nil {
			return nil, fmt.Errorf("singular residual jacobian: %v", err)
		}
		y.SubVec(y, dy)
	}
	return nil, fmt.Errorf("newton did not converge in %d iterations", s.cfg.MaxNewton)
}
