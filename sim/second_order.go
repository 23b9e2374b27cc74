// Package sim integrates compiled acceleration functions forward in
// time and plots the resulting trajectories. It is a convenience layer
// for explicit simulation of non-stiff systems; stiff or algebraically
// constrained systems belong in the dae package.
package sim

import (
	"fmt"
	"sort"

	dynamics "github.com/mechsym/go-dynamics"
	"gonum.org/v1/gonum/mat"
)

// SecondOrder propagates a second order system ddq = accel(q, dq, u)
// as first order state [q; dq] with classical fourth order Runge-Kutta.
type SecondOrder struct {
	accel dynamics.AccelFunc
	n     int
}

// NewSecondOrder creates a propagator for the n degree of freedom
// acceleration function accel.
// It returns error if accel is nil or n is not positive.
func NewSecondOrder(accel dynamics.AccelFunc, n int) (*SecondOrder, error) {
	if accel == nil {
		return nil, fmt.Errorf("nil acceleration function: %w", dynamics.ErrInvalidArgument)
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid dimension %d: %w", n, dynamics.ErrInvalidArgument)
	}
	return &SecondOrder{accel: accel, n: n}, nil
}

// Propagate advances (q, dq) by the timestep dt under the constant
// input u and returns the next configuration and velocity.
func (so *SecondOrder) Propagate(q, dq, u mat.Vector, dt float64) (mat.Vector, mat.Vector, error) {
	if q.Len() != so.n || dq.Len() != so.n {
		return nil, nil, fmt.Errorf("expected %d-vectors, got q=%d dq=%d: %w",
			so.n, q.Len(), dq.Len(), dynamics.ErrDimensionMismatch)
	}

	// classical RK4 on the stacked state [q; dq]
	k1q, k1v, err := so.deriv(q, dq, u)
	if err != nil {
		return nil, nil, err
	}
	k2q, k2v, err := so.deriv(addScaled(q, dt/2, k1q), addScaled(dq, dt/2, k1v), u)
	if err != nil {
		return nil, nil, err
	}
	k3q, k3v, err := so.deriv(addScaled(q, dt/2, k2q), addScaled(dq, dt/2, k2v), u)
	if err != nil {
		return nil, nil, err
	}
	k4q, k4v, err := so.deriv(addScaled(q, dt, k3q), addScaled(dq, dt, k3v), u)
	if err != nil {
		return nil, nil, err
	}

	qNext := rk4Combine(q, k1q, k2q, k3q, k4q, dt)
	dqNext := rk4Combine(dq, k1v, k2v, k3v, k4v, dt)
	return qNext, dqNext, nil
}

// deriv returns the state derivative (dq, ddq) at (q, dq).
func (so *SecondOrder) deriv(q, dq, u mat.Vector) (mat.Vector, mat.Vector, error) {
	ddq, err := so.accel(q, dq, u)
	if err != nil {
		return nil, nil, err
	}
	return dq, ddq, nil
}

// Simulate integrates the system from (q0, dq0) under constant input u
// over [0, duration] with fixed step dt and returns the sampled record.
// The record state is the stacked vector [q; dq].
func (so *SecondOrder) Simulate(q0, dq0, u mat.Vector, duration, dt float64) (*Record, error) {
	if duration <= 0 || dt <= 0 || dt > duration {
		return nil, fmt.Errorf("invalid duration %g or step %g: %w", duration, dt, dynamics.ErrInvalidArgument)
	}

	rec := &Record{n: 2 * so.n}
	q, dq := q0, dq0
	rec.push(0, q, dq)

	for t := 0.0; t < duration*(1-1e-12); {
		h := dt
		if t+h > duration {
			h = duration - t
		}
		var err error
		q, dq, err = so.Propagate(q, dq, u, h)
		if err != nil {
			return nil, fmt.Errorf("propagation failed at t=%g: %w", t, err)
		}
		t += h
		if t > duration*(1-1e-12) {
			// snap the final sample to the requested endpoint
			t = duration
		}
		rec.push(t, q, dq)
	}
	return rec, nil
}

func addScaled(v mat.Vector, s float64, d mat.Vector) mat.Vector {
	out := mat.NewVecDense(v.Len(), nil)
	out.AddScaledVec(v, s, d)
	return out
}

func rk4Combine(x, k1, k2, k3, k4 mat.Vector, dt float64) mat.Vector {
	out := mat.NewVecDense(x.Len(), nil)
	out.AddScaledVec(out, dt/6, k1)
	out.AddScaledVec(out, dt/3, k2)
	out.AddScaledVec(out, dt/3, k3)
	out.AddScaledVec(out, dt/6, k4)
	out.AddVec(out, x)
	return out
}

// Record is a sampled simulation trajectory.
type Record struct {
	n      int
	times  []float64
	states []*mat.VecDense
}

var _ dynamics.Trajectory = (*Record)(nil)

func (r *Record) push(t float64, q, dq mat.Vector) {
	s := mat.NewVecDense(r.n, nil)
	for i := 0; i < q.Len(); i++ {
		s.SetVec(i, q.AtVec(i))
		s.SetVec(q.Len()+i, dq.AtVec(i))
	}
	r.times = append(r.times, t)
	r.states = append(r.states, s)
}

// Len returns the number of samples.
func (r *Record) Len() int { return len(r.times) }

// Time returns the time of the i-th sample.
func (r *Record) Time(i int) float64 { return r.times[i] }

// State returns a copy of the stacked state of the i-th sample.
func (r *Record) State(i int) mat.Vector {
	out := mat.NewVecDense(r.n, nil)
	out.CopyVec(r.states[i])
	return out
}

// At returns the state linearly interpolated at time t.
// It returns error if t lies outside the sampled interval.
func (r *Record) At(t float64) (mat.Vector, error) {
	if len(r.times) == 0 {
		return nil, fmt.Errorf("empty record: %w", dynamics.ErrInvalidArgument)
	}
	if t < r.times[0] || t > r.times[len(r.times)-1] {
		return nil, fmt.Errorf("time %g outside sampled interval [%g, %g]: %w",
			t, r.times[0], r.times[len(r.times)-1], dynamics.ErrInvalidArgument)
	}
	i := sort.SearchFloat64s(r.times, t)
	if i < len(r.times) && r.times[i] == t {
		return r.State(i), nil
	}
	t0, t1 := r.times[i-1], r.times[i]
	w := (t - t0) / (t1 - t0)
	out := mat.NewVecDense(r.n, nil)
	out.AddScaledVec(out, 1-w, r.states[i-1])
	out.AddScaledVec(out, w, r.states[i])
	return out, nil
}
