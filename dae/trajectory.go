package dae

import (
	"fmt"
	"sort"

	dynamics "github.com/mechsym/go-dynamics"
	"gonum.org/v1/gonum/mat"
)

// Trajectory is the sampled solution of a DAE: an ordered sequence of
// (time, state) pairs spanning the solved interval.
type Trajectory struct {
	n      int
	times  []float64
	states []*mat.VecDense
}

var _ dynamics.Trajectory = (*Trajectory)(nil)

func (tr *Trajectory) append(t float64, y *mat.VecDense) {
	s := mat.NewVecDense(y.Len(), nil)
	s.CopyVec(y)
	tr.times = append(tr.times, t)
	tr.states = append(tr.states, s)
}

// Len returns the number of samples.
func (tr *Trajectory) Len() int { return len(tr.times) }

// Time returns the time of the i-th sample.
func (tr *Trajectory) Time(i int) float64 { return tr.times[i] }

// State returns a copy of the state vector of the i-th sample.
func (tr *Trajectory) State(i int) mat.Vector {
	out := mat.NewVecDense(tr.states[i].Len(), nil)
	out.CopyVec(tr.states[i])
	return out
}

// At returns the state linearly interpolated at time t.
// It returns error if t lies outside the sampled interval.
func (tr *Trajectory) At(t float64) (mat.Vector, error) {
	if len(tr.times) == 0 {
		return nil, fmt.Errorf("empty trajectory: %w", dynamics.ErrInvalidArgument)
	}
	if t < tr.times[0] || t > tr.times[len(tr.times)-1] {
		return nil, fmt.Errorf("time %g outside sampled interval [%g, %g]: %w",
			t, tr.times[0], tr.times[len(tr.times)-1], dynamics.ErrInvalidArgument)
	}

	i := sort.SearchFloat64s(tr.times, t)
	if i < len(tr.times) && tr.times[i] == t {
		return tr.State(i), nil
	}

	// interpolate between samples i-1 and i
	t0, t1 := tr.times[i-1], tr.times[i]
	w := (t - t0) / (t1 - t0)

	out := mat.NewVecDense(tr.n, nil)
	out.AddScaledVec(out, 1-w, tr.states[i-1])
	out.AddScaledVec(out, w, tr.states[i])
	return out, nil
}

// States returns the sampled states as a dense matrix with one row per
// sample and one column per state variable.
func (tr *Trajectory) States() *mat.Dense {
	out := mat.NewDense(len(tr.times), tr.n, nil)
	for i, s := range tr.states {
		for j := 0; j < tr.n; j++ {
			out.Set(i, j, s.AtVec(j))
		}
	}
	return out
}

// Times returns the sample times.
func (tr *Trajectory) Times() []float64 {
	out := make([]float64, len(tr.times))
	copy(out, tr.times)
	return out
}
