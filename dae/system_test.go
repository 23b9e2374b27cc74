package dae

import (
	"math"
	"testing"

	dynamics "github.com/mechsym/go-dynamics"
	"github.com/mechsym/go-dynamics/symbolic"
	"github.com/stretchr/testify/assert"
)

func TestAddVariable(t *testing.T) {
	assert := assert.New(t)

	s := NewSystem()
	y, dy, err := s.AddVariable("a", 1.5)
	assert.NoError(err)
	assert.NotNil(y)
	assert.NotNil(dy)
	assert.Equal([]float64{1.5}, s.InitialState())

	_, _, err = s.AddVariable("b", -2)
	assert.NoError(err)
	assert.Len(s.Vars(), 2)
	assert.Len(s.Derivatives(), 2)
	assert.Equal([]float64{1.5, -2}, s.InitialState())
}

func TestAddVariableInvalid(t *testing.T) {
	assert := assert.New(t)

	s := NewSystem()
	for _, name := range []string{"", "1a", "a b"} {
		_, _, err := s.AddVariable(name, 0)
		assert.Error(err)
		assert.ErrorIs(err, dynamics.ErrInvalidArgument)
	}

	_, _, err := s.AddVariable("a", 0)
	assert.NoError(err)
	_, _, err = s.AddVariable("a", 1)
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrInvalidArgument)

	// the name rule is shared with the lagrange assembler: any letter,
	// ASCII or not, starts a valid name
	_, _, err = s.AddVariable("θ", 0)
	assert.NoError(err)
}

func TestSolveExponentialDecay(t *testing.T) {
	assert := assert.New(t)

	// y' = -y, y(0) = 1
	s := NewSystem()
	y, dy, err := s.AddVariable("y", 1.0)
	assert.NoError(err)
	_, err = s.AddEquation(dy, symbolic.Neg(y))
	assert.NoError(err)

	traj, err := s.Solve(1.0)
	assert.NoError(err)
	assert.NotNil(traj)
	assert.Same(traj, s.Trajectory())

	assert.InDelta(0.0, traj.Time(0), 1e-15)
	assert.InDelta(1.0, traj.Time(traj.Len()-1), 1e-12)

	for _, tt := range []float64{0.25, 0.5, 1.0} {
		st, err := traj.At(tt)
		assert.NoError(err)
		assert.InDelta(math.Exp(-tt), st.AtVec(0), 1e-4)
	}
}

func TestSolveMixedDAE(t *testing.T) {
	assert := assert.New(t)

	// y1' = y2 with the algebraic coupling y2 = y1: y1 grows as e^t
	s := NewSystem()
	y1, dy1, err := s.AddVariable("y1", 1.0)
	assert.NoError(err)
	y2, _, err := s.AddVariable("y2", 1.0)
	assert.NoError(err)

	_, err = s.AddEquation(dy1, y2)
	assert.NoError(err)
	_, err = s.AddEquation(y1, y2)
	assert.NoError(err)

	traj, err := s.Solve(1.0)
	assert.NoError(err)

	st, err := traj.At(1.0)
	assert.NoError(err)
	assert.InDelta(math.E, st.AtVec(0), 1e-3)
	assert.InDelta(math.E, st.AtVec(1), 1e-3)
}

func TestSolvePureAlgebraic(t *testing.T) {
	assert := assert.New(t)

	// x - 2 = 0 with consistent initial value: x stays put
	s := NewSystem()
	x, _, err := s.AddVariable("x", 2.0)
	assert.NoError(err)
	_, err = s.AddEquation(x, symbolic.Const(2))
	assert.NoError(err)

	traj, err := s.Solve(0.5)
	assert.NoError(err)

	st, err := traj.At(0.5)
	assert.NoError(err)
	assert.InDelta(2.0, st.AtVec(0), 1e-8)
}

func TestSolveInconsistentInitial(t *testing.T) {
	assert := assert.New(t)

	// the algebraic row x - 2 = 0 is violated by x(0) = 0
	s := NewSystem()
	x, _, err := s.AddVariable("x", 0.0)
	assert.NoError(err)
	_, err = s.AddEquation(x, symbolic.Const(2))
	assert.NoError(err)

	traj, err := s.Solve(0.5)
	assert.Nil(traj)
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrInconsistentInitial)
	assert.Nil(s.Trajectory())
}

func TestSolveNotAffine(t *testing.T) {
	assert := assert.New(t)

	// (y')^2 = y is not affine in the derivative
	s := NewSystem()
	y, dy, err := s.AddVariable("y", 1.0)
	assert.NoError(err)
	_, err = s.AddEquation(symbolic.Mul(dy, dy), y)
	assert.NoError(err)

	traj, err := s.Solve(1.0)
	assert.Nil(traj)
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrInvalidArgument)
}

func TestSolveEquationCountMismatch(t *testing.T) {
	assert := assert.New(t)

	s := NewSystem()
	_, dy, err := s.AddVariable("a", 0)
	assert.NoError(err)
	_, _, err = s.AddVariable("b", 0)
	assert.NoError(err)
	_, err = s.AddEquation(dy, symbolic.Const(1))
	assert.NoError(err)

	traj, err := s.Solve(1.0)
	assert.Nil(traj)
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrDimensionMismatch)
}

func TestSolveInvalidDuration(t *testing.T) {
	assert := assert.New(t)

	s := NewSystem()
	_, dy, err := s.AddVariable("a", 0)
	assert.NoError(err)
	_, err = s.AddEquation(dy, symbolic.Const(1))
	assert.NoError(err)

	for _, d := range []float64{0, -1, math.NaN()} {
		traj, err := s.Solve(d)
		assert.Nil(traj)
		assert.Error(err)
		assert.ErrorIs(err, dynamics.ErrInvalidArgument)
	}
}

func TestSolveRejectedKeepsSystemOpen(t *testing.T) {
	assert := assert.New(t)

	// a Solve rejected by validation must not freeze assembly: the
	// caller fixes the input and retries
	s := NewSystem()
	y, dy, err := s.AddVariable("y", 1.0)
	assert.NoError(err)
	z, dz, err := s.AddVariable("z", 1.0)
	assert.NoError(err)
	_, err = s.AddEquation(dy, symbolic.Neg(y))
	assert.NoError(err)

	// one equation for two variables
	traj, err := s.Solve(1.0)
	assert.Nil(traj)
	assert.ErrorIs(err, dynamics.ErrDimensionMismatch)

	// a bad duration is a per-call argument error, not a freeze
	_, err = s.Solve(-1)
	assert.ErrorIs(err, dynamics.ErrInvalidArgument)

	// add the missing equation and retry
	_, err = s.AddEquation(dz, symbolic.Neg(z))
	assert.NoError(err)

	traj, err = s.Solve(1.0)
	assert.NoError(err)
	assert.NotNil(traj)

	st, err := traj.At(1.0)
	assert.NoError(err)
	assert.InDelta(math.Exp(-1), st.AtVec(0), 1e-4)
	assert.InDelta(math.Exp(-1), st.AtVec(1), 1e-4)
}

func TestFrozenAfterSolve(t *testing.T) {
	assert := assert.New(t)

	s := NewSystem()
	y, dy, err := s.AddVariable("y", 1.0)
	assert.NoError(err)
	_, err = s.AddEquation(dy, symbolic.Neg(y))
	assert.NoError(err)

	_, err = s.Solve(0.1)
	assert.NoError(err)

	_, _, err = s.AddVariable("z", 0)
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrInvalidArgument)

	_, err = s.AddEquation(dy, y)
	assert.Error(err)
}

func TestStepLimit(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.InitialStep = 1e-4
	cfg.MaxSteps = 10

	s := NewSystem(WithConfig(cfg))
	y, dy, err := s.AddVariable("y", 1.0)
	assert.NoError(err)
	_, err = s.AddEquation(dy, symbolic.Neg(y))
	assert.NoError(err)

	traj, err := s.Solve(1.0)
	assert.Nil(traj)
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrIntegrationFailed)
}

func TestTrajectoryAt(t *testing.T) {
	assert := assert.New(t)

	s := NewSystem()
	_, dy, err := s.AddVariable("y", 0.0)
	assert.NoError(err)
	// y' = 2: the solution is exactly linear, interpolation is exact
	_, err = s.AddEquation(dy, symbolic.Const(2))
	assert.NoError(err)

	traj, err := s.Solve(1.0)
	assert.NoError(err)

	st, err := traj.At(0.3)
	assert.NoError(err)
	assert.InDelta(0.6, st.AtVec(0), 1e-8)

	_, err = traj.At(-0.1)
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrInvalidArgument)

	_, err = traj.At(1.5)
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrInvalidArgument)
}
