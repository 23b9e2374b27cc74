package dynamics

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidArgument is returned when a malformed name or expression
	// is supplied at assembly time.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch is returned when internal vector dimensions
	// diverge. It indicates a broken invariant, not a caller mistake.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrSingularMass is returned when the (possibly constraint-augmented)
	// mass matrix is singular at the evaluated configuration.
	ErrSingularMass = errors.New("singular mass matrix")

	// ErrInconsistentInitial is returned when an initial condition violates
	// the algebraic equations of a DAE at t=0.
	ErrInconsistentInitial = errors.New("inconsistent initial condition")

	// ErrIntegrationFailed is returned when the implicit integrator cannot
	// converge within its step and iteration limits.
	ErrIntegrationFailed = errors.New("integration failed")
)

// AccelFunc evaluates generalized accelerations for a configuration q,
// velocity dq and generalized force input u.
type AccelFunc func(q, dq, u mat.Vector) (mat.Vector, error)

// ConstrainedAccelFunc evaluates generalized accelerations of a
// constrained system at a configuration q and velocity dq. Constraint
// forces are resolved internally.
type ConstrainedAccelFunc func(q, dq mat.Vector) (mat.Vector, error)

// Model is a mechanical system in standard manipulator form:
//
//	M(q)*ddq + C(q,dq)*dq + N(q) = u
type Model interface {
	// Mass evaluates the mass matrix at configuration q
	Mass(q mat.Vector) (*mat.Dense, error)
	// Coriolis evaluates the Coriolis/centrifugal matrix at (q, dq)
	Coriolis(q, dq mat.Vector) (*mat.Dense, error)
	// Forces evaluates the position-dependent force vector at q
	Forces(q mat.Vector) (mat.Vector, error)
	// Accel solves for the generalized accelerations at (q, dq) under input u
	Accel(q, dq, u mat.Vector) (mat.Vector, error)
	// Dims returns the number of degrees of freedom
	Dims() int
}

// Trajectory is an ordered, finite sequence of (time, state) samples
// produced by a solver.
type Trajectory interface {
	// Len returns the number of samples
	Len() int
	// Time returns the time of the i-th sample
	Time(i int) float64
	// State returns the state vector of the i-th sample
	State(i int) mat.Vector
	// At returns the state interpolated at time t
	At(t float64) (mat.Vector, error)
}
