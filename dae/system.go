// Package dae assembles and integrates linear differential-algebraic
// systems: vectors of implicit equations affine in the state
// derivatives, integrated with an implicit solver that tolerates a
// singular mass matrix.
package dae

import (
	"fmt"
	"math"

	dynamics "github.com/mechsym/go-dynamics"
	matutil "github.com/mechsym/go-dynamics/matrix"
	"github.com/mechsym/go-dynamics/symbolic"
	"go.uber.org/zap"
)

// Config holds the integrator settings.
type Config struct {
	// InitialStep is the first step size. If zero, duration/500 is used.
	InitialStep float64
	// MinStep is the smallest step size the solver may reach while
	// halving after convergence failures before giving up.
	MinStep float64
	// MaxSteps caps the number of accepted steps.
	MaxSteps int
	// Tolerance bounds the Newton residual and the initial condition
	// consistency check.
	Tolerance float64
	// MaxNewton caps Newton iterations per step.
	MaxNewton int
}

// DefaultConfig returns the default integrator settings.
func DefaultConfig() Config {
	return Config{
		MinStep:   1e-12,
		MaxSteps:  200000,
		Tolerance: 1e-8,
		MaxNewton: 25,
	}
}

// System is a linear DAE under assembly: state variables, their
// derivative symbols, and implicit equations over both. Assembly is
// append-only and freezes on the first Solve call.
type System struct {
	// y are the state variables
	y []*symbolic.Var
	// dy are the derivative symbols, one per state variable
	dy []*symbolic.Var
	// y0 is the initial condition, one entry per state variable
	y0 []float64
	// eqns are implicit equation residuals, each zero along a solution
	eqns symbolic.Vector
	// names tracks declared variable names
	names  map[string]struct{}
	frozen bool

	cfg  Config
	log  *zap.Logger
	traj *Trajectory
}

// Option configures a System.
type Option func(*System)

// WithConfig sets the integrator settings.
func WithConfig(cfg Config) Option {
	return func(s *System) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger used for assembly and solve diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(s *System) {
		s.log = log
	}
}

// NewSystem creates a new empty DAE system.
func NewSystem(opts ...Option) *System {
	s := &System{
		names: make(map[string]struct{}),
		cfg:   DefaultConfig(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddVariable declares a new state variable with the given initial
// value and returns its state symbol and derivative symbol. The
// derivative symbol is labelled with a trailing prime so it can never
// collide with a user supplied name.
// It returns an error if name is empty, not a valid identifier, already
// declared, or if the system is frozen.
func (s *System) AddVariable(name string, init float64) (y, dy *symbolic.Var, err error) {
	if s.frozen {
		return nil, nil, fmt.Errorf("system already solved: %w", dynamics.ErrInvalidArgument)
	}
	if !symbolic.ValidName(name) {
		return nil, nil, fmt.Errorf("invalid variable name %q: %w", name, dynamics.ErrInvalidArgument)
	}
	if _, ok := s.names[name]; ok {
		return nil, nil, fmt.Errorf("duplicate variable name %q: %w", name, dynamics.ErrInvalidArgument)
	}
	s.names[name] = struct{}{}

	y = symbolic.NewVar(name)
	dy = symbolic.NewVar(name + "'")
	s.y = append(s.y, y)
	s.dy = append(s.dy, dy)
	s.y0 = append(s.y0, init)

	s.log.Debug("added variable", zap.String("name", name), zap.Float64("init", init))
	return y, dy, nil
}

// AddEquation appends the implicit equation lhs = rhs and returns its
// residual lhs - rhs. Every equation must be affine in the derivative
// symbols; this is validated at solve time.
func (s *System) AddEquation(lhs, rhs symbolic.Expr) (symbolic.Expr, error) {
	if s.frozen {
		return nil, fmt.Errorf("system already solved: %w", dynamics.ErrInvalidArgument)
	}
	if lhs == nil || rhs == nil {
		return nil, fmt.Errorf("nil expression: %w", dynamics.ErrInvalidArgument)
	}
	res := symbolic.Sub(lhs, rhs)
	s.eqns = append(s.eqns, res)

	s.log.Debug("added equation", zap.Stringer("residual", res), zap.Int("count", len(s.eqns)))
	return res, nil
}

// Vars returns the state variable symbols in declaration order.
func (s *System) Vars() []*symbolic.Var {
	out := make([]*symbolic.Var, len(s.y))
	copy(out, s.y)
	return out
}

// Derivatives returns the derivative symbols in declaration order.
func (s *System) Derivatives() []*symbolic.Var {
	out := make([]*symbolic.Var, len(s.dy))
	copy(out, s.dy)
	return out
}

// InitialState returns the initial condition vector.
func (s *System) InitialState() []float64 {
	out := make([]float64, len(s.y0))
	copy(out, s.y0)
	return out
}

// Trajectory returns the trajectory of the last successful Solve, or
// nil if there is none.
func (s *System) Trajectory() *Trajectory { return s.traj }

// Solve derives the implicit mass matrix and forcing function of the
// system and integrates Mass(y)*dy/dt = f(y) from the initial condition
// over [0, duration]. On success the trajectory is stored on the system
// and returned. A Solve rejected by validation leaves the system open
// for further assembly; a solve that fails past validation freezes the
// system and leaves no trajectory.
//
// It returns ErrInvalidArgument if an equation is not affine in the
// derivatives, ErrInconsistentInitial if the initial condition violates
// an algebraic equation, and ErrIntegrationFailed if the implicit
// solver cannot converge within its limits.
func (s *System) Solve(duration float64) (*Trajectory, error) {
	if duration <= 0 || math.IsNaN(duration) {
		return nil, fmt.Errorf("invalid duration %v: %w", duration, dynamics.ErrInvalidArgument)
	}
	if len(s.y) == 0 {
		return nil, fmt.Errorf("no variables declared: %w", dynamics.ErrInvalidArgument)
	}
	if len(s.y) != len(s.dy) || len(s.y) != len(s.y0) {
		return nil, fmt.Errorf("state vectors diverged: y=%d dy=%d y0=%d: %w",
			len(s.y), len(s.dy), len(s.y0), dynamics.ErrDimensionMismatch)
	}
	if len(s.eqns) != len(s.y) {
		return nil, fmt.Errorf("%d equations for %d variables: %w",
			len(s.eqns), len(s.y), dynamics.ErrDimensionMismatch)
	}

	// Mass = d(eqns)/d(dy). Well defined and derivative-free exactly
	// because every equation is affine in the derivatives.
	mass := symbolic.Jacobian(s.eqns, s.dy)
	for i := range mass {
		for j := range mass[i] {
			for _, d := range s.dy {
				if symbolic.Depends(mass[i][j], d) {
					return nil, fmt.Errorf("equation %d is not affine in derivative %q: %w",
						i, d.Name(), dynamics.ErrInvalidArgument)
				}
			}
		}
	}

	// assembly validated: freeze before compiling the evaluators. A
	// Solve rejected above leaves the system open for fixing and retry.
	s.frozen = true
	s.traj = nil

	// f(y) = -eqns(y, dy=0)
	f := make(symbolic.Vector, len(s.eqns))
	for i, e := range s.eqns {
		for _, d := range s.dy {
			e = e.Subst(d, symbolic.Const(0))
		}
		f[i] = symbolic.Neg(e)
	}

	massFn, err := symbolic.CompileMatrix(mass, s.y)
	if err != nil {
		return nil, fmt.Errorf("failed to compile mass matrix: %w", err)
	}
	fFn, err := symbolic.CompileVector(f, s.y)
	if err != nil {
		return nil, fmt.Errorf("failed to compile forcing function: %w", err)
	}

	if err := s.checkConsistency(mass, massFn, fFn); err != nil {
		return nil, err
	}

	cfg := s.cfg
	if cfg.InitialStep <= 0 {
		cfg.InitialStep = duration / 500
	}
	def := DefaultConfig()
	if cfg.MinStep <= 0 {
		cfg.MinStep = def.MinStep
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = def.MaxSteps
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MaxNewton <= 0 {
		cfg.MaxNewton = def.MaxNewton
	}

	sol := &solver{
		mass: massFn,
		f:    fFn,
		n:    len(s.y),
		cfg:  cfg,
		log:  s.log,
	}
	traj, err := sol.integrate(s.y0, duration)
	if err != nil {
		return nil, err
	}
	s.traj = traj
	return traj, nil
}

// checkConsistency verifies that the initial condition satisfies every
// algebraic equation, i.e. every equation whose mass matrix row is
// identically zero.
func (s *System) checkConsistency(mass symbolic.Matrix, massFn symbolic.MatrixFunc, fFn symbolic.VectorFunc) error {
	m0, err := massFn(s.y0)
	if err != nil {
		return fmt.Errorf("failed to evaluate mass matrix at t=0: %w", err)
	}
	f0, err := fFn(s.y0)
	if err != nil {
		return fmt.Errorf("failed to evaluate forcing function at t=0: %w", err)
	}

	tol := s.cfg.Tolerance
	if tol <= 0 {
		tol = DefaultConfig().Tolerance
	}

	algebraic := make(map[int]struct{})
	for i, row := range mass {
		zero := true
		for _, e := range row {
			if !symbolic.IsZero(e) {
				zero = false
				break
			}
		}
		if zero {
			algebraic[i] = struct{}{}
		}
	}
	// rows that vanish numerically at y0 are algebraic at t=0 as well
	for _, i := range matutil.ZeroRows(m0, tol) {
		algebraic[i] = struct{}{}
	}

	for i := range algebraic {
		if math.Abs(f0.AtVec(i)) > tol {
			return fmt.Errorf("algebraic equation %d violated at t=0: residual %g: %w",
				i, f0.AtVec(i), dynamics.ErrInconsistentInitial)
		}
	}
	return nil
}
