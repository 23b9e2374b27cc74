// Package lagrange derives equations of motion for mechanical systems
// from their energies. A System accumulates generalized coordinates,
// kinetic and potential energy terms and holonomic constraints, and
// derives either standard manipulator form dynamics or a constrained
// acceleration function.
package lagrange

import (
	"fmt"

	dynamics "github.com/mechsym/go-dynamics"
	"github.com/mechsym/go-dynamics/symbolic"
	"go.uber.org/zap"
)

// System accumulates coordinates, energies and constraints of a
// mechanical system. All mutating operations are append-only. The
// first derivation freezes the system: assembly must be complete
// before any derived object is built.
type System struct {
	// q are the generalized coordinates
	q []*symbolic.Var
	// dq are the generalized velocities, one per coordinate
	dq []*symbolic.Var
	// l is the Lagrangian: kinetic minus potential energy
	l symbolic.Expr
	// constraints are holonomic constraint expressions, each zero
	constraints symbolic.Vector
	// names tracks declared coordinate names
	names map[string]struct{}
	// frozen is set once a derivation has been performed
	frozen bool

	log *zap.Logger
}

// Option configures a System.
type Option func(*System)

// WithLogger sets the logger used for assembly diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(s *System) {
		s.log = log
	}
}

// NewSystem creates a new empty mechanical system.
func NewSystem(opts ...Option) *System {
	s := &System{
		l:     symbolic.Const(0),
		names: make(map[string]struct{}),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCoordinate declares a new generalized coordinate and returns its
// position symbol and velocity symbol. The velocity symbol is labelled
// with a trailing prime, which is not a legal identifier character, so
// it can never collide with a user supplied name.
// It returns an error if name is empty, not a valid identifier, already
// declared, or if the system is frozen.
func (s *System) AddCoordinate(name string) (q, dq *symbolic.Var, err error) {
	if s.frozen {
		return nil, nil, fmt.Errorf("system already derived: %w", dynamics.ErrInvalidArgument)
	}
	if !symbolic.ValidName(name) {
		return nil, nil, fmt.Errorf("invalid coordinate name %q: %w", name, dynamics.ErrInvalidArgument)
	}
	if _, ok := s.names[name]; ok {
		return nil, nil, fmt.Errorf("duplicate coordinate name %q: %w", name, dynamics.ErrInvalidArgument)
	}
	s.names[name] = struct{}{}

	q = symbolic.NewVar(name)
	dq = symbolic.NewVar(name + "'")
	s.q = append(s.q, q)
	s.dq = append(s.dq, dq)

	s.log.Debug("added coordinate", zap.String("name", name), zap.Int("dof", len(s.q)))
	return q, dq, nil
}

// AddKineticEnergy adds expr to the Lagrangian and returns it. The
// expression is not validated: it is the caller's responsibility that
// it is a kinetic energy over declared coordinates and velocities.
func (s *System) AddKineticEnergy(expr symbolic.Expr) (symbolic.Expr, error) {
	if err := s.checkTerm(expr); err != nil {
		return nil, err
	}
	s.l = symbolic.Add(s.l, expr)
	s.log.Debug("added kinetic energy", zap.Stringer("term", expr))
	return expr, nil
}

// AddPotentialEnergy subtracts expr from the Lagrangian and returns it.
func (s *System) AddPotentialEnergy(expr symbolic.Expr) (symbolic.Expr, error) {
	if err := s.checkTerm(expr); err != nil {
		return nil, err
	}
	s.l = symbolic.Sub(s.l, expr)
	s.log.Debug("added potential energy", zap.Stringer("term", expr))
	return expr, nil
}

// AddConstraint appends a holonomic constraint expression and returns
// it. The expression is implicitly constrained to zero at solve time.
func (s *System) AddConstraint(expr symbolic.Expr) (symbolic.Expr, error) {
	if err := s.checkTerm(expr); err != nil {
		return nil, err
	}
	s.constraints = append(s.constraints, expr)
	s.log.Debug("added constraint", zap.Stringer("expr", expr), zap.Int("count", len(s.constraints)))
	return expr, nil
}

func (s *System) checkTerm(expr symbolic.Expr) error {
	if s.frozen {
		return fmt.Errorf("system already derived: %w", dynamics.ErrInvalidArgument)
	}
	if expr == nil {
		return fmt.Errorf("nil expression: %w", dynamics.ErrInvalidArgument)
	}
	return nil
}

// Coordinates returns the generalized coordinate symbols in declaration
// order.
func (s *System) Coordinates() []*symbolic.Var {
	out := make([]*symbolic.Var, len(s.q))
	copy(out, s.q)
	return out
}

// Velocities returns the generalized velocity symbols in declaration
// order.
func (s *System) Velocities() []*symbolic.Var {
	out := make([]*symbolic.Var, len(s.dq))
	copy(out, s.dq)
	return out
}

// Lagrangian returns the accumulated Lagrangian.
func (s *System) Lagrangian() symbolic.Expr { return s.l }

// Constraints returns the declared constraint expressions.
func (s *System) Constraints() symbolic.Vector {
	out := make(symbolic.Vector, len(s.constraints))
	copy(out, s.constraints)
	return out
}

// Dims returns the number of degrees of freedom.
func (s *System) Dims() int { return len(s.q) }

// freeze marks assembly as complete and validates the coordinate
// vectors before derivation.
func (s *System) freeze() error {
	if len(s.q) != len(s.dq) {
		return fmt.Errorf("coordinate and velocity vectors diverged: %d != %d: %w", len(s.q), len(s.dq), dynamics.ErrDimensionMismatch)
	}
	if len(s.q) == 0 {
		return fmt.Errorf("no coordinates declared: %w", dynamics.ErrInvalidArgument)
	}
	s.frozen = true
	return nil
}
