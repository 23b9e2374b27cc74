package lagrange

import (
	"fmt"

	dynamics "github.com/mechsym/go-dynamics"
	"github.com/mechsym/go-dynamics/symbolic"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// StandardForm is a mechanical system in standard manipulator form:
//
//	M(q)*ddq + C(q,dq)*dq + N(q) = u
//
// where M is the mass matrix, C the Coriolis/centrifugal matrix and N
// the position-dependent force vector. It is immutable once derived.
type StandardForm struct {
	n int
	// symbolic matrices, kept for inspection
	mass symbolic.Matrix
	cor  symbolic.Matrix
	frc  symbolic.Vector
	// compiled evaluators
	massFn symbolic.MatrixFunc
	corFn  symbolic.MatrixFunc
	frcFn  symbolic.VectorFunc
}

// StandardForm derives the standard manipulator form of the system from
// its Lagrangian. Declared constraints are ignored on this path: a
// warning is logged and derivation proceeds on the unconstrained
// dynamics. Use ConstrainedAccel to honor constraints.
func (s *System) StandardForm() (*StandardForm, error) {
	if err := s.freeze(); err != nil {
		return nil, err
	}
	if len(s.constraints) > 0 {
		s.log.Warn("deriving unconstrained standard form: declared constraints are ignored on this path",
			zap.Int("constraints", len(s.constraints)))
	}
	return deriveStandardForm(s.l, s.q, s.dq)
}

// deriveStandardForm computes the symbolic M, C, N decomposition of the
// Lagrangian and compiles the numeric evaluators.
func deriveStandardForm(l symbolic.Expr, q, dq []*symbolic.Var) (*StandardForm, error) {
	n := len(q)

	// D = dL/ddq, the generalized momenta
	d := symbolic.Gradient(l, dq)

	// M is the Hessian of L in the velocities, symmetric by construction
	m := symbolic.Jacobian(d, dq)
	// C collects the velocity dependent coupling terms
	c := symbolic.Jacobian(d, q)
	// N is the position dependent force term
	frc := make(symbolic.Vector, n)
	for i, x := range q {
		frc[i] = symbolic.Neg(l.Diff(x))
	}

	massFn, err := symbolic.CompileMatrix(m, q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile mass matrix: %w", err)
	}
	corFn, err := symbolic.CompileMatrix(c, q, dq)
	if err != nil {
		return nil, fmt.Errorf("failed to compile coriolis matrix: %w", err)
	}
	// N = -dL/dq picks up velocity terms whenever M depends on q, so it
	// compiles over both argument vectors
	frcFn, err := symbolic.CompileVector(frc, q, dq)
	if err != nil {
		return nil, fmt.Errorf("failed to compile force vector: %w", err)
	}

	return &StandardForm{
		n:      n,
		mass:   m,
		cor:    c,
		frc:    frc,
		massFn: massFn,
		corFn:  corFn,
		frcFn:  frcFn,
	}, nil
}

// Dims returns the number of degrees of freedom.
func (sf *StandardForm) Dims() int { return sf.n }

// Mass evaluates the mass matrix at configuration q.
func (sf *StandardForm) Mass(q mat.Vector) (*mat.Dense, error) {
	return sf.massFn(rawVec(q))
}

// Coriolis evaluates the Coriolis/centrifugal matrix at (q, dq).
func (sf *StandardForm) Coriolis(q, dq mat.Vector) (*mat.Dense, error) {
	return sf.corFn(rawVec(q), rawVec(dq))
}

// Forces evaluates the position dependent force vector at q, i.e. the
// force term at zero velocity.
func (sf *StandardForm) Forces(q mat.Vector) (mat.Vector, error) {
	return sf.frcFn(rawVec(q), make([]float64, sf.n))
}

// Accel solves for the generalized accelerations at (q, dq) under the
// generalized force input u. The mass matrix is factorized and the
// linear system M*ddq = u - C*dq - N solved directly; M is never
// inverted. It returns ErrSingularMass if M is singular at q.
func (sf *StandardForm) Accel(q, dq, u mat.Vector) (mat.Vector, error) {
	if u == nil {
		u = mat.NewVecDense(sf.n, nil)
	}
	if q.Len() != sf.n || dq.Len() != sf.n || u.Len() != sf.n {
		return nil, fmt.Errorf("expected %d-vectors, got q=%d dq=%d u=%d: %w",
			sf.n, q.Len(), dq.Len(), u.Len(), dynamics.ErrDimensionMismatch)
	}

	m, err := sf.massFn(rawVec(q))
	if err != nil {
		return nil, err
	}
	c, err := sf.corFn(rawVec(q), rawVec(dq))
	if err != nil {
		return nil, err
	}
	frc, err := sf.frcFn(rawVec(q), rawVec(dq))
	if err != nil {
		return nil, err
	}

	// rhs = u - C*dq - N
	rhs := mat.NewVecDense(sf.n, nil)
	rhs.MulVec(c, dq)
	rhs.AddVec(rhs, frc)
	rhs.SubVec(u, rhs)

	return solveLinear(m, rhs)
}

// AccelFunc returns the compiled acceleration evaluator.
func (sf *StandardForm) AccelFunc() dynamics.AccelFunc {
	return sf.Accel
}

// solveLinear solves a*x = b via LU factorization. A factorization or
// solve failure is surfaced as ErrSingularMass: it means the system
// matrix is singular (or numerically rank deficient) at the evaluated
// configuration.
func solveLinear(a *mat.Dense, b mat.Vector) (mat.Vector, error) {
	var lu mat.LU
	lu.Factorize(a)

	n, _ := a.Dims()
	x := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(x, false, b); err != nil {
		return nil, fmt.Errorf("linear solve failed: %v: %w", err, dynamics.ErrSingularMass)
	}
	return x, nil
}

// rawVec returns the values of v as a plain slice.
func rawVec(v mat.Vector) []float64 {
	if vd, ok := v.(*mat.VecDense); ok {
		if raw := vd.RawVector(); raw.Inc == 1 {
			return raw.Data
		}
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
