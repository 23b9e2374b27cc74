package lagrange

import (
	"fmt"

	dynamics "github.com/mechsym/go-dynamics"
	"github.com/mechsym/go-dynamics/symbolic"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// ConstrainedAccel derives the acceleration function of the system
// subject to its holonomic constraints. Each constraint contributes a
// Lagrange multiplier, and the returned function solves the augmented
// block system
//
//	[ M   J^T ] [ddq]   [ dL/dq - C*dq ]
//	[ J    0  ] [ l ] = [ -dJ/dt * dq  ]
//
// at every call, returning only the acceleration sub-vector. Redundant
// or inconsistent constraints make the block matrix rank deficient,
// which surfaces as ErrSingularMass. With no constraints declared this
// reduces to the unconstrained standard form solve.
func (s *System) ConstrainedAccel() (dynamics.ConstrainedAccelFunc, error) {
	if err := s.freeze(); err != nil {
		return nil, err
	}

	n := len(s.q)
	m := len(s.constraints)
	s.log.Debug("deriving constrained acceleration function",
		zap.Int("dof", n), zap.Int("constraints", m))

	// D = dL/ddq and its Jacobians, as in the standard form
	d := symbolic.Gradient(s.l, s.dq)
	mass := symbolic.Jacobian(d, s.dq)
	cor := symbolic.Jacobian(d, s.q)
	gradL := symbolic.Gradient(s.l, s.q)

	// constraint Jacobian J = dc/dq
	jac := symbolic.Jacobian(s.constraints, s.q)
	jacT := jac.T()

	dqVec := varVector(s.dq)

	// dJ/dt contracted with dq: row i is sum_j (sum_k dJ[i][j]/dq_k * dq_k) * dq_j.
	// This is the constraint manifold curvature term; without it the
	// constraint force coupling is wrong.
	jdot := make(symbolic.Vector, m)
	for i := 0; i < m; i++ {
		terms := make([]symbolic.Expr, n)
		for j := 0; j < n; j++ {
			dt := symbolic.Gradient(jac[i][j], s.q).Dot(dqVec)
			terms[j] = symbolic.Mul(dt, s.dq[j])
		}
		jdot[i] = symbolic.Add(terms...)
	}

	// augmented block matrix [[M, J^T], [J, 0]]
	aug := symbolic.ZeroMatrix(n+m, n+m)
	for i := 0; i < n; i++ {
		copy(aug[i][:n], mass[i])
		if m > 0 {
			copy(aug[i][n:], jacT[i])
		}
	}
	for i := 0; i < m; i++ {
		copy(aug[n+i][:n], jac[i])
	}

	// right hand side [dL/dq - C*dq; -Jdot*dq]
	rhs := make(symbolic.Vector, n+m)
	corDq := cor.MulVec(dqVec)
	for i := 0; i < n; i++ {
		rhs[i] = symbolic.Sub(gradL[i], corDq[i])
	}
	for i := 0; i < m; i++ {
		rhs[n+i] = symbolic.Neg(jdot[i])
	}

	augFn, err := symbolic.CompileMatrix(aug, s.q, s.dq)
	if err != nil {
		return nil, fmt.Errorf("failed to compile augmented matrix: %w", err)
	}
	rhsFn, err := symbolic.CompileVector(rhs, s.q, s.dq)
	if err != nil {
		return nil, fmt.Errorf("failed to compile right hand side: %w", err)
	}

	return func(q, dq mat.Vector) (mat.Vector, error) {
		if q.Len() != n || dq.Len() != n {
			return nil, fmt.Errorf("expected %d-vectors, got q=%d dq=%d: %w",
				n, q.Len(), dq.Len(), dynamics.ErrDimensionMismatch)
		}
		a, err := augFn(rawVec(q), rawVec(dq))
		if err != nil {
			return nil, err
		}
		b, err := rhsFn(rawVec(q), rawVec(dq))
		if err != nil {
			return nil, err
		}
		sol, err := solveLinear(a, b)
		if err != nil {
			return nil, err
		}
		// keep the accelerations, discard the multipliers
		ddq := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			ddq.SetVec(i, sol.AtVec(i))
		}
		return ddq, nil
	}, nil
}

// varVector wraps variables as a symbolic vector.
func varVector(vars []*symbolic.Var) symbolic.Vector {
	out := make(symbolic.Vector, len(vars))
	for i, v := range vars {
		out[i] = v
	}
	return out
}
