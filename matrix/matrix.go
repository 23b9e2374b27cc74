// Package matrix provides numeric matrix helpers shared by the solver
// packages.
package matrix

import (
	"fmt"
	"math"

	mtx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NumJacobian approximates the Jacobian of f at x by forward finite
// differences. The step for column j is eps*(1+|x_j|), probed along the
// j-th identity column.
// It returns error if either of the evaluations of f fails.
func NumJacobian(f func(mat.Vector) (mat.Vector, error), x mat.Vector, eps float64) (*mat.Dense, error) {
	n := x.Len()

	f0, err := f(x)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate function at base point: %w", err)
	}
	rows := f0.Len()

	eye, err := mtx.NewDenseValIdentity(n, 1.0)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity matrix: %v", err)
	}

	jac := mat.NewDense(rows, n, nil)
	xp := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		h := eps * (1.0 + math.Abs(x.AtVec(j)))
		ej := mat.NewVecDense(n, mat.Col(nil, j, eye))
		xp.AddScaledVec(x, h, ej)

		fp, err := f(xp)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate function at probe %d: %w", j, err)
		}
		for i := 0; i < rows; i++ {
			jac.Set(i, j, (fp.AtVec(i)-f0.AtVec(i))/h)
		}
	}
	return jac, nil
}

// ZeroRows returns the indices of the rows of m whose entries are all
// smaller than tol in absolute value.
// It panics if m is nil.
func ZeroRows(m *mat.Dense, tol float64) []int {
	rows, _ := m.Dims()
	var zero []int
	for i := 0; i < rows; i++ {
		if floats.Norm(m.RawRowView(i), math.Inf(1)) < tol {
			zero = append(zero, i)
		}
	}
	return zero
}
