package symbolic

// Vector is an ordered collection of scalar expressions.
type Vector []Expr

// ZeroVector returns an n element vector of zero constants.
func ZeroVector(n int) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = Const(0)
	}
	return v
}

// Diff differentiates every entry with respect to v.
func (vec Vector) Diff(v *Var) Vector {
	out := make(Vector, len(vec))
	for i, e := range vec {
		out[i] = e.Diff(v)
	}
	return out
}

// Subst substitutes e for v in every entry.
func (vec Vector) Subst(v *Var, e Expr) Vector {
	out := make(Vector, len(vec))
	for i, x := range vec {
		out[i] = x.Subst(v, e)
	}
	return out
}

// Dot returns the inner product of vec and other. It panics if the
// lengths differ.
func (vec Vector) Dot(other Vector) Expr {
	if len(vec) != len(other) {
		panic("symbolic: dot product length mismatch")
	}
	terms := make([]Expr, len(vec))
	for i := range vec {
		terms[i] = Mul(vec[i], other[i])
	}
	return Add(terms...)
}

// Matrix is a dense symbolic matrix stored row major.
type Matrix [][]Expr

// ZeroMatrix returns an r by c matrix of zero constants.
func ZeroMatrix(r, c int) Matrix {
	m := make(Matrix, r)
	for i := range m {
		m[i] = ZeroVector(c)
	}
	return m
}

// Dims returns the matrix dimensions.
func (m Matrix) Dims() (r, c int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// T returns the transpose of the matrix.
func (m Matrix) T() Matrix {
	r, c := m.Dims()
	out := ZeroMatrix(c, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j][i] = m[i][j]
		}
	}
	return out
}

// MulVec returns the matrix-vector product m*v. It panics if the
// dimensions are incompatible.
func (m Matrix) MulVec(v Vector) Vector {
	r, c := m.Dims()
	if c != len(v) {
		panic("symbolic: matrix-vector dimension mismatch")
	}
	out := make(Vector, r)
	for i := 0; i < r; i++ {
		out[i] = Vector(m[i]).Dot(v)
	}
	return out
}

// Jacobian returns the matrix of partial derivatives of v with respect
// to vars: entry (i, j) is the derivative of v[i] with respect to vars[j].
func Jacobian(v Vector, vars []*Var) Matrix {
	m := ZeroMatrix(len(v), len(vars))
	for i, e := range v {
		for j, x := range vars {
			m[i][j] = e.Diff(x)
		}
	}
	return m
}

// Gradient returns the vector of partial derivatives of e with respect
// to vars.
func Gradient(e Expr, vars []*Var) Vector {
	out := make(Vector, len(vars))
	for i, x := range vars {
		out[i] = e.Diff(x)
	}
	return out
}
