package symbolic

import (
	"testing"

	dynamics "github.com/mechsym/go-dynamics"
	"github.com/stretchr/testify/assert"
)

func TestDiffPolynomial(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	// e = x^2 + 3x + 5
	e := Add(Pow(x, 2), Mul(Const(3), x), Const(5))

	d := e.Diff(x)
	fn, err := Compile(d, []*Var{x})
	assert.NoError(err)

	for _, v := range []float64{-2, 0, 0.5, 3} {
		got, err := fn([]float64{v})
		assert.NoError(err)
		assert.InDelta(2*v+3, got, 1e-12)
	}
}

func TestDiffTrig(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	d := Sin(x).Diff(x)

	fn, err := Compile(d, []*Var{x})
	assert.NoError(err)

	got, err := fn([]float64{0.7})
	assert.NoError(err)
	assert.InDelta(0.7648421872844884, got, 1e-12)

	d2 := Cos(x).Diff(x)
	fn2, err := Compile(d2, []*Var{x})
	assert.NoError(err)

	got, err = fn2([]float64{0.7})
	assert.NoError(err)
	assert.InDelta(-0.644217687237691, got, 1e-12)
}

func TestDiffProductRule(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	y := NewVar("y")
	// e = x^2 * y, de/dx = 2xy, de/dy = x^2
	e := Mul(Pow(x, 2), y)

	fn, err := Compile(e.Diff(x), []*Var{x, y})
	assert.NoError(err)
	got, err := fn([]float64{2, 5})
	assert.NoError(err)
	assert.InDelta(20.0, got, 1e-12)

	fn, err = Compile(e.Diff(y), []*Var{x, y})
	assert.NoError(err)
	got, err = fn([]float64{2, 5})
	assert.NoError(err)
	assert.InDelta(4.0, got, 1e-12)
}

func TestDiffUnrelatedIsZero(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	y := NewVar("y")
	e := Add(Mul(Const(2), Sin(x)), Pow(x, 3))

	assert.True(IsZero(e.Diff(y)))
	assert.False(IsZero(e.Diff(x)))
}

func TestVarIdentity(t *testing.T) {
	assert := assert.New(t)

	// same label, distinct variables
	a := NewVar("x")
	b := NewVar("x")

	assert.True(IsZero(a.Diff(b)))
	e := Mul(a, b)
	fn, err := Compile(e, []*Var{a, b})
	assert.NoError(err)
	got, err := fn([]float64{3, 4})
	assert.NoError(err)
	assert.InDelta(12.0, got, 1e-12)
}

func TestValidName(t *testing.T) {
	assert := assert.New(t)

	for _, name := range []string{"x", "theta", "x_1", "_tmp", "θ"} {
		assert.True(ValidName(name), name)
	}
	for _, name := range []string{"", "9x", "a b", "x-y", "x'"} {
		assert.False(ValidName(name), name)
	}
}

func TestSubst(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	y := NewVar("y")
	// substitute y for x in x^2 + x
	e := Add(Pow(x, 2), x).Subst(x, y)

	assert.False(Depends(e, x))
	assert.True(Depends(e, y))

	// substitute a constant: the expression folds to a number
	folded := Add(Pow(x, 2), x).Subst(x, Const(2))
	n, ok := folded.(Num)
	assert.True(ok)
	assert.InDelta(6.0, n.Value(), 1e-12)
}

func TestJacobian(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	y := NewVar("y")
	v := Vector{Mul(x, y), Add(Pow(x, 2), y)}

	j := Jacobian(v, []*Var{x, y})
	r, c := j.Dims()
	assert.Equal(2, r)
	assert.Equal(2, c)

	fn, err := CompileMatrix(j, []*Var{x, y})
	assert.NoError(err)
	got, err := fn([]float64{2, 3})
	assert.NoError(err)

	assert.InDelta(3.0, got.At(0, 0), 1e-12)
	assert.InDelta(2.0, got.At(0, 1), 1e-12)
	assert.InDelta(4.0, got.At(1, 0), 1e-12)
	assert.InDelta(1.0, got.At(1, 1), 1e-12)
}

func TestCompileFreeSymbol(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	y := NewVar("y")

	_, err := Compile(Add(x, y), []*Var{x})
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrInvalidArgument)
}

func TestCompileArgumentChecks(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	y := NewVar("y")

	// variable in two argument lists
	_, err := Compile(Add(x, y), []*Var{x, y}, []*Var{x})
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrInvalidArgument)

	fn, err := Compile(Add(x, y), []*Var{x}, []*Var{y})
	assert.NoError(err)

	// wrong vector count
	_, err = fn([]float64{1})
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrDimensionMismatch)

	// wrong vector length
	_, err = fn([]float64{1, 2}, []float64{3})
	assert.Error(err)
	assert.ErrorIs(err, dynamics.ErrDimensionMismatch)
}

func TestMatrixOps(t *testing.T) {
	assert := assert.New(t)

	x := NewVar("x")
	m := Matrix{{x, Const(1)}, {Const(0), Pow(x, 2)}}

	mt := m.T()
	assert.Equal(x, mt[0][0])
	assert.Equal(x, m[0][0])

	v := m.MulVec(Vector{Const(2), Const(3)})
	fn, err := CompileVector(v, []*Var{x})
	assert.NoError(err)
	got, err := fn([]float64{4})
	assert.NoError(err)
	assert.InDelta(11.0, got.AtVec(0), 1e-12)
	assert.InDelta(48.0, got.AtVec(1), 1e-12)
}
