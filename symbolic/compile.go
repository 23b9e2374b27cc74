package symbolic

import (
	"fmt"

	dynamics "github.com/mechsym/go-dynamics"
	"gonum.org/v1/gonum/mat"
)

// Func is a compiled scalar expression.
type Func func(vals ...[]float64) (float64, error)

// VectorFunc is a compiled expression vector.
type VectorFunc func(vals ...[]float64) (*mat.VecDense, error)

// MatrixFunc is a compiled expression matrix.
type MatrixFunc func(vals ...[]float64) (*mat.Dense, error)

// freeVarError reports a variable that is not covered by any compile
// argument list.
type freeVarError struct {
	v *Var
}

func (e *freeVarError) Error() string {
	return fmt.Sprintf("free symbol %q: %v", e.v.Name(), dynamics.ErrInvalidArgument)
}

func (e *freeVarError) Unwrap() error { return dynamics.ErrInvalidArgument }

// slots assigns every variable of the ordered argument lists a position
// in the flat evaluation environment.
func buildSlots(args [][]*Var) (map[*Var]int, int, error) {
	slots := make(map[*Var]int)
	off := 0
	for _, list := range args {
		for _, v := range list {
			if v == nil {
				return nil, 0, fmt.Errorf("nil variable in argument list: %w", dynamics.ErrInvalidArgument)
			}
			if _, ok := slots[v]; ok {
				return nil, 0, fmt.Errorf("variable %q appears twice in argument lists: %w", v.Name(), dynamics.ErrInvalidArgument)
			}
			slots[v] = off
			off++
		}
	}
	return slots, off, nil
}

// fillEnv validates the numeric argument lists against the compiled
// argument lists and flattens them into env.
func fillEnv(env []float64, args [][]*Var, vals [][]float64) error {
	if len(vals) != len(args) {
		return fmt.Errorf("expected %d argument vectors, got %d: %w", len(args), len(vals), dynamics.ErrDimensionMismatch)
	}
	off := 0
	for i, list := range args {
		if len(vals[i]) != len(list) {
			return fmt.Errorf("argument vector %d: expected %d values, got %d: %w", i, len(list), len(vals[i]), dynamics.ErrDimensionMismatch)
		}
		off += copy(env[off:], vals[i])
	}
	return nil
}

// Compile compiles e into a numeric function of the given ordered
// argument lists. Every variable of e must appear in exactly one list.
func Compile(e Expr, args ...[]*Var) (Func, error) {
	slots, n, err := buildSlots(args)
	if err != nil {
		return nil, err
	}
	fn, err := e.bind(slots)
	if err != nil {
		return nil, err
	}
	return func(vals ...[]float64) (float64, error) {
		env := make([]float64, n)
		if err := fillEnv(env, args, vals); err != nil {
			return 0, err
		}
		return fn(env), nil
	}, nil
}

// CompileVector compiles v into a numeric function returning a column
// vector with one entry per expression.
func CompileVector(v Vector, args ...[]*Var) (VectorFunc, error) {
	slots, n, err := buildSlots(args)
	if err != nil {
		return nil, err
	}
	fns := make([]evalFn, len(v))
	for i, e := range v {
		fn, err := e.bind(slots)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		fns[i] = fn
	}
	return func(vals ...[]float64) (*mat.VecDense, error) {
		env := make([]float64, n)
		if err := fillEnv(env, args, vals); err != nil {
			return nil, err
		}
		out := mat.NewVecDense(len(fns), nil)
		for i, fn := range fns {
			out.SetVec(i, fn(env))
		}
		return out, nil
	}, nil
}

// CompileMatrix compiles m into a numeric function returning a dense
// matrix of the same dimensions.
func CompileMatrix(m Matrix, args ...[]*Var) (MatrixFunc, error) {
	slots, n, err := buildSlots(args)
	if err != nil {
		return nil, err
	}
	r, c := m.Dims()
	fns := make([][]evalFn, r)
	for i := 0; i < r; i++ {
		fns[i] = make([]evalFn, c)
		for j := 0; j < c; j++ {
			fn, err := m[i][j].bind(slots)
			if err != nil {
				return nil, fmt.Errorf("entry (%d,%d): %w", i, j, err)
			}
			fns[i][j] = fn
		}
	}
	return func(vals ...[]float64) (*mat.Dense, error) {
		env := make([]float64, n)
		if err := fillEnv(env, args, vals); err != nil {
			return nil, err
		}
		out := mat.NewDense(r, c, nil)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, j, fns[i][j](env))
			}
		}
		return out, nil
	}, nil
}
