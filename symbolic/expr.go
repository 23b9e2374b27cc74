// Package symbolic implements a small symbolic algebra kernel: scalar
// expressions over named real variables, partial differentiation,
// substitution and compilation into numeric functions.
//
// Expressions are immutable. Constructors simplify on build, so an
// expression whose value is identically zero folds to the zero constant.
package symbolic

import (
	"strconv"
	"unicode"
)

// Expr is a scalar symbolic expression over real variables.
type Expr interface {
	// Diff returns the partial derivative of the expression with respect to v
	Diff(v *Var) Expr
	// Subst returns the expression with every occurrence of v replaced by e
	Subst(v *Var, e Expr) Expr
	// String returns a human readable form of the expression
	String() string

	// vars adds every variable referenced by the expression to set
	vars(set map[*Var]struct{})
	// bind resolves variables to environment slots and returns an evaluator
	bind(slots map[*Var]int) (evalFn, error)
}

// evalFn evaluates a bound expression against a flat environment.
type evalFn func(env []float64) float64

// Num is a numeric constant.
type Num struct {
	c float64
}

// Const returns a constant expression with value c.
func Const(c float64) Num {
	return Num{c: c}
}

// Value returns the constant value.
func (n Num) Value() float64 { return n.c }

// Diff returns the zero constant.
func (n Num) Diff(*Var) Expr { return Const(0) }

// Subst returns the constant unchanged.
func (n Num) Subst(*Var, Expr) Expr { return n }

func (n Num) String() string { return strconv.FormatFloat(n.c, 'g', -1, 64) }

func (n Num) vars(map[*Var]struct{}) {}

func (n Num) bind(map[*Var]int) (evalFn, error) {
	c := n.c
	return func([]float64) float64 { return c }, nil
}

// Var is a named real-valued variable. Two variables are the same
// only if they are the same instance: names are labels, not identity.
type Var struct {
	name string
}

// NewVar creates a fresh variable labelled name. Every call returns a
// distinct variable, regardless of the label.
func NewVar(name string) *Var {
	return &Var{name: name}
}

// Name returns the variable label.
func (v *Var) Name() string { return v.name }

// Diff returns 1 if x is this variable, 0 otherwise.
func (v *Var) Diff(x *Var) Expr {
	if v == x {
		return Const(1)
	}
	return Const(0)
}

// Subst returns e if x is this variable, the variable itself otherwise.
func (v *Var) Subst(x *Var, e Expr) Expr {
	if v == x {
		return e
	}
	return v
}

func (v *Var) String() string { return v.name }

func (v *Var) vars(set map[*Var]struct{}) { set[v] = struct{}{} }

func (v *Var) bind(slots map[*Var]int) (evalFn, error) {
	i, ok := slots[v]
	if !ok {
		return nil, &freeVarError{v: v}
	}
	return func(env []float64) float64 { return env[i] }, nil
}

// ValidName reports whether name is a well formed variable name: a
// letter or underscore followed by letters, digits or underscores.
// NewVar accepts any label; this is the rule the assembler packages
// apply to user supplied names.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if unicode.IsLetter(r) || r == '_' {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// IsZero reports whether e simplified to the zero constant.
func IsZero(e Expr) bool {
	n, ok := e.(Num)
	return ok && n.c == 0
}

// Vars returns every variable referenced by e.
func Vars(e Expr) []*Var {
	set := make(map[*Var]struct{})
	e.vars(set)
	vs := make([]*Var, 0, len(set))
	for v := range set {
		vs = append(vs, v)
	}
	return vs
}

// Depends reports whether e references v.
func Depends(e Expr, v *Var) bool {
	set := make(map[*Var]struct{})
	e.vars(set)
	_, ok := set[v]
	return ok
}
