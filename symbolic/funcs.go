package symbolic

import "math"

// unary is an elementary function applied to an argument expression.
type unary struct {
	name string
	arg  Expr
}

// Sin returns sin(e).
func Sin(e Expr) Expr { return newUnary("sin", e) }

// Cos returns cos(e).
func Cos(e Expr) Expr { return newUnary("cos", e) }

// Tan returns tan(e).
func Tan(e Expr) Expr { return newUnary("tan", e) }

// Exp returns exp(e).
func Exp(e Expr) Expr { return newUnary("exp", e) }

// Log returns the natural logarithm of e.
func Log(e Expr) Expr { return newUnary("log", e) }

// Sqrt returns the square root of e.
func Sqrt(e Expr) Expr { return Pow(e, 0.5) }

var unaryTable = map[string]func(float64) float64{
	"sin": math.Sin,
	"cos": math.Cos,
	"tan": math.Tan,
	"exp": math.Exp,
	"log": math.Log,
}

func newUnary(name string, arg Expr) Expr {
	if n, ok := arg.(Num); ok {
		return Const(unaryTable[name](n.c))
	}
	return &unary{name: name, arg: arg}
}

// chain returns the outer derivative of the function for the chain rule.
func (u *unary) chain() Expr {
	switch u.name {
	case "sin":
		return Cos(u.arg)
	case "cos":
		return Neg(Sin(u.arg))
	case "tan":
		return Pow(Cos(u.arg), -2)
	case "exp":
		return Exp(u.arg)
	case "log":
		return Pow(u.arg, -1)
	}
	panic("symbolic: unknown function " + u.name)
}

func (u *unary) Diff(v *Var) Expr {
	return Mul(u.chain(), u.arg.Diff(v))
}

func (u *unary) Subst(v *Var, e Expr) Expr {
	return newUnary(u.name, u.arg.Subst(v, e))
}

func (u *unary) String() string { return u.name + "(" + u.arg.String() + ")" }

func (u *unary) vars(set map[*Var]struct{}) { u.arg.vars(set) }

func (u *unary) bind(slots map[*Var]int) (evalFn, error) {
	argFn, err := u.arg.bind(slots)
	if err != nil {
		return nil, err
	}
	f := unaryTable[u.name]
	return func(env []float64) float64 { return f(argFn(env)) }, nil
}
