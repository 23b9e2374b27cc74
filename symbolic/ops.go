package symbolic

import (
	"math"
	"strings"
)

// sum is a flattened sum of terms.
type sum struct {
	terms []Expr
}

// Add returns the sum of terms. Nested sums are flattened, constants are
// folded and zero terms dropped.
func Add(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	c := 0.0
	for _, t := range terms {
		switch v := t.(type) {
		case Num:
			c += v.c
		case *sum:
			for _, inner := range v.terms {
				if n, ok := inner.(Num); ok {
					c += n.c
					continue
				}
				flat = append(flat, inner)
			}
		default:
			flat = append(flat, t)
		}
	}
	if c != 0 {
		flat = append(flat, Const(c))
	}
	switch len(flat) {
	case 0:
		return Const(0)
	case 1:
		return flat[0]
	}
	return &sum{terms: flat}
}

// Sub returns a - b.
func Sub(a, b Expr) Expr { return Add(a, Neg(b)) }

// Neg returns -e.
func Neg(e Expr) Expr { return Mul(Const(-1), e) }

func (s *sum) Diff(v *Var) Expr {
	d := make([]Expr, len(s.terms))
	for i, t := range s.terms {
		d[i] = t.Diff(v)
	}
	return Add(d...)
}

func (s *sum) Subst(v *Var, e Expr) Expr {
	out := make([]Expr, len(s.terms))
	for i, t := range s.terms {
		out[i] = t.Subst(v, e)
	}
	return Add(out...)
}

func (s *sum) String() string {
	parts := make([]string, len(s.terms))
	for i, t := range s.terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (s *sum) vars(set map[*Var]struct{}) {
	for _, t := range s.terms {
		t.vars(set)
	}
}

func (s *sum) bind(slots map[*Var]int) (evalFn, error) {
	fns := make([]evalFn, len(s.terms))
	for i, t := range s.terms {
		fn, err := t.bind(slots)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return func(env []float64) float64 {
		acc := 0.0
		for _, fn := range fns {
			acc += fn(env)
		}
		return acc
	}, nil
}

// product is a flattened product of factors.
type product struct {
	factors []Expr
}

// Mul returns the product of factors. Nested products are flattened,
// constants folded, and a zero factor annihilates the product.
func Mul(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	c := 1.0
	for _, f := range factors {
		switch v := f.(type) {
		case Num:
			c *= v.c
		case *product:
			for _, inner := range v.factors {
				if n, ok := inner.(Num); ok {
					c *= n.c
					continue
				}
				flat = append(flat, inner)
			}
		default:
			flat = append(flat, f)
		}
	}
	if c == 0 {
		return Const(0)
	}
	if c != 1 {
		flat = append([]Expr{Const(c)}, flat...)
	}
	switch len(flat) {
	case 0:
		return Const(1)
	case 1:
		return flat[0]
	}
	return &product{factors: flat}
}

// Div returns a / b.
func Div(a, b Expr) Expr { return Mul(a, Pow(b, -1)) }

func (p *product) Diff(v *Var) Expr {
	// product rule: sum over factors of the derivative of one factor
	// times the remaining factors
	terms := make([]Expr, 0, len(p.factors))
	for i := range p.factors {
		fs := make([]Expr, 0, len(p.factors))
		fs = append(fs, p.factors[:i]...)
		fs = append(fs, p.factors[i].Diff(v))
		fs = append(fs, p.factors[i+1:]...)
		terms = append(terms, Mul(fs...))
	}
	return Add(terms...)
}

func (p *product) Subst(v *Var, e Expr) Expr {
	out := make([]Expr, len(p.factors))
	for i, f := range p.factors {
		out[i] = f.Subst(v, e)
	}
	return Mul(out...)
}

func (p *product) String() string {
	parts := make([]string, len(p.factors))
	for i, f := range p.factors {
		parts[i] = f.String()
	}
	return strings.Join(parts, "*")
}

func (p *product) vars(set map[*Var]struct{}) {
	for _, f := range p.factors {
		f.vars(set)
	}
}

func (p *product) bind(slots map[*Var]int) (evalFn, error) {
	fns := make([]evalFn, len(p.factors))
	for i, f := range p.factors {
		fn, err := f.bind(slots)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return func(env []float64) float64 {
		acc := 1.0
		for _, fn := range fns {
			acc *= fn(env)
		}
		return acc
	}, nil
}

// power raises a base expression to a constant real exponent.
type power struct {
	base Expr
	exp  float64
}

// Pow returns base raised to the constant exponent exp.
func Pow(base Expr, exp float64) Expr {
	if exp == 0 {
		return Const(1)
	}
	if exp == 1 {
		return base
	}
	switch v := base.(type) {
	case Num:
		return Const(math.Pow(v.c, exp))
	case *power:
		return Pow(v.base, v.exp*exp)
	}
	return &power{base: base, exp: exp}
}

func (p *power) Diff(v *Var) Expr {
	// d(b^n)/dv = n * b^(n-1) * db/dv
	return Mul(Const(p.exp), Pow(p.base, p.exp-1), p.base.Diff(v))
}

func (p *power) Subst(v *Var, e Expr) Expr {
	return Pow(p.base.Subst(v, e), p.exp)
}

func (p *power) String() string {
	return p.base.String() + "^" + Num{c: p.exp}.String()
}

func (p *power) vars(set map[*Var]struct{}) { p.base.vars(set) }

func (p *power) bind(slots map[*Var]int) (evalFn, error) {
	fn, err := p.base.bind(slots)
	if err != nil {
		return nil, err
	}
	exp := p.exp
	switch exp {
	case 2:
		return func(env []float64) float64 { b := fn(env); return b * b }, nil
	case -1:
		return func(env []float64) float64 { return 1 / fn(env) }, nil
	}
	return func(env []float64) float64 { return math.Pow(fn(env), exp) }, nil
}
