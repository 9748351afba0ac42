package ad

import (
	"fmt"
	"math"
)

// Active is a value augmented with derivative directions.
// A nil derivative slice means all directions are zero. Products are
// explicitly rounded so the value part matches Real bit for bit.
type Active struct {
	val  float64
	grad []float64
}

// Var returns an Active with value v seeded in direction dir out of nDir.
func Var(v float64, nDir, dir int) Active {
	g := make([]float64, nDir)
	g[dir] = 1
	return Active{val: v, grad: g}
}

// NewActive returns an Active with the given value and derivative directions.
// The directions are copied.
func NewActive(v float64, grad ...float64) Active {
	if len(grad) == 0 {
		return Active{val: v}
	}
	g := make([]float64, len(grad))
	copy(g, grad)
	return Active{val: v, grad: g}
}

// Const returns an Active without derivative directions.
func Const(v float64) Active { return Active{val: v} }

func (a Active) Value() float64 { return a.val }

// Dirs returns the number of stored derivative directions.
func (a Active) Dirs() int { return len(a.grad) }

// Deriv returns the derivative in direction dir.
func (a Active) Deriv(dir int) float64 {
	if dir < 0 || dir >= len(a.grad) {
		return 0
	}
	return a.grad[dir]
}

// WithValue returns a copy with the value replaced and directions kept,
// which preserves seed vectors when the state is overwritten.
func (a Active) WithValue(v float64) Active {
	return Active{val: v, grad: a.grad}
}

// WithDeriv returns a copy with direction dir set to d.
func (a Active) WithDeriv(dir int, d float64) Active {
	n := len(a.grad)
	if dir >= n {
		n = dir + 1
	}
	g := make([]float64, n)
	copy(g, a.grad)
	g[dir] = d
	return Active{val: a.val, grad: g}
}

func (a Active) String() string {
	return fmt.Sprintf("%g%v", a.val, a.grad)
}

// combine returns da*a.grad + db*b.grad. Coefficients of operands without
// directions are never touched, so a NaN coefficient cannot leak into a
// direction that is structurally zero.
func combine(a Active, da float64, b Active, db float64) []float64 {
	na, nb := len(a.grad), len(b.grad)
	if na == 0 && nb == 0 {
		return nil
	}
	n := na
	if nb > n {
		n = nb
	}
	g := make([]float64, n)
	for i := 0; i < na; i++ {
		g[i] = da * a.grad[i]
	}
	for i := 0; i < nb; i++ {
		g[i] += db * b.grad[i]
	}
	return g
}

func scaled(a Active, s float64) []float64 {
	if len(a.grad) == 0 {
		return nil
	}
	g := make([]float64, len(a.grad))
	for i, d := range a.grad {
		g[i] = s * d
	}
	return g
}

func (a Active) Add(b Active) Active {
	return Active{val: a.val + b.val, grad: combine(a, 1, b, 1)}
}

func (a Active) Sub(b Active) Active {
	return Active{val: a.val - b.val, grad: combine(a, 1, b, -1)}
}

func (a Active) Mul(b Active) Active {
	return Active{val: float64(a.val * b.val), grad: combine(a, b.val, b, a.val)}
}

func (a Active) Div(b Active) Active {
	v := a.val / b.val
	return Active{val: v, grad: combine(a, 1/b.val, b, -v/b.val)}
}

func (a Active) Neg() Active { return Active{val: -a.val, grad: scaled(a, -1)} }

func (a Active) Scale(s float64) Active { return Active{val: float64(a.val * s), grad: scaled(a, s)} }

func (a Active) AddConst(c float64) Active { return Active{val: a.val + c, grad: scaled(a, 1)} }

// Pow computes a^b with d(a^b) = b a^(b-1) da + a^b ln(a) db.
func (a Active) Pow(b Active) Active {
	v := math.Pow(a.val, b.val)
	var db float64
	if len(b.grad) > 0 {
		db = v * math.Log(a.val)
	}
	var da float64
	if len(a.grad) > 0 {
		da = b.val * math.Pow(a.val, b.val-1)
	}
	return Active{val: v, grad: combine(a, da, b, db)}
}

func (a Active) PowConst(b float64) Active {
	return Active{val: math.Pow(a.val, b), grad: scaled(a, b*math.Pow(a.val, b-1))}
}

func (a Active) Exp() Active {
	v := math.Exp(a.val)
	return Active{val: v, grad: scaled(a, v)}
}

func (a Active) Log() Active {
	return Active{val: math.Log(a.val), grad: scaled(a, 1/a.val)}
}

func (Active) Const(v float64) Active { return Const(v) }

// Values extracts the values of xs into dst.
func Values(dst []float64, xs []Active) {
	for i, x := range xs {
		dst[i] = x.val
	}
}

// Seed returns Active copies of x where x[i] is seeded in direction offset+i.
func Seed(x []float64, nDir, offset int) []Active {
	out := make([]Active, len(x))
	for i, v := range x {
		out[i] = Var(v, nDir, offset+i)
	}
	return out
}

// CopyToActive overwrites the values of dst with x, keeping seed vectors.
func CopyToActive(dst []Active, x []float64) {
	for i, v := range x {
		dst[i] = dst[i].WithValue(v)
	}
}

// ToActive lifts plain values into constants without directions.
func ToActive(x []float64) []Active {
	out := make([]Active, len(x))
	for i, v := range x {
		out[i] = Const(v)
	}
	return out
}
