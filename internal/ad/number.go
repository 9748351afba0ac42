// Package ad implements forward-mode algorithmic differentiation.
//
// A constitutive formula is written once as a generic function over [Number]
// and instantiated twice: with [Real] for plain value assembly and with
// [Active] to propagate derivative directions. An [Active] operand combined
// with one that carries no directions yields an [Active] result whose missing
// directions are treated as zero.
package ad

import "math"

// Number is the arithmetic surface a constitutive formula may use.
type Number[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Scale(float64) T
	AddConst(float64) T
	Pow(T) T
	PowConst(float64) T
	Exp() T
	Log() T
	// Const lifts a plain value into the receiver's type. It is called on the
	// zero value, so implementations must not depend on the receiver.
	Const(float64) T
	Value() float64
}

// Lift converts v into a constant of type T.
func Lift[T Number[T]](v float64) T {
	var z T
	return z.Const(v)
}

// LiftAll converts a plain slice into constants of type T.
func LiftAll[T Number[T]](v []float64) []T {
	out := make([]T, len(v))
	for i, x := range v {
		out[i] = Lift[T](x)
	}
	return out
}

// Real is a plain float64 satisfying [Number].
type Real float64

func (a Real) Add(b Real) Real         { return Real(float64(a) + float64(b)) }
func (a Real) Sub(b Real) Real         { return Real(float64(a) - float64(b)) }
func (a Real) Mul(b Real) Real         { return Real(float64(a) * float64(b)) }
func (a Real) Div(b Real) Real         { return Real(float64(a) / float64(b)) }
func (a Real) Neg() Real               { return -a }
func (a Real) Scale(s float64) Real    { return Real(float64(a) * s) }
func (a Real) AddConst(c float64) Real { return Real(float64(a) + c) }
func (a Real) Pow(b Real) Real         { return Real(math.Pow(float64(a), float64(b))) }
func (a Real) PowConst(b float64) Real { return Real(math.Pow(float64(a), b)) }
func (a Real) Exp() Real               { return Real(math.Exp(float64(a))) }
func (a Real) Log() Real               { return Real(math.Log(float64(a))) }
func (Real) Const(v float64) Real      { return Real(v) }
func (a Real) Value() float64          { return float64(a) }

// Reals copies a float64 slice into Real values.
func Reals(v []float64) []Real {
	out := make([]Real, len(v))
	for i, x := range v {
		out[i] = Real(x)
	}
	return out
}

// Floats copies Real values back into dst.
func Floats(dst []float64, v []Real) {
	for i, x := range v {
		dst[i] = float64(x)
	}
}
