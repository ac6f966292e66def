package qls

import (
	"math"
	"math/cmplx"

	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// signEps absorbs floating noise when comparing |u|+|v| against |u+v|.
const signEps = 1e-9

/*
NormalizeProblem rescales the right-hand side to a unit vector and divides A
by the same factor, so that the ratio A/||b|| seen by the solvers is
preserved. Returns the normalized copies and the applied norm.
*/
func NormalizeProblem(a *mat.Dense, b *mat.VecDense) (*mat.Dense, *mat.VecDense, float64) {
	norm := mat.Norm(b, 2)
	if norm != 1 {
		errnie.Info("normalizing A and b by %v", norm)
	}

	r, c := a.Dims()
	na := mat.NewDense(r, c, nil)
	na.Scale(1/norm, a)

	nb := mat.NewVecDense(b.Len(), nil)
	nb.ScaleVec(1/norm, b)
	return na, nb, norm
}

/*
PostprocessSolution turns a raw solver output into a vector comparable with
the classical solution:

  - rescale so that ||Ax|| matches ||b||,
  - flip the overall sign when any component of Ax disagrees in sign with b,
  - cut the zero padding when the system was Hermitian-expanded.
*/
func PostprocessSolution(a *mat.Dense, b *mat.VecDense, x []float64) []float64 {
	lhs := mat.NewVecDense(len(x), nil)
	lhs.MulVec(a, mat.NewVecDense(len(x), x))

	normalization := mat.Norm(b, 2) / mat.Norm(lhs, 2)
	out := make([]float64, len(x))
	copy(out, x)
	floats.Scale(normalization, out)

	for i := 0; i < b.Len(); i++ {
		if !sameSign(b.AtVec(i), lhs.AtVec(i)) {
			floats.Scale(-1, out)
			break
		}
	}

	if IsExpanded(a, b) {
		out = ExtractExpanded(out)
	}
	return out
}

// sameSign reports whether u and v do not point in opposite directions,
// using the |u|+|v| == |u+v| identity with a floating tolerance.
func sameSign(u, v float64) bool {
	return math.Abs(math.Abs(u)+math.Abs(v)-math.Abs(u+v)) <= signEps
}

/*
GlobalPhaseCorrection removes the global phase of a measured amplitude
vector and returns its real part. The phase is taken from the component of
largest magnitude so that the relative sign structure survives.
*/
func GlobalPhaseCorrection(q []complex128) []float64 {
	var phase float64
	var largest float64
	for _, v := range q {
		if a := cmplx.Abs(v); a > largest {
			largest = a
			phase = cmplx.Phase(v)
		}
	}
	rot := cmplx.Exp(complex(0, -phase))
	out := make([]float64, len(q))
	for i, v := range q {
		out[i] = real(v * rot)
	}
	return out
}

// RelativeDistance is ||ref - got|| / ||ref||.
func RelativeDistance(ref, got []float64) float64 {
	if len(ref) != len(got) {
		return math.Inf(1)
	}
	var num, den float64
	for i := range ref {
		d := ref[i] - got[i]
		num += d * d
		den += ref[i] * ref[i]
	}
	return math.Sqrt(num) / math.Sqrt(den)
}

// UnitVector returns x scaled to unit Euclidean norm.
func UnitVector(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	if n := floats.Norm(out, 2); n != 0 {
		floats.Scale(1/n, out)
	}
	return out
}
