package qls

import (
	"fmt"
	"math/bits"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

/*
ToyModel is a small linear system Ax=b together with its classical reference
solution. MatrixA is Hermitian with power-of-two dimension, possibly obtained
by expanding a non-symmetric system (see ExpandHermitian); in that case
ClassicalSolution keeps the dimension of the original system and quantum
solutions are compared against it after extraction.
*/
type ToyModel struct {
	Name              string
	MatrixA           *mat.Dense
	VectorB           *mat.VecDense
	ClassicalSolution *mat.VecDense
}

// Qubits returns the number of qubits needed to represent the solution
// register of the (possibly expanded) system.
func (tm *ToyModel) Qubits() int {
	r, _ := tm.MatrixA.Dims()
	return bits.TrailingZeros(uint(r))
}

/*
ClassiqDemoExample is the 4x4 demo system used across the harness: a well
conditioned symmetric matrix with eigenvalues inside (0,1).
*/
func ClassiqDemoExample() *ToyModel {
	a := mat.NewDense(4, 4, []float64{
		0.28, -0.01, 0.02, -0.1,
		-0.01, 0.5, -0.22, -0.07,
		0.02, -0.22, 0.43, -0.05,
		-0.1, -0.07, -0.05, 0.42,
	})
	b := mat.NewVecDense(4, []float64{1, 2, 4, 3})
	sol, err := ClassicalSolution(a, b)
	if err != nil {
		panic(err) // the demo matrix is invertible
	}
	return &ToyModel{
		Name:              "ClassiqDemo",
		MatrixA:           a,
		VectorB:           b,
		ClassicalSolution: sol,
	}
}

/*
VolterraProblem discretizes a Volterra integral equation of the second kind,
x(t) + integral_0^t x(s) ds = 1, on 2^n points with the trapezoidal rule. The
resulting lower-triangular system is not symmetric, so it is expanded into a
Hermitian one of twice the dimension; the classical solution keeps the
original dimension.
*/
func VolterraProblem(n int) (*ToyModel, error) {
	if n < 1 {
		return nil, fmt.Errorf("volterra problem needs at least one qubit, got %d", n)
	}
	dim := 1 << n
	h := 1.0 / float64(dim-1)

	a := mat.NewDense(dim, dim, nil)
	b := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		b.SetVec(i, 1)
		for j := 0; j <= i; j++ {
			// trapezoidal weights: half at the interval ends
			w := 1.0
			if j == 0 || j == i {
				w = 0.5
			}
			if i == 0 {
				w = 0
			}
			v := h * w
			if j == i {
				v++
			}
			a.Set(i, j, v)
		}
	}

	sol, err := ClassicalSolution(a, b)
	if err != nil {
		return nil, err
	}
	expandedA, expandedB := ExpandHermitian(a, b)
	return &ToyModel{
		Name:              fmt.Sprintf("Volterra(%d)", n),
		MatrixA:           expandedA,
		VectorB:           expandedB,
		ClassicalSolution: sol,
	}, nil
}

/*
RandomSPDProblem builds a reproducible symmetric positive-definite system of
dimension 2^n, useful for scaling experiments beyond the fixed demo.
*/
func RandomSPDProblem(n int, seed int64) (*ToyModel, error) {
	if n < 1 {
		return nil, fmt.Errorf("random SPD problem needs at least one qubit, got %d", n)
	}
	dim := 1 << n
	rng := rand.New(rand.NewSource(seed))

	m := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			m.Set(i, j, rng.NormFloat64())
		}
	}
	// A = M^T M + dim*I is SPD
	a := mat.NewDense(dim, dim, nil)
	a.Mul(m.T(), m)
	for i := 0; i < dim; i++ {
		a.Set(i, i, a.At(i, i)+float64(dim))
	}

	b := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		b.SetVec(i, rng.NormFloat64())
	}

	sol, err := ClassicalSolution(a, b)
	if err != nil {
		return nil, err
	}
	return &ToyModel{
		Name:              fmt.Sprintf("RandomSPD(%d,%d)", n, seed),
		MatrixA:           a,
		VectorB:           b,
		ClassicalSolution: sol,
	}, nil
}

/*
ClassicalSolution computes x = A^-1 b with a dense LU solve. It is the
comparison baseline for every quantum solution in this harness.
*/
func ClassicalSolution(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("classical solve failed: %w", err)
	}
	return &x, nil
}

/*
ExpandHermitian embeds a non-symmetric system Ax=b into the Hermitian system
H = [[0, A], [A^T, 0]], b' = (b, 0). The solution of the expanded system is
(0, x), so ExtractExpanded recovers x from its second half.
*/
func ExpandHermitian(a *mat.Dense, b *mat.VecDense) (*mat.Dense, *mat.VecDense) {
	r, c := a.Dims()
	h := mat.NewDense(r+c, r+c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			h.Set(i, r+j, a.At(i, j))
			h.Set(r+j, i, a.At(i, j))
		}
	}
	eb := mat.NewVecDense(r+c, nil)
	for i := 0; i < b.Len(); i++ {
		eb.SetVec(i, b.AtVec(i))
	}
	return h, eb
}

/*
IsExpanded reports whether the system looks like the output of
ExpandHermitian: zero diagonal blocks and a zero tail on b.
*/
func IsExpanded(a *mat.Dense, b *mat.VecDense) bool {
	dim, _ := a.Dims()
	if dim%2 != 0 || b.Len() != dim {
		return false
	}
	half := dim / 2
	for i := half; i < dim; i++ {
		if b.AtVec(i) != 0 {
			return false
		}
	}
	for i := 0; i < half; i++ {
		for j := 0; j < half; j++ {
			if a.At(i, j) != 0 || a.At(half+i, half+j) != 0 {
				return false
			}
		}
	}
	return true
}

// ExtractExpanded cuts the zero-padded half off an expanded solution vector.
func ExtractExpanded(x []float64) []float64 {
	return x[len(x)/2:]
}

// extractExpandedComplex is ExtractExpanded before phase correction.
func extractExpandedComplex(x []complex128) []complex128 {
	return x[len(x)/2:]
}
