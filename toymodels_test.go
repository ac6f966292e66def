package qls

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/mat"
)

func TestClassicalSolution(t *testing.T) {
	Convey("Given a 2x2 symmetric positive definite system", t, func() {
		// inverse of [[2,1],[1,2]] is 1/3 * [[2,-1],[-1,2]]
		a := mat.NewDense(2, 2, []float64{2, 1, 1, 2})
		b := mat.NewVecDense(2, []float64{3, 3})

		x, err := ClassicalSolution(a, b)

		Convey("It should match the hand computed inverse", func() {
			So(err, ShouldBeNil)
			So(x.AtVec(0), ShouldAlmostEqual, 1, 1e-12)
			So(x.AtVec(1), ShouldAlmostEqual, 1, 1e-12)
		})
	})
}

func TestClassiqDemoExample(t *testing.T) {
	Convey("Given the demo problem", t, func() {
		model := ClassiqDemoExample()

		Convey("It should be a symmetric 2 qubit system", func() {
			So(model.Qubits(), ShouldEqual, 2)
			r, c := model.MatrixA.Dims()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					So(model.MatrixA.At(i, j), ShouldEqual, model.MatrixA.At(j, i))
				}
			}
		})

		Convey("Its classical solution should satisfy Ax=b", func() {
			var lhs mat.VecDense
			lhs.MulVec(model.MatrixA, model.ClassicalSolution)
			for i := 0; i < lhs.Len(); i++ {
				So(lhs.AtVec(i), ShouldAlmostEqual, model.VectorB.AtVec(i), 1e-9)
			}
		})
	})
}

func TestVolterraProblem(t *testing.T) {
	Convey("Given the Volterra problem", t, func() {
		model, err := VolterraProblem(1)
		So(err, ShouldBeNil)

		Convey("It should be Hermitian expanded to twice the dimension", func() {
			r, c := model.MatrixA.Dims()
			So(r, ShouldEqual, 4)
			So(c, ShouldEqual, 4)
			So(IsExpanded(model.MatrixA, model.VectorB), ShouldBeTrue)
			So(model.ClassicalSolution.Len(), ShouldEqual, 2)
		})

		Convey("The expanded system should still encode the original", func() {
			// H (0, x) = (A x, 0) = (b, 0)
			full := mat.NewVecDense(4, nil)
			for i := 0; i < 2; i++ {
				full.SetVec(2+i, model.ClassicalSolution.AtVec(i))
			}
			var lhs mat.VecDense
			lhs.MulVec(model.MatrixA, full)
			for i := 0; i < 2; i++ {
				So(lhs.AtVec(i), ShouldAlmostEqual, model.VectorB.AtVec(i), 1e-9)
			}
			So(lhs.AtVec(2), ShouldAlmostEqual, 0, 1e-9)
			So(lhs.AtVec(3), ShouldAlmostEqual, 0, 1e-9)
		})

		Convey("It should reject a zero qubit request", func() {
			_, err := VolterraProblem(0)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRandomSPDProblem(t *testing.T) {
	Convey("Given the random SPD generator", t, func() {
		Convey("It should be reproducible for a fixed seed", func() {
			m1, err := RandomSPDProblem(2, 42)
			So(err, ShouldBeNil)
			m2, err := RandomSPDProblem(2, 42)
			So(err, ShouldBeNil)
			for i := 0; i < m1.ClassicalSolution.Len(); i++ {
				So(m1.ClassicalSolution.AtVec(i), ShouldEqual, m2.ClassicalSolution.AtVec(i))
			}
		})

		Convey("It should produce a solvable symmetric system", func() {
			m, err := RandomSPDProblem(2, 7)
			So(err, ShouldBeNil)
			So(VerifySpectrum(m.MatrixA), ShouldBeNil)
		})
	})
}

func TestExpandHermitian(t *testing.T) {
	Convey("Given a non symmetric system", t, func() {
		a := mat.NewDense(2, 2, []float64{1, 1, 0, 1})
		b := mat.NewVecDense(2, []float64{1, 2})

		h, eb := ExpandHermitian(a, b)

		Convey("It should build symmetric off diagonal blocks", func() {
			So(h.At(0, 2), ShouldEqual, 1)
			So(h.At(0, 3), ShouldEqual, 1)
			So(h.At(2, 0), ShouldEqual, 1)
			So(h.At(0, 0), ShouldEqual, 0)
			So(h.At(2, 2), ShouldEqual, 0)
		})

		Convey("It should zero pad the right hand side", func() {
			So(eb.AtVec(0), ShouldEqual, 1)
			So(eb.AtVec(1), ShouldEqual, 2)
			So(eb.AtVec(2), ShouldEqual, 0)
			So(eb.AtVec(3), ShouldEqual, 0)
		})

		Convey("IsExpanded should recognize the result", func() {
			So(IsExpanded(h, eb), ShouldBeTrue)
			So(IsExpanded(a, b), ShouldBeFalse)
		})

		Convey("ExtractExpanded should return the second half", func() {
			So(ExtractExpanded([]float64{0, 0, 3, 4}), ShouldResemble, []float64{3, 4})
		})
	})
}
