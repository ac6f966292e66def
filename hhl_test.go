package qls

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/mat"
)

func TestBuildHHLModel(t *testing.T) {
	Convey("Given the HHL model builder", t, func() {
		demo := ClassiqDemoExample()

		Convey("It should assemble the synthesis model", func() {
			model, _, nb, wMin, err := BuildHHLModel(demo.MatrixA, demo.VectorB, 4)
			So(err, ShouldBeNil)
			So(wMin, ShouldAlmostEqual, 0.0625, 1e-12)
			So(model.WMin(), ShouldAlmostEqual, wMin, 1e-12)
			So(model.QPE.Precision, ShouldEqual, 4)
			So(model.QPE.Exponentiation.EvolutionCoefficient, ShouldAlmostEqual, -2*math.Pi, 1e-12)
			So(model.AmplitudeLoading.Expression, ShouldEqual, "0.0625/(x)")
			So(model.AmplitudeLoading.Implementation, ShouldEqual, "GRAYCODE")
			So(model.ReleaseByInverse, ShouldBeTrue)

			Convey("The prepared amplitudes should be the unit right hand side", func() {
				var norm float64
				for _, amp := range model.StatePreparation.Amplitudes {
					norm += amp * amp
				}
				So(math.Sqrt(norm), ShouldAlmostEqual, 1, 1e-12)
				So(mat.Norm(nb, 2), ShouldAlmostEqual, 1, 1e-12)
			})
		})

		Convey("It should serialize to the service wire format", func() {
			model, _, _, _, err := BuildHHLModel(demo.MatrixA, demo.VectorB, 4)
			So(err, ShouldBeNil)
			data, err := model.Serialize()
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"state_preparation"`)
			So(string(data), ShouldContainSubstring, `"pauli_terms"`)
			So(string(data), ShouldContainSubstring, `"GRAYCODE"`)
		})

		Convey("It should reject a non positive precision", func() {
			_, _, _, _, err := BuildHHLModel(demo.MatrixA, demo.VectorB, 0)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVerifySpectrum(t *testing.T) {
	Convey("Given the spectrum check", t, func() {
		Convey("It should accept the demo matrix", func() {
			So(VerifySpectrum(ClassiqDemoExample().MatrixA), ShouldBeNil)
		})

		Convey("It should reject a non symmetric matrix", func() {
			err := VerifySpectrum(mat.NewDense(2, 2, []float64{1, 1, 0, 1}))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not symmetric")
		})

		Convey("It should reject negative eigenvalues", func() {
			err := VerifySpectrum(mat.NewDense(2, 2, []float64{1, 0, 0, -1}))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "negative eigenvalues")
		})
	})
}

func TestIdealSynthesizer(t *testing.T) {
	Convey("Given the ideal synthesizer", t, func() {
		ctx := context.Background()
		demo := ClassiqDemoExample()
		model, _, _, _, err := BuildHHLModel(demo.MatrixA, demo.VectorB, 4)
		So(err, ShouldBeNil)

		Convey("It should lay out the registers", func() {
			circuit, err := IdealSynthesizer{}.Synthesize(ctx, model)
			So(err, ShouldBeNil)
			// 2 solution + 4 phase + 1 target
			So(circuit.TotalQubits, ShouldEqual, 7)
			So(circuit.Qubits(), ShouldEqual, 7)
			So(circuit.OutputQubits["solution"], ShouldResemble, []int{0, 1})
			So(circuit.OutputQubits["target"], ShouldResemble, []int{6})
			So(circuit.WMin, ShouldAlmostEqual, 0.0625, 1e-12)
		})

		Convey("Its statevector should stay normalized", func() {
			circuit, err := IdealSynthesizer{}.Synthesize(ctx, model)
			So(err, ShouldBeNil)
			result, err := circuit.idealResult()
			So(err, ShouldBeNil)
			var norm float64
			for _, amp := range result.StateVector {
				norm += real(amp)*real(amp) + imag(amp)*imag(amp)
			}
			So(norm, ShouldAlmostEqual, 1, 1e-9)
		})

		Convey("It should refuse a model it did not build", func() {
			_, err := IdealSynthesizer{}.Synthesize(ctx, &HHLModel{})
			So(err, ShouldNotBeNil)
		})

		Convey("A remotely decoded artifact carries no statevector", func() {
			remote := &SynthesizedCircuit{TotalQubits: 7}
			_, err := remote.idealResult()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSolveHHL(t *testing.T) {
	Convey("Given the full HHL pipeline on the local backend", t, func() {
		ctx := context.Background()

		Convey("It should recover the demo solution", func() {
			result, err := SolveHHL(ctx, ClassiqDemoExample(), 4, IdealSynthesizer{}, NewLocalBackend())
			So(err, ShouldBeNil)
			So(len(result.Solution), ShouldEqual, 4)
			So(result.RelativeDistance, ShouldBeLessThan, 1e-3)
			So(result.Width, ShouldEqual, 7)
		})

		Convey("It should cut the padding of the expanded Volterra system", func() {
			model, err := VolterraProblem(1)
			So(err, ShouldBeNil)

			result, err := SolveHHL(ctx, model, 4, IdealSynthesizer{}, NewLocalBackend())
			So(err, ShouldBeNil)
			So(len(result.Solution), ShouldEqual, 2)
			So(result.RelativeDistance, ShouldBeLessThan, 1e-3)
		})
	})
}

func TestRemoteSynthesizer(t *testing.T) {
	Convey("Given a remote synthesis service", t, func() {
		ctx := context.Background()
		demo := ClassiqDemoExample()
		model, _, _, _, err := BuildHHLModel(demo.MatrixA, demo.VectorB, 4)
		So(err, ShouldBeNil)

		Convey("It should decode the returned artifact", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				So(r.URL.Path, ShouldEqual, "/synthesize")
				So(r.Header.Get("Authorization"), ShouldEqual, "Bearer key-1")
				fmt.Fprint(w, `{"total_qubits":7,"depth":800,"output_qubits":{"solution":[0,1],"target":[6]},"w_min":0.0625}`)
			}))
			defer server.Close()

			synth := &RemoteSynthesizer{BaseURL: server.URL, APIKey: "key-1"}
			circuit, err := synth.Synthesize(ctx, model)
			So(err, ShouldBeNil)
			So(circuit.TotalQubits, ShouldEqual, 7)
			So(circuit.WMin, ShouldAlmostEqual, 0.0625, 1e-12)
		})

		Convey("It should retry service-side failures", func() {
			var calls int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				fmt.Fprint(w, `{"total_qubits":7,"depth":800,"output_qubits":{},"w_min":0.0625}`)
			}))
			defer server.Close()

			synth := &RemoteSynthesizer{
				BaseURL: server.URL,
				Retry:   &RetryPolicy{MaxAttempts: 3, Strategy: &ExponentialBackoff{Initial: time.Millisecond}, Filter: retryableSynthesisError},
			}
			_, err := synth.Synthesize(ctx, model)
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 2)
		})

		Convey("It should fail immediately on a rejected model", func() {
			var calls int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusBadRequest)
			}))
			defer server.Close()

			synth := &RemoteSynthesizer{BaseURL: server.URL}
			_, err := synth.Synthesize(ctx, model)
			So(err, ShouldNotBeNil)
			So(calls, ShouldEqual, 1)
		})
	})
}

func TestSolutionFromResult(t *testing.T) {
	Convey("Given a raw execution result", t, func() {
		result := &ExecutionResult{
			StateVector: map[string]complex128{
				"001": 0.3,
				"101": 0.4,
			},
			OutputQubits: map[string][]int{
				"solution": {0},
				"target":   {2},
			},
		}

		Convey("It should rescale the post selected amplitudes by wmin", func() {
			qsol, err := SolutionFromResult(result, 0.5, 2)
			So(err, ShouldBeNil)
			So(qsol[0], ShouldAlmostEqual, 0.6, 1e-9)
			So(qsol[1], ShouldAlmostEqual, 0.8, 1e-9)
		})

		Convey("It should demand both output registers", func() {
			_, err := SolutionFromResult(&ExecutionResult{
				OutputQubits: map[string][]int{"target": {2}},
			}, 0.5, 2)
			So(err, ShouldNotBeNil)

			_, err = SolutionFromResult(&ExecutionResult{
				OutputQubits: map[string][]int{"solution": {0}},
			}, 0.5, 2)
			So(err, ShouldNotBeNil)
		})

		Convey("It should demand a statevector", func() {
			_, err := SolutionFromResult(&ExecutionResult{
				OutputQubits: map[string][]int{"solution": {0}, "target": {2}},
			}, 0.5, 2)
			So(err, ShouldNotBeNil)
		})
	})
}
