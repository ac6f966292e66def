package qls

import (
	"fmt"
	"log"
	"math/cmplx"
	"time"

	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

/*
VQLSLog collects the optimization trace: one cost value and one parameter
vector per evaluation. Pass its Update method as the solver callback.
*/
type VQLSLog struct {
	CostHistory []float64
	Parameters  [][]float64
}

// Update appends one optimizer evaluation to the log.
func (l *VQLSLog) Update(cost float64, params []float64) {
	l.CostHistory = append(l.CostHistory, cost)
	cp := make([]float64, len(params))
	copy(cp, params)
	l.Parameters = append(l.Parameters, cp)
}

/*
VQLS is the Variational Quantum Linear Solver: a parameterized ansatz is
optimized classically so that A applied to the prepared state aligns with b.
The cost is the global one, 1 - |<b|A|psi>|^2 / ||A|psi>||^2; derivative-free
Nelder-Mead stands in for COBYLA.
*/
type VQLS struct {
	Ansatz            *RealAmplitudes
	MaxIter           int
	InitialParameters []float64
	Callback          func(cost float64, params []float64)
}

// NewVQLS uses the defaults the harness runs with everywhere: a
// RealAmplitudes ansatz sized to the system and 250 iterations.
func NewVQLS(ansatz *RealAmplitudes) *VQLS {
	return &VQLS{Ansatz: ansatz, MaxIter: 250}
}

/*
VQLSResult carries the post-processed solution plus everything the drivers
report: the QASM artifact, circuit shape, final cost and runtime.
*/
type VQLSResult struct {
	Solution   []float64
	RawState   []float64
	QASM       string
	Depth      int
	Width      int
	Cost       float64
	Iterations int
	Runtime    time.Duration
	Metrics    *RunMetrics
}

/*
Solve runs the variational loop for the system Ax=b and returns the
post-processed solution. A must be square with the same dimension as b and
as the ansatz state space.
*/
func (v *VQLS) Solve(a *mat.Dense, b *mat.VecDense) (*VQLSResult, error) {
	start := time.Now()

	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("matrix is not square")
	}
	if b.Len() != r {
		return nil, fmt.Errorf("vector b has dimension %d, matrix has %d", b.Len(), r)
	}
	if dim := 1 << v.Ansatz.NumQubits; dim != r {
		return nil, fmt.Errorf("ansatz prepares %d amplitudes, system has %d", dim, r)
	}

	metrics := NewRunMetrics("vqls")
	bhat := UnitVector(rawVec(b))

	cost := func(params []float64) float64 {
		value := v.costAt(a, bhat, params)
		metrics.RecordIteration(value)
		if v.Callback != nil {
			v.Callback(value, params)
		}
		return value
	}

	x0 := v.InitialParameters
	if x0 == nil {
		x0 = make([]float64, v.Ansatz.NumParameters())
	}

	problem := optimize.Problem{Func: cost}
	settings := &optimize.Settings{
		MajorIterations: v.MaxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		if res == nil {
			return nil, fmt.Errorf("vqls optimization failed: %w", err)
		}
		log.Printf("optimizer stopped early: %v", err)
	}
	errnie.Info("vqls converged to cost %v after %d iterations", res.F, res.Stats.MajorIterations)

	circuit, err := v.Ansatz.Bind(res.X)
	if err != nil {
		return nil, err
	}
	amps, err := Statevector(circuit)
	if err != nil {
		return nil, err
	}
	raw := make([]float64, len(amps))
	for i, amp := range amps {
		raw[i] = real(amp)
	}

	solution := PostprocessSolution(a, b, raw)

	metrics.RecordCircuit(circuit.Depth(), circuit.Width())
	metrics.RecordRuntime(time.Since(start))

	return &VQLSResult{
		Solution:   solution,
		RawState:   raw,
		QASM:       circuit.QASM(),
		Depth:      circuit.Depth(),
		Width:      circuit.Width(),
		Cost:       res.F,
		Iterations: res.Stats.MajorIterations,
		Runtime:    time.Since(start),
		Metrics:    metrics,
	}, nil
}

// costAt evaluates the global cost for one parameter vector. Invalid
// parameter counts and degenerate states cost the maximum, 1.
func (v *VQLS) costAt(a *mat.Dense, bhat []float64, params []float64) float64 {
	circuit, err := v.Ansatz.Bind(params)
	if err != nil {
		return 1
	}
	amps, err := Statevector(circuit)
	if err != nil {
		return 1
	}

	dim := len(amps)
	var overlap complex128
	var lhsNormSq float64
	for i := 0; i < dim; i++ {
		var lhs complex128
		for j := 0; j < dim; j++ {
			lhs += complex(a.At(i, j), 0) * amps[j]
		}
		overlap += complex(bhat[i], 0) * lhs
		lhsNormSq += real(lhs)*real(lhs) + imag(lhs)*imag(lhs)
	}
	if lhsNormSq == 0 {
		return 1
	}
	o := cmplx.Abs(overlap)
	return 1 - o*o/lhsNormSq
}

// rawVec copies a gonum vector into a plain slice.
func rawVec(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
