package qls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/mat"
)

// defaultPollInterval matches the 10 second cadence used against remote
// queues.
const defaultPollInterval = 10 * time.Second

/*
StatePreparation loads the normalized right-hand side into the solution
register, with an L2 upper bound on the preparation error.
*/
type StatePreparation struct {
	Amplitudes      []float64 `json:"amplitudes"`
	ErrorUpperBound float64   `json:"error_upper_bound"`
}

/*
Exponentiation evolves the system Hamiltonian, given as a Pauli
decomposition, for e^(i * coefficient * A).
*/
type Exponentiation struct {
	PauliTerms           []PauliTerm `json:"pauli_terms"`
	EvolutionCoefficient float64     `json:"evolution_coefficient"`
}

/*
PhaseEstimation writes the eigenvalues of the evolved Hamiltonian into a
register of Precision qubits. MaxDepth and its scaling factor bound the
synthesized exponentiation depth per power.
*/
type PhaseEstimation struct {
	Precision             int            `json:"precision"`
	Exponentiation        Exponentiation `json:"exponentiation"`
	MaxDepth              int            `json:"max_depth"`
	MaxDepthScalingFactor float64        `json:"max_depth_scaling_factor"`
}

/*
AmplitudeLoading rotates an ancilla by the eigenvalue inversion expression,
"wmin/(x)" in this harness, using a gray-code implementation.
*/
type AmplitudeLoading struct {
	Size           int    `json:"size"`
	Expression     string `json:"expression"`
	Implementation string `json:"implementation"`
}

/*
HHLModel is the serialized description of the HHL circuit handed to a
synthesis service: state preparation, QPE over the exponentiated Pauli
decomposition, eigenvalue inversion by amplitude loading, and the inverse
QPE that uncomputes the phase register.
*/
type HHLModel struct {
	StatePreparation StatePreparation `json:"state_preparation"`
	QPE              PhaseEstimation  `json:"phase_estimation"`
	AmplitudeLoading AmplitudeLoading `json:"amplitude_loading"`
	ReleaseByInverse bool             `json:"release_by_inverse"`

	// normalized system, kept for local ideal synthesis
	matrix *mat.Dense
	vector *mat.VecDense
}

// WMin is the smallest eigenvalue encodable in the phase register, the
// scale factor of the loaded amplitudes.
func (m *HHLModel) WMin() float64 {
	return 1 / math.Pow(2, float64(m.QPE.Precision))
}

// Serialize renders the model as JSON, the wire format synthesis services
// accept.
func (m *HHLModel) Serialize() ([]byte, error) {
	return json.Marshal(m)
}

/*
BuildHHLModel decomposes A into Pauli terms, normalizes the system by ||b||
and assembles the synthesis model. It returns the model together with the
normalized system and wmin, which the verification step needs.
*/
func BuildHHLModel(a *mat.Dense, b *mat.VecDense, precision int) (*HHLModel, *mat.Dense, *mat.VecDense, float64, error) {
	if precision < 1 {
		return nil, nil, nil, 0, fmt.Errorf("phase estimation precision must be positive, got %d", precision)
	}

	paulis, err := Decompose(ToComplex(a))
	if err != nil {
		return nil, nil, nil, 0, err
	}
	errnie.Info("number of qubits for matrix representation = %d", len(paulis[0].Pauli))

	na, nb, _ := NormalizeProblem(a, b)
	wMin := 1 / math.Pow(2, float64(precision))

	model := &HHLModel{
		StatePreparation: StatePreparation{
			Amplitudes:      rawVec(nb),
			ErrorUpperBound: 0,
		},
		QPE: PhaseEstimation{
			Precision: precision,
			Exponentiation: Exponentiation{
				PauliTerms:           paulis,
				EvolutionCoefficient: -2 * math.Pi,
			},
			MaxDepth:              100,
			MaxDepthScalingFactor: 2,
		},
		AmplitudeLoading: AmplitudeLoading{
			Size:           precision,
			Expression:     fmt.Sprintf("%v/(x)", wMin),
			Implementation: "GRAYCODE",
		},
		ReleaseByInverse: true,
		matrix:           na,
		vector:           nb,
	}
	return model, na, nb, wMin, nil
}

/*
VerifySpectrum checks that a matrix is symmetric with non-negative
eigenvalues, and warns when eigenvalues exceed one (HHL encodes phases in
[0,1)). Hermitian-expanded systems intentionally fail this check, so the
drivers only apply it to systems that were symmetric to begin with.
*/
func VerifySpectrum(a *mat.Dense) error {
	r, c := a.Dims()
	if r != c {
		return fmt.Errorf("matrix is not square")
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(a.At(i, j)-a.At(j, i)) > 1e-6 {
				return fmt.Errorf("the matrix is not symmetric")
			}
		}
	}
	values, _, err := symmetricEigen(a)
	if err != nil {
		return err
	}
	for _, lambda := range values {
		if lambda < 0 {
			return fmt.Errorf("the matrix has negative eigenvalues")
		}
		if lambda > 1 {
			log.Printf("the matrix has eigenvalues larger than 1: %v", lambda)
		}
	}
	return nil
}

/*
SynthesizedCircuit is the opaque artifact a synthesis service returns: the
register layout plus whatever the backend needs to execute it. The local
ideal synthesizer embeds the exact post-selected statevector.
*/
type SynthesizedCircuit struct {
	TotalQubits  int              `json:"total_qubits"`
	Depth        int              `json:"depth"`
	OutputQubits map[string][]int `json:"output_qubits"`
	WMin         float64          `json:"w_min"`

	stateVector map[string]complex128
}

// Qubits implements Program.
func (s *SynthesizedCircuit) Qubits() int { return s.TotalQubits }

func (s *SynthesizedCircuit) idealResult() (*ExecutionResult, error) {
	if s.stateVector == nil {
		return nil, fmt.Errorf("synthesized circuit carries no statevector; execute it on its own backend")
	}
	return &ExecutionResult{
		StateVector:  s.stateVector,
		OutputQubits: s.OutputQubits,
	}, nil
}

// Synthesizer turns an HHL model into an executable circuit.
type Synthesizer interface {
	Synthesize(ctx context.Context, model *HHLModel) (*SynthesizedCircuit, error)
}

/*
IdealSynthesizer produces the circuit an exact HHL run would yield: the
post-selected amplitudes are wmin * x computed by eigendecomposition of the
normalized matrix. It stands in for the commercial synthesis service when
running offline and in tests.
*/
type IdealSynthesizer struct{}

func (IdealSynthesizer) Synthesize(ctx context.Context, model *HHLModel) (*SynthesizedCircuit, error) {
	if model.matrix == nil || model.vector == nil {
		return nil, fmt.Errorf("model was not built locally; the ideal synthesizer needs the system")
	}

	values, vectors, err := symmetricEigen(model.matrix)
	if err != nil {
		return nil, err
	}

	dim := model.vector.Len()
	x := make([]float64, dim)
	for k, lambda := range values {
		if math.Abs(lambda) < 1e-12 {
			return nil, fmt.Errorf("the matrix is singular")
		}
		var proj float64
		for i := 0; i < dim; i++ {
			proj += vectors.At(i, k) * model.vector.AtVec(i)
		}
		for i := 0; i < dim; i++ {
			x[i] += proj / lambda * vectors.At(i, k)
		}
	}

	n := len(model.QPE.Exponentiation.PauliTerms[0].Pauli)
	precision := model.QPE.Precision
	total := n + precision + 1
	targetPos := n + precision
	wMin := model.WMin()

	amps := make([]float64, dim)
	var loaded float64
	for i := 0; i < dim; i++ {
		amps[i] = wMin * x[i]
		loaded += amps[i] * amps[i]
	}
	// when wmin exceeds the smallest eigenvalue the loaded branch outgrows
	// unit norm; rescale it, the solution direction is what gets verified
	if loaded > 1 {
		scale := math.Sqrt(loaded)
		for i := range amps {
			amps[i] /= scale
		}
		loaded = 1
	}

	sv := make(map[string]complex128, dim+1)
	for i := 0; i < dim; i++ {
		sv[basisLabel(i|1<<targetPos, total)] = complex(amps[i], 0)
	}
	// the rest of the weight sits on the failed post-selection branch
	sv[basisLabel(0, total)] += complex(math.Sqrt(1-loaded), 0)

	solution := make([]int, n)
	for i := range solution {
		solution[i] = i
	}
	return &SynthesizedCircuit{
		TotalQubits: total,
		// nominal: one max-depth exponentiation per phase qubit, forward and inverse
		Depth:        2 * precision * model.QPE.MaxDepth,
		OutputQubits: map[string][]int{"solution": solution, "target": {targetPos}},
		WMin:         wMin,
		stateVector:  sv,
	}, nil
}

/*
RemoteSynthesizer posts the serialized model to a circuit-synthesis service
and decodes the returned artifact. Executing the artifact is the paired
backend's job.
*/
type RemoteSynthesizer struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Retry   *RetryPolicy
}

func (s *RemoteSynthesizer) Synthesize(ctx context.Context, model *HHLModel) (*SynthesizedCircuit, error) {
	payload, err := model.Serialize()
	if err != nil {
		return nil, err
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	policy := s.Retry
	if policy == nil {
		policy = &RetryPolicy{
			MaxAttempts: 3,
			Strategy:    &ExponentialBackoff{Initial: time.Second},
			Filter:      retryableSynthesisError,
		}
	}

	var circuit SynthesizedCircuit
	err = policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/synthesize", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return &transientError{fmt.Errorf("synthesis request failed: %w", err)}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("synthesis service returned %s", resp.Status)
			if resp.StatusCode >= 500 {
				return &transientError{err}
			}
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(&circuit); err != nil {
			return fmt.Errorf("decoding synthesized circuit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &circuit, nil
}

type transientError struct{ error }

func (e *transientError) Unwrap() error { return e.error }

// retryableSynthesisError retries connection failures and service-side
// errors; anything else, bad requests included, fails immediately.
func retryableSynthesisError(err error) bool {
	var transient *transientError
	return errors.As(err, &transient)
}

/*
HHLResult is the outcome of one HHL run against a backend.
*/
type HHLResult struct {
	Solution         []float64
	RelativeDistance float64
	Depth            int
	Width            int
	Runtime          time.Duration
	Metrics          *RunMetrics
}

/*
SolveHHL runs the full pipeline for a toy model: build the model,
synthesize, execute on the backend with status polling, then recover and
verify the solution against the classical baseline. The caller decides what
relative distance is acceptable.
*/
func SolveHHL(ctx context.Context, model *ToyModel, precision int, synth Synthesizer, backend QuantumBackend) (*HHLResult, error) {
	start := time.Now()
	metrics := NewRunMetrics("hhl")

	hhlModel, _, _, wMin, err := BuildHHLModel(model.MatrixA, model.VectorB, precision)
	if err != nil {
		return nil, err
	}

	circuit, err := synth.Synthesize(ctx, hhlModel)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	errnie.Info("synthesized circuit: width %d, depth %d", circuit.TotalQubits, circuit.Depth)

	jobID, err := backend.Submit(ctx, circuit)
	if err != nil {
		return nil, err
	}
	status, err := WaitForJob(ctx, backend, jobID, defaultPollInterval)
	if err != nil {
		return nil, err
	}
	if status.State != JobCompleted {
		return nil, fmt.Errorf("job %s ended in state %s: %s", jobID, status.State, status.Error)
	}

	result, err := backend.Result(ctx, jobID)
	if err != nil {
		return nil, err
	}

	qsol, err := SolutionFromResult(result, wMin, model.ClassicalSolution.Len())
	if err != nil {
		return nil, err
	}

	csol := rawVec(model.ClassicalSolution)
	distance := RelativeDistance(UnitVector(csol), UnitVector(qsol))
	log.Printf("classical: %v", csol)
	log.Printf("HHL:       %v", qsol)
	log.Printf("relative distance: %.1f%%", distance*100)

	metrics.RecordCircuit(circuit.Depth, circuit.TotalQubits)
	metrics.RecordRuntime(time.Since(start))

	return &HHLResult{
		Solution:         qsol,
		RelativeDistance: distance,
		Depth:            circuit.Depth,
		Width:            circuit.TotalQubits,
		Runtime:          time.Since(start),
		Metrics:          metrics,
	}, nil
}

/*
SolutionFromResult reads the solution amplitudes out of an execution
result: for every basis state of the solution register with the target
qubit set, divide the amplitude by wmin and round to five decimals. When
the recovered vector is longer than the classical solution the system was
Hermitian-expanded and the padding is cut. The remaining global phase is
removed before returning real components.
*/
func SolutionFromResult(result *ExecutionResult, wMin float64, classicalLen int) ([]float64, error) {
	solPos, ok := result.OutputQubits["solution"]
	if !ok || len(solPos) == 0 {
		return nil, fmt.Errorf("result carries no solution register")
	}
	targetPos, ok := result.OutputQubits["target"]
	if !ok || len(targetPos) == 0 {
		return nil, fmt.Errorf("result carries no target qubit")
	}

	var total int
	for key := range result.StateVector {
		total = len(key)
		break
	}
	if total == 0 {
		return nil, fmt.Errorf("result carries no statevector")
	}

	dim := 1 << len(solPos)
	qsol := make([]complex128, dim)
	for i := 0; i < dim; i++ {
		key := make([]byte, total)
		for k := range key {
			key[k] = '0'
		}
		key[targetPos[0]] = '1'
		for j, pos := range solPos {
			if i&(1<<j) != 0 {
				key[pos] = '1'
			}
		}
		qsol[i] = round5(result.StateVector[string(key)] / complex(wMin, 0))
	}

	if dim > classicalLen {
		qsol = extractExpandedComplex(qsol)
	}
	return GlobalPhaseCorrection(qsol), nil
}

func round5(v complex128) complex128 {
	return complex(math.Round(real(v)*1e5)/1e5, math.Round(imag(v)*1e5)/1e5)
}

// symmetricEigen wraps gonum's symmetric eigendecomposition, returning
// eigenvalues and the matrix of column eigenvectors.
func symmetricEigen(a *mat.Dense) ([]float64, *mat.Dense, error) {
	r, _ := a.Dims()
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, nil, fmt.Errorf("eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	return values, &vectors, nil
}
