package qls

import "fmt"

/*
RealAmplitudes is the hardware-efficient ansatz used by the VQLS solver:
alternating layers of RY rotations and full CX entanglement, reps+1 rotation
layers in total. The prepared state has real amplitudes only, which is what
makes the solution vector directly readable from the statevector.
*/
type RealAmplitudes struct {
	NumQubits int
	Reps      int
}

// NewRealAmplitudes mirrors the usual defaults: full entanglement, three
// repetitions.
func NewRealAmplitudes(numQubits int) *RealAmplitudes {
	return &RealAmplitudes{NumQubits: numQubits, Reps: 3}
}

// NumParameters is one angle per qubit per rotation layer.
func (ra *RealAmplitudes) NumParameters() int {
	return ra.NumQubits * (ra.Reps + 1)
}

/*
Bind instantiates the ansatz with concrete rotation angles and returns the
resulting circuit.
*/
func (ra *RealAmplitudes) Bind(params []float64) (*Circuit, error) {
	if len(params) != ra.NumParameters() {
		return nil, fmt.Errorf("ansatz expects %d parameters, got %d",
			ra.NumParameters(), len(params))
	}

	c := NewCircuit(ra.NumQubits)
	p := 0
	for rep := 0; rep <= ra.Reps; rep++ {
		for q := 0; q < ra.NumQubits; q++ {
			c.RY(q, params[p])
			p++
		}
		if rep == ra.Reps {
			break
		}
		for i := 0; i < ra.NumQubits; i++ {
			for j := i + 1; j < ra.NumQubits; j++ {
				c.CX(i, j)
			}
		}
	}
	return c, nil
}
