package qls

import (
	"fmt"
	"math"
	"math/cmplx"
)

/*
Statevector evaluates a circuit on the |0...0> state and returns the final
amplitude vector, qubit 0 being the least significant bit of the basis
index. Only the gates the harness emits are supported; this is deliberately
not a general simulator.
*/
func Statevector(c *Circuit) ([]complex128, error) {
	amps := make([]complex128, 1<<c.NumQubits)
	amps[0] = 1

	for _, g := range c.Gates {
		if err := applyGate(amps, g); err != nil {
			return nil, err
		}
	}
	return amps, nil
}

func applyGate(amps []complex128, g GateOp) error {
	switch g.Name {
	case "H", "X", "Y", "Z":
		if len(g.Qubits) != 1 {
			return fmt.Errorf("gate %s expects one qubit, got %d", g.Name, len(g.Qubits))
		}
		applySingle(amps, g.Qubits[0], g.Name, 0)
	case "RX", "RY", "RZ":
		if len(g.Qubits) != 1 || len(g.Params) != 1 {
			return fmt.Errorf("gate %s expects one qubit and one angle", g.Name)
		}
		applySingle(amps, g.Qubits[0], g.Name, g.Params[0])
	case "CX":
		if len(g.Qubits) != 2 {
			return fmt.Errorf("gate CX expects control and target")
		}
		applyCX(amps, g.Qubits[0], g.Qubits[1])
	case "CZ":
		if len(g.Qubits) != 2 {
			return fmt.Errorf("gate CZ expects two qubits")
		}
		applyCZ(amps, g.Qubits[0], g.Qubits[1])
	default:
		return fmt.Errorf("unsupported gate %q", g.Name)
	}
	return nil
}

// applySingle walks the basis states in pairs (i, i|bit) and applies the
// 2x2 gate matrix to each pair.
func applySingle(amps []complex128, q int, name string, theta float64) {
	bit := 1 << q
	half := complex(math.Cos(theta/2), 0)
	sin := math.Sin(theta / 2)

	for i := range amps {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a, b := amps[i], amps[j]
		switch name {
		case "H":
			f := complex(1/math.Sqrt2, 0)
			amps[i] = f * (a + b)
			amps[j] = f * (a - b)
		case "X":
			amps[i], amps[j] = b, a
		case "Y":
			amps[i], amps[j] = -1i*b, 1i*a
		case "Z":
			amps[j] = -b
		case "RX":
			amps[i] = half*a - complex(0, sin)*b
			amps[j] = -complex(0, sin)*a + half*b
		case "RY":
			amps[i] = half*a - complex(sin, 0)*b
			amps[j] = complex(sin, 0)*a + half*b
		case "RZ":
			amps[i] = a * cmplx.Exp(complex(0, -theta/2))
			amps[j] = b * cmplx.Exp(complex(0, theta/2))
		}
	}
}

func applyCX(amps []complex128, control, target int) {
	cbit, tbit := 1<<control, 1<<target
	for i := range amps {
		if i&cbit != 0 && i&tbit == 0 {
			j := i | tbit
			amps[i], amps[j] = amps[j], amps[i]
		}
	}
}

func applyCZ(amps []complex128, control, target int) {
	cbit, tbit := 1<<control, 1<<target
	for i := range amps {
		if i&cbit != 0 && i&tbit != 0 {
			amps[i] = -amps[i]
		}
	}
}

// basisLabel renders a basis index as a bitstring whose character k is the
// value of qubit k, matching the statevector keys in execution results.
func basisLabel(index, numQubits int) string {
	buf := make([]byte, numQubits)
	for q := 0; q < numQubits; q++ {
		if index&(1<<q) != 0 {
			buf[q] = '1'
		} else {
			buf[q] = '0'
		}
	}
	return string(buf)
}
