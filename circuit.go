package qls

import (
	"fmt"
	"strings"
)

/*
GateOp is a single gate application. Qubits lists the operands, control
first for two-qubit gates; Params carries rotation angles.
*/
type GateOp struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
}

/*
Circuit is the minimal gate-level program this harness needs: enough to
express hardware-efficient ansaetze and ship them to a backend as OpenQASM.
It is not a general circuit IR.
*/
type Circuit struct {
	NumQubits int            `json:"num_qubits"`
	Gates     []GateOp       `json:"gates"`
	Shots     int            `json:"shots"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewCircuit returns an empty circuit over numQubits qubits.
func NewCircuit(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// Qubits implements Program.
func (c *Circuit) Qubits() int { return c.NumQubits }

func (c *Circuit) add(name string, qubits []int, params ...float64) *Circuit {
	c.Gates = append(c.Gates, GateOp{Name: name, Qubits: qubits, Params: params})
	return c
}

func (c *Circuit) H(q int) *Circuit { return c.add("H", []int{q}) }
func (c *Circuit) X(q int) *Circuit { return c.add("X", []int{q}) }
func (c *Circuit) Y(q int) *Circuit { return c.add("Y", []int{q}) }
func (c *Circuit) Z(q int) *Circuit { return c.add("Z", []int{q}) }

func (c *Circuit) RX(q int, theta float64) *Circuit { return c.add("RX", []int{q}, theta) }
func (c *Circuit) RY(q int, theta float64) *Circuit { return c.add("RY", []int{q}, theta) }
func (c *Circuit) RZ(q int, theta float64) *Circuit { return c.add("RZ", []int{q}, theta) }

func (c *Circuit) CX(control, target int) *Circuit { return c.add("CX", []int{control, target}) }
func (c *Circuit) CZ(control, target int) *Circuit { return c.add("CZ", []int{control, target}) }

// Width is the number of qubits the circuit acts on.
func (c *Circuit) Width() int { return c.NumQubits }

/*
Depth is the length of the critical path: gates touching disjoint qubits are
assumed to run in the same layer.
*/
func (c *Circuit) Depth() int {
	layers := make([]int, c.NumQubits)
	depth := 0
	for _, g := range c.Gates {
		layer := 0
		for _, q := range g.Qubits {
			if layers[q] > layer {
				layer = layers[q]
			}
		}
		layer++
		for _, q := range g.Qubits {
			layers[q] = layer
		}
		if layer > depth {
			depth = layer
		}
	}
	return depth
}

var qasmGateNames = map[string]string{
	"H": "h", "X": "x", "Y": "y", "Z": "z",
	"RX": "rx", "RY": "ry", "RZ": "rz",
	"CX": "cx", "CZ": "cz",
}

/*
QASM renders the circuit as OpenQASM 3.0 with a full measurement, the
format hybrid-job payloads and cloud backends consume.
*/
func (c *Circuit) QASM() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "OPENQASM 3.0;\ninclude \"stdgates.inc\";\nqubit[%d] q;\nbit[%d] c;\n\n",
		c.NumQubits, c.NumQubits)

	for _, g := range c.Gates {
		name := qasmGateNames[g.Name]
		if name == "" {
			name = strings.ToLower(g.Name)
		}
		sb.WriteString(name)
		if len(g.Params) > 0 {
			sb.WriteString("(")
			for i, p := range g.Params {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%f", p)
			}
			sb.WriteString(")")
		}
		sb.WriteString(" ")
		for i, q := range g.Qubits {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "q[%d]", q)
		}
		sb.WriteString(";\n")
	}

	sb.WriteString("\nc = measure q;\n")
	return sb.String()
}
