package qls

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// pauliAlphabet fixes the enumeration order of the single-qubit operators.
const pauliAlphabet = "IZXY"

// coefficientEps is the cutoff below which a Hilbert-Schmidt coefficient is
// treated as zero and its term dropped from the decomposition.
const coefficientEps = 1e-12

var pauliGates = map[byte]*mat.CDense{
	'I': mat.NewCDense(2, 2, []complex128{1, 0, 0, 1}),
	'Z': mat.NewCDense(2, 2, []complex128{1, 0, 0, -1}),
	'X': mat.NewCDense(2, 2, []complex128{0, 1, 1, 0}),
	'Y': mat.NewCDense(2, 2, []complex128{0, -1i, 1i, 0}),
}

/*
PauliTerm is one term of a linear-combination-of-unitaries decomposition: a
tensor product of single-qubit Pauli operators together with its weight.
*/
type PauliTerm struct {
	Pauli       string
	Coefficient complex128
}

// MarshalJSON keeps serialized models readable; complex128 has no native
// JSON representation.
func (t PauliTerm) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Pauli       string     `json:"pauli"`
		Coefficient [2]float64 `json:"coefficient"`
	}{t.Pauli, [2]float64{real(t.Coefficient), imag(t.Coefficient)}})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *PauliTerm) UnmarshalJSON(data []byte) error {
	var raw struct {
		Pauli       string     `json:"pauli"`
		Coefficient [2]float64 `json:"coefficient"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Pauli = raw.Pauli
	t.Coefficient = complex(raw.Coefficient[0], raw.Coefficient[1])
	return nil
}

/*
AllPauliStrings enumerates every Pauli string of length n over "IZXY", 4^n in
total, in lexicographic order of the alphabet.
*/
func AllPauliStrings(n int) []string {
	total := 1
	for i := 0; i < n; i++ {
		total *= len(pauliAlphabet)
	}
	out := make([]string, 0, total)
	buf := make([]byte, n)
	for i := 0; i < total; i++ {
		v := i
		for j := n - 1; j >= 0; j-- {
			buf[j] = pauliAlphabet[v%len(pauliAlphabet)]
			v /= len(pauliAlphabet)
		}
		out = append(out, string(buf))
	}
	return out
}

/*
PauliMatrix converts a Pauli string of length n into its 2^n x 2^n matrix
representation by repeated Kronecker products.
*/
func PauliMatrix(pauli string) (*mat.CDense, error) {
	m := mat.NewCDense(1, 1, []complex128{1})
	for i := 0; i < len(pauli); i++ {
		gate, ok := pauliGates[pauli[i]]
		if !ok {
			return nil, fmt.Errorf("unknown Pauli operator %q in %q", pauli[i], pauli)
		}
		m = kronC(m, gate)
	}
	return m, nil
}

// kronC is the Kronecker product for complex matrices. gonum only ships a
// real-valued Kronecker, and these matrices stay tiny.
func kronC(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewCDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			v := a.At(i, j)
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					out.Set(i*br+k, j*bc+l, v*b.At(k, l))
				}
			}
		}
	}
	return out
}

// hilbertSchmidt computes trace(a^dagger b).
func hilbertSchmidt(a, b *mat.CDense) complex128 {
	r, c := a.Dims()
	var sum complex128
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum += cmplx.Conj(a.At(i, j)) * b.At(i, j)
		}
	}
	return sum
}

/*
Decompose expresses a Hermitian matrix of dimension 2^n as a weighted sum of
Pauli strings by projecting onto every string with the normalized
Hilbert-Schmidt inner product trace(P^dagger M)/2^n. Terms with vanishing
weight are dropped. This is the naive O(4^n * 4^n) enumeration; the systems
this harness targets are small enough that nothing smarter is warranted.
*/
func Decompose(m *mat.CDense) ([]PauliTerm, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("matrix is not square")
	}
	if r == 0 {
		return nil, errors.New("matrix is of size 0")
	}
	if r&(r-1) != 0 {
		return nil, errors.New("matrix size is not 2**n")
	}

	n := bits.TrailingZeros(uint(r))
	norm := complex(1/float64(r), 0)

	var terms []PauliTerm
	for _, pstr := range AllPauliStrings(n) {
		p, err := PauliMatrix(pstr)
		if err != nil {
			return nil, err
		}
		co := norm * hilbertSchmidt(p, m)
		if cmplx.Abs(co) > coefficientEps {
			terms = append(terms, PauliTerm{Pauli: pstr, Coefficient: co})
		}
	}
	return terms, nil
}

/*
Reconstruct recombines a decomposition into the matrix it represents,
sum over coefficient * pauli_matrix(string). Used to verify round trips.
*/
func Reconstruct(terms []PauliTerm, n int) (*mat.CDense, error) {
	dim := 1 << n
	out := mat.NewCDense(dim, dim, nil)
	for _, term := range terms {
		if len(term.Pauli) != n {
			return nil, fmt.Errorf("term %q does not act on %d qubits", term.Pauli, n)
		}
		p, err := PauliMatrix(term.Pauli)
		if err != nil {
			return nil, err
		}
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				out.Set(i, j, out.At(i, j)+term.Coefficient*p.At(i, j))
			}
		}
	}
	return out, nil
}

// ToComplex lifts a real matrix into the complex container Decompose expects.
func ToComplex(a *mat.Dense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, complex(a.At(i, j), 0))
		}
	}
	return out
}
