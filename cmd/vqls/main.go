// Command vqls solves the demo linear system with the variational solver
// and prints the comparison against the classical baseline.
package main

import (
	"flag"
	"fmt"
	"log"

	qls "github.com/SURFQuantum/quantum-linear-systems"
	"github.com/davecgh/go-spew/spew"
	"gonum.org/v1/gonum/mat"
)

func main() {
	reps := flag.Int("reps", 3, "ansatz repetitions")
	maxIter := flag.Int("maxiter", 250, "optimizer iteration budget")
	showCircuit := flag.Bool("show-circuit", false, "print the bound ansatz as OpenQASM")
	verbose := flag.Bool("verbose", false, "dump run metrics")
	flag.Parse()

	model := qls.ClassiqDemoExample()

	ansatz := qls.NewRealAmplitudes(model.Qubits())
	ansatz.Reps = *reps

	solver := qls.NewVQLS(ansatz)
	solver.MaxIter = *maxIter

	trace := &qls.VQLSLog{}
	solver.Callback = trace.Update

	result, err := solver.Solve(model.MatrixA, model.VectorB)
	if err != nil {
		log.Fatal(err)
	}

	if *showCircuit {
		fmt.Println(result.QASM)
	}

	csol := qls.UnitVector(mat.Col(nil, 0, model.ClassicalSolution))
	qsol := qls.UnitVector(result.Solution)
	fmt.Printf("%s solved in %s (%d iterations, final cost %.3g)\n",
		model.Name, result.Runtime, result.Iterations, result.Cost)
	fmt.Println("classical", csol)
	fmt.Println("quantum  ", qsol)
	fmt.Printf("relative distance: %.1f%%\n", qls.RelativeDistance(csol, qsol)*100)
	fmt.Printf("circuit depth = %d, width = %d\n", result.Depth, result.Width)

	if *verbose {
		spew.Dump(result.Metrics.Export())
	}
}
