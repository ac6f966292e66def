// Command hhl solves the demo linear system with the HHL pipeline against
// the local ideal synthesizer and backend, and fails when the quantum
// solution drifts too far from the classical one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	qls "github.com/SURFQuantum/quantum-linear-systems"
	"github.com/davecgh/go-spew/spew"
	"gonum.org/v1/gonum/mat"
)

// maxRelativeDistance is the acceptance threshold for the quantum solution.
const maxRelativeDistance = 0.2

func main() {
	precision := flag.Int("precision", 4, "phase estimation register size")
	volterra := flag.Int("volterra", 0, "solve the Volterra problem of this many qubits instead of the demo")
	verbose := flag.Bool("verbose", false, "dump run metrics")
	flag.Parse()

	start := time.Now()

	model := qls.ClassiqDemoExample()
	if *volterra > 0 {
		var err error
		model, err = qls.VolterraProblem(*volterra)
		if err != nil {
			log.Fatal(err)
		}
	}

	result, err := qls.SolveHHL(context.Background(), model, *precision,
		qls.IdealSynthesizer{}, qls.NewLocalBackend())
	if err != nil {
		log.Fatal(err)
	}

	csol := qls.UnitVector(mat.Col(nil, 0, model.ClassicalSolution))
	qsol := qls.UnitVector(result.Solution)
	fmt.Println("classical", csol)
	fmt.Println("quantum  ", qsol)
	fmt.Printf("circuit depth = %d, width = %d\n", result.Depth, result.Width)
	fmt.Printf("finished HHL run in %s\n", time.Since(start))

	if *verbose {
		spew.Dump(result.Metrics.Export())
	}

	if result.RelativeDistance > maxRelativeDistance {
		log.Fatal("the HHL solution is too far from the classical one, please verify your algorithm")
	}
}
