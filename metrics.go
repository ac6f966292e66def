package qls

import (
	"sync"
	"time"
)

/*
RunMetrics collects per-solve measurements: the optimizer trace, circuit
shape and wall time. Solvers record into it from optimizer callbacks, so
access is guarded.
*/
type RunMetrics struct {
	mu sync.RWMutex

	SolverName   string
	Iterations   int
	CostHistory  []float64
	BestCost     float64
	CircuitDepth int
	CircuitWidth int
	Runtime      time.Duration
}

func NewRunMetrics(solverName string) *RunMetrics {
	return &RunMetrics{SolverName: solverName, BestCost: 1}
}

// RecordIteration appends one cost evaluation.
func (m *RunMetrics) RecordIteration(cost float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Iterations++
	m.CostHistory = append(m.CostHistory, cost)
	if cost < m.BestCost {
		m.BestCost = cost
	}
}

// RecordCircuit stores the shape of the executed circuit.
func (m *RunMetrics) RecordCircuit(depth, width int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CircuitDepth = depth
	m.CircuitWidth = width
}

// RecordRuntime stores the total wall time of the run.
func (m *RunMetrics) RecordRuntime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Runtime = d
}

// Export returns a flat view for logging and dumps.
func (m *RunMetrics) Export() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"solver":        m.SolverName,
		"iterations":    m.Iterations,
		"best_cost":     m.BestCost,
		"circuit_depth": m.CircuitDepth,
		"circuit_width": m.CircuitWidth,
		"runtime_ms":    m.Runtime.Milliseconds(),
	}
}
