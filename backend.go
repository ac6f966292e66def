package qls

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/cmplx"
	"sync"
	"time"

	"github.com/theapemachine/errnie"
)

// Program is anything a backend can run: a gate-level Circuit or a
// synthesized HHL artifact.
type Program interface {
	Qubits() int
}

// JobState is the lifecycle of a remote or local quantum job. The backend
// owns the state; this harness only reads it.
type JobState string

const (
	JobQueued    JobState = "QUEUED"
	JobRunning   JobState = "RUNNING"
	JobCompleted JobState = "COMPLETED"
	JobFailed    JobState = "FAILED"
	JobCancelled JobState = "CANCELLED"
)

// Terminal reports whether the state can no longer change.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

/*
JobStatus is a point-in-time view of a submitted job.
*/
type JobStatus struct {
	ID            string    `json:"id"`
	State         JobState  `json:"state"`
	QueuePosition string    `json:"queue_position,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}

/*
ExecutionResult is what comes back from a completed job. Statevector
backends fill StateVector and OutputQubits; sampling backends fill Counts.
*/
type ExecutionResult struct {
	JobID        string                `json:"job_id"`
	BackendName  string                `json:"backend_name"`
	Counts       map[string]int        `json:"counts,omitempty"`
	StateVector  map[string]complex128 `json:"-"`
	OutputQubits map[string][]int      `json:"output_qubits,omitempty"`
	TimeUsed     time.Duration         `json:"time_used"`
}

/*
QuantumBackend abstracts a simulator or hardware target. Every call takes a
context because the remote ones block on the network.
*/
type QuantumBackend interface {
	Name() string
	IsSimulator() bool

	// Submit enqueues a program and returns an opaque job ID.
	Submit(ctx context.Context, program Program) (string, error)

	// Status reads the current job state.
	Status(ctx context.Context, jobID string) (*JobStatus, error)

	// Result returns the outcome of a completed job.
	Result(ctx context.Context, jobID string) (*ExecutionResult, error)

	// Cancel aborts a queued or running job.
	Cancel(ctx context.Context, jobID string) error
}

/*
WaitForJob polls a job at a fixed interval until it reaches a terminal
state, logging progress and queue position along the way. There is no
timeout beyond the context; the original workflow waits as long as the
queue does.
*/
func WaitForJob(ctx context.Context, backend QuantumBackend, jobID string, interval time.Duration) (*JobStatus, error) {
	return pollStatus(ctx, backend.Status, jobID, interval)
}

func pollStatus(ctx context.Context, poll func(context.Context, string) (*JobStatus, error), jobID string, interval time.Duration) (*JobStatus, error) {
	for {
		status, err := poll(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("polling job %s: %w", jobID, err)
		}
		if status.State.Terminal() {
			log.Printf("quantum task %s is done with state %s", jobID, status.State)
			return status, nil
		}

		log.Printf("current status of quantum task %s is: %s", jobID, status.State)
		if status.State == JobQueued && status.QueuePosition != "" {
			log.Printf("queue position of quantum task %s is %s", jobID, status.QueuePosition)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

type localJob struct {
	status JobStatus
	result *ExecutionResult
	// remaining Status polls before the job reports completion
	settle int
}

/*
LocalBackend runs programs in-process and mimics the queued/running/done
lifecycle of a remote device so the polling path is exercised end to end.
SettleAfter controls how many Status polls a job spends before completing;
zero means immediately.
*/
type LocalBackend struct {
	SettleAfter int

	mu   sync.Mutex
	jobs map[string]*localJob
	seq  int
}

// NewLocalBackend returns a backend that completes jobs on the first poll.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{jobs: make(map[string]*localJob)}
}

func (b *LocalBackend) Name() string      { return "local-statevector" }
func (b *LocalBackend) IsSimulator() bool { return true }

func (b *LocalBackend) Submit(ctx context.Context, program Program) (string, error) {
	result, err := b.execute(program)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.jobs == nil {
		b.jobs = make(map[string]*localJob)
	}
	b.seq++
	id := fmt.Sprintf("local-%d", b.seq)
	result.JobID = id
	result.BackendName = b.Name()
	b.jobs[id] = &localJob{
		status: JobStatus{ID: id, State: JobQueued, CreatedAt: time.Now()},
		result: result,
		settle: b.SettleAfter,
	}
	errnie.Info("submitted %d qubit program as %s", program.Qubits(), id)
	return id, nil
}

func (b *LocalBackend) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok := b.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("unknown job %s", jobID)
	}
	if !job.status.State.Terminal() {
		if job.settle > 0 {
			job.settle--
			job.status.State = JobRunning
		} else {
			job.status.State = JobCompleted
			job.status.CompletedAt = time.Now()
		}
	}
	status := job.status
	return &status, nil
}

func (b *LocalBackend) Result(ctx context.Context, jobID string) (*ExecutionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok := b.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("unknown job %s", jobID)
	}
	return job.result, nil
}

func (b *LocalBackend) Cancel(ctx context.Context, jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok := b.jobs[jobID]
	if !ok {
		return fmt.Errorf("unknown job %s", jobID)
	}
	if !job.status.State.Terminal() {
		job.status.State = JobCancelled
		job.status.CompletedAt = time.Now()
	}
	return nil
}

func (b *LocalBackend) execute(program Program) (*ExecutionResult, error) {
	switch p := program.(type) {
	case *Circuit:
		amps, err := Statevector(p)
		if err != nil {
			return nil, err
		}
		sv := make(map[string]complex128, len(amps))
		for i, a := range amps {
			sv[basisLabel(i, p.NumQubits)] = a
		}
		result := &ExecutionResult{StateVector: sv}
		if p.Shots > 0 {
			result.Counts = sampleCounts(amps, p.NumQubits, p.Shots)
		}
		return result, nil
	case *SynthesizedCircuit:
		return p.idealResult()
	default:
		return nil, fmt.Errorf("local backend cannot run %T", program)
	}
}

// sampleCounts converts amplitudes into deterministic expected counts,
// rounding |amp|^2 * shots per basis state.
func sampleCounts(amps []complex128, numQubits, shots int) map[string]int {
	counts := make(map[string]int)
	for i, a := range amps {
		p := cmplx.Abs(a)
		if n := int(math.Round(p * p * float64(shots))); n > 0 {
			counts[basisLabel(i, numQubits)] = n
		}
	}
	return counts
}
