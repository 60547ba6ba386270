package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/viant/sector/runtime/transaction"
)

// Task is the work performed by a processor.
//
// Run returns when the work completes or as soon as ctx is cancelled by an
// interrupt. A nil error without interrupt is a natural completion.
type Task interface {
	Run(ctx context.Context, ex *Execution) error
}

// TaskFunc adapts a function to Task
type TaskFunc func(ctx context.Context, ex *Execution) error

// Run calls f
func (f TaskFunc) Run(ctx context.Context, ex *Execution) error {
	return f(ctx, ex)
}

// BreakPointer is implemented by tasks supporting administrative termination
type BreakPointer interface {
	BreakPoints() []string
}

// Requirer is implemented by tasks listing mandatory requisite parameters
type Requirer interface {
	Requisites() []string
}

// Execution is handed to a running task
type Execution struct {
	processor *Processor
	terminate chan struct{}
	once      sync.Once
	honored   bool
	mu        sync.Mutex
}

// Processor returns the running processor
func (e *Execution) Processor() *Processor { return e.processor }

// Sector returns the sector when the task is a sector's own work, nil otherwise
func (e *Execution) Sector() *Sector { return e.processor.host }

// Transaction returns the processor transaction
func (e *Execution) Transaction() *transaction.Transaction { return e.processor.txn }

// Logger returns the processor logger
func (e *Execution) Logger() *slog.Logger { return e.processor.log() }

// Terminating is closed once a terminate request is pending
func (e *Execution) Terminating() <-chan struct{} { return e.terminate }

// BreakPoint returns true when a terminate request is pending; the task must
// then return promptly so that the processor exits as terminated.
func (e *Execution) BreakPoint(name string) bool {
	select {
	case <-e.terminate:
		e.mu.Lock()
		first := !e.honored
		e.honored = true
		e.mu.Unlock()
		if first {
			e.processor.log().Debug("terminate honored", "id", e.processor.id, "breakPoint", name)
		}
		return true
	default:
		return false
	}
}

func (e *Execution) requestTermination() {
	e.once.Do(func() { close(e.terminate) })
}

func (e *Execution) terminationRequested() bool {
	select {
	case <-e.terminate:
		return true
	default:
		return false
	}
}

func newExecution(p *Processor) *Execution {
	return &Execution{processor: p, terminate: make(chan struct{})}
}

// launch runs the task on its own goroutine, converting panics into faults
func launch(ctx context.Context, task Task, ex *Execution) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		done <- task.Run(ctx, ex)
	}()
	return done
}

func breakPointsOf(task Task, declared []string) []string {
	if len(declared) > 0 {
		return declared
	}
	if bp, ok := task.(BreakPointer); ok {
		return bp.BreakPoints()
	}
	return nil
}

func requisitesOf(task Task) []string {
	if r, ok := task.(Requirer); ok {
		return r.Requisites()
	}
	return nil
}
