package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/sector/runtime/processor"
)

// OccurrenceBreakPoint is honored between occurrences
const OccurrenceBreakPoint = "occurrence"

// ErrInvalidInterval faults an Every processor with a non-positive interval
var ErrInvalidInterval = errors.New("interval must be positive")

// Occurrence is called repeatedly; it returns the delay before the next call, 0 to stop
type Occurrence func(ctx context.Context, ex *processor.Execution, n int) (time.Duration, error)

type recurrence struct {
	fn Occurrence
}

func (r *recurrence) BreakPoints() []string { return []string{OccurrenceBreakPoint} }

func (r *recurrence) Run(ctx context.Context, ex *processor.Execution) error {
	for n := 0; ; n++ {
		delay, err := r.fn(ctx, ex, n)
		if err != nil {
			return err
		}
		if delay <= 0 || ex.BreakPoint(OccurrenceBreakPoint) {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-ex.Terminating():
			timer.Stop()
			ex.BreakPoint(OccurrenceBreakPoint)
			return nil
		case <-timer.C:
		}
	}
}

// Recurrence creates a terminate-capable processor calling fn until it returns a zero delay
func Recurrence(fn Occurrence, opts ...processor.Option) *processor.Processor {
	opts = append([]processor.Option{processor.WithKind("recurrence")}, opts...)
	return processor.New(&recurrence{fn: fn}, opts...)
}

// Every calls fn at a fixed interval until terminated; a non-positive
// interval faults the processor before the first call.
func Every(interval time.Duration, fn func(ctx context.Context) error, opts ...processor.Option) *processor.Processor {
	return Recurrence(func(ctx context.Context, ex *processor.Execution, n int) (time.Duration, error) {
		if interval <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
		}
		return interval, fn(ctx)
	}, opts...)
}
