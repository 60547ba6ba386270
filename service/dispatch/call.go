package dispatch

import (
	"context"

	"github.com/viant/sector/runtime/processor"
)

// Call creates an interrupt-only processor running fn once
func Call(fn func(ctx context.Context) error, opts ...processor.Option) *processor.Processor {
	opts = append([]processor.Option{processor.WithKind("call")}, opts...)
	return processor.New(processor.TaskFunc(func(ctx context.Context, ex *processor.Execution) error {
		return fn(ctx)
	}), opts...)
}

// Routine creates a terminate-capable processor; fn must poll ex.BreakPoint
// with one of the declared points, "routine" when none are given.
func Routine(fn processor.TaskFunc, breakPoints []string, opts ...processor.Option) *processor.Processor {
	if len(breakPoints) == 0 {
		breakPoints = []string{"routine"}
	}
	opts = append([]processor.Option{processor.WithKind("routine"), processor.WithBreakPoints(breakPoints...)}, opts...)
	return processor.New(fn, opts...)
}
