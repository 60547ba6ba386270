package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/service/messaging"
	"golang.org/x/time/rate"
)

// MessageBreakPoint is honored between messages
const MessageBreakPoint = "message"

// Mapper transforms a consumed payload into the published one; a nil output is not published
type Mapper[I, O any] func(ctx context.Context, in *I) (*O, error)

// Flow consumes messages from In, maps them and publishes results to Out.
// It completes once In is closed.
type Flow[I, O any] struct {
	In  messaging.Queue[I]
	Out messaging.Queue[O]
	Map Mapper[I, O]
	// Limiter throttles consumption when set
	Limiter *rate.Limiter

	processed atomic.Int64
	failed    atomic.Int64
}

// BreakPoints declares the inter message break point
func (f *Flow[I, O]) BreakPoints() []string { return []string{MessageBreakPoint} }

// Processed returns number of acknowledged messages
func (f *Flow[I, O]) Processed() int { return int(f.processed.Load()) }

// Failed returns number of rejected messages
func (f *Flow[I, O]) Failed() int { return int(f.failed.Load()) }

// Run consumes until the input closes, ctx is done or a terminate request arrives
func (f *Flow[I, O]) Run(ctx context.Context, ex *processor.Execution) error {
	if f.In == nil || f.Map == nil {
		return fmt.Errorf("flow requires input queue and mapper")
	}
	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ex.Terminating():
			cancel()
		case <-consumeCtx.Done():
		}
	}()
	for {
		if ex.BreakPoint(MessageBreakPoint) {
			return nil
		}
		if f.Limiter != nil {
			if err := f.Limiter.Wait(consumeCtx); err != nil {
				switch {
				case ctx.Err() != nil:
					return ctx.Err()
				case ex.BreakPoint(MessageBreakPoint):
					return nil
				}
				return fmt.Errorf("failed to wait for rate limiter: %w", err)
			}
		}
		msg, err := f.In.Consume(consumeCtx)
		if err != nil {
			switch {
			case errors.Is(err, messaging.ErrClosed):
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			case ex.BreakPoint(MessageBreakPoint):
				return nil
			}
			return fmt.Errorf("failed to consume: %w", err)
		}
		if err := f.handle(ctx, msg); err != nil {
			f.failed.Add(1)
			ex.Logger().Warn("message rejected", "error", err)
			if nErr := msg.Nack(err); nErr != nil {
				ex.Logger().Warn("failed to nack message", "error", nErr)
			}
			continue
		}
		f.processed.Add(1)
		if err := msg.Ack(); err != nil {
			ex.Logger().Warn("failed to ack message", "error", err)
		}
	}
}

func (f *Flow[I, O]) handle(ctx context.Context, msg messaging.Message[I]) error {
	out, err := f.Map(ctx, msg.T())
	if err != nil {
		return err
	}
	if out == nil || f.Out == nil {
		return nil
	}
	return f.Out.Publish(ctx, out)
}

// NewFlow creates a terminate-capable processor running the flow
func NewFlow[I, O any](flow *Flow[I, O], opts ...processor.Option) *processor.Processor {
	opts = append([]processor.Option{processor.WithKind("flow")}, opts...)
	return processor.New(flow, opts...)
}
