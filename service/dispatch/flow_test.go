package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/service/messaging/memory"
	"golang.org/x/time/rate"
)

func TestFlow(t *testing.T) {
	ctx := context.Background()
	in := memory.NewQueue[int](memory.Config{QueueBuffer: 10, DeadLetter: true})
	out := memory.NewQueue[string](memory.Config{QueueBuffer: 10})
	flow := &Flow[int, string]{
		In:  in,
		Out: out,
		Map: func(ctx context.Context, v *int) (*string, error) {
			if *v < 0 {
				return nil, errors.New("negative")
			}
			ret := string(rune('a' + *v))
			return &ret, nil
		},
	}
	p := NewFlow(flow, arena())
	start(t, p)
	for _, v := range []int{0, -1, 1} {
		v := v
		require.NoError(t, in.Publish(ctx, &v))
	}

	consumeCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	var received []string
	for i := 0; i < 2; i++ {
		msg, err := out.Consume(consumeCtx)
		require.NoError(t, err)
		received = append(received, *msg.T())
		require.NoError(t, msg.Ack())
	}
	assert.Equal(t, []string{"a", "b"}, received)

	require.NoError(t, in.Close())
	report := wait(t, p)
	assert.Equal(t, processor.CauseCompleted, report.Cause)
	assert.Equal(t, 2, flow.Processed())
	assert.Equal(t, 1, flow.Failed())
	require.Len(t, in.DeadLetters(), 1)
	assert.EqualError(t, in.DeadLetters()[0].Err(), "negative")
}

func TestFlow_Terminate(t *testing.T) {
	flow := &Flow[int, int]{
		In:  memory.NewQueue[int](memory.DefaultConfig()),
		Map: func(ctx context.Context, v *int) (*int, error) { return v, nil },
	}
	p := NewFlow(flow, arena())
	assert.Equal(t, []string{MessageBreakPoint}, p.BreakPoints())
	start(t, p)
	require.NoError(t, p.Terminate())
	report := wait(t, p)
	assert.Equal(t, processor.StateTerminated, report.State)
	assert.Equal(t, processor.CauseTerminated, report.Cause)
}

func TestFlow_Invalid(t *testing.T) {
	p := NewFlow(&Flow[int, int]{}, arena())
	start(t, p)
	assert.Equal(t, processor.CauseFaulted, wait(t, p).Cause)
}

func TestFlow_Throttled(t *testing.T) {
	ctx := context.Background()
	in := memory.NewQueue[int](memory.Config{QueueBuffer: 10})
	out := memory.NewQueue[int](memory.Config{QueueBuffer: 10})
	flow := &Flow[int, int]{
		In:      in,
		Out:     out,
		Map:     func(ctx context.Context, v *int) (*int, error) { return v, nil },
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	}
	p := NewFlow(flow, arena())
	start(t, p)
	for _, v := range []int{1, 2} {
		v := v
		require.NoError(t, in.Publish(ctx, &v))
	}

	consumeCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	msg, err := out.Consume(consumeCtx)
	require.NoError(t, err)
	assert.Equal(t, 1, *msg.T())

	require.NoError(t, p.Terminate())
	report := wait(t, p)
	assert.Equal(t, processor.CauseTerminated, report.Cause)
	assert.Equal(t, 1, flow.Processed())
}
