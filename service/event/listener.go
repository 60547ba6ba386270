package event

import (
	"context"
	"errors"
	"log/slog"

	"github.com/viant/sector/service/messaging"
)

// Listener consumes events from a publisher queue and hands them to a handler
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewListener creates a stopped listener
func NewListener[T any](publisher *Publisher[T], handler func(*Event[T]), logger *slog.Logger) *Listener[T] {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Stop cancels consumption; a handler already running completes
func (l *Listener[T]) Stop() {
	l.cancel()
}

// Start consumes in the background until stopped or the queue closes
func (l *Listener[T]) Start() {
	go func() {
		for {
			event, err := l.publisher.Consume(l.ctx)
			switch {
			case l.ctx.Err() != nil, errors.Is(err, messaging.ErrClosed):
				return
			case err != nil:
				l.logger.Warn("failed to consume event", "error", err)
				continue
			case event == nil:
				continue
			}
			l.handler(event)
		}
	}()
}
