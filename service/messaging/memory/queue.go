package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/sector/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message is an in-memory queue message
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempts  int
	err       error
	createdAt time.Time
	mu        sync.Mutex
	processed bool
}

// ID returns message id, stable across retries
func (m *Message[T]) ID() string { return m.id }

// Attempts returns number of failed deliveries
func (m *Message[T]) Attempts() int { return m.attempts }

// Err returns the last Nack error
func (m *Message[T]) Err() error { return m.err }

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	return m.settle()
}

// Nack schedules a redelivery or moves the message to the dead letter list
func (m *Message[T]) Nack(err error) error {
	if e := m.settle(); e != nil {
		return e
	}
	retry := &Message[T]{id: m.id, payload: m.payload, queue: m.queue, attempts: m.attempts + 1, err: err, createdAt: m.createdAt}
	m.queue.retry(retry)
	return nil
}

func (m *Message[T]) settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return messaging.ErrProcessed
	}
	m.processed = true
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
	closed   chan struct{}
	once     sync.Once
	mu       sync.Mutex
	dlq      []*Message[T]
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
		closed:   make(chan struct{}),
	}
}

// Publish adds a new item to the queue, blocking while the buffer is full
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return nil
	}
	msg := &Message[T]{id: uuid.New().String(), payload: *t, queue: q, createdAt: time.Now()}
	select {
	case <-q.closed:
		return messaging.ErrClosed
	default:
	}
	select {
	case q.messages <- msg:
		return nil
	case <-q.closed:
		return messaging.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-q.closed:
		return nil, messaging.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue[T]) retry(msg *Message[T]) {
	if msg.attempts > q.config.MaxRetries {
		if q.config.DeadLetter {
			q.mu.Lock()
			q.dlq = append(q.dlq, msg)
			q.mu.Unlock()
		}
		return
	}
	time.AfterFunc(q.config.RetryDelay, func() {
		select {
		case q.messages <- msg:
		case <-q.closed:
		}
	})
}

// Close stops the queue; pending consumers return messaging.ErrClosed
func (q *Queue[T]) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DeadLetters returns messages that exhausted their retries
func (q *Queue[T]) DeadLetters() []*Message[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Message[T]{}, q.dlq...)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
