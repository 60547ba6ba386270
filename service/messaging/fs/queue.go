package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/sector/service/messaging"
)

// MessageState represents the state of a message in the filesystem queue
type MessageState string

const (
	MessageStatePending    MessageState = "pending"
	MessageStateProcessing MessageState = "processing"
	MessageStateCompleted  MessageState = "completed"
	MessageStateFailed     MessageState = "failed"
)

// Message is a filesystem queue message stored as JSON
type Message[T any] struct {
	ID        string       `json:"id"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	NotBefore time.Time    `json:"notBefore,omitempty"`
	Retries   int          `json:"retries"`

	queue     *Queue[T]
	name      string
	processed bool
	mu        sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack removes the message from the processing directory
func (m *Message[T]) Ack() error {
	if err := m.settle(MessageStateCompleted, nil); err != nil {
		return err
	}
	return m.queue.complete(context.Background(), m)
}

// Nack returns the message to pending after the retry delay, or to the dead letter directory
func (m *Message[T]) Nack(err error) error {
	if e := m.settle(MessageStateFailed, err); e != nil {
		return e
	}
	return m.queue.fail(context.Background(), m)
}

func (m *Message[T]) settle(state MessageState, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return messaging.ErrProcessed
	}
	m.processed = true
	m.State = state
	if err != nil {
		m.Error = err.Error()
	}
	return nil
}

// Config holds configuration for filesystem queue
type Config struct {
	BaseURL       string        // Base URL for queue files, any afs scheme
	MaxRetries    int           // Maximum number of retry attempts
	RetryDelay    time.Duration // Delay before a failed message is redelivered
	PollInterval  time.Duration // Consume polling interval
	KeepCompleted bool          // Keep acknowledged messages in the completed directory
}

// DefaultConfig returns a default queue configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:      "/tmp/sector/queue",
		MaxRetries:   3,
		RetryDelay:   time.Second,
		PollInterval: 50 * time.Millisecond,
	}
}

// Queue implements a filesystem based messaging.Queue; message order follows publish time
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingDir    string
	processingDir string
	completedDir  string
	dlqDir        string
	mu            sync.Mutex
}

// NewQueue creates a filesystem based queue
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if url.Scheme(config.BaseURL, "") == "" {
		config.BaseURL = url.Normalize(config.BaseURL, file.Scheme)
	}
	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    url.Join(config.BaseURL, "pending"),
		processingDir: url.Join(config.BaseURL, "processing"),
		completedDir:  url.Join(config.BaseURL, "completed"),
		dlqDir:        url.Join(config.BaseURL, "dlq"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.processingDir, q.completedDir, q.dlqDir} {
		if exists, _ := fs.Exists(ctx, dir); exists {
			continue
		}
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// Publish writes a new message to the pending directory
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return nil
	}
	now := time.Now()
	msg := &Message[T]{ID: uuid.New().String(), Data: *t, State: MessageStatePending, CreatedAt: now}
	msg.name = fmt.Sprintf("%020d-%s.json", now.UnixNano(), msg.ID)
	return q.write(ctx, url.Join(q.pendingDir, msg.name), msg)
}

// Consume polls the pending directory until a due message is claimed or ctx is done
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		msg, err := q.claim(ctx)
		if err != nil || msg != nil {
			return msg, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.config.PollInterval):
		}
	}
}

// Pending returns number of messages waiting in the pending directory
func (q *Queue[T]) Pending(ctx context.Context) (int, error) {
	names, err := q.list(ctx, q.pendingDir)
	return len(names), err
}

// DeadLetters returns number of messages that exhausted their retries
func (q *Queue[T]) DeadLetters(ctx context.Context) (int, error) {
	names, err := q.list(ctx, q.dlqDir)
	return len(names), err
}

func (q *Queue[T]) claim(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	names, err := q.list(ctx, q.pendingDir)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, name := range names {
		location := url.Join(q.pendingDir, name)
		msg, err := q.read(ctx, location)
		if err != nil {
			_ = q.fs.Move(ctx, location, url.Join(q.dlqDir, "invalid-"+name))
			return nil, err
		}
		if msg.NotBefore.After(now) {
			continue
		}
		msg.name = name
		msg.queue = q
		msg.State = MessageStateProcessing
		if err = q.write(ctx, url.Join(q.processingDir, name), msg); err != nil {
			return nil, err
		}
		if err = q.fs.Delete(ctx, location); err != nil {
			return nil, fmt.Errorf("failed to delete pending message %s: %w", name, err)
		}
		return msg, nil
	}
	return nil, nil
}

func (q *Queue[T]) complete(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.config.KeepCompleted {
		if err := q.write(ctx, url.Join(q.completedDir, m.name), m); err != nil {
			return err
		}
	}
	return q.fs.Delete(ctx, url.Join(q.processingDir, m.name))
}

func (q *Queue[T]) fail(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	m.Retries++
	destination := url.Join(q.dlqDir, m.name)
	if m.Retries <= q.config.MaxRetries {
		m.State = MessageStatePending
		m.NotBefore = time.Now().Add(q.config.RetryDelay)
		destination = url.Join(q.pendingDir, m.name)
	}
	if err := q.write(ctx, destination, m); err != nil {
		return err
	}
	return q.fs.Delete(ctx, url.Join(q.processingDir, m.name))
}

func (q *Queue[T]) list(ctx context.Context, dir string) ([]string, error) {
	objects, err := q.fs.List(ctx, dir, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var names []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		names = append(names, object.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (q *Queue[T]) write(ctx context.Context, location string, msg *Message[T]) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", msg.ID, err)
	}
	if err = q.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write message %s: %w", location, err)
	}
	return nil
}

func (q *Queue[T]) read(ctx context.Context, location string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", location, err)
	}
	msg := &Message[T]{}
	if err = json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", location, err)
	}
	return msg, nil
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
