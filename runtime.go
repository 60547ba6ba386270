package sector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/sector/metrics"
	"github.com/viant/sector/model/state"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/runtime/transaction"
	"github.com/viant/sector/service/dao"
	"github.com/viant/sector/service/dao/criteria"
	"github.com/viant/sector/service/event"
	"github.com/viant/sector/service/inspect"
	"github.com/viant/sector/service/source"
	"github.com/viant/sector/tracing"
)

const publishTimeout = 250 * time.Millisecond

// Runtime supervises a root sector: it addresses resources by path, journals
// exit reports and publishes exit notices.
type Runtime struct {
	name       string
	txn        *transaction.Transaction
	configured state.Parameters
	arena      *processor.Arena
	logger     *slog.Logger
	grace      time.Duration
	events     *event.Service
	reports    dao.Service[string, processor.Report]
	metrics    *metrics.Collector
	source     *source.File
	reload     time.Duration
	buffer     int
	durable    bool

	listening atomic.Bool
	mu        sync.Mutex
	root      *processor.Sector
	publisher *event.Publisher[Notice]
	notices   chan *processor.Report
	closed    bool
	drained   chan struct{}
}

// Start creates and starts the root sector. Configured parameters of the root
// are loaded from the config source first.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.root != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	root, err := r.newRoot(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	publisher, err := event.PublisherOf[Notice](r.events)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to create notice publisher: %w", err)
	}
	r.publisher = publisher
	r.notices = make(chan *processor.Report, r.buffer)
	r.drained = make(chan struct{})
	r.root = root
	r.mu.Unlock()

	go r.forward()
	return root.Start(ctx)
}

func (r *Runtime) newRoot(ctx context.Context) (*processor.Sector, error) {
	root := processor.NewSector(nil,
		processor.WithName(r.name),
		processor.WithTransaction(r.txn),
		processor.WithTransactionOptions(transaction.WithConfigured(r.configured...)),
		processor.WithArena(r.arena),
		processor.WithLogger(r.logger),
		processor.WithInterruptGrace(r.grace),
		processor.WithPersistent(),
		processor.WithObserver(r.enqueue),
		processor.WithAtExit(r.exited),
	)
	if err := root.Initialize(); err != nil {
		return nil, err
	}
	if r.source == nil {
		return root, nil
	}
	if _, err := r.source.Load(ctx, root.Transaction()); err != nil {
		return nil, err
	}
	if r.reload > 0 {
		watch := r.source.Watch(root.Transaction(), r.reload, processor.WithName("config"))
		if err := root.Include(watch); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// Root returns the root sector or nil before Start
func (r *Runtime) Root() *processor.Sector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root
}

// OnNotice sets the exit notice listener; notices are published only while a
// listener is set or the event vendor is durable.
func (r *Runtime) OnNotice(handler func(*event.Event[Notice])) error {
	if err := event.SetListenerOf[Notice](r.events, handler); err != nil {
		return err
	}
	r.listening.Store(true)
	return nil
}

// DispatchOption configures Dispatch
type DispatchOption func(o *dispatchOptions)

type dispatchOptions struct {
	under   string
	acquire bool
}

// Under dispatches into the sector at path instead of the root
func Under(path string) DispatchOption {
	return func(o *dispatchOptions) { o.under = path }
}

// Acquiring takes ownership of an already running processor
func Acquiring() DispatchOption {
	return func(o *dispatchOptions) { o.acquire = true }
}

// Dispatch adds the resource to the root or to the sector selected with Under
func (r *Runtime) Dispatch(ctx context.Context, child processor.Resource, opts ...DispatchOption) (err error) {
	o := &dispatchOptions{}
	for _, opt := range opts {
		opt(o)
	}
	_, span := tracing.StartSpan(ctx, "runtime.dispatch", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	target, err := r.sector(o.under)
	if err != nil {
		return err
	}
	span.WithAttributes(map[string]string{"sector": target.Path(), "name": child.Name()})
	if o.acquire {
		return target.Acquire(child)
	}
	return target.Dispatch(child)
}

func (r *Runtime) sector(path string) (*processor.Sector, error) {
	if path == "" {
		root := r.Root()
		if root == nil {
			return nil, ErrNotStarted
		}
		return root, nil
	}
	resource, err := r.Lookup(path)
	if err != nil {
		return nil, err
	}
	ret, ok := resource.(*processor.Sector)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotSector)
	}
	return ret, nil
}

// Lookup returns the live resource at path, e.g. /root/workers/w1
func (r *Runtime) Lookup(path string) (processor.Resource, error) {
	root := r.Root()
	if root == nil {
		return nil, ErrNotStarted
	}
	segments, err := inspect.ParsePath(path)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return root, nil
	}
	if segments[0] != root.Name() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	var current processor.Resource = root
	for _, name := range segments[1:] {
		sector, ok := current.(*processor.Sector)
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		if current, ok = sector.Child(name); !ok {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
	}
	return current, nil
}

// Interrupt interrupts the resource at path
func (r *Runtime) Interrupt(path string) error {
	resource, err := r.Lookup(path)
	if err != nil {
		return err
	}
	resource.Interrupt()
	return nil
}

// Terminate requests termination of the resource at path
func (r *Runtime) Terminate(path string) error {
	resource, err := r.Lookup(path)
	if err != nil {
		return err
	}
	return resource.Terminate()
}

// Status returns the state of the resource at path
func (r *Runtime) Status(path string) (processor.State, error) {
	resource, err := r.Lookup(path)
	if err != nil {
		return "", err
	}
	return resource.Status(), nil
}

// SetConfigured pushes a configured parameter to the resource at path
func (r *Runtime) SetConfigured(path, name string, value interface{}) error {
	resource, err := r.Lookup(path)
	if err != nil {
		return err
	}
	configurable, ok := resource.(interface {
		SetConfigured(name string, value interface{}) error
	})
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return configurable.SetConfigured(name, value)
}

// Snapshot captures the current tree
func (r *Runtime) Snapshot() (*inspect.Node, error) {
	root := r.Root()
	if root == nil {
		return nil, ErrNotStarted
	}
	return inspect.Snapshot(root), nil
}

// Reports returns journaled exit reports, optionally filtered by state
func (r *Runtime) Reports(ctx context.Context, states ...processor.State) ([]*processor.Report, error) {
	var parameters []*dao.Parameter
	if len(states) > 0 {
		values := make([]string, 0, len(states))
		for _, candidate := range states {
			values = append(values, string(candidate))
		}
		parameters = append(parameters, dao.NewParameter(criteria.State, values...))
	}
	return r.reports.List(ctx, parameters...)
}

// Wait blocks until the root sector exits
func (r *Runtime) Wait(ctx context.Context) (*processor.Report, error) {
	root := r.Root()
	if root == nil {
		return nil, ErrNotStarted
	}
	report, err := root.Wait(ctx)
	if err != nil {
		return nil, err
	}
	select {
	case <-r.drained:
	case <-ctx.Done():
		return report, ctx.Err()
	}
	return report, nil
}

// Shutdown terminates the tree, falling back to interrupt once ctx is done,
// then flushes pending notices and closes the event service.
func (r *Runtime) Shutdown(ctx context.Context) error {
	root := r.Root()
	if root == nil {
		return ErrNotStarted
	}
	if err := root.Terminate(); err != nil {
		root.Interrupt()
	}
	select {
	case <-root.Done():
	case <-ctx.Done():
		r.logger.Warn("terminate did not complete, interrupting", "path", root.Path(), "error", ctx.Err())
		root.Interrupt()
		<-root.Done()
	}
	<-r.drained
	return r.events.Close()
}

func (r *Runtime) enqueue(report *processor.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.metrics.Observe(report)
	r.metrics.Noted(len(report.Interrupted))
	select {
	case r.notices <- report:
	default:
		r.metrics.Dropped()
		r.logger.Warn("notice dropped", "id", report.ID, "path", report.Path)
	}
}

func (r *Runtime) exited(report *processor.Report) {
	r.enqueue(report)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	close(r.notices)
}

func (r *Runtime) forward() {
	defer close(r.drained)
	for report := range r.notices {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := r.reports.Save(ctx, report); err != nil {
			r.logger.Warn("failed to journal report", "id", report.ID, "error", err)
		}
		if r.durable || r.listening.Load() {
			notice := noticeOf(report)
			if err := r.publisher.Publish(ctx, event.NewEvent(notice.Origin(), *notice)); err != nil {
				r.logger.Warn("notice dropped", "id", report.ID, "path", report.Path, "error", err)
			}
		}
		cancel()
	}
}
