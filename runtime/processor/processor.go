package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/sector/internal/clock"
	"github.com/viant/sector/internal/idgen"
	"github.com/viant/sector/model/state"
	"github.com/viant/sector/runtime/transaction"
	"github.com/viant/sector/tracing"
)

// DefaultInterruptGrace bounds how long an interrupted task may ignore cancellation
const DefaultInterruptGrace = 5 * time.Second

// Resource is anything owned by, and destroyed within, the processor hierarchy
type Resource interface {
	ID() string
	Name() string
	Path() string
	Status() State
	Interrupt()
	Terminate() error
	Done() <-chan struct{}
	Report() *Report
	core() *Processor
}

// Processor is a lifecycle managed unit of work
type Processor struct {
	id          string
	name        string
	kind        string
	task        Task
	breakPoints []string
	terminable  bool
	base        *transaction.Transaction
	requisites  state.Parameters
	txnOptions  []transaction.Option
	logger      *slog.Logger
	grace       time.Duration
	final       bool
	arena       *Arena
	host        *Sector
	drive       func(ctx context.Context, ex *Execution) *Report

	mu        sync.Mutex
	state     State
	txn       *transaction.Transaction
	parent    string
	path      string
	reported  bool
	released  bool
	atExit    []func(*Report)
	report    *Report
	startedAt time.Time

	control       chan Signal
	interruptSent atomic.Bool
	terminateSent atomic.Bool
	escalated     atomic.Bool
	done          chan struct{}
}

// ID returns processor handle
func (p *Processor) ID() string { return p.id }

// Name returns processor name
func (p *Processor) Name() string { return p.name }

// Kind returns processor kind
func (p *Processor) Kind() string { return p.kind }

// Final returns true when the exit of this processor terminates its sector
func (p *Processor) Final() bool { return p.final }

// BreakPoints returns declared break points
func (p *Processor) BreakPoints() []string { return p.breakPoints }

func (p *Processor) core() *Processor { return p }

// Path returns the slash separated position in the hierarchy
func (p *Processor) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "" {
		return "/" + p.name
	}
	return p.path
}

// Status returns current lifecycle state
func (p *Processor) Status() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Owner returns the handle of the owning sector, empty for roots
func (p *Processor) Owner() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parent
}

// Released returns true once the owner reaped the processor
func (p *Processor) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// StartedAt returns the time the processor started running
func (p *Processor) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startedAt
}

// Transaction returns the processor transaction, nil before initialization
func (p *Processor) Transaction() *transaction.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txn
}

// Report returns the exit report, nil until terminal
func (p *Processor) Report() *Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

// Done is closed once the processor reached its terminal state
func (p *Processor) Done() <-chan struct{} { return p.done }

// Wait blocks until the processor exits or ctx is done
func (p *Processor) Wait(ctx context.Context) (*Report, error) {
	select {
	case <-p.done:
		return p.Report(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AtExit registers a callback invoked with the exit report; it runs
// immediately when the processor already exited.
func (p *Processor) AtExit(fn func(*Report)) {
	p.mu.Lock()
	if p.report == nil {
		p.atExit = append(p.atExit, fn)
		p.mu.Unlock()
		return
	}
	report := p.report
	p.mu.Unlock()
	fn(report)
}

// SetConfigured pushes a configured parameter value to the processor transaction
func (p *Processor) SetConfigured(name string, value interface{}) error {
	txn := p.Transaction()
	if txn == nil {
		return fmt.Errorf("processor %s: %w", p.id, transaction.ErrInvalidParameter)
	}
	return txn.SetConfigured(name, value)
}

// Interrupt requests a forced exit. It never blocks and repeated calls are no-ops.
func (p *Processor) Interrupt() {
	if p.interruptSent.CompareAndSwap(false, true) {
		p.control <- SignalInterrupt
	}
}

// Terminate requests a graceful exit honored at the next break point.
// It returns ErrTerminationUnsupported when the processor declares none.
func (p *Processor) Terminate() error {
	if !p.terminable {
		return fmt.Errorf("%s: %w", p.Path(), ErrTerminationUnsupported)
	}
	if p.terminateSent.CompareAndSwap(false, true) {
		p.control <- SignalTerminate
	}
	return nil
}

// escalate interrupts a processor that cannot terminate, recording the cause
func (p *Processor) escalate() {
	p.escalated.Store(true)
	p.Interrupt()
}

// Initialize binds requisite parameters, moving constructed to initialized
func (p *Processor) Initialize() error {
	return p.initialize(nil)
}

func (p *Processor) initialize(owner *transaction.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateInitialized:
		return nil
	case StateConstructed:
	default:
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyStarted)
	}
	base := p.base
	if base == nil {
		base = owner
	}
	if base == nil {
		base = transaction.Anonymous()
	}
	opts := append([]transaction.Option{}, p.txnOptions...)
	if required := requisitesOf(p.task); len(required) > 0 {
		opts = append(opts, transaction.WithRequired(required...))
	}
	txn, err := base.Derive(p.name, p.requisites, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize %s: %w", p.name, err)
	}
	p.txn = txn
	p.state = StateInitialized
	return nil
}

// Start runs a root processor. Cancelling ctx interrupts it.
func (p *Processor) Start(ctx context.Context) error {
	if err := p.initialize(nil); err != nil {
		return err
	}
	if err := p.markRunning("", "/"+p.name); err != nil {
		return err
	}
	p.mu.Lock()
	if p.arena == nil {
		p.arena = defaultArena
	}
	arena := p.arena
	p.mu.Unlock()
	arena.Register(p)
	go func() {
		select {
		case <-ctx.Done():
			p.Interrupt()
		case <-p.done:
		}
	}()
	go p.run(ctx)
	return nil
}

func (p *Processor) markRunning(parent, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateInitialized {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyStarted)
	}
	if p.parent != "" {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyOwned)
	}
	p.parent = parent
	p.path = path
	if p.grace <= 0 {
		p.grace = DefaultInterruptGrace
	}
	p.state = StateRunning
	p.startedAt = clock.Now()
	return nil
}

func (p *Processor) run(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "processor.run "+p.kind, "INTERNAL")
	span.WithAttributes(map[string]string{"processor.id": p.id, "processor.path": p.Path()})
	p.log().Debug("processor running", "id", p.id, "path", p.Path(), "kind", p.kind)
	report := p.drive(ctx, newExecution(p))
	tracing.EndSpan(span, report.Err)
	p.finish(report)
}

// runTask drives a leaf task: signals arrive on the control channel while
// the task runs on its own goroutine.
func (p *Processor) runTask(ctx context.Context, ex *Execution) *Report {
	if p.task == nil {
		return p.outcome(false, ex, ErrNilTask, false)
	}
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := launch(workCtx, p.task, ex)
	interrupted := false
	var grace <-chan time.Time
	for {
		select {
		case signal := <-p.control:
			switch signal {
			case SignalInterrupt:
				if !interrupted {
					interrupted = true
					cancel()
					grace = time.After(p.grace)
				}
			case SignalTerminate:
				ex.requestTermination()
			}
		case err := <-done:
			return p.outcome(interrupted, ex, err, false)
		case <-grace:
			p.log().Warn("interrupted task abandoned", "id", p.id, "path", p.Path(), "grace", p.grace)
			return p.outcome(true, ex, nil, true)
		}
	}
}

func (p *Processor) outcome(interrupted bool, ex *Execution, err error, abandoned bool) *Report {
	report := p.newReport()
	report.Abandoned = abandoned
	switch {
	case interrupted:
		report.State = StateInterrupted
		report.Cause = CauseInterrupted
		if p.escalated.Load() {
			report.Cause = CauseEscalated
		}
	case err != nil:
		report.State = StateInterrupted
		report.Cause = CauseFaulted
		report.Err = err
		report.Error = err.Error()
	case ex.terminationRequested():
		report.State = StateTerminated
		report.Cause = CauseTerminated
	default:
		report.State = StateTerminated
		report.Cause = CauseCompleted
	}
	return report
}

func (p *Processor) newReport() *Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &Report{
		ID:         p.id,
		Name:       p.name,
		Kind:       p.kind,
		Path:       p.path,
		ParentID:   p.parent,
		StartedAt:  p.startedAt,
		FinishedAt: clock.Now(),
	}
}

// finish publishes the terminal state then reports to the owner
func (p *Processor) finish(report *Report) {
	report.FinishedAt = clock.Now()
	p.mu.Lock()
	if p.reported {
		p.mu.Unlock()
		panic(fmt.Sprintf("processor %s reported terminal state twice", p.id))
	}
	p.reported = true
	p.state = report.State
	p.report = report
	parent := p.parent
	arena := p.arena
	callbacks := p.atExit
	p.atExit = nil
	p.mu.Unlock()

	p.logExit(report)
	close(p.done)
	for _, fn := range callbacks {
		fn(report)
	}
	if parent == "" {
		p.release()
		return
	}
	owner := arena.Lookup(parent)
	if owner == nil || owner.host == nil {
		panic(fmt.Sprintf("processor %s: owner %s is not a live sector", p.id, parent))
	}
	owner.host.mailbox <- message{kind: messageExited, child: p, report: report}
}

func (p *Processor) release() {
	p.mu.Lock()
	p.released = true
	arena := p.arena
	p.mu.Unlock()
	if arena != nil {
		arena.Release(p.id)
	}
}

func (p *Processor) logExit(report *Report) {
	attrs := []any{"id", p.id, "path", report.Path, "state", report.State, "cause", report.Cause}
	switch {
	case report.Err != nil:
		p.log().Error("processor faulted", append(attrs, "error", report.Err)...)
	case report.Abandoned:
		p.log().Warn("processor exited", attrs...)
	default:
		p.log().Debug("processor exited", attrs...)
	}
}

func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.Default()
	}
	return p.logger
}

// New creates a processor in the constructed state
func New(task Task, opts ...Option) *Processor {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	ret := newProcessor(task, "processor", o)
	ret.drive = ret.runTask
	return ret
}

// Create implements the construction contract: the returned processor is
// initialized with its requisite parameters bound under txn.
func Create(txn *transaction.Transaction, requisites state.Parameters, task Task, opts ...Option) (*Processor, error) {
	opts = append(opts, WithTransaction(txn), WithRequisites(requisites...))
	ret := New(task, opts...)
	if err := ret.Initialize(); err != nil {
		return nil, err
	}
	return ret, nil
}

func newProcessor(task Task, kind string, o *options) *Processor {
	id := idgen.New()
	if o.kind != "" {
		kind = o.kind
	}
	name := o.name
	if name == "" {
		name = idgen.Name(kind, id)
	}
	ret := &Processor{
		id:         id,
		name:       name,
		kind:       kind,
		task:       task,
		base:       o.txn,
		requisites: o.requisites,
		txnOptions: o.txnOptions,
		logger:     o.logger,
		grace:      o.grace,
		final:      o.final,
		arena:      o.arena,
		atExit:     o.atExit,
		state:      StateConstructed,
		control:    make(chan Signal, 2),
		done:       make(chan struct{}),
	}
	if task != nil {
		ret.breakPoints = breakPointsOf(task, o.breakPoints)
	}
	ret.terminable = len(ret.breakPoints) > 0
	return ret
}
