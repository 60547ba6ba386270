package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/sector/internal/clock"
	"github.com/viant/sector/model/state"
	"github.com/viant/sector/progress"
	"github.com/viant/sector/runtime/transaction"
)

type messageKind int

const (
	messageAttach messageKind = iota
	messageAcquire
	messageDetach
	messageExited
)

type message struct {
	kind   messageKind
	child  *Processor
	report *Report
	reply  chan error
}

// Sector is a processor that owns and supervises subresources.
//
// A single goroutine per sector owns the subresource set: attach, detach,
// subresource exits and signals are processed sequentially. Observers run on
// that goroutine and must not call Dispatch, Acquire or Detach of the sector
// they observe.
type Sector struct {
	*Processor
	own           Task
	ownTerminable bool
	persistent    bool
	onProgress    func(progress.Progress)
	mailbox       chan message

	mu        sync.RWMutex
	children  map[string]*Processor
	order     []string
	initial   []*Processor
	observers []func(*Report)
	progress  *progress.Progress
}

// Dispatch initializes the subresource under the sector transaction and starts it
func (s *Sector) Dispatch(child Resource) error {
	if child == nil {
		return ErrNilTask
	}
	return s.send(messageAttach, child.core())
}

// Acquire takes ownership of a running unowned processor; constructed or
// initialized processors are dispatched instead. An acquired processor stays
// bound to the context it was started with.
func (s *Sector) Acquire(child Resource) error {
	if child == nil {
		return ErrNilTask
	}
	return s.send(messageAcquire, child.core())
}

// Detach removes the subresource without signaling it; it becomes a root
func (s *Sector) Detach(child Resource) error {
	if child == nil {
		return ErrNotOwned
	}
	return s.send(messageDetach, child.core())
}

// Include adds subresources started together with the sector
func (s *Sector) Include(children ...Resource) error {
	switch s.Status() {
	case StateConstructed, StateInitialized:
	default:
		return fmt.Errorf("%s: %w", s.name, ErrAlreadyStarted)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, child := range children {
		s.initial = append(s.initial, child.core())
	}
	return nil
}

// Observe registers a callback notified with every subresource exit report.
// Sectors dispatched later inherit the sector observers.
func (s *Sector) Observe(fn func(*Report)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Children returns owned subresources in attach order
func (s *Sector) Children() []Resource {
	list := s.list()
	ret := make([]Resource, 0, len(list))
	for _, child := range list {
		ret = append(ret, child.resource())
	}
	return ret
}

// Child returns the owned subresource with the name
func (s *Sector) Child(name string) (Resource, bool) {
	for _, child := range s.list() {
		if child.name == name {
			return child.resource(), true
		}
	}
	return nil, false
}

// Len returns number of owned subresources
func (s *Sector) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.children)
}

// Progress returns subresource counters
func (s *Sector) Progress() progress.Progress {
	s.mu.RLock()
	tracker := s.progress
	s.mu.RUnlock()
	return tracker.Snapshot()
}

func (s *Sector) send(kind messageKind, child *Processor) error {
	switch s.Status() {
	case StateConstructed, StateInitialized:
		return fmt.Errorf("%s: %w", s.name, ErrNotRunning)
	}
	msg := message{kind: kind, child: child, reply: make(chan error, 1)}
	select {
	case s.mailbox <- msg:
	case <-s.done:
		return s.closedError(kind)
	}
	select {
	case err := <-msg.reply:
		return err
	case <-s.done:
		select {
		case err := <-msg.reply:
			return err
		default:
			return s.closedError(kind)
		}
	}
}

func (s *Sector) closedError(kind messageKind) error {
	if kind == messageDetach {
		return fmt.Errorf("%s: %w", s.Path(), ErrExiting)
	}
	return fmt.Errorf("%s: %w", s.Path(), ErrSubresourceAttachAfterExit)
}

func (s *Sector) list() []*Processor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*Processor, 0, len(s.order))
	for _, id := range s.order {
		ret = append(ret, s.children[id])
	}
	return ret
}

func (s *Sector) owns(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.children[id]
	return ok
}

func (s *Sector) named(name string) bool {
	for _, child := range s.list() {
		if child.name == name {
			return true
		}
	}
	return false
}

func (s *Sector) add(child *Processor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[child.id] = child
	s.order = append(s.order, child.id)
}

func (s *Sector) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.children, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Sector) observersSnapshot() []func(*Report) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]func(*Report){}, s.observers...)
}

func (s *Sector) inherit(observers []func(*Report)) {
	if len(observers) == 0 {
		return
	}
	s.mu.Lock()
	s.observers = append(append([]func(*Report){}, observers...), s.observers...)
	s.mu.Unlock()
}

// moved rewrites descendant paths below the sector and hands them the
// observers of the new owner
func (s *Sector) moved(observers []func(*Report)) {
	s.inherit(observers)
	prefix := s.Path()
	for _, child := range s.list() {
		child.mu.Lock()
		child.path = prefix + "/" + child.name
		child.mu.Unlock()
		if child.host != nil {
			child.host.moved(observers)
		}
	}
}

// descendsFrom returns true when the processor with id is the sector or one of its owners
func (s *Sector) descendsFrom(id string) bool {
	for cur := s.Processor; cur != nil; cur = s.arena.Lookup(cur.Owner()) {
		if cur.id == id {
			return true
		}
	}
	return false
}

func (s *Sector) attach(ctx context.Context, child *Processor, tracker *progress.Progress) error {
	if child == s.Processor {
		return fmt.Errorf("%s: %w", s.Path(), ErrAlreadyOwned)
	}
	if err := child.initialize(s.Transaction()); err != nil {
		return err
	}
	if s.named(child.name) {
		return fmt.Errorf("%s/%s: %w", s.Path(), child.name, ErrDuplicateName)
	}
	if err := child.adopt(s); err != nil {
		return err
	}
	s.arena.Register(child)
	s.add(child)
	if child.host != nil {
		child.host.inherit(s.observersSnapshot())
	}
	tracker.Update(progress.Delta{Attached: 1, Running: 1})
	go child.run(ctx)
	return nil
}

func (s *Sector) acquire(ctx context.Context, child *Processor, tracker *progress.Progress) error {
	switch child.Status() {
	case StateConstructed, StateInitialized:
		return s.attach(ctx, child, tracker)
	}
	if child == s.Processor || s.owns(child.id) || s.descendsFrom(child.id) {
		return fmt.Errorf("%s: %w", child.name, ErrAlreadyOwned)
	}
	if s.named(child.name) {
		return fmt.Errorf("%s/%s: %w", s.Path(), child.name, ErrDuplicateName)
	}
	path := s.Path() + "/" + child.name
	child.mu.Lock()
	switch {
	case child.arena != s.arena:
		child.mu.Unlock()
		return fmt.Errorf("%s: %w", child.name, ErrForeignArena)
	case child.reported:
		child.mu.Unlock()
		return fmt.Errorf("%s: %w", child.name, ErrExiting)
	case child.parent != "":
		child.mu.Unlock()
		return fmt.Errorf("%s: %w", child.name, ErrAlreadyOwned)
	}
	child.parent = s.id
	child.path = path
	child.mu.Unlock()
	s.add(child)
	if child.host != nil {
		child.host.moved(s.observersSnapshot())
	}
	tracker.Update(progress.Delta{Attached: 1, Running: 1})
	return nil
}

func (s *Sector) detach(child *Processor, tracker *progress.Progress) error {
	if !s.owns(child.id) {
		return fmt.Errorf("%s: %w", child.name, ErrNotOwned)
	}
	child.mu.Lock()
	if child.reported {
		child.mu.Unlock()
		return fmt.Errorf("%s: %w", child.name, ErrExiting)
	}
	child.parent = ""
	child.path = "/" + child.name
	child.mu.Unlock()
	s.remove(child.id)
	if child.host != nil {
		child.host.moved(nil)
	}
	tracker.Update(progress.Delta{Attached: -1, Running: -1})
	return nil
}

// adopt moves an initialized processor to running under the owner
func (p *Processor) adopt(owner *Sector) error {
	path := owner.Path() + "/" + p.name
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateInitialized {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyStarted)
	}
	if p.parent != "" {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyOwned)
	}
	if p.logger == nil {
		p.logger = owner.logger
	}
	if p.grace <= 0 {
		p.grace = owner.grace
	}
	p.arena = owner.arena
	p.parent = owner.id
	p.path = path
	p.state = StateRunning
	p.startedAt = clock.Now()
	return nil
}

func (p *Processor) resource() Resource {
	if p.host != nil {
		return p.host
	}
	return p
}

// sectorRun holds the loop state of a running sector
type sectorRun struct {
	sector  *Sector
	ex      *Execution
	ctx     context.Context
	tracker *progress.Progress

	ownDone      <-chan error
	cancelOwn    context.CancelFunc
	ownRunning   bool
	ownCutShort  bool
	ownEscalated bool
	ownCompleted bool
	ownErr       error
	grace        <-chan time.Time
	abandoned    bool

	interrupted bool
	terminating bool
	reaped      bool
	notes       []Note
	failures    []*Report
}

func (r *sectorRun) exiting() bool {
	return r.interrupted || r.terminating || r.ownErr != nil
}

func (r *sectorRun) settled() bool {
	if r.sector.Len() > 0 || r.ownRunning {
		return false
	}
	if r.exiting() || r.ownCompleted {
		return true
	}
	return r.sector.own == nil && r.reaped && !r.sector.persistent
}

func (r *sectorRun) interrupt() {
	if r.interrupted {
		return
	}
	r.interrupted = true
	for _, child := range r.sector.list() {
		child.Interrupt()
	}
	r.cutOwn()
}

func (r *sectorRun) terminate() {
	if r.interrupted || r.terminating {
		return
	}
	r.terminating = true
	for _, child := range r.sector.list() {
		if err := child.Terminate(); err != nil {
			r.sector.log().Debug("terminate escalated to interrupt", "id", child.id, "path", child.Path())
			child.escalate()
		}
	}
	if !r.ownRunning {
		return
	}
	if r.sector.ownTerminable {
		r.ex.requestTermination()
		return
	}
	r.ownEscalated = true
	r.cutOwn()
}

func (r *sectorRun) cutOwn() {
	if !r.ownRunning || r.ownCutShort {
		return
	}
	r.ownCutShort = true
	r.cancelOwn()
	r.grace = time.After(r.sector.grace)
}

func (r *sectorRun) ownReturned(err error) {
	r.ownRunning = false
	r.ownDone = nil
	r.grace = nil
	switch {
	case r.ownCutShort:
	case err != nil:
		r.ownErr = err
		for _, child := range r.sector.list() {
			child.Interrupt()
		}
	default:
		r.ownCompleted = true
	}
}

func (r *sectorRun) abandonOwn() {
	r.sector.log().Warn("interrupted task abandoned", "id", r.sector.id, "path", r.sector.Path(), "grace", r.sector.grace)
	r.abandoned = true
	r.ownRunning = false
	r.ownDone = nil
	r.grace = nil
}

func (r *sectorRun) handle(msg message) {
	s := r.sector
	switch msg.kind {
	case messageAttach, messageAcquire:
		if r.exiting() {
			msg.reply <- fmt.Errorf("%s: %w", s.Path(), ErrSubresourceAttachAfterExit)
			return
		}
		if msg.kind == messageAttach {
			msg.reply <- s.attach(r.ctx, msg.child, r.tracker)
			return
		}
		msg.reply <- s.acquire(r.ctx, msg.child, r.tracker)
	case messageDetach:
		msg.reply <- s.detach(msg.child, r.tracker)
	case messageExited:
		r.reap(msg.child, msg.report)
	}
}

func (r *sectorRun) reap(child *Processor, report *Report) {
	s := r.sector
	if !s.owns(child.id) {
		panic(fmt.Sprintf("sector %s: exit report from processor %s it does not own", s.id, child.id))
	}
	s.remove(child.id)
	child.release()
	r.reaped = true
	delta := progress.Delta{Running: -1}
	if report.State == StateInterrupted {
		delta.Interrupted = 1
		r.notes = append(r.notes, report.note())
	} else {
		delta.Terminated = 1
	}
	r.notes = append(r.notes, report.Interrupted...)
	if report.Failed() {
		delta.Failed = 1
		r.failures = append(r.failures, report)
	}
	r.tracker.Update(delta)
	for _, fn := range s.observersSnapshot() {
		fn(report)
	}
	if child.final && !r.exiting() {
		s.log().Debug("final subresource exited", "id", s.id, "path", s.Path(), "final", report.Path)
		r.terminate()
	}
}

func (r *sectorRun) reject(child *Processor, err error) {
	s := r.sector
	s.log().Error("subresource rejected", "id", s.id, "path", s.Path(), "subresource", child.name, "error", err)
	r.failures = append(r.failures, &Report{
		ID:         child.id,
		Name:       child.name,
		Kind:       child.kind,
		Path:       s.Path() + "/" + child.name,
		ParentID:   s.id,
		State:      child.Status(),
		Cause:      CauseFaulted,
		Err:        err,
		Error:      err.Error(),
		FinishedAt: clock.Now(),
	})
}

func (r *sectorRun) report() *Report {
	s := r.sector
	ret := s.newReport()
	ret.Abandoned = r.abandoned
	ret.Interrupted = r.notes
	ret.Failures = r.failures
	if r.ownErr != nil {
		ret.Err = r.ownErr
		ret.Error = r.ownErr.Error()
	}
	switch {
	case r.interrupted:
		ret.State = StateInterrupted
		ret.Cause = CauseInterrupted
		if s.escalated.Load() {
			ret.Cause = CauseEscalated
		}
	case r.ownErr != nil:
		ret.State = StateInterrupted
		ret.Cause = CauseFaulted
	case r.ownEscalated:
		ret.State = StateInterrupted
		ret.Cause = CauseEscalated
	case r.terminating:
		ret.State = StateTerminated
		ret.Cause = CauseTerminated
	default:
		ret.State = StateTerminated
		ret.Cause = CauseCompleted
	}
	return ret
}

// loop drives the sector until its own task is done and every subresource reported
func (s *Sector) loop(ctx context.Context, ex *Execution) *Report {
	s.mu.Lock()
	tracker := progress.New(s.id, s.Path(), s.onProgress)
	s.progress = tracker
	initial := s.initial
	s.initial = nil
	s.mu.Unlock()

	ctx = progress.WithTracker(ctx, tracker)
	r := &sectorRun{sector: s, ex: ex, ctx: context.WithoutCancel(ctx), tracker: tracker, cancelOwn: func() {}}
	rejected := 0
	for _, child := range initial {
		if err := s.attach(r.ctx, child, tracker); err != nil {
			r.reject(child, err)
			rejected++
		}
	}
	if s.own == nil && len(initial) > 0 && rejected == len(initial) {
		r.ownErr = fmt.Errorf("%s: %w", s.Path(), ErrSubresourcesRejected)
	}
	if s.own != nil {
		var ownCtx context.Context
		ownCtx, r.cancelOwn = context.WithCancel(ctx)
		r.ownDone = launch(ownCtx, s.own, ex)
		r.ownRunning = true
	}
	defer func() { r.cancelOwn() }()

	for !r.settled() {
		select {
		case signal := <-s.control:
			if signal == SignalInterrupt {
				r.interrupt()
			} else {
				r.terminate()
			}
		case msg := <-s.mailbox:
			r.handle(msg)
		case err := <-r.ownDone:
			r.ownReturned(err)
		case <-r.grace:
			r.abandonOwn()
		}
	}
	return r.report()
}

// NewSector creates a sector in the constructed state; own may be nil
func NewSector(own Task, opts ...Option) *Sector {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	ret := &Sector{
		Processor:  newProcessor(own, "sector", o),
		own:        own,
		persistent: o.persistent,
		onProgress: o.onProgress,
		mailbox:    make(chan message),
		children:   map[string]*Processor{},
		observers:  o.observers,
	}
	ret.ownTerminable = len(ret.breakPoints) > 0
	ret.terminable = true
	ret.host = ret
	ret.drive = ret.loop
	return ret
}

// CreateSector creates an initialized sector with requisite parameters bound under txn
func CreateSector(txn *transaction.Transaction, requisites state.Parameters, own Task, opts ...Option) (*Sector, error) {
	opts = append(opts, WithTransaction(txn), WithRequisites(requisites...))
	ret := NewSector(own, opts...)
	if err := ret.Initialize(); err != nil {
		return nil, err
	}
	return ret, nil
}
