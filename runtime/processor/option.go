package processor

import (
	"log/slog"
	"time"

	"github.com/viant/sector/model/state"
	"github.com/viant/sector/progress"
	"github.com/viant/sector/runtime/transaction"
)

// Option configures a processor or a sector
type Option func(o *options)

type options struct {
	name        string
	kind        string
	txn         *transaction.Transaction
	requisites  state.Parameters
	txnOptions  []transaction.Option
	breakPoints []string
	logger      *slog.Logger
	grace       time.Duration
	final       bool
	arena       *Arena
	atExit      []func(*Report)
	observers   []func(*Report)
	onProgress  func(progress.Progress)
	persistent  bool
}

// WithName sets the processor name used in paths
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithKind sets a descriptive kind shown in structure snapshots
func WithKind(kind string) Option {
	return func(o *options) { o.kind = kind }
}

// WithTransaction sets the transaction the processor transaction derives from
func WithTransaction(txn *transaction.Transaction) Option {
	return func(o *options) { o.txn = txn }
}

// WithRequisites sets requisite parameters bound at initialization
func WithRequisites(params ...*state.Parameter) Option {
	return func(o *options) { o.requisites = append(o.requisites, params...) }
}

// WithTransactionOptions declares environment or configured parameters of the processor transaction
func WithTransactionOptions(opts ...transaction.Option) Option {
	return func(o *options) { o.txnOptions = append(o.txnOptions, opts...) }
}

// WithBreakPoints declares break points for tasks that do not implement BreakPointer
func WithBreakPoints(points ...string) Option {
	return func(o *options) { o.breakPoints = append(o.breakPoints, points...) }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithInterruptGrace sets how long an interrupted task may take to return before it is abandoned
func WithInterruptGrace(grace time.Duration) Option {
	return func(o *options) { o.grace = grace }
}

// WithFinal marks a processor whose exit makes the owning sector terminate
func WithFinal() Option {
	return func(o *options) { o.final = true }
}

// WithArena sets the arena of a root processor; subresources share their sector's arena
func WithArena(arena *Arena) Option {
	return func(o *options) { o.arena = arena }
}

// WithAtExit registers exit callbacks
func WithAtExit(fn ...func(*Report)) Option {
	return func(o *options) { o.atExit = append(o.atExit, fn...) }
}

// WithObserver registers sector observers notified for every subresource exit in the subtree
func WithObserver(fn ...func(*Report)) Option {
	return func(o *options) { o.observers = append(o.observers, fn...) }
}

// WithProgress registers a sector progress callback
func WithProgress(fn func(progress.Progress)) Option {
	return func(o *options) { o.onProgress = fn }
}

// WithPersistent keeps a sector without own work running after its last subresource exits
func WithPersistent() Option {
	return func(o *options) { o.persistent = true }
}
