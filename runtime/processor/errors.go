package processor

import (
	"errors"

	"github.com/viant/sector/runtime/transaction"
)

var (
	// ErrTerminationUnsupported is returned by Terminate on a processor
	// that declares no break points; callers fall back to Interrupt.
	ErrTerminationUnsupported = errors.New("termination unsupported")

	// ErrSubresourceAttachAfterExit is returned when attaching to a sector
	// that is exiting or has exited.
	ErrSubresourceAttachAfterExit = errors.New("subresource attach after exit")

	// ErrSubresourcesRejected faults a sector without own task whose
	// included subresources all failed to start.
	ErrSubresourcesRejected = errors.New("every included subresource was rejected")

	// ErrInvalidRequisiteParameters aliases the transaction error so that
	// construction callers need a single import.
	ErrInvalidRequisiteParameters = transaction.ErrInvalidRequisiteParameters

	// ErrUnresolvedParameter aliases the transaction error.
	ErrUnresolvedParameter = transaction.ErrUnresolvedParameter

	ErrAlreadyStarted = errors.New("processor already started")
	ErrAlreadyOwned   = errors.New("processor already owned")
	ErrNotOwned       = errors.New("processor not owned by sector")
	ErrExiting        = errors.New("processor is exiting")
	ErrPanic          = errors.New("processor panic")
	ErrNilTask        = errors.New("processor task is nil")
	ErrNotRunning     = errors.New("sector not running")
	ErrDuplicateName  = errors.New("duplicate subresource name")
	ErrForeignArena   = errors.New("processor belongs to another arena")
)
