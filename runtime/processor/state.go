package processor

// State represents the lifecycle state of a processor
type State string

const (
	StateConstructed State = "constructed"
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StateInterrupted State = "interrupted"
	StateTerminated  State = "terminated"
)

// IsTerminal returns true for interrupted and terminated
func (s State) IsTerminal() bool {
	return s == StateInterrupted || s == StateTerminated
}

// Cause explains how a processor reached its terminal state
type Cause string

const (
	CauseCompleted   Cause = "completed"   //work finished on its own
	CauseTerminated  Cause = "terminated"  //administrative terminate honored at a break point
	CauseInterrupted Cause = "interrupted" //interrupt signal
	CauseEscalated   Cause = "escalated"   //terminate escalated to interrupt
	CauseFaulted     Cause = "faulted"     //work returned an error or panicked
)

// Signal is a control message delivered over the processor control channel
type Signal int

const (
	SignalInterrupt Signal = iota
	SignalTerminate
)

func (s Signal) String() string {
	if s == SignalTerminate {
		return "terminate"
	}
	return "interrupt"
}
