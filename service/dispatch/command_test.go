package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/gosh/runner"
	"github.com/viant/sector/runtime/processor"
)

type fakeRunner struct {
	mu       sync.Mutex
	outputs  map[string]string
	statuses map[string]int
	commands []string
	block    string
	closed   chan struct{}
	once     sync.Once
	started  chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, command string, options ...runner.Option) (string, int, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()
	if command == f.block {
		close(f.started)
		<-f.closed
		return "", -1, context.Canceled
	}
	return f.outputs[command], f.statuses[command], nil
}

func (f *fakeRunner) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeRunner) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.commands...)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs:  map[string]string{},
		statuses: map[string]int{},
		closed:   make(chan struct{}),
		started:  make(chan struct{}),
	}
}

func TestCommand(t *testing.T) {
	testCases := []struct {
		description   string
		commands      []string
		abortOnError  bool
		expectCause   processor.Cause
		expectRun     []string
		expectResults int
	}{
		{
			description:   "runs every command",
			commands:      []string{"echo hello", "false", "ls"},
			expectCause:   processor.CauseCompleted,
			expectRun:     []string{"cd /tmp", "echo hello", "false", "ls"},
			expectResults: 3,
		},
		{
			description:   "aborts on error",
			commands:      []string{"echo hello", "false", "ls"},
			abortOnError:  true,
			expectCause:   processor.CauseFaulted,
			expectRun:     []string{"cd /tmp", "echo hello", "false"},
			expectResults: 2,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			fake := newFakeRunner()
			fake.outputs["echo hello"] = "hello\n"
			fake.outputs["false"] = "failed"
			fake.statuses["false"] = 1
			cmd := &Command{
				Workdir:      "/tmp",
				Commands:     testCase.commands,
				AbortOnError: testCase.abortOnError,
				NewRunner:    func(ctx context.Context, cmd *Command) (Runner, error) { return fake, nil },
			}
			p := Shell(cmd, arena())
			assert.Equal(t, []string{CommandBreakPoint}, p.BreakPoints())
			start(t, p)
			report := wait(t, p)
			assert.Equal(t, testCase.expectCause, report.Cause)
			assert.Equal(t, testCase.expectRun, fake.executed())
			results := cmd.Results()
			require.Len(t, results, testCase.expectResults)
			assert.Equal(t, "hello", results[0].Stdout)
			assert.Equal(t, "failed", results[1].Stderr)
			assert.Equal(t, 1, results[1].Status)
			select {
			case <-fake.closed:
			default:
				t.Fatal("session was not closed")
			}
		})
	}
}

func TestCommand_InterruptClosesSession(t *testing.T) {
	fake := newFakeRunner()
	fake.block = "sleep 3600"
	cmd := &Command{
		Commands:  []string{"sleep 3600", "echo never"},
		NewRunner: func(ctx context.Context, cmd *Command) (Runner, error) { return fake, nil },
	}
	p := Shell(cmd, arena())
	start(t, p)
	<-fake.started
	p.Interrupt()
	report := wait(t, p)
	assert.Equal(t, processor.StateInterrupted, report.State)
	assert.Equal(t, []string{"sleep 3600"}, fake.executed())
}

func TestHost_IsLocal(t *testing.T) {
	var host *Host
	assert.True(t, host.IsLocal())
	assert.True(t, (&Host{URL: "ssh://localhost:22"}).IsLocal())
	assert.False(t, (&Host{URL: "ssh://10.0.0.1:22"}).IsLocal())
}
