package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs/url"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"github.com/viant/scy/cred/secret"
	"github.com/viant/sector/runtime/processor"
	"golang.org/x/crypto/ssh"
)

// CommandBreakPoint is honored between commands
const CommandBreakPoint = "command"

// Host identifies where commands run; localhost runs a local shell
type Host struct {
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Credentials string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// IsLocal returns true for localhost
func (h *Host) IsLocal() bool {
	if h == nil || h.URL == "" {
		return true
	}
	host := url.Host(h.URL)
	if index := strings.LastIndex(host, ":"); index != -1 {
		host = host[:index]
	}
	return host == "localhost" || host == "127.0.0.1"
}

// Result is the outcome of a single command
type Result struct {
	Command string        `json:"command"`
	Stdout  string        `json:"stdout,omitempty"`
	Stderr  string        `json:"stderr,omitempty"`
	Status  int           `json:"status"`
	Elapsed time.Duration `json:"elapsed"`
}

// Runner runs shell commands; gosh.Service implements it
type Runner interface {
	Run(ctx context.Context, command string, options ...runner.Option) (string, int, error)
	Close() error
}

// Command runs a sequence of shell commands in a single session
type Command struct {
	Host         *Host             `json:"host,omitempty" yaml:"host,omitempty"`
	Workdir      string            `json:"workdir,omitempty" yaml:"workdir,omitempty"`
	Env          map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Commands     []string          `json:"commands" yaml:"commands"`
	Timeout      time.Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	AbortOnError bool              `json:"abortOnError,omitempty" yaml:"abortOnError,omitempty"`

	// NewRunner overrides session creation
	NewRunner func(ctx context.Context, cmd *Command) (Runner, error) `json:"-" yaml:"-"`

	mu      sync.Mutex
	results []*Result
}

// BreakPoints declares the inter command break point
func (c *Command) BreakPoints() []string { return []string{CommandBreakPoint} }

// Results returns results of executed commands
func (c *Command) Results() []*Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Result{}, c.results...)
}

// Run executes commands; an interrupt closes the session to stop the running command
func (c *Command) Run(ctx context.Context, ex *processor.Execution) error {
	newRunner := c.NewRunner
	if newRunner == nil {
		newRunner = goshRunner
	}
	session, err := newRunner(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	var closeOnce sync.Once
	closeSession := func() { closeOnce.Do(func() { _ = session.Close() }) }
	defer closeSession()
	stop := context.AfterFunc(ctx, closeSession)
	defer stop()

	if c.Workdir != "" {
		if _, _, err := session.Run(ctx, "cd "+c.Workdir); err != nil {
			return fmt.Errorf("failed to change directory to %s: %w", c.Workdir, err)
		}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	for _, command := range c.Commands {
		if ex.BreakPoint(CommandBreakPoint) {
			return nil
		}
		started := time.Now()
		stdout, status, err := session.Run(ctx, command, runner.WithTimeout(int(timeout.Milliseconds())))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result := &Result{Command: command, Status: status, Elapsed: time.Since(started)}
		if status == 0 && err == nil {
			result.Stdout = strings.TrimSpace(stdout)
		} else {
			result.Stderr = strings.TrimSpace(stdout)
			if result.Stderr == "" && err != nil {
				result.Stderr = err.Error()
			}
		}
		c.mu.Lock()
		c.results = append(c.results, result)
		c.mu.Unlock()
		ex.Logger().Debug("command executed", "command", command, "status", status, "elapsed", result.Elapsed)
		if c.AbortOnError && (status != 0 || err != nil) {
			return fmt.Errorf("command %q failed with status %d: %s", command, status, result.Stderr)
		}
	}
	return nil
}

func goshRunner(ctx context.Context, c *Command) (Runner, error) {
	var options []runner.Option
	if len(c.Env) > 0 {
		options = append(options, runner.WithEnvironment(c.Env))
	}
	if c.Host.IsLocal() {
		return gosh.New(ctx, local.New(options...))
	}
	config, err := sshConfig(ctx, c.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to get SSH config: %w", err)
	}
	host := url.Host(c.Host.URL)
	if !strings.Contains(host, ":") {
		host += ":22"
	}
	return gosh.New(ctx, rssh.New(host, config, options...))
}

func sshConfig(ctx context.Context, host *Host) (*ssh.ClientConfig, error) {
	credentials := host.Credentials
	if credentials == "" {
		credentials = "localhost"
	}
	generic, err := secret.New().GetCredentials(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return generic.SSH.Config(ctx)
}

// Shell creates a terminate-capable processor running the command sequence
func Shell(cmd *Command, opts ...processor.Option) *processor.Processor {
	opts = append([]processor.Option{processor.WithKind("command")}, opts...)
	return processor.New(cmd, opts...)
}
