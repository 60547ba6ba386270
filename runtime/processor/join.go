package processor

import (
	"context"
	"sync"
)

// Join waits for a set of named processors to exit
type Join struct {
	mu      sync.Mutex
	pending int
	reports map[string]*Report
	done    chan struct{}
	onDone  []func(map[string]*Report)
}

// OnDone registers a callback invoked once every dependency exited; it runs
// immediately when they already did.
func (j *Join) OnDone(fn func(map[string]*Report)) {
	j.mu.Lock()
	if j.pending > 0 {
		j.onDone = append(j.onDone, fn)
		j.mu.Unlock()
		return
	}
	reports := j.copy()
	j.mu.Unlock()
	fn(reports)
}

// Done is closed once every dependency exited
func (j *Join) Done() <-chan struct{} { return j.done }

// Wait blocks until every dependency exited or ctx is done
func (j *Join) Wait(ctx context.Context) (map[string]*Report, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.copy(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *Join) exited(name string, report *Report) {
	j.mu.Lock()
	j.reports[name] = report
	j.pending--
	if j.pending > 0 {
		j.mu.Unlock()
		return
	}
	callbacks := j.onDone
	j.onDone = nil
	reports := j.copy()
	close(j.done)
	j.mu.Unlock()
	for _, fn := range callbacks {
		fn(reports)
	}
}

func (j *Join) copy() map[string]*Report {
	ret := make(map[string]*Report, len(j.reports))
	for k, v := range j.reports {
		ret[k] = v
	}
	return ret
}

// NewJoin creates a join over named dependencies
func NewJoin(dependencies map[string]Resource) *Join {
	ret := &Join{
		pending: len(dependencies),
		reports: make(map[string]*Report, len(dependencies)),
		done:    make(chan struct{}),
	}
	if len(dependencies) == 0 {
		close(ret.done)
		return ret
	}
	for name, dependency := range dependencies {
		name := name
		dependency.core().AtExit(func(report *Report) { ret.exited(name, report) })
	}
	return ret
}
