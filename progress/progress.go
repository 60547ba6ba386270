package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by a sector when a
// subresource is attached, acquired, detached or reaped. Fields are signed.
type Delta struct {
	Attached    int
	Running     int
	Terminated  int
	Interrupted int
	Failed      int
}

// Progress keeps subresource counters of a single sector. It is safe for concurrent use.
type Progress struct {
	SectorID  string
	Path      string
	StartedAt time.Time

	Attached    int
	Running     int
	Terminated  int
	Interrupted int
	Failed      int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the delta; the change callback runs outside the critical section
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.Attached += d.Attached
	p.Running += d.Running
	p.Terminated += d.Terminated
	p.Interrupted += d.Interrupted
	p.Failed += d.Failed
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

// OnChange registers the callback invoked after every Update; nil disables it
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// Exited returns number of reaped subresources
func (p Progress) Exited() int {
	return p.Terminated + p.Interrupted
}

func (p *Progress) copy() Progress {
	return Progress{
		SectorID:    p.SectorID,
		Path:        p.Path,
		StartedAt:   p.StartedAt,
		Attached:    p.Attached,
		Running:     p.Running,
		Terminated:  p.Terminated,
		Interrupted: p.Interrupted,
		Failed:      p.Failed,
	}
}

// New creates a tracker
func New(sectorID, path string, onChange func(Progress)) *Progress {
	return &Progress{SectorID: sectorID, Path: path, StartedAt: time.Now(), onChange: onChange}
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds the tracker in a derived context
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// FromContext extracts the tracker of the nearest enclosing sector
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// GetSnapshot combines FromContext and Snapshot
func GetSnapshot(ctx context.Context) (Progress, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Progress{}, false
}
