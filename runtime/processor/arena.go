package processor

import (
	"context"

	"github.com/viant/sector/service/dao/store"
)

var defaultArena = NewArena()

// DefaultArena returns the arena used by roots started without WithArena
func DefaultArena() *Arena { return defaultArena }

// Arena holds live processors addressed by handle (processor id).
// Sectors keep handle sets of their subresources and subresources keep the
// handle of their owner, so no processor holds an owning pointer upwards.
type Arena struct {
	store *store.MemoryStore[string, Processor]
}

// Register adds a processor to the arena
func (a *Arena) Register(p *Processor) {
	_ = a.store.Save(context.Background(), p)
}

// Lookup returns the processor for the handle or nil
func (a *Arena) Lookup(handle string) *Processor {
	if handle == "" {
		return nil
	}
	p, _ := a.store.Load(context.Background(), handle)
	return p
}

// Release removes the processor from the arena
func (a *Arena) Release(handle string) {
	_ = a.store.Delete(context.Background(), handle)
}

// Len returns number of live processors
func (a *Arena) Len() int {
	return a.store.Len()
}

// Processors returns live processors
func (a *Arena) Processors() []*Processor {
	items, _ := a.store.List(context.Background())
	return items
}

// NewArena creates an arena
func NewArena() *Arena {
	return &Arena{store: store.NewMemoryStore[string, Processor](func(p *Processor) string { return p.id })}
}
