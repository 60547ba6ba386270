package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/service/dao"
	"github.com/viant/sector/service/dao/criteria"
)

// Service implements an in-memory, thread-safe exit report journal.
// Reports are immutable once published, so stored pointers are shared.
type Service struct {
	reports map[string]*processor.Report
	limit   int
	order   []string
	mux     sync.RWMutex
}

var _ dao.Service[string, processor.Report] = (*Service)(nil)

// Save records a report; the oldest entry is evicted once the limit is reached
func (s *Service) Save(_ context.Context, r *processor.Report) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.reports[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.reports[r.ID] = r
	if s.limit > 0 && len(s.order) > s.limit {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.reports, evicted)
	}
	return nil
}

func (s *Service) Load(_ context.Context, id string) (*processor.Report, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	r, ok := s.reports[id]
	s.mux.RUnlock()
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, dao.ErrNotFound)
	}
	return r, nil
}

func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.reports[id]; !ok {
		return fmt.Errorf("report %s: %w", id, dao.ErrNotFound)
	}
	delete(s.reports, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns reports ordered by finish time, filtered by State, Kind and Path
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*processor.Report, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*processor.Report, 0, len(s.reports))
	for _, id := range s.order {
		r := s.reports[id]
		if !criteria.FilterByState(string(r.State), parameters) ||
			!criteria.FilterByKind(r.Kind, parameters) ||
			!criteria.FilterByPath(r.Path, parameters) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinishedAt.Before(out[j].FinishedAt) })
	return out, nil
}

// New creates a journal keeping at most limit reports, unbounded when limit <= 0
func New(limit int) *Service {
	return &Service{reports: map[string]*processor.Report{}, limit: limit}
}
