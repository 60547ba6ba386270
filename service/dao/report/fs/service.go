package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/service/dao"
	"github.com/viant/sector/service/dao/criteria"
)

// Service implements a filesystem based exit report journal; every report is
// kept as <id>.json under the base URL.
type Service struct {
	baseURL string
	fs      afs.Service
	logger  *slog.Logger
	mu      sync.RWMutex
}

var _ dao.Service[string, processor.Report] = (*Service)(nil)

// Save persists a report
func (s *Service) Save(ctx context.Context, r *processor.Report) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report %s: %w", r.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.reportURL(r.ID)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save report to %s: %w", location, err)
	}
	return nil
}

// Load retrieves a report; Err is not persisted, Error carries its text
func (s *Service) Load(ctx context.Context, id string) (*processor.Report, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	location := s.reportURL(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check report %s: %w", id, err)
	}
	if !exists {
		return nil, fmt.Errorf("report %s: %w", id, dao.ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", id, err)
	}
	ret := &processor.Report{}
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return ret, nil
}

// Delete removes a report
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.reportURL(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check report %s: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("report %s: %w", id, dao.ErrNotFound)
	}
	return s.fs.Delete(ctx, location)
}

// List returns stored reports ordered by finish time
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*processor.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	var reports []*processor.Report
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("failed to read report", "url", object.URL(), "error", err)
			continue
		}
		r := &processor.Report{}
		if err := json.Unmarshal(data, r); err != nil {
			s.logger.Warn("failed to unmarshal report", "url", object.URL(), "error", err)
			continue
		}
		if !criteria.FilterByState(string(r.State), parameters) ||
			!criteria.FilterByKind(r.Kind, parameters) ||
			!criteria.FilterByPath(r.Path, parameters) {
			continue
		}
		reports = append(reports, r)
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].FinishedAt.Before(reports[j].FinishedAt) })
	return reports, nil
}

func (s *Service) reportURL(id string) string {
	return url.Join(s.baseURL, id+".json")
}

// New creates a journal rooted at baseURL, e.g. file:///var/sector/reports or mem://localhost/reports
func New(fs afs.Service, baseURL string, logger *slog.Logger) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if url.Scheme(baseURL, "") == "" {
		baseURL = url.Normalize(path.Clean(baseURL), file.Scheme)
	}
	ctx := context.Background()
	if exists, _ := fs.Exists(ctx, baseURL); !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create report directory %s: %w", baseURL, err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs, logger: logger}, nil
}
