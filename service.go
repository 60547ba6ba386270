package sector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/sector/extension"
	"github.com/viant/sector/metrics"
	"github.com/viant/sector/model/state"
	"github.com/viant/sector/model/state/declaration"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/runtime/transaction"
	"github.com/viant/sector/service/dao"
	rfs "github.com/viant/sector/service/dao/report/fs"
	rmemory "github.com/viant/sector/service/dao/report/memory"
	"github.com/viant/sector/service/event"
	"github.com/viant/sector/service/messaging"
	fsqueue "github.com/viant/sector/service/messaging/fs"
	"github.com/viant/sector/service/messaging/memory"
	"github.com/viant/sector/service/source"
	"github.com/viant/sector/tracing"
	"github.com/viant/x"
)

// Service wires the root transaction, exit notices, report journal and Runtime
type Service struct {
	config         *Config
	logger         *slog.Logger
	fs             afs.Service
	arena          *processor.Arena
	environment    state.Parameters
	configured     state.Parameters
	extensionTypes []*x.Type
	types          *extension.Types
	txn            *transaction.Transaction
	events         *event.Service
	reports        dao.Service[string, processor.Report]
	registerer     prometheus.Registerer
	runtime        *Runtime
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	return s.ensureBaseSetup()
}

func (s *Service) ensureBaseSetup() error {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.arena == nil {
		s.arena = processor.NewArena()
	}
	s.types = extension.NewTypes()
	for _, aType := range s.extensionTypes {
		s.types.Register(aType)
	}
	if err := s.ensureParameters(); err != nil {
		return err
	}
	if err := s.ensureTransaction(); err != nil {
		return err
	}
	if err := s.ensureEvents(); err != nil {
		return err
	}
	if err := s.ensureReports(); err != nil {
		return err
	}
	arena := s.arena
	collector, err := metrics.New(s.registerer, "sector", func() float64 { return float64(arena.Len()) })
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	cfg := s.config.Runtime
	s.runtime = &Runtime{
		name:       cfg.Name,
		txn:        s.txn,
		configured: s.configured,
		arena:      s.arena,
		logger:     s.logger,
		grace:      cfg.InterruptGrace,
		events:     s.events,
		reports:    s.reports,
		metrics:    collector,
		reload:     cfg.Reload,
		buffer:     s.config.Events.Buffer,
		durable:    messaging.Vendor(s.config.Events.Vendor) == messaging.VendorFs,
	}
	if cfg.ConfigURL != "" {
		s.runtime.source = source.NewFile(s.fs, cfg.ConfigURL)
	}
	return nil
}

// ensureParameters merges option and config parameters of the root and
// applies the declared data types and sources.
func (s *Service) ensureParameters() error {
	cfg := s.config.Runtime
	environment := make(state.Parameters, 0, len(s.environment)+len(cfg.Environment))
	for _, param := range s.environment {
		environment = append(environment, param.Clone())
	}
	environment = append(environment, state.FromMap(state.ClassEnvironment, cfg.Environment)...)
	configured := make(state.Parameters, 0, len(s.configured)+len(cfg.Configured))
	for _, param := range s.configured {
		configured = append(configured, param.Clone())
	}
	for name, value := range cfg.Configured {
		configured = append(configured, state.Configured(name, value))
	}
	declarations, err := declaration.ParseAll(cfg.Declarations...)
	if err != nil {
		return err
	}
	for _, declared := range declarations {
		switch declared.Class {
		case state.ClassEnvironment:
			param, ok := environment.Get(declared.Name)
			if !ok {
				return fmt.Errorf("declared environment parameter %v has no value", declared.Name)
			}
			typed(param, declared)
		case state.ClassConfigured:
			if param, ok := configured.Get(declared.Name); ok {
				typed(param, declared)
				continue
			}
			configured = append(configured, declared)
		default:
			return fmt.Errorf("root sector cannot declare %v parameter %v", declared.Class, declared.Name)
		}
	}
	s.environment = environment
	s.configured = configured
	return nil
}

func typed(param, declared *state.Parameter) {
	param.DataType = declared.DataType
	if declared.Location != nil && declared.Location.In != "" {
		param.Location = declared.Location
	}
}

func (s *Service) ensureTransaction() error {
	txn, err := transaction.New(s.config.Runtime.Name, nil,
		transaction.WithEnvironment(s.environment...),
		transaction.WithTypes(s.types))
	if err != nil {
		return err
	}
	s.txn = txn
	return nil
}

func (s *Service) ensureEvents() error {
	if s.events != nil {
		return nil
	}
	cfg := s.config.Events
	var err error
	switch messaging.Vendor(cfg.Vendor) {
	case messaging.VendorFs:
		s.events, err = event.New(messaging.VendorFs,
			event.WithFs(s.fs),
			event.WithLogger(s.logger),
			event.WithFsQueueConfig(func(name string) fsqueue.Config {
				ret := fsqueue.DefaultConfig()
				ret.BaseURL = url.Join(cfg.BaseURL, name)
				return ret
			}))
	default:
		s.events, err = event.New(messaging.VendorMemory,
			event.WithLogger(s.logger),
			event.WithMemoryQueueConfig(func(name string) memory.Config {
				ret := memory.DefaultConfig()
				ret.QueueBuffer = cfg.Buffer
				return ret
			}))
	}
	return err
}

func (s *Service) ensureReports() error {
	if s.reports != nil {
		return nil
	}
	if URL := s.config.Reports.URL; URL != "" {
		reports, err := rfs.New(s.fs, URL, s.logger)
		if err != nil {
			return err
		}
		s.reports = reports
		return nil
	}
	s.reports = rmemory.New(s.config.Reports.Limit)
	return nil
}

// Runtime returns the runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Transaction returns the root transaction
func (s *Service) Transaction() *transaction.Transaction {
	return s.txn
}

// Events returns the event service carrying exit notices
func (s *Service) Events() *event.Service {
	return s.events
}

// Reports returns the exit report journal
func (s *Service) Reports() dao.Service[string, processor.Report] {
	return s.reports
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// New creates a service with DefaultConfig adjusted by options
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig(), logger: slog.Default()}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}

// NewFromConfig creates a service from cfg; options are applied after the config
func NewFromConfig(cfg *Config, options ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	config := *cfg
	var prefix []Option
	if t := config.Tracing; t.Enabled {
		prefix = append(prefix, WithTracing(t.Service, t.Version, t.Output))
	}
	ret := &Service{config: &config, logger: slog.Default()}
	if err := ret.init(append(prefix, options...)); err != nil {
		return nil, err
	}
	return ret, nil
}

// Load reads configuration from URL and creates the service
func Load(ctx context.Context, URL string, options ...Option) (*Service, error) {
	cfg, err := LoadConfig(ctx, URL)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, options...)
}

// Shutdown flushes tracing spans; call it after Runtime.Shutdown
func (s *Service) Shutdown(ctx context.Context) error {
	return tracing.Shutdown(ctx)
}
