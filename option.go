package sector

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/sector/model/state"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/service/dao"
	"github.com/viant/sector/service/event"
	"github.com/viant/sector/tracing"
	"github.com/viant/x"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures the Service
type Option func(s *Service)

// WithLogger sets the logger shared by every processor of the tree
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithName sets the root sector name
func WithName(name string) Option {
	return func(s *Service) { s.config.Runtime.Name = name }
}

// WithInterruptGrace sets how long an interrupted task may run before it is abandoned
func WithInterruptGrace(grace time.Duration) Option {
	return func(s *Service) { s.config.Runtime.InterruptGrace = grace }
}

// WithEnvironment defines environment parameters of the root transaction
func WithEnvironment(params ...*state.Parameter) Option {
	return func(s *Service) { s.environment = append(s.environment, params...) }
}

// WithConfigured declares configured parameters of the root sector
func WithConfigured(params ...*state.Parameter) Option {
	return func(s *Service) { s.configured = append(s.configured, params...) }
}

// WithExtensionTypes registers data types used to coerce parameter values
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) { s.extensionTypes = append(s.extensionTypes, types...) }
}

// WithEventService sets the event service carrying exit notices
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.events = service }
}

// WithReportService sets the exit report journal
func WithReportService(service dao.Service[string, processor.Report]) Option {
	return func(s *Service) { s.reports = service }
}

// WithFs sets the storage service used by fs backed components
func WithFs(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithArena sets the arena holding live processors
func WithArena(arena *processor.Arena) Option {
	return func(s *Service) { s.arena = arena }
}

// WithConfigSource feeds configured parameters of the root from a YAML
// document, reloading it every interval when interval > 0.
func WithConfigSource(URL string, interval time.Duration) Option {
	return func(s *Service) {
		s.config.Runtime.ConfigURL = URL
		s.config.Runtime.Reload = interval
	}
}

// WithNoticeBuffer sets the number of pending exit notices
func WithNoticeBuffer(size int) Option {
	return func(s *Service) { s.config.Events.Buffer = size }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The
// first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			s.logger.Warn("failed to initialise tracing", "error", err)
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter, for
// example OTLP, Jaeger or Zipkin. The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.logger.Warn("failed to initialise tracing", "error", err)
		}
	}
}

// WithMetrics registers processor exit metrics with the registerer
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(s *Service) { s.registerer = registerer }
}

// WithDeclarations adds root parameter declarations in the name[dataType](class/source) form
func WithDeclarations(declarations ...string) Option {
	return func(s *Service) {
		s.config.Runtime.Declarations = append(s.config.Runtime.Declarations, declarations...)
	}
}
