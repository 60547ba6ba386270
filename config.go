package sector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/sector/internal/env"
	"github.com/viant/sector/model/state/declaration"
	"github.com/viant/sector/service/messaging"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the runtime configuration. The
// zero-value of every nested section inherits its package defaults.
type Config struct {
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Events  EventsConfig  `json:"events" yaml:"events"`
	Reports ReportsConfig `json:"reports" yaml:"reports"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// RuntimeConfig configures the root sector
type RuntimeConfig struct {
	Name           string                 `json:"name" yaml:"name"`
	InterruptGrace time.Duration          `json:"interruptGrace" yaml:"interruptGrace"`
	Environment    map[string]interface{} `json:"environment,omitempty" yaml:"environment,omitempty"`
	Configured     map[string]interface{} `json:"configured,omitempty" yaml:"configured,omitempty"`
	// Declarations type root parameters, e.g. "rate[int](configured/file:///etc/app.yaml)"
	Declarations []string `json:"declarations,omitempty" yaml:"declarations,omitempty"`
	// ConfigURL points to a YAML document feeding configured parameters of the root sector
	ConfigURL string        `json:"configURL,omitempty" yaml:"configURL,omitempty"`
	Reload    time.Duration `json:"reload,omitempty" yaml:"reload,omitempty"`
}

// EventsConfig configures exit notice delivery
type EventsConfig struct {
	Vendor  string `json:"vendor" yaml:"vendor"`
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Buffer  int    `json:"buffer" yaml:"buffer"`
}

// ReportsConfig configures the exit report journal; an empty URL keeps reports in memory
type ReportsConfig struct {
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Limit int    `json:"limit" yaml:"limit"`
}

// TracingConfig configures OpenTelemetry stdout tracing
type TracingConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Output  string `json:"output,omitempty" yaml:"output,omitempty"`
}

// DefaultConfig returns a Config populated with the defaults used by New
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Name:           "root",
			InterruptGrace: 5 * time.Second,
		},
		Events: EventsConfig{
			Vendor: string(messaging.VendorMemory),
			Buffer: 100,
		},
		Reports: ReportsConfig{
			Limit: 1000,
		},
		Tracing: TracingConfig{
			Service: "sector",
			Version: "0.1.0",
		},
	}
}

// Validate returns aggregated error describing invalid settings or nil
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Runtime.Name == "" {
		errs = append(errs, fmt.Errorf("runtime.name was empty"))
	}
	if c.Runtime.InterruptGrace < 0 {
		errs = append(errs, fmt.Errorf("runtime.interruptGrace must be >= 0"))
	}
	if c.Runtime.Reload < 0 {
		errs = append(errs, fmt.Errorf("runtime.reload must be >= 0"))
	}
	switch messaging.Vendor(c.Events.Vendor) {
	case messaging.VendorMemory:
	case messaging.VendorFs:
		if c.Events.BaseURL == "" {
			errs = append(errs, fmt.Errorf("events.baseURL is required for %s vendor", c.Events.Vendor))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported events.vendor: %q", c.Events.Vendor))
	}
	if c.Events.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("events.buffer must be > 0"))
	}
	if _, err := declaration.ParseAll(c.Runtime.Declarations...); err != nil {
		errs = append(errs, fmt.Errorf("runtime.declarations: %w", err))
	}
	if c.Reports.Limit < 0 {
		errs = append(errs, fmt.Errorf("reports.limit must be >= 0"))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML configuration over DefaultConfig from any afs supported
// URL; ${env.KEY} expressions are expanded first.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, url.Normalize(URL, file.Scheme), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	ret := DefaultConfig()
	if err := yaml.Unmarshal(env.ExpandBytes(data), ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
