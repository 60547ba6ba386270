package event

import (
	"log/slog"

	"github.com/viant/afs"
	"github.com/viant/sector/service/messaging/fs"
	"github.com/viant/sector/service/messaging/memory"
)

// Option configures the event service
type Option func(s *Service)

// WithFsQueueConfig sets the per queue filesystem configuration
func WithFsQueueConfig(newConfig func(name string) fs.Config) Option {
	return func(s *Service) {
		s.fsQueueConfig = newConfig
	}
}

// WithMemoryQueueConfig sets the per queue memory configuration
func WithMemoryQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memQueueConfig = newConfig
	}
}

// WithFs sets the storage service used by fs queues
func WithFs(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithLogger sets listener logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
