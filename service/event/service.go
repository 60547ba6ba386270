package event

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/viant/afs"
	"github.com/viant/sector/service/messaging"
	"github.com/viant/sector/service/messaging/fs"
	"github.com/viant/sector/service/messaging/memory"
)

// Service routes typed events through queues of the configured vendor
type Service struct {
	publisher       *Publisher[any]
	listener        *Listener[any]
	listening       atomic.Bool
	typedPublishers map[reflect.Type]any
	typedListeners  map[reflect.Type]any
	mux             sync.RWMutex
	queueVendor     messaging.Vendor
	fs              afs.Service
	logger          *slog.Logger
	fsQueueConfig   func(name string) fs.Config
	memQueueConfig  func(name string) memory.Config
	closers         []func() error
}

// SetListener replaces the listener receiving events of every type
func (s *Service) SetListener(handler func(*Event[any])) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.listener != nil {
		s.listener.Stop()
	}
	s.listener = NewListener[any](s.publisher, handler, s.logger)
	s.listening.Store(true)
	s.listener.Start()
}

// Close stops listeners and closes memory queues
func (s *Service) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.listener != nil {
		s.listener.Stop()
		s.listening.Store(false)
	}
	for _, listener := range s.typedListeners {
		listener.(interface{ Stop() }).Stop()
	}
	for _, closer := range s.closers {
		_ = closer()
	}
	s.closers = nil
	return nil
}

// New creates an event service for the memory or fs vendor
func New(queueVendor messaging.Vendor, opts ...Option) (*Service, error) {
	ret := &Service{
		queueVendor:     queueVendor,
		typedPublishers: make(map[reflect.Type]any),
		typedListeners:  make(map[reflect.Type]any),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = slog.Default()
	}
	switch queueVendor {
	case messaging.VendorFs:
		if ret.fsQueueConfig == nil {
			return nil, fmt.Errorf("fs queue vendor requires fs queue config")
		}
		if ret.fs == nil {
			ret.fs = afs.New()
		}
	case messaging.VendorMemory:
		if ret.memQueueConfig == nil {
			ret.memQueueConfig = func(string) memory.Config { return memory.DefaultConfig() }
		}
	default:
		return nil, fmt.Errorf("unsupported queue vendor: %s", queueVendor)
	}
	queue, err := QueueOf[Event[any]](ret, "any")
	if err != nil {
		return nil, err
	}
	ret.publisher = NewPublisher[any](queue)
	return ret, nil
}

// QueueOf creates a named queue of the service vendor
func QueueOf[T any](s *Service, name string) (messaging.Queue[T], error) {
	switch s.queueVendor {
	case messaging.VendorFs:
		return fs.NewQueue[T](s.fs, s.fsQueueConfig(name))
	case messaging.VendorMemory:
		queue := memory.NewQueue[T](s.memQueueConfig(name))
		s.closers = append(s.closers, queue.Close)
		return queue, nil
	}
	return nil, fmt.Errorf("unsupported queue vendor: %s", s.queueVendor)
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// SetListenerOf replaces the listener of typed events
func SetListenerOf[T any](s *Service, handler func(*Event[T])) error {
	publisher, err := PublisherOf[T](s)
	if err != nil {
		return err
	}
	key := keyOf[T]()
	s.mux.Lock()
	defer s.mux.Unlock()
	if prev, ok := s.typedListeners[key]; ok {
		prev.(*Listener[T]).Stop()
	}
	listener := NewListener[T](publisher, handler, s.logger)
	s.typedListeners[key] = listener
	listener.Start()
	return nil
}

// PublisherOf returns the publisher of typed events
func PublisherOf[T any](s *Service) (*Publisher[T], error) {
	key := keyOf[T]()
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok := s.typedPublishers[key]; ok {
		return ret.(*Publisher[T]), nil
	}
	queue, err := QueueOf[Event[T]](s, key.String())
	if err != nil {
		return nil, err
	}
	publisher := NewPublisher[T](queue)
	publisher.anyQueue = s.publisher.queue
	publisher.mirror = s.listening.Load
	s.typedPublishers[key] = publisher
	return publisher, nil
}
