package messaging

import (
	"context"
	"errors"
)

// Vendor represents the name of a messaging vendor
type Vendor string

const (
	// VendorMemory keeps messages in process
	VendorMemory Vendor = "memory"
	// VendorFs keeps messages as files on any afs supported storage
	VendorFs Vendor = "fs"
)

// ErrClosed is returned by a queue that was closed
var ErrClosed = errors.New("messaging: queue closed")

// ErrProcessed is returned when a message is acknowledged twice
var ErrProcessed = errors.New("messaging: message already processed")

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or ctx is done
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message; it is retried up to the queue limit
	Nack(err error) error
}
