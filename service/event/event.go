package event

import "time"

// Origin identifies the processor an event is about
type Origin struct {
	ProcessorID string `json:"processorId"`
	Path        string `json:"path"`
	Kind        string `json:"kind,omitempty"`
	EventType   string `json:"eventType"`
}

// Event wraps a typed payload with its origin
type Event[T any] struct {
	Origin    *Origin                `json:"origin"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event
func NewEvent[T any](origin *Origin, data T) *Event[T] {
	return &Event[T]{
		Origin:    origin,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
