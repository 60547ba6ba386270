package processor

import (
	"errors"
	"fmt"
	"time"
)

// Note records an interruption that occurred within a sector
type Note struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Cause Cause  `json:"cause"`
}

// Report is the exit report of a processor
type Report struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Path        string    `json:"path"`
	ParentID    string    `json:"parentId,omitempty"`
	State       State     `json:"state"`
	Cause       Cause     `json:"cause"`
	Err         error     `json:"-"`
	Error       string    `json:"error,omitempty"`
	Abandoned   bool      `json:"abandoned,omitempty"`
	Interrupted []Note    `json:"interrupted,omitempty"`
	Failures    []*Report `json:"failures,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// Failed returns true when the processor or any subresource faulted
func (r *Report) Failed() bool {
	return r.Err != nil || len(r.Failures) > 0
}

// Errors returns own and aggregated subresource errors
func (r *Report) Errors() error {
	var errs []error
	if r.Err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", r.Path, r.Err))
	}
	for _, failure := range r.Failures {
		if err := failure.Errors(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noted returns true when the subresource with the id was recorded as interrupted
func (r *Report) Noted(id string) bool {
	for _, note := range r.Interrupted {
		if note.ID == id {
			return true
		}
	}
	return false
}

// Elapsed returns run duration
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) note() Note {
	return Note{ID: r.ID, Name: r.Name, Path: r.Path, Cause: r.Cause}
}
