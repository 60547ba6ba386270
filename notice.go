package sector

import (
	"time"

	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/service/event"
)

// NoticeExited is the event type of exit notices
const NoticeExited = "exited"

// Notice announces that a processor of the tree exited
type Notice struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Kind        string           `json:"kind"`
	Path        string           `json:"path"`
	ParentID    string           `json:"parentId,omitempty"`
	State       processor.State  `json:"state"`
	Cause       processor.Cause  `json:"cause"`
	Error       string           `json:"error,omitempty"`
	Abandoned   bool             `json:"abandoned,omitempty"`
	Interrupted []processor.Note `json:"interrupted,omitempty"`
	Elapsed     time.Duration    `json:"elapsed"`
}

// Origin returns the event origin of the notice
func (n *Notice) Origin() *event.Origin {
	return &event.Origin{ProcessorID: n.ID, Path: n.Path, Kind: n.Kind, EventType: NoticeExited}
}

func noticeOf(report *processor.Report) *Notice {
	return &Notice{
		ID:          report.ID,
		Name:        report.Name,
		Kind:        report.Kind,
		Path:        report.Path,
		ParentID:    report.ParentID,
		State:       report.State,
		Cause:       report.Cause,
		Error:       report.Error,
		Abandoned:   report.Abandoned,
		Interrupted: report.Interrupted,
		Elapsed:     report.Elapsed(),
	}
}
