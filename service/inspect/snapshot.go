package inspect

import (
	"fmt"
	"strings"
	"time"

	"github.com/viant/sector/runtime/processor"
)

// Counters holds sector subresource counters
type Counters struct {
	Attached    int `json:"attached"`
	Running     int `json:"running"`
	Terminated  int `json:"terminated"`
	Interrupted int `json:"interrupted"`
	Failed      int `json:"failed"`
}

// Node is a point in time view of a resource and its subresources
type Node struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	Path       string          `json:"path"`
	State      processor.State `json:"state"`
	Cause      processor.Cause `json:"cause,omitempty"`
	Terminable bool            `json:"terminable,omitempty"`
	StartedAt  time.Time       `json:"startedAt,omitempty"`
	Progress   *Counters       `json:"progress,omitempty"`
	Children   []*Node         `json:"children,omitempty"`
}

// Len returns number of nodes in the subtree
func (n *Node) Len() int {
	ret := 1
	for _, child := range n.Children {
		ret += child.Len()
	}
	return ret
}

// Snapshot captures the resource tree rooted at r
func Snapshot(r processor.Resource) *Node {
	switch actual := r.(type) {
	case *processor.Sector:
		ret := nodeOf(actual.Processor)
		p := actual.Progress()
		ret.Progress = &Counters{Attached: p.Attached, Running: p.Running, Terminated: p.Terminated, Interrupted: p.Interrupted, Failed: p.Failed}
		for _, child := range actual.Children() {
			ret.Children = append(ret.Children, Snapshot(child))
		}
		return ret
	case *processor.Processor:
		return nodeOf(actual)
	}
	return &Node{ID: r.ID(), Name: r.Name(), Path: r.Path(), State: r.Status()}
}

func nodeOf(p *processor.Processor) *Node {
	ret := &Node{
		ID:         p.ID(),
		Name:       p.Name(),
		Kind:       p.Kind(),
		Path:       p.Path(),
		State:      p.Status(),
		Terminable: len(p.BreakPoints()) > 0,
		StartedAt:  p.StartedAt(),
	}
	if report := p.Report(); report != nil {
		ret.Cause = report.Cause
	}
	return ret
}

// Format renders the tree one node per line, indented by depth
func Format(node *Node) string {
	builder := &strings.Builder{}
	format(builder, node, 0)
	return builder.String()
}

func format(builder *strings.Builder, node *Node, depth int) {
	builder.WriteString(strings.Repeat("  ", depth))
	builder.WriteString(fmt.Sprintf("%s [%s] %s", node.Name, node.Kind, node.State))
	if node.Cause != "" {
		builder.WriteString(" (" + string(node.Cause) + ")")
	}
	if node.Progress != nil {
		builder.WriteString(fmt.Sprintf(" running=%d terminated=%d interrupted=%d", node.Progress.Running, node.Progress.Terminated, node.Progress.Interrupted))
	}
	builder.WriteString("\n")
	for _, child := range node.Children {
		format(builder, child, depth+1)
	}
}
