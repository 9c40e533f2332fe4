package event

import (
	"cmp"
	"slices"
	"time"
)

type Kind string

const (
	KindTaskCreated       Kind = "task_created"
	KindStatusChange      Kind = "status_change"
	KindFieldUpdated      Kind = "field_updated"
	KindOwnershipChanged  Kind = "ownership_changed"
	KindDependencyAdded   Kind = "dependency_added"
	KindDependencyRemoved Kind = "dependency_removed"
	KindCommentAdded      Kind = "comment_added"
)

var kinds = []Kind{
	KindTaskCreated,
	KindStatusChange,
	KindFieldUpdated,
	KindOwnershipChanged,
	KindDependencyAdded,
	KindDependencyRemoved,
	KindCommentAdded,
}

func (k Kind) Valid() bool {
	return slices.Contains(kinds, k)
}

// Metadata keys shared by producers and consumers of the log.
const (
	MetaBlockingID = "blocking_id"
	MetaBlockedID  = "blocked_id"
	MetaField      = "field"
	MetaBody       = "body"
	MetaOperation  = "operation"
)

// Event is an immutable record of one state change on a task.
type Event struct {
	ID          string            `yaml:"id" json:"id"`
	OperationID string            `yaml:"operation_id" json:"operation_id"`
	TaskID      string            `yaml:"task_id" json:"task_id"`
	ProjectID   string            `yaml:"project_id" json:"project_id"`
	Kind        Kind              `yaml:"kind" json:"kind"`
	ActorID     string            `yaml:"actor_id,omitempty" json:"actor_id,omitempty"` // empty for system events
	OldValue    string            `yaml:"old_value,omitempty" json:"old_value,omitempty"`
	NewValue    string            `yaml:"new_value,omitempty" json:"new_value,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt   time.Time         `yaml:"created_at" json:"created_at"`
}

func (e *Event) IsSystem() bool {
	return e.ActorID == ""
}

// Compare orders events by (CreatedAt, ID).
func Compare(a, b *Event) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func Sort(events []*Event) {
	slices.SortStableFunc(events, Compare)
}

// Filter narrows ListByTask results. Zero value returns everything.
type Filter struct {
	Kinds []Kind
	Since time.Time
	Limit int
}

func (f Filter) Match(e *Event) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, e.Kind) {
		return false
	}
	if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// Apply filters events that are already in log order.
func (f Filter) Apply(events []*Event) []*Event {
	out := make([]*Event, 0, len(events))
	for _, e := range events {
		if !f.Match(e) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
