package task

import (
	"slices"
	"time"
)

type Task struct {
	ID          string            `yaml:"id" json:"id"`
	ProjectID   string            `yaml:"project_id" json:"project_id"`
	ParentID    string            `yaml:"parent_id,omitempty" json:"parent_id,omitempty"`
	Title       string            `yaml:"title" json:"title"`
	Description string            `yaml:"description" json:"description"`
	Status      Status            `yaml:"status" json:"status"`
	OwnerID     string            `yaml:"owner_id,omitempty" json:"owner_id,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt   time.Time         `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `yaml:"updated_at" json:"updated_at"`
}

func (t *Task) HasParent() bool {
	return t.ParentID != ""
}

// Ref returns the id/status pair used by the workflow guard.
func (t *Task) Ref() Ref {
	return Ref{ID: t.ID, Status: t.Status}
}

func (t *Task) Clone() *Task {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Ref is a lightweight view of a related task.
type Ref struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// SortByID orders tasks by id, which for ULIDs is creation order.
func SortByID(tasks []*Task) {
	slices.SortFunc(tasks, func(a, b *Task) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
