package task

import (
	"fmt"
	"slices"
)

type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusNotNeeded  Status = "not_needed"
)

// DefaultStatus is assigned when a task is created without an explicit status.
const DefaultStatus = StatusTodo

var statuses = []Status{
	StatusBacklog,
	StatusTodo,
	StatusInProgress,
	StatusBlocked,
	StatusReview,
	StatusDone,
	StatusNotNeeded,
}

// Statuses returns the workflow statuses in their canonical order.
func Statuses() []Status {
	return slices.Clone(statuses)
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	return slices.Contains(statuses, s)
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further work is expected on the task.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusNotNeeded
}

// IsOpenWork reports whether the status is eligible for the actionable list.
func (s Status) IsOpenWork() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview:
		return true
	}
	return false
}

// SatisfiesParent reports whether a subtask in this status lets its parent enter done.
func (s Status) SatisfiesParent() bool {
	return s.IsTerminal()
}

// SatisfiesDependent reports whether a blocker in this status no longer blocks.
func (s Status) SatisfiesDependent() bool {
	return s == StatusDone
}
