package workflow

import "github.com/kazz187/taskgraph/internal/task"

// StatusDef describes one status of the fixed task workflow.
type StatusDef struct {
	Status     task.Status `yaml:"status" json:"status"`
	Order      int32       `yaml:"order" json:"order"`
	IsInitial  bool        `yaml:"is_initial" json:"is_initial"`
	IsTerminal bool        `yaml:"is_terminal" json:"is_terminal"`
	// Guarded statuses can only be entered when GraphSnapshot allows it.
	Guarded bool `yaml:"guarded" json:"guarded"`
}

var definition = func() []StatusDef {
	statuses := task.Statuses()
	defs := make([]StatusDef, 0, len(statuses))
	for i, s := range statuses {
		defs = append(defs, StatusDef{
			Status:     s,
			Order:      int32(i),
			IsInitial:  s == task.DefaultStatus,
			IsTerminal: s.IsTerminal(),
			Guarded:    s == task.StatusDone,
		})
	}
	return defs
}()

// Definition returns the workflow statuses in order.
func Definition() []StatusDef {
	out := make([]StatusDef, len(definition))
	copy(out, definition)
	return out
}

// GraphSnapshot carries the statuses of a task's blockers and direct children
// as seen inside the caller's transaction.
type GraphSnapshot struct {
	Blockers []task.Ref
	Children []task.Ref
}
