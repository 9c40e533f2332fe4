package store

import (
	"context"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/project"
	"github.com/kazz187/taskgraph/internal/task"
)

// Tx exposes the repositories bound to one transaction. Repositories must not
// be retained after the transaction function returns.
type Tx interface {
	Projects() project.Repository
	Tasks() task.Repository
	Graph() graph.Repository
	Events() event.Repository
}

type TxFunc func(ctx context.Context, tx Tx) error

type Store interface {
	// Update runs fn in a read-write transaction while holding the write lock
	// of projectID. Either every write made by fn commits or none does.
	// Infrastructure failures are reported as cerr.KindUnavailable.
	Update(ctx context.Context, projectID string, fn TxFunc) error
	// View runs fn in a read-only snapshot transaction. No lock is taken.
	View(ctx context.Context, fn TxFunc) error
	Close() error
}
