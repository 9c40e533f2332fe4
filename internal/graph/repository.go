package graph

import "context"

// Reader is the read side of the graph store. Results are sorted by task id.
// Parent returns "" for a top-level task.
type Reader interface {
	Blockers(ctx context.Context, taskID string) ([]string, error)
	Blocked(ctx context.Context, taskID string) ([]string, error)
	Parent(ctx context.Context, taskID string) (string, error)
	Children(ctx context.Context, taskID string) ([]string, error)
}

// Repository is bound to a single store transaction. It enforces only edge
// uniqueness and same-project endpoints; both violations are reported as
// cerr.KindConstraintViolation. Acyclicity is the validator's job.
type Repository interface {
	Reader
	AddDependencyEdge(ctx context.Context, e *Edge) error
	RemoveDependencyEdge(ctx context.Context, blockingID, blockedID string) error
	HasDependencyEdge(ctx context.Context, blockingID, blockedID string) (bool, error)
	GetDependencyEdge(ctx context.Context, blockingID, blockedID string) (*Edge, error)
	// RemoveEdgesOf deletes every dependency edge touching taskID and returns them.
	RemoveEdgesOf(ctx context.Context, taskID string) ([]*Edge, error)
	ListByProject(ctx context.Context, projectID string) ([]*Edge, error)
}
