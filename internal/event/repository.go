package event

import "context"

// Repository is append-only; events leave the log only when their task is deleted.
type Repository interface {
	Append(ctx context.Context, events ...*Event) error
	ListByTask(ctx context.Context, taskID string, filter Filter) ([]*Event, error)
	DeleteByTask(ctx context.Context, taskID string) error
}
