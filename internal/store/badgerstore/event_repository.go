package badgerstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/pkg/cerr"
)

type eventRepository struct {
	txn *badger.Txn
}

var _ event.Repository = (*eventRepository)(nil)

func (r *eventRepository) Append(_ context.Context, events ...*event.Event) error {
	for _, e := range events {
		if e.ID == "" || e.TaskID == "" {
			return cerr.NewKindError(cerr.KindConstraintViolation, "event requires id and task id", map[string]string{"event_id": e.ID})
		}
		ok, err := exists(r.txn, eventKey(e.TaskID, e.ID))
		if err != nil {
			return readError("event", e.ID, err)
		}
		if ok {
			return cerr.NewKindError(cerr.KindConstraintViolation, "events are immutable", map[string]string{"event_id": e.ID})
		}
		if err := setYAML(r.txn, eventKey(e.TaskID, e.ID), e); err != nil {
			return writeError("event", err)
		}
	}
	return nil
}

func (r *eventRepository) ListByTask(_ context.Context, taskID string, filter event.Filter) ([]*event.Event, error) {
	events, err := scanValues[event.Event](r.txn, eventsPrefix(taskID))
	if err != nil {
		return nil, readError("events", taskID, err)
	}
	event.Sort(events)
	return filter.Apply(events), nil
}

func (r *eventRepository) DeleteByTask(_ context.Context, taskID string) error {
	ids, err := scanSuffixes(r.txn, eventsPrefix(taskID))
	if err != nil {
		return readError("events", taskID, err)
	}
	keys := make([][]byte, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, eventKey(taskID, id))
	}
	if err := deleteKeys(r.txn, keys); err != nil {
		return writeError("events", err)
	}
	return nil
}
