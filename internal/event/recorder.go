package event

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Recorder collects the events of one logical operation. All events share the
// operation id and timestamp and receive strictly increasing ids.
type Recorder struct {
	operationID string
	projectID   string
	actorID     string
	now         time.Time
	events      []*Event
}

func NewRecorder(projectID, actorID string, now time.Time) *Recorder {
	return &Recorder{
		operationID: NewID(now),
		projectID:   projectID,
		actorID:     actorID,
		now:         now,
	}
}

// NewID returns a ULID for the given time. Ids generated within the same
// millisecond are monotonically increasing.
func NewID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

func (r *Recorder) OperationID() string {
	return r.operationID
}

func (r *Recorder) Now() time.Time {
	return r.now
}

func (r *Recorder) Record(taskID string, kind Kind, oldValue, newValue string, metadata map[string]string) *Event {
	e := &Event{
		ID:          NewID(r.now),
		OperationID: r.operationID,
		TaskID:      taskID,
		ProjectID:   r.projectID,
		Kind:        kind,
		ActorID:     r.actorID,
		OldValue:    oldValue,
		NewValue:    newValue,
		Metadata:    metadata,
		CreatedAt:   r.now,
	}
	r.events = append(r.events, e)
	return e
}

func (r *Recorder) Events() []*Event {
	return r.events
}

func (r *Recorder) Len() int {
	return len(r.events)
}
