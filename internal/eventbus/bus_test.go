package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskgraph/internal/event"
)

func TestBus_PublishInOrder(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(10)
	defer bus.Unsubscribe(id)

	rec := event.NewRecorder("p1", "alice", time.Now())
	rec.Record("A", event.KindTaskCreated, "", "", nil)
	rec.Record("A", event.KindDependencyAdded, "", "B", nil)
	bus.Publish(rec.Events()...)

	first := <-ch
	second := <-ch
	assert.Equal(t, event.KindTaskCreated, first.Kind)
	assert.Equal(t, event.KindDependencyAdded, second.Kind)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	rec := event.NewRecorder("p1", "", time.Now())
	for range 3 {
		rec.Record("A", event.KindCommentAdded, "", "", nil)
	}
	bus.Publish(rec.Events()...)

	require.Len(t, ch, 1)
	assert.Equal(t, uint64(2), bus.Dropped(id))
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
	// publishing with no subscribers is a no-op
	bus.Publish(&event.Event{ID: "x"})
}
