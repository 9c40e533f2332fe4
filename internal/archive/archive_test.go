package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/eventbus"
	"github.com/kazz187/taskgraph/pkg/storage"
)

func newEvents(projectID string, at time.Time) []*event.Event {
	rec := event.NewRecorder(projectID, "alice", at)
	rec.Record("T1", event.KindTaskCreated, "", "write docs", nil)
	rec.Record("T2", event.KindDependencyAdded, "", "", map[string]string{
		event.MetaBlockingID: "T1",
		event.MetaBlockedID:  "T2",
	})
	return rec.Events()
}

func TestPath(t *testing.T) {
	at := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("JST", 9*60*60))
	assert.Equal(t, "archive/P1/events_2026-03-04.ndjson", Path("P1", at))
}

func TestArchiver_Write(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	a := New(st, eventbus.New(), 8)

	day1 := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	first := newEvents("P1", day1)
	second := newEvents("P1", day2)
	require.NoError(t, a.Write(ctx, first...))
	require.NoError(t, a.Write(ctx, second...))

	got, err := ReadDay(ctx, st, "P1", day1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first[0].ID, got[0].ID)
	assert.Equal(t, "T1", got[1].Metadata[event.MetaBlockingID])
	assert.True(t, first[1].CreatedAt.Equal(got[1].CreatedAt))

	days, err := Days(ctx, st, "P1")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-03-04", days[0].Format(dayLayout))

	none, err := ReadDay(ctx, st, "P2", day1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestArchiver_RunFlushesOnShutdown(t *testing.T) {
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	bus := eventbus.New()
	a := New(st, bus, 64)

	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	events := newEvents("P1", at)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	bus.Publish(events...)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("archiver did not stop")
	}

	got, err := ReadDay(context.Background(), st, "P1", at)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, event.KindTaskCreated, got[0].Kind)
	assert.Equal(t, event.KindDependencyAdded, got[1].Kind)
}
