// Package archive copies committed events into daily NDJSON files on a
// storage.Storage backend (local directory or S3).
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/eventbus"
	"github.com/kazz187/taskgraph/pkg/cerr"
	"github.com/kazz187/taskgraph/pkg/storage"
)

const (
	root       = "archive"
	dayLayout  = "2006-01-02"
	filePrefix = "events_"
	fileSuffix = ".ndjson"
)

// Path returns the archive file holding the events of projectID created on day (UTC).
func Path(projectID string, day time.Time) string {
	return path.Join(root, projectID, filePrefix+day.UTC().Format(dayLayout)+fileSuffix)
}

type entry struct {
	*event.Event
	ArchivedAt time.Time `json:"archived_at"`
}

type Archiver struct {
	store  storage.Storage
	bus    *eventbus.Bus
	subID  string
	ch     <-chan *event.Event
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Archiver)

func WithLogger(l *slog.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// New subscribes to bus immediately so that events published before Run
// starts are buffered rather than lost.
func New(st storage.Storage, bus *eventbus.Bus, bufSize int, opts ...Option) *Archiver {
	a := &Archiver{
		store:  st,
		bus:    bus,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.subID, a.ch = bus.Subscribe(bufSize)
	return a
}

// Run writes events until ctx is done, then flushes what is still buffered.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "event archiver started")
	for {
		select {
		case <-ctx.Done():
			dropped := a.bus.Dropped(a.subID)
			a.bus.Unsubscribe(a.subID)
			var rest []*event.Event
			for e := range a.ch {
				rest = append(rest, e)
			}
			// ctx is already canceled; the final flush must still reach storage.
			flushCtx := context.WithoutCancel(ctx)
			if err := a.Write(flushCtx, rest...); err != nil {
				a.logger.ErrorContext(flushCtx, "failed to flush archived events", "error", err, "events", len(rest))
			}
			if dropped > 0 {
				a.logger.WarnContext(flushCtx, "event archiver missed events", "dropped", dropped)
			}
			a.logger.InfoContext(flushCtx, "event archiver stopped")
			return nil
		case e := <-a.ch:
			batch := []*event.Event{e}
		drain:
			for {
				select {
				case more := <-a.ch:
					batch = append(batch, more)
				default:
					break drain
				}
			}
			if err := a.Write(ctx, batch...); err != nil {
				a.logger.ErrorContext(ctx, "failed to archive events", "error", err, "events", len(batch))
			}
		}
	}
}

// Write appends events to their daily files, one Append per file.
func (a *Archiver) Write(ctx context.Context, events ...*event.Event) error {
	if len(events) == 0 {
		return nil
	}
	archivedAt := a.now()
	files := make(map[string]*bytes.Buffer)
	var order []string
	for _, e := range events {
		if e == nil {
			continue
		}
		p := Path(e.ProjectID, e.CreatedAt)
		buf, ok := files[p]
		if !ok {
			buf = &bytes.Buffer{}
			files[p] = buf
			order = append(order, p)
		}
		data, err := json.Marshal(entry{Event: e, ArchivedAt: archivedAt})
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	var errs []error
	for _, p := range order {
		if err := a.store.Append(ctx, p, files[p].Bytes()); err != nil {
			errs = append(errs, cerr.WrapStorageError("append", p, err))
		}
	}
	return errors.Join(errs...)
}

// ReadDay returns the archived events of projectID for day in file order.
// A day without a file yields no events.
func ReadDay(ctx context.Context, st storage.Storage, projectID string, day time.Time) ([]*event.Event, error) {
	data, err := st.Read(ctx, Path(projectID, day))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, cerr.WrapStorageError("read", Path(projectID, day), err)
	}
	var events []*event.Event
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var en entry
		if err := json.Unmarshal(line, &en); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", Path(projectID, day), i+1, err)
		}
		events = append(events, en.Event)
	}
	return events, nil
}

// Days lists the days that have an archive file for projectID, oldest first.
func Days(ctx context.Context, st storage.Storage, projectID string) ([]time.Time, error) {
	dir := path.Join(root, projectID)
	paths, err := st.List(ctx, dir)
	if err != nil {
		return nil, cerr.WrapStorageError("list", dir, err)
	}
	var days []time.Time
	for _, p := range paths {
		name := path.Base(p)
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		d, err := time.Parse(dayLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	slices.SortFunc(days, time.Time.Compare)
	return days, nil
}
