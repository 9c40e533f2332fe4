// Package taskgraph is the entry point for every task graph operation. Each
// mutation runs in one project-scoped transaction that validates, writes and
// appends its events atomically, then publishes the committed events.
package taskgraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/eventbus"
	"github.com/kazz187/taskgraph/internal/store"
	"github.com/kazz187/taskgraph/pkg/cerr"
	"github.com/kazz187/taskgraph/pkg/clog"
)

type SubtaskPolicy string

const (
	// SubtaskPolicyOrphan turns the subtasks of a deleted task into top-level tasks.
	SubtaskPolicyOrphan SubtaskPolicy = "orphan"
	// SubtaskPolicyReparent moves the subtasks of a deleted task to its parent.
	SubtaskPolicyReparent SubtaskPolicy = "reparent"
)

func ParseSubtaskPolicy(s string) (SubtaskPolicy, error) {
	switch p := SubtaskPolicy(s); p {
	case "":
		return SubtaskPolicyOrphan, nil
	case SubtaskPolicyOrphan, SubtaskPolicyReparent:
		return p, nil
	}
	return "", fmt.Errorf("unknown subtask delete policy %q", s)
}

type Service struct {
	store  store.Store
	bus    *eventbus.Bus
	policy SubtaskPolicy
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

func WithSubtaskPolicy(p SubtaskPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		policy: SubtaskPolicyOrphan,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// begin opens a span for op and returns a func that records the outcome.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "taskgraph."+op, trace.WithAttributes(attrs...))
	clog.AddAttribute(ctx, clog.OperationKey, op)
	for _, kv := range attrs {
		clog.AddAttribute(ctx, string(kv.Key), kv.Value.AsInterface())
	}
	return ctx, func(err error) {
		defer span.End()
		result := resultLabel(err)
		operationsTotal.WithLabelValues(op, result).Inc()
		operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
			clog.AddErrorKind(ctx, string(cerr.KindOf(err)))
			level := slog.LevelInfo
			if k := cerr.KindOf(err); k == cerr.KindInternal || k == cerr.KindUnavailable || k == "" {
				level = slog.LevelError
			}
			s.logger.Log(ctx, level, "operation rejected", slog.String(clog.OperationKey, op), slog.String("result", result), slog.String("error", err.Error()))
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := cerr.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

type mutation func(ctx context.Context, tx store.Tx, rec *event.Recorder) error

// mutate runs fn under the project's write lock and appends the recorded
// events in the same transaction. Events are published only after commit.
func (s *Service) mutate(ctx context.Context, projectID, actorID string, fn mutation) ([]*event.Event, error) {
	var committed []*event.Event
	err := s.store.Update(ctx, projectID, func(ctx context.Context, tx store.Tx) error {
		rec := event.NewRecorder(projectID, actorID, s.now())
		if err := fn(ctx, tx, rec); err != nil {
			return err
		}
		if rec.Len() == 0 {
			return nil
		}
		if err := tx.Events().Append(ctx, rec.Events()...); err != nil {
			return err
		}
		committed = rec.Events()
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, e := range committed {
		eventsAppended.WithLabelValues(string(e.Kind)).Inc()
	}
	if s.bus != nil && len(committed) > 0 {
		s.bus.Publish(committed...)
	}
	return committed, nil
}

// projectOf resolves the project of an existing task outside any lock. A
// task never changes project, so the answer stays valid for the write that follows.
func (s *Service) projectOf(ctx context.Context, taskID string) (string, error) {
	var projectID string
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		projectID = t.ProjectID
		return nil
	})
	if err != nil {
		return "", err
	}
	clog.AddAttribute(ctx, clog.ProjectIDKey, projectID)
	return projectID, nil
}
