package badgerstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/project"
	"github.com/kazz187/taskgraph/internal/store"
	"github.com/kazz187/taskgraph/internal/task"
)

type Store struct {
	db          *badger.DB
	locks       *store.ProjectLocks
	lockTimeout time.Duration
	logger      *slog.Logger
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(db *badger.DB, opts ...Option) *Store {
	s := &Store{
		db:          db,
		locks:       store.NewProjectLocks(),
		lockTimeout: 5 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the database described by cfg and wraps it in a Store.
func Open(cfg Config, opts ...Option) (*Store, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	return New(db, opts...), nil
}

func (s *Store) DB() *badger.DB {
	return s.db
}

func (s *Store) Update(ctx context.Context, projectID string, fn store.TxFunc) error {
	release, err := s.locks.Acquire(ctx, projectID, s.lockTimeout)
	if err != nil {
		return err
	}
	defer release()

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx, newTx(txn))
	})
	if err != nil {
		s.logger.DebugContext(ctx, "transaction rolled back", slog.String("project_id", projectID), slog.String("error", err.Error()))
		return wrapInfraError("commit transaction", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn store.TxFunc) error {
	err := s.db.View(func(txn *badger.Txn) error {
		return fn(ctx, newTx(txn))
	})
	return wrapInfraError("read transaction", err)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	projects *projectRepository
	tasks    *taskRepository
	graph    *graphRepository
	events   *eventRepository
}

func newTx(txn *badger.Txn) *tx {
	tasks := &taskRepository{txn: txn}
	return &tx{
		projects: &projectRepository{txn: txn},
		tasks:    tasks,
		graph:    &graphRepository{txn: txn, tasks: tasks},
		events:   &eventRepository{txn: txn},
	}
}

func (t *tx) Projects() project.Repository { return t.projects }
func (t *tx) Tasks() task.Repository       { return t.tasks }
func (t *tx) Graph() graph.Repository      { return t.graph }
func (t *tx) Events() event.Repository     { return t.events }
