package taskgraph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/project"
	"github.com/kazz187/taskgraph/internal/store"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/pkg/clog"
)

func (s *Service) CreateProject(ctx context.Context, actorID string, req CreateProjectRequest) (p *project.Project, err error) {
	ctx, end := s.begin(ctx, "CreateProject", attribute.String(clog.ActorIDKey, actorID))
	defer func() { end(err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	now := s.now()
	p = &project.Project{
		ID:          event.NewID(now),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.store.Update(ctx, p.ID, func(ctx context.Context, tx store.Tx) error {
		return tx.Projects().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, projectID string) (p *project.Project, err error) {
	ctx, end := s.begin(ctx, "GetProject", attribute.String(clog.ProjectIDKey, projectID))
	defer func() { end(err) }()

	if err := validateRequest(projectRequest{ProjectID: projectID}); err != nil {
		return nil, err
	}
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err = tx.Projects().Get(ctx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) (ps []*project.Project, err error) {
	ctx, end := s.begin(ctx, "ListProjects")
	defer func() { end(err) }()

	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		ps, err = tx.Projects().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ps, nil
}

func (s *Service) ListProjectTasks(ctx context.Context, projectID string) (ts []*task.Task, err error) {
	ctx, end := s.begin(ctx, "ListProjectTasks", attribute.String(clog.ProjectIDKey, projectID))
	defer func() { end(err) }()

	if err := validateRequest(projectRequest{ProjectID: projectID}); err != nil {
		return nil, err
	}
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Projects().Get(ctx, projectID); err != nil {
			return err
		}
		ts, err = tx.Tasks().ListByProject(ctx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}
