package badgerstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/kazz187/taskgraph/internal/project"
	"github.com/kazz187/taskgraph/pkg/cerr"
)

type projectRepository struct {
	txn *badger.Txn
}

var _ project.Repository = (*projectRepository)(nil)

func (r *projectRepository) Create(_ context.Context, p *project.Project) error {
	ok, err := exists(r.txn, projectKey(p.ID))
	if err != nil {
		return readError("project", p.ID, err)
	}
	if ok {
		return cerr.NewKindError(cerr.KindConstraintViolation, "project already exists", map[string]string{"project_id": p.ID})
	}
	if err := setYAML(r.txn, projectKey(p.ID), p); err != nil {
		return writeError("project", err)
	}
	return nil
}

func (r *projectRepository) Get(_ context.Context, id string) (*project.Project, error) {
	var p project.Project
	if err := getYAML(r.txn, projectKey(id), &p); err != nil {
		return nil, readError("project", id, err)
	}
	return &p, nil
}

func (r *projectRepository) List(_ context.Context) ([]*project.Project, error) {
	ps, err := scanValues[project.Project](r.txn, []byte(projectPrefix))
	if err != nil {
		return nil, readError("projects", "", err)
	}
	return ps, nil
}
