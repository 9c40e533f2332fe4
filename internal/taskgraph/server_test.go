package taskgraph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/project"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/internal/view"
	"github.com/kazz187/taskgraph/pkg/cerr"
	"github.com/kazz187/taskgraph/pkg/connectjson"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := NewServer(newTestService(t))

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(cerr.NewConvertConnectErrorChiMiddleware())
		srv.Routes(r)
	})
	mux := http.NewServeMux()
	mux.Handle("/api/", r)
	mux.Handle(srv.Handler(connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor())))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func call[Req, Res any](t *testing.T, ts *httptest.Server, procedure string, msg *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](ts.Client(), ts.URL+procedure, connectjson.WithCodec())
	req := connect.NewRequest(msg)
	req.Header().Set(ActorHeader, "alice")
	res, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	res, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	return res.StatusCode
}

func TestServer_Connect(t *testing.T) {
	ts := newTestServer(t)

	p, err := call[CreateProjectRequest, project.Project](t, ts, CreateProjectProcedure, &CreateProjectRequest{Name: "demo"})
	require.NoError(t, err)

	a, err := call[CreateTaskRequest, task.Task](t, ts, CreateTaskProcedure, &CreateTaskRequest{ProjectID: p.ID, Title: "A"})
	require.NoError(t, err)
	b, err := call[CreateTaskRequest, task.Task](t, ts, CreateTaskProcedure, &CreateTaskRequest{ProjectID: p.ID, Title: "B"})
	require.NoError(t, err)

	edge, err := call[DependencyRequest, graph.Edge](t, ts, AddDependencyProcedure, &DependencyRequest{BlockingID: a.ID, BlockedID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, "alice", edge.CreatedBy)

	_, err = call[DependencyRequest, graph.Edge](t, ts, AddDependencyProcedure, &DependencyRequest{BlockingID: b.ID, BlockedID: a.ID})
	var connectErr *connect.Error
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, connect.CodeFailedPrecondition, connectErr.Code())
	assert.Equal(t, string(cerr.KindCircularDependency), connectErr.Meta().Get(cerr.KindHeader))

	_, err = call[ChangeStatusRequest, task.Task](t, ts, ChangeStatusProcedure, &ChangeStatusRequest{TaskID: b.ID, Status: "done"})
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, string(cerr.KindBlockedByDependency), connectErr.Meta().Get(cerr.KindHeader))
	assert.Equal(t, a.ID, connectErr.Meta().Get(cerr.FieldHeaderPrefix+"blocker_ids"))

	v, err := call[TaskIDRequest, view.TaskView](t, ts, GetTaskWithDerivedViewProcedure, &TaskIDRequest{TaskID: b.ID})
	require.NoError(t, err)
	assert.True(t, v.IsBlocked)

	_, err = call[DependencyRequest, Empty](t, ts, RemoveDependencyProcedure, &DependencyRequest{BlockingID: a.ID, BlockedID: b.ID})
	require.NoError(t, err)
	_, err = call[DependencyRequest, Empty](t, ts, RemoveDependencyProcedure, &DependencyRequest{BlockingID: a.ID, BlockedID: b.ID})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	events, err := call[ListEventsRequest, EventsResponse](t, ts, ListEventsProcedure, &ListEventsRequest{TaskID: b.ID, Kinds: []string{"dependency_added", "dependency_removed"}})
	require.NoError(t, err)
	require.Len(t, events.Events, 2)
	assert.Equal(t, event.KindDependencyAdded, events.Events[0].Kind)

	_, err = call[ListEventsRequest, EventsResponse](t, ts, ListEventsProcedure, &ListEventsRequest{TaskID: b.ID, Kinds: []string{"bogus"}})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	report, err := call[ProjectIDRequest, Report](t, ts, VerifyProjectProcedure, &ProjectIDRequest{ProjectID: p.ID})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Tasks)
}

func TestServer_REST(t *testing.T) {
	ts := newTestServer(t)

	p, err := call[CreateProjectRequest, project.Project](t, ts, CreateProjectProcedure, &CreateProjectRequest{Name: "demo"})
	require.NoError(t, err)
	parent, err := call[CreateTaskRequest, task.Task](t, ts, CreateTaskProcedure, &CreateTaskRequest{ProjectID: p.ID, Title: "P"})
	require.NoError(t, err)
	_, err = call[CreateTaskRequest, task.Task](t, ts, CreateSubtaskProcedure, &CreateTaskRequest{ParentID: parent.ID, ProjectID: p.ID, Title: "C"})
	require.NoError(t, err)

	var v view.TaskView
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/tasks/"+parent.ID, &v))
	assert.Equal(t, 1, v.Progress.Total)
	assert.Zero(t, v.Progress.Percentage)

	var actionable TasksResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/projects/"+p.ID+"/actionable?limit=1&sort=title_asc", &actionable))
	require.Len(t, actionable.Tasks, 1)
	assert.Equal(t, "C", actionable.Tasks[0].Title)

	var events EventsResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/tasks/"+parent.ID+"/events?kind=task_created", &events))
	require.Len(t, events.Events, 1)

	var apiErr struct {
		Code   string            `json:"code"`
		Kind   string            `json:"kind"`
		Fields map[string]string `json:"fields"`
	}
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts, "/api/tasks/missing", &apiErr))
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, string(cerr.KindNotFound), apiErr.Kind)
	assert.Equal(t, "missing", apiErr.Fields["task_id"])

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts, "/api/projects/"+p.ID+"/actionable?sort=random", &apiErr))
	assert.Equal(t, string(cerr.KindInvalidArgument), apiErr.Kind)
}
