package taskgraph

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/project"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/internal/view"
	"github.com/kazz187/taskgraph/pkg/cerr"
	"github.com/kazz187/taskgraph/pkg/connectjson"
)

const ServiceName = "taskgraph.v1.TaskGraphService"

// ActorHeader names the caller on mutating requests. Requests without it are
// recorded as system events.
const ActorHeader = "X-Actor-ID"

const (
	CreateProjectProcedure          = "/" + ServiceName + "/CreateProject"
	GetProjectProcedure             = "/" + ServiceName + "/GetProject"
	ListProjectsProcedure           = "/" + ServiceName + "/ListProjects"
	ListProjectTasksProcedure       = "/" + ServiceName + "/ListProjectTasks"
	CreateTaskProcedure             = "/" + ServiceName + "/CreateTask"
	CreateSubtaskProcedure          = "/" + ServiceName + "/CreateSubtask"
	UpdateTaskProcedure             = "/" + ServiceName + "/UpdateTask"
	AssignOwnerProcedure            = "/" + ServiceName + "/AssignOwner"
	AddCommentProcedure             = "/" + ServiceName + "/AddComment"
	DeleteTaskProcedure             = "/" + ServiceName + "/DeleteTask"
	ChangeStatusProcedure           = "/" + ServiceName + "/ChangeStatus"
	AddDependencyProcedure          = "/" + ServiceName + "/AddDependency"
	RemoveDependencyProcedure       = "/" + ServiceName + "/RemoveDependency"
	GetTaskWithDerivedViewProcedure = "/" + ServiceName + "/GetTaskWithDerivedView"
	ListActionableProcedure         = "/" + ServiceName + "/ListActionable"
	ListEventsProcedure             = "/" + ServiceName + "/ListEvents"
	VerifyProjectProcedure          = "/" + ServiceName + "/VerifyProject"
)

type ProjectIDRequest struct {
	ProjectID string `json:"project_id"`
}

type TaskIDRequest struct {
	TaskID string `json:"task_id"`
}

type Empty struct{}

type ProjectsResponse struct {
	Projects []*project.Project `json:"projects"`
}

type TasksResponse struct {
	Tasks []*task.Task `json:"tasks"`
}

type EventsResponse struct {
	Events []*event.Event `json:"events"`
}

type ChangeStatusRequest struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type AssignOwnerRequest struct {
	TaskID  string `json:"task_id"`
	OwnerID string `json:"owner_id"`
}

type AddCommentRequest struct {
	TaskID string `json:"task_id"`
	Body   string `json:"body"`
}

type DependencyRequest struct {
	BlockingID string `json:"blocking_id"`
	BlockedID  string `json:"blocked_id"`
}

type ListActionableRequest struct {
	ProjectID string `json:"project_id"`
	OwnerID   string `json:"owner_id,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type ListEventsRequest struct {
	TaskID string    `json:"task_id"`
	Kinds  []string  `json:"kinds,omitempty"`
	Since  time.Time `json:"since,omitzero"`
	Limit  int       `json:"limit,omitempty"`
}

func (r ListActionableRequest) filter() (view.Filter, error) {
	order, err := view.ParseSortOrder(r.Sort)
	if err != nil {
		return view.Filter{}, cerr.InvalidArgumentError(err.Error(), map[string]string{"sort": r.Sort})
	}
	if r.Limit < 0 {
		return view.Filter{}, cerr.InvalidArgumentError("limit must not be negative", map[string]string{"limit": strconv.Itoa(r.Limit)})
	}
	return view.Filter{OwnerID: r.OwnerID, Sort: order, Limit: r.Limit}, nil
}

func (r ListEventsRequest) filter() (event.Filter, error) {
	f := event.Filter{Since: r.Since, Limit: r.Limit}
	for _, k := range r.Kinds {
		kind := event.Kind(k)
		if !kind.Valid() {
			return event.Filter{}, cerr.InvalidArgumentError("unknown event kind", map[string]string{"kind": k})
		}
		f.Kinds = append(f.Kinds, kind)
	}
	if r.Limit < 0 {
		return event.Filter{}, cerr.InvalidArgumentError("limit must not be negative", map[string]string{"limit": strconv.Itoa(r.Limit)})
	}
	return f, nil
}

// Server exposes the Service over connect (JSON) and a small read-only REST API.
type Server struct {
	svc *Service
}

func NewServer(svc *Service) *Server {
	return &Server{svc: svc}
}

func actorOf(h http.Header) string {
	return h.Get(ActorHeader)
}

func unary[Req, Res any](procedure string, fn func(ctx context.Context, actorID string, req *Req) (*Res, error), opts ...connect.HandlerOption) *connect.Handler {
	return connect.NewUnaryHandler(procedure, func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
		res, err := fn(ctx, actorOf(req.Header()), req.Msg)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(res), nil
	}, opts...)
}

// Handler returns the path prefix and handler serving every TaskGraphService procedure.
func (s *Server) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connectjson.WithCodec()}, opts...)
	handlers := map[string]http.Handler{
		CreateProjectProcedure:          unary(CreateProjectProcedure, s.createProject, opts...),
		GetProjectProcedure:             unary(GetProjectProcedure, s.getProject, opts...),
		ListProjectsProcedure:           unary(ListProjectsProcedure, s.listProjects, opts...),
		ListProjectTasksProcedure:       unary(ListProjectTasksProcedure, s.listProjectTasks, opts...),
		CreateTaskProcedure:             unary(CreateTaskProcedure, s.createTask, opts...),
		CreateSubtaskProcedure:          unary(CreateSubtaskProcedure, s.createSubtask, opts...),
		UpdateTaskProcedure:             unary(UpdateTaskProcedure, s.updateTask, opts...),
		AssignOwnerProcedure:            unary(AssignOwnerProcedure, s.assignOwner, opts...),
		AddCommentProcedure:             unary(AddCommentProcedure, s.addComment, opts...),
		DeleteTaskProcedure:             unary(DeleteTaskProcedure, s.deleteTask, opts...),
		ChangeStatusProcedure:           unary(ChangeStatusProcedure, s.changeStatus, opts...),
		AddDependencyProcedure:          unary(AddDependencyProcedure, s.addDependency, opts...),
		RemoveDependencyProcedure:       unary(RemoveDependencyProcedure, s.removeDependency, opts...),
		GetTaskWithDerivedViewProcedure: unary(GetTaskWithDerivedViewProcedure, s.getTask, opts...),
		ListActionableProcedure:         unary(ListActionableProcedure, s.listActionable, opts...),
		ListEventsProcedure:             unary(ListEventsProcedure, s.listEvents, opts...),
		VerifyProjectProcedure:          unary(VerifyProjectProcedure, s.verifyProject, opts...),
	}
	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Server) createProject(ctx context.Context, actorID string, req *CreateProjectRequest) (*project.Project, error) {
	return s.svc.CreateProject(ctx, actorID, *req)
}

func (s *Server) getProject(ctx context.Context, _ string, req *ProjectIDRequest) (*project.Project, error) {
	return s.svc.GetProject(ctx, req.ProjectID)
}

func (s *Server) listProjects(ctx context.Context, _ string, _ *Empty) (*ProjectsResponse, error) {
	ps, err := s.svc.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return &ProjectsResponse{Projects: ps}, nil
}

func (s *Server) listProjectTasks(ctx context.Context, _ string, req *ProjectIDRequest) (*TasksResponse, error) {
	ts, err := s.svc.ListProjectTasks(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	return &TasksResponse{Tasks: ts}, nil
}

func (s *Server) createTask(ctx context.Context, actorID string, req *CreateTaskRequest) (*task.Task, error) {
	return s.svc.CreateTask(ctx, actorID, *req)
}

func (s *Server) createSubtask(ctx context.Context, actorID string, req *CreateTaskRequest) (*task.Task, error) {
	return s.svc.CreateSubtask(ctx, actorID, req.ParentID, *req)
}

func (s *Server) updateTask(ctx context.Context, actorID string, req *UpdateTaskRequest) (*task.Task, error) {
	return s.svc.UpdateTask(ctx, actorID, *req)
}

func (s *Server) assignOwner(ctx context.Context, actorID string, req *AssignOwnerRequest) (*task.Task, error) {
	return s.svc.AssignOwner(ctx, actorID, req.TaskID, req.OwnerID)
}

func (s *Server) addComment(ctx context.Context, actorID string, req *AddCommentRequest) (*event.Event, error) {
	return s.svc.AddComment(ctx, actorID, req.TaskID, req.Body)
}

func (s *Server) deleteTask(ctx context.Context, actorID string, req *TaskIDRequest) (*DeleteResult, error) {
	return s.svc.DeleteTask(ctx, actorID, req.TaskID)
}

func (s *Server) changeStatus(ctx context.Context, actorID string, req *ChangeStatusRequest) (*task.Task, error) {
	return s.svc.ChangeStatus(ctx, actorID, req.TaskID, task.Status(req.Status))
}

func (s *Server) addDependency(ctx context.Context, actorID string, req *DependencyRequest) (*graph.Edge, error) {
	return s.svc.AddDependency(ctx, actorID, req.BlockingID, req.BlockedID)
}

func (s *Server) removeDependency(ctx context.Context, actorID string, req *DependencyRequest) (*Empty, error) {
	if err := s.svc.RemoveDependency(ctx, actorID, req.BlockingID, req.BlockedID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *Server) getTask(ctx context.Context, _ string, req *TaskIDRequest) (*view.TaskView, error) {
	return s.svc.GetTaskWithDerivedView(ctx, req.TaskID)
}

func (s *Server) listActionable(ctx context.Context, _ string, req *ListActionableRequest) (*TasksResponse, error) {
	f, err := req.filter()
	if err != nil {
		return nil, err
	}
	ts, err := s.svc.ListActionable(ctx, req.ProjectID, f)
	if err != nil {
		return nil, err
	}
	return &TasksResponse{Tasks: ts}, nil
}

func (s *Server) listEvents(ctx context.Context, _ string, req *ListEventsRequest) (*EventsResponse, error) {
	f, err := req.filter()
	if err != nil {
		return nil, err
	}
	events, err := s.svc.ListEvents(ctx, req.TaskID, f)
	if err != nil {
		return nil, err
	}
	return &EventsResponse{Events: events}, nil
}

func (s *Server) verifyProject(ctx context.Context, _ string, req *ProjectIDRequest) (*Report, error) {
	return s.svc.VerifyProject(ctx, req.ProjectID)
}

// Routes registers the read-only JSON endpoints. Responses are written by
// cerr.NewConvertConnectErrorChiMiddleware.
func (s *Server) Routes(r chi.Router) {
	r.Get("/tasks/{id}", s.handleGetTask)
	r.Get("/tasks/{id}/events", s.handleListEvents)
	r.Get("/projects/{id}/actionable", s.handleListActionable)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := s.svc.GetTaskWithDerivedView(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, v)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	req := ListEventsRequest{TaskID: chi.URLParam(r, "id"), Kinds: q["kind"]}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			cerr.SetJSONError(ctx, cerr.InvalidArgumentError("since must be RFC 3339", map[string]string{"since": v}))
			return
		}
		req.Since = since
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	req.Limit = limit
	res, err := s.listEvents(ctx, "", &req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

func (s *Server) handleListActionable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	res, err := s.listActionable(ctx, "", &ListActionableRequest{
		ProjectID: chi.URLParam(r, "id"),
		OwnerID:   q.Get("owner_id"),
		Sort:      q.Get("sort"),
		Limit:     limit,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, cerr.InvalidArgumentError("limit must be an integer", map[string]string{"limit": v})
	}
	return n, nil
}
