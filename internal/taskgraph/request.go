package taskgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kazz187/taskgraph/pkg/cerr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=10000"`
}

type CreateTaskRequest struct {
	ProjectID   string            `json:"project_id" validate:"required"`
	ParentID    string            `json:"parent_id"`
	Title       string            `json:"title" validate:"required,max=500"`
	Description string            `json:"description" validate:"max=10000"`
	Status      string            `json:"status" validate:"omitempty,oneof=backlog todo in_progress blocked review done not_needed"`
	OwnerID     string            `json:"owner_id"`
	Metadata    map[string]string `json:"metadata"`
	// BlockedBy lists tasks the new task depends on.
	BlockedBy []string `json:"blocked_by" validate:"dive,required"`
	// Blocks lists tasks that depend on the new task.
	Blocks []string `json:"blocks" validate:"dive,required"`
}

type UpdateTaskRequest struct {
	TaskID      string  `json:"task_id" validate:"required"`
	Title       *string `json:"title" validate:"omitnil,min=1,max=500"`
	Description *string `json:"description" validate:"omitnil,max=10000"`
}

type dependencyRequest struct {
	BlockingID string `validate:"required"`
	BlockedID  string `validate:"required"`
}

type statusRequest struct {
	TaskID string `validate:"required"`
	Status string `validate:"required,oneof=backlog todo in_progress blocked review done not_needed"`
}

type ownerRequest struct {
	TaskID  string `validate:"required"`
	OwnerID string
}

type commentRequest struct {
	TaskID string `validate:"required"`
	Body   string `validate:"required,max=10000"`
}

type taskRequest struct {
	TaskID string `validate:"required"`
}

type projectRequest struct {
	ProjectID string `validate:"required"`
}

// validateRequest reports struct tag violations as an InvalidArgument error
// whose fields map each offending field to the failed rule.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return cerr.WrapKind(cerr.KindInvalidArgument, "invalid request", err)
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields[toSnake(fe.Field())] = fe.Tag()
		names = append(names, toSnake(fe.Field()))
	}
	e := cerr.InvalidArgumentError(fmt.Sprintf("invalid request: %s", strings.Join(names, ", ")), fields)
	for _, fe := range verrs {
		e.AddViolation(fmt.Sprintf("%s failed %s", toSnake(fe.Field()), fe.Tag()), fe.Tag())
	}
	return e
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
