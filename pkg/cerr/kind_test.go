package cerr

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Code(t *testing.T) {
	tests := []struct {
		kind Kind
		want Code
	}{
		{KindNotFound, NotFound},
		{KindSelfDependency, InvalidArgument},
		{KindCrossProjectDependency, InvalidArgument},
		{KindCircularDependency, FailedPrecondition},
		{KindParentSubtaskDeadlock, FailedPrecondition},
		{KindDuplicateDependency, AlreadyExists},
		{KindBlockedByDependency, FailedPrecondition},
		{KindIncompleteSubtasks, FailedPrecondition},
		{KindUnavailable, Unavailable},
		{Kind("Bogus"), Unknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Code())
		})
	}
	assert.True(t, KindUnavailable.Retryable())
	assert.False(t, KindCircularDependency.Retryable())
}

func TestNewKindError(t *testing.T) {
	err := NewKindError(KindCircularDependency, "would create a cycle", map[string]string{
		"blocking_id": "B",
		"blocked_id":  "A",
	})
	assert.Equal(t, "[CircularDependency] would create a cycle (blocked_id=A blocking_id=B)", err.Error())
	assert.Equal(t, "B", err.Field("blocking_id"))
	assert.Empty(t, err.Field("path"))

	wrapped := fmt.Errorf("add dependency: %w", err)
	assert.Equal(t, KindCircularDependency, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindCircularDependency))

	ce := err.ConnectError()
	assert.Equal(t, connect.CodeFailedPrecondition, ce.Code())
	require.Len(t, ce.Details(), 1)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(NewError(Internal, "boom", nil)))
	assert.Equal(t, Kind(""), KindOf(NewError(NotFound, "gone", nil)))
	assert.Equal(t, KindNotFound, KindOf(NotFoundError("task", "T1")))
	assert.Equal(t, "T1", NotFoundError("task", "T1").Field("task_id"))

	cause := errors.New("conflict")
	err := UnavailableError("store busy", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, KindOf(err).Retryable())
}

func TestJoinIDs(t *testing.T) {
	assert.Equal(t, "a,b,c", JoinIDs([]string{"a", "b", "c"}))
	assert.Empty(t, JoinIDs(nil))
}

func TestConnectErrorMeta(t *testing.T) {
	err := NewKindError(KindDuplicateDependency, "dependency already exists", map[string]string{"blocked_id": "B"})
	ce := err.ConnectError()
	assert.Equal(t, connect.CodeAlreadyExists, ce.Code())
	assert.Equal(t, "DuplicateDependency", ce.Meta().Get(KindHeader))
	assert.Equal(t, "B", ce.Meta().Get(FieldHeaderPrefix+"blocked_id"))
}
