package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskgraph/pkg/cerr"
)

func TestProjectLocks_SerializesSameProject(t *testing.T) {
	locks := NewProjectLocks()
	ctx := context.Background()

	release, err := locks.Acquire(ctx, "p1", 0)
	require.NoError(t, err)

	_, err = locks.Acquire(ctx, "p1", 20*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, cerr.KindUnavailable, cerr.KindOf(err))
	assert.True(t, cerr.KindOf(err).Retryable())

	release()
	release() // second call is a no-op

	release2, err := locks.Acquire(ctx, "p1", 20*time.Millisecond)
	require.NoError(t, err)
	release2()
}

func TestProjectLocks_IndependentProjects(t *testing.T) {
	locks := NewProjectLocks()
	ctx := context.Background()

	r1, err := locks.Acquire(ctx, "p1", 0)
	require.NoError(t, err)
	defer r1()

	r2, err := locks.Acquire(ctx, "p2", 20*time.Millisecond)
	require.NoError(t, err)
	r2()
}

func TestProjectLocks_CanceledContext(t *testing.T) {
	locks := NewProjectLocks()
	r1, err := locks.Acquire(context.Background(), "p1", 0)
	require.NoError(t, err)
	defer r1()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.Acquire(ctx, "p1", time.Second)
	require.Error(t, err)
	assert.Equal(t, cerr.KindUnavailable, cerr.KindOf(err))
}
