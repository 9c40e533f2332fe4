package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("TASKGRAPH_API_KEY", "secret")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "3100", env.HTTPPort)
	assert.Equal(t, ".taskgraph/db", env.StoreEnv.Path)
	assert.True(t, env.SyncWrites)
	assert.Equal(t, 5*time.Second, env.LockTimeout)
	assert.Equal(t, "orphan", env.SubtaskDeletePolicy)
	assert.Equal(t, "local", env.ArchiveEnv.Type)
	assert.Equal(t, slog.LevelDebug, env.SlogLevel())
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("TASKGRAPH_API_KEY", "secret")
	t.Setenv("TASKGRAPH_STORE_LOCK_TIMEOUT", "250ms")
	t.Setenv("TASKGRAPH_SUBTASK_DELETE_POLICY", "reparent")
	t.Setenv("TASKGRAPH_LOG_LEVEL", "warn")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, env.LockTimeout)
	assert.Equal(t, "reparent", env.SubtaskDeletePolicy)
	assert.Equal(t, slog.LevelWarn, env.SlogLevel())
}

func TestLoadEnv_RequiresAPIKey(t *testing.T) {
	t.Setenv("TASKGRAPH_API_KEY", "")
	require.NoError(t, os.Unsetenv("TASKGRAPH_API_KEY"))
	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestLoadArchiveEnv_WithoutAPIKey(t *testing.T) {
	t.Setenv("TASKGRAPH_STORAGE_TYPE", "s3")
	t.Setenv("TASKGRAPH_S3_BUCKET", "graph-archive")

	env, err := LoadArchiveEnv()
	require.NoError(t, err)
	assert.True(t, env.Enabled)
	assert.Equal(t, "s3", env.Type)
	assert.Equal(t, "graph-archive", env.S3Bucket)
	assert.Equal(t, "taskgraph/", env.S3Prefix)
}
