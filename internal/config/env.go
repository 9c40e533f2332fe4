package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StoreEnv struct {
	Path        string        `envconfig:"STORE_PATH" default:".taskgraph/db"`
	InMemory    bool          `envconfig:"STORE_IN_MEMORY" default:"false"`
	SyncWrites  bool          `envconfig:"STORE_SYNC_WRITES" default:"true"`
	LockTimeout time.Duration `envconfig:"STORE_LOCK_TIMEOUT" default:"5s"`
	GCInterval  time.Duration `envconfig:"STORE_GC_INTERVAL" default:"5m"`
}

type GraphEnv struct {
	// orphan: subtasks of a deleted task become top-level.
	// reparent: subtasks move to the deleted task's parent.
	SubtaskDeletePolicy string `envconfig:"SUBTASK_DELETE_POLICY" default:"orphan"`
}

type ArchiveEnv struct {
	Enabled bool   `envconfig:"ARCHIVE_ENABLED" default:"true"`
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskgraph/archive"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskgraph/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type Env struct {
	BaseEnv
	StoreEnv
	GraphEnv
	ArchiveEnv
}

const namespace = "TASKGRAPH"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

// LoadStoreEnv reads only the store settings; used by tools that open the
// database directly and need no API key.
func LoadStoreEnv() (*StoreEnv, error) {
	var env StoreEnv
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

// LoadArchiveEnv reads only the archive settings.
func LoadArchiveEnv() (*ArchiveEnv, error) {
	var env ArchiveEnv
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StoreEnvFromEnv(env *Env) *StoreEnv {
	return &env.StoreEnv
}

func ArchiveEnvFromEnv(env *Env) *ArchiveEnv {
	return &env.ArchiveEnv
}
