package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	server "github.com/kazz187/taskgraph/internal"
	"github.com/kazz187/taskgraph/internal/archive"
	"github.com/kazz187/taskgraph/internal/config"
	"github.com/kazz187/taskgraph/internal/eventbus"
	"github.com/kazz187/taskgraph/internal/store/badgerstore"
	"github.com/kazz187/taskgraph/internal/taskgraph"
	"github.com/kazz187/taskgraph/pkg/clog"
	"github.com/kazz187/taskgraph/pkg/panicerr"
	"github.com/kazz187/taskgraph/pkg/storage"
)

const archiveBufferSize = 1024

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(clog.NewAttributesHandler(handler))
	slog.SetDefault(logger)

	// Setup graph store
	storeEnv := config.StoreEnvFromEnv(env)
	cfg := badgerstore.DefaultConfig()
	cfg.Path = storeEnv.Path
	cfg.InMemory = storeEnv.InMemory
	cfg.SyncWrites = storeEnv.SyncWrites
	cfg.GCInterval = storeEnv.GCInterval
	cfg.Logger = logger.With("component", "badger")
	st, err := badgerstore.Open(cfg,
		badgerstore.WithLockTimeout(storeEnv.LockTimeout),
		badgerstore.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to open graph store", "error", err, "path", storeEnv.Path)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close graph store", "error", err)
		}
	}()

	// Setup event bus
	bus := eventbus.New()

	// Setup event archive
	var archiver *archive.Archiver
	archiveEnv := config.ArchiveEnvFromEnv(env)
	if archiveEnv.Enabled {
		var archiveStore storage.Storage
		switch archiveEnv.Type {
		case "s3":
			archiveStore, err = storage.NewS3Storage(context.Background(), archiveEnv.S3Bucket, archiveEnv.S3Prefix, archiveEnv.S3Region)
			if err != nil {
				slog.Error("failed to create S3 storage", "error", err)
				os.Exit(1)
			}
		default:
			archiveStore, err = storage.NewLocalStorage(archiveEnv.BaseDir)
			if err != nil {
				slog.Error("failed to create local storage", "error", err)
				os.Exit(1)
			}
		}
		archiver = archive.New(archiveStore, bus, archiveBufferSize, archive.WithLogger(logger))
	}

	// Setup service
	policy, err := taskgraph.ParseSubtaskPolicy(env.SubtaskDeletePolicy)
	if err != nil {
		slog.Error("invalid subtask delete policy", "error", err)
		os.Exit(1)
	}
	svc := taskgraph.NewService(st,
		taskgraph.WithEventBus(bus),
		taskgraph.WithSubtaskPolicy(policy),
		taskgraph.WithLogger(logger),
	)
	srv := server.NewServer(env, taskgraph.NewServer(svc))

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	wg := conc.NewWaitGroup()
	if archiver != nil {
		panicerr.Go(ctx, wg, logger, "event-archiver", archiver.Run)
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		gc, err := badgerstore.NewGCRunner(st.DB(), cfg.GCInterval, cfg.GCDiscardRatio, logger)
		if err != nil {
			slog.Error("failed to create value log GC runner", "error", err)
			os.Exit(1)
		}
		panicerr.Go(ctx, wg, logger, "value-log-gc", gc.Run)
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	// The archiver flushes what the bus still holds before the store closes.
	wg.Wait()
}
