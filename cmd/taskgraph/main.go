package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/taskgraph/internal/archive"
	"github.com/kazz187/taskgraph/internal/config"
	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/store/badgerstore"
	"github.com/kazz187/taskgraph/internal/taskgraph"
	"github.com/kazz187/taskgraph/internal/view"
	"github.com/kazz187/taskgraph/pkg/storage"
)

var (
	app = kingpin.New("taskgraph", "Inspect a task graph database")

	dbPath  = app.Flag("db", "Database directory (defaults to TASKGRAPH_STORE_PATH)").String()
	asJSON  = app.Flag("json", "Print JSON instead of text").Bool()
	noColor = app.Flag("no-color", "Disable colored output").Bool()

	showCmd = app.Command("show", "Show a task with its derived view")
	showID  = showCmd.Arg("task", "Task ID").Required().String()

	eventsCmd   = app.Command("events", "List the events of a task")
	eventsID    = eventsCmd.Arg("task", "Task ID").Required().String()
	eventsKinds = eventsCmd.Flag("kind", "Only events of this kind (repeatable)").Strings()
	eventsLimit = eventsCmd.Flag("limit", "Maximum number of events").Int()

	actionableCmd     = app.Command("actionable", "List tasks that can be worked on now")
	actionableProject = actionableCmd.Arg("project", "Project ID").Required().String()
	actionableOwner   = actionableCmd.Flag("owner", "Only tasks owned by this actor").String()
	actionableSort    = actionableCmd.Flag("sort", "updated_desc, updated_asc, created_asc, created_desc or title_asc").Default(string(view.SortUpdatedDesc)).String()
	actionableLimit   = actionableCmd.Flag("limit", "Maximum number of tasks").Int()

	verifyCmd     = app.Command("verify", "Check every project graph for cycles and parent/subtask deadlocks")
	verifyProject = verifyCmd.Arg("project", "Project ID (all projects when omitted)").String()

	archiveCmd     = app.Command("archive", "Print archived events of a project for one day")
	archiveProject = archiveCmd.Arg("project", "Project ID").Required().String()
	archiveDate    = archiveCmd.Arg("date", "Day as YYYY-MM-DD (lists available days when omitted)").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := newPrinter(os.Stdout, *asJSON, *noColor)

	var err error
	switch command {
	case archiveCmd.FullCommand():
		err = runArchive(ctx, p)
	default:
		err = withService(func(svc *taskgraph.Service) error {
			switch command {
			case showCmd.FullCommand():
				return runShow(ctx, svc, p)
			case eventsCmd.FullCommand():
				return runEvents(ctx, svc, p)
			case actionableCmd.FullCommand():
				return runActionable(ctx, svc, p)
			case verifyCmd.FullCommand():
				return runVerify(ctx, svc, p)
			}
			return fmt.Errorf("unknown command %q", command)
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withService opens the database read-write (Badger has no shared mode), so
// the server must not be running against the same directory.
func withService(fn func(*taskgraph.Service) error) error {
	env, err := config.LoadStoreEnv()
	if err != nil {
		return err
	}
	cfg := badgerstore.DefaultConfig()
	cfg.Path = env.Path
	if *dbPath != "" {
		cfg.Path = *dbPath
	}
	st, err := badgerstore.Open(cfg, badgerstore.WithLockTimeout(env.LockTimeout))
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	defer st.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fn(taskgraph.NewService(st, taskgraph.WithLogger(quiet)))
}

func runShow(ctx context.Context, svc *taskgraph.Service, p *printer) error {
	v, err := svc.GetTaskWithDerivedView(ctx, *showID)
	if err != nil {
		return err
	}
	return p.taskView(v)
}

func runEvents(ctx context.Context, svc *taskgraph.Service, p *printer) error {
	f := event.Filter{Limit: *eventsLimit}
	for _, k := range *eventsKinds {
		kind := event.Kind(k)
		if !kind.Valid() {
			return fmt.Errorf("unknown event kind %q", k)
		}
		f.Kinds = append(f.Kinds, kind)
	}
	events, err := svc.ListEvents(ctx, *eventsID, f)
	if err != nil {
		return err
	}
	return p.events(events)
}

func runActionable(ctx context.Context, svc *taskgraph.Service, p *printer) error {
	order, err := view.ParseSortOrder(*actionableSort)
	if err != nil {
		return err
	}
	ts, err := svc.ListActionable(ctx, *actionableProject, view.Filter{
		OwnerID: *actionableOwner,
		Sort:    order,
		Limit:   *actionableLimit,
	})
	if err != nil {
		return err
	}
	return p.tasks(ts)
}

func runVerify(ctx context.Context, svc *taskgraph.Service, p *printer) error {
	ids := []string{*verifyProject}
	if *verifyProject == "" {
		projects, err := svc.ListProjects(ctx)
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, pr := range projects {
			ids = append(ids, pr.ID)
		}
	}
	var reports []*taskgraph.Report
	failed := 0
	for _, id := range ids {
		r, err := svc.VerifyProject(ctx, id)
		if err != nil {
			return err
		}
		if !r.OK() {
			failed++
		}
		reports = append(reports, r)
	}
	if err := p.reports(reports); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d projects failed verification", failed, len(reports))
	}
	return nil
}

func runArchive(ctx context.Context, p *printer) error {
	env, err := config.LoadArchiveEnv()
	if err != nil {
		return err
	}
	var st storage.Storage
	switch env.Type {
	case "s3":
		st, err = storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
	default:
		st, err = storage.NewLocalStorage(env.BaseDir)
	}
	if err != nil {
		return err
	}

	if *archiveDate == "" {
		days, err := archive.Days(ctx, st, *archiveProject)
		if err != nil {
			return err
		}
		return p.days(days)
	}
	day, err := time.Parse(time.DateOnly, *archiveDate)
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	events, err := archive.ReadDay(ctx, st, *archiveProject, day)
	if err != nil {
		return err
	}
	return p.events(events)
}
