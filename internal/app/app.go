package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/common"
	"github.com/ternarybob/horarium/internal/handlers"
	"github.com/ternarybob/horarium/internal/interfaces"
	"github.com/ternarybob/horarium/internal/services/azure"
	"github.com/ternarybob/horarium/internal/services/engine"
	"github.com/ternarybob/horarium/internal/services/shard"
	"github.com/ternarybob/horarium/internal/services/tasks"
	"github.com/ternarybob/horarium/internal/storage/sqlite"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Persistence
	DB         *sqlite.SQLiteDB
	JobStorage interfaces.JobStorage

	// Scheduling core
	ShardManager interfaces.ShardManager
	TaskRegistry *tasks.Registry
	Engine       *engine.Service

	// HTTP handlers
	JobHandler    *handlers.JobHandler
	StatusHandler *handlers.StatusHandler
}

// New initializes the application: storage, seed jobs, shard manager,
// task registry, engine, and HTTP handlers. The registry is fully
// populated here, before the engine ever runs, and is immutable after.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}

	if err := a.initScheduling(); err != nil {
		a.DB.Close()
		return nil, err
	}

	a.initHandlers()

	return a, nil
}

// initStorage opens the database, wires the job store, and upserts any
// seed job definitions shipped on disk.
func (a *App) initStorage() error {
	db, err := sqlite.NewSQLiteDB(a.Logger, a.Config.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db
	a.JobStorage = sqlite.NewJobStorage(db, a.Logger)

	if err := sqlite.LoadSeedJobs(context.Background(), a.JobStorage, a.Config.Jobs.DefinitionsDir, a.Logger); err != nil {
		a.Logger.Warn().Err(err).
			Str("dir", a.Config.Jobs.DefinitionsDir).
			Msg("Failed to load seed job definitions")
	}

	return nil
}

// initScheduling builds the shard manager, the task handler registry with
// every built-in handler, and the engine.
func (a *App) initScheduling() error {
	shards, err := shard.NewManager(&a.Config.Shard, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize shard manager: %w", err)
	}
	a.ShardManager = shards

	registry := tasks.NewRegistry(a.Logger)

	builtins := []interfaces.TaskHandler{
		tasks.NewPrintHandler(a.Logger),
		tasks.NewShellCommandHandler(a.Logger),
		tasks.NewAdfPipelineHandler(azure.NewClientFromEnv(a.Logger), a.Logger),
	}
	for _, handler := range builtins {
		if err := registry.Register(handler); err != nil {
			return fmt.Errorf("failed to register task handler: %w", err)
		}
	}

	// The Step Functions handler needs resolvable AWS credentials; a
	// deployment without them still schedules every other task kind.
	if stepfn, err := tasks.NewStepFnHandlerFromConfig(context.Background(), a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Step Functions handler unavailable, aws_stepfn jobs will fail")
	} else if err := registry.Register(stepfn); err != nil {
		return fmt.Errorf("failed to register task handler: %w", err)
	}

	a.TaskRegistry = registry

	a.Logger.Info().
		Strs("task_types", registry.TaskTypes()).
		Str("shard_mode", string(a.Config.Shard.Mode)).
		Msg("Scheduling services initialized")

	heartbeat := time.Duration(a.Config.Scheduler.HeartbeatSecs) * time.Second
	a.Engine = engine.NewService(a.JobStorage, shards, registry, a.Logger,
		engine.WithHeartbeat(heartbeat))

	return nil
}

// initHandlers wires the HTTP handlers against the core services
func (a *App) initHandlers() {
	a.JobHandler = handlers.NewJobHandler(a.JobStorage, a.Engine, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Logger)
}

// Close stops the engine and releases the database handle
func (a *App) Close() error {
	if a.Engine != nil {
		a.Engine.Stop()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
