package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/promptdeck/ingest-api/internal/config"
	"github.com/promptdeck/ingest-api/internal/ingestion"
	"github.com/promptdeck/ingest-api/internal/platform/postgres"
	"github.com/promptdeck/ingest-api/internal/refsvc"
	"github.com/promptdeck/ingest-api/internal/resilience"
	"github.com/promptdeck/ingest-api/internal/service"
	"github.com/promptdeck/ingest-api/internal/store"
	"github.com/promptdeck/ingest-api/internal/task"
)

// application holds the wired dependencies of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db            *sql.DB
	importStore   store.ImportStore
	rowStore      store.RowStore
	taskRunner    *task.TaskRunner
	importService service.ImportService
}

// newApplication wires up stores, clients, and services from the
// configuration. Migrations run before anything touches the schema.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runPendingMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	importStore := postgres.NewPostgresImportStore(db, logger)
	rowStore := postgres.NewPostgresRowStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	breaker := resilience.NewCircuitBreaker(resilience.DefaultBreakerSettings(), logger)
	retry := resilience.DefaultRetryPolicy(logger)
	refClient := refsvc.NewClient(refsvc.Config{
		BaseURL:  cfg.Reference.BaseURL,
		Username: cfg.Reference.Username,
		Password: cfg.Reference.Password,
		Timeout:  cfg.Reference.Timeout(),
	}, breaker, retry, logger)

	metrics := ingestion.NewLogMetricsSink(logger)
	registry := ingestion.DefaultRegistry(metrics)

	app := &application{
		config:      cfg,
		logger:      logger,
		db:          db,
		importStore: importStore,
		rowStore:    rowStore,
	}

	// The runner's recovery resolver needs the import service, and the
	// service needs the runner to submit tasks. Build the runner with a
	// resolver that closes over the application to break the cycle.
	runnerConfig := task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: cfg.Task.StuckTaskAge(),
	}
	app.taskRunner = task.NewTaskRunner(taskStore, app.resolveTask, runnerConfig, logger)

	importService, err := service.NewImportService(
		db,
		importStore,
		rowStore,
		registry,
		refClient,
		app.taskRunner,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create import service: %w", err)
	}
	app.importService = importService

	return app, nil
}

// resolveTask rebuilds executable tasks from their persisted form during
// recovery.
func (app *application) resolveTask(taskType string, payload []byte) (task.Task, error) {
	switch taskType {
	case task.TaskTypeImportProcessing:
		return task.ImportProcessingTaskFromPayload(payload, app.importService, app.logger)
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}
}

// run starts the background workers and the HTTP server, blocking until
// shutdown.
func (app *application) run() error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	return app.startHTTPServer(app.setupRouter())
}

// cleanup releases resources during shutdown.
func (app *application) cleanup() {
	app.taskRunner.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("Failed to close database connection", "error", err)
	}
}
