package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"findoc-backend/internal/batch"
	"findoc-backend/internal/extraction"
	"findoc-backend/internal/llm"
	gemini "findoc-backend/internal/llm/gemini"
	openai "findoc-backend/internal/llm/openai"
	"findoc-backend/internal/shared/config"
	"findoc-backend/internal/shared/server"
	"findoc-backend/internal/shared/storage/db"
	"findoc-backend/internal/shared/telemetry"
)

// App holds shared dependencies for the API process.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	BatchRepo         batch.Repo
	ExtractionService *extraction.Service
	BatchService      *batch.Service
	BatchHandler      *batch.Handler
	ExtractionHandler *extraction.Handler

	stopRetention chan struct{}
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		BatchHandler:      app.BatchHandler,
		ExtractionHandler: app.ExtractionHandler,
	})

	return app, nil
}

// StartRetentionSweeper launches a background loop that removes terminal jobs
// older than BATCH_RETENTION_HOURS. A zero retention disables the sweeper.
func (a *App) StartRetentionSweeper() {
	if a.Config.BatchRetentionHours <= 0 || a.BatchService == nil {
		return
	}
	if a.stopRetention != nil {
		return
	}
	maxAge := time.Duration(a.Config.BatchRetentionHours) * time.Hour
	interval := maxAge / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}
	a.stopRetention = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopRetention:
				return
			case <-ticker.C:
				if _, err := a.BatchService.Cleanup(context.Background(), maxAge); err != nil {
					telemetry.Error("retention sweep failed", map[string]any{"error": err.Error()})
				}
			}
		}
	}()
}

// StopRetentionSweeper stops the background retention loop if running.
func (a *App) StopRetentionSweeper() {
	if a.stopRetention != nil {
		close(a.stopRetention)
		a.stopRetention = nil
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel)
	case "gemini":
		return gemini.NewClient(ctx, os.Getenv("GEMINI_API_KEY"), cfg.LLMModel)
	default:
		return llm.Placeholder{}, nil
	}
}

func buildServices(ctx context.Context, app *App) error {
	var repo batch.Repo
	if app.DB != nil {
		repo = &batch.PGRepo{DB: app.DB}
	} else {
		repo = batch.NewMemoryRepo()
	}

	llmClient, err := buildLLM(ctx, app.Config)
	if err != nil {
		return err
	}

	extractSvc := &extraction.Service{
		LLM:             llmClient,
		DefaultCurrency: app.Config.DefaultCurrency,
		LLMTimeout:      time.Duration(app.Config.LLMTimeoutSeconds) * time.Second,
	}

	batchSvc := &batch.Service{
		Repo:      repo,
		Extractor: extractSvc,
	}

	app.BatchRepo = repo
	app.ExtractionService = extractSvc
	app.BatchService = batchSvc
	app.BatchHandler = batch.NewHandler(batchSvc, app.Config.UploadDir)
	app.ExtractionHandler = extraction.NewHandler(extractSvc)

	return nil
}
