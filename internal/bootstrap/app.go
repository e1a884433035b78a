package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"prism-backend/internal/analyses"
	"prism-backend/internal/history"
	"prism-backend/internal/llm"
	"prism-backend/internal/llm/gemini"
	"prism-backend/internal/pipeline"
	"prism-backend/internal/prism"
	"prism-backend/internal/services/health"
	"prism-backend/internal/settings"
	"prism-backend/internal/shared/config"
	"prism-backend/internal/shared/server"
	"prism-backend/internal/shared/storage/db"
	"prism-backend/internal/shared/telemetry"
	"prism-backend/internal/sources"
)

// App holds shared dependencies and the assembled router.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Pipeline        *pipeline.Orchestrator
	HistoryService  *history.Service
	SettingsService *settings.Service
	AnalysisHandler *analyses.Handler
	HistoryHandler  *history.Handler
	SettingsHandler *settings.Handler
	Health          *health.Service
}

// Build prepares dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, agent := buildModels(ctx, cfg)
	app := &App{Config: cfg, DB: sqlDB}
	app.Pipeline = BuildPipeline(cfg, provider, agent)
	buildServices(app)

	var pinger health.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}
	app.Health = health.NewService(pinger, provider != nil, agent != nil)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Health:   app.Health,
		Analyses: app.AnalysisHandler,
		History:  app.HistoryHandler,
		Settings: app.SettingsHandler,
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// BuildPipeline assembles the orchestrator. A nil provider or agent yields
// calls that fail with a generation or research agent error.
func BuildPipeline(cfg config.Config, provider llm.Provider, agent llm.ResearchAgent) *pipeline.Orchestrator {
	if agent == nil {
		agent = llm.UnavailableAgent()
	}
	client := llm.NewClient(provider, llm.Options{
		Models: map[prism.ModelTier]string{
			prism.ModelFast:     cfg.Gemini.FastModel,
			prism.ModelAccurate: cfg.Gemini.AccurateModel,
		},
		MaxRetries: cfg.Pipeline.MaxRetries,
		MaxURLs:    cfg.Pipeline.DeepMaxURLs,
	})
	titles := sources.NewResolver(&http.Client{}, cfg.Pipeline.TitleFetchTimeout, cfg.Pipeline.TitleFetchLimit)
	return &pipeline.Orchestrator{
		LLM:           client,
		Agent:         agent,
		Titles:        titles,
		AgentExpected: cfg.Pipeline.AgentExpected,
		Debug:         cfg.DebugEvents,
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// buildModels returns nil for backends that cannot be configured.
func buildModels(ctx context.Context, cfg config.Config) (llm.Provider, llm.ResearchAgent) {
	var (
		provider llm.Provider
		agent    llm.ResearchAgent
	)
	p, err := gemini.NewProvider(ctx, gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		BaseURL:           cfg.Gemini.BaseURL,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		Burst:             cfg.Gemini.Burst,
	})
	if err != nil {
		telemetry.Warn("bootstrap.llm.unavailable", map[string]any{"err": err.Error()})
	} else {
		provider = p
	}

	a, err := gemini.NewAgent(gemini.AgentConfig{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Agent:   cfg.Gemini.ResearchAgent,
	})
	if err != nil {
		telemetry.Warn("bootstrap.agent.unavailable", map[string]any{"err": err.Error()})
	} else {
		agent = a
	}
	return provider, agent
}

func buildServices(app *App) {
	var (
		historyRepo  history.Repo
		settingsRepo settings.Repo
	)
	if app.DB != nil {
		historyRepo = &history.PGRepo{DB: app.DB}
		settingsRepo = &settings.PGRepo{DB: app.DB}
	} else {
		historyRepo = history.NewMemoryRepo()
		settingsRepo = settings.NewMemoryRepo()
	}

	app.HistoryService = history.NewService(historyRepo, app.Config.HistoryLimit)
	app.SettingsService = settings.NewService(settingsRepo)
	app.Pipeline.Recorder = app.HistoryService

	app.AnalysisHandler = analyses.NewHandler(app.Pipeline, app.SettingsService, app.Config.AnalyzeTimeout, app.Config.RegenerateTimeout)
	app.HistoryHandler = history.NewHandler(app.HistoryService)
	app.SettingsHandler = settings.NewHandler(app.SettingsService)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
