package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/atendeai/core/internal/config"
	"github.com/atendeai/core/internal/core"
	"github.com/atendeai/core/internal/llm"
	"github.com/atendeai/core/internal/orchestrator"
	"github.com/atendeai/core/internal/server"
	"github.com/atendeai/core/internal/session"
	logx "github.com/atendeai/core/pkg/logger"
	pkgredis "github.com/atendeai/core/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Infrastructure
	Redis      pkgredis.Config
	TenantDB   string `envconfig:"TENANT_DB_PATH" default:"tenants.db"`
	SessionTTL string `envconfig:"SESSION_TTL" default:"72h"`

	// Optional JSON file with tenant rows loaded into the store at boot.
	TenantSeedFile string `envconfig:"TENANT_SEED_FILE"`

	// LLM provider
	Gemini llm.GeminiConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Msg("no .env file found, using environment variables")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})
	logx.Info().Str("env", env.String()).Str("addr", cfg.HTTPAddr).Msg("starting conversation core")

	sessionTTL, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", cfg.SessionTTL).Msg("invalid SESSION_TTL")
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise Redis client")
	}
	defer rdb.Close()
	logx.Info().Msg("connected to Redis")

	tenants, err := config.NewSQLiteTenantStore(cfg.TenantDB)
	if err != nil {
		logx.Fatal().Err(err).Str("path", cfg.TenantDB).Msg("failed to open tenant store")
	}
	defer tenants.Close()

	if cfg.TenantSeedFile != "" {
		if err := seedTenants(ctx, tenants, cfg.TenantSeedFile); err != nil {
			logx.Fatal().Err(err).Str("file", cfg.TenantSeedFile).Msg("failed to seed tenants")
		}
	}

	factory, err := llm.NewGeminiFactory(ctx, cfg.Gemini)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise model provider")
	}

	resolver := config.NewResolver(tenants)
	orch := orchestrator.New(
		resolver,
		session.NewRedisStore(rdb, sessionTTL),
		session.NewRedisCurrentAgentStore(rdb, sessionTTL),
		llm.NewOrchestrator(factory),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewHandler(orch, resolver).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logx.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// seedTenants loads tenant rows from a JSON file into the store. Existing
// rows with the same id are replaced.
func seedTenants(ctx context.Context, store *config.SQLiteTenantStore, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var rows []*config.Tenant
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	for _, t := range rows {
		if err := store.PutTenant(ctx, t); err != nil {
			return err
		}
	}
	logx.Info().Int("tenants", len(rows)).Msg("tenant seed loaded")
	return nil
}
