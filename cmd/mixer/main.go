package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/mixer"
	"studio/internal/storage"
	"studio/internal/views"
	"studio/internal/worker"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel, "mixer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	store, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("mixer: failed to configure storage")
	}

	client := worker.NewClient(worker.Options{
		BaseURL: cfg.WorkerBaseURL,
		Timeout: cfg.WorkerTimeout,
		Logger:  &logger,
	})

	orch := mixer.New(mixer.NewModel(), mixer.NewOutputs(), client, store, mixer.Options{
		Debounce:          cfg.Debounce,
		PollInterval:      cfg.PollInterval,
		FallbackDelay:     cfg.FallbackDelay,
		PinOutputOnSubmit: cfg.PinOutputOnSubmit,
		Logger:            &logger,
	})
	go func() {
		if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("mixer: orchestrator stopped")
		}
	}()

	cache := views.NewCache(client, cfg.ViewCacheTTL, &logger)
	app := handlers.NewApp(orch, cache, &logger, handlers.AllowOrigins(cfg.CORSOrigins))
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          &logger,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, cfg.Port, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("worker", client.BaseURL()).Msg("mixer: API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("mixer: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("mixer: failed to shutdown server")
	}
	logger.Info().Msg("mixer: stopped")
}
