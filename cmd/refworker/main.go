package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/infra"
	"studio/internal/refworker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel, "refworker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := refworker.NewService(cfg.RefWorkerFFTSize, &logger)
	go func() {
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("refworker: transform loop stopped")
		}
	}()

	server := infra.NewHTTPServer(cfg, cfg.RefWorkerPort, refworker.NewRouter(svc))
	go func() {
		logger.Info().Str("addr", server.Addr()).Int("fft_size", cfg.RefWorkerFFTSize).Msg("refworker: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("refworker: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("refworker: failed to shutdown server")
	}
	logger.Info().Msg("refworker: stopped")
}
