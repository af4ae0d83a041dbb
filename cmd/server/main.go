package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restopos/internal/config"
	"restopos/internal/infra"
	"restopos/internal/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := infra.NewTracerProvider(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	var cliente infra.ClienteAutoridad
	if cfg.AutoridadURL == "" {
		log.Warn().Msg("AUTORIDAD_URL empty, documents are accepted by the simulated authority")
		cliente = &infra.AutoridadSimulada{}
	} else {
		cliente = infra.NewGatewayAutoridad(cfg.AutoridadURL)
	}
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	autoridad := infra.NewAutoridadProtegida(cliente, cb)

	r := router.New(cfg, db, rdb, autoridad, cb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("RestoPOS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}

// setupLogger: dev gets the pretty console writer, prod gets JSON.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
