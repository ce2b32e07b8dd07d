package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"msgboard/auth"
	"msgboard/internal"
	"msgboard/observability"
	"msgboard/repositories"
	"msgboard/runtime"
	"msgboard/runtime/workers"
	"msgboard/services"
	"msgboard/transport/httpapi"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownGrace = 10 * time.Second

func main() {
	// main is a thin wrapper: run() owns the lifecycle so deferred
	// cleanups execute before the process exits.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger. A missing .env is fine in production.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.NewLogger(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Entity store (BadgerDB).
	options := badger.DefaultOptions(config.BadgerFilepath).WithLogger(nil)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageSeq, err := db.GetSequence([]byte("seq:message"), 64)
	if err != nil {
		return exitRuntime, fmt.Errorf("message sequence: %w", err)
	}
	defer func() { _ = messageSeq.Release() }()

	userSeq, err := db.GetSequence([]byte("seq:user"), 16)
	if err != nil {
		return exitRuntime, fmt.Errorf("user sequence: %w", err)
	}
	defer func() { _ = userSeq.Release() }()

	// 3. Broadcast engine: registry, dispatcher, notifier.
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(promReg)

	registry := runtime.NewRegistry()
	dispatcher := runtime.NewDispatcher(logger, registry, config.BufferSize, metrics)
	notifier := runtime.NewNotifier(dispatcher)

	messageRepo := repositories.NewMessageRepository(db, messageSeq, notifier,
		logger, config.LimitMessages, config.MaxContentLength)
	userRepo := repositories.NewUserRepository(db, userSeq)

	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	board := services.NewBoardService(messageRepo)
	authSvc := services.NewAuthService(userRepo, tokens)

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(dispatcher)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	// 4. Transport.
	api := httpapi.NewServer(ctx, logger, board, authSvc, tokens, registry,
		metrics, promReg, httpapi.Options{
			ConnectionBufferSize: config.ConnectionBufferSize,
			SessionRPS:           config.SessionRateRPS,
			SessionBurst:         config.SessionRateBurst,
			HTTPRPS:              config.HTTPRateRPS,
			HTTPBurst:            config.HTTPRateBurst,
		})
	srv := &http.Server{Addr: config.Addr, Handler: api.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	// 5. Graceful shutdown: stop accepting requests, let sessions see
	// the canceled context, then stop the dispatcher.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete, closing", "error", err)
		_ = srv.Close()
	}
	supervisor.Stop()
	<-supervisorDone

	return exitOK, nil
}
