package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sheikh-saqib/custom-token-ledger/internal/api"
	"github.com/sheikh-saqib/custom-token-ledger/internal/config"
	"github.com/sheikh-saqib/custom-token-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/custom-token-ledger/internal/ledger"
	"github.com/sheikh-saqib/custom-token-ledger/internal/logging"
	"github.com/sheikh-saqib/custom-token-ledger/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ledger node stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	logger, logCloser := logging.New(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1️⃣ Storage
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("store ready", "backend", cfg.Store)

	// 2️⃣ Ledger, publishing to kafka when brokers are configured
	opts := []ledger.Option{ledger.WithLogger(logger), ledger.WithTopic(cfg.KafkaTopic)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaCompression)
		if err != nil {
			store.Close()
			return err
		}
		opts = append(opts, ledger.WithPublisher(publisher))
		logger.Info("publishing transfers", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	ledgerService := ledger.NewLedger(store, opts...)
	defer ledgerService.Close()
	if err := ledgerService.Start(ctx); err != nil {
		return err
	}

	// 3️⃣ HTTP API
	handler := api.NewServer(ledgerService,
		api.WithLogger(logger),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		api.WithCORSOrigins(cfg.CORSOrigins...),
	).Handler()
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
