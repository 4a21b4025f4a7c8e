package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/api"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/config"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/idempotent-payments-simulator/internal/interfaces"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/ledger"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/orchestrator"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/remote"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/storage/memory"
	"github.com/sheikh-saqib/idempotent-payments-simulator/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store interfaces.LedgerStore = memory.NewMemoryLedgerStore()
	if cfg.Database.URL != "" {
		pg, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close()
		store = pg
		logger.Info("ledger stored in postgres")
	} else {
		logger.Info("ledger stored in memory")
	}

	opts := []orchestrator.Option{
		orchestrator.WithLedger(ledger.NewLedger(store)),
		orchestrator.WithLogger(logger),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		opts = append(opts, orchestrator.WithPublisher(publisher))
		logger.Info("publishing ledger events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	adapter := remote.NewHTTPAdapter(&remote.Config{
		URL:     cfg.Processor.URL,
		Timeout: cfg.Processor.Timeout,
		Logger:  logger,
	})
	orch := orchestrator.New(adapter, opts...)

	handler := api.NewHandler(orch, logger)
	router := api.SetupRoutes(handler, cfg.Server.CORSOrigins, logger)

	// A command blocks until the processor answers, so writes must outlive the processor timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Processor.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("processor_url", cfg.Processor.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Processor.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
