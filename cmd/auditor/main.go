package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/auditstore"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
	"github.com/stokvelhub/pool-ledger/internal/config"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/logger"
	"github.com/stokvelhub/pool-ledger/internal/messaging"
	"github.com/stokvelhub/pool-ledger/internal/providers/jetstream"
	"github.com/stokvelhub/pool-ledger/internal/store"
	"github.com/stokvelhub/pool-ledger/internal/sweeper"
	"github.com/stokvelhub/pool-ledger/internal/verify"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAuditorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "auditor",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting integrity auditor")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}
	logger.Info("Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and chain machinery
	dataStore := store.NewPGStore(db)
	jsonAdapter := adapter.NewJSON()
	clock := adapter.NewClock()
	serializer := canonical.NewSerializer(jsonAdapter, adapter.NewJCS())
	chain := hashchain.NewEngine(serializer)
	events := eventstore.New(dataStore, chain, jsonAdapter, clock)
	audits := auditstore.New(dataStore, chain, jsonAdapter, clock)
	verifier := verify.New(chain)

	// Messaging: JetStream when configured, else a noop publisher
	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(jetstream.Config{
			URL:            cfg.NATS.URL,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
	} else {
		logger.Warn("NATS URL not configured, integrity alerts will only be logged")
	}
	defer publisher.Close()

	// Create the sweeper
	sw := sweeper.NewIntegritySweeper(&sweeper.IntegritySweeperConfig{
		WorkerPoolSize: cfg.Worker.WorkerPoolSize,
		QueueSize:      cfg.Worker.WorkerQueueSize,
		SweepInterval:  cfg.SweepInterval,
	}, events, audits, verifier, publisher, clock)

	// Start sweeper in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := sw.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.Error(err, zap.String("component", "sweeper"))
		cancel()
	}

	// Graceful stop with timeout
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := sw.Stop(stopCtx); err != nil {
		logger.Fatal("Sweeper forced to stop", zap.Error(err))
	}

	logger.Info("Integrity auditor stopped")
}
