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
	"github.com/stokvelhub/pool-ledger/internal/advisory"
	"github.com/stokvelhub/pool-ledger/internal/api/middleware"
	"github.com/stokvelhub/pool-ledger/internal/api/rest"
	"github.com/stokvelhub/pool-ledger/internal/api/server"
	"github.com/stokvelhub/pool-ledger/internal/auditstore"
	"github.com/stokvelhub/pool-ledger/internal/canonical"
	"github.com/stokvelhub/pool-ledger/internal/compliance"
	"github.com/stokvelhub/pool-ledger/internal/config"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/export"
	"github.com/stokvelhub/pool-ledger/internal/hashchain"
	"github.com/stokvelhub/pool-ledger/internal/ledger"
	"github.com/stokvelhub/pool-ledger/internal/logger"
	"github.com/stokvelhub/pool-ledger/internal/messaging"
	"github.com/stokvelhub/pool-ledger/internal/providers/jetstream"
	"github.com/stokvelhub/pool-ledger/internal/rates"
	"github.com/stokvelhub/pool-ledger/internal/registry"
	"github.com/stokvelhub/pool-ledger/internal/security"
	"github.com/stokvelhub/pool-ledger/internal/settlement"
	"github.com/stokvelhub/pool-ledger/internal/store"
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
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting pool ledger API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}

	// Run migrations
	if err := store.Migrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and adapters
	dataStore := store.NewPGStore(db)
	jsonAdapter := adapter.NewJSON()
	jcsAdapter := adapter.NewJCS()
	clock := adapter.NewClock()

	// Assemble the chain machinery
	serializer := canonical.NewSerializer(jsonAdapter, jcsAdapter)
	chain := hashchain.NewEngine(serializer)
	events := eventstore.New(dataStore, chain, jsonAdapter, clock)
	audits := auditstore.New(dataStore, chain, jsonAdapter, clock)
	posting := ledger.NewEngine(dataStore, jsonAdapter)
	verifier := verify.New(chain)
	pools := registry.New(dataStore, events, chain, clock)
	exporter := export.NewBuilder(events, audits, posting, verifier, chain)

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
		logger.Warn("NATS URL not configured, event fan-out disabled")
	}
	defer publisher.Close()

	// Optional Redis cache for indicative rates
	var redisClient adapter.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient = adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = redisClient.Close() }()
	}

	// Outward-facing collaborators
	settler := settlement.NewInitiator(events, compliance.NewGate(),
		adapter.NewHTTPClient(cfg.Settlement.HTTPTimeout), jsonAdapter,
		cfg.Settlement.RailURL, cfg.Settlement.RailName)
	advisor := advisory.NewClient(adapter.NewHTTPClient(cfg.Advisory.HTTPTimeout),
		jsonAdapter, cfg.Advisory.URL, cfg.Advisory.Model)
	rateService := rates.NewService(redisClient,
		adapter.NewHTTPClient(cfg.Rates.HTTPTimeout), jsonAdapter, cfg.Rates.ProviderURL)
	stepUp := security.NewGate(events, security.MFAVerifier{})

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, rest.Deps{
		Pools:     pools,
		Events:    events,
		Audits:    audits,
		Posting:   posting,
		Settler:   settler,
		StepUp:    stepUp,
		Advisor:   advisor,
		Rates:     rateService,
		Exporter:  exporter,
		Verifier:  verifier,
		Publisher: publisher,
	})

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error(err, zap.String("component", "server"))
	}

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
