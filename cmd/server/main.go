package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/connector/internal/application/intake"
	"github.com/erp/connector/internal/application/pull"
	syncapp "github.com/erp/connector/internal/application/sync"
	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/connection"
	"github.com/erp/connector/internal/infrastructure/cache"
	"github.com/erp/connector/internal/infrastructure/config"
	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/erp/connector/internal/infrastructure/persistence"
	"github.com/erp/connector/internal/interfaces/http/handler"
	"github.com/erp/connector/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ERP connector",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// Postgres deployments run the SQL migrations; the sqlite driver migrates
	// itself so a single-binary install works out of the box.
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	nonces, err := newNonceStore(cfg, db)
	if err != nil {
		log.Fatal("Failed to initialize nonce store", zap.Error(err))
	}
	defer func() {
		if err := nonces.Close(); err != nil {
			log.Error("Error closing nonce store", zap.Error(err))
		}
	}()
	log.Info("Replay guard ready", zap.String("store", cfg.Nonce.Store))

	ledger := persistence.NewGormCommandLedger(db.DB)
	records := persistence.NewGormRecordStore(db.DB)

	registry := intake.NewRegistry()
	syncapp.NewHandlers(records, log).RegisterAll(registry)

	settings := connection.StaticSource{Settings: cfg.Connection.ConnectionSettings()}
	contacts := connection.NewContactLog()

	intakeService := intake.NewService(intake.ServiceConfig{
		Settings: settings,
		Nonces:   nonces,
		Ledger:   ledger,
		Registry: registry,
		Logger:   log,
		LastSeen: contacts.Record,
	})
	pullService := pull.NewService(pull.ServiceConfig{
		Settings: settings,
		Logger:   log,
	})

	engine, err := router.New(router.Config{
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, log, router.Handlers{
		Command: handler.NewCommandHandler(intakeService),
		Pull:    handler.NewPullHandler(pullService),
		System:  handler.NewSystemHandler(db, contacts),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newNonceStore selects the replay-guard backing store from config.
func newNonceStore(cfg *config.Config, db *persistence.Database) (command.NonceStore, error) {
	switch cfg.Nonce.Store {
	case "redis":
		return cache.NewRedisNonceStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case "memory":
		return cache.NewInMemoryNonceStore(), nil
	case "database":
		return persistence.NewGormNonceStore(db.DB), nil
	default:
		return nil, fmt.Errorf("unknown nonce store %q", cfg.Nonce.Store)
	}
}
