// Package app wires configuration, persistence, the execution engine and
// orchestrator core, and the HTTP server into one runnable application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aosanya/agentforge/internal/api"
	"github.com/aosanya/agentforge/internal/config"
	"github.com/aosanya/agentforge/internal/eventbus"
	"github.com/aosanya/agentforge/internal/execution"
	"github.com/aosanya/agentforge/internal/fallback"
	"github.com/aosanya/agentforge/internal/orchestrator"
	"github.com/aosanya/agentforge/internal/store"
	"github.com/aosanya/agentforge/internal/subprocess"
)

// Version is the build version reported on /health and /api/v1/system/info;
// cmd/server assigns it at startup from its own link-time version variable.
var Version = "dev"

// App holds every long-lived component the running process owns.
type App struct {
	cfg    *config.Config
	logger *log.Logger

	store  store.Gateway
	bus    *eventbus.Bus
	engine *execution.Engine
	core   *orchestrator.Core

	server *api.Server
}

// New wires an App from cfg. It connects to the configured store and runs
// the startup reconciliation sweep before returning. A construction
// failure in any required component is fatal.
func New(cfg *config.Config) *App {
	logger := newLogger(cfg)

	a := &App{cfg: cfg, logger: logger}

	gateway, err := newGateway(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize persistence")
	}
	a.store = gateway

	a.bus = eventbus.New(logger)

	runner := subprocess.NewRunner(cfg.Execution.SubprocessBinary(), logger)
	responder := fallback.New()

	execConfig := execution.Config{
		DefaultTimeout:         time.Duration(cfg.Execution.DefaultTimeoutSeconds) * time.Second,
		MaxTimeout:             time.Duration(cfg.Execution.MaxTimeoutSeconds) * time.Second,
		SubprocessInnerTimeout: time.Duration(cfg.Execution.SubprocessInnerTimeoutSeconds) * time.Second,
		WorkDirectoryRoot:      "agentforge_executions",
	}
	a.engine = execution.NewEngine(a.store, a.bus, runner, responder, execConfig, logger)

	a.core = orchestrator.NewCore(a.engine, a.bus, a.store, logger)

	reconciler := execution.NewReconciler(a.store, logger)
	if report, err := reconciler.Run(context.Background()); err != nil {
		logger.WithError(err).Error("startup reconciliation failed")
	} else {
		logger.WithFields(log.Fields{
			"deleted_corrupt": report.DeletedCorrupt,
			"cancelled_stale": report.CancelledStale,
		}).Info("startup reconciliation summary")
	}

	a.server = api.NewServer(serverConfig(cfg), api.Services{
		Store:   a.store,
		Bus:     a.bus,
		Engine:  a.engine,
		Core:    a.core,
		Logger:  logger,
		Version: Version,
	})

	return a
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.New()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	return logger
}

func newGateway(cfg *config.Config, logger *log.Logger) (store.Gateway, error) {
	if cfg.Database.Type == "memory" {
		return store.NewMemory(), nil
	}
	return store.NewArango(cfg.Database, logger)
}

func serverConfig(cfg *config.Config) api.ServerConfig {
	return api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		Environment:  cfg.Environment(),
		MaxBodyBytes: 10 << 20,
	}
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, at which
// point it shuts the server down with a bounded grace period.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("graceful shutdown failed")
		return err
	}
	a.logger.Info("shutdown complete")
	return nil
}
