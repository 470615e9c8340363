package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"client-manager/pkg/analytics"
	"client-manager/pkg/api"
	"client-manager/pkg/cache"
	"client-manager/pkg/config"
	"client-manager/pkg/database"
	"client-manager/pkg/documents"
	"client-manager/pkg/logging"
	"client-manager/pkg/reminders"
	"client-manager/pkg/scheduler"
)

// Build information. Populated at build-time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "", "path to a yaml config file")
	envFile := flag.String("env", ".env", "optional .env file loaded before the environment")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Service.Name, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting client manager",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("build_time", BuildTime),
		zap.String("environment", cfg.Service.Environment))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Client manager stopped with error", zap.Error(err))
	}
	logger.Info("Client manager stopped")
}

func run(cfg *config.Configuration, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, _, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.Ping(pingCtx)
	pingCancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to database", zap.String("driver", db.DriverName()))

	if cfg.Database.EnsureSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	clients := database.NewClientRepository(db)
	expenses := database.NewExpenseRepository(db)
	reminderLog := database.NewReminderRepository(db)

	// A typed nil would defeat the nil check inside the analytics service.
	var summaryCache analytics.SummaryCache
	if cfg.Cache.Enabled() {
		c, err := cache.New(ctx, cache.Options{
			Address:   cfg.Cache.Address,
			Password:  cfg.Cache.Password,
			DB:        cfg.Cache.DB,
			TTL:       cfg.Cache.TTL,
			KeyPrefix: cfg.Cache.KeyPrefix,
		}, logger)
		if err != nil {
			logger.Warn("Summary cache unavailable, computing on every request", zap.Error(err))
		} else {
			defer c.Close()
			summaryCache = c
			logger.Info("Summary cache enabled", zap.String("address", cfg.Cache.Address))
		}
	}

	analyticsService := analytics.NewService(clients, summaryCache, logger.Named("analytics"))
	reminderService := reminders.NewService(clients, reminderLog, reminders.Business{
		Name:      cfg.Business.Name,
		Contact:   cfg.Business.Contact,
		Phone:     cfg.Business.Phone,
		Email:     cfg.Business.Email,
		PortalURL: cfg.Business.PortalURL,
	}, logger.Named("reminders"))

	renderer, err := documents.NewRenderer(documents.Business{
		Name:    cfg.Business.Name,
		Contact: cfg.Business.Contact,
		Phone:   cfg.Business.Phone,
		Email:   cfg.Business.Email,
		Address: cfg.Business.Address,
	})
	if err != nil {
		return err
	}

	jobs := scheduler.NewJobs(analyticsService, reminderService, logger.Named("jobs"))

	srv := api.NewServer(clients, expenses, analyticsService, reminderService, renderer, jobs, api.Options{
		CronToken:      cfg.Security.CronToken,
		RateLimitRPS:   cfg.Security.RateLimitRPS,
		RateLimitBurst: cfg.Security.RateLimitBurst,
		Build:          api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime},
	}, logger.Named("http"))

	if cfg.Security.CronToken == "" {
		logger.Warn("No cron token configured, /internal routes will reject every request")
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(jobs, scheduler.Config{
			RecurringSpec: cfg.Scheduler.RecurringSpec,
			RemindersSpec: cfg.Scheduler.RemindersSpec,
		}, logger.Named("scheduler"))
		if err != nil {
			return err
		}
		sched.Start()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("Scheduler shutdown failed", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	return nil
}
