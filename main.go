// Package main provides the main entry point for the treebio link-in-bio service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/treebio/treebio/app/handlers"
	"github.com/treebio/treebio/app/router"
	"github.com/treebio/treebio/app/scheduler"
	businessflow "github.com/treebio/treebio/business_flow"
	"github.com/treebio/treebio/config"
	"github.com/treebio/treebio/repository"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting treebio application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers; the flusher drains the event queue here
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger to stderr and, when configured,
// a size-rotated file
func setupLogging(cfg config.LoggingConfig) {
	if cfg.FilePath == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	log.Printf("Logging to %s with rotation at %dMB", cfg.FilePath, cfg.MaxSizeMB)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	// TranslateError maps driver-specific unique violations onto
	// gorm.ErrDuplicatedKey, which the repositories rely on
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity.
// A nil client is a valid outcome; the flows degrade to the database.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB
	// flows treat a slow cache as a miss, so every operation is cut off
	// at the configured timeout instead of the client defaults
	opt.DialTimeout = cfg.OperationTimeout
	opt.ReadTimeout = cfg.OperationTimeout
	opt.WriteTimeout = cfg.OperationTimeout

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows, handlers and workers
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		// cache is an accelerator, not a dependency
		log.Printf("Cache unavailable, serving from database only: %v", err)
		rc = nil
	}

	var stopFuncs []func()
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval))
	}

	// Repositories
	linktreeRepo := repository.NewLinktreeRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	pageViewRepo := repository.NewPageViewRepository(db)
	linkClickRepo := repository.NewLinkClickRepository(db)

	// Business flows
	intake := businessflow.NewEventIntake(cfg.Events.QueueCapacity)
	analyticsFlow := businessflow.NewAnalyticsFlow(linktreeRepo, pageViewRepo, linkClickRepo, rc, &cfg.Events, &cfg.Cache)
	linktreeFlow := businessflow.NewLinktreeFlow(linktreeRepo, linkRepo, analyticsFlow, db, rc, &cfg.Cache)
	eventFlow := businessflow.NewEventFlow(intake, pageViewRepo, linkClickRepo, rc, &cfg.Cache)

	// Handlers
	linktreeHandler := handlers.NewLinktreeHandler(linktreeFlow, cfg.App.PublicDomain)
	publicHandler := handlers.NewPublicHandler(linktreeFlow, intake, cfg.Events.SessionTTL)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsFlow, eventFlow)

	// Background workers
	flusher := scheduler.NewEventFlusher(eventFlow, cfg.Events.FlushInterval)
	stopFuncs = append(stopFuncs, flusher.Start(context.Background()))

	retention := scheduler.NewRetentionJob(eventFlow, cfg.Events.RetentionCron, cfg.Events.RetentionDays)
	stopRetention, err := retention.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start retention job: %w", err)
	}
	stopFuncs = append(stopFuncs, stopRetention)

	r := router.NewFiberRouter(cfg, linktreeHandler, publicHandler, analyticsHandler)

	return &Application{
		router:    r,
		config:    cfg,
		server:    r.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
