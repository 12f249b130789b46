package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard-api/core/cache"
	"taskboard-api/core/config"
	"taskboard-api/core/constants"
	"taskboard-api/core/database"
	"taskboard-api/core/logger"
	"taskboard-api/core/utils"
	"taskboard-api/modules/calendar"
	"taskboard-api/modules/calendar/jobs"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Run boots the full service: config, database, cache, HTTP server and the
// background sync workers. It blocks until SIGINT/SIGTERM and then shuts
// everything down in order.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Server.LogLevel, cfg.Server.LogType)

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	cancel()

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisCache.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: utils.GenerateID,
	}))
	e.Use(echomw.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	jobHandler := calendar.Init(e, db, redisCache, asynqClient)

	asynqServer, scheduler := startWorkers(redisOpt, jobHandler, cfg.Sync.IntervalMinutes)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("Server:Starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server:Start:Error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server:ShuttingDown")

	if scheduler != nil {
		scheduler.Shutdown()
	}
	if asynqServer != nil {
		asynqServer.Shutdown()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server:Stopped")
	return nil
}

// startWorkers runs the asynq worker pool plus a scheduler that enqueues the
// periodic fan-out task. A non-positive interval disables scheduling but the
// workers still serve on-demand tasks.
func startWorkers(redisOpt asynq.RedisClientOpt, handler *jobs.Handler, intervalMinutes int) (*asynq.Server, *asynq.Scheduler) {
	mux := asynq.NewServeMux()
	handler.Register(mux)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
	})
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Error("Server:Workers:Error", "error", err)
		}
	}()

	if intervalMinutes <= 0 {
		return srv, nil
	}

	scheduler := asynq.NewScheduler(redisOpt, nil)
	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	if _, err := scheduler.Register(spec, jobs.NewSyncAllTask()); err != nil {
		logger.Error("Server:Scheduler:Register:Error", "error", err)
		return srv, nil
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("Server:Scheduler:Error", "error", err)
		}
	}()

	logger.Info("Server:Scheduler:Started", "interval_minutes", intervalMinutes)
	return srv, scheduler
}
