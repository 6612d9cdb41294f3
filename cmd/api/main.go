package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application Layer
	appService "taskreminder/internal/application/service"
	"taskreminder/internal/domain/repository"

	// Infrastructure Layer
	"taskreminder/internal/infrastructure/database/postgres"
	"taskreminder/internal/infrastructure/database/sqlite"
	lineClient "taskreminder/internal/infrastructure/line"
	"taskreminder/internal/infrastructure/scheduler"

	// Interfaces Layer
	"taskreminder/internal/interfaces/api/handler"
	"taskreminder/internal/interfaces/api/router"

	// Packages
	"taskreminder/internal/pkg/config"
	appLogger "taskreminder/internal/pkg/logger"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
)

func gracefulShutdown(apiServer *http.Server, reminderSvc appService.ReminderService, taskRepo repository.TaskRepository, log appLogger.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("Shutting down gracefully, press Ctrl+C again to force")

	// Stop taking commands first, then timers, then release the store.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err)
	}

	reminderSvc.Stop()

	if err := taskRepo.Close(); err != nil {
		log.Error("Error closing task store", err)
	} else {
		log.Info("Task store closed.")
	}

	log.Info("Server exiting")
	done <- true
}

func openTaskStore(ctx context.Context, cfg config.Config, log appLogger.Logger) (repository.TaskRepository, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.NewTaskRepository(ctx, cfg.PostgresURL, log)
	default:
		db, err := sqlite.NewDB(cfg.DBURL, log)
		if err != nil {
			return nil, err
		}
		return sqlite.NewTaskRepository(db), nil
	}
}

func fatal(log appLogger.Logger, msg string, err error) {
	log.Error(msg, err)
	os.Exit(1)
}

func main() {
	// --- Initialization ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	appLog := appLogger.New(appLogger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	appLog.Info("Logger initialized.")

	loc, err := cfg.Location()
	if err != nil {
		fatal(appLog, "Invalid timezone", err)
	}

	// --- Infrastructure ---
	ctx := context.Background()
	taskRepo, err := openTaskStore(ctx, cfg, appLog)
	if err != nil {
		fatal(appLog, fmt.Sprintf("Failed to open %s task store", cfg.StoreDriver), err)
	}
	appLog.Info(fmt.Sprintf("Task store (%s) initialized.", cfg.StoreDriver))

	line, err := lineClient.NewClient(cfg.ChannelSecret, cfg.ChannelToken, cfg.SendTimeout, appLog)
	if err != nil {
		fatal(appLog, "Failed to create LINE Bot client", err)
	}
	timers := scheduler.NewScheduler(appLog, loc)

	// --- Application Services ---
	reminderSvc := appService.NewReminderService(taskRepo, timers, line, appLog, appService.Options{
		Location:    loc,
		SendTimeout: cfg.SendTimeout,
		Retry: appService.RetryPolicy{
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
			MaxAttempts:     cfg.RetryMaxAttempts,
		},
	})

	// Tasks must have timers before any command is accepted.
	if _, err := reminderSvc.Reconcile(ctx); err != nil {
		reminderSvc.Stop()
		_ = taskRepo.Close()
		fatal(appLog, "Failed to reconcile stored tasks on startup", err)
	}

	// --- API Handlers ---
	lineHandler := handler.NewLineHandler(line, reminderSvc, loc, cfg.AdminUserID, appLog)
	taskHandler := handler.NewTaskHandler(reminderSvc, appLog)

	// --- Router ---
	echoRouter := router.NewRouter(&router.Config{
		LineHandler: lineHandler,
		TaskHandler: taskHandler,
		APIToken:    cfg.APIToken,
		Logger:      appLog,
	})

	// --- HTTP Server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      echoRouter,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, reminderSvc, taskRepo, appLog, done)

	appLog.Info(fmt.Sprintf("Server starting on port %d", cfg.Port))
	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fatal(appLog, "HTTP server ListenAndServe error", err)
	}

	<-done
	appLog.Info("Graceful shutdown complete.")
}
