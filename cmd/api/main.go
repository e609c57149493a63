package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"journal-review-api/config"
	"journal-review-api/controllers"
	"journal-review-api/middleware"
	"journal-review-api/routes"
	"journal-review-api/services"
	"journal-review-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logging, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Storage
	var (
		db     *gorm.DB
		store  services.Store
		users  services.UserDirectory
		notes  services.NotificationStore
		locker services.Locker
	)
	if cfg.DBDriver == "memory" {
		logging.Warn("using in-memory store; data is lost on restart")
		store = services.NewMemoryStore()
		users = services.NewMemoryUserDirectory()
		notes = services.NewMemoryNotificationStore()
	} else {
		db, err = config.OpenDB(cfg, logging)
		if err != nil {
			logging.Fatal("failed to connect to database", zap.Error(err))
		}
		store = services.NewGormStore(db)
		users = services.NewGormUserDirectory(db)
		notes = services.NewGormNotificationStore(db)
		if cfg.DBDriver == "mysql" {
			locker = services.NewMySQLLocker(db)
		}
	}

	ctx := context.Background()
	backend, err := storage.NewBackend(ctx, cfg)
	if err != nil {
		logging.Fatal("artifact storage setup failed", zap.Error(err))
	}
	artifacts := storage.NewArtifactStore(backend, logging.Named("artifacts"))

	// Services
	metrics := services.NewMetrics(prometheus.DefaultRegisterer)
	journal := services.NewJournal(store, users, services.Options{
		Logger:       logging.Named("workflow"),
		Metrics:      metrics,
		TriageWindow: cfg.TriageWindow(),
		ReviewWindow: cfg.ReviewWindow(),
	})

	var mailer services.Mailer
	if m := config.NewMailer(cfg); m.Configured() {
		mailer = m
	} else {
		logging.Warn("SMTP not configured; notifications are in-app only")
	}
	dispatcher := services.NewDispatcher(users, notes, mailer, services.DispatcherOptions{
		Logger:  logging.Named("notify"),
		Metrics: metrics,
		BaseURL: cfg.AppBaseURL,
	})

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logging.Named("http")))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.Origins()))

	h := controllers.NewHandler(controllers.Deps{
		Journal:       journal,
		Events:        dispatcher,
		Notifications: notes,
		Artifacts:     artifacts,
		Users:         users,
		Logger:        logging,
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        cfg.JWTExpiry(),
	})
	routes.SetupRoutes(router, h, routes.Options{
		Auth:    middleware.AuthMiddleware(cfg.JWTSecret, users),
		Metrics: promhttp.Handler(),
	})

	// Cron
	reminders := journal.Reminders
	if locker != nil {
		reminders = reminders.WithLocker(locker)
	}
	cronScheduler := cron.New()
	if _, err := cronScheduler.AddFunc(cfg.ReminderSchedule, func() {
		logging.Info("running reminder sweep")
		summary, err := reminders.Sweep(context.Background())
		if errors.Is(err, services.ErrReminderSweepRunning) {
			logging.Info("reminder sweep skipped, another instance holds the lock")
			return
		}
		if err != nil {
			logging.Error("reminder sweep failed", zap.Error(err))
			return
		}
		dispatcher.Dispatch(context.Background(), summary.Events)
		logging.Info("reminder sweep completed",
			zap.Int("overdue_reviews", summary.OverdueReviews),
			zap.Int("overdue_triage", summary.OverdueTriage))
	}); err != nil {
		logging.Fatal("invalid REMINDER_SCHEDULE", zap.String("schedule", cfg.ReminderSchedule), zap.Error(err))
	}
	cronScheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadTimeout:       60 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		logging.Info("starting server",
			zap.String("port", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("artifact_backend", cfg.ArtifactBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("server shutdown failed", zap.Error(err))
	}
	<-cronScheduler.Stop().Done()
	dispatcher.Wait()
}
