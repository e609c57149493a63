// Command review-reminders runs one reminder sweep and exits. It is meant for
// deployments that schedule jobs outside the API process.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"journal-review-api/config"
	"journal-review-api/services"

	"go.uber.org/zap"
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

	if cfg.DBDriver == "memory" {
		logging.Fatal("review-reminders needs a SQL database; DB_DRIVER=memory has nothing to sweep")
	}
	db, err := config.OpenDB(cfg, logging)
	if err != nil {
		logging.Fatal("failed to connect to database", zap.Error(err))
	}

	store := services.NewGormStore(db)
	users := services.NewGormUserDirectory(db)
	reminders := services.NewReminderService(store, services.Options{
		Logger:       logging.Named("reminders"),
		TriageWindow: cfg.TriageWindow(),
		ReviewWindow: cfg.ReviewWindow(),
	})
	if cfg.DBDriver == "mysql" {
		reminders = reminders.WithLocker(services.NewMySQLLocker(db))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	summary, err := reminders.Sweep(ctx)
	if errors.Is(err, services.ErrReminderSweepRunning) {
		logging.Info("another sweep is running, nothing to do")
		return
	}
	if err != nil {
		logging.Fatal("reminder sweep failed", zap.Error(err))
	}

	var mailer services.Mailer
	if m := config.NewMailer(cfg); m.Configured() {
		mailer = m
	}
	dispatcher := services.NewDispatcher(users, services.NewGormNotificationStore(db), mailer, services.DispatcherOptions{
		Logger:  logging.Named("notify"),
		BaseURL: cfg.AppBaseURL,
	})
	dispatcher.Dispatch(ctx, summary.Events)
	dispatcher.Wait()

	logging.Info("reminder sweep completed",
		zap.Int("overdue_reviews", summary.OverdueReviews),
		zap.Int("overdue_triage", summary.OverdueTriage),
		zap.Int("events", len(summary.Events)),
		zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)))
}
