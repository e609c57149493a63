package config

import (
	"fmt"
	"time"

	"journal-review-api/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB connects to the configured database. SQL statements are logged
// through zap; in production only warnings are kept unless DEBUG_SQL is set.
func OpenDB(c *Config, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Info
	if c.IsProduction() && !c.DebugSQL {
		logLevel = logger.Warn
	}
	gormConfig := &gorm.Config{
		Logger: logger.New(
			zap.NewStdLog(log.Named("sql")),
			logger.Config{
				LogLevel:                  logLevel,
				SlowThreshold:             time.Second,
				IgnoreRecordNotFoundError: true,
			},
		),
	}

	var dialector gorm.Dialector
	switch c.DBDriver {
	case "mysql":
		dialector = mysql.Open(c.MySQLDSN())
	case "postgres":
		dialector = postgres.Open(c.PostgresDSN())
	default:
		return nil, fmt.Errorf("no SQL database for driver %q", c.DBDriver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.DBDriver, err)
	}
	log.Info("database connected", zap.String("driver", c.DBDriver), zap.String("host", c.DBHost))

	if c.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Info("database schema migrated")
	}
	return db, nil
}

// Migrate creates or updates the journal tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Manuscript{},
		&models.ManuscriptRevision{},
		&models.Review{},
		&models.Decision{},
		&models.StageTransition{},
		&models.Article{},
		&models.Notification{},
		&models.NotificationMessage{},
	)
}
