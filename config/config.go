package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting read from the environment.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`
	GinMode     string `envconfig:"GIN_MODE" default:"debug"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"mysql"`
	DBHost     string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort     int    `envconfig:"DB_PORT" default:"3306"`
	DBDatabase string `envconfig:"DB_DATABASE" default:"journal"`
	DBUsername string `envconfig:"DB_USERNAME" default:"root"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DebugSQL   bool   `envconfig:"DEBUG_SQL" default:"false"`
	// AutoMigrate creates or updates the journal tables on start.
	AutoMigrate bool `envconfig:"AUTO_MIGRATE" default:"false"`

	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireHours int    `envconfig:"JWT_EXPIRE_HOURS" default:"24"`

	ArtifactBackend string `envconfig:"ARTIFACT_BACKEND" default:"local"`
	UploadPath      string `envconfig:"UPLOAD_PATH" default:"./uploads"`
	S3Endpoint      string `envconfig:"S3_ENDPOINT"`
	S3Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket        string `envconfig:"S3_BUCKET"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY"`

	SMTPHost          string `envconfig:"SMTP_HOST"`
	SMTPPort          int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser          string `envconfig:"SMTP_USER"`
	SMTPPass          string `envconfig:"SMTP_PASS"`
	SMTPFrom          string `envconfig:"SMTP_FROM"`
	SMTPSkipTLSVerify bool   `envconfig:"SMTP_SKIP_TLS_VERIFY" default:"false"`

	AppBaseURL       string `envconfig:"APP_BASE_URL"`
	ReminderSchedule string `envconfig:"REMINDER_SCHEDULE" default:"0 7 * * *"`
	TriageWindowDays int    `envconfig:"TRIAGE_WINDOW_DAYS" default:"7"`
	ReviewWindowDays int    `envconfig:"REVIEW_WINDOW_DAYS" default:"21"`
	AllowedOrigins   string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.ArtifactBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when ARTIFACT_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported ARTIFACT_BACKEND %q", c.ArtifactBackend)
	}
	if c.TriageWindowDays <= 0 || c.ReviewWindowDays <= 0 {
		return fmt.Errorf("TRIAGE_WINDOW_DAYS and REVIEW_WINDOW_DAYS must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) TriageWindow() time.Duration {
	return time.Duration(c.TriageWindowDays) * 24 * time.Hour
}

func (c *Config) ReviewWindow() time.Duration {
	return time.Duration(c.ReviewWindowDays) * 24 * time.Hour
}

func (c *Config) JWTExpiry() time.Duration {
	if c.JWTExpireHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWTExpireHours) * time.Hour
}

// Origins returns the CORS allow list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// MySQLDSN returns the data source name for the mysql driver.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase)
}

// PostgresDSN returns the data source name for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUsername, c.DBPassword, c.DBDatabase, c.DBPort)
}
