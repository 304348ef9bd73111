package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MENO-App/BE-MENO/models"
)

// Config is the deployment configuration, read from the environment (and .env when present).
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"meno"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"meno"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"meno-api"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"60m"`

	// DefaultSchoolID is kept as a raw string: a malformed value must surface as a
	// server configuration error on first-login provisioning, not abort startup.
	DefaultSchoolID string `env:"DEFAULT_SCHOOL_ID"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" envDefault:"10"`

	AWSRegion         string `env:"AWS_REGION"`
	MenuTopicARN      string `env:"MENU_TOPIC_ARN"`
	MenuArchiveBucket string `env:"MENU_ARCHIVE_BUCKET"`
	SESEmail          string `env:"SES_EMAIL"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Annotate(err, "parsing environment")
	}
	return &cfg, nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// AWSEnabled reports whether any AWS-backed sink is configured.
func (c *Config) AWSEnabled() bool {
	return c.MenuTopicARN != "" || c.MenuArchiveBucket != "" || c.SESEmail != ""
}

// NewLogger builds the process logger from the log settings.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if c.LogFormat == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("log_level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// OpenDB connects to postgres and migrates the schema.
func OpenDB(c *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(c.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Annotate(err, "connecting to database")
	}
	if err := Migrate(db); err != nil {
		return nil, errors.Trace(err)
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.School{},
		&models.User{},
		&models.Allergy{},
		&models.UserAllergy{},
		&models.MenuWeek{},
		&models.MenuItem{},
		&models.MenuItemAllergen{},
		&models.MealPlan{},
		&models.IdentityUser{},
		&models.IdentityUserRole{},
	)
	if err != nil {
		return errors.Annotate(err, "auto-migrating schema")
	}
	return nil
}
