// Package configsdatabase owns the PostgreSQL connection. Configuration
// comes from the environment (optionally seeded from a .env file); the
// opened *gorm.DB is process-wide and handed out by GetDB.
package configsdatabase

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"polyglot.link/configs/configslog"
)

// Config is the database configuration, parsed from DB_* environment
// variables.
type Config struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"polyglot"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	TimeZone        string        `env:"DB_TIMEZONE" envDefault:"UTC"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// DSN renders the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.TimeZone)
}

// LoadConfig reads the environment, seeding it from .env when one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("configsdatabase: parsing environment: %w", err)
	}
	return cfg, nil
}

var db *gorm.DB

// InitDB opens the connection and configures the pool. Fatal on failure:
// nothing downstream works without a database.
func InitDB() {
	cfg, err := LoadConfig()
	if err != nil {
		configslog.Log.Fatal("Failed to load database configuration", zap.Error(err))
		return
	}

	conn, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		configslog.Log.Fatal("Failed to connect to database",
			zap.String("host", cfg.Host), zap.String("name", cfg.Name), zap.Error(err))
		return
	}

	sqlDB, err := conn.DB()
	if err != nil {
		configslog.Log.Fatal("Failed to access underlying connection pool", zap.Error(err))
		return
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db = conn
	configslog.SLog.Infof("Database connection established: %s@%s:%d/%s",
		cfg.User, cfg.Host, cfg.Port, cfg.Name)
}

// GetDB returns the process-wide connection. InitDB must have run.
func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the process-wide connection. Intended for tests and for
// callers that manage their own routing.
func SetDB(conn *gorm.DB) {
	db = conn
}

// CloseDB closes the underlying pool. Deferred from main.
func CloseDB() {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		configslog.Log.Error("Failed to access pool while closing", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		configslog.Log.Error("Failed to close database connection", zap.Error(err))
	}
}
