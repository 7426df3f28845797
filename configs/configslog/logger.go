// Package configslog holds the process-wide zap loggers. Application
// binaries call InitLogger once at startup; until then the loggers are
// no-ops, so library code and tests can log unconditionally.
package configslog

import (
	"os"

	"go.uber.org/zap"
)

var (
	// Log is the structured logger.
	Log *zap.Logger

	// SLog is the sugared logger, for printf-style call sites.
	SLog *zap.SugaredLogger
)

func init() {
	Log = zap.NewNop()
	SLog = Log.Sugar()
}

// InitLogger replaces the no-op loggers with real ones. APP_ENV=production
// selects the production config (JSON, sampled); anything else selects the
// development config.
func InitLogger() {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("APP_ENV") == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		// Logging must not take the process down before it even starts.
		logger = zap.NewNop()
	}
	Log = logger
	SLog = logger.Sugar()
}

// SyncLogger flushes buffered log entries. Deferred from main.
func SyncLogger() {
	if Log != nil {
		_ = Log.Sync()
	}
}
