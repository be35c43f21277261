package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
	// package level loggers are built during init, so the level stays adjustable afterwards
	level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
)

// GetLogger returns zap.Logger instance, but using singleton pattern creates only one reusable instance.
// Development config by default, LOG_FORMAT=json switches to the production encoder.
func GetLogger() *zap.Logger {
	once.Do(func() {
		var cfg zap.Config
		if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
			cfg = zap.NewProductionConfig()
		} else {
			cfg = zap.NewDevelopmentConfig()
		}
		cfg.Level = level

		var err error
		logger, err = cfg.Build()
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}

// SetLevel changes the level of every logger handed out by GetLogger.
// Unknown values are ignored.
func SetLevel(lvl string) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		GetLogger().Warn("Ignoring unknown log level", zap.String("level", lvl))
		return
	}
	level.SetLevel(parsed)
}
