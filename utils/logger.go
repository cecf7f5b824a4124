package utils

import (
	"log"
	"sync"

	"installhub/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// LoggerConfig returns the zap config for an environment. level overrides the
// environment default when it parses.
func LoggerConfig(production bool, level string) zap.Config {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if level != "" {
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	return cfg
}

// GetLogger returns the process logger, building it on first use and
// installing it as zap's global logger.
func GetLogger() *zap.Logger {
	loggerOnce.Do(func() {
		l, err := LoggerConfig(config.IsProduction(), config.AppConfig.LogLevel).Build(zap.Fields(zap.String("service", "installhub")))
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		logger = l
		zap.ReplaceGlobals(l)
	})
	return logger
}
