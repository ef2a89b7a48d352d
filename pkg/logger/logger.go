package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process-wide logger. Components derive a tagged child via
// WithComponent instead of holding their own instance.
var L = mustBuild()

func mustBuild() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(levelFromEnv())

	log, err := config.Build()
	if err != nil {
		panic(err)
	}
	return log
}

// levelFromEnv reads LOG_LEVEL (debug, info, warn, error). Unset or
// unrecognized values mean info.
func levelFromEnv() zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func WithComponent(component string) *zap.Logger {
	return L.With(zap.String("component", component))
}
