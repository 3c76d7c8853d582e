package bsrv

import (
	"github.com/advdv/bsplice"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding suitable for CloudWatch.
// BS_LOG_LEVEL controls the level (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledServeError(err error) {
	l.Logger.Error("unhandled server error", zap.Error(err))
}

func (l zapLogger) LogNestedError(locator string, err error) {
	l.Logger.Warn("nested request failed", zap.String("locator", locator), zap.Error(err))
}

func (l zapLogger) LogUnterminatedStream(path string) {
	l.Logger.Info("response closed without end-of-stream marker", zap.String("path", path))
}

func newZapBsplice(l *zap.Logger) bsplice.Logger {
	return zapLogger{l.Named("bsplice")}
}
