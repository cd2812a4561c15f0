package rhttpd

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/advdv/rhttp"
)

// NewLogger creates a zap logger configured from the environment. Uses JSON
// encoding suitable for log aggregation. RHTTP_LOG_LEVEL controls the level
// (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogEnvelope(e *rhttp.Envelope) {
	l.Error("error envelope rendered",
		zap.Int("status", e.Status),
		zap.String("brief", e.Brief),
		zap.String("detail", e.Detail))
}

func (l zapLogger) LogDisconnect(reason rhttp.DisconnectReason, elapsed time.Duration) {
	l.Info("connection closed before completion",
		zap.Stringer("reason", reason),
		zap.Duration("elapsed", elapsed))
}

func (l zapLogger) LogCancelled(handler string, elapsed time.Duration) {
	l.Info("handler cancelled",
		zap.String("handler", handler),
		zap.Duration("elapsed", elapsed))
}

// NewDispatchLogger adapts a zap logger to the rhttp.Logger interface.
func NewDispatchLogger(l *zap.Logger) rhttp.Logger {
	return zapLogger{l.Named("rhttp")}
}
