package correlation

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger and appends the current correlation identifier
// to every message while one is set. Only the message text is touched; the
// structured field list passes through untouched, so field encoding is never
// disturbed.
//
// Like the Provider, a Logger belongs to exactly one request.
type Logger struct {
	base          *zap.Logger
	correlationID string
}

// NewLogger wraps base. A nil base falls back to the process-global logger.
func NewLogger(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.L()
	}
	return &Logger{base: base}
}

// SetCorrelationID sets the identifier appended to subsequent messages.
// An empty value disables the suffix.
func (l *Logger) SetCorrelationID(id string) {
	l.correlationID = id
}

// CorrelationID returns the identifier currently in effect.
func (l *Logger) CorrelationID() string {
	return l.correlationID
}

func (l *Logger) annotate(msg string) string {
	if l.correlationID == "" {
		return msg
	}
	return msg + " {CID " + l.correlationID + "}"
}

// Log emits msg at lvl through the wrapped logger.
func (l *Logger) Log(lvl zapcore.Level, msg string, fields ...zap.Field) {
	l.base.Log(lvl, l.annotate(msg), fields...)
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.base.Debug(l.annotate(msg), fields...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.base.Info(l.annotate(msg), fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.base.Warn(l.annotate(msg), fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.base.Error(l.annotate(msg), fields...)
}
