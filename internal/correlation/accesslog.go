package correlation

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// absentID is rendered when no correlation identifier could be resolved.
const absentID = "null"

// FormatLine renders the access-log line for one completed request:
//
//	<status> <summary> <duration>ms {CID <id-or-null>}
//
// Duration is printed in milliseconds with two decimal places. An empty id
// renders the literal absent marker.
func FormatLine(status int, summary string, duration time.Duration, id string) string {
	if id == "" {
		id = absentID
	}
	ms := float64(duration) / float64(time.Millisecond)
	return fmt.Sprintf("%d %s %.2fms {CID %s}", status, summary, ms, id)
}

// AccessLogger emits exactly one summary line per completed request,
// escalating severity with the status code band.
type AccessLogger struct {
	logger *zap.Logger
}

// NewAccessLogger wraps logger; nil falls back to the process-global logger.
func NewAccessLogger(logger *zap.Logger) *AccessLogger {
	if logger == nil {
		logger = zap.L()
	}
	return &AccessLogger{logger: logger}
}

// Emit writes the line for one request. 2xx/3xx log at info, 4xx at warn,
// 5xx at error.
func (a *AccessLogger) Emit(status int, summary string, duration time.Duration, id string) {
	line := FormatLine(status, summary, duration, id)
	switch {
	case status < http.StatusBadRequest:
		a.logger.Info(line)
	case status < http.StatusInternalServerError:
		a.logger.Warn(line)
	default:
		a.logger.Error(line)
	}
}
