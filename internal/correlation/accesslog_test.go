package correlation

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFormatLine(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		summary  string
		duration time.Duration
		id       string
		want     string
	}{
		{
			name:     "success with identifier",
			status:   200,
			summary:  "GET /x HTTP/1.1",
			duration: 12340 * time.Microsecond,
			id:       "abc",
			want:     "200 GET /x HTTP/1.1 12.34ms {CID abc}",
		},
		{
			name:     "error keeps same template",
			status:   500,
			summary:  "GET /x HTTP/1.1",
			duration: 12340 * time.Microsecond,
			id:       "abc",
			want:     "500 GET /x HTTP/1.1 12.34ms {CID abc}",
		},
		{
			name:     "absent identifier renders null",
			status:   200,
			summary:  "GET / HTTP/1.1",
			duration: 1500 * time.Microsecond,
			id:       "",
			want:     "200 GET / HTTP/1.1 1.50ms {CID null}",
		},
		{
			name:     "zero duration keeps two decimals",
			status:   204,
			summary:  "DELETE /y HTTP/2.0",
			duration: 0,
			id:       "abc",
			want:     "204 DELETE /y HTTP/2.0 0.00ms {CID abc}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatLine(tt.status, tt.summary, tt.duration, tt.id)
			if got != tt.want {
				t.Errorf("FormatLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessLogger_SeverityBands(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel zapcore.Level
	}{
		{200, zapcore.InfoLevel},
		{301, zapcore.InfoLevel},
		{399, zapcore.InfoLevel},
		{400, zapcore.WarnLevel},
		{404, zapcore.WarnLevel},
		{499, zapcore.WarnLevel},
		{500, zapcore.ErrorLevel},
		{503, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		core, logs := observer.New(zapcore.DebugLevel)
		a := NewAccessLogger(zap.New(core))

		a.Emit(tt.status, "GET / HTTP/1.1", time.Millisecond, "abc")

		entries := logs.All()
		if len(entries) != 1 {
			t.Fatalf("status %d: got %d entries, want exactly 1", tt.status, len(entries))
		}
		if entries[0].Level != tt.wantLevel {
			t.Errorf("status %d: level = %v, want %v", tt.status, entries[0].Level, tt.wantLevel)
		}
	}
}

func TestAccessLogger_MessageMatchesFormatLine(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := NewAccessLogger(zap.New(core))

	d := 2500 * time.Microsecond
	a.Emit(500, "POST /submit HTTP/1.1", d, "")

	want := FormatLine(500, "POST /submit HTTP/1.1", d, "")
	if got := logs.All()[0].Message; got != want {
		t.Errorf("emitted message = %q, want %q", got, want)
	}
}
