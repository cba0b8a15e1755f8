package server

import (
	"bufio"
	"fmt"
	"net"
	"net/http"

	"github.com/corrgate/internal/correlation"
)

// responseWriter wraps http.ResponseWriter to capture the status code and to
// re-establish default headers immediately before the status line goes out.
// That covers both the implicit 200 on the first Write and the explicit
// WriteHeader an error response performs after clearing partial state, so the
// correlation header is present on every response, error paths included.
type responseWriter struct {
	http.ResponseWriter
	provider   *correlation.Provider
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.written {
		return
	}
	if rw.provider != nil {
		rw.provider.ApplyDefaultHeaders()
	}
	rw.statusCode = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(p)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response does not implement http.Hijacker")
}

// wrap returns w as a *responseWriter, reusing an existing wrapper so that
// stacked middleware share one status/finalization view of the response.
func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}
