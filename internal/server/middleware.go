package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/corrgate/internal/correlation"
)

// headerCarrier adapts one HTTP request/response pair to the
// correlation.Carrier interface. Inbound reads go against the request
// headers (net/http canonicalizes field names, so lookup is
// case-insensitive); outbound writes go to the response header map and are
// dropped once the status line has been flushed, matching what net/http
// would do with them anyway.
type headerCarrier struct {
	req *http.Request
	rw  *responseWriter
}

func (c *headerCarrier) ReadHeader(name string) (string, bool) {
	vs := c.req.Header.Values(name)
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (c *headerCarrier) WriteHeader(name, value string) {
	if c.rw.written {
		return
	}
	c.rw.Header().Set(name, value)
}

// correlationMiddleware builds the per-request correlation state. It is the
// innermost middleware so that Prepare runs after every upstream
// pre-processing step and strictly before handler logic.
func (s *Server) correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := wrap(w)
		carrier := &headerCarrier{req: r, rw: rw}
		provider := correlation.New(carrier, correlation.WithHeader(s.header))
		rw.provider = provider

		logger := correlation.NewLogger(s.logger)
		provider.Prepare()
		// An upstream middleware may already have finalized the response;
		// in that case the logger keeps its unset identifier.
		if !rw.written {
			logger.SetCorrelationID(provider.ID())
		}

		ctx := correlation.NewContext(r.Context(), provider)
		ctx = correlation.ContextWithLogger(ctx, logger)
		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

// accessLogMiddleware emits one summary line per completed request and
// records request metrics. It sits outermost so the measured duration spans
// the whole chain.
func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := wrap(w)
		next.ServeHTTP(rw, r)

		// Identifier resolution: attached provider first, then the raw
		// inbound header for requests that never reached the correlation
		// middleware, then the absent marker.
		id := ""
		if rw.provider != nil {
			id = rw.provider.ID()
		} else {
			id = r.Header.Get(s.header)
		}

		summary := fmt.Sprintf("%s %s %s", r.Method, r.URL.Path, r.Proto)
		elapsed := time.Since(start)
		s.accessLog.Emit(rw.statusCode, summary, elapsed, id)
		s.metrics.Observe(r.Method, r.URL.Path, rw.statusCode, elapsed)
	})
}

// rateLimitMiddleware enforces a global request rate when configured.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			// Throttled responses still carry the correlation header, so a
			// short-lived provider runs over the same carrier before the
			// rejection is written.
			rw := wrap(w)
			provider := correlation.New(&headerCarrier{req: r, rw: rw}, correlation.WithHeader(s.header))
			rw.provider = provider
			provider.Prepare()

			rw.Header().Set("Retry-After", "1")
			s.writeError(rw, http.StatusTooManyRequests, "rate_limited", "request rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
