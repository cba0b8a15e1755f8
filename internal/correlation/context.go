package correlation

import "context"

type ctxKey int

const (
	providerKey ctxKey = iota
	loggerKey
)

// NewContext attaches the request's Provider to ctx so downstream handlers
// can read or override the identifier.
func NewContext(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerKey, p)
}

// FromContext returns the Provider attached to ctx, if any. Callers must
// handle the absent case: a request aborted before the correlation
// middleware ran has no Provider.
func FromContext(ctx context.Context) (*Provider, bool) {
	p, ok := ctx.Value(providerKey).(*Provider)
	return p, ok
}

// ContextWithLogger attaches the request's correlated Logger to ctx.
func ContextWithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// LoggerFromContext returns the correlated Logger attached to ctx, or a
// fresh wrapper around the global logger when none is attached, so call
// sites can log unconditionally.
func LoggerFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return NewLogger(nil)
}
