// Package correlation ties together the log lines, metrics and headers of a
// single request/response pair through one opaque identifier.
//
// The identifier travels in a configurable header (default "Correlation-ID").
// If the caller supplied one it is adopted verbatim; otherwise a fresh UUIDv4
// is generated. The Provider owns the identifier for the lifetime of one
// request and keeps the outbound header in sync with it, including across the
// host's error paths where response state is reset and default headers are
// re-established.
package correlation

import "github.com/google/uuid"

// DefaultHeader is the header used when no override is configured.
const DefaultHeader = "Correlation-ID"

// Carrier is the transport surface a Provider needs: a readable inbound
// header collection and a writable outbound one. HTTP requests and Kafka
// message headers both satisfy it, which is what lets the same Provider run
// over either transport.
type Carrier interface {
	// ReadHeader returns the inbound header value. Lookup is
	// case-insensitive per HTTP field-name semantics.
	ReadHeader(name string) (string, bool)

	// WriteHeader sets or overwrites the outbound header.
	WriteHeader(name, value string)
}

// Provider owns the correlation identifier for one request. It is not safe
// for concurrent use; each request gets its own instance.
type Provider struct {
	header  string
	id      string
	carrier Carrier
}

// Option configures a Provider.
type Option func(*Provider)

// WithHeader renames both the inbound lookup key and the outbound header.
// An empty name keeps the default.
func WithHeader(name string) Option {
	return func(p *Provider) {
		if name != "" {
			p.header = name
		}
	}
}

// New builds a Provider over the given carrier. The identifier is generated
// before default headers are applied: header application reads the identifier
// synchronously, so ordering matters here.
func New(carrier Carrier, opts ...Option) *Provider {
	p := &Provider{header: DefaultHeader, carrier: carrier}
	for _, opt := range opts {
		opt(p)
	}
	p.id = uuid.NewString()
	p.ApplyDefaultHeaders()
	return p
}

// Header returns the configured header name.
func (p *Provider) Header() string {
	return p.header
}

// ID returns the current identifier.
func (p *Provider) ID() string {
	return p.id
}

// SetID overwrites the identifier and immediately rewrites the outbound
// header, so the response never carries a stale value.
func (p *Provider) SetID(value string) {
	p.id = value
	p.carrier.WriteHeader(p.header, p.id)
}

// RequestHeader reads an inbound header, returning def when absent.
func (p *Provider) RequestHeader(name, def string) string {
	if v, ok := p.carrier.ReadHeader(name); ok {
		return v
	}
	return def
}

// ApplyDefaultHeaders re-applies the outbound header with the current
// identifier. Idempotent. The host must invoke it every time default
// response headers are established, not just the first: an error that clears
// partial response state would otherwise drop the header.
func (p *Provider) ApplyDefaultHeaders() {
	p.carrier.WriteHeader(p.header, p.id)
}

// Prepare runs once per request, after upstream middleware and before
// handler logic. A non-empty inbound header overrides the generated
// identifier; absence is the normal case and keeps the default. Never fails.
func (p *Provider) Prepare() {
	if v := p.RequestHeader(p.header, ""); v != "" {
		p.SetID(v)
	}
}
