package broker

import (
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/corrgate/internal/correlation"
)

// messageCarrier adapts a Kafka header list to the correlation.Carrier
// interface, the same contract the HTTP side implements over request and
// response headers. A message has a single header set, so reads go against a
// snapshot of the caller-supplied headers while writes mutate the outgoing
// list; without the split the provider's construction-time header write
// would clobber a caller-supplied property before Prepare could adopt it.
type messageCarrier struct {
	inbound  []kafka.Header
	outbound []kafka.Header
}

func newMessageCarrier(headers []kafka.Header) *messageCarrier {
	inbound := make([]kafka.Header, len(headers))
	copy(inbound, headers)
	return &messageCarrier{inbound: inbound, outbound: headers}
}

func (c *messageCarrier) ReadHeader(name string) (string, bool) {
	for _, h := range c.inbound {
		if strings.EqualFold(h.Key, name) {
			return string(h.Value), true
		}
	}
	return "", false
}

func (c *messageCarrier) WriteHeader(name, value string) {
	for i, h := range c.outbound {
		if strings.EqualFold(h.Key, name) {
			c.outbound[i] = kafka.Header{Key: name, Value: []byte(value)}
			return
		}
	}
	c.outbound = append(c.outbound, kafka.Header{Key: name, Value: []byte(value)})
}

// stampCorrelation runs a correlation provider over the message headers: an
// existing property is adopted verbatim, otherwise the freshly generated
// identifier stands. Returns the final headers and the identifier in effect.
func stampCorrelation(headers []kafka.Header, headerName string) ([]kafka.Header, string) {
	carrier := newMessageCarrier(headers)
	provider := correlation.New(carrier, correlation.WithHeader(headerName))
	provider.Prepare()
	return carrier.outbound, provider.ID()
}
