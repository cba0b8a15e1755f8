// Package broker carries correlation identifiers across the message-broker
// transport: every published message gets the same header treatment an HTTP
// response does, through the same Carrier contract.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/corrgate/internal/correlation"
)

// Publisher wraps a confluent-kafka-go producer with correlation stamping,
// structured logging and graceful shutdown.
type Publisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
	header   string
}

// PublisherConfig holds the configuration needed to create a Publisher.
type PublisherConfig struct {
	// ConfigMap accepts the same key/value pairs as confluent-kafka-go's
	// kafka.ConfigMap. Using map[string]any avoids importing the kafka
	// package outside of this package.
	ConfigMap map[string]any
	// Header names the correlation message property; empty means the
	// default.
	Header string
	Logger *zap.Logger
}

// NewPublisher creates a new Kafka publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	cm := make(kafka.ConfigMap, len(cfg.ConfigMap))
	for k, v := range cfg.ConfigMap {
		cm[k] = v
	}
	producer, err := kafka.NewProducer(&cm)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	header := cfg.Header
	if header == "" {
		header = correlation.DefaultHeader
	}

	return &Publisher{
		producer: producer,
		logger:   cfg.Logger,
		header:   header,
	}, nil
}

// Publish sends a message to the specified topic and waits for delivery
// confirmation or context cancellation. A correlation property already
// present in headers is kept verbatim; otherwise a fresh identifier is
// stamped. The identifier in effect is returned either way.
func (p *Publisher) Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) (string, error) {
	msgHeaders := make([]kafka.Header, 0, len(headers)+1)
	for k, v := range headers {
		msgHeaders = append(msgHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}
	msgHeaders, id := stampCorrelation(msgHeaders, p.header)

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
		Headers:        msgHeaders,
		Timestamp:      time.Now(),
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return "", fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case e := <-deliveryChan:
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				return "", fmt.Errorf("message delivery failed: %w", ev.TopicPartition.Error)
			}
			p.logger.Debug("message delivered",
				zap.String("topic", topic),
				zap.String("correlation_id", id),
			)
			return id, nil
		case kafka.Error:
			return "", fmt.Errorf("kafka error: %w", ev)
		default:
			return "", fmt.Errorf("unexpected event type: %T", e)
		}
	case <-ctx.Done():
		return "", fmt.Errorf("publish cancelled: %w", ctx.Err())
	}
}

// Close flushes pending messages and closes the underlying producer.
func (p *Publisher) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}

// IsConnected performs a lightweight metadata fetch to verify the broker is
// reachable. The 3-second timeout keeps the /ready probe from hanging when
// the broker is down.
func (p *Publisher) IsConnected() bool {
	if p.producer == nil {
		return false
	}
	_, err := p.producer.GetMetadata(nil, false, 3000)
	return err == nil
}
