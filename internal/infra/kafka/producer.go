package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type Config struct {
	Brokers  []string
	ClientID string
	Protocol string
}

// Producer sends keyed records and waits for each delivery report.
type Producer struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

func NewProducer(cfg Config, logger *zap.Logger) (*Producer, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	protocol := strings.TrimSpace(cfg.Protocol)
	if protocol == "" {
		protocol = "plaintext"
	}

	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(brokers, ","),
		"security.protocol": protocol,
		"acks":              "all",
	}
	if cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", cfg.ClientID)
	}

	p, err := kafka.NewProducer(configMap)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{producer: p, logger: logger}, nil
}

func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka producer is not initialized")
	}
	if strings.TrimSpace(topic) == "" {
		return fmt.Errorf("kafka topic is required")
	}
	// A report may still arrive after ctx is done.
	deliveryChan := make(chan kafka.Event, 1)

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
		Timestamp:      time.Now(),
	}
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("enqueue kafka message for %s: %w", topic, err)
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected kafka delivery event %T", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver kafka message to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for kafka delivery to %s: %w", topic, ctx.Err())
	}
}

func (p *Producer) Close() {
	if p == nil || p.producer == nil {
		return
	}
	if remaining := p.producer.Flush(15 * 1000); remaining > 0 {
		p.logger.Warn("kafka producer closed with outstanding messages", zap.Int("remaining", remaining))
	}
	p.producer.Close()
}
