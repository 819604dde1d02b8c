package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, event Event) error {
	recipients := make([]string, 0, len(event.Recipients))
	for _, id := range event.Recipients {
		recipients = append(recipients, id.String())
	}
	fields := []zap.Field{
		zap.String("type", string(event.Type)),
		zap.String("match_id", event.MatchID),
		zap.Strings("recipients", recipients),
	}
	if event.Message != nil {
		fields = append(fields, zap.Uint64("sequence", event.Message.Sequence))
	}
	s.logger.Info("notification", fields...)
	return nil
}

type Publisher interface {
	Publish(ctx context.Context, payload []byte) (int64, error)
}

// RedisSink publishes each event as JSON on a pub/sub channel.
type RedisSink struct {
	publisher Publisher
}

func NewRedisSink(publisher Publisher) *RedisSink {
	return &RedisSink{publisher: publisher}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := s.publisher.Publish(ctx, payload); err != nil {
		return err
	}
	return nil
}

type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

type KafkaTopics struct {
	MatchCreated    string
	MessageAppended string
}

// KafkaSink writes events keyed by match id so a match's events stay ordered
// within a partition.
type KafkaSink struct {
	producer Producer
	topics   KafkaTopics
}

func NewKafkaSink(producer Producer, topics KafkaTopics) *KafkaSink {
	if topics.MatchCreated == "" {
		topics.MatchCreated = "relun.matches"
	}
	if topics.MessageAppended == "" {
		topics.MessageAppended = "relun.messages"
	}
	return &KafkaSink{producer: producer, topics: topics}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, event Event) error {
	topic := s.topics.MatchCreated
	if event.Type == EventMessageAppended {
		topic = s.topics.MessageAppended
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.producer.Produce(ctx, topic, []byte(event.MatchID), payload)
}
