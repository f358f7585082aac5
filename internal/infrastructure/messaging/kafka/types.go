package kafka

import (
	"context"
	"time"
)

// Message is a consumed record, translated from kafka.Message so that the
// rest of the codebase never imports segmentio/kafka-go directly.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string]string
}

// ProducerMessage is a record to be published.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// TopicConfig describes a topic to create via TopicManager.EnsureTopics.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	MaxMessageBytes   int
	Configs           map[string]string
}

// BatchItemError reports the outcome of a single message within a
// PublishBatch call.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// BatchPublishResult summarises a PublishBatch call.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// MessageHandler processes one consumed Message. A non-nil error triggers
// the consumer's retry-then-dead-letter path.
type MessageHandler func(ctx context.Context, msg *Message) error
