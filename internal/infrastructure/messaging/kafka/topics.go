package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/pkg/errors"
)

// Topic names are namespaced per run so that independent runs sharing a
// broker never observe each other's collective traffic. A run's pool
// coordinates entirely through four topics: one per collective operation.
const (
	topicPoolReducePrefix    = "dissolve.pool"
	topicPoolReduceSuffix    = "allsum"
	topicPoolBroadcastSuffix = "broadcast"
	topicPoolDecisionSuffix  = "decision"
	topicPoolEqualitySuffix  = "equality"

	// TopicDeadLetterDefault collects pool messages that a consumer
	// could not process after its first attempt and RetryConfig.MaxRetries
	// retries.
	TopicDeadLetterDefault = "dissolve.dead_letter.default"
)

// PoolTopicAllSum returns the topic a run's ranks publish their AllSum
// partials to.
func PoolTopicAllSum(runID string) string {
	return fmt.Sprintf("%s.%s.%s", topicPoolReducePrefix, runID, topicPoolReduceSuffix)
}

// PoolTopicBroadcast returns the topic a run's root rank publishes
// Broadcast payloads to.
func PoolTopicBroadcast(runID string) string {
	return fmt.Sprintf("%s.%s.%s", topicPoolReducePrefix, runID, topicPoolBroadcastSuffix)
}

// PoolTopicDecision returns the topic a run's ranks publish their local
// Decision votes to.
func PoolTopicDecision(runID string) string {
	return fmt.Sprintf("%s.%s.%s", topicPoolReducePrefix, runID, topicPoolDecisionSuffix)
}

// PoolTopicEquality returns the topic a run's ranks publish their
// Equality check values to.
func PoolTopicEquality(runID string) string {
	return fmt.Sprintf("%s.%s.%s", topicPoolReducePrefix, runID, topicPoolEqualitySuffix)
}

// EventEnvelope standardizes messages exchanged between ranks: every
// collective payload travels wrapped in one of these so a consumer can
// always recover EventType/Source/Timestamp before decoding the payload.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// PoolReducePayload carries one rank's contribution to an AllSum
// reduction.
type PoolReducePayload struct {
	Rank   int       `json:"rank"`
	Values []float64 `json:"values"`
}

// PoolBroadcastPayload carries the root rank's data for a Broadcast.
type PoolBroadcastPayload struct {
	Root int    `json:"root"`
	Data []byte `json:"data"`
}

// PoolDecisionPayload carries one rank's local boolean for a Decision
// vote.
type PoolDecisionPayload struct {
	Rank  int  `json:"rank"`
	Local bool `json:"local"`
}

// PoolEqualityPayload carries one rank's value for an Equality check.
type PoolEqualityPayload struct {
	Rank  int   `json:"rank"`
	Value int64 `json:"value"`
}

const eventTypeAllSum = "pool.allsum"
const eventTypeBroadcast = "pool.broadcast"
const eventTypeDecision = "pool.decision"
const eventTypeEquality = "pool.equality"

// NewEventEnvelope marshals payload and wraps it in an EventEnvelope
// carrying a fresh event ID and the current timestamp.
func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope's payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

// ToMessage marshals the envelope into a ProducerMessage addressed to
// topic.
func (e *EventEnvelope) ToMessage(topic string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &ProducerMessage{
		Topic:     topic,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope unmarshals a consumed Message's value back into
// an EventEnvelope.
func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.InvalidParam("empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to unmarshal envelope")
	}
	return &env, nil
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	DeleteTopics(topics ...string) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager manages the lifecycle of a run's Kafka topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker in brokers and returns a
// TopicManager for creating and inspecting topics.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.InvalidParam("brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMessageQueueError, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// CreateTopic creates a topic from cfg. It makes no existence check before
// the create call; if that call fails and the topic is then found to exist,
// the failure is treated as success.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.InvalidParam("topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.InvalidParam("num partitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.InvalidParam("replication factor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
		ConfigEntries:     make([]kafka.ConfigEntry, 0),
	}

	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}
	if cfg.MaxMessageBytes > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "max.message.bytes", ConfigValue: fmt.Sprintf("%d", cfg.MaxMessageBytes)})
	}
	for k, v := range cfg.Configs {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		exists, _ := m.TopicExists(ctx, cfg.Name)
		if exists {
			return nil
		}
		return errors.Wrap(err, errors.CodeMessageQueueError, "failed to create topic")
	}
	m.logger.Info("topic created", logging.String("topic", cfg.Name))
	return nil
}

// DeleteTopic deletes a topic by name.
func (m *TopicManager) DeleteTopic(ctx context.Context, name string) error {
	if err := m.conn.DeleteTopics(name); err != nil {
		return nil
	}
	m.logger.Warn("topic deleted", logging.String("topic", name))
	return nil
}

// TopicExists reports whether a topic currently has partitions.
func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// ListTopics returns every distinct topic name visible to the broker.
func (m *TopicManager) ListTopics(ctx context.Context) ([]string, error) {
	partitions, err := m.conn.ReadPartitions()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var topics []string
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

// EnsureTopics creates every topic in topics, skipping ones that already
// exist.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

// EnsureRunTopics creates the four collective topics a run's pool needs,
// plus the shared dead letter topic.
func (m *TopicManager) EnsureRunTopics(ctx context.Context, runID string) error {
	return m.EnsureTopics(ctx, RunTopics(runID))
}

// Close releases the underlying broker connection.
func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// RunTopics returns the topic configuration for one run's collective
// operations, plus the shared dead-letter topic. Each collective topic has
// a single partition, since every rank in a pool publishes to the same
// logical round and consumers read the whole topic in order.
func RunTopics(runID string) []TopicConfig {
	const oneDayMs = 24 * 3600 * 1000
	return []TopicConfig{
		{Name: PoolTopicAllSum(runID), NumPartitions: 1, ReplicationFactor: 1, RetentionMs: oneDayMs},
		{Name: PoolTopicBroadcast(runID), NumPartitions: 1, ReplicationFactor: 1, RetentionMs: oneDayMs},
		{Name: PoolTopicDecision(runID), NumPartitions: 1, ReplicationFactor: 1, RetentionMs: oneDayMs},
		{Name: PoolTopicEquality(runID), NumPartitions: 1, ReplicationFactor: 1, RetentionMs: oneDayMs},
		{Name: TopicDeadLetterDefault, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 30 * oneDayMs},
	}
}
