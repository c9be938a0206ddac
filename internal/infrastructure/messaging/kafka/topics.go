package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/lexforge/TermForge-Intelligence/internal/config"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
)

// Topic names. Document topics carry ingestion lifecycle events; glossary
// topics carry entry mutations so downstream caches and indexes can react.
const (
	TopicDocumentUploaded   = "document.uploaded"
	TopicDocumentProcessed  = "document.processed"
	TopicDocumentFailed     = "document.failed"
	TopicGlossaryCreated    = "glossary.entry.created"
	TopicGlossaryMerged     = "glossary.entry.merged"
	TopicDeadLetterDefault  = "dead_letter.default"
	TopicDeadLetterDocument = "dead_letter.documents"
)

// EventEnvelope standardizes event messages on the wire.
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

// ─────────────────────────────────────────────────────────────────────────────
// Event payloads
// ─────────────────────────────────────────────────────────────────────────────

type DocumentUploadedPayload struct {
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Language    string    `json:"language"`
	SizeBytes   int64     `json:"size_bytes"`
	ObjectKey   string    `json:"object_key"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type DocumentProcessedPayload struct {
	DocumentID    string    `json:"document_id"`
	Language      string    `json:"language"`
	PageCount     int       `json:"page_count"`
	TermsAccepted int       `json:"terms_accepted"`
	ProcessedAt   time.Time `json:"processed_at"`
}

type DocumentFailedPayload struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}

type GlossaryEntryCreatedPayload struct {
	Term       string    `json:"term"`
	Language   string    `json:"language"`
	Method     string    `json:"method"`
	Confidence float64   `json:"confidence"`
	DocumentID string    `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type GlossaryEntryMergedPayload struct {
	Term       string    `json:"term"`
	Language   string    `json:"language"`
	Frequency  int       `json:"frequency"`
	DocumentID string    `json:"document_id"`
	MergedAt   time.Time `json:"merged_at"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Envelope helpers
// ─────────────────────────────────────────────────────────────────────────────

// NewEventEnvelope wraps a payload in a versioned envelope with a fresh event ID.
func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
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

// DecodePayload unmarshals the envelope payload into target. A missing
// payload is not an error; target is left untouched.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage serializes the envelope into a producer message for topic. The
// event type and source travel as headers so consumers can route without
// decoding the body.
func (e *EventEnvelope) ToMessage(topic string) (*common.ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &common.ProducerMessage{
		Topic:     topic,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope decodes a consumed message back into an envelope.
func MessageToEventEnvelope(msg *common.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topic management
// ─────────────────────────────────────────────────────────────────────────────

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	DeleteTopics(topics ...string) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates and inspects Kafka topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to dial kafka")
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// NewTopicManagerWithConn builds a TopicManager around an existing
// connection. Used by tests.
func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	return &TopicManager{conn: conn, logger: logger}
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg common.TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
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
		// The broker races topic auto-creation with us; existing is fine.
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create topic")
	}
	m.logger.Info("topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) DeleteTopic(ctx context.Context, name string) error {
	if err := m.conn.DeleteTopics(name); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to delete topic")
	}
	m.logger.Warn("topic deleted", logging.String("topic", name))
	return nil
}

func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

func (m *TopicManager) ListTopics(ctx context.Context) ([]string, error) {
	partitions, err := m.conn.ReadPartitions()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to read partitions")
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

func (m *TopicManager) EnsureTopics(ctx context.Context, topics []common.TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDefaultTopics creates every platform topic using the partition and
// replication settings from cfg.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context, cfg config.KafkaConfig) error {
	return m.EnsureTopics(ctx, DefaultTopics(cfg))
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// DefaultTopics returns the topic set the platform expects. Document and
// glossary streams keep a week of history; dead letters are kept a month for
// manual replay.
func DefaultTopics(cfg config.KafkaConfig) []common.TopicConfig {
	partitions := cfg.NumPartitions
	if partitions <= 0 {
		partitions = 3
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}

	const (
		week  = 7 * 24 * 3600 * 1000
		month = 30 * 24 * 3600 * 1000
	)
	return []common.TopicConfig{
		{Name: TopicDocumentUploaded, NumPartitions: partitions, ReplicationFactor: replication, RetentionMs: week},
		{Name: TopicDocumentProcessed, NumPartitions: partitions, ReplicationFactor: replication, RetentionMs: week},
		{Name: TopicDocumentFailed, NumPartitions: partitions, ReplicationFactor: replication, RetentionMs: month},
		{Name: TopicGlossaryCreated, NumPartitions: partitions, ReplicationFactor: replication, RetentionMs: week},
		{Name: TopicGlossaryMerged, NumPartitions: partitions, ReplicationFactor: replication, RetentionMs: week},
		{Name: TopicDeadLetterDefault, NumPartitions: 1, ReplicationFactor: replication, RetentionMs: month},
		{Name: TopicDeadLetterDocument, NumPartitions: 1, ReplicationFactor: replication, RetentionMs: month},
	}
}
