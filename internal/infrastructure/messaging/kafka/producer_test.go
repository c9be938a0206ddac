package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	"github.com/lexforge/TermForge-Intelligence/internal/config"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func newTestProducerMessage(topic, key, value string) *common.ProducerMessage {
	return &common.ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: []byte(value),
	}
}

func newTestProducer(w WriterInterface) *Producer {
	return NewProducerWithWriter(w, ProducerConfig{Brokers: []string{"localhost:9092"}}, logging.NewNopLogger())
}

func TestValidateProducerConfig_Valid(t *testing.T) {
	err := ValidateProducerConfig(ProducerConfig{Brokers: []string{"localhost:9092"}})
	assert.NoError(t, err)
}

func TestValidateProducerConfig_EmptyBrokers(t *testing.T) {
	err := ValidateProducerConfig(ProducerConfig{})
	assert.Error(t, err)
}

func TestProducerConfigFromApp(t *testing.T) {
	pc := ProducerConfigFromApp(config.KafkaConfig{
		Brokers:         []string{"broker-1:9092", "broker-2:9092"},
		ProducerRetries: 5,
		BatchSize:       200,
		TimeoutMS:       2500,
	})
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, pc.Brokers)
	assert.Equal(t, "all", pc.Acks)
	assert.Equal(t, 5, pc.MaxRetries)
	assert.Equal(t, 200, pc.BatchSize)
	assert.Equal(t, 2500*time.Millisecond, pc.WriteTimeout)
}

func TestPublish_Success(t *testing.T) {
	var captured []kafka.Message
	mock := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	}
	p := newTestProducer(mock)

	err := p.Publish(context.Background(), newTestProducerMessage(TopicDocumentUploaded, "doc-1", `{"x":1}`))
	assert.NoError(t, err)
	assert.Len(t, captured, 1)
	assert.Equal(t, TopicDocumentUploaded, captured[0].Topic)
	assert.Equal(t, "doc-1", string(captured[0].Key))
	assert.Equal(t, `{"x":1}`, string(captured[0].Value))
	assert.Equal(t, int64(1), p.metrics.MessagesSent.Load())
}

func TestPublish_ValidatesMessage(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})

	err := p.Publish(context.Background(), &common.ProducerMessage{Value: []byte("v")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	err = p.Publish(context.Background(), &common.ProducerMessage{Topic: "t"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestPublish_WriteFailure(t *testing.T) {
	mock := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("broker unreachable")
		},
	}
	p := newTestProducer(mock)

	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExternalService))
	assert.Equal(t, int64(1), p.metrics.MessagesFailed.Load())
}

func TestPublish_AfterClose(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	assert.NoError(t, p.Close())

	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestPublishEvent_WrapsEnvelope(t *testing.T) {
	var captured []kafka.Message
	mock := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			captured = msgs
			return nil
		},
	}
	p := newTestProducer(mock)

	payload := DocumentUploadedPayload{DocumentID: "doc-9", Filename: "manual.pdf"}
	err := p.PublishEvent(context.Background(), TopicDocumentUploaded, "document.uploaded", "doc-9", payload)
	assert.NoError(t, err)
	assert.Len(t, captured, 1)
	assert.Equal(t, "doc-9", string(captured[0].Key))

	env, err := MessageToEventEnvelope(&common.Message{Value: captured[0].Value})
	assert.NoError(t, err)
	assert.Equal(t, "document.uploaded", env.EventType)
	assert.Equal(t, "termforge", env.Source)

	var decoded DocumentUploadedPayload
	assert.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, "manual.pdf", decoded.Filename)
}

func TestPublishBatch_PartialFailure(t *testing.T) {
	mock := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			errs := make(kafka.WriteErrors, len(msgs))
			errs[1] = errors.New("partition offline")
			return errs
		},
	}
	p := newTestProducer(mock)

	res, err := p.PublishBatch(context.Background(), []*common.ProducerMessage{
		newTestProducerMessage("t", "1", "1"),
		newTestProducerMessage("t", "2", "2"),
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
}

func TestPublishAsync_RoutesErrorsToHandler(t *testing.T) {
	mock := &mockKafkaWriter{
		writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("write failed")
		},
	}
	failed := make(chan error, 1)
	p := NewProducerWithWriter(mock, ProducerConfig{
		Brokers: []string{"localhost:9092"},
		AsyncErrorHandler: func(err error, msg *common.ProducerMessage) {
			failed <- err
		},
	}, logging.NewNopLogger())

	p.PublishAsync(context.Background(), newTestProducerMessage("t", "k", "v"))

	select {
	case err := <-failed:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async error handler")
	}
}

func TestProducerClose_Idempotent(t *testing.T) {
	closes := 0
	mock := &mockKafkaWriter{
		closeFunc: func() error {
			closes++
			return nil
		},
	}
	p := newTestProducer(mock)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, closes)
}
