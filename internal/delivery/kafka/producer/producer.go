package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	kafka "github.com/edulab/turnqueue/internal/delivery/kafka"
	"github.com/edulab/turnqueue/internal/domain"
	"github.com/edulab/turnqueue/pkg/logger"
)

// Producer publishes queue lifecycle events. Publishing is best-effort: the
// service logs failures and carries on.
type Producer interface {
	PublishQueueCreated(ctx context.Context, event kafka.QueueCreatedEvent) error
	PublishParticipantEnqueued(ctx context.Context, event kafka.ParticipantEnqueuedEvent) error
	PublishParticipantTaken(ctx context.Context, event kafka.ParticipantTakenEvent) error
	PublishParticipantPutBack(ctx context.Context, event kafka.ParticipantPutBackEvent) error
	PublishQuestionAsked(ctx context.Context, event kafka.QuestionAskedEvent) error
	PublishQuestionAnswered(ctx context.Context, event kafka.QuestionAnsweredEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) publish(ctx context.Context, topic string, key domain.QueueKey, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.publish %s: %v", topic, err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		// Partition by queue key for per-channel ordering
		Key:   sarama.StringEncoder(key.String()),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	_, _, err = p.prod.SendMessage(msg)
	return err
}

func (p *implProducer) PublishQueueCreated(ctx context.Context, event kafka.QueueCreatedEvent) error {
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicQueueCreated, event.Queue, event)
}

func (p *implProducer) PublishParticipantEnqueued(ctx context.Context, event kafka.ParticipantEnqueuedEvent) error {
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicParticipantEnqueued, event.Queue, event)
}

func (p *implProducer) PublishParticipantTaken(ctx context.Context, event kafka.ParticipantTakenEvent) error {
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicParticipantTaken, event.Queue, event)
}

func (p *implProducer) PublishParticipantPutBack(ctx context.Context, event kafka.ParticipantPutBackEvent) error {
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicParticipantPutBack, event.Queue, event)
}

func (p *implProducer) PublishQuestionAsked(ctx context.Context, event kafka.QuestionAskedEvent) error {
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicQuestionAsked, event.Queue, event)
}

func (p *implProducer) PublishQuestionAnswered(ctx context.Context, event kafka.QuestionAnsweredEvent) error {
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicQuestionAnswered, event.Queue, event)
}

func (p *implProducer) Close() error {
	if err := p.prod.Close(); err != nil {
		return err
	}

	return nil
}
