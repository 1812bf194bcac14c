package publisher

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

type Repository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error
}

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller relays committed outbox rows to Kafka. Delivery is at least
// once: an event is marked processed only after the broker accepted it.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int
	repo      Repository
	writer    MessageWriter
	breaker   *gobreaker.CircuitBreaker[struct{}]
	log       *zap.Logger
}

func NewOutboxPoller(repo Repository, log *zap.Logger, topic string, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           10 * time.Second,
	}
	return newPoller(repo, w, log)
}

func newPoller(repo Repository, writer MessageWriter, log *zap.Logger) *OutboxPoller {
	return &OutboxPoller{
		eventTick: time.Second,
		batchSize: defaultBatchSize,
		repo:      repo,
		writer:    writer,
		breaker:   circuitbreaker.New[struct{}](circuitbreaker.DefaultConfig("outbox-kafka"), log),
		log:       log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

// processUnpublishedEvents publishes one batch in creation order. The batch
// stops at the first failed publish so later events of the same order are
// never delivered ahead of earlier ones.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			if circuitbreaker.IsOpen(err) {
				p.log.Debug("kafka circuit open, postponing outbox batch")
			} else {
				p.log.Error("failed to publish outbox event",
					zap.String("event_id", event.ID),
					zap.String("event_type", event.EventType),
					zap.Error(err))
			}
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error("failed to mark outbox event as processed",
				zap.String("event_id", event.ID),
				zap.Error(err))
			return
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
		Time: event.CreatedAt,
	}
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	return err
}
