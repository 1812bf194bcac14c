package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CartCleanup drops the session cart of every placed order. Checkout already
// clears the cart after commit; this covers the case where that clear failed.
// Carts touched after the order was placed belong to a new shopping trip and
// are kept.
type CartCleanup struct {
	reader MessageReader
	store  cart.SessionStore
	log    *zap.Logger

	retryBase time.Duration
	retryMax  time.Duration
}

func NewCartCleanup(store cart.SessionStore, log *zap.Logger, topic string, brokers ...string) *CartCleanup {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "storefront-cart-cleanup",
		MaxBytes: 10e6, // 10MB
	})
	return newCartCleanup(reader, store, log)
}

func newCartCleanup(reader MessageReader, store cart.SessionStore, log *zap.Logger) *CartCleanup {
	return &CartCleanup{
		reader:    reader,
		store:     store,
		log:       log,
		retryBase: 500 * time.Millisecond,
		retryMax:  30 * time.Second,
	}
}

func (c *CartCleanup) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Error("failed to fetch message", zap.Error(err))
				time.Sleep(time.Second)
			}
			continue
		}
		// Committing a later offset acknowledges this one too, so the
		// message is retried in place until it succeeds.
		if !c.handleWithRetry(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("failed to commit message", zap.Error(err))
		}
	}
}

// handleWithRetry reports false when ctx ended before msg was handled.
func (c *CartCleanup) handleWithRetry(ctx context.Context, msg kafka.Message) bool {
	delay := c.retryBase
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, msg)
		if err == nil {
			return true
		}
		c.log.Error("failed to clean up cart",
			zap.String("order_number", string(msg.Key)),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay = min(delay*2, c.retryMax)
	}
}

func (c *CartCleanup) Close() error {
	return c.reader.Close()
}

func eventType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

// handle returns an error only for failures worth redelivering.
func (c *CartCleanup) handle(ctx context.Context, msg kafka.Message) error {
	if eventType(msg) != domain.EventOrderPlaced {
		return nil
	}

	var payload domain.OrderPlacedPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		c.log.Warn("skipping malformed order.placed payload", zap.Error(err))
		return nil
	}
	if payload.SessionID == "" {
		return nil
	}

	existing, err := c.store.Load(ctx, payload.SessionID)
	if errors.Is(err, cart.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if existing.UpdatedAt.After(payload.PlacedAt) {
		return nil
	}

	if err := c.store.Delete(ctx, payload.SessionID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	c.log.Info("cleared cart of placed order",
		zap.String("order_number", payload.OrderNumber),
		zap.String("session_id", payload.SessionID))
	return nil
}
