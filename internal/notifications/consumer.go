package notifications

import (
	"context"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/artfolio/storefront-backend/pkg/enums"
	pkgerrors "github.com/artfolio/storefront-backend/pkg/errors"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/metrics"
	"github.com/artfolio/storefront-backend/pkg/outbox/payloads"
	"github.com/artfolio/storefront-backend/pkg/outbox/registry"
	"github.com/google/uuid"
)

const orderEmailConsumer = "order-confirmation-email"

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Complete(ctx context.Context, consumer string, eventID uuid.UUID) error
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type messageDecoder interface {
	DecodeMessage(eventType string, body []byte) (*registry.ResolvedEvent, error)
}

// Consumer turns order_confirmed events into confirmation e-mails.
type Consumer struct {
	subscription *pubsub.Subscriber
	decoder      messageDecoder
	idempotency  claimer
	sender       EmailSender
	metrics      *metrics.PipelineMetrics
	logg         *logger.Logger
}

// NewConsumer builds the order e-mail consumer.
func NewConsumer(subscription *pubsub.Subscriber, decoder messageDecoder, manager claimer, sender EmailSender, m *metrics.PipelineMetrics, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if decoder == nil {
		return nil, fmt.Errorf("event decoder required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		decoder:      decoder,
		idempotency:  manager,
		sender:       sender,
		metrics:      m,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack bool
}

var (
	ack  = processResult{}
	nack = processResult{nack: true}
)

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) processResult {
	eventType := attrs["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderConfirmed) {
		c.logg.Info(logCtx, "notifications.consumer.skip")
		return ack
	}

	resolved, err := c.decoder.DecodeMessage(eventType, data)
	if err != nil {
		c.logg.Error(logCtx, "notifications.consumer.decode_failed", err)
		c.metrics.IncEmail(metrics.EmailDropped)
		return ack
	}
	event, ok := resolved.Payload.(*payloads.OrderConfirmedEvent)
	if !ok {
		c.logg.Error(logCtx, "notifications.consumer.decode_failed", fmt.Errorf("unexpected payload %T", resolved.Payload))
		c.metrics.IncEmail(metrics.EmailDropped)
		return ack
	}
	eventID := uuid.MustParse(resolved.Envelope.EventID)
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id": eventID.String(),
		"order_id": event.OrderID.String(),
	})

	claimed, err := c.idempotency.Claim(ctx, orderEmailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "notifications.consumer.idempotency_failed", err)
		return nack
	}
	if !claimed {
		c.logg.Info(logCtx, "notifications.consumer.duplicate")
		c.metrics.IncEmail(metrics.EmailDuplicate)
		return ack
	}

	if strings.TrimSpace(event.CustomerEmail) == "" {
		c.logg.Warn(logCtx, "notifications.consumer.no_recipient")
		c.finish(ctx, logCtx, eventID)
		c.metrics.IncEmail(metrics.EmailDropped)
		return ack
	}

	msg, err := RenderOrderConfirmed(*event)
	if err == nil {
		err = c.sender.Send(ctx, msg)
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			c.logg.Error(logCtx, "notifications.email.rejected", err)
			c.finish(ctx, logCtx, eventID)
			c.metrics.IncEmail(metrics.EmailDropped)
			return ack
		}
		c.logg.Error(logCtx, "notifications.email.failed", err)
		if relErr := c.idempotency.Release(ctx, orderEmailConsumer, eventID); relErr != nil {
			c.logg.Warn(logCtx, "notifications.consumer.release_failed")
		}
		c.metrics.IncEmail(metrics.EmailFailed)
		return nack
	}

	c.finish(ctx, logCtx, eventID)
	c.metrics.IncEmail(metrics.EmailSent)
	c.logg.Info(logCtx, "notifications.email.sent")
	return ack
}

func (c *Consumer) finish(ctx, logCtx context.Context, eventID uuid.UUID) {
	if err := c.idempotency.Complete(ctx, orderEmailConsumer, eventID); err != nil {
		c.logg.Error(logCtx, "notifications.consumer.complete_failed", err)
	}
}
