package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/db/models"
	"github.com/artfolio/storefront-backend/pkg/enums"
	"github.com/artfolio/storefront-backend/pkg/outbox"
	"github.com/artfolio/storefront-backend/pkg/outbox/payloads"
)

// EventDescriptor is the routing and schema for one event type.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent carries the decoded envelope and a pointer to the typed
// payload produced by the descriptor's factory.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry is shared by the publisher, which routes rows by it, and the
// consumers, which decode deliveries with it.
type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row or message that can never succeed, so it
// goes straight to the dead-letter table instead of being retried.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.NotificationTopic == "" {
		return nil, errors.New("notification topic is required")
	}
	r := &EventRegistry{byType: map[enums.OutboxEventType]EventDescriptor{}}
	r.add(EventDescriptor{
		EventType:      enums.EventOrderConfirmed,
		AggregateType:  enums.AggregateOrder,
		Topic:          cfg.NotificationTopic,
		PayloadFactory: func() any { return new(payloads.OrderConfirmedEvent) },
	})
	return r, nil
}

func (r *EventRegistry) add(d EventDescriptor) {
	if d.PayloadFactory != nil {
		r.byType[d.EventType] = d
	}
}

// Topics returns the distinct destination topics, sorted.
func (r *EventRegistry) Topics() []string {
	set := map[string]struct{}{}
	for _, d := range r.byType {
		set[d.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

func (r *EventRegistry) lookup(eventType enums.OutboxEventType) (EventDescriptor, error) {
	d, ok := r.byType[eventType]
	if !ok {
		return EventDescriptor{}, permanent("unsupported event type %q", eventType)
	}
	return d, nil
}

// Resolve checks an outbox row against its descriptor before decoding it.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	d, err := r.lookup(event.EventType)
	if err != nil {
		return nil, err
	}
	switch {
	case d.AggregateType != event.AggregateType:
		return nil, permanent("aggregate mismatch: expected %s got %s", d.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("missing aggregate_id")
	}
	return d.decode(event.Payload)
}

// DecodeMessage decodes a delivered message body; eventType comes from the
// message attributes.
func (r *EventRegistry) DecodeMessage(eventType string, body []byte) (*ResolvedEvent, error) {
	d, err := r.lookup(enums.OutboxEventType(eventType))
	if err != nil {
		return nil, err
	}
	return d.decode(body)
}

func (d EventDescriptor) decode(body []byte) (*ResolvedEvent, error) {
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if _, err := uuid.Parse(env.EventID); err != nil {
		return nil, permanent("invalid event id %q", env.EventID)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || string(data) == "null" {
		return nil, permanent("payload missing for %s", d.EventType)
	}

	payload := d.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, permanent("decode %s payload: %w", d.EventType, err)
	}
	return &ResolvedEvent{Descriptor: d, Envelope: env, Payload: payload}, nil
}
