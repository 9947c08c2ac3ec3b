package enums

import "slices"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateNotification OutboxAggregateType = "notification"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateNotification}

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(aggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseValue(value, aggregateTypes, "aggregate type")
}

// OutboxEventType doubles as the pub/sub routing attribute.
type OutboxEventType string

const (
	EventOrderConfirmed OutboxEventType = "order_confirmed"
)

var eventTypes = []OutboxEventType{EventOrderConfirmed}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(eventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseValue(value, eventTypes, "event type")
}

// OutboxDLQErrorReason records why a row was moved to the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
