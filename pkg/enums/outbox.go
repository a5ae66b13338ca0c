package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateRequest     OutboxAggregateType = "request"
	AggregateChatMessage OutboxAggregateType = "chat_message"
	AggregateUser        OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateRequest,
	AggregateChatMessage,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order_placed"
	EventOrderApproved      OutboxEventType = "order_approved"
	EventRequestSubmitted   OutboxEventType = "request_submitted"
	EventRequestApproved    OutboxEventType = "request_approved"
	EventChatMessageCreated OutboxEventType = "chat_message_created"
	EventUserRegistered     OutboxEventType = "user_registered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderApproved,
	EventRequestSubmitted,
	EventRequestApproved,
	EventChatMessageCreated,
	EventUserRegistered,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
