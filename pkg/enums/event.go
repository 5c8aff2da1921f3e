package enums

import "fmt"

// EventType classifies buyer-initiated product events.
type EventType string

const (
	EventTypePurchaseIntent EventType = "purchase_intent"
)

// EventStatus is the state of a product event: pending, then resolved or discarded.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusResolved  EventStatus = "resolved"
	EventStatusDiscarded EventStatus = "discarded"
)

var validEventStatuses = []EventStatus{
	EventStatusPending,
	EventStatusResolved,
	EventStatusDiscarded,
}

// String implements fmt.Stringer.
func (s EventStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s EventStatus) IsValid() bool {
	for _, candidate := range validEventStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusResolved || s == EventStatusDiscarded
}

// ParseEventStatus converts raw input into an EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	for _, candidate := range validEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event status %q", value)
}
