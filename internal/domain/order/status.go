// Package order holds the order aggregate, its fulfillment status machine
// and the audit trail of accepted transitions.
package order

import "fmt"

// Status is an order's position on the fulfillment chain.
type Status string

// The fulfillment chain runs pending -> processing -> in_transit ->
// delivered. Cancelled is reachable from any non-terminal status.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusInTransit  Status = "in_transit"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// statusRank orders the forward chain. Cancelled sits outside the chain and
// is handled separately.
var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusInTransit:  2,
	StatusDelivered:  3,
}

// InvalidStatusError reports a status string outside the known set.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Value)
}

// InvalidTransitionError reports a rejected edge on the status machine.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusProcessing, StatusInTransit, StatusDelivered, StatusCancelled:
		return s, nil
	default:
		return "", &InvalidStatusError{Value: raw}
	}
}

// Terminal reports whether no further transitions leave this status.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ValidateTransition checks the from -> to edge. Terminal statuses accept
// nothing. Cancellation is reachable from any non-terminal status. On the
// forward chain any move to a later position is allowed, including skipping
// intermediate statuses; moving backward is not.
func ValidateTransition(from, to Status) error {
	if from.Terminal() {
		return &InvalidTransitionError{From: from, To: to}
	}
	if to == StatusCancelled {
		return nil
	}
	if statusRank[to] > statusRank[from] {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to}
}
