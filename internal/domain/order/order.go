package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the durable record of a committed purchase. Delivery fields and
// notification preferences are captured at commit time and never change;
// TotalPrice is fixed at commit and never recomputed, so later catalog price
// changes do not rewrite history.
type Order struct {
	ID              string
	CustomerID      string
	Status          Status
	Completed       bool
	DeliveryAddress string
	ContactPhone    string
	DeliveryDate    time.Time
	DeliveryTime    string
	Note            string
	EmailEnabled    bool
	ChatEnabled     bool
	TotalPrice      decimal.Decimal
	Items           []Item
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is one purchased line, owned by its order. PriceAtPurchase is a
// snapshot of the unit price at commit time.
type Item struct {
	ID              int64
	OrderID         string
	ProductID       string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// AuditEntry is one immutable record of an accepted status transition.
// ChangedBy is nil when the acting user has since been removed.
type AuditEntry struct {
	ID             int64
	OrderID        string
	PreviousStatus Status
	NewStatus      Status
	ChangedBy      *string
	ChangedAt      time.Time
}

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	Status    *Status
	Completed *bool
}

// ErrNotFound is returned when an order id does not exist.
var ErrNotFound = fmt.Errorf("order not found")

// FrozenError indicates a status edit was rejected because the order's
// completed flag is set.
type FrozenError struct {
	OrderID string
}

func (e *FrozenError) Error() string {
	return fmt.Sprintf("order %s is completed and frozen for status edits", e.OrderID)
}

// Decision is the outcome of inspecting an order under lock: the status to
// move to and the actor to record in the audit trail.
type Decision struct {
	NewStatus Status
	Actor     *string
}

// StatusChange describes what a transition attempt did. NoOp is true when
// the requested status equalled the current one and nothing was written.
type StatusChange struct {
	Order    *Order
	Previous Status
	New      Status
	NoOp     bool
}

// Repository defines persistence operations for orders and their audit trail.
//
// UpdateStatus must load the order row under a row-level lock, pass it to
// decide, and when decide returns a non-nil Decision persist the status
// change together with exactly one audit entry in the same transaction.
// A nil Decision commits nothing and reports a no-op. An error from decide
// aborts the transaction untouched.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	History(ctx context.Context, orderID string) ([]AuditEntry, error)
	UpdateStatus(ctx context.Context, orderID string, decide func(*Order) (*Decision, error)) (*StatusChange, error)
	SetCompleted(ctx context.Context, orderID string, completed bool) (*Order, error)
}

// Notifier receives order lifecycle events after the triggering transaction
// has committed. Implementations must not block the caller on slow channels
// and must never report delivery failure back through this interface.
type Notifier interface {
	OrderCreated(ctx context.Context, o Order)
	StatusChanged(ctx context.Context, o Order, previous, next Status)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) OrderCreated(context.Context, Order)                  {}
func (NopNotifier) StatusChanged(context.Context, Order, Status, Status) {}
