// Package checkout implements the two-phase checkout: a transient staged
// draft per customer, followed by an atomic commit that turns the draft and
// the customer's current cart lines into a durable order.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Draft holds the delivery fields and notification preferences a customer
// entered but has not yet confirmed. A draft has no identity beyond "the
// current draft for this customer" and is never persisted to order tables,
// so an abandoned checkout leaves zero durable rows.
type Draft struct {
	DeliveryAddress string
	ContactPhone    string
	DeliveryDate    time.Time
	DeliveryTime    string
	Note            string
	EmailEnabled    bool
	ChatEnabled     bool
}

// FieldError reports a structurally missing or malformed draft field.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("draft field %s is required", e.Field)
}

// Validate checks structural field presence. Anything beyond presence is the
// presentation layer's concern.
func (d Draft) Validate() error {
	if d.DeliveryAddress == "" {
		return &FieldError{Field: "delivery_address"}
	}
	if d.ContactPhone == "" {
		return &FieldError{Field: "contact_phone"}
	}
	if d.DeliveryDate.IsZero() {
		return &FieldError{Field: "delivery_date"}
	}
	if d.DeliveryTime == "" {
		return &FieldError{Field: "delivery_time"}
	}
	return nil
}

// StagingStore holds at most one draft per customer. Put overwrites any
// existing draft for that customer.
type StagingStore interface {
	Put(customerID string, d Draft)
	Get(customerID string) (Draft, bool)
	Clear(customerID string)
}

// LineItem is one cart line as reported by the line-item source, priced at
// the product's current unit price.
type LineItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineItemSource supplies the current cart contents for a customer. The
// engine consumes it and clears it after a successful commit but never owns
// the underlying storage.
type LineItemSource interface {
	ListCurrentItems(ctx context.Context, customerID string) ([]LineItem, error)
	Clear(ctx context.Context, customerID string) error
}

// Sentinel errors for commit preconditions.
var (
	ErrNoDraft   = fmt.Errorf("no staged checkout draft for customer")
	ErrEmptyCart = fmt.Errorf("cart has no line items")
)
