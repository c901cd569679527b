package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bloomhaus/orderflow/internal/domain/order"
)

// CommitService converts a staged draft plus the customer's current line
// items into a persisted order in one atomic step.
type CommitService struct {
	staging  StagingStore
	items    LineItemSource
	orders   order.Repository
	notifier order.Notifier
}

// NewCommitService creates a CommitService with the required collaborators.
func NewCommitService(
	staging StagingStore,
	items LineItemSource,
	orders order.Repository,
	notifier order.Notifier,
) *CommitService {
	return &CommitService{
		staging:  staging,
		items:    items,
		orders:   orders,
		notifier: notifier,
	}
}

// Stage validates and stores a draft for the customer, overwriting any
// previous one.
func (s *CommitService) Stage(customerID string, d Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.staging.Put(customerID, d)
	return nil
}

// Draft returns the customer's current staged draft, if any.
func (s *CommitService) Draft(customerID string) (Draft, bool) {
	return s.staging.Get(customerID)
}

// Abandon discards the customer's staged draft without committing.
func (s *CommitService) Abandon(customerID string) {
	s.staging.Clear(customerID)
}

// Commit turns the customer's draft and current line items into a durable
// order. The order and its items are created in one transaction; an order
// with zero items is never observable. Only after that transaction commits
// are the cart and the draft cleared and the creation event dispatched, so
// a failed commit leaves everything in place for a retry. Re-committing
// after success fails with ErrNoDraft because the draft is gone.
func (s *CommitService) Commit(ctx context.Context, customerID string) (*order.Order, error) {
	draft, ok := s.staging.Get(customerID)
	if !ok {
		return nil, ErrNoDraft
	}

	lines, err := s.items.ListCurrentItems(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list line items")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	items := make([]order.Item, len(lines))
	for i, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		total = total.Add(line.UnitPrice.Mul(qty))
		items[i] = order.Item{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.UnitPrice,
		}
	}

	o := &order.Order{
		ID:              uuid.New().String(),
		CustomerID:      customerID,
		Status:          order.StatusPending,
		DeliveryAddress: draft.DeliveryAddress,
		ContactPhone:    draft.ContactPhone,
		DeliveryDate:    draft.DeliveryDate,
		DeliveryTime:    draft.DeliveryTime,
		Note:            draft.Note,
		EmailEnabled:    draft.EmailEnabled,
		ChatEnabled:     draft.ChatEnabled,
		TotalPrice:      total.Round(2),
		Items:           items,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The order is durable from here on. Cleanup failures must not turn a
	// committed order into a reported failure.
	if err := s.items.Clear(ctx, customerID); err != nil {
		zctx.From(ctx).Warn("clearing line items after commit",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
	s.staging.Clear(customerID)

	s.notifier.OrderCreated(ctx, *o)
	return o, nil
}
