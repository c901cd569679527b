package order

import (
	"context"

	"github.com/go-faster/errors"
)

// StatusService applies fulfillment-status changes and the independent
// completed flag to existing orders. All coordination between concurrent
// writers is delegated to the repository's row locking; a second writer
// racing the same target status observes the already-updated row and takes
// the silent no-op path.
type StatusService struct {
	orders   Repository
	notifier Notifier
}

// NewStatusService creates a StatusService.
func NewStatusService(orders Repository, notifier Notifier) *StatusService {
	return &StatusService{orders: orders, notifier: notifier}
}

// Transition moves an order to newStatus, recording exactly one audit entry.
//
// A completed order rejects the edit with *FrozenError. Requesting the
// current status is a silent no-op: nothing is written and nobody is
// notified. Otherwise the status update and the audit entry commit in one
// transaction, and the notifier is invoked only after that commit.
func (s *StatusService) Transition(ctx context.Context, orderID string, newStatus Status, actor string) (*StatusChange, error) {
	if _, err := ParseStatus(string(newStatus)); err != nil {
		return nil, err
	}

	var changedBy *string
	if actor != "" {
		changedBy = &actor
	}

	change, err := s.orders.UpdateStatus(ctx, orderID, func(o *Order) (*Decision, error) {
		if o.Completed {
			return nil, &FrozenError{OrderID: o.ID}
		}
		if o.Status == newStatus {
			return nil, nil
		}
		if err := ValidateTransition(o.Status, newStatus); err != nil {
			return nil, err
		}
		return &Decision{NewStatus: newStatus, Actor: changedBy}, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	if !change.NoOp {
		s.notifier.StatusChanged(ctx, *change.Order, change.Previous, change.New)
	}
	return change, nil
}

// SetCompleted toggles the completion flag. The flag is independent of the
// status axis: it writes no audit entry, sends no notification, and setting
// it to its current value is a permitted no-op.
func (s *StatusService) SetCompleted(ctx context.Context, orderID string, completed bool) (*Order, error) {
	o, err := s.orders.SetCompleted(ctx, orderID, completed)
	if err != nil {
		return nil, errors.Wrap(err, "set completed")
	}
	return o, nil
}
