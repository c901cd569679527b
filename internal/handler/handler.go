// Package handler exposes the checkout, order and analytics operations over
// JSON HTTP. Handlers decode and validate the wire shapes, delegate to the
// domain services, and map domain errors onto response codes.
package handler

import (
	"context"
	"net/http"

	"github.com/bloomhaus/orderflow/internal/analytics"
	"github.com/bloomhaus/orderflow/internal/domain/checkout"
	"github.com/bloomhaus/orderflow/internal/domain/order"
)

// CheckoutService is the checkout surface the handler depends on.
type CheckoutService interface {
	Stage(customerID string, d checkout.Draft) error
	Draft(customerID string) (checkout.Draft, bool)
	Abandon(customerID string)
	Commit(ctx context.Context, customerID string) (*order.Order, error)
}

// StatusService applies status and completion changes to orders.
type StatusService interface {
	Transition(ctx context.Context, orderID string, newStatus order.Status, actor string) (*order.StatusChange, error)
	SetCompleted(ctx context.Context, orderID string, completed bool) (*order.Order, error)
}

// OrderReader is the read-only slice of the order repository used by the
// listing and history endpoints.
type OrderReader interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
	History(ctx context.Context, orderID string) ([]order.AuditEntry, error)
}

// AnalyticsClient queries the external sales-aggregation service.
type AnalyticsClient interface {
	SalesData(ctx context.Context, q analytics.Query) ([]analytics.SalesRow, error)
}

// Handler holds the dependencies behind the HTTP surface.
type Handler struct {
	checkout  CheckoutService
	status    StatusService
	orders    OrderReader
	analytics AnalyticsClient
	security  *Security
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	checkoutSvc CheckoutService,
	statusSvc StatusService,
	orders OrderReader,
	analyticsClient AnalyticsClient,
	security *Security,
) *Handler {
	return &Handler{
		checkout:  checkoutSvc,
		status:    statusSvc,
		orders:    orders,
		analytics: analyticsClient,
		security:  security,
	}
}

// Routes returns the request multiplexer for the API surface. Status edits,
// completion toggles, listing and analytics require an admin-scoped API key.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/checkout/draft", h.stageDraft)
	mux.HandleFunc("GET /api/checkout/draft", h.getDraft)
	mux.HandleFunc("DELETE /api/checkout/draft", h.abandonDraft)
	mux.HandleFunc("POST /api/checkout/confirm", h.confirmCheckout)

	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /api/orders/{id}/history", h.getHistory)

	admin := h.security.RequireAdmin
	mux.Handle("GET /api/orders", admin(http.HandlerFunc(h.listOrders)))
	mux.Handle("POST /api/orders/{id}/status", admin(http.HandlerFunc(h.changeStatus)))
	mux.Handle("POST /api/orders/{id}/completed", admin(http.HandlerFunc(h.setCompleted)))
	mux.Handle("GET /api/analytics/sales", admin(http.HandlerFunc(h.salesAnalytics)))

	return mux
}
