package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bloomhaus/orderflow/internal/domain/order"
)

type orderItemResponse struct {
	ProductID       string `json:"product_id"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	CustomerID      string              `json:"customer_id"`
	Status          string              `json:"status"`
	Completed       bool                `json:"completed"`
	DeliveryAddress string              `json:"delivery_address"`
	ContactPhone    string              `json:"contact_phone"`
	DeliveryDate    string              `json:"delivery_date"`
	DeliveryTime    string              `json:"delivery_time"`
	Note            string              `json:"note,omitempty"`
	EmailEnabled    bool                `json:"email_enabled"`
	ChatEnabled     bool                `json:"chat_enabled"`
	TotalPrice      string              `json:"total_price"`
	Items           []orderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type auditEntryResponse struct {
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ChangedBy      *string   `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type changeStatusResponse struct {
	OrderID        string `json:"order_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Changed        bool   `json:"changed"`
}

type setCompletedRequest struct {
	Completed bool `json:"completed"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var f order.Filter
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := order.ParseStatus(raw)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		f.Status = &s
	}
	if raw := r.URL.Query().Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "completed must be a boolean")
			return
		}
		f.Completed = &completed
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(*o))
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.orders.Get(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	entries, err := h.orders.History(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = auditEntryResponse{
			PreviousStatus: string(e.PreviousStatus),
			NewStatus:      string(e.NewStatus),
			ChangedBy:      e.ChangedBy,
			ChangedAt:      e.ChangedAt,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	change, err := h.status.Transition(r.Context(), r.PathValue("id"), order.Status(req.Status), actorFrom(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, changeStatusResponse{
		OrderID:        change.Order.ID,
		PreviousStatus: string(change.Previous),
		NewStatus:      string(change.New),
		Changed:        !change.NoOp,
	})
}

func (h *Handler) setCompleted(w http.ResponseWriter, r *http.Request) {
	var req setCompletedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.status.SetCompleted(r.Context(), r.PathValue("id"), req.Completed)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(*o))
}

func toOrderResponse(o order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase.StringFixed(2),
		}
	}
	return orderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		Completed:       o.Completed,
		DeliveryAddress: o.DeliveryAddress,
		ContactPhone:    o.ContactPhone,
		DeliveryDate:    o.DeliveryDate.Format("2006-01-02"),
		DeliveryTime:    o.DeliveryTime,
		Note:            o.Note,
		EmailEnabled:    o.EmailEnabled,
		ChatEnabled:     o.ChatEnabled,
		TotalPrice:      o.TotalPrice.StringFixed(2),
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
