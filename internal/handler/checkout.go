package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bloomhaus/orderflow/internal/domain/checkout"
)

type draftRequest struct {
	CustomerID      string `json:"customer_id"`
	DeliveryAddress string `json:"delivery_address"`
	ContactPhone    string `json:"contact_phone"`
	DeliveryDate    string `json:"delivery_date"`
	DeliveryTime    string `json:"delivery_time"`
	Note            string `json:"note"`
	EmailEnabled    bool   `json:"email_enabled"`
	ChatEnabled     bool   `json:"chat_enabled"`
}

type draftResponse struct {
	DeliveryAddress string `json:"delivery_address"`
	ContactPhone    string `json:"contact_phone"`
	DeliveryDate    string `json:"delivery_date"`
	DeliveryTime    string `json:"delivery_time"`
	Note            string `json:"note,omitempty"`
	EmailEnabled    bool   `json:"email_enabled"`
	ChatEnabled     bool   `json:"chat_enabled"`
}

type confirmRequest struct {
	CustomerID string `json:"customer_id"`
}

func (h *Handler) stageDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" {
		respondError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	var deliveryDate time.Time
	if req.DeliveryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DeliveryDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "delivery_date must be YYYY-MM-DD")
			return
		}
		deliveryDate = parsed
	}

	d := checkout.Draft{
		DeliveryAddress: req.DeliveryAddress,
		ContactPhone:    req.ContactPhone,
		DeliveryDate:    deliveryDate,
		DeliveryTime:    req.DeliveryTime,
		Note:            req.Note,
		EmailEnabled:    req.EmailEnabled,
		ChatEnabled:     req.ChatEnabled,
	}
	if err := h.checkout.Stage(req.CustomerID, d); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toDraftResponse(d))
}

func (h *Handler) getDraft(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		respondError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	d, ok := h.checkout.Draft(customerID)
	if !ok {
		respondError(w, http.StatusNotFound, "no staged draft")
		return
	}
	respondJSON(w, http.StatusOK, toDraftResponse(d))
}

func (h *Handler) abandonDraft(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		respondError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	h.checkout.Abandon(customerID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" {
		respondError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	o, err := h.checkout.Commit(r.Context(), req.CustomerID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(*o))
}

func toDraftResponse(d checkout.Draft) draftResponse {
	return draftResponse{
		DeliveryAddress: d.DeliveryAddress,
		ContactPhone:    d.ContactPhone,
		DeliveryDate:    d.DeliveryDate.Format("2006-01-02"),
		DeliveryTime:    d.DeliveryTime,
		Note:            d.Note,
		EmailEnabled:    d.EmailEnabled,
		ChatEnabled:     d.ChatEnabled,
	}
}
