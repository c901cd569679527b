package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bloomhaus/orderflow/internal/domain/checkout"
	"github.com/bloomhaus/orderflow/internal/domain/order"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Code: status, Message: msg})
}

// respondDomainError maps domain errors onto response codes: validation and
// precondition failures are 400/422, a frozen order is 409, a missing order
// is 404, anything else is logged and reported as 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fieldErr      *checkout.FieldError
		statusErr     *order.InvalidStatusError
		transitionErr *order.InvalidTransitionError
		frozenErr     *order.FrozenError
	)

	switch {
	case errors.As(err, &fieldErr):
		respondError(w, http.StatusBadRequest, fieldErr.Error())
	case errors.Is(err, checkout.ErrNoDraft):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &statusErr):
		respondError(w, http.StatusBadRequest, statusErr.Error())
	case errors.As(err, &transitionErr):
		respondError(w, http.StatusUnprocessableEntity, transitionErr.Error())
	case errors.As(err, &frozenErr):
		respondError(w, http.StatusConflict, frozenErr.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, order.ErrNotFound.Error())
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
