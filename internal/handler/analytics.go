package handler

import (
	"net/http"
	"time"

	"github.com/bloomhaus/orderflow/internal/analytics"
)

type salesRowResponse struct {
	PeriodStart  string `json:"period_start"`
	TotalSales   int    `json:"total_sales"`
	TotalRevenue string `json:"total_revenue"`
}

// salesAnalytics proxies a date-range query to the external aggregation
// service. The engine does not aggregate anything itself.
func (h *Handler) salesAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := time.Parse("2006-01-02", q.Get("period_start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "period_start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", q.Get("period_end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "period_end must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		respondError(w, http.StatusBadRequest, "period_end must not precede period_start")
		return
	}

	rows, err := h.analytics.SalesData(r.Context(), analytics.Query{
		PeriodStart: start,
		PeriodEnd:   end,
		ProductID:   q.Get("product_id"),
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]salesRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = salesRowResponse{
			PeriodStart:  row.PeriodStart,
			TotalSales:   row.TotalSales,
			TotalRevenue: row.TotalRevenue.StringFixed(2),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
