// Package analytics is a read-only client for the external sales-aggregation
// service. The engine never aggregates anything itself; it forwards date-range
// queries and returns the collaborator's rows untouched.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Query selects an aggregation window and an optional product filter.
type Query struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	ProductID   string
}

// SalesRow is one aggregate bucket returned by the collaborator.
type SalesRow struct {
	PeriodStart  string          `json:"period_start"`
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// Client queries the aggregation service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the aggregation service base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type queryRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	ProductID   string `json:"product_id,omitempty"`
}

type queryResponse struct {
	Data []SalesRow `json:"data"`
}

// SalesData returns aggregate order counts and revenue for the query window.
func (c *Client) SalesData(ctx context.Context, q Query) ([]SalesRow, error) {
	payload, err := json.Marshal(queryRequest{
		PeriodStart: q.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   q.PeriodEnd.Format("2006-01-02"),
		ProductID:   q.ProductID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/get_analytics_data", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "query analytics service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analytics service responded %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return decoded.Data, nil
}
