package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesData(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/get_analytics_data", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"period_start":"2026-08-01","total_sales":3,"total_revenue":"15000.00"},
			{"period_start":"2026-08-02","total_sales":1,"total_revenue":"4500.00"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	rows, err := c.SalesData(context.Background(), Query{
		PeriodStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		ProductID:   "p1",
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-08-01", gotBody["period_start"])
	assert.Equal(t, "2026-08-31", gotBody["period_end"])
	assert.Equal(t, "p1", gotBody["product_id"])

	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].TotalSales)
	assert.True(t, decimal.RequireFromString("15000.00").Equal(rows[0].TotalRevenue))
}

func TestSalesData_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.SalesData(context.Background(), Query{
		PeriodStart: time.Now(),
		PeriodEnd:   time.Now(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSalesData_OmitsEmptyProductFilter(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.SalesData(context.Background(), Query{
		PeriodStart: time.Now(),
		PeriodEnd:   time.Now(),
	})
	require.NoError(t, err)
	_, present := raw["product_id"]
	assert.False(t, present)
}
