package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nexpharm/pharmacy-intel/pkg/httputil"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, routes map[string]http.HandlerFunc) *BackendClient {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewBackendClient(srv.URL, 2*time.Second, logger.Nop())
}

func writeJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestBackendClient_Inventory(t *testing.T) {
	var gotRequestID string
	c := newTestBackend(t, map[string]http.HandlerFunc{
		"/inventory": func(w http.ResponseWriter, r *http.Request) {
			gotRequestID = r.Header.Get("X-Request-ID")
			writeJSON(`[{"medicine":"dolo 650","stock":15},{"medicine":"pan 40","stock":120}]`)(w, r)
		},
	})

	ctx := context.WithValue(context.Background(), httputil.RequestIDKey, "req-7")
	items, err := c.Inventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "dolo 650", items[0].Medicine)
	assert.Equal(t, 120, items[1].Stock)
	assert.Equal(t, "req-7", gotRequestID)
}

func TestBackendClient_ExpiryBatches(t *testing.T) {
	c := newTestBackend(t, map[string]http.HandlerFunc{
		"/alerts/expiry": writeJSON(`[
			{"Drug_Name":"dolo 650","batch":"B12","Expiry_Date":"2025-03-01T00:00:00","days_to_expiry":4,"severity":"CRITICAL"},
			{"Drug_Name":"pan 40","batch":7781,"Expiry_Date":"2025-03-20T00:00:00","days_to_expiry":23,"severity":"WARNING"},
			{"Drug_Name":"telma 40","batch":null,"Expiry_Date":"2025-03-25T00:00:00","days_to_expiry":28,"severity":"WARNING"}
		]`),
	})

	batches, err := c.ExpiryBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, "dolo 650", batches[0].DrugName)
	assert.Equal(t, "B12", batches[0].Batch)
	assert.Equal(t, 4, batches[0].DaysToExpiry)
	assert.Equal(t, "CRITICAL", batches[0].Severity)
	assert.Equal(t, "7781", batches[1].Batch)
	assert.Equal(t, "—", batches[2].Batch)
}

func TestBackendClient_LowStockAndKPIs(t *testing.T) {
	c := newTestBackend(t, map[string]http.HandlerFunc{
		"/alerts/low-stock": writeJSON(`[{"medicine":"dolo 650","stock":15,"severity":"CRITICAL","reason":"Stock below safety threshold"}]`),
		"/dashboard-kpis":   writeJSON(`{"unique_medicines":7,"total_units":1200,"low_stock":2,"expiring_soon":3}`),
		"/wastage":          writeJSON(`{"wastage_cost":1520.5}`),
	})

	alerts, err := c.LowStockAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "dolo 650", alerts[0].Medicine)
	assert.Equal(t, "CRITICAL", alerts[0].Severity)

	kpis, err := c.DashboardKPIs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, kpis.UniqueMedicines)
	assert.Equal(t, 3, kpis.ExpiringSoon)

	w, err := c.Wastage(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1520.5").Equal(w.Cost))
}

func TestBackendClient_Forecast(t *testing.T) {
	var gotPath string
	c := newTestBackend(t, map[string]http.HandlerFunc{
		"/forecast/": func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			writeJSON(`[{"ds":"2025-02-28T00:00:00","actual":0,"yhat":42.6,"moving_avg":38.1,"reorder_qty":100,"reorder_date":"2025-03-01","mape":null,"demand_surge":false,"seasonal_spike":true}]`)(w, r)
		},
	})

	points, err := c.Forecast(context.Background(), "dolo 650")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "/forecast/dolo%20650", gotPath)
	assert.InDelta(t, 42.6, points[0].YHat, 1e-9)
	assert.Nil(t, points[0].MAPE)
	assert.True(t, points[0].SeasonalSpike)
}

func TestBackendClient_ExpiryAnalytics(t *testing.T) {
	c := newTestBackend(t, map[string]http.HandlerFunc{
		"/expiry-loss-recovery": writeJSON(`{"chart":[{"name":"Recoverable Value","value":300.5},{"name":"Potential Loss","value":99.5}],"summary":{"total_value":400,"recoverable_value":300.5,"potential_loss":99.5}}`),
		"/expiry-risk":          writeJSON(`{"distribution":[{"name":"High Risk","value":2}],"value_at_risk":[{"name":"High Risk","value":1250.75}]}`),
	})

	loss, err := c.ExpiryLossSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, loss.Chart, 2)
	assert.True(t, decimal.NewFromInt(400).Equal(loss.Summary.TotalValue))
	assert.True(t, decimal.RequireFromString("99.5").Equal(loss.Summary.PotentialLoss))

	risk, err := c.ExpiryRisk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "High Risk", risk.Distribution[0].Name)
	assert.True(t, decimal.RequireFromString("1250.75").Equal(risk.ValueAtRisk[0].Value))
}

func TestBackendClient_Query(t *testing.T) {
	t.Run("object reply with alternatives", func(t *testing.T) {
		var gotQuery string
		c := newTestBackend(t, map[string]http.HandlerFunc{
			"/chatbot": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				gotQuery = body["query"]
				writeJSON(`{"response":"Alternatives","alternatives":[{"medicine":"paracetamol","stock":80}]}`)(w, r)
			},
		})

		reply, err := c.Query(context.Background(), "alternative for dolo 650")
		require.NoError(t, err)
		assert.Equal(t, "alternative for dolo 650", gotQuery)
		assert.Equal(t, "Alternatives", reply.Response)
		require.Len(t, reply.Alternatives, 1)
		assert.Equal(t, 80, reply.Alternatives[0].Stock)
	})

	t.Run("bare string reply", func(t *testing.T) {
		c := newTestBackend(t, map[string]http.HandlerFunc{
			"/chatbot": writeJSON(`"All medicines are sufficiently stocked."`),
		})

		reply, err := c.Query(context.Background(), "Generate reorder report")
		require.NoError(t, err)
		assert.Equal(t, "All medicines are sufficiently stocked.", reply.Response)
		assert.Empty(t, reply.Alternatives)
	})
}

func TestBackendClient_Errors(t *testing.T) {
	t.Run("non-2xx is a StatusError", func(t *testing.T) {
		c := newTestBackend(t, map[string]http.HandlerFunc{
			"/inventory": func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		})

		_, err := c.Inventory(context.Background())
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
		assert.Equal(t, "/inventory", statusErr.Path)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestBackend(t, map[string]http.HandlerFunc{"/inventory": writeJSON(`{`)})
		_, err := c.Inventory(context.Background())
		assert.ErrorContains(t, err, "failed to decode /inventory")
	})

	t.Run("unreachable backend", func(t *testing.T) {
		c := NewBackendClient("http://127.0.0.1:1", time.Second, logger.Nop())
		_, err := c.ExpiryBatches(context.Background())
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := newTestBackend(t, map[string]http.HandlerFunc{"/inventory": writeJSON(`[]`)})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Inventory(ctx)
		assert.Error(t, err)
	})
}
