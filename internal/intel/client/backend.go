// Package client talks to the pharmacy analytics backend that produces the
// inventory, expiry, forecast and alert feeds and answers assistant queries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/pkg/httputil"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
)

// BackendClient fetches feeds and dispatches assistant queries over HTTP.
// The backend returns bare JSON documents, not the envelope this service uses.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewBackendClient creates a client for the backend at baseURL
func NewBackendClient(baseURL string, timeout time.Duration, log *logger.Logger) *BackendClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BackendClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithComponent("backend-client"),
	}
}

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s returned status %d", e.Path, e.StatusCode)
}

// expiryRecord is the backend's expiry alert row
type expiryRecord struct {
	DrugName     string `json:"Drug_Name"`
	Batch        any    `json:"batch"`
	ExpiryDate   string `json:"Expiry_Date"`
	DaysToExpiry int    `json:"days_to_expiry"`
	Severity     string `json:"severity"`
}

// Inventory fetches GET /inventory
func (c *BackendClient) Inventory(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	if err := c.get(ctx, "/inventory", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ExpiryBatches fetches GET /alerts/expiry
func (c *BackendClient) ExpiryBatches(ctx context.Context) ([]domain.ExpiryBatch, error) {
	var records []expiryRecord
	if err := c.get(ctx, "/alerts/expiry", &records); err != nil {
		return nil, err
	}

	batches := make([]domain.ExpiryBatch, 0, len(records))
	for _, r := range records {
		batches = append(batches, domain.ExpiryBatch{
			DrugName:     r.DrugName,
			Batch:        batchLabel(r.Batch),
			ExpiryDate:   r.ExpiryDate,
			DaysToExpiry: r.DaysToExpiry,
			Severity:     r.Severity,
		})
	}
	return batches, nil
}

// LowStockAlerts fetches GET /alerts/low-stock
func (c *BackendClient) LowStockAlerts(ctx context.Context) ([]domain.LowStockAlert, error) {
	var alerts []domain.LowStockAlert
	if err := c.get(ctx, "/alerts/low-stock", &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Forecast fetches GET /forecast/{medicine}
func (c *BackendClient) Forecast(ctx context.Context, medicine string) ([]domain.ForecastPoint, error) {
	var points []domain.ForecastPoint
	if err := c.get(ctx, "/forecast/"+url.PathEscape(medicine), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// ExpiryLossSummary fetches GET /expiry-loss-recovery
func (c *BackendClient) ExpiryLossSummary(ctx context.Context) (*domain.ExpiryLossSummary, error) {
	var summary domain.ExpiryLossSummary
	if err := c.get(ctx, "/expiry-loss-recovery", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// DashboardKPIs fetches GET /dashboard-kpis
func (c *BackendClient) DashboardKPIs(ctx context.Context) (*domain.DashboardKPIs, error) {
	var kpis domain.DashboardKPIs
	if err := c.get(ctx, "/dashboard-kpis", &kpis); err != nil {
		return nil, err
	}
	return &kpis, nil
}

// ExpiryRisk fetches GET /expiry-risk
func (c *BackendClient) ExpiryRisk(ctx context.Context) (*domain.ExpiryRisk, error) {
	var risk domain.ExpiryRisk
	if err := c.get(ctx, "/expiry-risk", &risk); err != nil {
		return nil, err
	}
	return &risk, nil
}

// Wastage fetches GET /wastage
func (c *BackendClient) Wastage(ctx context.Context) (*domain.Wastage, error) {
	var w domain.Wastage
	if err := c.get(ctx, "/wastage", &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Query posts a natural-language query to POST /chatbot. Older backends
// answer with a bare JSON string instead of an object; both are accepted.
func (c *BackendClient) Query(ctx context.Context, query string) (*domain.AssistantReply, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/chatbot", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var reply domain.AssistantReply
	if err := json.Unmarshal(body, &reply); err != nil {
		var text string
		if strErr := json.Unmarshal(body, &text); strErr != nil {
			return nil, fmt.Errorf("failed to decode assistant reply: %w", err)
		}
		reply.Response = text
	}

	return &reply, nil
}

func (c *BackendClient) get(ctx context.Context, path string, target any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *BackendClient) do(ctx context.Context, method, path string, payload io.Reader) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if requestID := httputil.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("backend call failed")
		return nil, fmt.Errorf("failed to call backend %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend %s: %w", path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// batchLabel renders the backend batch column, which may be a string, a
// number or null depending on the source sheet.
func batchLabel(v any) string {
	switch b := v.(type) {
	case nil:
		return "—"
	case string:
		if b == "" {
			return "—"
		}
		return b
	case float64:
		return fmt.Sprintf("%.0f", b)
	default:
		return fmt.Sprint(b)
	}
}
