package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/engine"
	"github.com/nexpharm/pharmacy-intel/internal/intel/service"
	"github.com/nexpharm/pharmacy-intel/pkg/errors"
	"github.com/nexpharm/pharmacy-intel/pkg/httputil"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
)

// IntelHandler serves the dashboard, inventory, alert, forecast and report endpoints
type IntelHandler struct {
	service *service.IntelService
	logger  *logger.Logger
}

// NewIntelHandler creates a new intel handler
func NewIntelHandler(svc *service.IntelService, log *logger.Logger) *IntelHandler {
	return &IntelHandler{
		service: svc,
		logger:  log,
	}
}

// StockStatusResponse is the classification of a single stock count
type StockStatusResponse struct {
	Stock  int                `json:"stock"`
	Status domain.StockStatus `json:"status"`
}

// GetDashboard returns the executive dashboard
func (h *IntelHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.DashboardView(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, view, warningsMeta(view.Warnings))
}

// GetInventory returns the enriched inventory, optionally filtered by ?search=
func (h *IntelHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.InventoryView(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, view, &httputil.Meta{Total: int64(len(view.Items))})
}

// GetExposure returns the exposure heatmap
func (h *IntelHandler) GetExposure(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ExposureView(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// GetStockStatus classifies the stock count in the path
func (h *IntelHandler) GetStockStatus(w http.ResponseWriter, r *http.Request) {
	stock, err := strconv.Atoi(chi.URLParam(r, "stock"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("stock must be an integer"))
		return
	}

	httputil.JSON(w, http.StatusOK, StockStatusResponse{Stock: stock, Status: engine.Classify(stock)})
}

// Reorder asks the assistant to reorder the medicine in the path
func (h *IntelHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	medicine, ok := medicineParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.Reorder(r.Context(), medicine)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Alternatives asks the assistant for substitutes of the medicine in the path
func (h *IntelHandler) Alternatives(w http.ResponseWriter, r *http.Request) {
	medicine, ok := medicineParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.Alternatives(r.Context(), medicine)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// GetAlerts returns the low-stock, expiring and expiry-loss sections.
// ?order=urgency lists expiring batches soonest first.
func (h *IntelHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	order := service.AlertOrder(r.URL.Query().Get("order"))
	switch order {
	case "":
		order = service.OrderFeed
	case service.OrderFeed, service.OrderUrgency:
	default:
		httputil.Error(w, errors.BadRequest("order must be one of: feed urgency"))
		return
	}

	view, err := h.service.AlertsView(r.Context(), order)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, view, warningsMeta(view.Warnings))
}

// GetForecast returns the forecast view of the medicine in the path
func (h *IntelHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	medicine, ok := medicineParam(w, r)
	if !ok {
		return
	}

	view, err := h.service.ForecastView(r.Context(), medicine)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, view)
}

// ExportExecutiveReport downloads the executive report as PDF
func (h *IntelHandler) ExportExecutiveReport(w http.ResponseWriter, r *http.Request) {
	pdfBytes, err := h.service.ExecutiveReport(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filename := fmt.Sprintf("executive-report-%s.pdf", time.Now().Format("2006-01-02"))
	httputil.Attachment(w, "application/pdf", filename, pdfBytes)
}

// ExportReorderReport downloads the reorder report as XLSX
func (h *IntelHandler) ExportReorderReport(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ReorderReport(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	filename := fmt.Sprintf("reorder-report-%s.xlsx", time.Now().Format("2006-01-02"))
	httputil.Attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, data)
}

func medicineParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	medicine := strings.TrimSpace(chi.URLParam(r, "medicine"))
	if medicine == "" {
		httputil.Error(w, errors.BadRequest("medicine is required"))
		return "", false
	}
	return medicine, true
}

func warningsMeta(warnings []string) *httputil.Meta {
	if len(warnings) == 0 {
		return nil
	}
	return &httputil.Meta{Warnings: warnings}
}
