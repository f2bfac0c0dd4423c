package service

import (
	"context"
	"sync"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/engine"
)

// Dashboard section sizes
const (
	DashboardStockTopN    = 8
	DashboardLowStockTopN = 3
)

// AlertOrder selects how expiring alerts are picked
type AlertOrder string

const (
	OrderFeed    AlertOrder = "feed"
	OrderUrgency AlertOrder = "urgency"
)

// InventoryView is the inventory page: enriched rows, the low-stock subset
// and the exposure heatmap.
type InventoryView struct {
	Items    []domain.EnrichedInventoryItem `json:"items"`
	LowStock []domain.LowStockAlert         `json:"low_stock"`
	Exposure []domain.ExposureEntry         `json:"exposure"`
}

// AlertsView holds one section per feed. A nil section means its feed
// failed; the failure is listed in Warnings.
type AlertsView struct {
	LowStock   []domain.LowStockAlert    `json:"low_stock"`
	Expiring   []domain.ExpiryBatch      `json:"expiring"`
	ExpiryLoss *domain.ExpiryLossSummary `json:"expiry_loss"`
	Warnings   []string                  `json:"-"`
}

// ForecastView is a medicine's forecast with its latest insight
type ForecastView struct {
	Medicine        string                  `json:"medicine"`
	Points          []domain.ForecastPoint  `json:"points"`
	Insight         *domain.ForecastInsight `json:"insight"`
	ShowExpiryPopup bool                    `json:"show_expiry_popup"`
	ExpiringBatches []domain.ExpiryBatch    `json:"expiring_batches"`
}

// DashboardView is the executive dashboard
type DashboardView struct {
	KPIs              *domain.DashboardKPIs  `json:"kpis"`
	StockDistribution []domain.InventoryItem `json:"stock_distribution"`
	LowStock          []domain.LowStockAlert `json:"low_stock"`
	Expiring          []domain.ExpiryBatch   `json:"expiring"`
	ExpiryRisk        *domain.ExpiryRisk     `json:"expiry_risk,omitempty"`
	Warnings          []string               `json:"-"`
}

// InventoryView fetches inventory and expiry batches concurrently. Both are
// required; search filters the enriched rows by medicine substring.
func (s *IntelService) InventoryView(ctx context.Context, search string) (*InventoryView, error) {
	var (
		wg                   sync.WaitGroup
		items                []domain.InventoryItem
		batches              []domain.ExpiryBatch
		inventoryErr, expErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		items, inventoryErr = s.feeds.Inventory(ctx)
	}()
	go func() {
		defer wg.Done()
		batches, expErr = s.feeds.ExpiryBatches(ctx)
	}()
	wg.Wait()

	if inventoryErr != nil {
		s.logger.Error().Err(inventoryErr).Msg("inventory feed failed")
		return nil, feedError("inventory", inventoryErr)
	}
	if expErr != nil {
		s.logger.Error().Err(expErr).Msg("expiry feed failed")
		return nil, feedError("expiry", expErr)
	}

	enriched := engine.MergeExpiry(items, batches)
	return &InventoryView{
		Items:    engine.FilterByMedicine(enriched, search),
		LowStock: engine.LowStockAlerts(items),
		Exposure: engine.RankExposure(items),
	}, nil
}

// ExposureView ranks the current inventory by exposure
func (s *IntelService) ExposureView(ctx context.Context) ([]domain.ExposureEntry, error) {
	items, err := s.feeds.Inventory(ctx)
	if err != nil {
		return nil, feedError("inventory", err)
	}
	return engine.RankExposure(items), nil
}

// AlertsView fetches the three alert feeds independently. It only fails
// when every feed fails.
func (s *IntelService) AlertsView(ctx context.Context, order AlertOrder) (*AlertsView, error) {
	var (
		wg                      sync.WaitGroup
		lowStock                []domain.LowStockAlert
		batches                 []domain.ExpiryBatch
		loss                    *domain.ExpiryLossSummary
		lowErr, expErr, lossErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		lowStock, lowErr = s.feeds.LowStockAlerts(ctx)
	}()
	go func() {
		defer wg.Done()
		batches, expErr = s.feeds.ExpiryBatches(ctx)
	}()
	go func() {
		defer wg.Done()
		loss, lossErr = s.feeds.ExpiryLossSummary(ctx)
	}()
	wg.Wait()

	view := &AlertsView{}

	if lowErr != nil {
		view.Warnings = append(view.Warnings, s.warn("low-stock", lowErr))
	} else {
		view.LowStock = belowThreshold(lowStock)
	}

	if expErr != nil {
		view.Warnings = append(view.Warnings, s.warn("expiry", expErr))
	} else if order == OrderUrgency {
		view.Expiring = engine.ExpiringAlertsByUrgency(batches)
	} else {
		view.Expiring = engine.ExpiringAlerts(batches)
	}

	if lossErr != nil {
		view.Warnings = append(view.Warnings, s.warn("expiry-loss", lossErr))
	} else {
		view.ExpiryLoss = loss
	}

	if lowErr != nil && expErr != nil && lossErr != nil {
		return nil, feedError("low-stock", lowErr)
	}
	return view, nil
}

// ForecastView fetches a medicine's forecast. The expiry feed only drives
// the popup, so its failure is ignored.
func (s *IntelService) ForecastView(ctx context.Context, medicine string) (*ForecastView, error) {
	var (
		wg                  sync.WaitGroup
		points              []domain.ForecastPoint
		batches             []domain.ExpiryBatch
		forecastErr, expErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		points, forecastErr = s.feeds.Forecast(ctx, medicine)
	}()
	go func() {
		defer wg.Done()
		batches, expErr = s.feeds.ExpiryBatches(ctx)
	}()
	wg.Wait()

	if forecastErr != nil {
		s.logger.Error().Err(forecastErr).Str("medicine", medicine).Msg("forecast feed failed")
		return nil, feedError("forecast", forecastErr)
	}
	if points == nil {
		points = []domain.ForecastPoint{}
	}

	view := &ForecastView{
		Medicine:        medicine,
		Points:          points,
		Insight:         engine.ForecastInsight(medicine, points),
		ExpiringBatches: []domain.ExpiryBatch{},
	}

	if expErr != nil {
		s.logger.Debug().Err(expErr).Msg("expiry popup feed failed")
		return view, nil
	}

	if engine.ShouldShowExpiryPopup(batches) {
		view.ShowExpiryPopup = true
		view.ExpiringBatches = engine.ExpiringAlerts(batches)
		s.events.PublishExpiryAlerted(ctx, medicine, view.ExpiringBatches)
	}
	return view, nil
}

// DashboardView fetches KPIs, inventory, low-stock, expiry and expiry risk
// concurrently. KPIs are required. Expiry risk is optional and its failure
// is not reported.
func (s *IntelService) DashboardView(ctx context.Context) (*DashboardView, error) {
	var (
		wg                                      sync.WaitGroup
		kpis                                    *domain.DashboardKPIs
		items                                   []domain.InventoryItem
		lowStock                                []domain.LowStockAlert
		batches                                 []domain.ExpiryBatch
		risk                                    *domain.ExpiryRisk
		kpiErr, invErr, lowErr, expErr, riskErr error
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		kpis, kpiErr = s.feeds.DashboardKPIs(ctx)
	}()
	go func() {
		defer wg.Done()
		items, invErr = s.feeds.Inventory(ctx)
	}()
	go func() {
		defer wg.Done()
		lowStock, lowErr = s.feeds.LowStockAlerts(ctx)
	}()
	go func() {
		defer wg.Done()
		batches, expErr = s.feeds.ExpiryBatches(ctx)
	}()
	go func() {
		defer wg.Done()
		risk, riskErr = s.feeds.ExpiryRisk(ctx)
	}()
	wg.Wait()

	if kpiErr != nil {
		s.logger.Error().Err(kpiErr).Msg("dashboard kpi feed failed")
		return nil, feedError("dashboard-kpis", kpiErr)
	}

	view := &DashboardView{KPIs: kpis}

	if invErr != nil {
		view.Warnings = append(view.Warnings, s.warn("inventory", invErr))
	} else {
		view.StockDistribution = head(items, DashboardStockTopN)
	}

	if lowErr != nil {
		view.Warnings = append(view.Warnings, s.warn("low-stock", lowErr))
	} else {
		view.LowStock = head(lowStock, DashboardLowStockTopN)
	}

	if expErr != nil {
		view.Warnings = append(view.Warnings, s.warn("expiry", expErr))
	} else {
		view.Expiring = engine.ExpiringAlerts(batches)
	}

	if riskErr == nil {
		view.ExpiryRisk = risk
	}

	return view, nil
}

func (s *IntelService) warn(feed string, err error) string {
	s.logger.Warn().Err(err).Str("feed", feed).Msg("optional feed failed")
	return feed + " feed unavailable"
}

// belowThreshold keeps low-stock feed rows under the threshold with their
// upstream severity.
func belowThreshold(alerts []domain.LowStockAlert) []domain.LowStockAlert {
	out := make([]domain.LowStockAlert, 0, len(alerts))
	for _, a := range alerts {
		if a.Stock < engine.LowStockThreshold {
			out = append(out, a)
		}
	}
	return out
}

// head returns a copy of the first n elements, never nil
func head[T any](in []T, n int) []T {
	if len(in) < n {
		n = len(in)
	}
	out := make([]T, n)
	copy(out, in[:n])
	return out
}
