package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/events"
	apperrors "github.com/nexpharm/pharmacy-intel/pkg/errors"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/nexpharm/pharmacy-intel/pkg/messaging"
	"github.com/nexpharm/pharmacy-intel/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeeds struct {
	inventory []domain.InventoryItem
	batches   []domain.ExpiryBatch
	lowStock  []domain.LowStockAlert
	points    []domain.ForecastPoint
	loss      *domain.ExpiryLossSummary
	kpis      *domain.DashboardKPIs
	risk      *domain.ExpiryRisk

	errs map[string]error
}

func (f *fakeFeeds) err(feed string) error {
	if f.errs == nil {
		return nil
	}
	return f.errs[feed]
}

func (f *fakeFeeds) Inventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return f.inventory, f.err("inventory")
}

func (f *fakeFeeds) ExpiryBatches(ctx context.Context) ([]domain.ExpiryBatch, error) {
	return f.batches, f.err("expiry")
}

func (f *fakeFeeds) LowStockAlerts(ctx context.Context) ([]domain.LowStockAlert, error) {
	return f.lowStock, f.err("low-stock")
}

func (f *fakeFeeds) Forecast(ctx context.Context, medicine string) ([]domain.ForecastPoint, error) {
	return f.points, f.err("forecast")
}

func (f *fakeFeeds) ExpiryLossSummary(ctx context.Context) (*domain.ExpiryLossSummary, error) {
	return f.loss, f.err("expiry-loss")
}

func (f *fakeFeeds) DashboardKPIs(ctx context.Context) (*domain.DashboardKPIs, error) {
	return f.kpis, f.err("dashboard-kpis")
}

func (f *fakeFeeds) ExpiryRisk(ctx context.Context) (*domain.ExpiryRisk, error) {
	return f.risk, f.err("expiry-risk")
}

func (f *fakeFeeds) Wastage(ctx context.Context) (*domain.Wastage, error) {
	return &domain.Wastage{Cost: decimal.NewFromInt(0)}, f.err("wastage")
}

type fakeAssistant struct {
	mu      sync.Mutex
	queries []string
	reply   *domain.AssistantReply
	err     error
	gate    chan struct{}
}

func (a *fakeAssistant) Query(ctx context.Context, query string) (*domain.AssistantReply, error) {
	a.mu.Lock()
	a.queries = append(a.queries, query)
	a.mu.Unlock()

	if a.gate != nil {
		<-a.gate
	}
	return a.reply, a.err
}

func sampleFeeds() *fakeFeeds {
	return &fakeFeeds{
		inventory: []domain.InventoryItem{
			{Medicine: "Dolo 650", Stock: 120},
			{Medicine: "Pan 40", Stock: 35},
			{Medicine: "Telma 40", Stock: 5},
		},
		batches: []domain.ExpiryBatch{
			{DrugName: "dolo 650", Batch: "D1", DaysToExpiry: 25},
			{DrugName: "DOLO 650", Batch: "D2", DaysToExpiry: 4},
			{DrugName: "pan 40", Batch: "P1", DaysToExpiry: -2},
		},
		lowStock: []domain.LowStockAlert{
			{InventoryItem: domain.InventoryItem{Medicine: "Pan 40", Stock: 35}, Severity: domain.SeverityWarning},
			{InventoryItem: domain.InventoryItem{Medicine: "Telma 40", Stock: 5}, Severity: domain.SeverityCritical},
		},
		loss: &domain.ExpiryLossSummary{Chart: []domain.NamedValue{}},
		kpis: &domain.DashboardKPIs{UniqueMedicines: 3, TotalUnits: 160, LowStock: 2, ExpiringSoon: 2},
	}
}

func newTestService(feeds FeedSource, assistant Assistant, pub *testutil.MockPublisher) *IntelService {
	var publisher *events.IntelEventPublisher
	if pub != nil {
		publisher = events.NewWithPublisher(pub, logger.Nop())
	}
	return NewIntelService(feeds, assistant, publisher, logger.Nop())
}

func TestInventoryView(t *testing.T) {
	svc := newTestService(sampleFeeds(), nil, nil)

	view, err := svc.InventoryView(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, view.Items, 3)
	assert.Equal(t, domain.StatusHealthy, view.Items[0].Status)
	require.NotNil(t, view.Items[0].DaysToExpiry)
	assert.Equal(t, 4, *view.Items[0].DaysToExpiry)
	assert.Equal(t, -2, *view.Items[1].DaysToExpiry)
	assert.Nil(t, view.Items[2].DaysToExpiry)

	require.Len(t, view.LowStock, 2)
	assert.Equal(t, "Pan 40", view.LowStock[0].Medicine)

	require.Len(t, view.Exposure, 3)
	assert.Equal(t, 12000, view.Exposure[0].Value)
	assert.Equal(t, domain.ExposureHigh, view.Exposure[0].Tier)
}

func TestInventoryView_Search(t *testing.T) {
	svc := newTestService(sampleFeeds(), nil, nil)

	view, err := svc.InventoryView(context.Background(), "PAN")
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, "Pan 40", view.Items[0].Medicine)
	assert.Len(t, view.Exposure, 3, "exposure ignores the search filter")
}

func TestInventoryView_PrimaryFeedFailure(t *testing.T) {
	for _, feed := range []string{"inventory", "expiry"} {
		t.Run(feed, func(t *testing.T) {
			feeds := sampleFeeds()
			feeds.errs = map[string]error{feed: errors.New("connection refused")}
			svc := newTestService(feeds, nil, nil)

			view, err := svc.InventoryView(context.Background(), "")

			assert.Nil(t, view)
			assert.True(t, apperrors.Is(err, apperrors.ErrNetworkFailure))
		})
	}
}

func TestInventoryView_KeepsAppErrorFromSource(t *testing.T) {
	feeds := sampleFeeds()
	feeds.errs = map[string]error{"inventory": apperrors.Internal("schema broken")}
	svc := newTestService(feeds, nil, nil)

	_, err := svc.InventoryView(context.Background(), "")

	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}

func TestAlertsView(t *testing.T) {
	feeds := sampleFeeds()
	feeds.lowStock = append(feeds.lowStock, domain.LowStockAlert{
		InventoryItem: domain.InventoryItem{Medicine: "Glycomet 500", Stock: 80},
	})
	svc := newTestService(feeds, nil, nil)

	view, err := svc.AlertsView(context.Background(), OrderFeed)
	require.NoError(t, err)

	assert.Len(t, view.LowStock, 2, "rows at or above the threshold are dropped")
	require.Len(t, view.Expiring, 3)
	assert.Equal(t, "D1", view.Expiring[0].Batch, "feed order is kept")
	assert.NotNil(t, view.ExpiryLoss)
	assert.Empty(t, view.Warnings)
}

func TestAlertsView_UrgencyOrder(t *testing.T) {
	svc := newTestService(sampleFeeds(), nil, nil)

	view, err := svc.AlertsView(context.Background(), OrderUrgency)
	require.NoError(t, err)

	assert.Equal(t, "P1", view.Expiring[0].Batch)
	assert.Equal(t, "D2", view.Expiring[1].Batch)
}

func TestAlertsView_PartialFailure(t *testing.T) {
	feeds := sampleFeeds()
	feeds.errs = map[string]error{"expiry-loss": errors.New("timeout")}
	svc := newTestService(feeds, nil, nil)

	view, err := svc.AlertsView(context.Background(), OrderFeed)
	require.NoError(t, err)

	assert.Nil(t, view.ExpiryLoss)
	assert.NotNil(t, view.LowStock)
	assert.Equal(t, []string{"expiry-loss feed unavailable"}, view.Warnings)
}

func TestAlertsView_AllFeedsFail(t *testing.T) {
	feeds := sampleFeeds()
	boom := errors.New("network down")
	feeds.errs = map[string]error{"low-stock": boom, "expiry": boom, "expiry-loss": boom}
	svc := newTestService(feeds, nil, nil)

	_, err := svc.AlertsView(context.Background(), OrderFeed)

	assert.True(t, apperrors.Is(err, apperrors.ErrNetworkFailure))
}

func TestForecastView(t *testing.T) {
	feeds := sampleFeeds()
	feeds.points = []domain.ForecastPoint{
		{DS: "2026-01-15", YHat: 40.1, ReorderQty: 80},
		{DS: "2026-01-16", YHat: 42.6, ReorderQty: 85, ReorderDate: "2026-01-23"},
	}
	pub := testutil.NewMockPublisher()
	svc := newTestService(feeds, nil, pub)

	view, err := svc.ForecastView(context.Background(), "dolo 650")
	require.NoError(t, err)

	require.NotNil(t, view.Insight)
	assert.Equal(t, 43, view.Insight.ExpectedDemand)
	assert.Equal(t, 85, view.Insight.ReorderQty)
	assert.True(t, view.ShowExpiryPopup)
	assert.Len(t, view.ExpiringBatches, 3)
	pub.AssertEventPublished(t, messaging.EventExpiryAlerted)
}

func TestForecastView_EmptyForecastAndPopupFailure(t *testing.T) {
	feeds := sampleFeeds()
	feeds.errs = map[string]error{"expiry": errors.New("timeout")}
	pub := testutil.NewMockPublisher()
	svc := newTestService(feeds, nil, pub)

	view, err := svc.ForecastView(context.Background(), "unknown")
	require.NoError(t, err)

	assert.NotNil(t, view.Points)
	assert.Empty(t, view.Points)
	assert.Nil(t, view.Insight)
	assert.False(t, view.ShowExpiryPopup)
	pub.AssertNoEventsPublished(t)
}

func TestForecastView_ForecastFailure(t *testing.T) {
	feeds := sampleFeeds()
	feeds.errs = map[string]error{"forecast": errors.New("502")}
	svc := newTestService(feeds, nil, nil)

	_, err := svc.ForecastView(context.Background(), "dolo 650")

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "forecast", appErr.Details["feed"])
}

func TestDashboardView(t *testing.T) {
	feeds := sampleFeeds()
	for i := 0; i < 10; i++ {
		feeds.inventory = append(feeds.inventory, domain.InventoryItem{Medicine: "extra", Stock: i})
	}
	feeds.lowStock = append(feeds.lowStock, feeds.lowStock...)
	feeds.errs = map[string]error{"expiry-risk": errors.New("not found")}
	svc := newTestService(feeds, nil, nil)

	view, err := svc.DashboardView(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, view.KPIs.UniqueMedicines)
	require.Len(t, view.StockDistribution, DashboardStockTopN)
	assert.Equal(t, "Dolo 650", view.StockDistribution[0].Medicine, "feed order, not ranked")
	assert.Len(t, view.LowStock, DashboardLowStockTopN)
	assert.Len(t, view.Expiring, 3)
	assert.Nil(t, view.ExpiryRisk)
	assert.Empty(t, view.Warnings, "expiry risk failures are silent")
}

func TestDashboardView_KPIFailure(t *testing.T) {
	feeds := sampleFeeds()
	feeds.errs = map[string]error{"dashboard-kpis": errors.New("refused")}
	svc := newTestService(feeds, nil, nil)

	_, err := svc.DashboardView(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrNetworkFailure))
}

func TestReorder(t *testing.T) {
	assistant := &fakeAssistant{reply: &domain.AssistantReply{
		Response: "✅ **Reorder Request Submitted**\nMedicine: Pan 40\nRequest ID: REQ-20260115103000\nManager has been notified.",
	}}
	pub := testutil.NewMockPublisher()
	svc := newTestService(sampleFeeds(), assistant, pub)

	result, err := svc.Reorder(context.Background(), "Pan 40")
	require.NoError(t, err)

	assert.Equal(t, []string{"reorder pan 40"}, assistant.queries)
	assert.Equal(t, "pan 40", result.Request.Subject)
	assert.False(t, svc.ActionPending("pan 40"))

	events := pub.Events()
	require.Len(t, events, 1)
	data := events[0].Payload.(messaging.ReorderRequestedEvent)
	assert.Equal(t, "REQ-20260115103000", data.RequestID)
	require.NotNil(t, data.Stock)
	assert.Equal(t, 35, *data.Stock)
}

func TestReorder_StockUnavailableStillPublishes(t *testing.T) {
	assistant := &fakeAssistant{reply: &domain.AssistantReply{Response: "Request ID: REQ-20260115103000"}}
	feeds := sampleFeeds()
	feeds.errs = map[string]error{"inventory": errors.New("timeout")}
	pub := testutil.NewMockPublisher()
	svc := newTestService(feeds, assistant, pub)

	_, err := svc.Reorder(context.Background(), "Pan 40")
	require.NoError(t, err)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Payload.(messaging.ReorderRequestedEvent).Stock)
}

func TestReorder_IgnoredIsNotPublished(t *testing.T) {
	assistant := &fakeAssistant{reply: &domain.AssistantReply{Response: "⚠️ Dolo 650 has sufficient stock (120 units)"}}
	pub := testutil.NewMockPublisher()
	svc := newTestService(sampleFeeds(), assistant, pub)

	_, err := svc.Reorder(context.Background(), "Dolo 650")
	require.NoError(t, err)

	pub.AssertNoEventsPublished(t)
}

func TestAlternatives(t *testing.T) {
	assistant := &fakeAssistant{reply: &domain.AssistantReply{
		Response:     "🔄 **Alternative Medicines for Dolo 650**",
		Alternatives: []domain.Alternative{{Medicine: "paracetamol", Stock: 60}},
	}}
	svc := newTestService(sampleFeeds(), assistant, nil)

	result, err := svc.Alternatives(context.Background(), "DOLO 650")
	require.NoError(t, err)

	assert.Equal(t, []string{"alternative for dolo 650"}, assistant.queries)
	assert.Equal(t, domain.ActionFindAlternative, result.Request.Kind)
	assert.Len(t, result.Reply.Alternatives, 1)
}

func TestDispatch_AssistantFailureReleases(t *testing.T) {
	assistant := &fakeAssistant{err: errors.New("dial tcp: refused")}
	svc := newTestService(sampleFeeds(), assistant, nil)

	_, err := svc.Reorder(context.Background(), "pan 40")

	assert.True(t, apperrors.Is(err, apperrors.ErrAssistantUnavailable))
	assert.False(t, svc.ActionPending("pan 40"))
}

func TestDispatch_OneActionPerMedicine(t *testing.T) {
	assistant := &fakeAssistant{
		reply: &domain.AssistantReply{Response: "ok"},
		gate:  make(chan struct{}),
	}
	svc := newTestService(sampleFeeds(), assistant, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Reorder(context.Background(), "pan 40")
		done <- err
	}()

	testutil.RequireEventually(t, func() bool { return svc.ActionPending("pan 40") },
		time.Second, 5*time.Millisecond, "first action never became pending")

	_, err := svc.Alternatives(context.Background(), "PAN 40")
	assert.True(t, apperrors.Is(err, apperrors.ErrActionInFlight))

	close(assistant.gate)
	require.NoError(t, <-done)

	_, err = svc.Alternatives(context.Background(), "pan 40")
	assert.NoError(t, err)
}
