// Package assistant answers chat queries about stock, expiry, wastage,
// reorders and substitutes from the pharmacy feeds.
package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/engine"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
)

// ReorderStockCeiling is the stock above which a reorder is ignored
const ReorderStockCeiling = 50

// ExpiryReplyLimit caps the batches listed in an expiry reply
const ExpiryReplyLimit = 5

// Fixed replies
const (
	ReplyOutOfScope = "🚫 **Out of Scope Query**\n" +
		"I am an AI Pharmacy Assistant and can help only with:\n" +
		"• Medicine stock availability\n" +
		"• Expiry & FEFO alerts\n" +
		"• Wastage analysis\n" +
		"• Reorder recommendations"
	ReplyLowConfidence = "🤖 Please ask about stock, expiry, wastage, or reorders."
	ReplyFallback      = "🤖 I can assist with pharmacy inventory insights."
)

var pharmacyKeywords = []string{
	"stock", "expire", "expiry", "wastage",
	"loss", "reorder", "medicine", "drug",
	"batch", "inventory", "alternative", "substitute",
}

var knownMedicines = []string{
	"dolo 650",
	"paracetamol",
	"pan 40",
	"azithral 500",
	"telma 40",
	"glycomet 500",
	"allegra 120",
}

// genericSubstitutes maps a brand to medicines that can replace it
var genericSubstitutes = map[string][]string{
	"dolo 650":     {"paracetamol", "calpol 650"},
	"pan 40":       {"pantocid 40", "pantop 40"},
	"azithral 500": {"azithromycin 500"},
	"telma 40":     {"telmisartan 40"},
}

// FeedSource is the subset of feeds the responder reads
type FeedSource interface {
	Inventory(ctx context.Context) ([]domain.InventoryItem, error)
	ExpiryBatches(ctx context.Context) ([]domain.ExpiryBatch, error)
	Wastage(ctx context.Context) (*domain.Wastage, error)
}

// Responder is the in-process assistant
type Responder struct {
	feeds     FeedSource
	predictor Predictor
	keywords  *KeywordPredictor
	now       func() time.Time
	logger    *logger.Logger
}

// NewResponder creates a responder using the keyword predictor
func NewResponder(feeds FeedSource, log *logger.Logger) *Responder {
	keywords := NewKeywordPredictor()
	return &Responder{
		feeds:     feeds,
		predictor: keywords,
		keywords:  keywords,
		now:       time.Now,
		logger:    log.WithComponent("assistant"),
	}
}

// WithPredictor classifies with p first, falling back to keywords on error
func (r *Responder) WithPredictor(p Predictor) *Responder {
	r.predictor = p
	return r
}

// Query answers one chat query
func (r *Responder) Query(ctx context.Context, query string) (*domain.AssistantReply, error) {
	intent, confidence := r.predict(ctx, query)
	inScope := isPharmacyQuery(query)

	if intent == IntentUnknown && !inScope {
		return reply(ReplyOutOfScope), nil
	}
	if confidence < ConfidenceThreshold && !inScope {
		return reply(ReplyLowConfidence), nil
	}

	switch intent {
	case IntentStock:
		return r.stock(ctx, query)
	case IntentExpiry:
		return r.expiry(ctx)
	case IntentWastage:
		return r.wastage(ctx)
	case IntentReorder:
		return r.reorder(ctx, query)
	case IntentAlternatives:
		return r.alternatives(ctx, query)
	}
	return reply(ReplyFallback), nil
}

func (r *Responder) predict(ctx context.Context, query string) (Intent, float64) {
	intent, confidence, err := r.predictor.Predict(ctx, query)
	if err == nil {
		return intent, confidence
	}

	r.logger.Warn().Err(err).Msg("intent predictor failed, using keywords")
	intent, confidence, _ = r.keywords.Predict(ctx, query)
	return intent, confidence
}

func (r *Responder) stock(ctx context.Context, query string) (*domain.AssistantReply, error) {
	items, err := r.feeds.Inventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	med := extractMedicine(query, items)
	if med == "" {
		return reply("📦 Please specify the medicine name."), nil
	}

	item, ok := findItem(items, med)
	if !ok {
		return reply(fmt.Sprintf("❌ No stock data found for %s.", title(med))), nil
	}
	return reply(fmt.Sprintf("📦 **Stock Update**\n%s has **%d units** available.", title(med), item.Stock)), nil
}

func (r *Responder) expiry(ctx context.Context) (*domain.AssistantReply, error) {
	batches, err := r.feeds.ExpiryBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load expiry batches: %w", err)
	}
	if len(batches) == 0 {
		return reply("✅ No medicines are expiring soon."), nil
	}

	var b strings.Builder
	b.WriteString("⏰ **Upcoming Expiries (FEFO Priority)**\n")
	for _, batch := range engine.ExpiringAlerts(batches) {
		fmt.Fprintf(&b, "- %s (Batch %s) in %d days\n", title(batch.DrugName), batch.Batch, batch.DaysToExpiry)
	}
	return reply(strings.TrimSpace(b.String())), nil
}

func (r *Responder) wastage(ctx context.Context) (*domain.AssistantReply, error) {
	w, err := r.feeds.Wastage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load wastage: %w", err)
	}
	return reply("💰 **Wastage Summary**\nEstimated expiry loss: " + rupees(w.Cost)), nil
}

func (r *Responder) reorder(ctx context.Context, query string) (*domain.AssistantReply, error) {
	items, err := r.feeds.Inventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	med := extractMedicine(query, items)
	if med == "" {
		return reorderReport(items), nil
	}

	item, ok := findItem(items, med)
	if !ok {
		return reply(fmt.Sprintf("⚠️ No inventory data found for %s", med)), nil
	}
	if item.Stock > ReorderStockCeiling {
		return reply(fmt.Sprintf("⚠️ %s has sufficient stock (%d units)", title(med), item.Stock)), nil
	}

	requestID := "REQ-" + r.now().Format("20060102150405")
	r.logger.Info().
		Str("request_id", requestID).
		Str("medicine", med).
		Int("stock", item.Stock).
		Msg("manager alert: reorder requested")

	return reply(fmt.Sprintf(
		"✅ **Reorder Request Submitted**\nMedicine: %s\nRequest ID: %s\nManager has been notified.",
		title(med), requestID,
	)), nil
}

func reorderReport(items []domain.InventoryItem) *domain.AssistantReply {
	var b strings.Builder
	for _, item := range items {
		if item.Stock < engine.LowStockThreshold {
			fmt.Fprintf(&b, "- %s (%d units left)\n", title(item.Medicine), item.Stock)
		}
	}
	if b.Len() == 0 {
		return reply("✅ All medicines are sufficiently stocked.")
	}
	return reply(strings.TrimSpace("🔁 **Reorder Report**\n" + b.String()))
}

func (r *Responder) alternatives(ctx context.Context, query string) (*domain.AssistantReply, error) {
	items, err := r.feeds.Inventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	med := extractMedicine(query, items)
	if med == "" {
		return reply("📦 Please specify the medicine name for alternatives."), nil
	}

	var alts []domain.Alternative
	for _, name := range genericSubstitutes[med] {
		if item, ok := findItem(items, name); ok && item.Stock > 0 {
			alts = append(alts, domain.Alternative{Medicine: item.Medicine, Stock: item.Stock})
		}
	}
	if len(alts) == 0 {
		return reply(fmt.Sprintf("❌ No substitutes available for %s.", title(med))), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔄 **Alternative Medicines for %s**\n", title(med))
	for _, alt := range alts {
		fmt.Fprintf(&b, "- %s (%d units)\n", title(alt.Medicine), alt.Stock)
	}
	return &domain.AssistantReply{Response: strings.TrimSpace(b.String()), Alternatives: alts}, nil
}

func reply(text string) *domain.AssistantReply {
	return &domain.AssistantReply{Response: text}
}

func isPharmacyQuery(query string) bool {
	q := strings.ToLower(query)
	for _, k := range pharmacyKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

// extractMedicine finds the medicine a query is about: the well-known names
// first, then any inventory name, longest first
func extractMedicine(query string, items []domain.InventoryItem) string {
	q := strings.ToLower(query)
	for _, med := range knownMedicines {
		if strings.Contains(q, med) {
			return med
		}
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		if name := engine.NormalizeMedicine(item.Medicine); name != "" {
			names = append(names, name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, name := range names {
		if strings.Contains(q, name) {
			return name
		}
	}
	return ""
}

func findItem(items []domain.InventoryItem, medicine string) (domain.InventoryItem, bool) {
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item.Medicine), medicine) {
			return item, true
		}
	}
	return domain.InventoryItem{}, false
}
