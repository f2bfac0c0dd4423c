package engine

import (
	"strings"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
)

// QuickAction is a canned chat input offered next to the input box
type QuickAction struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

var quickActions = []QuickAction{
	{Label: "Stock", Query: "Check stock of dolo 650"},
	{Label: "Expiry", Query: "Which medicines expire soon?"},
	{Label: "Wastage", Query: "Show wastage summary"},
	{Label: "Reorder", Query: "Generate reorder report"},
}

// QuickActions returns the four canned chat inputs
func QuickActions() []QuickAction {
	out := make([]QuickAction, len(quickActions))
	copy(out, quickActions)
	return out
}

const (
	checkStockPrefix  = "check stock of "
	reorderPrefix     = "reorder "
	alternativePrefix = "alternative for "
)

// Interpret turns chat text into an intent. Blank input yields ok=false and
// must not be dispatched. Otherwise Query carries the trimmed text verbatim;
// the kind is only recognised for the quick-action phrases and the two row
// action phrasings, everything else is free-form and left to the assistant.
func Interpret(text string) (domain.CommandIntent, bool) {
	query := strings.TrimSpace(text)
	if query == "" {
		return domain.CommandIntent{}, false
	}

	intent := domain.CommandIntent{Kind: domain.IntentFreeForm, Query: query}
	lower := strings.ToLower(query)
	phrase := strings.TrimRight(lower, "?!. ")

	switch {
	case phrase == "which medicines expire soon":
		intent.Kind = domain.IntentCheckExpiry
	case phrase == "show wastage summary":
		intent.Kind = domain.IntentWastageSummary
	case phrase == "generate reorder report":
		intent.Kind = domain.IntentReorderReport
	case hasArgument(lower, checkStockPrefix):
		intent.Kind = domain.IntentCheckStock
		intent.Medicine = argument(lower, checkStockPrefix)
	case hasArgument(lower, alternativePrefix):
		intent.Kind = domain.IntentFindAlternative
		intent.Medicine = argument(lower, alternativePrefix)
	case hasArgument(lower, reorderPrefix):
		intent.Kind = domain.IntentReorder
		intent.Medicine = argument(lower, reorderPrefix)
	}

	return intent, true
}

func hasArgument(lower, prefix string) bool {
	return strings.HasPrefix(lower, prefix) && argument(lower, prefix) != ""
}

func argument(lower, prefix string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimPrefix(lower, prefix), "?!."))
}
