package assistant

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Intent is what a chat query asks the assistant to do
type Intent string

const (
	IntentStock        Intent = "STOCK"
	IntentExpiry       Intent = "EXPIRY"
	IntentWastage      Intent = "WASTAGE"
	IntentReorder      Intent = "REORDER"
	IntentAlternatives Intent = "ALTERNATIVES"
	IntentUnknown      Intent = "UNKNOWN"
)

// ConfidenceThreshold is the minimum confidence accepted for a query that
// carries no pharmacy keyword
const ConfidenceThreshold = 0.35

// Predictor classifies a query into an Intent with a confidence in [0, 1]
type Predictor interface {
	Predict(ctx context.Context, query string) (Intent, float64, error)
}

var trainingData = []struct {
	phrase string
	intent Intent
}{
	{"how many units are left", IntentStock},
	{"check stock of dolo 650", IntentStock},
	{"available quantity of pan 40", IntentStock},
	{"inventory status", IntentStock},
	{"current stock level", IntentStock},
	{"stock available", IntentStock},

	{"which medicines expire soon", IntentExpiry},
	{"expiry alert", IntentExpiry},
	{"medicines nearing expiry", IntentExpiry},

	{"show wastage summary", IntentWastage},
	{"expired medicine cost", IntentWastage},
	{"how much wastage happened", IntentWastage},

	{"generate reorder report", IntentReorder},
	{"which medicines need reorder", IntentReorder},
	{"low stock reorder list", IntentReorder},
	{"reorder dolo 650", IntentReorder},

	{"alternative for dolo 650", IntentAlternatives},
	{"suggest substitute medicine", IntentAlternatives},
	{"generic alternatives available", IntentAlternatives},
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "is": {}, "are": {}, "how": {},
	"many": {}, "much": {}, "which": {}, "what": {}, "for": {}, "to": {},
	"me": {}, "my": {}, "please": {}, "in": {}, "on": {}, "any": {}, "do": {},
	"we": {}, "have": {}, "there": {}, "show": {}, "can": {}, "you": {},
}

// KeywordPredictor scores a query against the training phrases using
// idf-weighted unigrams and bigrams. Medicine names are ignored.
type KeywordPredictor struct {
	weights map[string]map[Intent]float64
}

// NewKeywordPredictor builds the term weights from the training phrases
func NewKeywordPredictor() *KeywordPredictor {
	counts := make(map[string]map[Intent]float64)
	intents := make(map[Intent]struct{})

	for _, sample := range trainingData {
		intents[sample.intent] = struct{}{}
		for _, term := range terms(sample.phrase) {
			if counts[term] == nil {
				counts[term] = make(map[Intent]float64)
			}
			counts[term][sample.intent]++
		}
	}

	n := float64(len(intents))
	for _, byIntent := range counts {
		idf := math.Log(1 + n/float64(len(byIntent)))
		for intent := range byIntent {
			byIntent[intent] *= idf
		}
	}

	return &KeywordPredictor{weights: counts}
}

// Predict returns the best scoring intent and its share of the total score.
// A query sharing no term with the training phrases is IntentUnknown.
func (p *KeywordPredictor) Predict(ctx context.Context, query string) (Intent, float64, error) {
	scores := make(map[Intent]float64)
	total := 0.0
	for _, term := range terms(query) {
		for intent, w := range p.weights[term] {
			scores[intent] += w
			total += w
		}
	}
	if total == 0 {
		return IntentUnknown, 0, nil
	}

	ranked := make([]Intent, 0, len(scores))
	for intent := range scores {
		ranked = append(ranked, intent)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	best := ranked[0]
	return best, scores[best] / total, nil
}

// terms lowercases text, drops medicine names and stop words, and returns
// its unigrams and bigrams
func terms(text string) []string {
	text = strings.ToLower(text)
	for _, med := range knownMedicines {
		text = strings.ReplaceAll(text, med, " ")
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			kept = append(kept, w)
		}
	}

	out := make([]string, 0, 2*len(kept))
	out = append(out, kept...)
	for i := 0; i+1 < len(kept); i++ {
		out = append(out, kept[i]+" "+kept[i+1])
	}
	return out
}
