package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-1.5-flash"

const classificationPrompt = `You are an intent classification system for a pharmacy inventory assistant. ` +
	`Classify the user's query into exactly one of: STOCK, EXPIRY, WASTAGE, REORDER, ALTERNATIVES, UNKNOWN. ` +
	`Answer with the category only. The user query is: "%s"`

// GeminiPredictor classifies queries with a Gemini model
type GeminiPredictor struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *logger.Logger
}

// NewGeminiPredictor connects to Gemini with apiKey
func NewGeminiPredictor(ctx context.Context, apiKey, modelName string, log *logger.Logger) (*GeminiPredictor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &GeminiPredictor{
		client: client,
		model:  model,
		logger: log,
	}, nil
}

// Predict asks the model for the intent. Recognised intents get full
// confidence, anything else is IntentUnknown with zero confidence.
func (g *GeminiPredictor) Predict(ctx context.Context, query string) (Intent, float64, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(fmt.Sprintf(classificationPrompt, query)))
	if err != nil {
		return IntentUnknown, 0, fmt.Errorf("failed to classify intent: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return IntentUnknown, 0, fmt.Errorf("gemini returned no candidates")
	}

	intent := parseIntent(fmt.Sprint(resp.Candidates[0].Content.Parts[0]))
	g.logger.Debug().Str("intent", string(intent)).Msg("gemini classified query")

	if intent == IntentUnknown {
		return intent, 0, nil
	}
	return intent, 1, nil
}

// Close releases the client
func (g *GeminiPredictor) Close() error {
	return g.client.Close()
}

func parseIntent(answer string) Intent {
	answer = strings.ToUpper(strings.Trim(strings.TrimSpace(answer), "`'\"."))
	switch Intent(answer) {
	case IntentStock, IntentExpiry, IntentWastage, IntentReorder, IntentAlternatives:
		return Intent(answer)
	}
	return IntentUnknown
}
