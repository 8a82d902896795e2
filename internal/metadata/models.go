package metadata

import (
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Providers lists the supported providers in display order.
var Providers = []Provider{ProviderGemini, ProviderOpenAI}

func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProviderGemini:
		return ProviderGemini, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s (supported: gemini, openai)", s)
	}
}

// Model is a vision-capable model with per-million-token pricing in USD.
type Model struct {
	ID               string
	Label            string
	Provider         Provider
	InputPerMillion  float64
	OutputPerMillion float64
	// ReasoningBilledAsOutput marks models whose thinking tokens are billed
	// at the output rate.
	ReasoningBilledAsOutput bool
}

var GeminiModels = []Model{
	{
		ID:                      "gemini-2.5-flash",
		Label:                   "Gemini 2.5 Flash",
		Provider:                ProviderGemini,
		InputPerMillion:         0.30,
		OutputPerMillion:        2.50,
		ReasoningBilledAsOutput: true,
	},
	{
		ID:                      "gemini-2.5-pro",
		Label:                   "Gemini 2.5 Pro",
		Provider:                ProviderGemini,
		InputPerMillion:         1.25,
		OutputPerMillion:        10.00,
		ReasoningBilledAsOutput: true,
	},
	{
		ID:                      "gemini-3-flash-preview",
		Label:                   "Gemini 3 Flash (preview)",
		Provider:                ProviderGemini,
		InputPerMillion:         0.50,
		OutputPerMillion:        3.00,
		ReasoningBilledAsOutput: true,
	},
	{
		ID:                      "gemini-3-pro-preview",
		Label:                   "Gemini 3 Pro (preview)",
		Provider:                ProviderGemini,
		InputPerMillion:         2.00,
		OutputPerMillion:        12.00,
		ReasoningBilledAsOutput: true,
	},
}

var OpenAIModels = []Model{
	{
		ID:               "gpt-4o",
		Label:            "GPT-4o",
		Provider:         ProviderOpenAI,
		InputPerMillion:  2.50,
		OutputPerMillion: 10.00,
	},
	{
		ID:               "gpt-4.1",
		Label:            "GPT-4.1",
		Provider:         ProviderOpenAI,
		InputPerMillion:  2.00,
		OutputPerMillion: 8.00,
	},
	{
		ID:               "gpt-5.2",
		Label:            "GPT-5.2",
		Provider:         ProviderOpenAI,
		InputPerMillion:  1.75,
		OutputPerMillion: 14.00,
	},
}

const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o"

	DefaultOpenAIInputPerMillion  = 2.50
	DefaultOpenAIOutputPerMillion = 10.00
	DefaultGeminiInputPerMillion  = 2.00
	DefaultGeminiOutputPerMillion = 12.00
)

// Models returns the catalogue for p.
func Models(p Provider) []Model {
	if p == ProviderOpenAI {
		return OpenAIModels
	}
	return GeminiModels
}

func DefaultModel(p Provider) string {
	if p == ProviderOpenAI {
		return DefaultOpenAIModel
	}
	return DefaultGeminiModel
}

// Pricing returns the catalogue entry for modelID, or provider defaults
// with ok=false for unknown models.
func Pricing(p Provider, modelID string) (Model, bool) {
	for _, m := range Models(p) {
		if m.ID == modelID {
			return m, true
		}
	}
	if p == ProviderOpenAI {
		return Model{
			ID:               "default",
			Label:            "Default OpenAI",
			Provider:         ProviderOpenAI,
			InputPerMillion:  DefaultOpenAIInputPerMillion,
			OutputPerMillion: DefaultOpenAIOutputPerMillion,
		}, false
	}
	return Model{
		ID:                      "default",
		Label:                   "Default Gemini",
		Provider:                ProviderGemini,
		InputPerMillion:         DefaultGeminiInputPerMillion,
		OutputPerMillion:        DefaultGeminiOutputPerMillion,
		ReasoningBilledAsOutput: true,
	}, false
}

// EstimateCost returns the USD cost of a call with the given token counts.
func (m Model) EstimateCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1_000_000*m.InputPerMillion +
		float64(completionTokens)/1_000_000*m.OutputPerMillion
}
