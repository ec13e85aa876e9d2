package llmchat

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	MaxOutput     *int     `json:"max_output,omitempty"`
	Aliases       []string `json:"aliases,omitempty"`
}

func intPtr(v int) *int { return &v }

// DefaultContextWindow is assumed for models the catalog does not know.
const DefaultContextWindow = 128000

// Models is the built-in catalog. First entry per provider is that
// provider's default.
var Models = []ModelInfo{
	// Groq
	{
		ID: "llama-3.3-70b-versatile", Provider: "groq", DisplayName: "Llama 3.3 70B Versatile",
		ContextWindow: 131072, MaxOutput: intPtr(32768),
		Aliases: []string{"llama-70b", "llama3-70b"},
	},
	{
		ID: "llama-3.1-8b-instant", Provider: "groq", DisplayName: "Llama 3.1 8B Instant",
		ContextWindow: 131072, MaxOutput: intPtr(8192),
		Aliases: []string{"llama-8b"},
	},

	// OpenAI
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxOutput: intPtr(16384),
	},
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o Mini",
		ContextWindow: 128000, MaxOutput: intPtr(16384),
		Aliases: []string{"4o-mini"},
	},

	// Anthropic
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, MaxOutput: intPtr(16384),
		Aliases: []string{"sonnet", "claude-sonnet"},
	},
}

// GetModelInfo returns the catalog entry for a model ID or alias, or nil.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ModelsForProvider returns all catalog entries for a provider; an empty
// provider returns the full catalog.
func ModelsForProvider(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// DefaultModel returns the default catalog entry for a provider, or nil.
func DefaultModel(provider string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider == provider {
			return &Models[i]
		}
	}
	return nil
}

// ContextWindowFor returns the context window for a model, falling back to
// DefaultContextWindow for unknown models.
func ContextWindowFor(modelID string) int {
	if info := GetModelInfo(modelID); info != nil {
		return info.ContextWindow
	}
	return DefaultContextWindow
}
