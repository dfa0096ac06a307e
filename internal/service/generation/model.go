package generation

import (
	"fmt"
	"strings"
)

// ModelInfo is a provider name and the model identifier for that provider
type ModelInfo struct {
	Provider string // "anthropic" or "lorem"
	Model    string
}

// ParseModel resolves which provider serves model.
//
// Supported formats:
//   - "anthropic/claude-haiku-4-5" → {Provider: "anthropic", Model: "claude-haiku-4-5"}
//   - "claude-haiku-4-5" → {Provider: "anthropic", Model: "claude-haiku-4-5"}
//   - "lorem-fast" → {Provider: "lorem", Model: "lorem-fast"}
//
// A bare model with an unknown prefix is served by fallbackProvider.
func ParseModel(model, fallbackProvider string) (*ModelInfo, error) {
	if model == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if provider, name, ok := strings.Cut(model, "/"); ok {
		if provider == "" || name == "" {
			return nil, fmt.Errorf("invalid model format: %s (expected provider/model)", model)
		}
		return &ModelInfo{Provider: provider, Model: name}, nil
	}

	provider := inferProvider(model)
	if provider == "" {
		provider = fallbackProvider
	}
	if provider == "" {
		return nil, fmt.Errorf("unable to infer provider from model: %s", model)
	}

	return &ModelInfo{Provider: provider, Model: model}, nil
}

// inferProvider infers the provider from the model name prefix
func inferProvider(model string) string {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "claude-"):
		return "anthropic"
	case strings.HasPrefix(modelLower, "lorem-"):
		return "lorem"
	default:
		return ""
	}
}
