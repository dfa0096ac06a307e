package models

// GenerationMode selects what the Text Generation Service does with the text.
type GenerationMode string

const (
	GenerationModeSummary    GenerationMode = "summary"
	GenerationModeGrammarFix GenerationMode = "grammar"
)

// Valid reports whether m is a known mode.
func (m GenerationMode) Valid() bool {
	return m == GenerationModeSummary || m == GenerationModeGrammarFix
}

// GenerateRequest is the wire request for text generation.
type GenerateRequest struct {
	Content string         `json:"content"`
	Type    GenerationMode `json:"type"`
}

// GenerateResponse is the wire response for text generation.
type GenerateResponse struct {
	Result string         `json:"result"`
	Type   GenerationMode `json:"type"`
}
