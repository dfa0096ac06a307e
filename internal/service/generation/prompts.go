package generation

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
	"inkwell/internal/config"
	"inkwell/internal/domain/models"
)

//go:embed prompts/*.yaml
var promptFiles embed.FS

// SamplingParams are the provider settings for one mode
type SamplingParams struct {
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	TopK        int     `yaml:"top_k"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Prompt is one mode's instruction template and sampling settings
type Prompt struct {
	Mode        models.GenerationMode `yaml:"mode"`
	Description string                `yaml:"description"`
	Template    string                `yaml:"template"`
	Params      SamplingParams        `yaml:"params"`

	tmpl *template.Template
}

// Render fills the template with content
func (p *Prompt) Render(content string) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, struct{ Content string }{content}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", p.Mode, err)
	}
	return b.String(), nil
}

// PromptRegistry holds the prompts loaded from the embedded YAML files
type PromptRegistry struct {
	prompts map[models.GenerationMode]*Prompt
	mu      sync.RWMutex
}

// NewPromptRegistry loads the embedded prompt for every generation mode
func NewPromptRegistry() (*PromptRegistry, error) {
	r := &PromptRegistry{
		prompts: make(map[models.GenerationMode]*Prompt),
	}

	for _, mode := range []models.GenerationMode{models.GenerationModeSummary, models.GenerationModeGrammarFix} {
		if err := r.loadPromptFile(mode); err != nil {
			return nil, fmt.Errorf("failed to load %s prompt: %w", mode, err)
		}
	}

	return r, nil
}

// loadPromptFile parses prompts/<mode>.yaml
func (r *PromptRegistry) loadPromptFile(mode models.GenerationMode) error {
	filename := fmt.Sprintf("prompts/%s.yaml", mode)
	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var prompt Prompt
	if err := yaml.Unmarshal(data, &prompt); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}
	if prompt.Mode != mode {
		return fmt.Errorf("%s declares mode %q", filename, prompt.Mode)
	}

	prompt.tmpl, err = template.New(string(mode)).Option("missingkey=error").Parse(prompt.Template)
	if err != nil {
		return fmt.Errorf("failed to parse template in %s: %w", filename, err)
	}
	if prompt.Params.MaxTokens <= 0 || prompt.Params.MaxTokens > config.MaxGenerationOutputTokens {
		prompt.Params.MaxTokens = config.MaxGenerationOutputTokens
	}

	r.mu.Lock()
	r.prompts[mode] = &prompt
	r.mu.Unlock()

	return nil
}

// Get returns the prompt for mode
func (r *PromptRegistry) Get(mode models.GenerationMode) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prompt, ok := r.prompts[mode]
	if !ok {
		return nil, fmt.Errorf("unknown generation mode: %s", mode)
	}
	return prompt, nil
}
