// Package generation implements the text generation service: prompt
// templates, LLM provider calls and result caching.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	llmprovider "github.com/haowjy/meridian-llm-go"
	"inkwell/internal/config"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/services"
)

const blockTypeText = "text"

// Provider is the part of llmprovider.Provider the service calls
type Provider interface {
	GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error)
}

// generationService implements the GenerationService interface
type generationService struct {
	provider Provider
	model    string
	prompts  *PromptRegistry
	cache    services.GenerationCache // nil disables caching
	logger   *slog.Logger
}

// NewService creates a generation service. cache may be nil.
func NewService(
	provider Provider,
	model string,
	prompts *PromptRegistry,
	cache services.GenerationCache,
	logger *slog.Logger,
) services.GenerationService {
	return &generationService{
		provider: provider,
		model:    model,
		prompts:  prompts,
		cache:    cache,
		logger:   logger,
	}
}

// Generate returns the summary or grammar-corrected version of req.Content
func (s *generationService) Generate(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	if err := validateGenerateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, req.Type, req.Content)
		if err != nil {
			s.logger.Warn("generation cache lookup failed", "mode", req.Type, "error", err)
		} else if ok {
			s.logger.Debug("generation cache hit", "mode", req.Type)
			return &models.GenerateResponse{Result: cached, Type: req.Type}, nil
		}
	}

	prompt, err := s.prompts.Get(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	text, err := prompt.Render(req.Content)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.GenerateResponse(ctx, &llmprovider.GenerateRequest{
		Messages: []llmprovider.Message{{
			Role: "user",
			Blocks: []*llmprovider.Block{{
				BlockType:   blockTypeText,
				Sequence:    0,
				TextContent: &text,
			}},
		}},
		Model:  s.model,
		Params: requestParams(prompt.Params),
	})
	if err != nil {
		s.logger.Error("generation failed", "mode", req.Type, "model", s.model, "error", err)
		return nil, &domain.GenerationError{Detail: "AI generation failed: " + err.Error(), Err: err}
	}

	result := strings.TrimSpace(responseText(resp))
	if result == "" {
		return nil, &domain.GenerationError{Detail: "AI generation failed: empty response from model"}
	}

	s.logger.Info("generation completed",
		"mode", req.Type,
		"model", s.model,
		"input_runes", utf8.RuneCountInString(req.Content),
		"output_runes", utf8.RuneCountInString(result),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, req.Type, req.Content, result); err != nil {
			s.logger.Warn("generation cache store failed", "mode", req.Type, "error", err)
		}
	}

	return &models.GenerateResponse{Result: result, Type: req.Type}, nil
}

func validateGenerateRequest(req *models.GenerateRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Content,
			validation.Required.Error("content is required"),
			validation.By(maxRunes(config.MaxGenerationInputLength)),
		),
		validation.Field(&req.Type,
			validation.Required,
			validation.In(models.GenerationModeSummary, models.GenerationModeGrammarFix).Error("must be summary or grammar"),
		),
	)
}

func maxRunes(limit int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if utf8.RuneCountInString(s) > limit {
			return fmt.Errorf("must be at most %d characters", limit)
		}
		return nil
	}
}

func requestParams(p SamplingParams) *llmprovider.RequestParams {
	maxTokens := p.MaxTokens
	temperature := p.Temperature
	topP := p.TopP
	topK := p.TopK
	return &llmprovider.RequestParams{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
		TopK:        &topK,
	}
}

// responseText concatenates the text blocks of resp
func responseText(resp *llmprovider.GenerateResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range resp.Blocks {
		if block == nil || block.BlockType != blockTypeText || block.TextContent == nil {
			continue
		}
		b.WriteString(*block.TextContent)
	}
	return b.String()
}
