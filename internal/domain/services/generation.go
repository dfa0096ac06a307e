package services

import (
	"context"

	"inkwell/internal/domain/models"
)

// GenerationService turns post text into a summary or a grammar-corrected version
type GenerationService interface {
	Generate(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error)
}

// GenerationCache stores generated results keyed by mode and input text
type GenerationCache interface {
	Get(ctx context.Context, mode models.GenerationMode, content string) (string, bool, error)
	Set(ctx context.Context, mode models.GenerationMode, content, result string) error
}
