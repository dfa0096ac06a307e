package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
)

// Generate asks the API for a summary or grammar fix of text. Every failure
// is a *domain.GenerationError whose message is the server's detail.
func (c *HTTPClient) Generate(ctx context.Context, text string, mode models.GenerationMode) (string, error) {
	req := models.GenerateRequest{Content: text, Type: mode}
	var resp models.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate", &req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			detail := apiErr.Detail
			if detail == "" {
				detail = fmt.Sprintf("AI generation failed (status %d)", apiErr.Status)
			}
			return "", &domain.GenerationError{Detail: detail, Err: apiErr}
		}
		return "", &domain.GenerationError{Err: err}
	}
	return resp.Result, nil
}
