package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"inkwell/internal/config"
	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
)

const snippetRadius = 60 // runes either side of the first match

// SearchPosts uses the search index when one is configured and healthy, and
// otherwise scans the user's posts.
func (s *postService) SearchPosts(ctx context.Context, userID, query string) (*models.PostSearchResult, error) {
	query = strings.TrimSpace(query)
	err := validation.Validate(query,
		validation.Required.Error("query is required"),
		validation.RuneLength(1, config.MaxSearchQueryLength),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if s.index != nil {
		hits, total, err := s.index.Search(ctx, userID, query, config.SearchResultLimit)
		if err == nil {
			return &models.PostSearchResult{Query: query, Hits: nonNil(hits), Total: total}, nil
		}
		s.logger.Warn("search index failed, scanning posts", "user_id", userID, "error", err)
	}

	posts, err := s.postRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	needle := strings.Map(unicode.ToLower, query)
	hits := []models.PostSearchHit{}
	total := 0
	for i := range posts {
		p := &posts[i]
		text := doctree.PlainText(p.Body)
		inTitle := strings.Contains(strings.Map(unicode.ToLower, p.Title), needle)
		snippet, inText := snippetAround(text, needle)
		if !inTitle && !inText {
			continue
		}
		total++
		if len(hits) == config.SearchResultLimit {
			continue
		}
		if !inText {
			snippet = truncateRunes(text, 2*snippetRadius)
		}
		hits = append(hits, models.PostSearchHit{
			ID:        p.ID,
			Title:     p.Title,
			Status:    p.Status,
			Snippet:   snippet,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return &models.PostSearchResult{Query: query, Hits: hits, Total: total}, nil
}

// snippetAround returns the text around the first case-insensitive match of
// needle, which must be lower case.
func snippetAround(text, needle string) (string, bool) {
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	target := []rune(needle)

	at := -1
	for i := 0; i+len(target) <= len(lower); i++ {
		if slices.Equal(lower[i:i+len(target)], target) {
			at = i
			break
		}
	}
	if at < 0 {
		return "", false
	}

	from := max(0, at-snippetRadius)
	to := min(len(runes), at+len(target)+snippetRadius)
	snippet := strings.Join(strings.Fields(string(runes[from:to])), " ")
	if from > 0 {
		snippet = "…" + snippet
	}
	if to < len(runes) {
		snippet += "…"
	}
	return snippet, true
}

func truncateRunes(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

func nonNil(hits []models.PostSearchHit) []models.PostSearchHit {
	if hits == nil {
		return []models.PostSearchHit{}
	}
	return hits
}

// indexPost and archivePost are best effort: the write they follow has
// already been committed.
func (s *postService) indexPost(ctx context.Context, post *models.Post) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexPost(ctx, post); err != nil {
		s.logger.Warn("failed to index post", "post_id", post.ID, "error", err)
	}
}

func (s *postService) archivePost(ctx context.Context, post *models.Post) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.ArchivePublished(ctx, post)
	if err != nil {
		s.logger.Warn("failed to archive published post", "post_id", post.ID, "error", err)
		return
	}
	s.logger.Info("published post archived", "post_id", post.ID, "key", key)
}
