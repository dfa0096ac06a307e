// Package search indexes posts in Meilisearch.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"inkwell/internal/doctree"
	"inkwell/internal/domain/models"
)

const cropLength = 30 // words around the match in snippets

// postRecord is the indexed form of a post.
type postRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updatedAt"` // unix seconds, sortable
}

// MeiliIndex implements services.PostIndex with Meilisearch.
type MeiliIndex struct {
	client  meili.ServiceManager
	uid     string
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeiliIndex connects to Meilisearch and configures the index named uid.
// An unreachable server is an error; once running, outages are tracked by a
// background health check and searches fail fast while it is down.
func NewMeiliIndex(url, apiKey, uid string, logger *slog.Logger) (*MeiliIndex, error) {
	client := meili.New(url, meili.WithAPIKey(apiKey))
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("meilisearch unavailable at %s: %w", url, err)
	}

	m := &MeiliIndex{
		client: client,
		uid:    uid,
		logger: logger,
		done:   make(chan struct{}),
	}
	m.healthy.Store(true)
	m.configureIndex()

	go m.healthLoop()
	return m, nil
}

func (m *MeiliIndex) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        m.uid,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", m.uid, "error", err)
	}

	index := m.client.Index(m.uid)
	filterable := []interface{}{"userId", "status"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", m.uid, "error", err)
	}
	searchable := []string{"title", "text"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", m.uid, "error", err)
	}
}

func (m *MeiliIndex) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index", "index", m.uid)
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health check.
func (m *MeiliIndex) Close() {
	close(m.done)
}

// Ping reports whether Meilisearch answered the last health check.
func (m *MeiliIndex) Ping(context.Context) error {
	if !m.healthy.Load() {
		return fmt.Errorf("meilisearch unhealthy")
	}
	return nil
}

// IndexPost adds or replaces the post. Meilisearch applies the write
// asynchronously.
func (m *MeiliIndex) IndexPost(_ context.Context, post *models.Post) error {
	if !m.healthy.Load() {
		return fmt.Errorf("meilisearch unhealthy")
	}
	_, err := m.client.Index(m.uid).AddDocuments([]postRecord{toRecord(post)}, nil)
	return err
}

// Search returns the user's matching posts, best match first.
func (m *MeiliIndex) Search(_ context.Context, userID, query string, limit int) ([]models.PostSearchHit, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(m.uid).Search(query, &meili.SearchRequest{
		Filter:           fmt.Sprintf("userId = %q", userID),
		Limit:            int64(limit),
		AttributesToCrop: []string{"text"},
		CropLength:       cropLength,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	hits := make([]models.PostSearchHit, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		hits = append(hits, hitToResult(hit))
	}
	return hits, int(resp.EstimatedTotalHits), nil
}

func toRecord(post *models.Post) postRecord {
	return postRecord{
		ID:        post.ID,
		UserID:    post.UserID,
		Title:     post.Title,
		Text:      doctree.PlainText(post.Body),
		Status:    string(post.Status),
		UpdatedAt: post.UpdatedAt.Unix(),
	}
}

func hitToResult(hit meili.Hit) models.PostSearchHit {
	text := decodeString(hit, "text")
	return models.PostSearchHit{
		ID:        decodeString(hit, "id"),
		Title:     decodeString(hit, "title"),
		Status:    models.PostStatus(decodeString(hit, "status")),
		Snippet:   firstNonBlank(decodeFormattedString(hit, "text"), text),
		UpdatedAt: time.Unix(decodeInt(hit, "updatedAt"), 0).UTC(),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeInt(hit meili.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
