package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"inkwell/internal/domain/models"
	"inkwell/internal/httputil"
	"inkwell/internal/repository/memory"
	"inkwell/internal/service"
	"inkwell/internal/service/generation"
)

type stubProvider struct {
	text string
	err  error
}

func (p *stubProvider) GenerateResponse(_ context.Context, _ *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	text := p.text
	return &llmprovider.GenerateResponse{
		Blocks: []*llmprovider.Block{{BlockType: "text", TextContent: &text}},
	}, nil
}

// newTestServer wires the handlers the way cmd/server does, with the user
// taken from the X-User header instead of a bearer token.
func newTestServer(t *testing.T, provider *stubProvider) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	postService := service.NewPostService(memory.NewPostRepository(), memory.NewTransactionManager(), logger)
	prompts, err := generation.NewPromptRegistry()
	if err != nil {
		t.Fatal(err)
	}
	genService := generation.NewService(provider, "lorem-fast", prompts, nil, logger)

	mux := http.NewServeMux()
	NewPostHandler(postService, logger).RegisterRoutes(mux)
	NewGenerationHandler(genService, logger).RegisterRoutes(mux)
	mux.HandleFunc("GET /health", NewHealthHandler(nil).Health)

	withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, httputil.WithUserID(r, r.Header.Get("X-User")))
	})
	srv := httptest.NewServer(withUser)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, user, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-User", user)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func createPost(t *testing.T, srv *httptest.Server, user, body string) models.Post {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/posts", user, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	return decode[models.Post](t, resp)
}

func TestPostLifecycle(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	created := createPost(t, srv, "alice", `{}`)
	if created.Title != "Untitled" || created.Status != models.PostStatusDraft {
		t.Fatalf("created = %+v", created)
	}
	if created.Body.LeafCount() != 1 {
		t.Errorf("new post should start with one empty paragraph, got %d leaves", created.Body.LeafCount())
	}

	patch := `{"title":"Hello","content_json":{"root":{"type":"root","children":[` +
		`{"type":"paragraph","children":[{"type":"text","text":"Some words","format":1}]}]}}}`
	resp := do(t, srv, http.MethodPatch, "/api/posts/"+created.ID, "alice", patch)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	updated := decode[models.Post](t, resp)
	if updated.Title != "Hello" {
		t.Errorf("title = %q", updated.Title)
	}
	if text, _ := updated.Body.LeafText(0); text != "Some words" {
		t.Errorf("body text = %q", text)
	}

	resp = do(t, srv, http.MethodPatch, "/api/posts/"+created.ID, "alice", `{"title":"Hello again"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("title-only patch status = %d", resp.StatusCode)
	}
	titled := decode[models.Post](t, resp)
	if text, _ := titled.Body.LeafText(0); text != "Some words" {
		t.Errorf("title-only patch changed body to %q", text)
	}

	resp = do(t, srv, http.MethodPost, "/api/posts/"+created.ID+"/publish", "alice", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d", resp.StatusCode)
	}
	if published := decode[models.Post](t, resp); published.Status != models.PostStatusPublished {
		t.Errorf("status = %q", published.Status)
	}

	resp = do(t, srv, http.MethodGet, "/api/posts/"+created.ID, "alice", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if got := decode[models.Post](t, resp); got.Title != "Hello again" || got.Status != models.PostStatusPublished {
		t.Errorf("got = %+v", got)
	}
}

func TestListPostsIsPerUser(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	createPost(t, srv, "alice", `{"title":"first"}`)
	createPost(t, srv, "alice", `{"title":"second"}`)
	createPost(t, srv, "bob", `{"title":"other"}`)

	resp := do(t, srv, http.MethodGet, "/api/posts", "alice", "")
	list := decode[models.PostList](t, resp)
	if list.Total != 2 || len(list.Posts) != 2 {
		t.Fatalf("list = %+v", list)
	}
	if list.Posts[0].Title != "second" {
		t.Errorf("most recently updated first, got %q", list.Posts[0].Title)
	}
}

func TestSearchPosts(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	createPost(t, srv, "alice", `{"title":"Spring garden"}`)
	createPost(t, srv, "alice", `{"title":"Winter"}`)
	createPost(t, srv, "bob", `{"title":"Bob's garden"}`)

	resp := do(t, srv, http.MethodGet, "/api/posts/search?q=garden", "alice", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	result := decode[models.PostSearchResult](t, resp)
	if result.Total != 1 || len(result.Hits) != 1 || result.Hits[0].Title != "Spring garden" {
		t.Errorf("result = %+v", result)
	}

	resp = do(t, srv, http.MethodGet, "/api/posts/search", "alice", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", resp.StatusCode)
	}
}

func TestPostErrors(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	post := createPost(t, srv, "alice", `{"title":"mine"}`)

	tests := []struct {
		name       string
		method     string
		path       string
		user       string
		body       string
		wantStatus int
	}{
		{"other user's post", http.MethodGet, "/api/posts/" + post.ID, "bob", "", http.StatusNotFound},
		{"other user can't publish", http.MethodPost, "/api/posts/" + post.ID + "/publish", "bob", "", http.StatusNotFound},
		{"malformed id", http.MethodGet, "/api/posts/not-a-uuid", "alice", "", http.StatusBadRequest},
		{"missing post", http.MethodGet, "/api/posts/6f1c1f8e-2d7a-4c53-9d7c-0b8d3f1f0a11", "alice", "", http.StatusNotFound},
		{"patched title too long", http.MethodPatch, "/api/posts/" + post.ID, "alice", `{"title":"` + strings.Repeat("x", 256) + `"}`, http.StatusBadRequest},
		{"empty patch", http.MethodPatch, "/api/posts/" + post.ID, "alice", `{}`, http.StatusBadRequest},
		{"unknown field", http.MethodPatch, "/api/posts/" + post.ID, "alice", `{"titel":"x"}`, http.StatusBadRequest},
		{"title too long", http.MethodPost, "/api/posts", "alice", `{"title":"` + strings.Repeat("x", 256) + `"}`, http.StatusBadRequest},
		{"unknown block type", http.MethodPatch, "/api/posts/" + post.ID, "alice",
			`{"content_json":{"root":{"type":"root","children":[{"type":"table"}]}}}`, http.StatusBadRequest},
		{"no body", http.MethodPost, "/api/posts", "alice", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, tt.method, tt.path, tt.user, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q", ct)
			}
			problem := decode[httputil.ProblemDetail](t, resp)
			if problem.Status != tt.wantStatus || problem.Detail == "" {
				t.Errorf("problem = %+v", problem)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	srv := newTestServer(t, &stubProvider{text: "  Fixed text.\n"})

	resp := do(t, srv, http.MethodPost, "/api/ai/generate", "alice", `{"content":"Fixd txt.","type":"grammar"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[models.GenerateResponse](t, resp)
	if got.Result != "Fixed text." || got.Type != models.GenerationModeGrammarFix {
		t.Errorf("response = %+v", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name       string
		provider   *stubProvider
		body       string
		wantStatus int
		wantDetail string
	}{
		{"empty content", &stubProvider{text: "x"}, `{"content":"","type":"summary"}`, http.StatusBadRequest, ""},
		{"unknown type", &stubProvider{text: "x"}, `{"content":"hi","type":"poem"}`, http.StatusBadRequest, ""},
		{"provider failure", &stubProvider{err: errors.New("upstream timeout")}, `{"content":"hi","type":"summary"}`,
			http.StatusBadGateway, "AI generation failed: upstream timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.provider)
			resp := do(t, srv, http.MethodPost, "/api/ai/generate", "alice", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			problem := decode[httputil.ProblemDetail](t, resp)
			if tt.wantDetail != "" && problem.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", problem.Detail, tt.wantDetail)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	checks := map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("connection refused") },
	}
	h := NewHealthHandler(checks)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var body healthResponse
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" || body.Checks["database"] != "ok" || body.Checks["cache"] != "connection refused" {
		t.Errorf("body = %+v", body)
	}
}

func TestPostWritesLoggedOnce(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	postService := service.NewPostService(memory.NewPostRepository(), memory.NewTransactionManager(), logger)
	mux := http.NewServeMux()
	NewPostHandler(postService, logger).RegisterRoutes(mux)

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httputil.WithUserID(req, "alice"))
		return rec
	}

	rec := serve(http.MethodPost, "/api/posts", `{"title":"once"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created models.Post
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if rec := serve(http.MethodPost, "/api/posts/"+created.ID+"/publish", ""); rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d", rec.Code)
	}

	for _, msg := range []string{`msg="post created"`, `msg="post published"`} {
		if n := strings.Count(logs.String(), msg); n != 1 {
			t.Errorf("%s logged %d times, want 1", msg, n)
		}
	}
}
