package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"inkwell/internal/client"
	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/editor"
	"inkwell/internal/repository/memory"
	"inkwell/internal/service"
)

type scriptedGenerator struct {
	result string
	err    error
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string, _ models.GenerationMode) (string, error) {
	return g.result, g.err
}

func runScript(t *testing.T, gen editor.Generator, script ...string) (string, *client.LocalStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	posts := client.NewLocalStore(
		service.NewPostService(memory.NewPostRepository(), memory.NewTransactionManager(), logger),
		"tester",
	)
	session := editor.New(posts, gen, editor.WithLogger(logger), editor.WithAutosaveDelay(time.Hour))
	t.Cleanup(session.Close)

	var out bytes.Buffer
	r := newREPL(session, posts, &out)
	if err := r.Run(context.Background(), strings.NewReader(strings.Join(script, "\n"))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out.String(), posts
}

func TestREPLWriteAndPublish(t *testing.T) {
	out, posts := runScript(t, &scriptedGenerator{},
		"new My first post",
		"heading 1 Intro",
		"append Hello world",
		"status",
		"publish",
		"export",
		"search hello",
	)

	for _, want := range []string{`opened`, `"My first post"`, "save:       dirty", "words:      3", "published", "# Intro", "Hello world", `1 match(es) for "hello"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	list, err := posts.List(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
	if list[0].Status != models.PostStatusPublished {
		t.Errorf("status = %q", list[0].Status)
	}
	if got := doctree.PlainText(list[0].Body); got != "Intro\n\nHello world" {
		t.Errorf("stored body = %q", got)
	}
}

func TestREPLGrammarFixOnSelection(t *testing.T) {
	out, posts := runScript(t, &scriptedGenerator{result: "the"},
		"new Typos",
		"append I saw teh cat",
		"select 0 6 9",
		"gen grammar",
		"accept",
		"quit",
	)

	if !strings.Contains(out, `selected "teh"`) {
		t.Errorf("output missing selection:\n%s", out)
	}
	list, _ := posts.List(context.Background())
	if got := doctree.PlainText(list[0].Body); got != "I saw the cat" {
		t.Errorf("body after quit = %q", got)
	}
}

func TestREPLErrors(t *testing.T) {
	out, _ := runScript(t, &scriptedGenerator{err: errors.New("model overloaded")},
		"frobnicate",
		"append nothing open",
		"new Empty",
		"gen summary",
		"append Some text",
		"gen summary",
		"status",
		"gen poem",
		"accept",
		"heading 9 Too deep",
	)

	wants := []string{
		`unknown command "frobnicate"`,
		"no post open, use 'new' or 'open'",
		"No content to process. Write something first.",
		"AI generation failed: model overloaded",
		"generation: errored",
		"type must be summary or grammar",
		"nothing to accept or discard",
		"usage: heading <1-3> <text>",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrBusy, "another request is still running"},
		{&domain.PublishError{Saved: true, Err: errors.New("boom")}, "publish failed: boom"},
		{&domain.GenerationError{Detail: "AI generation failed: x"}, "AI generation failed: x"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := describe(tt.err); got != tt.want {
			t.Errorf("describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
