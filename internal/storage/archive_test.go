package storage

import (
	"testing"

	"inkwell/internal/doctree"
	"inkwell/internal/domain/models"
)

func TestObjectKey(t *testing.T) {
	got := ObjectKey(&models.Post{ID: "p1", UserID: "u1"})
	if got != "published/u1/p1.md" {
		t.Errorf("ObjectKey = %q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name string
		post *models.Post
		want string
	}{
		{
			name: "title and body",
			post: &models.Post{
				Title: "Hello",
				Body: doctree.Tree{Blocks: []doctree.Block{
					doctree.Paragraph(doctree.Text("Plain "), doctree.Styled("bold", doctree.Bold)),
					doctree.List(false, doctree.Item(doctree.Text("one")), doctree.Item(doctree.Text("two"))),
				}},
			},
			want: "# Hello\n\nPlain **bold**\n\n- one\n- two\n",
		},
		{
			name: "empty body",
			post: &models.Post{Title: "Blank", Body: doctree.New()},
			want: "# Blank\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderMarkdown(tt.post); got != tt.want {
				t.Errorf("RenderMarkdown = %q, want %q", got, tt.want)
			}
		})
	}
}
