package doctree

import (
	"errors"
	"fmt"
)

// ErrInvalidSelection indicates a selection that does not address the tree.
var ErrInvalidSelection = errors.New("selection out of range")

// Point addresses a caret position: the rune offset within a leaf block.
// Leaves are numbered depth-first: top-level paragraphs and headings, and the
// items of top-level lists.
type Point struct {
	Leaf   int
	Offset int
}

func (p Point) before(q Point) bool {
	if p.Leaf != q.Leaf {
		return p.Leaf < q.Leaf
	}
	return p.Offset < q.Offset
}

// Selection is a transient range into a tree. Anchor is where the selection
// started and Focus where it ends; either may come first in document order.
type Selection struct {
	Anchor Point
	Focus  Point
}

// DocumentStart is the collapsed selection at the beginning of any tree.
var DocumentStart = Selection{}

// Caret returns a collapsed selection at p.
func Caret(p Point) Selection { return Selection{Anchor: p, Focus: p} }

// Range returns a selection from anchor to focus.
func Range(anchor, focus Point) Selection { return Selection{Anchor: anchor, Focus: focus} }

// IsCollapsed reports whether the selection is a caret.
func (s Selection) IsCollapsed() bool { return s.Anchor == s.Focus }

// Bounds returns the selection endpoints in document order.
func (s Selection) Bounds() (start, end Point) {
	if s.Focus.before(s.Anchor) {
		return s.Focus, s.Anchor
	}
	return s.Anchor, s.Focus
}

// CheckSelection verifies that both endpoints address the tree.
func (t Tree) CheckSelection(s Selection) error {
	refs := t.leaves()
	for _, p := range []Point{s.Anchor, s.Focus} {
		if p.Leaf < 0 || p.Leaf >= len(refs) {
			return fmt.Errorf("%w: leaf %d of %d", ErrInvalidSelection, p.Leaf, len(refs))
		}
		if n := runsLen(t.leafRuns(refs[p.Leaf])); p.Offset < 0 || p.Offset > n {
			return fmt.Errorf("%w: offset %d in leaf %d of length %d", ErrInvalidSelection, p.Offset, p.Leaf, n)
		}
	}
	return nil
}

// SelectedText returns the text spanned by the selection, with leaves joined
// by newlines.
func (t Tree) SelectedText(s Selection) (string, error) {
	if err := t.CheckSelection(s); err != nil {
		return "", err
	}
	refs := t.leaves()
	start, end := s.Bounds()
	var out []rune
	for i := start.Leaf; i <= end.Leaf; i++ {
		text := []rune(runsText(t.leafRuns(refs[i])))
		from, to := 0, len(text)
		if i == start.Leaf {
			from = start.Offset
		}
		if i == end.Leaf {
			to = end.Offset
		}
		if i > start.Leaf {
			out = append(out, '\n')
		}
		out = append(out, text[from:to]...)
	}
	return string(out), nil
}
