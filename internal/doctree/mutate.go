package doctree

import (
	"errors"
	"strings"
	"unicode"
)

// ErrCollapsedSelection indicates a selection-local edit requested with a caret.
var ErrCollapsedSelection = errors.New("selection is collapsed")

// ReplaceWholeDocument builds a new tree from text. Each line becomes one
// paragraph: blank or whitespace-only lines become empty paragraphs, any other
// line becomes a paragraph with a single unformatted run holding the line
// verbatim. The empty string yields one empty paragraph.
func ReplaceWholeDocument(text string) Tree {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	blocks := make([]Block, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			blocks[i] = Paragraph()
			continue
		}
		blocks[i] = Paragraph(Text(line))
	}
	return Tree{Blocks: blocks}
}

// ReplaceSelection deletes the content spanned by a non-collapsed selection
// and inserts text as a single run at the start of the range. Leaves between
// the endpoints are removed and the tail of the last leaf joins the first.
// Blocks outside the range are carried over unchanged. The inserted run takes
// the marks of the first selected character. The returned selection is a
// caret just after the inserted text.
func ReplaceSelection(t Tree, sel Selection, text string) (Tree, Selection, error) {
	if sel.IsCollapsed() {
		return Tree{}, Selection{}, ErrCollapsedSelection
	}
	if err := t.CheckSelection(sel); err != nil {
		return Tree{}, Selection{}, err
	}

	refs := t.leaves()
	start, end := sel.Bounds()
	startRuns := t.leafRuns(refs[start.Leaf])
	endRuns := t.leafRuns(refs[end.Leaf])

	head := sliceRuns(startRuns, 0, start.Offset)
	tail := sliceRuns(endRuns, end.Offset, runsLen(endRuns))

	joined := make([]Run, 0, len(head)+len(tail)+1)
	joined = append(joined, head...)
	if text != "" {
		joined = append(joined, Run{Text: text, Marks: marksAt(startRuns, start.Offset)})
	}
	joined = append(joined, tail...)
	joined = normalizeRuns(joined)

	dropped := func(leaf int) bool { return leaf > start.Leaf && leaf <= end.Leaf }

	out := Tree{Blocks: make([]Block, 0, len(t.Blocks))}
	leaf := 0
	for _, b := range t.Blocks {
		if b.Kind != KindList {
			if !dropped(leaf) {
				nb := b.clone()
				if leaf == start.Leaf {
					nb.Runs = joined
				}
				out.Blocks = append(out.Blocks, nb)
			}
			leaf++
			continue
		}

		list := Block{Kind: KindList, Ordered: b.Ordered}
		for _, item := range b.Items {
			if !dropped(leaf) {
				ni := item.clone()
				if leaf == start.Leaf {
					ni.Runs = joined
				}
				list.Items = append(list.Items, ni)
			}
			leaf++
		}
		if len(list.Items) > 0 {
			out.Blocks = append(out.Blocks, list)
		}
	}

	caret := Point{Leaf: start.Leaf, Offset: start.Offset + len([]rune(text))}
	return out, Caret(caret), nil
}

// sliceRuns returns the runs covering rune offsets [from, to), splitting runs
// at the boundaries.
func sliceRuns(runs []Run, from, to int) []Run {
	var out []Run
	pos := 0
	for _, r := range runs {
		rs := []rune(r.Text)
		rStart, rEnd := pos, pos+len(rs)
		pos = rEnd
		lo, hi := max(from, rStart), min(to, rEnd)
		if lo >= hi {
			continue
		}
		out = append(out, Run{Text: string(rs[lo-rStart : hi-rStart]), Marks: r.Marks})
	}
	return out
}

// marksAt returns the marks of the character at offset, or of the character
// before it when offset is at the end of the runs.
func marksAt(runs []Run, offset int) Marks {
	pos := 0
	var last Marks
	for _, r := range runs {
		n := len([]rune(r.Text))
		if offset < pos+n {
			return r.Marks
		}
		pos += n
		last = r.Marks
	}
	return last
}

// normalizeRuns drops empty runs and merges neighbours with equal marks.
func normalizeRuns(runs []Run) []Run {
	var out []Run
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Marks == r.Marks {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}

// PlainText projects the tree to text, depth-first, ignoring marks. Blocks
// and list items are separated by a blank line.
func PlainText(t Tree) string {
	parts := make([]string, len(t.Blocks))
	for i, b := range t.Blocks {
		parts[i] = b.Text()
	}
	return strings.Join(parts, "\n\n")
}

// ExtractPlainText returns the plain-text projection, or ErrEmptyDocument if
// it holds nothing but whitespace.
func ExtractPlainText(t Tree) (string, error) {
	text := PlainText(t)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// WordCount counts whitespace-separated words in the tree's text.
func WordCount(t Tree) int {
	return len(strings.FieldsFunc(PlainText(t), unicode.IsSpace))
}
