// Package doctree models the rich-text body of a post: an ordered sequence of
// blocks whose leaves hold formatted text runs.
//
// Trees are plain values. Every mutation in this package is a pure function
// that returns a new Tree and never aliases the input's slices, so callers can
// keep old trees around (undo, comparisons) without copying them first.
package doctree

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMalformed indicates a tree that violates the structural rules.
	ErrMalformed = errors.New("malformed document tree")

	// ErrEmptyDocument indicates a tree whose text content is empty or whitespace-only.
	ErrEmptyDocument = errors.New("document has no text content")
)

// Marks is the set of inline formatting marks applied to a run.
type Marks uint8

const (
	Bold Marks = 1 << iota
	Italic
	Underline
)

// Has reports whether every mark in m is set.
func (ms Marks) Has(m Marks) bool { return ms&m == m }

func (ms Marks) String() string {
	var names []string
	if ms.Has(Bold) {
		names = append(names, "bold")
	}
	if ms.Has(Italic) {
		names = append(names, "italic")
	}
	if ms.Has(Underline) {
		names = append(names, "underline")
	}
	return strings.Join(names, "+")
}

// Run is a contiguous span of text sharing the same marks.
type Run struct {
	Text  string
	Marks Marks
}

// BlockKind identifies the structural role of a block.
type BlockKind string

const (
	KindParagraph BlockKind = "paragraph"
	KindHeading   BlockKind = "heading"
	KindList      BlockKind = "list"
	KindItem      BlockKind = "item"
)

// Block is a structural unit of the document. Paragraphs, headings and list
// items hold Runs; lists hold Items.
type Block struct {
	Kind    BlockKind
	Level   int  // heading level, 1-3
	Ordered bool // list numbering
	Runs    []Run
	Items   []Block
}

// Tree is the document body.
type Tree struct {
	Blocks []Block
}

// New returns the initial tree: a single empty paragraph.
func New() Tree {
	return Tree{Blocks: []Block{Paragraph()}}
}

// Text returns an unformatted run.
func Text(s string) Run { return Run{Text: s} }

// Styled returns a run with the given marks.
func Styled(s string, marks Marks) Run { return Run{Text: s, Marks: marks} }

// Paragraph returns a paragraph block. A paragraph with no runs is a blank line.
func Paragraph(runs ...Run) Block {
	return Block{Kind: KindParagraph, Runs: runs}
}

// Heading returns a heading block of the given level.
func Heading(level int, runs ...Run) Block {
	return Block{Kind: KindHeading, Level: level, Runs: runs}
}

// List returns a list block containing the given items.
func List(ordered bool, items ...Block) Block {
	return Block{Kind: KindList, Ordered: ordered, Items: items}
}

// Item returns a list item block.
func Item(runs ...Run) Block {
	return Block{Kind: KindItem, Runs: runs}
}

// Text returns the concatenated text of the block's runs, or of its items
// separated by blank lines for lists.
func (b Block) Text() string {
	if b.Kind == KindList {
		parts := make([]string, len(b.Items))
		for i, item := range b.Items {
			parts[i] = item.Text()
		}
		return strings.Join(parts, "\n\n")
	}
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func (b Block) clone() Block {
	out := b
	if b.Runs != nil {
		out.Runs = append([]Run(nil), b.Runs...)
	}
	if b.Items != nil {
		out.Items = make([]Block, len(b.Items))
		for i, item := range b.Items {
			out.Items[i] = item.clone()
		}
	}
	return out
}

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	out := Tree{Blocks: make([]Block, len(t.Blocks))}
	for i, b := range t.Blocks {
		out.Blocks[i] = b.clone()
	}
	return out
}

// Equal reports whether two trees have identical structure, text and marks.
func (t Tree) Equal(other Tree) bool {
	if len(t.Blocks) != len(other.Blocks) {
		return false
	}
	for i := range t.Blocks {
		if !blocksEqual(t.Blocks[i], other.Blocks[i]) {
			return false
		}
	}
	return true
}

func blocksEqual(a, b Block) bool {
	if a.Kind != b.Kind || a.Level != b.Level || a.Ordered != b.Ordered {
		return false
	}
	if len(a.Runs) != len(b.Runs) || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Runs {
		if a.Runs[i] != b.Runs[i] {
			return false
		}
	}
	for i := range a.Items {
		if !blocksEqual(a.Items[i], b.Items[i]) {
			return false
		}
	}
	return true
}

// Validate checks the structural rules: at least one block, heading levels
// 1-3, lists hold only items, text blocks hold no nested blocks, and no run
// is empty.
func (t Tree) Validate() error {
	if len(t.Blocks) == 0 {
		return fmt.Errorf("%w: no blocks", ErrMalformed)
	}
	for i, b := range t.Blocks {
		if err := validateBlock(b, false); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrMalformed, i, err)
		}
	}
	return nil
}

func validateBlock(b Block, inList bool) error {
	switch b.Kind {
	case KindParagraph, KindHeading:
		if inList {
			return fmt.Errorf("%s inside list", b.Kind)
		}
		if b.Kind == KindHeading && (b.Level < 1 || b.Level > 3) {
			return fmt.Errorf("heading level %d out of range", b.Level)
		}
	case KindItem:
		if !inList {
			return errors.New("list item outside list")
		}
	case KindList:
		if inList {
			return errors.New("nested list")
		}
		if len(b.Runs) > 0 {
			return errors.New("list holds runs")
		}
		for j, item := range b.Items {
			if err := validateBlock(item, true); err != nil {
				return fmt.Errorf("item %d: %v", j, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown block kind %q", b.Kind)
	}
	if len(b.Items) > 0 {
		return fmt.Errorf("%s holds nested blocks", b.Kind)
	}
	for j, r := range b.Runs {
		if r.Text == "" {
			return fmt.Errorf("run %d is empty", j)
		}
	}
	return nil
}

// leafRef addresses a text-holding block: a top-level paragraph or heading
// (item == -1) or an item of a top-level list.
type leafRef struct {
	block int
	item  int
}

func (t Tree) leaves() []leafRef {
	var refs []leafRef
	for i, b := range t.Blocks {
		if b.Kind == KindList {
			for j := range b.Items {
				refs = append(refs, leafRef{block: i, item: j})
			}
			continue
		}
		refs = append(refs, leafRef{block: i, item: -1})
	}
	return refs
}

func (t Tree) leafRuns(ref leafRef) []Run {
	b := t.Blocks[ref.block]
	if ref.item >= 0 {
		return b.Items[ref.item].Runs
	}
	return b.Runs
}

// LeafCount returns the number of text-holding blocks.
func (t Tree) LeafCount() int {
	return len(t.leaves())
}

// LeafText returns the text of the leaf at index i.
func (t Tree) LeafText(i int) (string, bool) {
	refs := t.leaves()
	if i < 0 || i >= len(refs) {
		return "", false
	}
	return runsText(t.leafRuns(refs[i])), true
}

func runsText(runs []Run) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func runsLen(runs []Run) int {
	n := 0
	for _, r := range runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}
