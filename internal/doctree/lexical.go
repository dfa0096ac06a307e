package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Lexical text format bits. Bits not listed here (strikethrough, code, ...)
// are dropped on decode.
const (
	formatBold      = 1
	formatItalic    = 2
	formatUnderline = 8
)

// MarshalJSON encodes the tree as a Lexical editor state:
// {"root":{"type":"root","children":[...]}}.
func (t Tree) MarshalJSON() ([]byte, error) {
	children := make([]interface{}, len(t.Blocks))
	for i, b := range t.Blocks {
		children[i] = encodeBlock(b, 0)
	}
	return json.Marshal(map[string]interface{}{
		"root": map[string]interface{}{
			"type":      "root",
			"version":   1,
			"direction": "ltr",
			"format":    "",
			"indent":    0,
			"children":  children,
		},
	})
}

func encodeBlock(b Block, position int) map[string]interface{} {
	node := map[string]interface{}{
		"version":   1,
		"direction": "ltr",
		"format":    "",
		"indent":    0,
	}

	switch b.Kind {
	case KindParagraph:
		node["type"] = "paragraph"
	case KindHeading:
		node["type"] = "heading"
		node["tag"] = "h" + strconv.Itoa(b.Level)
	case KindItem:
		node["type"] = "listitem"
		node["value"] = position + 1
	case KindList:
		node["type"] = "list"
		node["start"] = 1
		if b.Ordered {
			node["listType"] = "number"
			node["tag"] = "ol"
		} else {
			node["listType"] = "bullet"
			node["tag"] = "ul"
		}
		items := make([]interface{}, len(b.Items))
		for i, item := range b.Items {
			items[i] = encodeBlock(item, i)
		}
		node["children"] = items
		return node
	}

	runs := make([]interface{}, len(b.Runs))
	for i, r := range b.Runs {
		runs[i] = map[string]interface{}{
			"type":    "text",
			"version": 1,
			"detail":  0,
			"mode":    "normal",
			"style":   "",
			"text":    r.Text,
			"format":  encodeMarks(r.Marks),
		}
	}
	node["children"] = runs
	return node
}

func encodeMarks(m Marks) int {
	format := 0
	if m.Has(Bold) {
		format |= formatBold
	}
	if m.Has(Italic) {
		format |= formatItalic
	}
	if m.Has(Underline) {
		format |= formatUnderline
	}
	return format
}

func decodeMarks(format float64) Marks {
	f := int(format)
	var m Marks
	if f&formatBold != 0 {
		m |= Bold
	}
	if f&formatItalic != 0 {
		m |= Italic
	}
	if f&formatUnderline != 0 {
		m |= Underline
	}
	return m
}

// UnmarshalJSON decodes a Lexical editor state. null, {} and a root without
// children decode to the initial tree. The result is validated.
func (t *Tree) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// Decode parses a Lexical editor state into a validated tree.
func Decode(data []byte) (Tree, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return New(), nil
	}

	var state map[string]interface{}
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return Tree{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	root, ok := state["root"].(map[string]interface{})
	if !ok {
		if len(state) == 0 {
			return New(), nil
		}
		return Tree{}, fmt.Errorf("%w: missing root node", ErrMalformed)
	}

	children, _ := root["children"].([]interface{})
	if len(children) == 0 {
		return New(), nil
	}

	tree := Tree{Blocks: make([]Block, 0, len(children))}
	for i, child := range children {
		node, ok := child.(map[string]interface{})
		if !ok {
			return Tree{}, fmt.Errorf("%w: block %d is not an object", ErrMalformed, i)
		}
		b, err := decodeBlock(node)
		if err != nil {
			return Tree{}, fmt.Errorf("%w: block %d: %v", ErrMalformed, i, err)
		}
		tree.Blocks = append(tree.Blocks, b)
	}

	if err := tree.Validate(); err != nil {
		return Tree{}, err
	}
	return tree, nil
}

func decodeBlock(node map[string]interface{}) (Block, error) {
	nodeType, _ := node["type"].(string)
	children, _ := node["children"].([]interface{})

	switch nodeType {
	case "paragraph":
		runs, err := decodeRuns(children)
		return Block{Kind: KindParagraph, Runs: runs}, err
	case "heading":
		tag, _ := node["tag"].(string)
		level, err := headingLevel(tag)
		if err != nil {
			return Block{}, err
		}
		runs, err := decodeRuns(children)
		return Block{Kind: KindHeading, Level: level, Runs: runs}, err
	case "list":
		listType, _ := node["listType"].(string)
		list := Block{Kind: KindList, Ordered: listType == "number"}
		for j, child := range children {
			itemNode, ok := child.(map[string]interface{})
			if !ok {
				return Block{}, fmt.Errorf("item %d is not an object", j)
			}
			if itemType, _ := itemNode["type"].(string); itemType != "listitem" {
				return Block{}, fmt.Errorf("item %d has type %q", j, itemType)
			}
			itemChildren, _ := itemNode["children"].([]interface{})
			runs, err := decodeRuns(itemChildren)
			if err != nil {
				return Block{}, fmt.Errorf("item %d: %v", j, err)
			}
			list.Items = append(list.Items, Block{Kind: KindItem, Runs: runs})
		}
		return list, nil
	default:
		return Block{}, fmt.Errorf("unsupported block type %q", nodeType)
	}
}

func headingLevel(tag string) (int, error) {
	switch tag {
	case "h1":
		return 1, nil
	case "h2":
		return 2, nil
	case "h3":
		return 3, nil
	}
	return 0, fmt.Errorf("unsupported heading tag %q", tag)
}

func decodeRuns(children []interface{}) ([]Run, error) {
	var runs []Run
	for j, child := range children {
		node, ok := child.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("inline %d is not an object", j)
		}
		nodeType, _ := node["type"].(string)
		switch nodeType {
		case "text":
			text, _ := node["text"].(string)
			if text == "" {
				continue
			}
			format, _ := node["format"].(float64)
			runs = append(runs, Run{Text: text, Marks: decodeMarks(format)})
		case "linebreak":
			runs = append(runs, Run{Text: "\n"})
		default:
			return nil, fmt.Errorf("unsupported inline type %q", nodeType)
		}
	}
	return runs, nil
}
