package doctree

import (
	"fmt"
	"strings"
)

// Markdown renders the tree as Markdown. Underline has no Markdown syntax and
// is written as an inline <u> element.
func Markdown(t Tree) string {
	var builder strings.Builder
	for _, b := range t.Blocks {
		switch b.Kind {
		case KindHeading:
			builder.WriteString(strings.Repeat("#", b.Level))
			builder.WriteString(" ")
			writeInline(&builder, b.Runs)
			builder.WriteString("\n\n")
		case KindList:
			for i, item := range b.Items {
				if b.Ordered {
					builder.WriteString(fmt.Sprintf("%d. ", i+1))
				} else {
					builder.WriteString("- ")
				}
				writeInline(&builder, item.Runs)
				builder.WriteString("\n")
			}
			builder.WriteString("\n")
		default:
			writeInline(&builder, b.Runs)
			builder.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(builder.String())
}

func writeInline(builder *strings.Builder, runs []Run) {
	for _, r := range runs {
		builder.WriteString(applyMarks(r.Text, r.Marks))
	}
}

func applyMarks(text string, m Marks) string {
	// Keep surrounding whitespace outside the markers so the result still
	// parses as emphasis.
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || m == 0 {
		return text
	}
	lead := text[:strings.Index(text, trimmed)]
	trail := text[len(lead)+len(trimmed):]

	result := trimmed
	if m.Has(Underline) {
		result = "<u>" + result + "</u>"
	}
	if m.Has(Italic) {
		result = "*" + result + "*"
	}
	if m.Has(Bold) {
		result = "**" + result + "**"
	}
	return lead + result + trail
}
