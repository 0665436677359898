package render

import "strings"

// TextRenderer writes the plain-text dump of a document
type TextRenderer struct{}

// Render returns the header, a blank line and the body, newline terminated
func (TextRenderer) Render(doc Document) []byte {
	var b strings.Builder
	for _, h := range doc.Header() {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	for _, l := range doc.Lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
