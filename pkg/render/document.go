package render

import (
	"fmt"
	"strings"
	"time"

	"knbackup/pkg/report"
)

const reportKind = "알림장"

// Document is the printable form of a report body
type Document struct {
	Title  string
	Center string
	Author string
	Lines  []string
}

// NewDocument builds the document for r with dates taken in loc. ok is false
// when the report has no text worth rendering.
func NewDocument(r report.Report, loc *time.Location) (doc Document, ok bool) {
	if !r.HasContent() {
		return Document{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	created := r.Created.In(loc)
	return Document{
		Title:  fmt.Sprintf("제목 : %d년 %d월 %d일 %s", created.Year(), int(created.Month()), created.Day(), reportKind),
		Center: r.CenterName,
		Author: r.AuthorName,
		Lines:  CleanLines(r.Content),
	}, true
}

// CleanLines collapses double spaces and splits content into trimmed lines
func CleanLines(content string) []string {
	content = strings.ReplaceAll(content, "  ", " ")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSpace(l))
	}
	// a closing newline leaves no blank line behind
	for len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Header returns the title, center and author lines that precede the body
func (d Document) Header() []string {
	header := []string{d.Title}
	if d.Center != "" {
		header = append(header, "원 : "+d.Center)
	}
	return append(header, "작성자 : "+d.Author)
}
