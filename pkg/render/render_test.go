package render

import (
	"bytes"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"knbackup/pkg/report"
)

func sampleReport() report.Report {
	return report.Report{
		ID:         1,
		Created:    time.Date(2024, 3, 3, 16, 30, 0, 0, time.UTC),
		AuthorName: "Teacher Lee",
		CenterName: "Acorn Center",
		Content:    "  Hello  world \r\nsecond   line\n\n  third",
	}
}

func TestNewDocument(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	doc, ok := NewDocument(sampleReport(), loc)
	require.True(t, ok)
	assert.Equal(t, "제목 : 2024년 3월 4일 알림장", doc.Title)
	assert.Equal(t, []string{"Hello world", "second  line", "", "third"}, doc.Lines)
	assert.Equal(t, []string{doc.Title, "원 : Acorn Center", "작성자 : Teacher Lee"}, doc.Header())

	r := sampleReport()
	r.Content = "   \n "
	_, ok = NewDocument(r, loc)
	assert.False(t, ok)
}

func TestCleanLinesTrailingNewline(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, CleanLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, CleanLines("a\r\nb\r\n"))
	assert.Equal(t, []string{"a", "", "b"}, CleanLines("a\n\nb\n  \n"))
	assert.Equal(t, []string{"single"}, CleanLines("single"))

	doc := Document{Title: "t", Author: "a", Lines: CleanLines("one\ntwo\n")}
	assert.Equal(t, "t\n작성자 : a\n\none\ntwo\n", string(TextRenderer{}.Render(doc)))
}

func TestHeaderWithoutCenter(t *testing.T) {
	doc := Document{Title: "t", Author: "a"}
	assert.Equal(t, []string{"t", "작성자 : a"}, doc.Header())
}

func TestTextRenderer(t *testing.T) {
	doc := Document{Title: "제목 : 2024년 3월 4일 알림장", Author: "Lee", Lines: []string{"one", "two"}}
	got := string(TextRenderer{}.Render(doc))
	assert.Equal(t, "제목 : 2024년 3월 4일 알림장\n작성자 : Lee\n\none\ntwo\n", got)
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"short"}, WrapText("short", 10))
	assert.Equal(t, []string{"anything"}, WrapText("anything", 0))
	assert.Equal(t, []string{"hello", "world foo"}, WrapText("hello world foo", 10))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, WrapText("abcdefghijk", 5))

	// hangul syllables are two columns wide
	lines := WrapText("가나다라마바사", 6)
	assert.Equal(t, []string{"가나다", "라마바", "사"}, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, runewidth.StringWidth(l), 6)
	}
}

func TestImageRendererBuiltinFace(t *testing.T) {
	ir, err := NewImageRenderer("", 0, 40)
	require.NoError(t, err)
	assert.False(t, ir.HasGlyphs("가"))
	assert.True(t, ir.HasGlyphs("abc"))

	doc := Document{Title: "title", Author: "author", Lines: []string{"line one", strings.Repeat("x", 100)}}
	data, err := ir.Render(doc)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	// 2 header lines + gap + 4 wrapped body lines (8, 40, 40, 20)
	step := 20
	assert.Equal(t, 2*margin+step*(2+1+4), b.Dy())
	assert.LessOrEqual(t, b.Dx(), 2*margin+40*7)
}

func TestImageRendererTrueType(t *testing.T) {
	fontPath := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(fontPath, goregular.TTF, 0644))

	ir, err := NewImageRenderer(fontPath, 24, 0)
	require.NoError(t, err)

	data, err := ir.Render(Document{Title: "Title", Author: "Author", Lines: []string{"body"}})
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestImageRendererBadFont(t *testing.T) {
	_, err := NewImageRenderer(filepath.Join(t.TempDir(), "missing.ttf"), 24, 0)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.ttf")
	require.NoError(t, os.WriteFile(bad, []byte("not a font"), 0644))
	_, err = NewImageRenderer(bad, 24, 0)
	assert.Error(t, err)
}
