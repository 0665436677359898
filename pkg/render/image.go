package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	margin      = 10
	lineSpacing = 1.5
	maxWidth    = 4096
	jpegQuality = 90
)

// ImageRenderer rasterizes a document into a JPEG
type ImageRenderer struct {
	face      font.Face
	builtin   bool
	size      float64
	wrapWidth int
}

// NewImageRenderer loads the TrueType/OpenType font at fontPath at size
// points. An empty fontPath falls back to a built-in bitmap face that has no
// Hangul glyphs. wrapWidth is in terminal columns (a wide rune counts as 2);
// zero disables wrapping.
func NewImageRenderer(fontPath string, size float64, wrapWidth int) (*ImageRenderer, error) {
	if fontPath == "" {
		return &ImageRenderer{face: basicfont.Face7x13, builtin: true, size: 13, wrapWidth: wrapWidth}, nil
	}
	if size <= 0 {
		size = 24
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", fontPath, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	return &ImageRenderer{face: face, size: size, wrapWidth: wrapWidth}, nil
}

// HasGlyphs reports whether the face can draw every rune of s
func (ir *ImageRenderer) HasGlyphs(s string) bool {
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if ir.builtin {
			if r > unicode.MaxASCII {
				return false
			}
			continue
		}
		if _, ok := ir.face.GlyphAdvance(r); !ok {
			return false
		}
	}
	return true
}

// Render draws black text on white: the header lines, a gap, then the wrapped
// body, and encodes the result as JPEG
func (ir *ImageRenderer) Render(doc Document) ([]byte, error) {
	header := doc.Header()
	var body []string
	for _, l := range doc.Lines {
		body = append(body, WrapText(l, ir.wrapWidth)...)
	}

	step := int(math.Ceil(ir.size * lineSpacing))
	ascent := ir.face.Metrics().Ascent.Ceil()

	width := 0
	for _, l := range append(append([]string{}, header...), body...) {
		if w := font.MeasureString(ir.face, l).Ceil(); w > width {
			width = w
		}
	}
	width += 2 * margin
	if width > maxWidth {
		width = maxWidth
	}
	height := margin*2 + step*(len(header)+1+len(body))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: ir.face}
	y := margin + ascent
	for _, l := range header {
		d.Dot = fixed.P(margin, y)
		d.DrawString(l)
		y += step
	}
	y += step
	for _, l := range body {
		d.Dot = fixed.P(margin, y)
		d.DrawString(l)
		y += step
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// WrapText splits s into pieces no wider than width display columns,
// breaking at the last space when there is one. width <= 0 returns s as is.
func WrapText(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	runes := []rune(s)
	for len(runes) > 0 {
		cols, cut, lastSpace := 0, len(runes), -1
		for i, r := range runes {
			w := runewidth.RuneWidth(r)
			if cols+w > width {
				cut = i
				break
			}
			if r == ' ' {
				lastSpace = i
			}
			cols += w
		}
		if cut == len(runes) {
			lines = append(lines, string(runes))
			break
		}
		if lastSpace > 0 {
			cut = lastSpace
		}
		if cut == 0 {
			cut = 1
		}
		lines = append(lines, strings.TrimRight(string(runes[:cut]), " "))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " "))
	}
	return lines
}
