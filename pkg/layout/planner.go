package layout

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"knbackup/pkg/report"
)

const (
	rootPrefix   = "키즈노트 "
	reportFolder = "알림장"
	defaultExt   = "png"
)

// Paths is where one report's artifacts go
type Paths struct {
	Dir      string
	Text     string
	Rendered string
	Images   []ImagePath
}

// ImagePath pairs an attached image with its destination
type ImagePath struct {
	Image report.Image
	Path  string
}

// Planner maps reports to output paths. It performs no I/O.
type Planner struct {
	base string
	loc  *time.Location
}

// NewPlanner creates a planner rooted at base. Dates are taken in loc
// (UTC when nil).
func NewPlanner(base string, loc *time.Location) *Planner {
	if loc == nil {
		loc = time.UTC
	}
	return &Planner{base: base, loc: loc}
}

// Location returns the zone used for dates
func (p *Planner) Location() *time.Location {
	return p.loc
}

// ChildDir returns the top-level folder for a child
func (p *Planner) ChildDir(childName string) string {
	return filepath.Join(p.base, rootPrefix+SafeName(childName))
}

// Plan returns the paths for r
func (p *Planner) Plan(r report.Report) Paths {
	created := r.Created.In(p.loc)
	child := SafeName(r.ChildName)

	dir := filepath.Join(p.ChildDir(r.ChildName), reportFolder, created.Format("2006-01"))
	stem := fmt.Sprintf("%s_%s_%s_%d", created.Format("20060102"), child, reportFolder, r.ID)

	paths := Paths{
		Dir:      dir,
		Text:     filepath.Join(dir, stem+".txt"),
		Rendered: filepath.Join(dir, stem+".jpg"),
		Images:   make([]ImagePath, 0, len(r.Images)),
	}
	for _, img := range r.Images {
		paths.Images = append(paths.Images, ImagePath{
			Image: img,
			Path:  filepath.Join(dir, fmt.Sprintf("%s_%d.%s", stem, img.ID, Extension(img.FileName))),
		})
	}
	return paths
}

// Extension returns the lower-cased extension of name without the dot, or
// "png" when there is none
func Extension(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return defaultExt
	}
	return strings.ToLower(ext)
}

// SafeName NFC-normalizes name and replaces characters that are unsafe in
// file names with '_'. Empty names become "unknown".
func SafeName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return "unknown"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
