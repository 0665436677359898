package report

import (
	"strings"
	"time"

	"knbackup/pkg/kidsnote"
)

// Report is one childcare report ready to be archived
type Report struct {
	ID         uint64
	Created    time.Time
	AuthorName string
	CenterID   *uint64
	CenterName string
	ClassID    uint64
	ClassName  string
	ChildID    uint64
	ChildName  string
	Content    string
	Images     []Image
}

// Image is an attached image. URL is the original-resolution source.
type Image struct {
	ID       uint64
	FileName string
	Size     int64
	URL      string
}

// HasContent reports whether the report carries a text body
func (r Report) HasContent() bool {
	return strings.TrimSpace(r.Content) != ""
}

// CenterLookup resolves center ids to names for one child
type CenterLookup map[uint64]string

// NewCenterLookup builds the lookup from a child's enrollments. The first
// name seen for an id wins.
func NewCenterLookup(child kidsnote.Child) CenterLookup {
	lookup := make(CenterLookup, len(child.Enrollments))
	for _, e := range child.Enrollments {
		if _, ok := lookup[e.CenterID]; !ok {
			lookup[e.CenterID] = e.CenterName
		}
	}
	return lookup
}

// Name returns the center name for id, or "" when unknown or absent
func (l CenterLookup) Name(id *uint64) string {
	if id == nil {
		return ""
	}
	return l[*id]
}

// FromEntry maps an API entry into a Report
func FromEntry(e kidsnote.ReportEntry, centers CenterLookup) Report {
	images := make([]Image, 0, len(e.AttachedImages))
	for _, img := range e.AttachedImages {
		images = append(images, Image{
			ID:       img.ID,
			FileName: img.OriginalFileName,
			Size:     img.FileSize,
			URL:      img.Original,
		})
	}

	author := e.AuthorName
	if author == "" {
		author = e.Author.Name
	}

	return Report{
		ID:         e.ID,
		Created:    e.Created,
		AuthorName: author,
		CenterID:   e.Center,
		CenterName: centers.Name(e.Center),
		ClassID:    e.Class,
		ClassName:  e.ClassName,
		ChildID:    e.Child,
		ChildName:  e.ChildName,
		Content:    e.Content,
		Images:     images,
	}
}
