package kidsnote

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// TokenEndpoint issues and refreshes OAuth tokens
	TokenEndpoint = "/o/token/"

	// MeInfoEndpoint returns the account and its children
	MeInfoEndpoint = "/v1/me/info/"

	// ReportsEndpoint is the per-child report feed, formatted with the child id
	ReportsEndpoint = "/v1_2/children/%d/reports/"

	// TokenScope is requested on every token grant
	TokenScope = "read write"
)

// ReportQuery holds the query parameters of a report page request.
// Page is the opaque cursor; empty requests the first page.
type ReportQuery struct {
	Page      string
	PageSize  int
	Center    string
	Class     string
	DateStart string
	DateEnd   string
	TZ        string
}

// Encode returns the URL query, omitting unset keys
func (q ReportQuery) Encode() string {
	params := url.Values{}
	if q.Page != "" {
		params.Set("page", q.Page)
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Center != "" {
		params.Set("center", q.Center)
	}
	if q.Class != "" {
		params.Set("cls", q.Class)
	}
	if q.DateStart != "" {
		params.Set("date_start", q.DateStart)
	}
	if q.DateEnd != "" {
		params.Set("date_end", q.DateEnd)
	}
	if q.TZ != "" {
		params.Set("tz", q.TZ)
	}
	return params.Encode()
}

// GetReportsPath builds the host-relative reports URL for a child
func GetReportsPath(childID uint64, q ReportQuery) string {
	path := fmt.Sprintf(ReportsEndpoint, childID)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	return path
}

// NextCursor turns a page's next value into the cursor for the following
// request. An absolute URL yields its page parameter; anything else is used
// verbatim. Empty means there are no more pages.
func NextCursor(next *string) string {
	if next == nil {
		return ""
	}
	v := strings.TrimSpace(*next)
	if v == "" {
		return ""
	}
	if u, err := url.Parse(v); err == nil && u.IsAbs() {
		if page := u.Query().Get("page"); page != "" {
			return page
		}
	}
	return v
}
