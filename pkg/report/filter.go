package report

import (
	"time"

	"knbackup/pkg/errors"
	"knbackup/pkg/kidsnote"
)

const dateLayout = "2006-01-02"

// DateFilter restricts the report feed to a date range (YYYY-MM-DD, inclusive)
type DateFilter struct {
	Start string
	End   string
	TZ    string
}

// IsZero reports whether no range is set
func (f DateFilter) IsZero() bool {
	return f.Start == "" && f.End == ""
}

// Normalize fills a one-sided range from the other side and sets tz when a
// range is present
func (f DateFilter) Normalize(tz string) DateFilter {
	switch {
	case f.Start != "" && f.End == "":
		f.End = f.Start
	case f.Start == "" && f.End != "":
		f.Start = f.End
	}

	if f.IsZero() {
		f.TZ = ""
	} else if f.TZ == "" {
		f.TZ = tz
	}
	return f
}

// Validate rejects malformed dates and inverted ranges
func (f DateFilter) Validate() error {
	var start, end time.Time
	var err error

	if f.Start != "" {
		if start, err = time.Parse(dateLayout, f.Start); err != nil {
			return errors.Wrap(errors.ErrorTypeInvalidArgs, err, "invalid start date %q (want YYYY-MM-DD)", f.Start)
		}
	}
	if f.End != "" {
		if end, err = time.Parse(dateLayout, f.End); err != nil {
			return errors.Wrap(errors.ErrorTypeInvalidArgs, err, "invalid end date %q (want YYYY-MM-DD)", f.End)
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return errors.New(errors.ErrorTypeInvalidArgs, "start date %s is after end date %s", f.Start, f.End)
	}
	return nil
}

// Apply copies the range into a report query
func (f DateFilter) Apply(q *kidsnote.ReportQuery) {
	q.DateStart = f.Start
	q.DateEnd = f.End
	q.TZ = f.TZ
}
