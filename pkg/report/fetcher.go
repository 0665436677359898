package report

import (
	"context"

	"knbackup/pkg/kidsnote"
	"knbackup/pkg/logger"
	"knbackup/pkg/ratelimit"
)

// DefaultMaxPages stops runaway pagination
const DefaultMaxPages = 10000

// API is the part of the Kidsnote client the fetcher needs
type API interface {
	GetReports(ctx context.Context, childID uint64, q kidsnote.ReportQuery) (*kidsnote.ReportPage, error)
}

// Handler receives each page of reports in order. An error aborts the child.
type Handler func(ctx context.Context, reports []Report) error

// Fetcher walks a child's paged report feed
type Fetcher struct {
	api      API
	pacer    ratelimit.Limiter
	maxPages int
	pageSize int
	logger   logger.Logger
}

// NewFetcher creates a fetcher. pacer spaces page requests; maxPages <= 0
// uses DefaultMaxPages.
func NewFetcher(api API, pacer ratelimit.Limiter, maxPages, pageSize int, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if pacer == nil {
		pacer = ratelimit.NewInterval(0)
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Fetcher{
		api:      api,
		pacer:    pacer,
		maxPages: maxPages,
		pageSize: pageSize,
		logger:   logger.ForStage(log, logger.StageReport),
	}
}

// FetchAll pages through child's reports within filter, handing each batch to
// handle before requesting the next. It stops on an empty batch or an empty
// cursor and returns the number of reports handed out.
func (f *Fetcher) FetchAll(ctx context.Context, child kidsnote.Child, filter DateFilter, handle Handler) (int, error) {
	centers := NewCenterLookup(child)
	log := f.logger.WithFields(map[string]interface{}{
		"child_id":   child.ID,
		"child_name": child.Name,
	})

	q := kidsnote.ReportQuery{PageSize: f.pageSize}
	filter.Apply(&q)

	total := 0
	for page := 1; ; page++ {
		if page > f.maxPages {
			log.WarnWithFields("page limit reached, stopping", map[string]interface{}{
				"max_pages": f.maxPages,
				"reports":   total,
			})
			return total, nil
		}

		if err := f.pacer.Wait(ctx); err != nil {
			return total, err
		}

		resp, err := f.api.GetReports(ctx, child.ID, q)
		if err != nil {
			return total, err
		}
		q.Page = kidsnote.NextCursor(resp.Next)

		if len(resp.Results) == 0 {
			log.DebugWithFields("empty page, done", map[string]interface{}{"page": page})
			return total, nil
		}

		batch := make([]Report, 0, len(resp.Results))
		for _, e := range resp.Results {
			r := FromEntry(e, centers)
			// folders follow the account's child, not the per-entry copy
			r.ChildID = child.ID
			if child.Name != "" {
				r.ChildName = child.Name
			}
			batch = append(batch, r)
		}

		log.DebugWithFields("fetched report page", map[string]interface{}{
			"page":    page,
			"reports": len(batch),
			"count":   resp.Count,
		})

		if err := handle(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)

		if q.Page == "" {
			return total, nil
		}
	}
}
