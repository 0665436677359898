package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"knbackup/pkg/errors"
	"knbackup/pkg/layout"
	"knbackup/pkg/logger"
	"knbackup/pkg/ratelimit"
	"knbackup/pkg/render"
	"knbackup/pkg/report"
	"knbackup/pkg/retry"
	"knbackup/pkg/storage"
)

// Outcome is the result of one image download
type Outcome int

const (
	Fetched Outcome = iota
	Skipped
	Failed
	DryRun
)

func (o Outcome) String() string {
	switch o {
	case Fetched:
		return "fetched"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case DryRun:
		return "dry_run"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ResourceFetcher downloads asset URLs
type ResourceFetcher interface {
	FetchResource(ctx context.Context, url string) ([]byte, error)
}

// ImageRenderer turns a document into an encoded image
type ImageRenderer interface {
	Render(doc render.Document) ([]byte, error)
}

// Options tunes downloads
type Options struct {
	Attempts       int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
	DryRun         bool
}

// ImageResult records what happened to one attached image
type ImageResult struct {
	Image    report.Image
	Path     string
	Outcome  Outcome
	Size     int64
	Err      error
	Duration time.Duration
}

// ReportResult records what happened to one report
type ReportResult struct {
	ReportID     uint64
	Paths        layout.Paths
	TextWritten  bool
	ImageWritten bool
	RenderErrors int
	Images       []ImageResult
}

// Count returns how many images ended with outcome o
func (r ReportResult) Count(o Outcome) int {
	n := 0
	for _, img := range r.Images {
		if img.Outcome == o {
			n++
		}
	}
	return n
}

// Downloader archives reports one at a time
type Downloader struct {
	client  ResourceFetcher
	storage *storage.Manager
	planner *layout.Planner
	text    render.TextRenderer
	image   ImageRenderer
	pacer   ratelimit.Limiter
	opts    Options
	logger  logger.Logger
}

// New creates a downloader. A nil image renderer disables the .jpg rendering
// of report text; a nil pacer never waits.
func New(
	client ResourceFetcher,
	storageManager *storage.Manager,
	planner *layout.Planner,
	image ImageRenderer,
	pacer ratelimit.Limiter,
	opts Options,
	log logger.Logger,
) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if pacer == nil {
		pacer = ratelimit.NewInterval(0)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 5 * time.Second
	}

	return &Downloader{
		client:  client,
		storage: storageManager,
		planner: planner,
		image:   image,
		pacer:   pacer,
		opts:    opts,
		logger:  log,
	}
}

// ProcessReport writes the text artifacts of r and downloads its images.
// Failures are logged and recorded in the result; only cancellation stops
// the image loop early.
func (d *Downloader) ProcessReport(ctx context.Context, r report.Report) ReportResult {
	paths := d.planner.Plan(r)
	result := ReportResult{ReportID: r.ID, Paths: paths}

	log := d.logger.WithFields(map[string]interface{}{
		"child_name": r.ChildName,
		"report_id":  r.ID,
	})

	d.renderText(r, paths, &result, log)

	imgLog := logger.ForStage(log, logger.StageImage)
	for _, ip := range paths.Images {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		outcome, size, err := d.FetchAndStore(ctx, ip.Image.URL, ip.Image.Size, ip.Path, r.Created)
		res := ImageResult{
			Image:    ip.Image,
			Path:     ip.Path,
			Outcome:  outcome,
			Size:     size,
			Err:      err,
			Duration: time.Since(start),
		}
		result.Images = append(result.Images, res)

		fields := map[string]interface{}{
			"image_id": ip.Image.ID,
			"path":     d.storage.Rel(ip.Path),
			"outcome":  outcome.String(),
		}
		switch outcome {
		case Fetched:
			fields["size"] = humanize.Bytes(uint64(size))
			fields["duration_ms"] = res.Duration.Milliseconds()
			imgLog.InfoWithFields("image saved", fields)
		case Skipped:
			imgLog.DebugWithFields("image already present", fields)
		case DryRun:
			fields["url"] = ip.Image.URL
			imgLog.InfoWithFields("would download image", fields)
		case Failed:
			fields["error"] = err.Error()
			fields["error_type"] = string(errors.TypeOf(err))
			imgLog.ErrorWithFields("image download failed", fields)
		}
	}

	return result
}

// renderText writes the .txt dump and the rendered .jpg. Both are best
// effort.
func (d *Downloader) renderText(r report.Report, paths layout.Paths, result *ReportResult, log logger.Logger) {
	doc, ok := render.NewDocument(r, d.planner.Location())
	if !ok {
		return
	}

	if d.opts.DryRun {
		log.DebugWithFields("would write report text", map[string]interface{}{
			"path": d.storage.Rel(paths.Text),
		})
		return
	}

	if err := d.storage.EnsureDir(paths.Dir); err != nil {
		result.RenderErrors++
		log.WithError(err).Error("failed to create report directory")
		return
	}

	if err := d.storage.WriteFile(paths.Text, d.text.Render(doc), r.Created); err != nil {
		result.RenderErrors++
		log.WithError(err).Error("failed to write report text")
	} else {
		result.TextWritten = true
	}

	if d.image == nil {
		return
	}
	data, err := d.image.Render(doc)
	if err == nil {
		err = d.storage.WriteFile(paths.Rendered, data, r.Created)
	}
	if err != nil {
		result.RenderErrors++
		log.WithError(err).Error("failed to render report image")
		return
	}
	result.ImageWritten = true
}

// FetchAndStore downloads url into dest unless dest already has expectedSize
// bytes. The body is written atomically and stamped with mtime.
func (d *Downloader) FetchAndStore(ctx context.Context, url string, expectedSize int64, dest string, mtime time.Time) (Outcome, int64, error) {
	if err := d.storage.EnsureDir(filepath.Dir(dest)); err != nil {
		return Failed, 0, err
	}

	if d.storage.SizeMatches(dest, expectedSize) {
		return Skipped, expectedSize, nil
	}

	if d.opts.DryRun {
		return DryRun, 0, nil
	}

	if err := d.pacer.Wait(ctx); err != nil {
		return Failed, 0, err
	}

	data, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
		return d.client.FetchResource(ctx, url)
	}, &retry.Config{
		MaxAttempts:    d.opts.Attempts,
		AttemptTimeout: d.opts.AttemptTimeout,
		Backoff:        &retry.ConstantBackoff{Delay: d.opts.RetryDelay},
		RetryIf:        retry.RetryAll,
		Logger:         d.logger,
	})
	if err != nil {
		return Failed, 0, err
	}

	if expectedSize > 0 && int64(len(data)) != expectedSize {
		d.logger.DebugWithFields("image size differs from listing", map[string]interface{}{
			"path":     d.storage.Rel(dest),
			"expected": expectedSize,
			"actual":   len(data),
		})
	}

	if err := d.storage.WriteFile(dest, data, mtime); err != nil {
		return Failed, 0, errors.General(err, "failed to store image")
	}
	return Fetched, int64(len(data)), nil
}
