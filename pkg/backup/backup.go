package backup

import (
	"context"
	"time"

	"github.com/google/uuid"

	"knbackup/internal/downloader"
	"knbackup/pkg/config"
	"knbackup/pkg/errors"
	"knbackup/pkg/kidsnote"
	"knbackup/pkg/layout"
	"knbackup/pkg/logger"
	"knbackup/pkg/profile"
	"knbackup/pkg/ratelimit"
	"knbackup/pkg/render"
	"knbackup/pkg/report"
	"knbackup/pkg/storage"
)

// Credentials are the login inputs given on the command line or environment.
// Empty fields fall back to the stored profile.
type Credentials struct {
	UserID       string
	Password     string
	RefreshToken string
}

// Backup runs logins and archive runs against one account
type Backup struct {
	cfg      *config.Config
	client   *kidsnote.Client
	profiles profile.Store
	logger   logger.Logger
}

// New creates a Backup
func New(cfg *config.Config, client *kidsnote.Client, profiles profile.Store, log logger.Logger) *Backup {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Backup{
		cfg:      cfg,
		client:   client,
		profiles: profiles,
		logger:   log,
	}
}

// Authenticate obtains tokens: a refresh token (given or stored) wins,
// otherwise user id and password. A failed refresh does not fall back to the
// password.
func (b *Backup) Authenticate(ctx context.Context, creds Credentials) (*kidsnote.Token, error) {
	log := logger.ForStage(b.logger, logger.StageLogin)

	stored, err := b.profiles.Load()
	if err != nil {
		return nil, errors.General(err, "failed to read profile %s", b.profiles.Location())
	}
	if !stored.IsEmpty() {
		log.DebugWithFields("loaded stored profile", map[string]interface{}{
			"location": b.profiles.Location(),
			"user_id":  stored.UserID,
		})
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = stored.RefreshToken
	}
	if creds.UserID == "" {
		creds.UserID = stored.UserID
	}

	switch {
	case creds.RefreshToken != "":
		log.InfoWithFields("logging in with refresh token", map[string]interface{}{
			"user_id": creds.UserID,
		})
		return b.client.LoginWithRefreshToken(ctx, creds.RefreshToken)
	case creds.UserID != "" && creds.Password != "":
		log.InfoWithFields("logging in with password", map[string]interface{}{
			"user_id": creds.UserID,
		})
		return b.client.LoginWithPassword(ctx, creds.UserID, creds.Password)
	default:
		return nil, errors.New(errors.ErrorTypeInvalidArgs, "no refresh token or user id and password given")
	}
}

// Login authenticates, fetches the account and saves the profile
func (b *Backup) Login(ctx context.Context, creds Credentials) (*kidsnote.MeInfo, error) {
	if _, err := b.Authenticate(ctx, creds); err != nil {
		return nil, err
	}

	info, err := b.client.GetMyInfo(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.ForStage(b.logger, logger.StageMyInfo)
	log.InfoWithFields("account loaded", map[string]interface{}{
		"username": info.User.Username,
		"children": len(info.Children),
	})
	for _, child := range info.Children {
		for _, e := range child.Enrollments {
			log.DebugWithFields("enrollment", map[string]interface{}{
				"child_id":    child.ID,
				"child_name":  child.Name,
				"center_id":   e.CenterID,
				"center_name": e.CenterName,
				"class_name":  e.ClassName,
			})
		}
	}

	p := &profile.Profile{
		UserID:       info.User.Username,
		RefreshToken: b.client.Session().RefreshToken,
	}
	if err := b.profiles.Save(p); err != nil {
		logger.ForStage(b.logger, logger.StageConfig).WarnWithFields("failed to save profile", map[string]interface{}{
			"location": b.profiles.Location(),
			"error":    err.Error(),
		})
	}

	return info, nil
}

// Run logs in and archives every child's reports within filter. Per-child
// failures are recorded in the summary; login failures and cancellation end
// the run with an error. The summary is returned in every case.
func (b *Backup) Run(ctx context.Context, creds Credentials, filter report.DateFilter) (*Summary, error) {
	dl := b.cfg.Download
	summary := &Summary{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		DryRun:  dl.DryRun,
	}
	defer func() { summary.Duration = time.Since(summary.Started) }()

	log := b.logger.WithField("run_id", summary.RunID)

	filter = filter.Normalize(dl.Timezone)
	if err := filter.Validate(); err != nil {
		return summary, err
	}

	info, err := b.Login(ctx, creds)
	if err != nil {
		return summary, err
	}

	sm, err := storage.NewManager(dl.OutputDir, dl.DryRun)
	if err != nil {
		return summary, err
	}
	if !dl.DryRun {
		lock, err := acquireLock(dl.OutputDir)
		if err != nil {
			return summary, err
		}
		defer lock.Unlock()
	}

	planner := layout.NewPlanner(dl.OutputDir, dl.PathLocation())
	dlr := downloader.New(b.client, sm, planner, b.imageRenderer(log), ratelimit.NewInterval(dl.ImageDelay), downloader.Options{
		Attempts:       dl.RetryAttempts,
		AttemptTimeout: dl.ImageTimeout,
		RetryDelay:     dl.RetryDelay,
		DryRun:         dl.DryRun,
	}, log)
	fetcher := report.NewFetcher(b.client, ratelimit.NewInterval(dl.PageDelay), dl.MaxPages, dl.PageSize, log)

	log.InfoWithFields("backup started", map[string]interface{}{
		"output_dir": dl.OutputDir,
		"children":   len(info.Children),
		"date_start": filter.Start,
		"date_end":   filter.End,
		"dry_run":    dl.DryRun,
	})

	for _, child := range info.Children {
		if err := ctx.Err(); err != nil {
			return b.finish(summary, sm), err
		}
		summary.Children++

		childLog := log.WithFields(map[string]interface{}{
			"child_id":   child.ID,
			"child_name": child.Name,
		})

		n, err := fetcher.FetchAll(ctx, child, filter, func(ctx context.Context, batch []report.Report) error {
			for _, r := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				summary.AddReport(dlr.ProcessReport(ctx, r))
			}
			return ctx.Err()
		})
		if err != nil {
			if ctx.Err() != nil {
				return b.finish(summary, sm), ctx.Err()
			}
			summary.ChildFailed(child.Name, err)
			childLog.WithError(err).Error("child backup failed")
			continue
		}

		summary.ChildrenSucceeded++
		childLog.InfoWithFields("child backup finished", map[string]interface{}{
			"reports": n,
		})
	}

	b.finish(summary, sm)
	log.InfoWithFields("backup finished", map[string]interface{}{
		"reports":        summary.Reports,
		"images_fetched": summary.ImagesFetched,
		"images_skipped": summary.ImagesSkipped,
		"images_failed":  summary.ImagesFailed,
		"children_ok":    summary.ChildrenSucceeded,
		"children_error": summary.ChildrenFailed,
	})
	return summary, nil
}

func (b *Backup) finish(summary *Summary, sm *storage.Manager) *Summary {
	summary.FilesWritten, summary.BytesWritten = sm.Stats()
	return summary
}

// imageRenderer builds the report text renderer from settings, or nil when
// rendering is disabled or the font cannot be loaded
func (b *Backup) imageRenderer(log logger.Logger) downloader.ImageRenderer {
	rc := b.cfg.Render
	if !rc.Enabled {
		return nil
	}

	ir, err := render.NewImageRenderer(config.ExpandHome(rc.FontPath), rc.FontSize, rc.WrapWidth)
	if err != nil {
		log.WithError(err).Warn("report image rendering disabled")
		return nil
	}
	if rc.FontPath == "" {
		log.Warn("no font configured; rendered report images will not show Korean text (set --font)")
	} else if !ir.HasGlyphs("가나다") {
		log.WarnWithFields("font has no Hangul glyphs", map[string]interface{}{"font": rc.FontPath})
	}
	return ir
}
