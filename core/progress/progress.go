// Package progress aggregates a learner's achievements and the platform statistics shown on dashboards.
package progress

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/video"
)

const (
	PointsPerModule = 100

	overviewHistoryLimit  = 10
	timelineLimit         = 10
	dashboardHistoryLimit = 5
	dashboardRecentLimit  = 3
)

type (
	// TimelineEntry is a content item a learner completed.
	TimelineEntry struct {
		ModuleID     string             `json:"module_id" db:"module_id"`
		ModuleTitle  string             `json:"module_title" db:"module_title"`
		ContentID    string             `json:"content_id" db:"content_id"`
		ContentTitle string             `json:"content_title" db:"content_title"`
		ContentType  module.ContentType `json:"content_type" db:"content_type"`
		CompletedAt  time.Time          `json:"completed_at" db:"completed_at"` // UTC
	}

	// Totals counts rows across the platform.
	Totals struct {
		Users    int `json:"users" boil:"users"`
		Ebooks   int `json:"ebooks" boil:"ebooks"`
		Videos   int `json:"videos" boil:"videos"`
		Glossary int `json:"glossary" boil:"glossary"`
		Modules  int `json:"modules" boil:"modules"`
	}

	Overview struct {
		CompletedModules int             `json:"completed_modules"`
		TotalModules     int             `json:"total_modules"`
		Percentage       int             `json:"percentage"`
		Points           int             `json:"points"`
		BMIChecks        int             `json:"bmi_checks"`
		BMIHistory       []bmi.Record    `json:"bmi_history"`
		Timeline         []TimelineEntry `json:"timeline"`
	}

	Dashboard struct {
		Totals       Totals           `json:"totals"`
		BMIHistory   []bmi.Record     `json:"bmi_history"`
		Modules      []module.Summary `json:"modules"`
		RecentEbooks []ebook.Ebook    `json:"recent_ebooks"`
		RecentVideos []video.Video    `json:"recent_videos"`
	}

	Repository interface {
		// CountCompletedModules counts the distinct modules in which userID completed at least one content item.
		CountCompletedModules(ctx context.Context, userID string) (int, error)
		// QueryTimeline returns the completed content items of userID, most recently completed first.
		QueryTimeline(ctx context.Context, userID string, limit int) ([]TimelineEntry, error)
		// CountTotals counts users and catalog entries; publishedOnly restricts the catalog counts.
		CountTotals(ctx context.Context, publishedOnly bool) (Totals, error)
	}

	Service interface {
		Overview(ctx context.Context, userID string) (Overview, error)
		Dashboard(ctx context.Context, userID string) (Dashboard, error)
		AdminStats(ctx context.Context) (Totals, error)
	}

	service struct {
		repo      Repository
		bmiSvc    bmi.Service
		moduleSvc module.Service
		ebookSvc  ebook.Service
		videoSvc  video.Service
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	bmiSvc bmi.Service,
	moduleSvc module.Service,
	ebookSvc ebook.Service,
	videoSvc video.Service,
) Service {
	core.MustHaveDeps(
		core.NotNil(repo, "repo"),
		core.NotNil(bmiSvc, "bmiSvc"),
		core.NotNil(moduleSvc, "moduleSvc"),
		core.NotNil(ebookSvc, "ebookSvc"),
		core.NotNil(videoSvc, "videoSvc"),
	)
	return &service{repo: repo, bmiSvc: bmiSvc, moduleSvc: moduleSvc, ebookSvc: ebookSvc, videoSvc: videoSvc}
}

// Percentage is round(completed / total * 100), or 0 when there is nothing to complete.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func (svc *service) Overview(ctx context.Context, userID string) (Overview, error) {
	completed, err := svc.repo.CountCompletedModules(ctx, userID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "counting completed modules")
	}
	totals, err := svc.repo.CountTotals(ctx, true)
	if err != nil {
		return Overview{}, errors.Wrap(err, "counting totals")
	}
	checks, err := svc.bmiSvc.Count(ctx, userID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "counting bmi checks")
	}
	history, err := svc.bmiSvc.History(ctx, userID, overviewHistoryLimit)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying bmi history")
	}
	timeline, err := svc.repo.QueryTimeline(ctx, userID, timelineLimit)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying timeline")
	}

	return Overview{
		CompletedModules: completed,
		TotalModules:     totals.Modules,
		Percentage:       Percentage(completed, totals.Modules),
		Points:           completed * PointsPerModule,
		BMIChecks:        checks,
		BMIHistory:       nonNil(history),
		Timeline:         nonNil(timeline),
	}, nil
}

func (svc *service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	totals, err := svc.repo.CountTotals(ctx, true)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "counting totals")
	}
	history, err := svc.bmiSvc.History(ctx, userID, dashboardHistoryLimit)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying bmi history")
	}
	modules, err := svc.moduleSvc.ListPublished(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "listing modules")
	}
	ebooks, err := svc.ebookSvc.ListPublished(ctx)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "listing ebooks")
	}
	videos, err := svc.videoSvc.ListPublished(ctx)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "listing videos")
	}

	return Dashboard{
		Totals:       totals,
		BMIHistory:   nonNil(history),
		Modules:      nonNil(modules),
		RecentEbooks: nonNil(head(ebooks, dashboardRecentLimit)),
		RecentVideos: nonNil(head(videos, dashboardRecentLimit)),
	}, nil
}

func (svc *service) AdminStats(ctx context.Context) (Totals, error) {
	totals, err := svc.repo.CountTotals(ctx, false)
	if err != nil {
		return Totals{}, errors.Wrap(err, "counting totals")
	}
	return totals, nil
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
