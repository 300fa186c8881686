package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/treebio/treebio/app/dto"
	"github.com/treebio/treebio/config"
	"github.com/treebio/treebio/repository"
	"github.com/treebio/treebio/utils"
	"github.com/xuri/excelize/v2"
)

// AnalyticsFlow aggregates persisted view and click events into summaries.
// Summaries only see flushed events; whatever still sits in the intake
// queue shows up after the next flush.
type AnalyticsFlow interface {
	Summarize(ctx context.Context, linktreeID uint) (*dto.SummaryDTO, error)
	SummarizeAll(ctx context.Context) (*dto.GlobalTotalsDTO, error)
	// ExportSummary renders the summary as an Excel workbook and returns
	// the file bytes together with a suggested filename
	ExportSummary(ctx context.Context, linktreeID uint) ([]byte, string, error)
}

// AnalyticsFlowImpl implements the analytics aggregation flow
type AnalyticsFlowImpl struct {
	linktreeRepo  repository.LinktreeRepository
	pageViewRepo  repository.PageViewRepository
	linkClickRepo repository.LinkClickRepository
	eventsConfig  *config.EventsConfig
	cacheConfig   *config.CacheConfig
	rc            *redis.Client
}

// NewAnalyticsFlow creates a new analytics flow instance
func NewAnalyticsFlow(
	linktreeRepo repository.LinktreeRepository,
	pageViewRepo repository.PageViewRepository,
	linkClickRepo repository.LinkClickRepository,
	rc *redis.Client,
	eventsConfig *config.EventsConfig,
	cacheConfig *config.CacheConfig,
) AnalyticsFlow {
	return &AnalyticsFlowImpl{
		linktreeRepo:  linktreeRepo,
		pageViewRepo:  pageViewRepo,
		linkClickRepo: linkClickRepo,
		eventsConfig:  eventsConfig,
		cacheConfig:   cacheConfig,
		rc:            rc,
	}
}

func (s *AnalyticsFlowImpl) Summarize(ctx context.Context, linktreeID uint) (*dto.SummaryDTO, error) {
	key := cacheKeyAnalytics(*s.cacheConfig, linktreeID)
	var cached dto.SummaryDTO
	if tryCache(ctx, s.rc, key, &cached) {
		return &cached, nil
	}

	row, err := s.linktreeRepo.ByID(ctx, linktreeID)
	if err != nil {
		return nil, NewBusinessError("LINKTREE_LOOKUP_FAILED", "Failed to lookup linktree", err)
	}
	if row == nil {
		return nil, ErrLinktreeNotFound
	}

	out := &dto.SummaryDTO{LinktreeID: linktreeID}

	out.TotalViews, out.UniqueViews, err = s.pageViewRepo.Totals(ctx, linktreeID)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to aggregate page views", err)
	}
	out.TotalClicks, out.UniqueClicks, err = s.linkClickRepo.Totals(ctx, linktreeID)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to aggregate link clicks", err)
	}

	breakdowns := []struct {
		dst   *[]dto.BucketDTO
		query func(context.Context, uint) ([]repository.BucketCount, error)
	}{
		{&out.ViewsByDevice, s.pageViewRepo.BreakdownByDevice},
		{&out.ViewsByOS, s.pageViewRepo.BreakdownByOS},
		{&out.ViewsByReferer, s.pageViewRepo.BreakdownByReferer},
		{&out.ClicksByDevice, s.linkClickRepo.BreakdownByDevice},
		{&out.ClicksByOS, s.linkClickRepo.BreakdownByOS},
		{&out.ClicksByReferer, s.linkClickRepo.BreakdownByReferer},
		{&out.ClicksByPlatform, s.linkClickRepo.BreakdownByPlatform},
	}
	for _, b := range breakdowns {
		buckets, err := b.query(ctx, linktreeID)
		if err != nil {
			return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to aggregate event breakdown", err)
		}
		*b.dst = toBucketDTOs(buckets)
	}

	top, err := s.linkClickRepo.TopLinks(ctx, linktreeID, s.eventsConfig.TopLinksLimit)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to rank clicked links", err)
	}
	out.TopLinks = make([]dto.TopLinkDTO, 0, len(top))
	for _, t := range top {
		entry := dto.TopLinkDTO{
			LinkID:   t.LinkID,
			Platform: t.Platform,
			Name:     t.Name,
			URL:      t.URL,
			Clicks:   t.Clicks,
		}
		recent, err := s.linkClickRepo.RecentByLink(ctx, t.LinkID, s.eventsConfig.RecentClicksN)
		if err != nil {
			log.Printf("Failed to sample recent clicks for link %d: %v", t.LinkID, err)
		} else {
			for _, c := range recent {
				entry.RecentClicks = append(entry.RecentClicks, dto.RecentClickDTO{
					VisitorKey: c.VisitorKey,
					Device:     c.Device,
					OS:         c.OS,
					Referer:    c.Referer,
					ClickedAt:  c.CreatedAt.Format(time.RFC3339),
				})
			}
		}
		out.TopLinks = append(out.TopLinks, entry)
	}

	out.GeneratedAt = utils.UTCNow().Format(time.RFC3339)
	populateCache(ctx, s.rc, key, out, utils.AnalyticsCacheTTL)
	return out, nil
}

func (s *AnalyticsFlowImpl) SummarizeAll(ctx context.Context) (*dto.GlobalTotalsDTO, error) {
	key := cacheKeyAnalyticsTotals(*s.cacheConfig)
	var cached dto.GlobalTotalsDTO
	if tryCache(ctx, s.rc, key, &cached) {
		return &cached, nil
	}

	out := &dto.GlobalTotalsDTO{GeneratedAt: utils.UTCNow().Format(time.RFC3339)}

	var err error
	out.TotalViews, out.UniqueViews, err = s.pageViewRepo.TotalsAll(ctx)
	if err != nil {
		// the dashboard tolerates zeros, the store stays untouched
		log.Printf("Failed to aggregate global page views: %v", err)
		return out, nil
	}
	out.TotalClicks, out.UniqueClicks, err = s.linkClickRepo.TotalsAll(ctx)
	if err != nil {
		log.Printf("Failed to aggregate global link clicks: %v", err)
		return out, nil
	}

	populateCache(ctx, s.rc, key, out, utils.AnalyticsTotalsCacheTTL)
	return out, nil
}

func (s *AnalyticsFlowImpl) ExportSummary(ctx context.Context, linktreeID uint) ([]byte, string, error) {
	summary, err := s.Summarize(ctx, linktreeID)
	if err != nil {
		return nil, "", err
	}
	row, err := s.linktreeRepo.ByID(ctx, linktreeID)
	if err != nil || row == nil {
		return nil, "", ErrLinktreeNotFound
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close export workbook: %v", err)
		}
	}()

	sheet := "Summary"
	f.SetSheetName("Sheet1", sheet)
	setSummaryHeader(f, sheet, row.Name, row.Slug, summary)

	writeBucketSheet(f, "Views by Device", summary.ViewsByDevice)
	writeBucketSheet(f, "Views by OS", summary.ViewsByOS)
	writeBucketSheet(f, "Views by Referer", summary.ViewsByReferer)
	writeBucketSheet(f, "Clicks by Device", summary.ClicksByDevice)
	writeBucketSheet(f, "Clicks by OS", summary.ClicksByOS)
	writeBucketSheet(f, "Clicks by Referer", summary.ClicksByReferer)
	writeBucketSheet(f, "Clicks by Platform", summary.ClicksByPlatform)
	writeTopLinksSheet(f, summary.TopLinks)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", NewBusinessError("EXPORT_FAILED", "Failed to render analytics workbook", err)
	}

	filename := fmt.Sprintf("analytics_%s_%s.xlsx", row.Slug, utils.UTCNow().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func setSummaryHeader(f *excelize.File, sheet, name, slug string, summary *dto.SummaryDTO) {
	rows := [][]any{
		{"Page", name},
		{"Slug", slug},
		{"Generated At", summary.GeneratedAt},
		{},
		{"Total Views", summary.TotalViews},
		{"Unique Views", summary.UniqueViews},
		{"Total Clicks", summary.TotalClicks},
		{"Unique Clicks", summary.UniqueClicks},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			f.SetCellValue(sheet, cell, v)
		}
	}
}

func writeBucketSheet(f *excelize.File, sheet string, buckets []dto.BucketDTO) {
	f.NewSheet(sheet)
	f.SetCellValue(sheet, "A1", "Label")
	f.SetCellValue(sheet, "B1", "Count")
	for i, b := range buckets {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), b.Label)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), b.Count)
	}
}

func writeTopLinksSheet(f *excelize.File, top []dto.TopLinkDTO) {
	sheet := "Top Links"
	f.NewSheet(sheet)
	headers := []string{"Link ID", "Platform", "Name", "URL", "Clicks"}
	for j, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, t := range top {
		values := []any{t.LinkID, derefOr(t.Platform, ""), derefOr(t.Name, ""), t.URL, t.Clicks}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
}

func toBucketDTOs(in []repository.BucketCount) []dto.BucketDTO {
	out := make([]dto.BucketDTO, 0, len(in))
	for _, b := range in {
		out = append(out, dto.BucketDTO{Label: b.Label, Count: b.Count})
	}
	return out
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
