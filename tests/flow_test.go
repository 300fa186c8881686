// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treebio/treebio/app/dto"
	businessflow "github.com/treebio/treebio/business_flow"
	"github.com/treebio/treebio/config"
	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/repository"
	testingutil "github.com/treebio/treebio/testing"
	"github.com/treebio/treebio/utils"
)

type flowEnv struct {
	linktreeFlow  businessflow.LinktreeFlow
	analyticsFlow businessflow.AnalyticsFlow
	eventFlow     businessflow.EventFlow
	intake        businessflow.EventIntake
	linktreeRepo  repository.LinktreeRepository
	linkRepo      repository.LinkRepository
}

// newFlowEnv wires the flows against the test database without a cache
// client; the flows degrade to database-only operation
func newFlowEnv(testDB *testingutil.TestDB) *flowEnv {
	cacheCfg := &config.CacheConfig{RedisPrefix: "test:"}
	eventsCfg := &config.EventsConfig{TopLinksLimit: 5, RecentClicksN: 10}

	linktreeRepo := repository.NewLinktreeRepository(testDB.DB)
	linkRepo := repository.NewLinkRepository(testDB.DB)
	pageViewRepo := repository.NewPageViewRepository(testDB.DB)
	linkClickRepo := repository.NewLinkClickRepository(testDB.DB)

	intake := businessflow.NewEventIntake(1024)
	analyticsFlow := businessflow.NewAnalyticsFlow(linktreeRepo, pageViewRepo, linkClickRepo, nil, eventsCfg, cacheCfg)
	linktreeFlow := businessflow.NewLinktreeFlow(linktreeRepo, linkRepo, analyticsFlow, testDB.DB, nil, cacheCfg)
	eventFlow := businessflow.NewEventFlow(intake, pageViewRepo, linkClickRepo, nil, cacheCfg)

	return &flowEnv{
		linktreeFlow:  linktreeFlow,
		analyticsFlow: analyticsFlow,
		eventFlow:     eventFlow,
		intake:        intake,
		linktreeRepo:  linktreeRepo,
		linkRepo:      linkRepo,
	}
}

func createRequest(slug string) *dto.CreateLinktreeRequest {
	return &dto.CreateLinktreeRequest{
		Slug: slug,
		Name: "Test Page",
		Links: []dto.LinkInput{
			{Platform: "instagram", URL: "https://instagram.com/test", Name: utils.ToPtr("Instagram")},
			{Platform: "youtube", URL: "https://youtube.com/@test"},
		},
	}
}

func TestLinktreeFlowCreate(t *testing.T) {
	testingutil.TestWithDB(t, func(testDB *testingutil.TestDB) {
		env := newFlowEnv(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("CreateWithLinks", func(t *testing.T) {
			resp, err := env.linktreeFlow.Create(ctx, createRequest("alice"))
			require.NoError(t, err)
			assert.Equal(t, "alice", resp.Linktree.Slug)
			assert.Len(t, resp.Linktree.ShortID, 8)
			assert.Equal(t, models.LinktreeStatusActive, resp.Linktree.Status)
			require.Len(t, resp.Linktree.Links, 2)
			assert.Equal(t, 0, resp.Linktree.Links[0].DisplayOrder)
			assert.Equal(t, 1, resp.Linktree.Links[1].DisplayOrder)
			// theme defaults are filled in
			assert.Equal(t, "solid", resp.Linktree.Theme["background"])
		})

		t.Run("SlugNormalized", func(t *testing.T) {
			resp, err := env.linktreeFlow.Create(ctx, createRequest("  MixedCase  "))
			require.NoError(t, err)
			assert.Equal(t, "mixedcase", resp.Linktree.Slug)
		})

		t.Run("DuplicateSlug", func(t *testing.T) {
			_, err := env.linktreeFlow.Create(ctx, createRequest("alice"))
			require.Error(t, err)
			assert.True(t, businessflow.IsDuplicateSlug(err))
		})

		t.Run("InvalidLinksFiltered", func(t *testing.T) {
			req := createRequest("bob")
			req.Links = append(req.Links, dto.LinkInput{Platform: "", URL: "https://example.com"})
			resp, err := env.linktreeFlow.Create(ctx, req)
			require.NoError(t, err)
			assert.Len(t, resp.Linktree.Links, 2)
		})

		t.Run("NoValidLinks", func(t *testing.T) {
			req := createRequest("carol")
			req.Links = []dto.LinkInput{{Platform: "x", URL: "  "}}
			_, err := env.linktreeFlow.Create(ctx, req)
			require.Error(t, err)
			assert.True(t, businessflow.IsValidationFailed(err))

			// the parent must not survive a failed link set
			row, err := env.linktreeRepo.BySlug(ctx, "carol")
			require.NoError(t, err)
			assert.Nil(t, row)
		})
	})
}

func TestLinktreeFlowUpdateAndDelete(t *testing.T) {
	testingutil.TestWithDB(t, func(testDB *testingutil.TestDB) {
		env := newFlowEnv(testDB)
		ctx := testingutil.CreateTestContext()

		created, err := env.linktreeFlow.Create(ctx, createRequest("dave"))
		require.NoError(t, err)
		id := created.Linktree.ID

		t.Run("PartialUpdate", func(t *testing.T) {
			resp, err := env.linktreeFlow.Update(ctx, id, &dto.UpdateLinktreeRequest{
				Name:   utils.ToPtr("Dave Online"),
				Status: utils.ToPtr(models.LinktreeStatusDisabled),
			})
			require.NoError(t, err)
			assert.Equal(t, "Dave Online", resp.Linktree.Name)
			assert.Equal(t, models.LinktreeStatusDisabled, resp.Linktree.Status)
			// untouched fields survive
			assert.Equal(t, "dave", resp.Linktree.Slug)
		})

		t.Run("ThemeMerge", func(t *testing.T) {
			resp, err := env.linktreeFlow.Update(ctx, id, &dto.UpdateLinktreeRequest{
				Theme: map[string]any{"color": "#000000"},
			})
			require.NoError(t, err)
			assert.Equal(t, "#000000", resp.Linktree.Theme["color"])
			// defaults for the other keys remain
			assert.Equal(t, "rounded", resp.Linktree.Theme["button_style"])
		})

		t.Run("EmptySlugRejected", func(t *testing.T) {
			_, err := env.linktreeFlow.Update(ctx, id, &dto.UpdateLinktreeRequest{
				Slug: utils.ToPtr("   "),
			})
			require.Error(t, err)
			// the stored slug stays untouched
			row, err := env.linktreeRepo.BySlug(ctx, "dave")
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, id, row.ID)
		})

		t.Run("UpdateNotFound", func(t *testing.T) {
			_, err := env.linktreeFlow.Update(ctx, 999999, &dto.UpdateLinktreeRequest{
				Name: utils.ToPtr("Ghost"),
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsLinktreeNotFound(err))
		})

		t.Run("ReplaceLinks", func(t *testing.T) {
			resp, err := env.linktreeFlow.ReplaceLinks(ctx, id, &dto.ReplaceLinksRequest{
				Links: []dto.LinkInput{
					{Platform: "tiktok", URL: "https://tiktok.com/@dave"},
				},
			})
			require.NoError(t, err)
			require.Len(t, resp.Links, 1)
			assert.Equal(t, "tiktok", resp.Links[0].Platform)
			assert.Equal(t, 0, resp.Links[0].DisplayOrder)

			links, err := env.linkRepo.ListByLinktree(ctx, id)
			require.NoError(t, err)
			assert.Len(t, links, 1)
		})

		t.Run("Delete", func(t *testing.T) {
			require.NoError(t, env.linktreeFlow.Delete(ctx, id))

			_, err := env.linktreeFlow.GetByID(ctx, id)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinktreeNotFound(err))

			links, err := env.linkRepo.ListByLinktree(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, links)

			// deleting again is a no-op
			assert.NoError(t, env.linktreeFlow.Delete(ctx, id))
		})
	})
}

func TestEventPipeline(t *testing.T) {
	testingutil.TestWithDB(t, func(testDB *testingutil.TestDB) {
		env := newFlowEnv(testDB)
		ctx := testingutil.CreateTestContext()

		created, err := env.linktreeFlow.Create(ctx, createRequest("erin"))
		require.NoError(t, err)
		id := created.Linktree.ID
		linkID := created.Linktree.Links[0].ID

		visitorA := businessflow.NewVisitorMetadata("203.0.113.1", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "sess-a")
		visitorB := businessflow.NewVisitorMetadata("203.0.113.2", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "sess-b")

		t.Run("FlushPersistsEvents", func(t *testing.T) {
			env.intake.RecordView(id, visitorA)
			env.intake.RecordView(id, visitorA)
			env.intake.RecordView(id, visitorB)
			env.intake.RecordClick(id, linkID, utils.ToPtr("instagram"), visitorA)

			resp, err := env.eventFlow.Flush(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), resp.FlushedViews)
			assert.Equal(t, int64(1), resp.FlushedClicks)
			assert.Zero(t, env.intake.Depth())
		})

		t.Run("SummarizeAggregates", func(t *testing.T) {
			summary, err := env.analyticsFlow.Summarize(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, int64(3), summary.TotalViews)
			assert.Equal(t, int64(2), summary.UniqueViews)
			assert.Equal(t, int64(1), summary.TotalClicks)
			assert.Equal(t, int64(1), summary.UniqueClicks)
			require.Len(t, summary.TopLinks, 1)
			assert.Equal(t, linkID, summary.TopLinks[0].LinkID)

			// device classification happened at intake
			require.NotEmpty(t, summary.ViewsByDevice)
			labels := map[string]int64{}
			for _, b := range summary.ViewsByDevice {
				labels[b.Label] = b.Count
			}
			assert.Equal(t, int64(2), labels["mobile"])
			assert.Equal(t, int64(1), labels["desktop"])
		})

		t.Run("SummarizeNotFound", func(t *testing.T) {
			_, err := env.analyticsFlow.Summarize(ctx, 999999)
			require.Error(t, err)
			assert.True(t, businessflow.IsLinktreeNotFound(err))
		})

		t.Run("EventsForDeletedPageDiscarded", func(t *testing.T) {
			env.intake.RecordView(id, visitorB)
			require.NoError(t, env.linktreeFlow.Delete(ctx, id))

			resp, err := env.eventFlow.Flush(ctx)
			require.NoError(t, err)
			assert.Zero(t, resp.FlushedViews)
			assert.Zero(t, resp.FlushedClicks)
		})

		t.Run("SummarizeAllTotals", func(t *testing.T) {
			totals, err := env.analyticsFlow.SummarizeAll(ctx)
			require.NoError(t, err)
			// the page and its events are gone
			assert.Zero(t, totals.TotalViews)
			assert.Zero(t, totals.TotalClicks)
		})

		t.Run("ExportSummary", func(t *testing.T) {
			other, err := env.linktreeFlow.Create(ctx, createRequest("frank"))
			require.NoError(t, err)

			fileBytes, filename, err := env.analyticsFlow.ExportSummary(ctx, other.Linktree.ID)
			require.NoError(t, err)
			assert.NotEmpty(t, fileBytes)
			assert.Contains(t, filename, "frank")
			assert.Contains(t, filename, ".xlsx")
		})
	})
}
