package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

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

// newCachedFlowEnv wires the flows against the test database and a real
// redis client under the run's throwaway key prefix
func newCachedFlowEnv(testDB *testingutil.TestDB, testRedis *testingutil.TestRedis) *flowEnv {
	cacheCfg := &config.CacheConfig{RedisPrefix: testRedis.Prefix}
	eventsCfg := &config.EventsConfig{TopLinksLimit: 5, RecentClicksN: 10}

	linktreeRepo := repository.NewLinktreeRepository(testDB.DB)
	linkRepo := repository.NewLinkRepository(testDB.DB)
	pageViewRepo := repository.NewPageViewRepository(testDB.DB)
	linkClickRepo := repository.NewLinkClickRepository(testDB.DB)

	intake := businessflow.NewEventIntake(1024)
	analyticsFlow := businessflow.NewAnalyticsFlow(linktreeRepo, pageViewRepo, linkClickRepo, testRedis.Client, eventsCfg, cacheCfg)
	linktreeFlow := businessflow.NewLinktreeFlow(linktreeRepo, linkRepo, analyticsFlow, testDB.DB, testRedis.Client, cacheCfg)
	eventFlow := businessflow.NewEventFlow(intake, pageViewRepo, linkClickRepo, testRedis.Client, cacheCfg)

	return &flowEnv{
		linktreeFlow:  linktreeFlow,
		analyticsFlow: analyticsFlow,
		eventFlow:     eventFlow,
		intake:        intake,
		linktreeRepo:  linktreeRepo,
		linkRepo:      linkRepo,
	}
}

// entityCacheKeys lists every key a mutation of the entity invalidates
func entityCacheKeys(prefix string, id uint, shortID string) []string {
	return []string{
		fmt.Sprintf("%slinktree:id:%d", prefix, id),
		prefix + "linktree:shortid:" + shortID,
		prefix + "linktree:withlinks:" + shortID,
		prefix + "linktree:list:all",
		prefix + "linktree:list:all:analytics",
		fmt.Sprintf("%slinktree:links:%d", prefix, id),
		fmt.Sprintf("%slinktree:analytics:%d", prefix, id),
	}
}

func TestCacheReadThrough(t *testing.T) {
	testingutil.TestWithCache(t, func(testDB *testingutil.TestDB, testRedis *testingutil.TestRedis) {
		env := newCachedFlowEnv(testDB, testRedis)
		ctx := testingutil.CreateTestContext()

		created, err := env.linktreeFlow.Create(ctx, createRequest("cached-page"))
		require.NoError(t, err)
		id := created.Linktree.ID
		shortID := created.Linktree.ShortID

		t.Run("PopulatesOnMiss", func(t *testing.T) {
			page, err := env.linktreeFlow.GetWithLinks(ctx, shortID)
			require.NoError(t, err)
			assert.Equal(t, "Test Page", page.Name)
			assert.True(t, testRedis.KeyExists(t, testRedis.Prefix+"linktree:withlinks:"+shortID))
		})

		t.Run("ServesFromCacheUntilInvalidated", func(t *testing.T) {
			// a write behind the flow's back stays invisible while the
			// cached entry is live
			err := testDB.DB.Model(&models.Linktree{}).Where("id = ?", id).
				Update("name", "changed behind the cache").Error
			require.NoError(t, err)

			page, err := env.linktreeFlow.GetWithLinks(ctx, shortID)
			require.NoError(t, err)
			assert.Equal(t, "Test Page", page.Name)
		})

		t.Run("CorruptEntryFallsBackToStore", func(t *testing.T) {
			key := fmt.Sprintf("%slinktree:id:%d", testRedis.Prefix, id)
			require.NoError(t, testRedis.Client.Set(context.Background(), key, "{not json", time.Minute).Err())

			page, err := env.linktreeFlow.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "changed behind the cache", page.Name)
		})
	})
}

func TestCacheInvalidationOnUpdate(t *testing.T) {
	testingutil.TestWithCache(t, func(testDB *testingutil.TestDB, testRedis *testingutil.TestRedis) {
		env := newCachedFlowEnv(testDB, testRedis)
		ctx := testingutil.CreateTestContext()

		created, err := env.linktreeFlow.Create(ctx, createRequest("erin"))
		require.NoError(t, err)
		id := created.Linktree.ID
		shortID := created.Linktree.ShortID

		// warm every key that could serve a view of the entity
		_, err = env.linktreeFlow.GetByID(ctx, id)
		require.NoError(t, err)
		_, err = env.linktreeFlow.GetByShortID(ctx, shortID)
		require.NoError(t, err)
		_, err = env.linktreeFlow.GetWithLinks(ctx, shortID)
		require.NoError(t, err)
		_, err = env.linktreeFlow.ListAll(ctx, false)
		require.NoError(t, err)
		_, err = env.linktreeFlow.ListAll(ctx, true)
		require.NoError(t, err)
		_, err = env.analyticsFlow.Summarize(ctx, id)
		require.NoError(t, err)
		linksKey := fmt.Sprintf("%slinktree:links:%d", testRedis.Prefix, id)
		require.NoError(t, testRedis.Client.Set(context.Background(), linksKey, "[]", time.Minute).Err())

		keys := entityCacheKeys(testRedis.Prefix, id, shortID)
		for _, key := range keys {
			require.True(t, testRedis.KeyExists(t, key), "expected %s to be warm", key)
		}

		_, err = env.linktreeFlow.Update(ctx, id, &dto.UpdateLinktreeRequest{
			Name: utils.ToPtr("Erin Renamed"),
		})
		require.NoError(t, err)

		for _, key := range keys {
			assert.False(t, testRedis.KeyExists(t, key), "expected %s to be invalidated", key)
		}

		// no read path observes the pre-write state
		byID, err := env.linktreeFlow.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Erin Renamed", byID.Name)

		withLinks, err := env.linktreeFlow.GetWithLinks(ctx, shortID)
		require.NoError(t, err)
		assert.Equal(t, "Erin Renamed", withLinks.Name)

		list, err := env.linktreeFlow.ListAll(ctx, false)
		require.NoError(t, err)
		require.Len(t, list.Linktrees, 1)
		assert.Equal(t, "Erin Renamed", list.Linktrees[0].Name)
	})
}

func TestCacheInvalidationOnDelete(t *testing.T) {
	testingutil.TestWithCache(t, func(testDB *testingutil.TestDB, testRedis *testingutil.TestRedis) {
		env := newCachedFlowEnv(testDB, testRedis)
		ctx := testingutil.CreateTestContext()

		created, err := env.linktreeFlow.Create(ctx, createRequest("gone-soon"))
		require.NoError(t, err)
		id := created.Linktree.ID
		shortID := created.Linktree.ShortID

		_, err = env.linktreeFlow.GetByID(ctx, id)
		require.NoError(t, err)
		_, err = env.linktreeFlow.GetWithLinks(ctx, shortID)
		require.NoError(t, err)
		_, err = env.analyticsFlow.SummarizeAll(ctx)
		require.NoError(t, err)

		totalsKey := testRedis.Prefix + "linktree:analytics:totals"
		require.True(t, testRedis.KeyExists(t, totalsKey))

		require.NoError(t, env.linktreeFlow.Delete(ctx, id))

		assert.False(t, testRedis.KeyExists(t, fmt.Sprintf("%slinktree:id:%d", testRedis.Prefix, id)))
		assert.False(t, testRedis.KeyExists(t, testRedis.Prefix+"linktree:withlinks:"+shortID))
		assert.False(t, testRedis.KeyExists(t, totalsKey))

		_, err = env.linktreeFlow.GetByID(ctx, id)
		require.Error(t, err)
		assert.True(t, businessflow.IsLinktreeNotFound(err))

		_, err = env.linktreeFlow.GetWithLinks(ctx, shortID)
		require.Error(t, err)
		assert.True(t, businessflow.IsLinktreeNotFound(err))
	})
}

func TestFlushInvalidatesAnalyticsKeys(t *testing.T) {
	testingutil.TestWithCache(t, func(testDB *testingutil.TestDB, testRedis *testingutil.TestRedis) {
		env := newCachedFlowEnv(testDB, testRedis)
		ctx := testingutil.CreateTestContext()

		created, err := env.linktreeFlow.Create(ctx, createRequest("heidi"))
		require.NoError(t, err)
		id := created.Linktree.ID

		summary, err := env.analyticsFlow.Summarize(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), summary.TotalViews)
		_, err = env.analyticsFlow.SummarizeAll(ctx)
		require.NoError(t, err)

		analyticsKey := fmt.Sprintf("%slinktree:analytics:%d", testRedis.Prefix, id)
		totalsKey := testRedis.Prefix + "linktree:analytics:totals"
		require.True(t, testRedis.KeyExists(t, analyticsKey))
		require.True(t, testRedis.KeyExists(t, totalsKey))

		visitor := businessflow.NewVisitorMetadata("198.51.100.7", "Mozilla/5.0", "sess-h")
		env.intake.RecordView(id, visitor)
		_, err = env.eventFlow.Flush(ctx)
		require.NoError(t, err)

		assert.False(t, testRedis.KeyExists(t, analyticsKey))
		assert.False(t, testRedis.KeyExists(t, totalsKey))

		// the next summary is rebuilt from the freshly flushed rows
		summary, err = env.analyticsFlow.Summarize(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), summary.TotalViews)
	})
}
