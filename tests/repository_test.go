// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/repository"
	testingutil "github.com/treebio/treebio/testing"
	"github.com/treebio/treebio/utils"
)

func TestLinktreeRepository(t *testing.T) {
	testingutil.TestWithDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewLinktreeRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tree, err := fixtures.CreateTestLinktree("alice")
		require.NoError(t, err)

		t.Run("ByID", func(t *testing.T) {
			row, err := repo.ByID(ctx, tree.ID)
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, "alice", row.Slug)
			assert.Equal(t, models.LinktreeStatusActive, row.Status)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			row, err := repo.ByID(ctx, 999999)
			assert.NoError(t, err)
			assert.Nil(t, row)
		})

		t.Run("ByShortID", func(t *testing.T) {
			row, err := repo.ByShortID(ctx, tree.ShortID)
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, tree.ID, row.ID)
		})

		t.Run("BySlug", func(t *testing.T) {
			row, err := repo.BySlug(ctx, "alice")
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, tree.ID, row.ID)
		})

		t.Run("ByShortIDWithLinks", func(t *testing.T) {
			row, err := repo.ByShortIDWithLinks(ctx, tree.ShortID)
			require.NoError(t, err)
			require.NotNil(t, row)
			require.Len(t, row.Links, 2)
			assert.Equal(t, 0, row.Links[0].DisplayOrder)
			assert.Equal(t, 1, row.Links[1].DisplayOrder)
		})

		t.Run("ListAll", func(t *testing.T) {
			_, err := fixtures.CreateTestLinktree("bob")
			require.NoError(t, err)

			rows, err := repo.ListAll(ctx)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(rows), 2)
		})

		t.Run("Update", func(t *testing.T) {
			err := repo.Update(ctx, tree.ID, map[string]any{
				"name":   "Alice Online",
				"status": models.LinktreeStatusDisabled,
			})
			require.NoError(t, err)

			row, err := repo.ByID(ctx, tree.ID)
			require.NoError(t, err)
			assert.Equal(t, "Alice Online", row.Name)
			assert.Equal(t, models.LinktreeStatusDisabled, row.Status)
		})

		t.Run("DuplicateSlug", func(t *testing.T) {
			dup := &models.Linktree{
				ShortID: "zzzz9999",
				Slug:    "alice",
				Name:    "Copycat",
			}
			err := repo.Save(ctx, dup)
			require.Error(t, err)
			assert.True(t, repository.IsDuplicateKey(err))
		})

		t.Run("DeleteByID", func(t *testing.T) {
			victim, err := fixtures.CreateTestLinktree("victim")
			require.NoError(t, err)

			require.NoError(t, repo.DeleteByID(ctx, victim.ID))

			row, err := repo.ByID(ctx, victim.ID)
			require.NoError(t, err)
			assert.Nil(t, row)

			// deleting again is a no-op
			assert.NoError(t, repo.DeleteByID(ctx, victim.ID))
		})
	})
}

func TestLinkRepository(t *testing.T) {
	testingutil.TestWithDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewLinkRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tree, err := fixtures.CreateTestLinktree("carol")
		require.NoError(t, err)

		t.Run("ListByLinktree", func(t *testing.T) {
			links, err := repo.ListByLinktree(ctx, tree.ID)
			require.NoError(t, err)
			require.Len(t, links, 2)
			assert.Equal(t, "instagram", links[0].Platform)
			assert.Equal(t, "youtube", links[1].Platform)
		})

		t.Run("DeleteByLinktree", func(t *testing.T) {
			require.NoError(t, repo.DeleteByLinktree(ctx, tree.ID))

			links, err := repo.ListByLinktree(ctx, tree.ID)
			require.NoError(t, err)
			assert.Empty(t, links)
		})
	})
}

func TestPageViewRepository(t *testing.T) {
	testingutil.TestWithDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewPageViewRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tree, err := fixtures.CreateTestLinktree("dave")
		require.NoError(t, err)

		t.Run("InsertBatchGuarded", func(t *testing.T) {
			rows := []*models.PageView{
				{
					LinktreeID: tree.ID,
					VisitorKey: "203.0.113.1:s1",
					Device:     utils.ToPtr("mobile"),
					OS:         utils.ToPtr("ios"),
					CreatedAt:  utils.UTCNow(),
				},
				{
					LinktreeID: tree.ID,
					VisitorKey: "203.0.113.1:s1",
					Device:     utils.ToPtr("mobile"),
					OS:         utils.ToPtr("ios"),
					CreatedAt:  utils.UTCNow(),
				},
				{
					// parent does not exist, row must be discarded
					LinktreeID: tree.ID + 1000,
					VisitorKey: "203.0.113.2:s2",
					CreatedAt:  utils.UTCNow(),
				},
			}

			inserted, err := repo.InsertBatchGuarded(ctx, rows)
			require.NoError(t, err)
			assert.Equal(t, int64(2), inserted)
		})

		t.Run("Totals", func(t *testing.T) {
			_, err := fixtures.CreateTestPageView(tree.ID, "203.0.113.3:s3")
			require.NoError(t, err)

			total, unique, err := repo.Totals(ctx, tree.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)
			// two rows share the same visitor key
			assert.Equal(t, int64(2), unique)
			assert.LessOrEqual(t, unique, total)
		})

		t.Run("BreakdownByDevice", func(t *testing.T) {
			buckets, err := repo.BreakdownByDevice(ctx, tree.ID)
			require.NoError(t, err)
			require.NotEmpty(t, buckets)
			assert.Equal(t, "mobile", buckets[0].Label)
			assert.Equal(t, int64(3), buckets[0].Count)
		})

		t.Run("DeleteOlderThan", func(t *testing.T) {
			deleted, err := repo.DeleteOlderThan(ctx, utils.UTCNow().Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, int64(3), deleted)

			total, _, err := repo.Totals(ctx, tree.ID)
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	})
}

func TestLinkClickRepository(t *testing.T) {
	testingutil.TestWithDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewLinkClickRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tree, err := fixtures.CreateTestLinktree("erin")
		require.NoError(t, err)
		first := tree.Links[0]
		second := tree.Links[1]

		t.Run("InsertBatchGuarded", func(t *testing.T) {
			rows := []*models.LinkClick{
				{
					LinkID:     first.ID,
					LinktreeID: tree.ID,
					VisitorKey: "203.0.113.1:s1",
					Platform:   utils.ToPtr("instagram"),
					CreatedAt:  utils.UTCNow(),
				},
				{
					LinkID:     first.ID,
					LinktreeID: tree.ID,
					VisitorKey: "203.0.113.4:s4",
					Platform:   utils.ToPtr("instagram"),
					CreatedAt:  utils.UTCNow(),
				},
				{
					// link no longer exists, row must be discarded
					LinkID:     first.ID + 1000,
					LinktreeID: tree.ID,
					VisitorKey: "203.0.113.5:s5",
					CreatedAt:  utils.UTCNow(),
				},
			}

			inserted, err := repo.InsertBatchGuarded(ctx, rows)
			require.NoError(t, err)
			assert.Equal(t, int64(2), inserted)
		})

		t.Run("TopLinks", func(t *testing.T) {
			_, err := fixtures.CreateTestLinkClick(tree.ID, second.ID, "203.0.113.6:s6")
			require.NoError(t, err)

			top, err := repo.TopLinks(ctx, tree.ID, 5)
			require.NoError(t, err)
			require.Len(t, top, 2)
			assert.Equal(t, first.ID, top[0].LinkID)
			assert.Equal(t, int64(2), top[0].Clicks)
			assert.Equal(t, second.ID, top[1].LinkID)
			assert.Equal(t, int64(1), top[1].Clicks)
		})

		t.Run("RecentByLink", func(t *testing.T) {
			recent, err := repo.RecentByLink(ctx, first.ID, 10)
			require.NoError(t, err)
			assert.Len(t, recent, 2)
		})

		t.Run("BreakdownByPlatform", func(t *testing.T) {
			buckets, err := repo.BreakdownByPlatform(ctx, tree.ID)
			require.NoError(t, err)
			require.NotEmpty(t, buckets)
			assert.Equal(t, "instagram", buckets[0].Label)
		})
	})
}
