package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treebio/treebio/config"
	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/repository"
)

// flakyPageViewRepo rejects a configurable number of bulk inserts before
// accepting writes, mimicking a transient store outage
type flakyPageViewRepo struct {
	repository.PageViewRepository
	failures int
	inserted []*models.PageView
}

func (r *flakyPageViewRepo) InsertBatchGuarded(_ context.Context, rows []*models.PageView) (int64, error) {
	if r.failures > 0 {
		r.failures--
		return 0, assert.AnError
	}
	r.inserted = append(r.inserted, rows...)
	return int64(len(rows)), nil
}

type stubLinkClickRepo struct {
	repository.LinkClickRepository
}

func (r *stubLinkClickRepo) InsertBatchGuarded(_ context.Context, rows []*models.LinkClick) (int64, error) {
	return int64(len(rows)), nil
}

func TestFlushRetriesFailedChunks(t *testing.T) {
	intake := NewEventIntake(16)
	pageViews := &flakyPageViewRepo{failures: 1}
	flow := NewEventFlow(intake, pageViews, &stubLinkClickRepo{}, nil, &config.CacheConfig{RedisPrefix: "test:"})

	intake.RecordView(1, testVisitor())

	_, err := flow.Flush(context.Background())
	require.Error(t, err)
	assert.Empty(t, pageViews.inserted)
	assert.Equal(t, 1, intake.Depth(), "failed events wait for the next cycle")

	result, err := flow.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.FlushedViews)
	require.Len(t, pageViews.inserted, 1)
	assert.Equal(t, uint(1), pageViews.inserted[0].LinktreeID)
	assert.Equal(t, 0, intake.Depth())
}

func TestRequeueBoundedByCapacity(t *testing.T) {
	intake := NewEventIntake(2)
	intake.RecordView(1, testVisitor())
	intake.RecordView(1, testVisitor())

	views, _ := intake.Drain()
	require.Len(t, views, 2)

	// the queue refills while the flush is failing
	intake.RecordView(2, testVisitor())
	intake.RecordView(2, testVisitor())

	intake.Requeue(views, nil)
	assert.Equal(t, 2, intake.Depth(), "requeue never grows past capacity")
}
