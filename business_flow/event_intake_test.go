package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treebio/treebio/utils"
)

func testVisitor() *VisitorMetadata {
	m := NewVisitorMetadata("203.0.113.1", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "sess-a")
	m.SetReferer("https://www.instagram.com/profile")
	return m
}

func TestEventIntakeRecordAndDrain(t *testing.T) {
	intake := NewEventIntake(16)

	intake.RecordView(1, testVisitor())
	intake.RecordView(1, testVisitor())
	intake.RecordClick(1, 42, utils.ToPtr("instagram"), testVisitor())
	assert.Equal(t, 3, intake.Depth())

	views, clicks := intake.Drain()
	require.Len(t, views, 2)
	require.Len(t, clicks, 1)
	assert.Zero(t, intake.Depth())

	// request-side fields are derived at enqueue time
	view := views[0]
	assert.Equal(t, uint(1), view.LinktreeID)
	assert.Equal(t, "203.0.113.1:sess-a", view.VisitorKey)
	require.NotNil(t, view.Device)
	assert.Equal(t, DeviceMobile, *view.Device)
	require.NotNil(t, view.OS)
	assert.Equal(t, "ios", *view.OS)
	require.NotNil(t, view.Referer)
	assert.Equal(t, "instagram.com", *view.Referer)
	assert.False(t, view.CreatedAt.IsZero())

	click := clicks[0]
	assert.Equal(t, uint(42), click.LinkID)
	require.NotNil(t, click.Platform)
	assert.Equal(t, "instagram", *click.Platform)
}

func TestEventIntakeDropsWhenFull(t *testing.T) {
	intake := NewEventIntake(2)

	intake.RecordView(1, testVisitor())
	intake.RecordView(1, testVisitor())
	// queue is full, this one is dropped silently
	intake.RecordView(1, testVisitor())
	assert.Equal(t, 2, intake.Depth())

	views, clicks := intake.Drain()
	assert.Len(t, views, 2)
	assert.Empty(t, clicks)
}

func TestEventIntakeDrainEmpty(t *testing.T) {
	intake := NewEventIntake(4)

	views, clicks := intake.Drain()
	assert.Empty(t, views)
	assert.Empty(t, clicks)
}
