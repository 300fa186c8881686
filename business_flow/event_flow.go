package businessflow

import (
	"context"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/treebio/treebio/app/dto"
	"github.com/treebio/treebio/config"
	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/repository"
	"github.com/treebio/treebio/utils"
)

var (
	eventsFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treebio_events_flushed_total",
		Help: "Events persisted to durable storage by the flusher",
	}, []string{"kind"})

	eventsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treebio_events_discarded_total",
		Help: "Events rejected by the existence guard at flush time",
	}, []string{"kind"})
)

// EventFlow persists buffered events to durable storage.
type EventFlow interface {
	// Flush drains the intake queue and bulk-inserts the drained events.
	// Safe to call concurrently; calls are serialized so at most one
	// flush touches the store at a time. A chunk whose insert fails is
	// requeued and retried at the next cycle.
	Flush(ctx context.Context) (*dto.FlushResponse, error)

	// PruneOlderThan deletes events past the retention horizon
	PruneOlderThan(ctx context.Context, days int) (views, clicks int64, err error)
}

// EventFlowImpl implements the write-behind event pipeline
type EventFlowImpl struct {
	intake        EventIntake
	pageViewRepo  repository.PageViewRepository
	linkClickRepo repository.LinkClickRepository
	cacheConfig   *config.CacheConfig
	rc            *redis.Client

	flushMu sync.Mutex
}

// NewEventFlow creates a new event flow instance
func NewEventFlow(
	intake EventIntake,
	pageViewRepo repository.PageViewRepository,
	linkClickRepo repository.LinkClickRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) EventFlow {
	return &EventFlowImpl{
		intake:        intake,
		pageViewRepo:  pageViewRepo,
		linkClickRepo: linkClickRepo,
		cacheConfig:   cacheConfig,
		rc:            rc,
	}
}

func (s *EventFlowImpl) Flush(ctx context.Context) (*dto.FlushResponse, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	views, clicks := s.intake.Drain()
	if len(views) == 0 && len(clicks) == 0 {
		return &dto.FlushResponse{Message: "Nothing to flush"}, nil
	}

	affected := map[uint]struct{}{}
	var firstErr error

	flushedViews := int64(0)
	for _, chunk := range chunkViews(views, utils.FlushBatchSize) {
		inserted, err := s.pageViewRepo.InsertBatchGuarded(ctx, chunk)
		if err != nil {
			log.Printf("Failed to flush %d page views, requeueing: %v", len(chunk), err)
			s.intake.Requeue(chunk, nil)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		flushedViews += inserted
		eventsFlushed.WithLabelValues("page_view").Add(float64(inserted))
		eventsDiscarded.WithLabelValues("page_view").Add(float64(int64(len(chunk)) - inserted))
		for _, v := range chunk {
			affected[v.LinktreeID] = struct{}{}
		}
	}

	flushedClicks := int64(0)
	for _, chunk := range chunkClicks(clicks, utils.FlushBatchSize) {
		inserted, err := s.linkClickRepo.InsertBatchGuarded(ctx, chunk)
		if err != nil {
			log.Printf("Failed to flush %d link clicks, requeueing: %v", len(chunk), err)
			s.intake.Requeue(nil, chunk)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		flushedClicks += inserted
		eventsFlushed.WithLabelValues("link_click").Add(float64(inserted))
		eventsDiscarded.WithLabelValues("link_click").Add(float64(int64(len(chunk)) - inserted))
		for _, c := range chunk {
			affected[c.LinktreeID] = struct{}{}
		}
	}

	// New rows make cached summaries stale for every page that received
	// events, plus the global totals.
	if len(affected) > 0 {
		keys := make([]string, 0, len(affected)+1)
		for id := range affected {
			keys = append(keys, cacheKeyAnalytics(*s.cacheConfig, id))
		}
		keys = append(keys, cacheKeyAnalyticsTotals(*s.cacheConfig))
		invalidateCache(ctx, s.rc, keys...)
	}

	if firstErr != nil && flushedViews == 0 && flushedClicks == 0 {
		return nil, NewBusinessError("EVENT_FLUSH_FAILED", "Failed to persist buffered events", firstErr)
	}
	if firstErr != nil {
		log.Printf("Partial flush: %d views and %d clicks persisted, first error: %v", flushedViews, flushedClicks, firstErr)
	}

	return &dto.FlushResponse{
		Message:       "Events flushed",
		FlushedViews:  flushedViews,
		FlushedClicks: flushedClicks,
	}, nil
}

func (s *EventFlowImpl) PruneOlderThan(ctx context.Context, days int) (int64, int64, error) {
	cutoff := utils.UTCNow().AddDate(0, 0, -days)
	views, err := s.pageViewRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, 0, NewBusinessError("EVENT_PRUNE_FAILED", "Failed to prune page views", err)
	}
	clicks, err := s.linkClickRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return views, 0, NewBusinessError("EVENT_PRUNE_FAILED", "Failed to prune link clicks", err)
	}
	return views, clicks, nil
}

func chunkViews(rows []*models.PageView, size int) [][]*models.PageView {
	var out [][]*models.PageView
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

func chunkClicks(rows []*models.LinkClick, size int) [][]*models.LinkClick {
	var out [][]*models.LinkClick
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
