// Package scheduler contains the background workers of the service
package scheduler

import (
	"context"
	"log"
	"time"

	businessflow "github.com/treebio/treebio/business_flow"
)

// EventFlusher periodically drains the event intake queue into durable
// storage. A final flush runs on shutdown so buffered events survive a
// clean restart.
type EventFlusher struct {
	eventFlow businessflow.EventFlow
	interval  time.Duration
}

// NewEventFlusher creates a flusher with the given interval
func NewEventFlusher(eventFlow businessflow.EventFlow, interval time.Duration) *EventFlusher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &EventFlusher{
		eventFlow: eventFlow,
		interval:  interval,
	}
}

// Start launches the flush loop and returns a stop function. The stop
// function blocks until the final flush has finished.
func (s *EventFlusher) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.finalFlush()
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *EventFlusher) runOnce(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	result, err := s.eventFlow.Flush(flushCtx)
	if err != nil {
		log.Printf("flusher: flush failed: %v", err)
		return
	}
	if result.FlushedViews > 0 || result.FlushedClicks > 0 {
		log.Printf("flusher: persisted %d views and %d clicks", result.FlushedViews, result.FlushedClicks)
	}
}

// finalFlush runs with a fresh context because the loop context is
// already canceled at shutdown
func (s *EventFlusher) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := s.eventFlow.Flush(ctx)
	if err != nil {
		log.Printf("flusher: final flush failed: %v", err)
		return
	}
	log.Printf("flusher: final flush persisted %d views and %d clicks", result.FlushedViews, result.FlushedClicks)
}
