package businessflow

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/utils"
)

var (
	eventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treebio_events_recorded_total",
		Help: "Events accepted into the intake queue",
	}, []string{"kind"})

	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treebio_events_dropped_total",
		Help: "Events dropped because the intake queue was full",
	}, []string{"kind"})

	eventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "treebio_event_queue_depth",
		Help: "Events currently buffered and awaiting flush",
	})
)

// queuedEvent holds exactly one pending event, either a view or a click
type queuedEvent struct {
	view  *models.PageView
	click *models.LinkClick
}

// EventIntake buffers page view and link click events in a bounded
// in-memory queue. Recording never blocks the serving path: when the
// queue is full the event is dropped and counted, the page response is
// unaffected.
type EventIntake interface {
	RecordView(linktreeID uint, visitor *VisitorMetadata)
	RecordClick(linktreeID, linkID uint, platform *string, visitor *VisitorMetadata)
	Drain() (views []*models.PageView, clicks []*models.LinkClick)
	// Requeue returns drained events to the queue so the next flush
	// retries them. Bounded by the queue capacity: events that no
	// longer fit are dropped and counted.
	Requeue(views []*models.PageView, clicks []*models.LinkClick)
	Depth() int
}

// EventIntakeImpl implements EventIntake over a buffered channel
type EventIntakeImpl struct {
	queue chan queuedEvent
}

// NewEventIntake creates an intake queue with the given capacity
func NewEventIntake(capacity int) EventIntake {
	if capacity <= 0 {
		capacity = utils.EventQueueCapacity
	}
	return &EventIntakeImpl{queue: make(chan queuedEvent, capacity)}
}

func (q *EventIntakeImpl) RecordView(linktreeID uint, visitor *VisitorMetadata) {
	row := &models.PageView{
		LinktreeID: linktreeID,
		VisitorKey: visitor.VisitorKey,
		CreatedAt:  utils.UTCNow(),
	}
	fillRequestFields(&row.IP, &row.UserAgent, &row.Device, &row.OS, &row.Referer, visitor)
	q.enqueue(queuedEvent{view: row}, "page_view")
}

func (q *EventIntakeImpl) RecordClick(linktreeID, linkID uint, platform *string, visitor *VisitorMetadata) {
	row := &models.LinkClick{
		LinkID:     linkID,
		LinktreeID: linktreeID,
		VisitorKey: visitor.VisitorKey,
		Platform:   platform,
		CreatedAt:  utils.UTCNow(),
	}
	fillRequestFields(&row.IP, &row.UserAgent, &row.Device, &row.OS, &row.Referer, visitor)
	q.enqueue(queuedEvent{click: row}, "link_click")
}

func (q *EventIntakeImpl) enqueue(ev queuedEvent, kind string) {
	select {
	case q.queue <- ev:
		eventsRecorded.WithLabelValues(kind).Inc()
		eventQueueDepth.Set(float64(len(q.queue)))
	default:
		eventsDropped.WithLabelValues(kind).Inc()
		log.Printf("Event queue full, dropping %s event", kind)
	}
}

// Drain empties everything currently buffered and partitions it by kind.
// Events enqueued while a drain is running stay for the next one.
func (q *EventIntakeImpl) Drain() ([]*models.PageView, []*models.LinkClick) {
	n := len(q.queue)
	views := make([]*models.PageView, 0, n)
	clicks := make([]*models.LinkClick, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-q.queue:
			if ev.view != nil {
				views = append(views, ev.view)
			} else if ev.click != nil {
				clicks = append(clicks, ev.click)
			}
		default:
			eventQueueDepth.Set(float64(len(q.queue)))
			return views, clicks
		}
	}
	eventQueueDepth.Set(float64(len(q.queue)))
	return views, clicks
}

// Requeue puts events a failed flush could not persist back in line.
// They were already counted as recorded, only overflow drops count.
func (q *EventIntakeImpl) Requeue(views []*models.PageView, clicks []*models.LinkClick) {
	for _, v := range views {
		q.requeueOne(queuedEvent{view: v}, "page_view")
	}
	for _, c := range clicks {
		q.requeueOne(queuedEvent{click: c}, "link_click")
	}
	eventQueueDepth.Set(float64(len(q.queue)))
}

func (q *EventIntakeImpl) requeueOne(ev queuedEvent, kind string) {
	select {
	case q.queue <- ev:
	default:
		eventsDropped.WithLabelValues(kind).Inc()
		log.Printf("Event queue full, dropping %s event after failed flush", kind)
	}
}

func (q *EventIntakeImpl) Depth() int { return len(q.queue) }

// fillRequestFields derives the stored request-side columns from visitor
// metadata. Device and OS classification happens here, once per event,
// so flushing stays a plain bulk insert.
func fillRequestFields(ip, userAgent, device, osName, referer **string, visitor *VisitorMetadata) {
	if visitor.IPAddress != "" {
		*ip = utils.ToPtr(visitor.IPAddress)
	}
	if visitor.UserAgent != "" {
		*userAgent = utils.ToPtr(visitor.UserAgent)
		*device = utils.ToPtr(ClassifyDevice(visitor.UserAgent))
		*osName = utils.ToPtr(ClassifyOS(visitor.UserAgent))
	}
	if visitor.Referer != nil {
		if host := NormalizeReferer(*visitor.Referer); host != "" {
			*referer = utils.ToPtr(host)
		}
	}
}
