package dto

// BucketDTO is one grouped breakdown row
type BucketDTO struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// RecentClickDTO is a small sample of a recent click record
type RecentClickDTO struct {
	VisitorKey string  `json:"visitor_key"`
	Device     *string `json:"device,omitempty"`
	OS         *string `json:"os,omitempty"`
	Referer    *string `json:"referer,omitempty"`
	ClickedAt  string  `json:"clicked_at"`
}

// TopLinkDTO is one entry of the top-clicked-links list
type TopLinkDTO struct {
	LinkID       uint             `json:"link_id"`
	Platform     *string          `json:"platform,omitempty"`
	Name         *string          `json:"name,omitempty"`
	URL          string           `json:"url"`
	Clicks       int64            `json:"clicks"`
	RecentClicks []RecentClickDTO `json:"recent_clicks,omitempty"`
}

// SummaryDTO is the per-linktree analytics summary
type SummaryDTO struct {
	LinktreeID       uint         `json:"linktree_id"`
	TotalViews       int64        `json:"total_views"`
	UniqueViews      int64        `json:"unique_views"`
	TotalClicks      int64        `json:"total_clicks"`
	UniqueClicks     int64        `json:"unique_clicks"`
	ViewsByDevice    []BucketDTO  `json:"views_by_device"`
	ViewsByOS        []BucketDTO  `json:"views_by_os"`
	ViewsByReferer   []BucketDTO  `json:"views_by_referer"`
	ClicksByDevice   []BucketDTO  `json:"clicks_by_device"`
	ClicksByOS       []BucketDTO  `json:"clicks_by_os"`
	ClicksByReferer  []BucketDTO  `json:"clicks_by_referer"`
	ClicksByPlatform []BucketDTO  `json:"clicks_by_platform"`
	TopLinks         []TopLinkDTO `json:"top_links"`
	GeneratedAt      string       `json:"generated_at"`
}

// GlobalTotalsDTO is the heavily cached dashboard summary across all pages
type GlobalTotalsDTO struct {
	TotalViews   int64  `json:"total_views"`
	UniqueViews  int64  `json:"unique_views"`
	TotalClicks  int64  `json:"total_clicks"`
	UniqueClicks int64  `json:"unique_clicks"`
	GeneratedAt  string `json:"generated_at"`
}

// FlushResponse reports how many queued events reached durable storage
type FlushResponse struct {
	Message       string `json:"message"`
	FlushedViews  int64  `json:"flushed_views"`
	FlushedClicks int64  `json:"flushed_clicks"`
}
