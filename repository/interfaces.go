// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/treebio/treebio/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LinktreeRepository defines operations for linktree pages
type LinktreeRepository interface {
	Repository[models.Linktree, models.LinktreeFilter]
	ByShortID(ctx context.Context, shortID string) (*models.Linktree, error)
	BySlug(ctx context.Context, slug string) (*models.Linktree, error)
	ByShortIDWithLinks(ctx context.Context, shortID string) (*models.Linktree, error)
	ListAll(ctx context.Context) ([]*models.Linktree, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	DeleteByID(ctx context.Context, id uint) error
}

// LinkRepository defines operations for links on a linktree page
type LinkRepository interface {
	Repository[models.Link, models.LinkFilter]
	ListByLinktree(ctx context.Context, linktreeID uint) ([]*models.Link, error)
	DeleteByLinktree(ctx context.Context, linktreeID uint) error
	DeleteByID(ctx context.Context, id uint) error
}

// BucketCount is one row of a grouped analytics breakdown
type BucketCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ClickedLink is one row of the top-clicked-links query
type ClickedLink struct {
	LinkID   uint    `json:"link_id"`
	Platform *string `json:"platform,omitempty"`
	Name     *string `json:"name,omitempty"`
	URL      string  `json:"url"`
	Clicks   int64   `json:"clicks"`
}

// PageViewRepository defines operations for page view events
type PageViewRepository interface {
	Repository[models.PageView, any]
	// InsertBatchGuarded bulk-inserts rows whose parent linktree still exists
	// and reports how many survived the guard
	InsertBatchGuarded(ctx context.Context, rows []*models.PageView) (int64, error)
	Totals(ctx context.Context, linktreeID uint) (total, unique int64, err error)
	TotalsAll(ctx context.Context) (total, unique int64, err error)
	BreakdownByDevice(ctx context.Context, linktreeID uint) ([]BucketCount, error)
	BreakdownByOS(ctx context.Context, linktreeID uint) ([]BucketCount, error)
	BreakdownByReferer(ctx context.Context, linktreeID uint) ([]BucketCount, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// LinkClickRepository defines operations for link click events
type LinkClickRepository interface {
	Repository[models.LinkClick, any]
	// InsertBatchGuarded bulk-inserts rows whose parent link and linktree
	// both still exist and reports how many survived the guard
	InsertBatchGuarded(ctx context.Context, rows []*models.LinkClick) (int64, error)
	Totals(ctx context.Context, linktreeID uint) (total, unique int64, err error)
	TotalsAll(ctx context.Context) (total, unique int64, err error)
	BreakdownByDevice(ctx context.Context, linktreeID uint) ([]BucketCount, error)
	BreakdownByOS(ctx context.Context, linktreeID uint) ([]BucketCount, error)
	BreakdownByReferer(ctx context.Context, linktreeID uint) ([]BucketCount, error)
	BreakdownByPlatform(ctx context.Context, linktreeID uint) ([]BucketCount, error)
	TopLinks(ctx context.Context, linktreeID uint, limit int) ([]ClickedLink, error)
	RecentByLink(ctx context.Context, linkID uint, limit int) ([]*models.LinkClick, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
