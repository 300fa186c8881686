package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/treebio/treebio/models"
	"gorm.io/gorm"
)

// PageViewRepositoryImpl implements PageViewRepository
type PageViewRepositoryImpl struct {
	*BaseRepository[models.PageView, any]
}

func NewPageViewRepository(db *gorm.DB) PageViewRepository {
	return &PageViewRepositoryImpl{BaseRepository: NewBaseRepository[models.PageView, any](db)}
}

func (r *PageViewRepositoryImpl) ByID(ctx context.Context, id uint) (*models.PageView, error) {
	db := r.getDB(ctx)
	var row models.PageView
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByFilter: since no filter is defined, return with order/limit/offset only
func (r *PageViewRepositoryImpl) ByFilter(ctx context.Context, _ any, orderBy string, limit, offset int) ([]*models.PageView, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.PageView{})
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.PageView
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PageViewRepositoryImpl) Count(ctx context.Context, _ any) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.PageView{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PageViewRepositoryImpl) Exists(ctx context.Context, filter any) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// InsertBatchGuarded bulk-inserts view rows, filtering at statement time to
// rows whose parent linktree still exists. A delete racing the flush makes
// the guard drop the row instead of tripping the foreign key.
func (r *PageViewRepositoryImpl) InsertBatchGuarded(ctx context.Context, rows []*models.PageView) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n := len(rows)
	linktreeIDs := make([]int64, n)
	visitorKeys := make([]string, n)
	ips := make([]*string, n)
	userAgents := make([]*string, n)
	devices := make([]*string, n)
	oses := make([]*string, n)
	referers := make([]*string, n)
	createdAts := make([]time.Time, n)
	for i, row := range rows {
		linktreeIDs[i] = int64(row.LinktreeID)
		visitorKeys[i] = row.VisitorKey
		ips[i] = row.IP
		userAgents[i] = row.UserAgent
		devices[i] = row.Device
		oses[i] = row.OS
		referers[i] = row.Referer
		createdAts[i] = row.CreatedAt
	}

	db := r.getDB(ctx)
	res := db.Exec(`
		INSERT INTO page_views (linktree_id, visitor_key, ip, user_agent, device, os, referer, created_at)
		SELECT t.linktree_id, t.visitor_key, t.ip, t.user_agent, t.device, t.os, t.referer, t.created_at
		FROM unnest(
			?::bigint[], ?::text[], ?::text[], ?::text[],
			?::text[], ?::text[], ?::text[], ?::timestamptz[]
		) AS t(linktree_id, visitor_key, ip, user_agent, device, os, referer, created_at)
		WHERE EXISTS (SELECT 1 FROM linktrees lt WHERE lt.id = t.linktree_id)`,
		pq.Array(linktreeIDs), pq.Array(visitorKeys), pq.Array(ips), pq.Array(userAgents),
		pq.Array(devices), pq.Array(oses), pq.Array(referers), pq.Array(createdAts),
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Totals returns the raw and distinct-visitor view counts for one linktree
func (r *PageViewRepositoryImpl) Totals(ctx context.Context, linktreeID uint) (int64, int64, error) {
	db := r.getDB(ctx)
	var out struct {
		Total int64 `gorm:"column:total"`
		Uniq  int64 `gorm:"column:uniq"`
	}
	err := db.Model(&models.PageView{}).
		Select("COUNT(*) AS total, COUNT(DISTINCT visitor_key) AS uniq").
		Where("linktree_id = ?", linktreeID).
		Scan(&out).Error
	if err != nil {
		return 0, 0, err
	}
	return out.Total, out.Uniq, nil
}

// TotalsAll returns the raw and distinct-visitor view counts across all linktrees
func (r *PageViewRepositoryImpl) TotalsAll(ctx context.Context) (int64, int64, error) {
	db := r.getDB(ctx)
	var out struct {
		Total int64 `gorm:"column:total"`
		Uniq  int64 `gorm:"column:uniq"`
	}
	err := db.Model(&models.PageView{}).
		Select("COUNT(*) AS total, COUNT(DISTINCT visitor_key) AS uniq").
		Scan(&out).Error
	if err != nil {
		return 0, 0, err
	}
	return out.Total, out.Uniq, nil
}

func (r *PageViewRepositoryImpl) BreakdownByDevice(ctx context.Context, linktreeID uint) ([]BucketCount, error) {
	return r.breakdown(ctx, linktreeID, "device")
}

func (r *PageViewRepositoryImpl) BreakdownByOS(ctx context.Context, linktreeID uint) ([]BucketCount, error) {
	return r.breakdown(ctx, linktreeID, "os")
}

func (r *PageViewRepositoryImpl) BreakdownByReferer(ctx context.Context, linktreeID uint) ([]BucketCount, error) {
	return r.breakdown(ctx, linktreeID, "referer")
}

// breakdown groups view counts by a whitelisted column; NULLs land in "unknown"
func (r *PageViewRepositoryImpl) breakdown(ctx context.Context, linktreeID uint, column string) ([]BucketCount, error) {
	switch column {
	case "device", "os", "referer":
	default:
		return nil, errors.New("unsupported breakdown column: " + column)
	}

	db := r.getDB(ctx)
	var rows []BucketCount
	err := db.Model(&models.PageView{}).
		Select("COALESCE("+column+", 'unknown') AS label, COUNT(*) AS count").
		Where("linktree_id = ?", linktreeID).
		Group("label").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan removes view rows created before the cutoff
func (r *PageViewRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("created_at < ?", cutoff).Delete(&models.PageView{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
