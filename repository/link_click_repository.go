package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/treebio/treebio/models"
	"gorm.io/gorm"
)

// LinkClickRepositoryImpl implements LinkClickRepository
type LinkClickRepositoryImpl struct {
	*BaseRepository[models.LinkClick, any]
}

func NewLinkClickRepository(db *gorm.DB) LinkClickRepository {
	return &LinkClickRepositoryImpl{BaseRepository: NewBaseRepository[models.LinkClick, any](db)}
}

func (r *LinkClickRepositoryImpl) ByID(ctx context.Context, id uint) (*models.LinkClick, error) {
	db := r.getDB(ctx)
	var row models.LinkClick
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByFilter: since no filter is defined, return with order/limit/offset only
func (r *LinkClickRepositoryImpl) ByFilter(ctx context.Context, _ any, orderBy string, limit, offset int) ([]*models.LinkClick, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.LinkClick{})
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.LinkClick
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LinkClickRepositoryImpl) Count(ctx context.Context, _ any) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.LinkClick{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinkClickRepositoryImpl) Exists(ctx context.Context, filter any) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// InsertBatchGuarded bulk-inserts click rows, filtering at statement time to
// rows whose parent link and linktree both still exist. Rows failing the
// guard are dropped, which is the deliberate policy for deletes racing a flush.
func (r *LinkClickRepositoryImpl) InsertBatchGuarded(ctx context.Context, rows []*models.LinkClick) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n := len(rows)
	linkIDs := make([]int64, n)
	linktreeIDs := make([]int64, n)
	visitorKeys := make([]string, n)
	platforms := make([]*string, n)
	ips := make([]*string, n)
	userAgents := make([]*string, n)
	devices := make([]*string, n)
	oses := make([]*string, n)
	referers := make([]*string, n)
	createdAts := make([]time.Time, n)
	for i, row := range rows {
		linkIDs[i] = int64(row.LinkID)
		linktreeIDs[i] = int64(row.LinktreeID)
		visitorKeys[i] = row.VisitorKey
		platforms[i] = row.Platform
		ips[i] = row.IP
		userAgents[i] = row.UserAgent
		devices[i] = row.Device
		oses[i] = row.OS
		referers[i] = row.Referer
		createdAts[i] = row.CreatedAt
	}

	db := r.getDB(ctx)
	res := db.Exec(`
		INSERT INTO link_clicks (link_id, linktree_id, visitor_key, platform, ip, user_agent, device, os, referer, created_at)
		SELECT t.link_id, t.linktree_id, t.visitor_key, t.platform, t.ip, t.user_agent, t.device, t.os, t.referer, t.created_at
		FROM unnest(
			?::bigint[], ?::bigint[], ?::text[], ?::text[], ?::text[],
			?::text[], ?::text[], ?::text[], ?::text[], ?::timestamptz[]
		) AS t(link_id, linktree_id, visitor_key, platform, ip, user_agent, device, os, referer, created_at)
		WHERE EXISTS (SELECT 1 FROM links l WHERE l.id = t.link_id)
		  AND EXISTS (SELECT 1 FROM linktrees lt WHERE lt.id = t.linktree_id)`,
		pq.Array(linkIDs), pq.Array(linktreeIDs), pq.Array(visitorKeys), pq.Array(platforms), pq.Array(ips),
		pq.Array(userAgents), pq.Array(devices), pq.Array(oses), pq.Array(referers), pq.Array(createdAts),
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Totals returns the raw and distinct-visitor click counts for one linktree
func (r *LinkClickRepositoryImpl) Totals(ctx context.Context, linktreeID uint) (int64, int64, error) {
	db := r.getDB(ctx)
	var out struct {
		Total int64 `gorm:"column:total"`
		Uniq  int64 `gorm:"column:uniq"`
	}
	err := db.Model(&models.LinkClick{}).
		Select("COUNT(*) AS total, COUNT(DISTINCT visitor_key) AS uniq").
		Where("linktree_id = ?", linktreeID).
		Scan(&out).Error
	if err != nil {
		return 0, 0, err
	}
	return out.Total, out.Uniq, nil
}

// TotalsAll returns the raw and distinct-visitor click counts across all linktrees
func (r *LinkClickRepositoryImpl) TotalsAll(ctx context.Context) (int64, int64, error) {
	db := r.getDB(ctx)
	var out struct {
		Total int64 `gorm:"column:total"`
		Uniq  int64 `gorm:"column:uniq"`
	}
	err := db.Model(&models.LinkClick{}).
		Select("COUNT(*) AS total, COUNT(DISTINCT visitor_key) AS uniq").
		Scan(&out).Error
	if err != nil {
		return 0, 0, err
	}
	return out.Total, out.Uniq, nil
}

func (r *LinkClickRepositoryImpl) BreakdownByDevice(ctx context.Context, linktreeID uint) ([]BucketCount, error) {
	return r.breakdown(ctx, linktreeID, "device")
}

func (r *LinkClickRepositoryImpl) BreakdownByOS(ctx context.Context, linktreeID uint) ([]BucketCount, error) {
	return r.breakdown(ctx, linktreeID, "os")
}

func (r *LinkClickRepositoryImpl) BreakdownByReferer(ctx context.Context, linktreeID uint) ([]BucketCount, error) {
	return r.breakdown(ctx, linktreeID, "referer")
}

func (r *LinkClickRepositoryImpl) BreakdownByPlatform(ctx context.Context, linktreeID uint) ([]BucketCount, error) {
	return r.breakdown(ctx, linktreeID, "platform")
}

func (r *LinkClickRepositoryImpl) breakdown(ctx context.Context, linktreeID uint, column string) ([]BucketCount, error) {
	switch column {
	case "device", "os", "referer", "platform":
	default:
		return nil, errors.New("unsupported breakdown column: " + column)
	}

	db := r.getDB(ctx)
	var rows []BucketCount
	err := db.Model(&models.LinkClick{}).
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

// TopLinks returns the most clicked links of a linktree with their click counts
func (r *LinkClickRepositoryImpl) TopLinks(ctx context.Context, linktreeID uint, limit int) ([]ClickedLink, error) {
	if limit <= 0 {
		limit = 5
	}
	db := r.getDB(ctx)
	var rows []ClickedLink
	err := db.Model(&models.LinkClick{}).
		Select("link_clicks.link_id AS link_id, l.platform AS platform, l.name AS name, l.url AS url, COUNT(*) AS clicks").
		Joins("JOIN links l ON l.id = link_clicks.link_id").
		Where("link_clicks.linktree_id = ?", linktreeID).
		Group("link_clicks.link_id, l.platform, l.name, l.url").
		Order("clicks DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentByLink returns the newest click rows for one link
func (r *LinkClickRepositoryImpl) RecentByLink(ctx context.Context, linkID uint, limit int) ([]*models.LinkClick, error) {
	if limit <= 0 {
		limit = 10
	}
	db := r.getDB(ctx)
	var rows []*models.LinkClick
	err := db.Model(&models.LinkClick{}).
		Where("link_id = ?", linkID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan removes click rows created before the cutoff
func (r *LinkClickRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("created_at < ?", cutoff).Delete(&models.LinkClick{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
