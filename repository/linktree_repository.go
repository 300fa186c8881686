package repository

import (
	"context"
	"errors"

	"github.com/treebio/treebio/models"
	"gorm.io/gorm"
)

// LinktreeRepositoryImpl implements LinktreeRepository
type LinktreeRepositoryImpl struct {
	*BaseRepository[models.Linktree, models.LinktreeFilter]
}

func NewLinktreeRepository(db *gorm.DB) LinktreeRepository {
	return &LinktreeRepositoryImpl{BaseRepository: NewBaseRepository[models.Linktree, models.LinktreeFilter](db)}
}

func (r *LinktreeRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Linktree, error) {
	db := r.getDB(ctx)
	var row models.Linktree
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *LinktreeRepositoryImpl) ByShortID(ctx context.Context, shortID string) (*models.Linktree, error) {
	filter := models.LinktreeFilter{ShortID: &shortID}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *LinktreeRepositoryImpl) BySlug(ctx context.Context, slug string) (*models.Linktree, error) {
	filter := models.LinktreeFilter{Slug: &slug}
	rows, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ByShortIDWithLinks loads the page and its links ordered for display
func (r *LinktreeRepositoryImpl) ByShortIDWithLinks(ctx context.Context, shortID string) (*models.Linktree, error) {
	db := r.getDB(ctx)
	var row models.Linktree
	err := db.Preload("Links", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order ASC")
	}).Where("short_id = ?", shortID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *LinktreeRepositoryImpl) ListAll(ctx context.Context) ([]*models.Linktree, error) {
	return r.ByFilter(ctx, models.LinktreeFilter{}, "created_at DESC", 0, 0)
}

// Update writes only the given columns; callers build the map from fields
// explicitly present in the request
func (r *LinktreeRepositoryImpl) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	db := r.getDB(ctx)
	return db.Model(&models.Linktree{}).Where("id = ?", id).Updates(fields).Error
}

func (r *LinktreeRepositoryImpl) applyFilter(db *gorm.DB, f models.LinktreeFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.ShortID != nil {
		db = db.Where("short_id = ?", *f.ShortID)
	}
	if f.Slug != nil {
		db = db.Where("slug = ?", *f.Slug)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *LinktreeRepositoryImpl) ByFilter(ctx context.Context, filter models.LinktreeFilter, orderBy string, limit, offset int) ([]*models.Linktree, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Linktree{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Linktree
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LinktreeRepositoryImpl) Count(ctx context.Context, filter models.LinktreeFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Linktree{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinktreeRepositoryImpl) Exists(ctx context.Context, filter models.LinktreeFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
