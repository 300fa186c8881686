package businessflow

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/treebio/treebio/app/dto"
	"github.com/treebio/treebio/config"
	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/repository"
	"github.com/treebio/treebio/utils"
	"gorm.io/gorm"
)

// LinktreeFlow handles the linktree page business logic.
// Reads are read-through cached; every mutation invalidates all cache keys
// that could serve a view of the entity before returning.
type LinktreeFlow interface {
	GetByID(ctx context.Context, id uint) (*dto.LinktreeDTO, error)
	GetByShortID(ctx context.Context, shortID string) (*dto.LinktreeDTO, error)
	GetWithLinks(ctx context.Context, shortID string) (*dto.LinktreeDTO, error)
	ListAll(ctx context.Context, includeAnalytics bool) (*dto.ListLinktreesResponse, error)
	Create(ctx context.Context, req *dto.CreateLinktreeRequest) (*dto.CreateLinktreeResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateLinktreeRequest) (*dto.UpdateLinktreeResponse, error)
	Delete(ctx context.Context, id uint) error
	ReplaceLinks(ctx context.Context, linktreeID uint, req *dto.ReplaceLinksRequest) (*dto.ReplaceLinksResponse, error)
}

// LinktreeFlowImpl implements the linktree business flow
type LinktreeFlowImpl struct {
	linktreeRepo repository.LinktreeRepository
	linkRepo     repository.LinkRepository
	analytics    AnalyticsFlow
	cacheConfig  *config.CacheConfig
	rc           *redis.Client
	db           *gorm.DB
}

// NewLinktreeFlow creates a new linktree flow instance
func NewLinktreeFlow(
	linktreeRepo repository.LinktreeRepository,
	linkRepo repository.LinkRepository,
	analytics AnalyticsFlow,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) LinktreeFlow {
	return &LinktreeFlowImpl{
		linktreeRepo: linktreeRepo,
		linkRepo:     linkRepo,
		analytics:    analytics,
		cacheConfig:  cacheConfig,
		rc:           rc,
		db:           db,
	}
}

func (s *LinktreeFlowImpl) GetByID(ctx context.Context, id uint) (*dto.LinktreeDTO, error) {
	key := cacheKeyByID(*s.cacheConfig, id)
	var cached dto.LinktreeDTO
	if tryCache(ctx, s.rc, key, &cached) {
		return &cached, nil
	}

	row, err := s.linktreeRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LINKTREE_LOOKUP_FAILED", "Failed to lookup linktree", err)
	}
	if row == nil {
		return nil, ErrLinktreeNotFound
	}

	out := ToLinktreeDTO(row)
	populateCache(ctx, s.rc, key, out, utils.LinktreeCacheTTL)
	return &out, nil
}

func (s *LinktreeFlowImpl) GetByShortID(ctx context.Context, shortID string) (*dto.LinktreeDTO, error) {
	key := cacheKeyByShortID(*s.cacheConfig, shortID)
	var cached dto.LinktreeDTO
	if tryCache(ctx, s.rc, key, &cached) {
		return &cached, nil
	}

	row, err := s.linktreeRepo.ByShortID(ctx, shortID)
	if err != nil {
		return nil, NewBusinessError("LINKTREE_LOOKUP_FAILED", "Failed to lookup linktree", err)
	}
	if row == nil {
		return nil, ErrLinktreeNotFound
	}

	out := ToLinktreeDTO(row)
	populateCache(ctx, s.rc, key, out, utils.LinktreeCacheTTL)
	return &out, nil
}

func (s *LinktreeFlowImpl) GetWithLinks(ctx context.Context, shortID string) (*dto.LinktreeDTO, error) {
	key := cacheKeyWithLinks(*s.cacheConfig, shortID)
	var cached dto.LinktreeDTO
	if tryCache(ctx, s.rc, key, &cached) {
		return &cached, nil
	}

	row, err := s.linktreeRepo.ByShortIDWithLinks(ctx, shortID)
	if err != nil {
		return nil, NewBusinessError("LINKTREE_LOOKUP_FAILED", "Failed to lookup linktree with links", err)
	}
	if row == nil {
		return nil, ErrLinktreeNotFound
	}

	out := ToLinktreeDTO(row)
	populateCache(ctx, s.rc, key, out, utils.LinktreeWithLinksCacheTTL)
	return &out, nil
}

func (s *LinktreeFlowImpl) ListAll(ctx context.Context, includeAnalytics bool) (*dto.ListLinktreesResponse, error) {
	key := cacheKeyListAll(*s.cacheConfig, includeAnalytics)
	var cached []dto.LinktreeDTO
	if tryCache(ctx, s.rc, key, &cached) {
		return &dto.ListLinktreesResponse{Message: "Linktrees retrieved from cache", Linktrees: cached}, nil
	}

	rows, err := s.linktreeRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("LINKTREE_LIST_FAILED", "Failed to list linktrees", err)
	}

	out := make([]dto.LinktreeDTO, 0, len(rows))
	for _, row := range rows {
		item := ToLinktreeDTO(row)
		if includeAnalytics {
			summary, err := s.analytics.Summarize(ctx, row.ID)
			if err == nil {
				item.Analytics = summary
			}
			// analytics failure degrades the list entry, not the list
		}
		out = append(out, item)
	}

	populateCache(ctx, s.rc, key, out, utils.LinktreeListCacheTTL)
	return &dto.ListLinktreesResponse{Message: "Linktrees retrieved", Linktrees: out}, nil
}

func (s *LinktreeFlowImpl) Create(ctx context.Context, req *dto.CreateLinktreeRequest) (*dto.CreateLinktreeResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Request body is required", nil)
	}

	links := filterValidLinks(req.Links)
	if len(links) == 0 {
		return nil, ErrLinksValidationFailed
	}

	slug := strings.TrimSpace(strings.ToLower(req.Slug))
	if slug == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "slug is required", nil)
	}

	// Early duplicate check keeps the common path off the unique index;
	// the index remains the backstop for racing creates.
	existing, err := s.linktreeRepo.BySlug(ctx, slug)
	if err != nil {
		return nil, NewBusinessError("LINKTREE_LOOKUP_FAILED", "Failed to check slug uniqueness", err)
	}
	if existing != nil {
		return nil, ErrDuplicateSlug
	}

	shortID, err := generateUniqueShortID(ctx, s.linktreeRepo)
	if err != nil {
		return nil, err
	}

	row := &models.Linktree{
		ShortID:       shortID,
		Slug:          slug,
		Name:          req.Name,
		Subtitle:      req.Subtitle,
		AvatarURL:     req.AvatarURL,
		Theme:         models.ThemeConfig(req.Theme).Normalize(),
		FooterEnabled: req.FooterEnabled == nil || *req.FooterEnabled,
		FooterText:    req.FooterText,
		Status:        models.LinktreeStatusActive,
	}

	// Parent and children are one logical unit; a failure inserting the
	// link set rolls the parent back instead of leaving an orphan.
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.linktreeRepo.Save(txCtx, row); err != nil {
			return err
		}
		return s.linkRepo.SaveBatch(txCtx, buildLinkRows(row.ID, links))
	})
	if err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, NewBusinessError("LINKTREE_CREATE_FAILED", "Failed to create linktree", err)
	}

	s.invalidateListKeys(ctx)

	created, err := s.linktreeRepo.ByShortIDWithLinks(ctx, shortID)
	if err != nil || created == nil {
		// the write committed; fall back to the in-memory row
		created = row
	}
	return &dto.CreateLinktreeResponse{Message: "Linktree created", Linktree: ToLinktreeDTO(created)}, nil
}

func (s *LinktreeFlowImpl) Update(ctx context.Context, id uint, req *dto.UpdateLinktreeRequest) (*dto.UpdateLinktreeResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Request body is required", nil)
	}

	existing, err := s.linktreeRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LINKTREE_LOOKUP_FAILED", "Failed to lookup linktree", err)
	}
	if existing == nil {
		return nil, ErrLinktreeNotFound
	}

	// Only fields explicitly present in the request are written; nil means
	// leave unchanged, a present empty value clears.
	fields := map[string]any{}
	if req.Slug != nil {
		// slug is the public address of the page, it never clears
		slug := strings.TrimSpace(strings.ToLower(*req.Slug))
		if slug == "" {
			return nil, NewBusinessError("VALIDATION_ERROR", "slug cannot be empty", nil)
		}
		fields["slug"] = slug
	}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Subtitle != nil {
		fields["subtitle"] = nullableString(*req.Subtitle)
	}
	if req.AvatarURL != nil {
		fields["avatar_url"] = nullableString(*req.AvatarURL)
	}
	if req.Theme != nil {
		merged := existing.Theme.Normalize()
		for k, v := range req.Theme {
			merged[k] = v
		}
		fields["theme"] = merged
	}
	if req.FooterEnabled != nil {
		fields["footer_enabled"] = *req.FooterEnabled
	}
	if req.FooterText != nil {
		fields["footer_text"] = nullableString(*req.FooterText)
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if len(fields) > 0 {
		fields["updated_at"] = utils.UTCNow()
		if err := s.linktreeRepo.Update(ctx, id, fields); err != nil {
			if repository.IsDuplicateKey(err) {
				return nil, ErrDuplicateSlug
			}
			return nil, NewBusinessError("LINKTREE_UPDATE_FAILED", "Failed to update linktree", err)
		}
	}

	// Invalidation is part of the write's contract and happens before the
	// response is returned.
	s.invalidateEntityKeys(ctx, existing)

	updated, err := s.linktreeRepo.ByID(ctx, id)
	if err != nil || updated == nil {
		updated = existing
	}
	return &dto.UpdateLinktreeResponse{Message: "Linktree updated", Linktree: ToLinktreeDTO(updated)}, nil
}

func (s *LinktreeFlowImpl) Delete(ctx context.Context, id uint) error {
	// Fetch first to learn the short id for key invalidation. A missing
	// entity is treated as already deleted.
	existing, err := s.linktreeRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("LINKTREE_LOOKUP_FAILED", "Failed to lookup linktree", err)
	}
	if existing == nil {
		return nil
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.linkRepo.DeleteByLinktree(txCtx, id); err != nil {
			return err
		}
		return s.linktreeRepo.DeleteByID(txCtx, id)
	})
	if err != nil {
		return NewBusinessError("LINKTREE_DELETE_FAILED", "Failed to delete linktree", err)
	}

	s.invalidateEntityKeys(ctx, existing)
	invalidateCache(ctx, s.rc, cacheKeyAnalyticsTotals(*s.cacheConfig))
	return nil
}

func (s *LinktreeFlowImpl) ReplaceLinks(ctx context.Context, linktreeID uint, req *dto.ReplaceLinksRequest) (*dto.ReplaceLinksResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Request body is required", nil)
	}

	existing, err := s.linktreeRepo.ByID(ctx, linktreeID)
	if err != nil {
		return nil, NewBusinessError("LINKTREE_LOOKUP_FAILED", "Failed to lookup linktree", err)
	}
	if existing == nil {
		return nil, ErrLinktreeNotFound
	}

	links := filterValidLinks(req.Links)
	if len(links) == 0 {
		return nil, ErrLinksValidationFailed
	}

	// Full replace as one logical unit: the previous complete set goes,
	// the new set comes in with dense orders 0..n-1. A subset input is a
	// full replace by definition, never a partial patch.
	rows := buildLinkRows(linktreeID, links)
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.linkRepo.DeleteByLinktree(txCtx, linktreeID); err != nil {
			return err
		}
		return s.linkRepo.SaveBatch(txCtx, rows)
	})
	if err != nil {
		return nil, NewBusinessError("REPLACE_LINKS_FAILED", "Failed to replace links", err)
	}

	invalidateCache(ctx, s.rc,
		cacheKeyWithLinks(*s.cacheConfig, existing.ShortID),
		cacheKeyLinks(*s.cacheConfig, linktreeID),
		cacheKeyListAll(*s.cacheConfig, false),
		cacheKeyListAll(*s.cacheConfig, true),
	)

	out := make([]dto.LinkDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToLinkDTO(r))
	}
	return &dto.ReplaceLinksResponse{Message: "Links replaced", Links: out}, nil
}

// invalidateEntityKeys deletes every cache key that could serve a view of
// the entity: by id, by short id, the page payload, both list views, the
// link set and the analytics summary.
func (s *LinktreeFlowImpl) invalidateEntityKeys(ctx context.Context, row *models.Linktree) {
	invalidateCache(ctx, s.rc,
		cacheKeyByID(*s.cacheConfig, row.ID),
		cacheKeyByShortID(*s.cacheConfig, row.ShortID),
		cacheKeyWithLinks(*s.cacheConfig, row.ShortID),
		cacheKeyListAll(*s.cacheConfig, false),
		cacheKeyListAll(*s.cacheConfig, true),
		cacheKeyLinks(*s.cacheConfig, row.ID),
		cacheKeyAnalytics(*s.cacheConfig, row.ID),
	)
}

func (s *LinktreeFlowImpl) invalidateListKeys(ctx context.Context) {
	invalidateCache(ctx, s.rc,
		cacheKeyListAll(*s.cacheConfig, false),
		cacheKeyListAll(*s.cacheConfig, true),
	)
}

// filterValidLinks drops entries without the required platform and URL
func filterValidLinks(in []dto.LinkInput) []dto.LinkInput {
	out := make([]dto.LinkInput, 0, len(in))
	for _, l := range in {
		if strings.TrimSpace(l.Platform) == "" || strings.TrimSpace(l.URL) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// buildLinkRows assigns dense display orders 0..n-1 in the given order
func buildLinkRows(linktreeID uint, links []dto.LinkInput) []*models.Link {
	rows := make([]*models.Link, 0, len(links))
	for i, l := range links {
		rows = append(rows, &models.Link{
			LinktreeID:     linktreeID,
			Platform:       strings.TrimSpace(l.Platform),
			URL:            strings.TrimSpace(l.URL),
			Name:           l.Name,
			Description:    l.Description,
			DefaultMessage: l.DefaultMessage,
			DisplayOrder:   i,
			Metadata:       models.JSONMap(l.Metadata),
		})
	}
	return rows
}

func nullableString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
