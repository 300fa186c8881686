// Package testing provides test utilities and database setup for exercising the service against a real PostgreSQL instance
package testing

import (
	"fmt"
	"math/rand"

	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestLinktree creates an active linktree with two links
func (tf *TestFixtures) CreateTestLinktree(slug string) (*models.Linktree, error) {
	if slug == "" {
		slug = fmt.Sprintf("page-%d", rand.Intn(1000000))
	}

	tree := &models.Linktree{
		ShortID:       randomToken(8),
		Slug:          slug,
		Name:          "Test Page",
		Subtitle:      utils.ToPtr("All my links"),
		Theme:         models.DefaultThemeConfig(),
		FooterEnabled: true,
		Status:        models.LinktreeStatusActive,
		CreatedAt:     utils.UTCNow(),
		UpdatedAt:     utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(tree).Error; err != nil {
		return nil, fmt.Errorf("failed to create test linktree: %w", err)
	}

	links := []*models.Link{
		{
			LinktreeID:   tree.ID,
			Platform:     "instagram",
			URL:          "https://instagram.com/test",
			Name:         utils.ToPtr("Instagram"),
			DisplayOrder: 0,
		},
		{
			LinktreeID:   tree.ID,
			Platform:     "youtube",
			URL:          "https://youtube.com/@test",
			Name:         utils.ToPtr("YouTube"),
			DisplayOrder: 1,
		},
	}
	for _, link := range links {
		if err := tf.DB.DB.Create(link).Error; err != nil {
			return nil, fmt.Errorf("failed to create test link: %w", err)
		}
	}
	tree.Links = []models.Link{*links[0], *links[1]}

	return tree, nil
}

// CreateTestPageView persists one page view row for the given linktree
func (tf *TestFixtures) CreateTestPageView(linktreeID uint, visitorKey string) (*models.PageView, error) {
	view := &models.PageView{
		LinktreeID: linktreeID,
		VisitorKey: visitorKey,
		IP:         utils.ToPtr("203.0.113.10"),
		Device:     utils.ToPtr("mobile"),
		OS:         utils.ToPtr("ios"),
		Referer:    utils.ToPtr("instagram.com"),
		CreatedAt:  utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(view).Error; err != nil {
		return nil, fmt.Errorf("failed to create test page view: %w", err)
	}
	return view, nil
}

// CreateTestLinkClick persists one link click row for the given link
func (tf *TestFixtures) CreateTestLinkClick(linktreeID, linkID uint, visitorKey string) (*models.LinkClick, error) {
	click := &models.LinkClick{
		LinkID:     linkID,
		LinktreeID: linktreeID,
		VisitorKey: visitorKey,
		Platform:   utils.ToPtr("instagram"),
		IP:         utils.ToPtr("203.0.113.10"),
		Device:     utils.ToPtr("desktop"),
		OS:         utils.ToPtr("windows"),
		CreatedAt:  utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(click).Error; err != nil {
		return nil, fmt.Errorf("failed to create test link click: %w", err)
	}
	return click, nil
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomToken(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	return string(buf)
}
