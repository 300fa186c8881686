package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/treebio/treebio/utils"
	"gorm.io/gorm"
)

// Linktree status values
const (
	LinktreeStatusActive   = "active"
	LinktreeStatusDisabled = "disabled"
)

// ThemeConfig holds the page theme as an opaque key-value config stored as JSONB.
// Unknown keys are preserved so older rows survive new theme options.
type ThemeConfig map[string]any

// DefaultThemeConfig returns the baseline theme every page starts from
func DefaultThemeConfig() ThemeConfig {
	return ThemeConfig{
		"background":   "solid",
		"color":        "#ffffff",
		"text_color":   "#111111",
		"button_style": "rounded",
		"font":         "default",
	}
}

// Normalize merges the receiver over the known defaults and returns the result.
// A nil receiver yields the defaults unchanged.
func (t ThemeConfig) Normalize() ThemeConfig {
	out := DefaultThemeConfig()
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Value implements the driver.Valuer interface for ThemeConfig
func (t ThemeConfig) Value() (driver.Value, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface for ThemeConfig
func (t *ThemeConfig) Scan(value any) error {
	if value == nil {
		*t = ThemeConfig{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ThemeConfig", value)
	}

	return json.Unmarshal(bytes, t)
}

// Linktree represents a public link-in-bio page
// ShortID is the public token embedded in the page URL and never changes after creation
// Slug is the admin-chosen URL path; both are globally unique
type Linktree struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	ShortID       string      `gorm:"size:16;not null;uniqueIndex:uk_linktrees_short_id" json:"short_id"`
	Slug          string      `gorm:"size:128;not null;uniqueIndex:uk_linktrees_slug" json:"slug"`
	Name          string      `gorm:"size:128;not null" json:"name"`
	Subtitle      *string     `gorm:"size:256" json:"subtitle,omitempty"`
	AvatarURL     *string     `gorm:"type:text" json:"avatar_url,omitempty"`
	Theme         ThemeConfig `gorm:"type:jsonb;default:'{}'" json:"theme"`
	FooterEnabled bool        `gorm:"not null;default:true" json:"footer_enabled"`
	FooterText    *string     `gorm:"size:256" json:"footer_text,omitempty"`
	Status        string      `gorm:"size:16;not null;default:'active';index:idx_linktrees_status" json:"status"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_linktrees_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Links []Link `gorm:"foreignKey:LinktreeID" json:"links,omitempty"`
}

// TableName returns the table name for Linktree
func (Linktree) TableName() string { return "linktrees" }

// BeforeCreate is called before creating a new record
func (l *Linktree) BeforeCreate(tx *gorm.DB) error {
	if l.Status == "" {
		l.Status = LinktreeStatusActive
	}
	if l.Theme == nil {
		l.Theme = DefaultThemeConfig()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (l *Linktree) BeforeUpdate(tx *gorm.DB) error {
	l.UpdatedAt = utils.UTCNow()
	return nil
}

// LinktreeFilter provides filter fields for repository queries
type LinktreeFilter struct {
	ID            *uint
	ShortID       *string
	Slug          *string
	Status        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
