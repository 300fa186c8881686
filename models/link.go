package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap is a free-form metadata blob stored as JSONB
type JSONMap map[string]any

// Value implements the driver.Valuer interface for JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for JSONMap
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}

	return json.Unmarshal(bytes, m)
}

// Link represents one entry on a linktree page
// DisplayOrder is dense and zero-based within a linktree; any reorder or
// replace writes the full set back as 0..n-1
type Link struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	LinktreeID     uint    `gorm:"not null;index:idx_links_linktree_id;uniqueIndex:uk_links_linktree_order" json:"linktree_id"`
	Platform       string  `gorm:"size:32;not null;index:idx_links_platform" json:"platform"`
	URL            string  `gorm:"type:text;not null" json:"url"`
	Name           *string `gorm:"size:128" json:"name,omitempty"`
	Description    *string `gorm:"size:512" json:"description,omitempty"`
	DefaultMessage *string `gorm:"size:512" json:"default_message,omitempty"`
	DisplayOrder   int     `gorm:"not null;uniqueIndex:uk_links_linktree_order" json:"display_order"`
	Metadata       JSONMap `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Linktree *Linktree `gorm:"foreignKey:LinktreeID;references:ID;constraint:OnDelete:CASCADE" json:"linktree,omitempty"`
}

// TableName returns the table name for Link
func (Link) TableName() string { return "links" }

// LinkFilter provides filter fields for repository queries
type LinkFilter struct {
	ID         *uint
	LinktreeID *uint
	Platform   *string
}
