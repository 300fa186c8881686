package models

import "time"

// PageView represents a single view of a linktree page
// VisitorKey is the IP+session composite used for unique-visitor counts
// Device, OS and Referer are derived from the request at intake time
type PageView struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LinktreeID uint      `gorm:"not null;index:idx_page_views_linktree_id" json:"linktree_id"`
	VisitorKey string    `gorm:"size:128;not null;index:idx_page_views_visitor_key" json:"visitor_key"`
	IP         *string   `gorm:"size:64" json:"ip,omitempty"`
	UserAgent  *string   `gorm:"type:text" json:"user_agent,omitempty"`
	Device     *string   `gorm:"size:32" json:"device,omitempty"`
	OS         *string   `gorm:"size:32" json:"os,omitempty"`
	Referer    *string   `gorm:"size:256" json:"referer,omitempty"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_page_views_created_at" json:"created_at"`

	// Relations
	Linktree *Linktree `gorm:"foreignKey:LinktreeID;references:ID;constraint:OnDelete:CASCADE" json:"linktree,omitempty"`
}

// TableName returns the table name for PageView
func (PageView) TableName() string { return "page_views" }
