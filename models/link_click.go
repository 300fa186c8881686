package models

import "time"

// LinkClick represents a single click on a link of a linktree page
// Platform is copied from the clicked link so breakdowns survive link edits
type LinkClick struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LinkID     uint      `gorm:"not null;index:idx_link_clicks_link_id" json:"link_id"`
	LinktreeID uint      `gorm:"not null;index:idx_link_clicks_linktree_id" json:"linktree_id"`
	VisitorKey string    `gorm:"size:128;not null;index:idx_link_clicks_visitor_key" json:"visitor_key"`
	Platform   *string   `gorm:"size:32" json:"platform,omitempty"`
	IP         *string   `gorm:"size:64" json:"ip,omitempty"`
	UserAgent  *string   `gorm:"type:text" json:"user_agent,omitempty"`
	Device     *string   `gorm:"size:32" json:"device,omitempty"`
	OS         *string   `gorm:"size:32" json:"os,omitempty"`
	Referer    *string   `gorm:"size:256" json:"referer,omitempty"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_link_clicks_created_at" json:"created_at"`

	// Relations
	Link     *Link     `gorm:"foreignKey:LinkID;references:ID;constraint:OnDelete:CASCADE" json:"link,omitempty"`
	Linktree *Linktree `gorm:"foreignKey:LinktreeID;references:ID;constraint:OnDelete:CASCADE" json:"linktree,omitempty"`
}

// TableName returns the table name for LinkClick
func (LinkClick) TableName() string { return "link_clicks" }
