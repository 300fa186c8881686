package dto

// LinkDTO is the API representation of one link on a page
type LinkDTO struct {
	ID             uint           `json:"id"`
	LinktreeID     uint           `json:"linktree_id"`
	Platform       string         `json:"platform"`
	URL            string         `json:"url"`
	Name           *string        `json:"name,omitempty"`
	Description    *string        `json:"description,omitempty"`
	DefaultMessage *string        `json:"default_message,omitempty"`
	DisplayOrder   int            `json:"display_order"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// LinktreeDTO is the API representation of a page
type LinktreeDTO struct {
	ID            uint           `json:"id"`
	ShortID       string         `json:"short_id"`
	Slug          string         `json:"slug"`
	Name          string         `json:"name"`
	Subtitle      *string        `json:"subtitle,omitempty"`
	AvatarURL     *string        `json:"avatar_url,omitempty"`
	Theme         map[string]any `json:"theme"`
	FooterEnabled bool           `json:"footer_enabled"`
	FooterText    *string        `json:"footer_text,omitempty"`
	Status        string         `json:"status"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
	Links         []LinkDTO      `json:"links,omitempty"`
	Analytics     *SummaryDTO    `json:"analytics,omitempty"`
}

// LinkInput is one link entry in a create or replace request
type LinkInput struct {
	Platform       string         `json:"platform" validate:"required,max=32"`
	URL            string         `json:"url" validate:"required,url"`
	Name           *string        `json:"name,omitempty" validate:"omitempty,max=128"`
	Description    *string        `json:"description,omitempty" validate:"omitempty,max=512"`
	DefaultMessage *string        `json:"default_message,omitempty" validate:"omitempty,max=512"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CreateLinktreeRequest creates a page together with its initial links
type CreateLinktreeRequest struct {
	Slug          string         `json:"slug" validate:"required,max=128"`
	Name          string         `json:"name" validate:"required,max=128"`
	Subtitle      *string        `json:"subtitle,omitempty" validate:"omitempty,max=256"`
	AvatarURL     *string        `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Theme         map[string]any `json:"theme,omitempty"`
	FooterEnabled *bool          `json:"footer_enabled,omitempty"`
	FooterText    *string        `json:"footer_text,omitempty" validate:"omitempty,max=256"`
	Links         []LinkInput    `json:"links" validate:"required,min=1,dive"`
}

// UpdateLinktreeRequest carries a partial update; nil means leave unchanged,
// a present empty value means clear
type UpdateLinktreeRequest struct {
	Slug          *string        `json:"slug,omitempty" validate:"omitempty,max=128"`
	Name          *string        `json:"name,omitempty" validate:"omitempty,max=128"`
	Subtitle      *string        `json:"subtitle,omitempty" validate:"omitempty,max=256"`
	AvatarURL     *string        `json:"avatar_url,omitempty"`
	Theme         map[string]any `json:"theme,omitempty"`
	FooterEnabled *bool          `json:"footer_enabled,omitempty"`
	FooterText    *string        `json:"footer_text,omitempty" validate:"omitempty,max=256"`
	Status        *string        `json:"status,omitempty" validate:"omitempty,oneof=active disabled"`
}

// ReplaceLinksRequest replaces the complete link set of a page in the given order
type ReplaceLinksRequest struct {
	Links []LinkInput `json:"links" validate:"required,min=1,dive"`
}

// CreateLinktreeResponse is returned after a successful create
type CreateLinktreeResponse struct {
	Message  string      `json:"message"`
	Linktree LinktreeDTO `json:"linktree"`
}

// UpdateLinktreeResponse is returned after a successful partial update
type UpdateLinktreeResponse struct {
	Message  string      `json:"message"`
	Linktree LinktreeDTO `json:"linktree"`
}

// ListLinktreesResponse is returned by the admin list endpoint
type ListLinktreesResponse struct {
	Message   string        `json:"message"`
	Linktrees []LinktreeDTO `json:"linktrees"`
}

// ReplaceLinksResponse is returned after a successful replace
type ReplaceLinksResponse struct {
	Message string    `json:"message"`
	Links   []LinkDTO `json:"links"`
}
