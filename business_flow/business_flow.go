// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/treebio/treebio/app/dto"
	"github.com/treebio/treebio/models"
)

// VisitorMetadata holds request-side information about a public visitor.
// VisitorKey is the IP+session composite used for unique-visitor dedup.
type VisitorMetadata struct {
	IPAddress  string  `json:"ip_address"`
	UserAgent  string  `json:"user_agent"`
	VisitorKey string  `json:"visitor_key"`
	Referer    *string `json:"referer,omitempty"`
	RequestID  string  `json:"request_id,omitempty"`
}

// NewVisitorMetadata creates a new VisitorMetadata instance with basic information
func NewVisitorMetadata(ipAddress, userAgent, sessionID string) *VisitorMetadata {
	return &VisitorMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		VisitorKey: BuildVisitorKey(ipAddress, sessionID),
	}
}

// SetReferer records the referer header when present
func (m *VisitorMetadata) SetReferer(referer string) {
	if referer != "" {
		m.Referer = &referer
	}
}

// SetRequestID sets the request ID
func (m *VisitorMetadata) SetRequestID(requestID string) {
	m.RequestID = requestID
}

// BuildVisitorKey composes the dedup key from IP and session id.
// Uniques dedupe on the composite, not IP alone, so visitors behind a
// shared IP (carrier NAT) still count separately.
func BuildVisitorKey(ip, sessionID string) string {
	if sessionID == "" {
		return ip
	}
	return ip + ":" + sessionID
}

// ToLinktreeDTO converts a linktree model to its API representation
func ToLinktreeDTO(lt *models.Linktree) dto.LinktreeDTO {
	out := dto.LinktreeDTO{
		ID:            lt.ID,
		ShortID:       lt.ShortID,
		Slug:          lt.Slug,
		Name:          lt.Name,
		Subtitle:      lt.Subtitle,
		AvatarURL:     lt.AvatarURL,
		Theme:         lt.Theme,
		FooterEnabled: lt.FooterEnabled,
		FooterText:    lt.FooterText,
		Status:        lt.Status,
		CreatedAt:     lt.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     lt.UpdatedAt.Format(time.RFC3339),
	}
	if len(lt.Links) > 0 {
		out.Links = make([]dto.LinkDTO, 0, len(lt.Links))
		for i := range lt.Links {
			out.Links = append(out.Links, ToLinkDTO(&lt.Links[i]))
		}
	}
	return out
}

// ToLinkDTO converts a link model to its API representation
func ToLinkDTO(l *models.Link) dto.LinkDTO {
	return dto.LinkDTO{
		ID:             l.ID,
		LinktreeID:     l.LinktreeID,
		Platform:       l.Platform,
		URL:            l.URL,
		Name:           l.Name,
		Description:    l.Description,
		DefaultMessage: l.DefaultMessage,
		DisplayOrder:   l.DisplayOrder,
		Metadata:       l.Metadata,
	}
}
