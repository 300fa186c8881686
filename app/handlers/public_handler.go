// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/treebio/treebio/app/dto"
	businessflow "github.com/treebio/treebio/business_flow"
	"github.com/treebio/treebio/models"
	"github.com/treebio/treebio/utils"
)

// sessionCookieName carries the anonymous visitor session id used for
// unique-visitor dedup
const sessionCookieName = "tb_session"

// PublicHandlerInterface defines the contract for the public page endpoints
type PublicHandlerInterface interface {
	GetPage(c fiber.Ctx) error
	ClickLink(c fiber.Ctx) error
}

// PublicHandler serves linktree pages to visitors and records view and
// click events. Event recording never delays the response.
type PublicHandler struct {
	linktreeFlow businessflow.LinktreeFlow
	intake       businessflow.EventIntake
	sessionTTL   time.Duration
}

// NewPublicHandler creates a new public page handler
func NewPublicHandler(linktreeFlow businessflow.LinktreeFlow, intake businessflow.EventIntake, sessionTTL time.Duration) PublicHandlerInterface {
	return &PublicHandler{
		linktreeFlow: linktreeFlow,
		intake:       intake,
		sessionTTL:   sessionTTL,
	}
}

func (h *PublicHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// GetPage serves the public page payload and records a page view
// @Summary Get Public Page
// @Description Resolve a linktree page by short id with its ordered links
// @Tags Public
// @Produce json
// @Param shortID path string true "Public short id"
// @Success 200 {object} dto.APIResponse{data=dto.LinktreeDTO} "Page retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Page not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /p/{shortID} [get]
func (h *PublicHandler) GetPage(c fiber.Ctx) error {
	shortID := c.Params("shortID")
	if shortID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Short id is required", "MISSING_SHORT_ID", nil)
	}

	page, err := h.resolveActivePage(c, shortID)
	if err != nil {
		// disabled pages are indistinguishable from missing ones
		if businessflow.IsLinktreeNotFound(err) || businessflow.IsLinktreeDisabled(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Page not found", "PAGE_NOT_FOUND", nil)
		}
		log.Println("Public page lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Page lookup failed", "PAGE_LOOKUP_FAILED", nil)
	}

	h.intake.RecordView(page.ID, h.visitorMetadata(c))

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Page retrieved successfully",
		Data:    page,
	})
}

// ClickLink records a link click and redirects the visitor to the target URL
// @Summary Click Link
// @Description Record a click on a page link and redirect to its URL
// @Tags Public
// @Produce json
// @Param shortID path string true "Public short id"
// @Param linkID path int true "Link ID"
// @Success 302 {string} string "Redirect to the link target"
// @Failure 404 {object} dto.APIResponse "Page or link not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /p/{shortID}/l/{linkID} [get]
func (h *PublicHandler) ClickLink(c fiber.Ctx) error {
	shortID := c.Params("shortID")
	if shortID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Short id is required", "MISSING_SHORT_ID", nil)
	}
	linkID, err := strconv.ParseUint(c.Params("linkID"), 10, 32)
	if err != nil || linkID == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link id", "INVALID_LINK_ID", nil)
	}

	page, err := h.resolveActivePage(c, shortID)
	if err != nil {
		if businessflow.IsLinktreeNotFound(err) || businessflow.IsLinktreeDisabled(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Page not found", "PAGE_NOT_FOUND", nil)
		}
		log.Println("Public page lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Page lookup failed", "PAGE_LOOKUP_FAILED", nil)
	}

	var target *dto.LinkDTO
	for i := range page.Links {
		if page.Links[i].ID == uint(linkID) {
			target = &page.Links[i]
			break
		}
	}
	if target == nil {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Link not found", "LINK_NOT_FOUND", nil)
	}

	var platform *string
	if target.Platform != "" {
		platform = utils.ToPtr(target.Platform)
	}
	h.intake.RecordClick(page.ID, target.ID, platform, h.visitorMetadata(c))

	return c.Redirect().Status(fiber.StatusFound).To(target.URL)
}

// resolveActivePage reads the page payload through the cache and rejects
// disabled pages
func (h *PublicHandler) resolveActivePage(c fiber.Ctx, shortID string) (*dto.LinktreeDTO, error) {
	page, err := h.linktreeFlow.GetWithLinks(h.createRequestContext(c, "/p/"+shortID), shortID)
	if err != nil {
		return nil, err
	}
	if page.Status == models.LinktreeStatusDisabled {
		return nil, businessflow.ErrLinktreeDisabled
	}
	return page, nil
}

// visitorMetadata builds the dedup identity for the current request,
// establishing the session cookie on first contact
func (h *PublicHandler) visitorMetadata(c fiber.Ctx) *businessflow.VisitorMetadata {
	sessionID := c.Cookies(sessionCookieName)
	if sessionID == "" {
		sessionID = uuid.New().String()
		c.Cookie(&fiber.Cookie{
			Name:     sessionCookieName,
			Value:    sessionID,
			Expires:  utils.UTCNow().Add(h.sessionTTL),
			Path:     "/",
			HTTPOnly: true,
			SameSite: "Lax",
		})
	}

	metadata := businessflow.NewVisitorMetadata(c.IP(), c.Get("User-Agent"), sessionID)
	metadata.SetReferer(c.Get("Referer"))
	metadata.SetRequestID(c.Get("X-Request-ID"))
	return metadata
}

func (h *PublicHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}

func (h *PublicHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
