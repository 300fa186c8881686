// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/treebio/treebio/app/dto"
	businessflow "github.com/treebio/treebio/business_flow"
	"github.com/treebio/treebio/utils"
)

// LinktreeHandlerInterface defines the contract for linktree admin handlers
type LinktreeHandlerInterface interface {
	CreateLinktree(c fiber.Ctx) error
	GetLinktree(c fiber.Ctx) error
	ListLinktrees(c fiber.Ctx) error
	UpdateLinktree(c fiber.Ctx) error
	DeleteLinktree(c fiber.Ctx) error
	ReplaceLinks(c fiber.Ctx) error
}

// LinktreeHandler handles linktree admin HTTP requests
type LinktreeHandler struct {
	linktreeFlow businessflow.LinktreeFlow
	validator    *validator.Validate
	publicDomain string
}

// NewLinktreeHandler creates a new linktree handler. publicDomain is the
// base under which created pages are served.
func NewLinktreeHandler(linktreeFlow businessflow.LinktreeFlow, publicDomain string) *LinktreeHandler {
	return &LinktreeHandler{
		linktreeFlow: linktreeFlow,
		validator:    validator.New(),
		publicDomain: strings.TrimRight(publicDomain, "/"),
	}
}

func (h *LinktreeHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LinktreeHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateLinktree handles the linktree creation process
// @Summary Create Linktree
// @Description Create a new linktree page together with its initial link set
// @Tags Linktrees
// @Accept json
// @Produce json
// @Param request body dto.CreateLinktreeRequest true "Linktree creation data"
// @Success 201 {object} dto.APIResponse "Linktree created with its public URL"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 409 {object} dto.APIResponse "Slug already taken"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/linktrees [post]
func (h *LinktreeHandler) CreateLinktree(c fiber.Ctx) error {
	var req dto.CreateLinktreeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.linktreeFlow.Create(h.createRequestContext(c, "/api/v1/admin/linktrees"), &req)
	if err != nil {
		if businessflow.IsDuplicateSlug(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Slug already taken", "DUPLICATE_SLUG", nil)
		}
		if businessflow.IsValidationFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Link set contains no valid entries", "INVALID_LINKS", nil)
		}
		if businessflow.IsShortIDExhausted(err) {
			return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Could not allocate a short id, retry", "SHORT_ID_EXHAUSTED", nil)
		}

		log.Println("Linktree creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Linktree creation failed", "LINKTREE_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, fiber.Map{
		"linktree":   result.Linktree,
		"public_url": h.publicDomain + "/p/" + result.Linktree.ShortID,
	})
}

// GetLinktree returns one linktree by numeric id
// @Summary Get Linktree
// @Tags Linktrees
// @Produce json
// @Param id path int true "Linktree ID"
// @Success 200 {object} dto.APIResponse{data=dto.LinktreeDTO} "Linktree retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Linktree not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/linktrees/{id} [get]
func (h *LinktreeHandler) GetLinktree(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid linktree id", "INVALID_ID", nil)
	}

	result, err := h.linktreeFlow.GetByID(h.createRequestContext(c, "/api/v1/admin/linktrees/:id"), id)
	if err != nil {
		if businessflow.IsLinktreeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Linktree not found", "LINKTREE_NOT_FOUND", nil)
		}
		log.Println("Linktree lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Linktree lookup failed", "LINKTREE_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Linktree retrieved successfully", result)
}

// ListLinktrees returns all linktree pages, optionally with analytics summaries
// @Summary List Linktrees
// @Tags Linktrees
// @Produce json
// @Param analytics query bool false "Attach analytics summaries"
// @Success 200 {object} dto.APIResponse{data=dto.ListLinktreesResponse} "Linktrees retrieved successfully"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/linktrees [get]
func (h *LinktreeHandler) ListLinktrees(c fiber.Ctx) error {
	includeAnalytics, _ := strconv.ParseBool(c.Query("analytics"))

	result, err := h.linktreeFlow.ListAll(h.createRequestContext(c, "/api/v1/admin/linktrees"), includeAnalytics)
	if err != nil {
		log.Println("Linktree list failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Linktree list failed", "LINKTREE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"linktrees": result.Linktrees,
	})
}

// UpdateLinktree handles a partial linktree update
// @Summary Update Linktree
// @Description Update fields of an existing linktree; absent fields stay unchanged
// @Tags Linktrees
// @Accept json
// @Produce json
// @Param id path int true "Linktree ID"
// @Param request body dto.UpdateLinktreeRequest true "Linktree update data"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateLinktreeResponse} "Linktree updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 404 {object} dto.APIResponse "Linktree not found"
// @Failure 409 {object} dto.APIResponse "Slug already taken"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/linktrees/{id} [put]
func (h *LinktreeHandler) UpdateLinktree(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid linktree id", "INVALID_ID", nil)
	}

	var req dto.UpdateLinktreeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.linktreeFlow.Update(h.createRequestContext(c, "/api/v1/admin/linktrees/:id"), id, &req)
	if err != nil {
		if businessflow.IsLinktreeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Linktree not found", "LINKTREE_NOT_FOUND", nil)
		}
		if businessflow.IsDuplicateSlug(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Slug already taken", "DUPLICATE_SLUG", nil)
		}
		if businessflow.GetErrorCode(err) == "VALIDATION_ERROR" {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		log.Println("Linktree update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Linktree update failed", "LINKTREE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result.Linktree)
}

// DeleteLinktree removes a linktree page with its links
// @Summary Delete Linktree
// @Description Delete a linktree and its link set; repeating the call is a no-op
// @Tags Linktrees
// @Produce json
// @Param id path int true "Linktree ID"
// @Success 200 {object} dto.APIResponse "Linktree deleted successfully"
// @Failure 400 {object} dto.APIResponse "Invalid linktree id"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/linktrees/{id} [delete]
func (h *LinktreeHandler) DeleteLinktree(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid linktree id", "INVALID_ID", nil)
	}

	if err := h.linktreeFlow.Delete(h.createRequestContext(c, "/api/v1/admin/linktrees/:id"), id); err != nil {
		log.Println("Linktree deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Linktree deletion failed", "LINKTREE_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Linktree deleted successfully", nil)
}

// ReplaceLinks swaps the complete link set of a linktree
// @Summary Replace Links
// @Description Replace all links of a linktree; display order follows the request order
// @Tags Linktrees
// @Accept json
// @Produce json
// @Param id path int true "Linktree ID"
// @Param request body dto.ReplaceLinksRequest true "New link set"
// @Success 200 {object} dto.APIResponse{data=dto.ReplaceLinksResponse} "Links replaced successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 404 {object} dto.APIResponse "Linktree not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/linktrees/{id}/links [put]
func (h *LinktreeHandler) ReplaceLinks(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid linktree id", "INVALID_ID", nil)
	}

	var req dto.ReplaceLinksRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.linktreeFlow.ReplaceLinks(h.createRequestContext(c, "/api/v1/admin/linktrees/:id/links"), id, &req)
	if err != nil {
		if businessflow.IsLinktreeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Linktree not found", "LINKTREE_NOT_FOUND", nil)
		}
		if businessflow.IsValidationFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Link set contains no valid entries", "INVALID_LINKS", nil)
		}
		log.Println("Link replacement failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Link replacement failed", "REPLACE_LINKS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"links": result.Links,
	})
}

func parseIDParam(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func (h *LinktreeHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 15*time.Second)
}

func (h *LinktreeHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
