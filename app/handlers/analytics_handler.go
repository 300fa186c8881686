// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/treebio/treebio/app/dto"
	businessflow "github.com/treebio/treebio/business_flow"
	"github.com/treebio/treebio/utils"
)

// AnalyticsHandlerInterface defines the contract for analytics admin handlers
type AnalyticsHandlerInterface interface {
	GetSummary(c fiber.Ctx) error
	GetTotals(c fiber.Ctx) error
	FlushEvents(c fiber.Ctx) error
	ExportSummary(c fiber.Ctx) error
}

// AnalyticsHandler handles analytics-related HTTP requests
type AnalyticsHandler struct {
	analyticsFlow businessflow.AnalyticsFlow
	eventFlow     businessflow.EventFlow
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsFlow businessflow.AnalyticsFlow, eventFlow businessflow.EventFlow) AnalyticsHandlerInterface {
	return &AnalyticsHandler{
		analyticsFlow: analyticsFlow,
		eventFlow:     eventFlow,
	}
}

func (h *AnalyticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AnalyticsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetSummary returns the analytics summary of one linktree
// @Summary Get Analytics Summary
// @Description Aggregate flushed view and click events for one linktree
// @Tags Analytics
// @Produce json
// @Param id path int true "Linktree ID"
// @Success 200 {object} dto.APIResponse{data=dto.SummaryDTO} "Summary retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Linktree not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/linktrees/{id}/analytics [get]
func (h *AnalyticsHandler) GetSummary(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid linktree id", "INVALID_ID", nil)
	}

	result, err := h.analyticsFlow.Summarize(h.createRequestContext(c, "/api/v1/admin/linktrees/:id/analytics"), id)
	if err != nil {
		if businessflow.IsLinktreeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Linktree not found", "LINKTREE_NOT_FOUND", nil)
		}
		log.Println("Analytics summary failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Analytics summary failed", "ANALYTICS_QUERY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Summary retrieved successfully", result)
}

// GetTotals returns the global view and click totals across all pages
// @Summary Get Global Totals
// @Tags Analytics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.GlobalTotalsDTO} "Totals retrieved successfully"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/analytics/totals [get]
func (h *AnalyticsHandler) GetTotals(c fiber.Ctx) error {
	result, err := h.analyticsFlow.SummarizeAll(h.createRequestContext(c, "/api/v1/admin/analytics/totals"))
	if err != nil {
		log.Println("Global totals failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Global totals failed", "ANALYTICS_QUERY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Totals retrieved successfully", result)
}

// FlushEvents forces a synchronous flush of buffered events
// @Summary Flush Events
// @Description Drain the intake queue and persist buffered events now
// @Tags Analytics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.FlushResponse} "Events flushed successfully"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/analytics/flush [post]
func (h *AnalyticsHandler) FlushEvents(c fiber.Ctx) error {
	result, err := h.eventFlow.Flush(h.createRequestContextWithTimeout(c, "/api/v1/admin/analytics/flush", 60*time.Second))
	if err != nil {
		log.Println("Event flush failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Event flush failed", "EVENT_FLUSH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"flushed_views":  result.FlushedViews,
		"flushed_clicks": result.FlushedClicks,
	})
}

// ExportSummary downloads the analytics summary as an Excel workbook
// @Summary Export Analytics Summary
// @Tags Analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Linktree ID"
// @Success 200 {file} binary "Excel workbook"
// @Failure 404 {object} dto.APIResponse "Linktree not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/linktrees/{id}/analytics/export [get]
func (h *AnalyticsHandler) ExportSummary(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid linktree id", "INVALID_ID", nil)
	}

	fileBytes, filename, err := h.analyticsFlow.ExportSummary(h.createRequestContextWithTimeout(c, "/api/v1/admin/linktrees/:id/analytics/export", 60*time.Second), id)
	if err != nil {
		if businessflow.IsLinktreeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Linktree not found", "LINKTREE_NOT_FOUND", nil)
		}
		log.Println("Analytics export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Analytics export failed", "EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Status(fiber.StatusOK).Send(fileBytes)
}

func (h *AnalyticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 15*time.Second)
}

func (h *AnalyticsHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
