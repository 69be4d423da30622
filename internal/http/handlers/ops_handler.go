// Ops HTTP handlers.
//
// This file exposes operator-facing endpoints:
//   - POST /internal/cleanup-sessions  (expired session sweep)
//   - GET  /internal/audit             (security audit trail, paginated)
//
// These are meant to sit behind network-level access control; the service
// itself does not authenticate them.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexipay/go-payments-backend/internal/domain"
	"github.com/lexipay/go-payments-backend/internal/utils"
)

//
// DTOs
//

// CleanupResponse reports the outcome of an expired-session sweep.
type CleanupResponse struct {
	Success      bool      `json:"success" example:"true"`
	DeletedCount int64     `json:"deleted_count" example:"12"`
	Timestamp    time.Time `json:"timestamp"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListAuditResponse wraps a page of audit events and pagination information.
type ListAuditResponse struct {
	Events     []domain.SecurityAudit `json:"events"`
	Pagination Pagination             `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// CleanupSessions godoc
// @ID          cleanupSessions
// @Summary     Delete expired sessions
// @Description Sweeps all sessions past their expiry and reports the deleted count. Intended to be invoked by an external scheduler.
// @Tags        Ops
// @Produce     json
//
// @Success     200  {object}  handlers.CleanupResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Sweep failed"
// @Router      /internal/cleanup-sessions [post]
func (h *Handlers) CleanupSessions(c *gin.Context) {
	res, err := h.cleanupSvc.Run(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCleanupFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, CleanupResponse{
		Success:      true,
		DeletedCount: res.DeletedCount,
		Timestamp:    res.Timestamp,
	})
}

// ListAudit godoc
// @ID          listAudit
// @Summary     List security audit events (paginated)
// @Description Returns a page of recorded security events, newest first. Optionally filtered by event type.
// @Tags        Ops
// @Produce     json
//
// @Param       event_type  query  string  false "Filter by event type"  example(pin_verification_failed)
// @Param       page        query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size   query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListAuditResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /internal/audit [get]
func (h *Handlers) ListAudit(c *gin.Context) {
	page, pageSize := clampPagination(c)
	eventType := c.Query("event_type")

	rows, total, err := h.auditSvc.List(c.Request.Context(), eventType, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListAuditResponse{
		Events: rows,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
