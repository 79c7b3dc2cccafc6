package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/catalog/internal/audit"
	"github.com/neogan74/catalog/internal/logger"
	"github.com/neogan74/catalog/internal/middleware"
)

// AuditLister reads persisted audit records.
type AuditLister interface {
	List(ctx context.Context, q audit.Query) (*audit.Page, error)
}

// ActivityHandler exposes the audit log.
type ActivityHandler struct {
	lister      AuditLister
	defaultSize int
	maxSize     int
}

func NewActivityHandler(lister AuditLister, defaultSize, maxSize int) *ActivityHandler {
	return &ActivityHandler{lister: lister, defaultSize: defaultSize, maxSize: maxSize}
}

// List returns a page of audit records, most recent first, optionally
// filtered by userId and entityId.
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	q := audit.Query{
		ActorID:          c.Query("userId"),
		AffectedEntityID: c.Query("entityId"),
		Page:             c.QueryInt("page", 1),
		Limit:            c.QueryInt("limit", h.defaultSize),
	}.Normalize(h.defaultSize, h.maxSize)

	page, err := h.lister.List(c.UserContext(), q)
	if err != nil {
		middleware.GetLogger(c).Error("Failed to list audit records", logger.Error(err))
		return middleware.Fail(c, fiber.StatusInternalServerError, "Failed to load activity logs")
	}
	return middleware.Success(c, fiber.StatusOK, "Activity logs retrieved", page)
}
