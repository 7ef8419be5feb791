// handlers_notify.go - Notification center handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/folio-dashboard/importer/internal/notify"
)

// NotificationHandlerImpl implements the NotificationHandler interface
type NotificationHandlerImpl struct {
	center *notify.Center
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(center *notify.Center) NotificationHandler {
	return &NotificationHandlerImpl{center: center}
}

// HandleListNotifications returns all active notifications, oldest first.
func (h *NotificationHandlerImpl) HandleListNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, h.center.Active())
}

// HandleDismissNotification removes one notification by ID.
func (h *NotificationHandlerImpl) HandleDismissNotification(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if !h.center.Dismiss(id) {
		return NewNotFoundError("notification", id)
	}
	return c.NoContent(http.StatusNoContent)
}
