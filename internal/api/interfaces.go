// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import "github.com/labstack/echo/v4"

// ImportHandler handles the tracked-file and upload operations the dashboard
// drives.
type ImportHandler interface {
	HandleAddFiles(c echo.Context) error
	HandleListFiles(c echo.Context) error
	HandleListFilesMsgpack(c echo.Context) error
	HandleRemoveFile(c echo.Context) error
	HandleClearFiles(c echo.Context) error
	HandleStartUpload(c echo.Context) error
	HandleRetryUpload(c echo.Context) error
}

// NotificationHandler exposes the notification center to the dashboard.
type NotificationHandler interface {
	HandleListNotifications(c echo.Context) error
	HandleDismissNotification(c echo.Context) error
}

// HealthHandler reports daemon liveness.
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
