// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/folio-dashboard/importer/internal/intake"
	"github.com/folio-dashboard/importer/internal/notify"
	"github.com/folio-dashboard/importer/internal/registry"
	"github.com/folio-dashboard/importer/internal/retry"
	"github.com/folio-dashboard/importer/internal/spool"
	"github.com/folio-dashboard/importer/internal/uploader"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Registry  *registry.Registry
	Spool     spool.Store
	Validator *intake.Validator
	Uploader  *uploader.Orchestrator
	Retries   *retry.Coordinator
	Center    *notify.Center
	Hub       *Hub
	Version   string
}

// Handlers holds all handler instances
type Handlers struct {
	Health        HealthHandler
	Import        ImportHandler
	Notifications NotificationHandler
	Hub           *Hub
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:        NewHealthHandler(deps.Version),
		Import:        NewImportHandler(deps.Registry, deps.Spool, deps.Validator, deps.Uploader, deps.Retries),
		Notifications: NewNotificationHandler(deps.Center),
		Hub:           deps.Hub,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.HTTPErrorHandler = ErrorHandler

	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/ws/progress", handlers.Hub.HandleWebSocket)

	importGroup := apiGroup.Group("/import")
	importGroup.POST("/files", handlers.Import.HandleAddFiles)
	importGroup.GET("/files", handlers.Import.HandleListFiles)
	importGroup.GET("/files/msgpack", handlers.Import.HandleListFilesMsgpack)
	importGroup.DELETE("/files/:id", handlers.Import.HandleRemoveFile)
	importGroup.DELETE("/files", handlers.Import.HandleClearFiles)
	importGroup.POST("/upload", handlers.Import.HandleStartUpload)
	importGroup.POST("/retry", handlers.Import.HandleRetryUpload)

	apiGroup.GET("/notifications", handlers.Notifications.HandleListNotifications)
	apiGroup.DELETE("/notifications/:id", handlers.Notifications.HandleDismissNotification)
}
