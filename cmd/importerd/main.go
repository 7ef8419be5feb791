package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/folio-dashboard/importer/internal/api"
	"github.com/folio-dashboard/importer/internal/config"
	"github.com/folio-dashboard/importer/internal/intake"
	"github.com/folio-dashboard/importer/internal/logging"
	"github.com/folio-dashboard/importer/internal/notify"
	"github.com/folio-dashboard/importer/internal/registry"
	"github.com/folio-dashboard/importer/internal/retry"
	"github.com/folio-dashboard/importer/internal/spool"
	"github.com/folio-dashboard/importer/internal/uploader"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "importer.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel, "text")

	files, err := spool.NewDirStore(cfg.Spool.Directory)
	if err != nil {
		fmt.Printf("Failed to initialize spool store: %v\n", err)
		os.Exit(1)
	}

	reg := registry.New()
	hub := api.NewHub()

	center := notify.NewCenter(notify.Durations{
		Success: time.Duration(cfg.Notifications.SuccessDismissSeconds) * time.Second,
		Warning: time.Duration(cfg.Notifications.WarningDismissSeconds) * time.Second,
		Info:    time.Duration(cfg.Notifications.InfoDismissSeconds) * time.Second,
	})

	retries := retry.New(reg, center, cfg.SoftRetryDelay(), cfg.Retry.MaxAttempts)

	orch := uploader.New(
		uploader.Config{
			Endpoint:    cfg.Backend.UploadURL,
			FieldName:   cfg.Backend.FieldName,
			MaxAttempts: cfg.Retry.MaxAttempts,
		},
		&http.Client{Timeout: cfg.ClientTimeout()},
		reg,
		files,
		center,
		retries,
		hub.BroadcastProgress,
		hub.BroadcastDataChanged,
	)
	defer orch.Close()
	defer retries.Close()

	validator := intake.NewValidator(cfg.Intake.MaxFileSizeBytes, center)

	handlers := api.NewHandlers(&api.Dependencies{
		Registry:  reg,
		Spool:     files,
		Validator: validator,
		Uploader:  orch,
		Retries:   retries,
		Center:    center,
		Hub:       hub,
		Version:   Version,
	})

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/health" ||
				strings.HasPrefix(path, "/api/ws/") ||
				path == "/api/import/files"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, handlers)

	s := &http.Server{
		Addr:         cfg.Addr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	slog.Info("portfolio import daemon starting",
		"version", Version,
		"build_time", BuildTime,
		"listen", cfg.Addr(),
		"backend", cfg.Backend.UploadURL,
		"spool_dir", cfg.Spool.Directory,
	)

	e.Logger.Fatal(e.StartServer(s))
}
