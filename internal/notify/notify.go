// Package notify carries user-facing outcome notifications from the import
// pipeline to the dashboard. The pipeline fires notifications and never
// blocks on them; the Center keeps them available for UI polling until they
// auto-dismiss or the user dismisses them.
package notify

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is one user-visible message. AutoDismiss of zero means the
// notification is sticky until explicitly dismissed.
type Notification struct {
	ID          string        `json:"id"`
	Level       Level         `json:"level"`
	Title       string        `json:"title"`
	Detail      string        `json:"detail"`
	AutoDismiss time.Duration `json:"autoDismissMs"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Notifier is the contract the pipeline requires from its environment.
// Calls are fire-and-forget.
type Notifier interface {
	Success(title, detail string)
	Error(title, detail string)
	Warning(title, detail string)
	Info(title, detail string)
}

// Durations configures per-level auto-dismiss times. A zero duration makes
// that level sticky.
type Durations struct {
	Success time.Duration
	Warning time.Duration
	Info    time.Duration
	// Errors are always sticky.
}

// Center implements Notifier on top of an expiring in-memory store, so the
// dashboard can poll active notifications and auto-dismiss falls out of
// entry TTLs.
type Center struct {
	store     *cache.Cache
	durations Durations
}

// NewCenter creates a notification center with the given auto-dismiss
// durations.
func NewCenter(d Durations) *Center {
	return &Center{
		store:     cache.New(cache.NoExpiration, time.Minute),
		durations: d,
	}
}

func (c *Center) Success(title, detail string) { c.publish(LevelSuccess, title, detail) }
func (c *Center) Error(title, detail string)   { c.publish(LevelError, title, detail) }
func (c *Center) Warning(title, detail string) { c.publish(LevelWarning, title, detail) }
func (c *Center) Info(title, detail string)    { c.publish(LevelInfo, title, detail) }

func (c *Center) publish(level Level, title, detail string) {
	ttl := c.ttl(level)
	n := Notification{
		ID:          uuid.New().String(),
		Level:       level,
		Title:       title,
		Detail:      detail,
		AutoDismiss: ttl,
		CreatedAt:   time.Now(),
	}

	expiry := cache.NoExpiration
	if ttl > 0 {
		expiry = ttl
	}
	c.store.Set(n.ID, n, expiry)

	c.log(level, title, detail)
}

func (c *Center) ttl(level Level) time.Duration {
	switch level {
	case LevelSuccess:
		return c.durations.Success
	case LevelWarning:
		return c.durations.Warning
	case LevelInfo:
		return c.durations.Info
	default:
		return 0
	}
}

func (c *Center) log(level Level, title, detail string) {
	switch level {
	case LevelError:
		slog.Error(title, "detail", detail)
	case LevelWarning:
		slog.Warn(title, "detail", detail)
	default:
		slog.Info(title, "detail", detail, "level", string(level))
	}
}

// Active returns all notifications that have not expired or been dismissed,
// oldest first.
func (c *Center) Active() []Notification {
	items := c.store.Items()
	out := make([]Notification, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(Notification))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Dismiss removes a notification by ID. It reports whether the notification
// was present.
func (c *Center) Dismiss(id string) bool {
	if _, found := c.store.Get(id); !found {
		return false
	}
	c.store.Delete(id)
	return true
}
