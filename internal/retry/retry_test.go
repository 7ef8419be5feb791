package retry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/folio-dashboard/importer/internal/models"
	"github.com/folio-dashboard/importer/internal/notify"
	"github.com/folio-dashboard/importer/internal/registry"
	"github.com/folio-dashboard/importer/internal/testutil"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("doing request: %w", context.DeadlineExceeded), true},
		{"net timeout", timeoutErr{}, true},
		{"url error means no response", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"plain error", errors.New("backend returned 500 Internal Server Error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.want {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func failedRegistry(ids ...string) *registry.Registry {
	reg := registry.New()
	for _, id := range ids {
		reg.Add(models.TrackedFile{
			ID:          id,
			Name:        id + ".csv",
			Status:      models.StatusError,
			Progress:    100,
			ErrorDetail: "upload failed: no response from server",
		})
	}
	return reg
}

func TestRearmAfterTransientFailure(t *testing.T) {
	reg := failedRegistry("a", "b")
	rec := testutil.NewNotifyRecorder()
	c := New(reg, rec, 10*time.Millisecond, 2)
	defer c.Close()

	c.HandleTransportFailure(context.DeadlineExceeded, 0)

	deadline := time.Now().Add(time.Second)
	for reg.CountStatus(models.StatusPending) != 2 {
		if time.Now().After(deadline) {
			t.Fatal("failed files were not re-armed to pending")
		}
		time.Sleep(2 * time.Millisecond)
	}

	for _, f := range reg.Snapshot() {
		if f.Progress != 0 || f.ErrorDetail != "" {
			t.Errorf("%s: re-arm must reset progress and detail, got %d %q", f.ID, f.Progress, f.ErrorDetail)
		}
	}

	// Re-arming only prompts; it never performs the upload. The user sees
	// one info notification.
	infos := rec.ByLevel(notify.LevelInfo)
	if len(infos) != 1 {
		t.Fatalf("expected 1 info notification, got %d", len(infos))
	}
}

func TestNoRearmPastCap(t *testing.T) {
	reg := failedRegistry("a")
	rec := testutil.NewNotifyRecorder()
	c := New(reg, rec, time.Millisecond, 2)
	defer c.Close()

	c.HandleTransportFailure(context.DeadlineExceeded, 2)

	time.Sleep(30 * time.Millisecond)
	if reg.CountStatus(models.StatusPending) != 0 {
		t.Error("attempts at the cap must not re-arm")
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("expected no notifications, got %d", len(rec.Calls()))
	}
}

func TestNoRearmForNonTransient(t *testing.T) {
	reg := failedRegistry("a")
	rec := testutil.NewNotifyRecorder()
	c := New(reg, rec, time.Millisecond, 2)
	defer c.Close()

	c.HandleTransportFailure(errors.New("backend returned 422"), 0)

	time.Sleep(30 * time.Millisecond)
	if reg.CountStatus(models.StatusPending) != 0 {
		t.Error("non-transient failures must not re-arm")
	}
}

func TestCloseCancelsPendingRearm(t *testing.T) {
	reg := failedRegistry("a")
	rec := testutil.NewNotifyRecorder()
	c := New(reg, rec, 20*time.Millisecond, 2)

	c.HandleTransportFailure(context.DeadlineExceeded, 0)
	c.Close()

	time.Sleep(60 * time.Millisecond)
	if reg.CountStatus(models.StatusPending) != 0 {
		t.Error("a closed coordinator must not touch the registry")
	}
}

func TestCanRetry(t *testing.T) {
	reg := failedRegistry("a")
	c := New(reg, testutil.NewNotifyRecorder(), time.Millisecond, 2)
	defer c.Close()

	if !c.CanRetry(false) {
		t.Error("expected retry to be available with a failed file and no upload running")
	}
	if c.CanRetry(true) {
		t.Error("retry must be unavailable while an upload is in flight")
	}

	reg.UpdateMany(
		func(f models.TrackedFile) bool { return true },
		func(f *models.TrackedFile) { f.Status = models.StatusSuccess })
	if c.CanRetry(false) {
		t.Error("retry must be unavailable with nothing failed")
	}
}
