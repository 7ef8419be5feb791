// Package retry decides which failed files are eligible for another upload
// attempt. A transient transport failure re-arms failed entries back to
// pending after a short delay; it never resubmits the network call itself.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/folio-dashboard/importer/internal/models"
	"github.com/folio-dashboard/importer/internal/notify"
	"github.com/folio-dashboard/importer/internal/registry"
)

// Coordinator implements the soft-retry policy on top of the registry.
type Coordinator struct {
	reg         *registry.Registry
	notifier    notify.Notifier
	delay       time.Duration
	maxAttempts int

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// New creates a coordinator. delay is how long after a transient failure the
// failed entries are re-armed; maxAttempts bounds automatic re-arming.
func New(reg *registry.Registry, notifier notify.Notifier, delay time.Duration, maxAttempts int) *Coordinator {
	return &Coordinator{
		reg:         reg,
		notifier:    notifier,
		delay:       delay,
		maxAttempts: maxAttempts,
	}
}

// HandleTransportFailure schedules a soft retry when the failure looks
// transient and the attempt count is below the cap. Implements
// uploader.FailureHandler.
func (c *Coordinator) HandleTransportFailure(err error, attempt int) {
	if !Transient(err) || attempt >= c.maxAttempts {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.rearm)
}

// rearm resets every failed file back to pending and prompts the user. The
// next upload invocation performs the actual attempt.
func (c *Coordinator) rearm() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	n := c.reg.UpdateMany(
		func(f models.TrackedFile) bool { return f.Status == models.StatusError },
		func(f *models.TrackedFile) {
			f.Status = models.StatusPending
			f.Progress = 0
			f.ErrorDetail = ""
		})
	if n > 0 {
		c.notifier.Info("Upload interrupted",
			fmt.Sprintf("%d file(s) were re-queued, trigger the upload again to retry", n))
	}
}

// CanRetry reports whether the manual retry control should be enabled: at
// least one failed file and no upload in flight.
func (c *Coordinator) CanRetry(uploadInFlight bool) bool {
	return !uploadInFlight && c.reg.CountStatus(models.StatusError) > 0
}

// Close cancels any scheduled re-arm; used on host teardown.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Transient reports whether a total request failure looks transient: a
// timeout, or a transport-level error that means no HTTP response was
// received at all. A malformed or non-OK response is not transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
