// Package uploader drives one batch network call for all eligible tracked
// files, broadcasting scalar progress to every in-flight entry and
// redistributing the response's per-file outcomes back onto the registry by
// position.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/folio-dashboard/importer/internal/models"
	"github.com/folio-dashboard/importer/internal/notify"
	"github.com/folio-dashboard/importer/internal/registry"
	"github.com/folio-dashboard/importer/internal/spool"
)

var (
	// ErrUploadInFlight is returned when an upload round is requested while
	// another is still running. One round per registry at a time.
	ErrUploadInFlight = errors.New("an upload is already in progress")

	// ErrClosed is returned after the orchestrator has been shut down.
	ErrClosed = errors.New("uploader is closed")
)

// FailureHandler receives total transport failures so a retry policy can be
// layered on top of the single network call.
type FailureHandler interface {
	HandleTransportFailure(err error, attempt int)
}

// Config holds the orchestrator's explicit configuration; nothing is reached
// via ambient globals.
type Config struct {
	Endpoint    string
	FieldName   string
	MaxAttempts int
}

// Orchestrator performs batch uploads against the portfolio backend.
type Orchestrator struct {
	cfg      Config
	client   *http.Client
	reg      *registry.Registry
	files    spool.Store
	notifier notify.Notifier
	failures FailureHandler

	onProgress func(percent int)
	onRefresh  func()

	mu       sync.Mutex
	inFlight bool
	attempt  int
	closed   bool
}

// New creates an orchestrator. client carries the fixed request timeout;
// failures, onProgress and onRefresh may be nil.
func New(cfg Config, client *http.Client, reg *registry.Registry, files spool.Store, notifier notify.Notifier, failures FailureHandler, onProgress func(int), onRefresh func()) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		reg:        reg,
		files:      files,
		notifier:   notifier,
		failures:   failures,
		onProgress: onProgress,
		onRefresh:  onRefresh,
	}
}

// InFlight reports whether an upload round is currently running.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Attempt returns the attempt number of the most recent round.
func (o *Orchestrator) Attempt() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempt
}

// Close marks the orchestrator as disposed. A round still in flight will
// discard its late-arriving response instead of touching the registry.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

// Start begins an upload round in the background, failing fast if another
// round is in flight.
func (o *Orchestrator) Start(attempt int) error {
	if err := o.begin(attempt); err != nil {
		return err
	}
	go func() {
		defer o.end()
		o.run(context.Background(), attempt)
	}()
	return nil
}

// StartRetry begins a background round that re-includes failed files.
func (o *Orchestrator) StartRetry() error {
	return o.Start(o.Attempt() + 1)
}

// Upload runs one round synchronously. On attempt 0 the eligible set is
// every pending file; on later attempts failed files are re-included. The
// round never leaves a file in the uploading state after it settles.
func (o *Orchestrator) Upload(ctx context.Context, attempt int) error {
	if err := o.begin(attempt); err != nil {
		return err
	}
	defer o.end()
	return o.run(ctx, attempt)
}

func (o *Orchestrator) begin(attempt int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.inFlight {
		return ErrUploadInFlight
	}
	o.inFlight = true
	o.attempt = attempt
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, attempt int) error {
	eligible := o.eligible(attempt)
	if len(eligible) == 0 {
		o.notifier.Info("Nothing to upload", "add CSV files first")
		return nil
	}

	ids := make(map[string]bool, len(eligible))
	for _, f := range eligible {
		ids[f.ID] = true
	}

	// Single bulk transition keeps the dashboard race-free.
	o.reg.UpdateMany(
		func(f models.TrackedFile) bool { return ids[f.ID] },
		func(f *models.TrackedFile) {
			f.Status = models.StatusUploading
			f.Progress = 0
			f.ErrorDetail = ""
			f.ResultCount = 0
		})

	body, contentType, err := o.buildBatch(eligible)
	if err != nil {
		slog.Error("assembling upload batch failed", "error", err)
		o.markFailed(ids, "could not read staged file")
		o.notifier.Error("Upload failed", "staged files could not be read, remove and re-add them")
		return err
	}

	batch, err := o.send(ctx, body, contentType, ids)
	if o.isClosed() {
		// Host torn down mid-upload; the late response must not touch
		// the registry.
		return err
	}
	if err != nil {
		o.markFailed(ids, "upload failed: no response from server")
		o.notifier.Error("Upload failed",
			fmt.Sprintf("%d file(s) could not be uploaded", len(eligible)))
		if o.failures != nil {
			o.failures.HandleTransportFailure(err, attempt)
		}
		return err
	}

	o.settle(eligible, batch, attempt)
	return nil
}

// eligible derives the upload set for an attempt, preserving registry order.
func (o *Orchestrator) eligible(attempt int) []models.TrackedFile {
	var out []models.TrackedFile
	for _, f := range o.reg.Snapshot() {
		switch f.Status {
		case models.StatusPending:
			out = append(out, f)
		case models.StatusError:
			if attempt > 0 {
				out = append(out, f)
			}
		}
	}
	return out
}

// buildBatch assembles one multipart body containing every eligible file
// under the configured field name, in eligible order.
func (o *Orchestrator) buildBatch(eligible []models.TrackedFile) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, f := range eligible {
		part, err := w.CreateFormFile(o.cfg.FieldName, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("creating form part for %s: %w", f.Name, err)
		}
		rc, err := o.files.Open(f.SpoolID)
		if err != nil {
			return nil, "", err
		}
		_, err = io.Copy(part, rc)
		rc.Close()
		if err != nil {
			return nil, "", fmt.Errorf("copying %s into batch: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing batch body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// send performs the single batch request, reporting scalar progress for the
// whole body to every still-uploading entry.
func (o *Orchestrator) send(ctx context.Context, body *bytes.Buffer, contentType string, ids map[string]bool) (*models.BatchResponse, error) {
	total := int64(body.Len())
	cr := newCountingReader(body, total, func(pct int) {
		o.broadcastProgress(ids, pct)
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.Endpoint, cr)
	if err != nil {
		return nil, fmt.Errorf("building batch request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = total

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %s", resp.Status)
	}

	var batch models.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decoding batch response: %w", err)
	}
	return &batch, nil
}

func (o *Orchestrator) broadcastProgress(ids map[string]bool, pct int) {
	if o.isClosed() {
		return
	}
	o.reg.UpdateMany(
		func(f models.TrackedFile) bool {
			return ids[f.ID] && f.Status == models.StatusUploading
		},
		func(f *models.TrackedFile) { f.Progress = pct })
	if o.onProgress != nil {
		o.onProgress(pct)
	}
}

// settle redistributes outcomes onto registry entries by position. The
// correlation is strictly positional: outcome i belongs to eligible[i],
// never to a name lookup, so duplicate filenames cannot cross wires.
func (o *Orchestrator) settle(eligible []models.TrackedFile, batch *models.BatchResponse, attempt int) {
	if len(batch.Files) != len(eligible) {
		ids := make(map[string]bool, len(eligible))
		for _, f := range eligible {
			ids[f.ID] = true
		}
		o.markFailed(ids, "backend returned a mismatched result set")
		o.notifier.Error("Upload failed", "the server response did not cover every file")
		return
	}

	successes, failures, records := 0, 0, 0
	for i, f := range eligible {
		outcome := batch.Files[i]
		id := f.ID

		if outcome.Status == models.OutcomeSuccess {
			count := outcome.TransactionsCount
			o.reg.UpdateMany(
				func(f models.TrackedFile) bool { return f.ID == id },
				func(f *models.TrackedFile) {
					f.Status = models.StatusSuccess
					f.Progress = 100
					f.ResultCount = count
					f.ErrorDetail = ""
				})
			successes++
			records += count
			if err := o.files.Delete(f.SpoolID); err != nil {
				slog.Warn("releasing spooled file failed", "file", f.Name, "error", err)
			}
			continue
		}

		detail := strings.Join(outcome.Errors, ", ")
		if detail == "" {
			detail = "import failed"
		}
		o.reg.UpdateMany(
			func(f models.TrackedFile) bool { return f.ID == id },
			func(f *models.TrackedFile) {
				f.Status = models.StatusError
				f.Progress = 100
				f.ErrorDetail = detail
			})
		failures++
	}

	o.notifyRound(successes, failures, records, attempt)

	if successes > 0 && o.onRefresh != nil {
		o.onRefresh()
	}
}

func (o *Orchestrator) notifyRound(successes, failures, records, attempt int) {
	if failures == 0 {
		o.notifier.Success("Upload complete",
			fmt.Sprintf("%d file(s) imported, %d transactions", successes, records))
		return
	}

	hint := "you can retry the failed files"
	if attempt >= o.cfg.MaxAttempts {
		hint = "check your file formats"
	}

	if successes > 0 {
		o.notifier.Warning("Upload partially complete",
			fmt.Sprintf("%d uploaded (%d transactions), %d failed; %s", successes, records, failures, hint))
		return
	}
	o.notifier.Error("Upload failed",
		fmt.Sprintf("%d file(s) failed; %s", failures, hint))
}

// markFailed moves every entry of the round that is still uploading to the
// error state with a uniform message. Used when no authoritative per-file
// information exists.
func (o *Orchestrator) markFailed(ids map[string]bool, msg string) {
	o.reg.UpdateMany(
		func(f models.TrackedFile) bool {
			return ids[f.ID] && f.Status == models.StatusUploading
		},
		func(f *models.TrackedFile) {
			f.Status = models.StatusError
			f.Progress = 100
			f.ErrorDetail = msg
		})
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
