// handlers_import.go - Tracked-file and upload operation handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/folio-dashboard/importer/internal/intake"
	"github.com/folio-dashboard/importer/internal/models"
	"github.com/folio-dashboard/importer/internal/registry"
	"github.com/folio-dashboard/importer/internal/retry"
	"github.com/folio-dashboard/importer/internal/spool"
	"github.com/folio-dashboard/importer/internal/uploader"
)

// ImportHandlerImpl implements the ImportHandler interface
type ImportHandlerImpl struct {
	reg       *registry.Registry
	files     spool.Store
	validator *intake.Validator
	orch      *uploader.Orchestrator
	retries   *retry.Coordinator
}

// NewImportHandler creates a new import handler instance
func NewImportHandler(reg *registry.Registry, files spool.Store, validator *intake.Validator, orch *uploader.Orchestrator, retries *retry.Coordinator) ImportHandler {
	return &ImportHandlerImpl{
		reg:       reg,
		files:     files,
		validator: validator,
		orch:      orch,
		retries:   retries,
	}
}

// addFilesResponse reports the intake outcome for one selection.
type addFilesResponse struct {
	Added          []models.TrackedFile `json:"added"`
	RejectedNonCSV []string             `json:"rejectedNonCsv"`
	Oversized      []string             `json:"oversized"`
	Warnings       []string             `json:"warnings"`
}

// HandleAddFiles accepts a multipart selection of files, runs intake
// validation and classification, spools the accepted files and appends them
// to the registry as pending.
func (h *ImportHandlerImpl) HandleAddFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return NewValidationError("files")
	}

	candidates := make([]intake.Candidate, 0, len(headers))
	for _, fh := range headers {
		candidates = append(candidates, intake.Candidate{Name: fh.Filename, Size: fh.Size})
	}

	res := h.validator.Intake(candidates)

	// Pair each accepted entry back to its multipart header by selection
	// index, never by filename: a selection may hold same-named files where
	// one is rejected and another accepted.
	var added []models.TrackedFile
	for _, acc := range res.Accepted {
		fh := headers[acc.SelectionIndex]
		tf := acc.TrackedFile

		src, err := fh.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		spoolID, err := h.files.Save(tf.Name, src)
		src.Close()
		if err != nil {
			return NewInternalError("failed to stage uploaded file", err)
		}
		tf.SpoolID = spoolID

		h.reg.Add(tf)
		added = append(added, tf)
	}

	return c.JSON(http.StatusCreated, addFilesResponse{
		Added:          added,
		RejectedNonCSV: res.RejectedNonCSV,
		Oversized:      res.Oversized,
		Warnings:       res.Warnings,
	})
}

// HandleListFiles returns the registry snapshot in order.
func (h *ImportHandlerImpl) HandleListFiles(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"files":     h.reg.Snapshot(),
		"uploading": h.orch.InFlight(),
	})
}

// HandleListFilesMsgpack returns the registry snapshot msgpack-encoded, for
// the dashboard's bulk poll.
func (h *ImportHandlerImpl) HandleListFilesMsgpack(c echo.Context) error {
	data, err := msgpack.Marshal(h.reg.Snapshot())
	if err != nil {
		return NewInternalError("failed to encode snapshot", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

// HandleRemoveFile removes a tracked file by ID. Only pending files may be
// removed.
func (h *ImportHandlerImpl) HandleRemoveFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if _, found := h.reg.Get(id); !found {
		return NewNotFoundError("file", id)
	}

	removed, ok := h.reg.RemoveID(id)
	if !ok {
		return NewConflictError("only pending files can be removed")
	}
	if err := h.files.Delete(removed.SpoolID); err != nil {
		c.Logger().Warnf("releasing spooled file: %v", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleClearFiles empties the registry, refused while an upload is in
// flight.
func (h *ImportHandlerImpl) HandleClearFiles(c echo.Context) error {
	removed, ok := h.reg.ClearAll()
	if !ok {
		return NewConflictError("cannot clear while an upload is in progress")
	}
	for _, f := range removed {
		if err := h.files.Delete(f.SpoolID); err != nil {
			c.Logger().Warnf("releasing spooled file: %v", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleStartUpload begins the batch upload round for all pending files.
func (h *ImportHandlerImpl) HandleStartUpload(c echo.Context) error {
	if err := h.orch.Start(0); err != nil {
		if errors.Is(err, uploader.ErrUploadInFlight) {
			return NewConflictError("an upload is already in progress")
		}
		return NewInternalError("failed to start upload", err)
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{"attempt": 0})
}

// HandleRetryUpload begins a round that re-includes failed files.
func (h *ImportHandlerImpl) HandleRetryUpload(c echo.Context) error {
	if !h.retries.CanRetry(h.orch.InFlight()) {
		return NewConflictError("nothing to retry")
	}
	attempt := h.orch.Attempt() + 1
	if err := h.orch.Start(attempt); err != nil {
		if errors.Is(err, uploader.ErrUploadInFlight) {
			return NewConflictError("an upload is already in progress")
		}
		return NewInternalError("failed to start retry", err)
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{"attempt": attempt})
}
