// Package intake filters a raw file selection into accepted tracked files,
// applying the extension and size rules before anything touches the network.
package intake

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/folio-dashboard/importer/internal/classify"
	"github.com/folio-dashboard/importer/internal/models"
	"github.com/folio-dashboard/importer/internal/notify"
)

// Candidate is one file in the raw selection, before validation.
type Candidate struct {
	Name string
	Size int64
}

// Accepted is one validated file together with its position in the original
// selection, so callers can pair it back to the source bytes by index
// instead of by filename.
type Accepted struct {
	models.TrackedFile
	SelectionIndex int
}

// Result partitions a selection. Ordering inside each slice preserves the
// input order.
type Result struct {
	Accepted       []Accepted
	RejectedNonCSV []string
	Oversized      []string
	Warnings       []string
}

// Validator applies the intake rules and emits the associated user-facing
// notifications.
type Validator struct {
	maxSize  int64
	notifier notify.Notifier
}

// NewValidator creates a validator that drops files larger than maxSize
// bytes.
func NewValidator(maxSize int64, notifier notify.Notifier) *Validator {
	return &Validator{maxSize: maxSize, notifier: notifier}
}

// Intake validates each candidate in order. Non-CSV files are rejected and
// reported in one aggregate notification; oversized files are dropped with a
// per-file notification; files with an unrecognized name are accepted but
// produce a per-file warning. Rejected files never become tracked files.
func (v *Validator) Intake(selection []Candidate) Result {
	var res Result

	for i, cand := range selection {
		if !strings.EqualFold(filepath.Ext(cand.Name), ".csv") {
			res.RejectedNonCSV = append(res.RejectedNonCSV, cand.Name)
			continue
		}

		if cand.Size > v.maxSize {
			res.Oversized = append(res.Oversized, cand.Name)
			v.notifier.Error("File too large",
				fmt.Sprintf("%s exceeds the %d MiB limit and was skipped", cand.Name, v.maxSize/(1024*1024)))
			continue
		}

		class := classify.Classify(cand.Name)
		if class == models.ClassUnknown {
			warning := fmt.Sprintf("%s does not match a known export format and will be sent as-is", cand.Name)
			res.Warnings = append(res.Warnings, warning)
			v.notifier.Warning("Unrecognized format", warning)
		}

		res.Accepted = append(res.Accepted, Accepted{
			TrackedFile: models.TrackedFile{
				ID:             uuid.New().String(),
				Name:           cand.Name,
				Size:           cand.Size,
				Classification: class,
				Status:         models.StatusPending,
				AddedAt:        time.Now(),
			},
			SelectionIndex: i,
		})
	}

	if len(res.RejectedNonCSV) > 0 {
		v.notifier.Error("Files skipped",
			fmt.Sprintf("only CSV files are supported: %s", strings.Join(res.RejectedNonCSV, ", ")))
	}

	return res
}
