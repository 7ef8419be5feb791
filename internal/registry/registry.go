// Package registry holds the ordered collection of tracked files. The
// sequence never reorders on status change so the dashboard rows stay put.
package registry

import (
	"sync"

	"github.com/folio-dashboard/importer/internal/models"
)

// Registry is an append-only-by-default ordered store of tracked files.
// All mutation goes through the registry's lock; the orchestrator and the
// retry coordinator are the only writers.
type Registry struct {
	mu    sync.RWMutex
	files []models.TrackedFile
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Add appends files to the end of the sequence, supporting incremental
// multi-drop.
func (r *Registry) Add(files ...models.TrackedFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, files...)
}

// Remove deletes the entry at index, permitted only while it is pending.
// Removal of an in-flight or settled entry is a no-op; the removed file is
// returned so the caller can release its spooled bytes.
func (r *Registry) Remove(index int) (models.TrackedFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.files) {
		return models.TrackedFile{}, false
	}
	if r.files[index].Status != models.StatusPending {
		return models.TrackedFile{}, false
	}

	removed := r.files[index]
	r.files = append(r.files[:index], r.files[index+1:]...)
	return removed, true
}

// RemoveID removes the entry with the given ID under the same pending-only
// rule as Remove.
func (r *Registry) RemoveID(id string) (models.TrackedFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, f := range r.files {
		if f.ID != id {
			continue
		}
		if f.Status != models.StatusPending {
			return models.TrackedFile{}, false
		}
		r.files = append(r.files[:i], r.files[i+1:]...)
		return f, true
	}
	return models.TrackedFile{}, false
}

// ClearAll empties the registry. It is refused while any entry is uploading,
// protecting in-flight consistency. The removed files are returned for spool
// cleanup.
func (r *Registry) ClearAll() ([]models.TrackedFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.files {
		if f.Status == models.StatusUploading {
			return nil, false
		}
	}

	removed := r.files
	r.files = nil
	return removed, true
}

// UpdateMany applies patch to every entry matching pred and returns the
// number of entries touched. This is the bulk mutation used by the
// orchestrator for state transitions and progress broadcast.
func (r *Registry) UpdateMany(pred func(models.TrackedFile) bool, patch func(*models.TrackedFile)) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.files {
		if pred(r.files[i]) {
			patch(&r.files[i])
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the full sequence in order.
func (r *Registry) Snapshot() []models.TrackedFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.TrackedFile, len(r.files))
	copy(out, r.files)
	return out
}

// Get returns the entry with the given ID.
func (r *Registry) Get(id string) (models.TrackedFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.files {
		if f.ID == id {
			return f, true
		}
	}
	return models.TrackedFile{}, false
}

// Len returns the number of tracked files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// CountStatus returns how many entries currently carry the given status.
func (r *Registry) CountStatus(status models.Status) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, f := range r.files {
		if f.Status == status {
			n++
		}
	}
	return n
}
