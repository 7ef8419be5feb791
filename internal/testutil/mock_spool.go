// mock_spool.go - In-memory spool store and notifier recorder for testing
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/folio-dashboard/importer/internal/notify"
	"github.com/folio-dashboard/importer/internal/spool"
)

// MemSpool implements spool.Store in memory for testing
type MemSpool struct {
	mu      sync.RWMutex
	data    map[string][]byte
	names   map[string]string
	counter int
}

// NewMemSpool creates a new in-memory spool store
func NewMemSpool() *MemSpool {
	return &MemSpool{
		data:  make(map[string][]byte),
		names: make(map[string]string),
	}
}

func (m *MemSpool) Save(name string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	id := fmt.Sprintf("spool-%d", m.counter)
	m.data[id] = content
	m.names[id] = name
	return id, nil
}

func (m *MemSpool) Open(id string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.data[id]
	if !ok {
		return nil, errors.New("spool entry not found")
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MemSpool) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	delete(m.names, id)
	return nil
}

// Add stores content directly under a fixed ID
func (m *MemSpool) Add(id string, name string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = content
	m.names[id] = name
}

// Count returns the number of spooled entries
func (m *MemSpool) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Has reports whether an entry exists for id
func (m *MemSpool) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[id]
	return ok
}

// Ensure MemSpool implements spool.Store
var _ spool.Store = (*MemSpool)(nil)

// Recorded is one captured notification
type Recorded struct {
	Level  notify.Level
	Title  string
	Detail string
}

// NotifyRecorder implements notify.Notifier and captures every call
type NotifyRecorder struct {
	mu    sync.Mutex
	calls []Recorded
}

// NewNotifyRecorder creates a new notifier recorder
func NewNotifyRecorder() *NotifyRecorder {
	return &NotifyRecorder{}
}

func (r *NotifyRecorder) Success(title, detail string) { r.record(notify.LevelSuccess, title, detail) }
func (r *NotifyRecorder) Error(title, detail string)   { r.record(notify.LevelError, title, detail) }
func (r *NotifyRecorder) Warning(title, detail string) { r.record(notify.LevelWarning, title, detail) }
func (r *NotifyRecorder) Info(title, detail string)    { r.record(notify.LevelInfo, title, detail) }

func (r *NotifyRecorder) record(level notify.Level, title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Recorded{Level: level, Title: title, Detail: detail})
}

// Calls returns a copy of everything recorded so far
func (r *NotifyRecorder) Calls() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.calls))
	copy(out, r.calls)
	return out
}

// ByLevel returns the recorded notifications with the given level
func (r *NotifyRecorder) ByLevel(level notify.Level) []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Recorded
	for _, c := range r.calls {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears all recorded calls
func (r *NotifyRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Ensure NotifyRecorder implements notify.Notifier
var _ notify.Notifier = (*NotifyRecorder)(nil)
