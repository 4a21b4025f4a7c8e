// Package journal holds the diagnostic log: structured, append-only entries
// describing what the orchestrator did and what the remote processor answered.
// Rendering is left to Format so the entries stay free of presentation detail.
package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindSuccess Kind = "success"
)

type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Key       string    `json:"idempotency_key,omitempty"`
}

// Journal is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

func New() *Journal {
	return &Journal{now: time.Now}
}

// Append records one entry and returns it.
func (j *Journal) Append(kind Kind, key, message string) Entry {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: j.now(),
		Kind:      kind,
		Message:   message,
		Key:       key,
	}

	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
	return entry
}

// Entries returns a copy of the log, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	copied := make([]Entry, len(j.entries))
	copy(copied, j.entries)
	return copied
}

func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
