package governance

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// changeLogRetention bounds the in-memory audit trail; older entries
// are expected to live in the archive store.
const changeLogRetention = 10000

// ChangeLog is the append-only audit trail of state-changing actions.
type ChangeLog struct {
	mu      sync.Mutex
	entries []domain.ChangeLogEntry
}

// NewChangeLog builds an empty log.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{}
}

// Record stamps the entry with an id and creation time and appends it.
func (l *ChangeLog) Record(entry domain.ChangeLogEntry) domain.ChangeLogEntry {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > changeLogRetention {
		l.entries = l.entries[len(l.entries)-changeLogRetention:]
	}
	return entry
}

// Entries returns up to limit of the newest entries in chronological
// order. limit <= 0 returns everything retained.
func (l *ChangeLog) Entries(limit int) []domain.ChangeLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if limit > 0 && len(l.entries) > limit {
		start = len(l.entries) - limit
	}
	out := make([]domain.ChangeLogEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Len reports how many entries are retained.
func (l *ChangeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
