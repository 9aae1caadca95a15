package ledger

import "sync"

// MemoryLedger keeps entries in memory, for tests and ephemeral runs.
type MemoryLedger struct {
	mu        sync.Mutex
	entries   []Entry // oldest first
	retention int
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an in-memory ledger with the given retention.
func NewMemoryLedger(retention int) *MemoryLedger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryLedger{retention: retention}
}

func (l *MemoryLedger) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.retention {
		l.entries = l.entries[len(l.entries)-l.retention:]
	}
	return nil
}

func (l *MemoryLedger) List(limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

func (l *MemoryLedger) Close() error {
	return nil
}
