package ledger

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/encoding"
)

// Key prefix for ledger entries: /ledger/{16-digit-zero-padded-seq}
const prefixLedger = "/ledger/"

// PebbleLedger persists publish records in a local Pebble database so
// the history survives daemon restarts.
type PebbleLedger struct {
	db        *pebble.DB
	path      string
	retention int

	mu      sync.Mutex
	nextSeq uint64
}

var _ Ledger = (*PebbleLedger)(nil)

// NewPebbleLedger creates or opens a Pebble-backed ledger.
func NewPebbleLedger(path string, retention int) (*PebbleLedger, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}

	db, err := pebble.Open(path, &pebble.Options{DisableWAL: false})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger at %s: %w", path, err)
	}

	l := &PebbleLedger{db: db, path: path, retention: retention}
	if err := l.loadNextSeq(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load ledger sequence: %w", err)
	}

	return l, nil
}

func ledgerKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016d", prefixLedger, seq))
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// loadNextSeq recovers the next sequence number from the highest stored
// entry key.
func (l *PebbleLedger) loadNextSeq() error {
	prefix := []byte(prefixLedger)
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	if iter.Last() && iter.Valid() {
		var seq uint64
		if _, err := fmt.Sscanf(string(iter.Key()[len(prefix):]), "%d", &seq); err != nil {
			return fmt.Errorf("corrupted ledger key %q: %w", iter.Key(), err)
		}
		l.nextSeq = seq + 1
	}

	return iter.Error()
}

func (l *PebbleLedger) Record(entry Entry) error {
	data, err := encoding.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.nextSeq
	if err := l.db.Set(ledgerKey(seq), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	l.nextSeq = seq + 1

	if err := l.trimLocked(); err != nil {
		// Trim failure is not fatal; the entry itself is recorded.
		log.Warn().Err(err).Msg("Ledger trim failed")
	}

	return nil
}

// trimLocked deletes the oldest entries beyond the retention cap.
// Caller must hold l.mu.
func (l *PebbleLedger) trimLocked() error {
	prefix := []byte(prefixLedger)
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}
	if err := iter.Error(); err != nil {
		return err
	}

	excess := count - l.retention
	if excess <= 0 {
		return nil
	}

	for iter.First(); iter.Valid() && excess > 0; iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		if err := l.db.Delete(key, pebble.NoSync); err != nil {
			return err
		}
		excess--
	}

	return iter.Error()
}

func (l *PebbleLedger) List(limit int) ([]Entry, error) {
	prefix := []byte(prefixLedger)
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	for ok := iter.Last(); ok && iter.Valid(); ok = iter.Prev() {
		if limit > 0 && len(entries) >= limit {
			break
		}

		val, err := iter.ValueAndErr()
		if err != nil {
			return nil, err
		}

		var entry Entry
		if err := encoding.Unmarshal(val, &entry); err != nil {
			return nil, fmt.Errorf("corrupted ledger entry %q: %w", iter.Key(), err)
		}
		entries = append(entries, entry)
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *PebbleLedger) Close() error {
	return l.db.Close()
}
