// Package ledger keeps the append-only record of publish attempts. The
// ledger is purely observational: nothing in the publish path consults
// it to make decisions. It exists so operators can audit outcomes and
// timings after the fact.
package ledger

import (
	"fmt"
	"path/filepath"

	"github.com/ornata/vitrine/cfg"
)

// Publish outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// DefaultRetention caps how many entries are kept; the oldest are
// trimmed first.
const DefaultRetention = 50

// Entry is one recorded publish attempt. Entries are immutable once
// recorded.
type Entry struct {
	Timestamp     string `json:"timestamp" msgpack:"ts"`
	Status        string `json:"status" msgpack:"status"`
	Message       string `json:"message,omitempty" msgpack:"msg,omitempty"`
	ProductCount  int    `json:"productCount" msgpack:"products"`
	CategoryCount int    `json:"categoryCount" msgpack:"categories"`
	TotalSize     int    `json:"totalSize" msgpack:"size"`
	UploadTimeMs  int64  `json:"uploadTimeMs,omitempty" msgpack:"upload_ms,omitempty"`
	VerifyTimeMs  int64  `json:"verifyTimeMs,omitempty" msgpack:"verify_ms,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty" msgpack:"err,omitempty"`
	NodeID        uint64 `json:"nodeId,omitempty" msgpack:"node,omitempty"`
}

// Ledger records publish attempts and lists them newest-first.
type Ledger interface {
	// Record appends an entry, trimming beyond the retention cap.
	Record(entry Entry) error
	// List returns up to limit entries, newest first. limit <= 0 means
	// all retained entries.
	List(limit int) ([]Entry, error)
	Close() error
}

// Open creates a Ledger for the configured backend.
func Open(config cfg.LedgerConfiguration, dataDir string) (Ledger, error) {
	retention := config.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	switch config.Backend {
	case "memory":
		return NewMemoryLedger(retention), nil
	case "pebble":
		return NewPebbleLedger(filepath.Join(dataDir, "publish_ledger"), retention)
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", config.Backend)
	}
}
