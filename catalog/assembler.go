package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot field names stamped at assembly time.
const (
	FieldPublishedAt = "published_at"
	FieldVersion     = "version"
)

// Assemble merges the collected sections into a single snapshot
// document, stamps published_at and version, and serializes it as
// pretty-printed JSON. Nil sections serialize as JSON null so every
// known key is present in the output. Assembly never validates; use
// Validate separately for advisory warnings.
func Assemble(sections map[string]json.RawMessage, version string, publishedAt time.Time) ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(sections)+2)
	for name, val := range sections {
		doc[name] = val
	}

	stamp, err := json.Marshal(publishedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to stamp published_at: %w", err)
	}
	doc[FieldPublishedAt] = stamp

	ver, err := json.Marshal(version)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp version: %w", err)
	}
	doc[FieldVersion] = ver

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	return out, nil
}
