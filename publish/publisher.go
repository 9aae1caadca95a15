// Package publish implements the snapshot publish pipeline: validate
// (advisory), stamp, write to the object store, verify with a
// read-after-write, then record the attempt in the ledger and announce
// it to notify sinks.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/catalog"
	"github.com/ornata/vitrine/ledger"
	"github.com/ornata/vitrine/notify"
	"github.com/ornata/vitrine/objstore"
	"github.com/ornata/vitrine/telemetry"
)

var (
	// ErrNoData rejects a publish request carrying no data payload.
	ErrNoData = errors.New("no data provided")

	// ErrUnverified marks a publish whose write landed (or may have)
	// but whose visibility could not be confirmed by the verify read.
	// The caller should retry the whole publish.
	ErrUnverified = errors.New("publish unconfirmed, retry")
)

// Result describes a verified publish.
type Result struct {
	PublishedAt   string   `json:"published_at"`
	FileName      string   `json:"fileName"`
	Size          int      `json:"size"`
	UploadTimeMs  int64    `json:"uploadTime"`
	VerifyTimeMs  int64    `json:"verifyTime"`
	DataKeys      []string `json:"dataKeys"`
	ProductCount  int      `json:"productCount"`
	CategoryCount int      `json:"categoryCount"`
	Warnings      []string `json:"warnings"`
	Hash          string   `json:"hash"`
}

// Publisher runs the publish pipeline against one object store key.
type Publisher struct {
	objects   objstore.Store
	history   ledger.Ledger
	collector *catalog.Collector
	announcer *notify.Announcer

	key          string
	version      string
	cacheControl string
	nodeID       uint64
	now          func() time.Time
}

// Config wires a Publisher's collaborators.
type Config struct {
	Objects   objstore.Store
	History   ledger.Ledger
	Collector *catalog.Collector
	Announcer *notify.Announcer

	SnapshotKey       string
	SchemaVersion     string
	StoreCacheSeconds int
	NodeID            uint64
}

// NewPublisher creates a Publisher.
func NewPublisher(config Config) (*Publisher, error) {
	if config.Objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if config.History == nil {
		return nil, fmt.Errorf("publish ledger is required")
	}
	if config.SnapshotKey == "" {
		return nil, fmt.Errorf("snapshot key is required")
	}
	if config.SchemaVersion == "" {
		config.SchemaVersion = "1.0"
	}
	if config.StoreCacheSeconds <= 0 {
		config.StoreCacheSeconds = 300
	}

	return &Publisher{
		objects:      config.Objects,
		history:      config.History,
		collector:    config.Collector,
		announcer:    config.Announcer,
		key:          config.SnapshotKey,
		version:      config.SchemaVersion,
		cacheControl: fmt.Sprintf("public, max-age=%d", config.StoreCacheSeconds),
		nodeID:       config.NodeID,
		now:          time.Now,
	}, nil
}

// PublishData assembles and publishes the given section map. On any
// failure the attempt is still recorded in the ledger before the error
// is returned. Validation warnings never block.
func (p *Publisher) PublishData(ctx context.Context, data map[string]json.RawMessage) (*Result, error) {
	start := p.now()

	if data == nil {
		return nil, ErrNoData
	}

	warnings := catalog.Validate(data)
	if len(warnings) > 0 {
		log.Info().Strs("warnings", warnings).Msg("Snapshot validation warnings (advisory)")
	}

	publishedAt := start.UTC()
	doc, err := catalog.Assemble(data, p.version, publishedAt)
	if err != nil {
		p.recordFailure(err, "snapshot assembly failed")
		return nil, fmt.Errorf("snapshot assembly failed: %w", err)
	}

	result := &Result{
		PublishedAt:   publishedAt.Format(time.RFC3339),
		FileName:      p.key,
		Size:          len(doc),
		DataKeys:      sortedKeys(data),
		ProductCount:  catalog.SectionCount(data["products"]),
		CategoryCount: catalog.SectionCount(data["categories"]),
		Warnings:      warnings,
		Hash:          fmt.Sprintf("%016x", xxhash.Sum64(doc)),
	}

	// Durable write
	uploadStart := p.now()
	err = p.objects.Put(ctx, p.key, objstore.Object{
		Data:         doc,
		ContentType:  "application/json",
		CacheControl: p.cacheControl,
	})
	result.UploadTimeMs = p.now().Sub(uploadStart).Milliseconds()
	telemetry.UploadDurationSeconds.Observe(p.now().Sub(uploadStart).Seconds())
	if err != nil {
		p.recordFailure(err, "object store write failed")
		telemetry.PublishTotal.With("failed").Inc()
		return nil, fmt.Errorf("object store write failed: %w", err)
	}

	// Read-after-write verification. The store's write acknowledgment
	// alone is not trusted as proof of visibility.
	verifyStart := p.now()
	stored, err := p.objects.Get(ctx, p.key)
	result.VerifyTimeMs = p.now().Sub(verifyStart).Milliseconds()
	telemetry.VerifyDurationSeconds.Observe(p.now().Sub(verifyStart).Seconds())
	if err != nil {
		p.recordVerifyFailure(result, err)
		telemetry.PublishTotal.With("failed").Inc()
		return nil, fmt.Errorf("%w: verify read failed: %v", ErrUnverified, err)
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(stored.Data, &parsed); err != nil {
		p.recordVerifyFailure(result, err)
		telemetry.PublishTotal.With("failed").Inc()
		return nil, fmt.Errorf("%w: verify read returned unparsable content: %v", ErrUnverified, err)
	}

	p.recordSuccess(result, p.now().Sub(start))
	telemetry.PublishTotal.With("success").Inc()
	telemetry.PublishDurationSeconds.Observe(p.now().Sub(start).Seconds())
	telemetry.SnapshotBytes.Set(float64(result.Size))

	p.announcer.Announce(notify.Event{
		PublishedAt: result.PublishedAt,
		Size:        result.Size,
		Hash:        result.Hash,
		NodeID:      p.nodeID,
	})

	log.Info().
		Str("key", p.key).
		Int("size", result.Size).
		Int("products", result.ProductCount).
		Int("categories", result.CategoryCount).
		Int64("upload_ms", result.UploadTimeMs).
		Int64("verify_ms", result.VerifyTimeMs).
		Msg("Snapshot published and verified")

	return result, nil
}

// PublishLive collects every section from the document store and
// publishes the result. Requires a configured Collector.
func (p *Publisher) PublishLive(ctx context.Context) (*Result, error) {
	if p.collector == nil {
		return nil, fmt.Errorf("no collector configured for live publish")
	}

	sections := p.collector.Collect(ctx)
	return p.PublishData(ctx, sections)
}

func (p *Publisher) recordSuccess(result *Result, elapsed time.Duration) {
	entry := ledger.Entry{
		Timestamp:     result.PublishedAt,
		Status:        ledger.StatusSuccess,
		Message:       fmt.Sprintf("published %s in %dms", p.key, elapsed.Milliseconds()),
		ProductCount:  result.ProductCount,
		CategoryCount: result.CategoryCount,
		TotalSize:     result.Size,
		UploadTimeMs:  result.UploadTimeMs,
		VerifyTimeMs:  result.VerifyTimeMs,
		NodeID:        p.nodeID,
	}
	if err := p.history.Record(entry); err != nil {
		log.Warn().Err(err).Msg("Failed to record publish in ledger")
	}
}

func (p *Publisher) recordFailure(cause error, message string) {
	entry := ledger.Entry{
		Timestamp:    p.now().UTC().Format(time.RFC3339),
		Status:       ledger.StatusFailed,
		Message:      message,
		ErrorMessage: cause.Error(),
		NodeID:       p.nodeID,
	}
	if err := p.history.Record(entry); err != nil {
		log.Warn().Err(err).Msg("Failed to record publish in ledger")
	}
}

func (p *Publisher) recordVerifyFailure(result *Result, cause error) {
	entry := ledger.Entry{
		Timestamp:     p.now().UTC().Format(time.RFC3339),
		Status:        ledger.StatusFailed,
		Message:       "verification failed, publish unconfirmed",
		ProductCount:  result.ProductCount,
		CategoryCount: result.CategoryCount,
		TotalSize:     result.Size,
		UploadTimeMs:  result.UploadTimeMs,
		VerifyTimeMs:  result.VerifyTimeMs,
		ErrorMessage:  cause.Error(),
		NodeID:        p.nodeID,
	}
	if err := p.history.Record(entry); err != nil {
		log.Warn().Err(err).Msg("Failed to record publish in ledger")
	}
}

func sortedKeys(data map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
