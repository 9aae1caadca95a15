package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gobwas/glob"
	"github.com/jizhuozhi/go-future"
	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/docstore"
	"github.com/ornata/vitrine/telemetry"
)

// DefaultSectionTimeout bounds a single section read so one hung store
// call cannot stall the whole snapshot.
const DefaultSectionTimeout = 5 * time.Second

// Collector reads every known section from the document store
// concurrently. Individual failures degrade that section to null; the
// result always contains the full section name set.
type Collector struct {
	store          docstore.Store
	sectionTimeout time.Duration
	includeGlobs   []glob.Glob
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithSectionTimeout overrides the per-section read timeout.
func WithSectionTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.sectionTimeout = d
		}
	}
}

// NewCollector creates a Collector over the given store. Include
// patterns restrict which sections are fetched; sections not matching
// any pattern are carried as null. Empty patterns fetch everything.
func NewCollector(store docstore.Store, includePatterns []string, opts ...CollectorOption) (*Collector, error) {
	c := &Collector{
		store:          store,
		sectionTimeout: DefaultSectionTimeout,
	}

	for _, pattern := range includePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid section pattern %q: %w", pattern, err)
		}
		c.includeGlobs = append(c.includeGlobs, g)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// included reports whether a section should be fetched.
// No patterns configured means every section is fetched.
func (c *Collector) included(name string) bool {
	if len(c.includeGlobs) == 0 {
		return true
	}
	for _, g := range c.includeGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Collect fans out one read per section and joins all of them. The
// returned map contains every name in SectionNames; sections that were
// skipped, missing, or failed to read carry a nil value.
func (c *Collector) Collect(ctx context.Context) map[string]json.RawMessage {
	futures := make(map[string]*future.Future[json.RawMessage], len(SectionNames))

	for _, name := range SectionNames {
		if !c.included(name) {
			continue
		}

		p := future.NewPromise[json.RawMessage]()
		futures[name] = p.Future()

		go func(name string, p *future.Promise[json.RawMessage]) {
			// Failures resolve to nil instead of erroring so a single
			// bad section never cancels its siblings.
			p.Set(c.readSection(ctx, name), nil)
		}(name, p)
	}

	result := make(map[string]json.RawMessage, len(SectionNames))
	for _, name := range SectionNames {
		f, ok := futures[name]
		if !ok {
			result[name] = nil
			continue
		}
		val, _ := f.Get()
		result[name] = val
	}

	return result
}

type sectionRead struct {
	val json.RawMessage
	err error
}

// readSection reads one section with its own timeout, degrading any
// failure to nil. The read races its deadline rather than relying on
// the backend honoring context cancellation.
func (c *Collector) readSection(ctx context.Context, name string) json.RawMessage {
	sectionCtx, cancel := context.WithTimeout(ctx, c.sectionTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan sectionRead, 1)
	go func() {
		val, err := c.store.Get(sectionCtx, name)
		done <- sectionRead{val: val, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, docstore.ErrNotFound) {
				return nil
			}
			telemetry.SectionReadFailures.Inc()
			log.Warn().
				Err(r.err).
				Str("section", name).
				Dur("elapsed", time.Since(start)).
				Msg("Section read failed, publishing as null")
			return nil
		}
		return r.val
	case <-sectionCtx.Done():
		telemetry.SectionReadFailures.Inc()
		log.Warn().
			Str("section", name).
			Dur("elapsed", time.Since(start)).
			Msg("Section read timed out, publishing as null")
		return nil
	}
}
