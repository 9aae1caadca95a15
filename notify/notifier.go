// Package notify announces completed publishes to external systems
// (cache purgers, search indexers, ops channels). Delivery is strictly
// best-effort: a sink failure is logged and never fails the publish
// that triggered it.
package notify

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/cfg"
)

// Event describes one completed publish.
type Event struct {
	PublishedAt string `json:"published_at"`
	Size        int    `json:"size"`
	Hash        string `json:"hash"`
	NodeID      uint64 `json:"node_id,omitempty"`
}

// Sink is a destination for publish events.
type Sink interface {
	// Publish sends an event payload to the sink.
	Publish(topic string, key string, value []byte) error
	// Close releases any resources held by the sink.
	Close() error
}

// SinkFactory creates a Sink from a configuration.
type SinkFactory func(cfg.NotifyConfiguration) (Sink, error)

var (
	sinkFactories = make(map[string]SinkFactory)
	factoryMu     sync.RWMutex
)

// RegisterSink registers a sink factory for a type.
func RegisterSink(sinkType string, factory SinkFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	sinkFactories[sinkType] = factory
}

func createSink(config cfg.NotifyConfiguration) (Sink, error) {
	factoryMu.RLock()
	factory, exists := sinkFactories[config.Type]
	factoryMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown notify sink type: %s", config.Type)
	}
	return factory(config)
}

type boundSink struct {
	name  string
	topic string
	sink  Sink
}

// Announcer fans publish events out to every configured sink.
type Announcer struct {
	sinks []boundSink
}

// NewAnnouncer builds an Announcer from sink configurations. A sink
// that fails to initialize aborts construction so misconfiguration is
// visible at startup rather than at first publish.
func NewAnnouncer(configs []cfg.NotifyConfiguration) (*Announcer, error) {
	a := &Announcer{}

	for _, c := range configs {
		snk, err := createSink(c)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create notify sink %q: %w", c.Name, err)
		}

		topic := c.Topic
		if topic == "" {
			topic = "vitrine.published"
		}

		a.sinks = append(a.sinks, boundSink{name: c.Name, topic: topic, sink: snk})
		log.Info().Str("sink", c.Name).Str("type", c.Type).Str("topic", topic).Msg("Added publish notify sink")
	}

	return a, nil
}

// NewAnnouncerForSink wraps an already-constructed sink. Useful for
// embedders and tests that manage the sink lifecycle themselves.
func NewAnnouncerForSink(name, topic string, snk Sink) *Announcer {
	if topic == "" {
		topic = "vitrine.published"
	}
	return &Announcer{sinks: []boundSink{{name: name, topic: topic, sink: snk}}}
}

// Announce sends the event to all sinks. Failures are logged per sink
// and never propagated.
func (a *Announcer) Announce(event Event) {
	if a == nil || len(a.sinks) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode publish event")
		return
	}

	for _, bound := range a.sinks {
		if err := bound.sink.Publish(bound.topic, event.Hash, payload); err != nil {
			log.Warn().
				Err(err).
				Str("sink", bound.name).
				Str("topic", bound.topic).
				Msg("Publish notification failed")
		}
	}
}

// Close closes all sinks.
func (a *Announcer) Close() {
	for _, bound := range a.sinks {
		if err := bound.sink.Close(); err != nil {
			log.Warn().Err(err).Str("sink", bound.name).Msg("Failed to close notify sink")
		}
	}
	a.sinks = nil
}
