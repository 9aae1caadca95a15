package notify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ornata/vitrine/cfg"
)

func TestAnnouncerDeliversToAllSinks(t *testing.T) {
	a, err := NewAnnouncer([]cfg.NotifyConfiguration{
		{Name: "one", Type: "mock"},
		{Name: "two", Type: "mock", Topic: "custom.topic"},
	})
	require.NoError(t, err)
	defer a.Close()

	a.Announce(Event{PublishedAt: "2026-08-30T12:00:00Z", Size: 1024, Hash: "abcd"})

	first := a.sinks[0].sink.(*MockSink)
	second := a.sinks[1].sink.(*MockSink)

	require.Len(t, first.Messages, 1)
	require.Len(t, second.Messages, 1)
	assert.Equal(t, "vitrine.published", first.Messages[0].Topic)
	assert.Equal(t, "custom.topic", second.Messages[0].Topic)
	assert.Equal(t, "abcd", first.Messages[0].Key)

	var event Event
	require.NoError(t, json.Unmarshal(first.Messages[0].Value, &event))
	assert.Equal(t, 1024, event.Size)
}

func TestAnnounceSinkFailureIsSwallowed(t *testing.T) {
	a, err := NewAnnouncer([]cfg.NotifyConfiguration{
		{Name: "broken", Type: "mock"},
		{Name: "healthy", Type: "mock"},
	})
	require.NoError(t, err)
	defer a.Close()

	a.sinks[0].sink.(*MockSink).PublishErr = errors.New("sink down")

	// Must not panic; healthy sink still receives the event
	a.Announce(Event{Hash: "x"})
	assert.Len(t, a.sinks[1].sink.(*MockSink).Messages, 1)
}

func TestNewAnnouncerUnknownType(t *testing.T) {
	_, err := NewAnnouncer([]cfg.NotifyConfiguration{{Name: "bad", Type: "carrier-pigeon"}})
	assert.Error(t, err)
}

func TestNilAnnouncerIsSafe(t *testing.T) {
	var a *Announcer
	a.Announce(Event{Hash: "x"})
}
