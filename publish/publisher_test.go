package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ornata/vitrine/catalog"
	"github.com/ornata/vitrine/docstore"
	"github.com/ornata/vitrine/ledger"
	"github.com/ornata/vitrine/notify"
	"github.com/ornata/vitrine/objstore"
)

func newTestPublisher(t *testing.T, objects objstore.Store) (*Publisher, *ledger.MemoryLedger) {
	t.Helper()
	history := ledger.NewMemoryLedger(ledger.DefaultRetention)
	p, err := NewPublisher(Config{
		Objects:       objects,
		History:       history,
		SnapshotKey:   "store-data.json",
		SchemaVersion: "1.0",
		NodeID:        7,
	})
	require.NoError(t, err)
	return p, history
}

func sampleData() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"products":   json.RawMessage(`[{"name":"Shirt","price":10},{"name":"Hat","price":5}]`),
		"categories": json.RawMessage(`[{"name":"Apparel"}]`),
		"store_info": json.RawMessage(`{"name":"Demo Store"}`),
	}
}

func TestPublishWritesAndVerifies(t *testing.T) {
	objects := objstore.NewMemoryStore()
	p, history := newTestPublisher(t, objects)

	result, err := p.PublishData(context.Background(), sampleData())
	require.NoError(t, err)

	assert.Equal(t, "store-data.json", result.FileName)
	assert.Equal(t, 2, result.ProductCount)
	assert.Equal(t, 1, result.CategoryCount)
	assert.NotEmpty(t, result.PublishedAt)
	assert.NotEmpty(t, result.Hash)
	assert.Contains(t, result.DataKeys, "products")

	stored, err := objects.Get(context.Background(), "store-data.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", stored.ContentType)
	assert.Equal(t, "public, max-age=300", stored.CacheControl)
	assert.Equal(t, result.Size, len(stored.Data))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored.Data, &doc))
	assert.Contains(t, doc, catalog.FieldPublishedAt)
	assert.Contains(t, doc, catalog.FieldVersion)

	entries, err := history.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusSuccess, entries[0].Status)
	assert.Equal(t, 2, entries[0].ProductCount)
}

func TestPublishRejectsNilData(t *testing.T) {
	p, _ := newTestPublisher(t, objstore.NewMemoryStore())

	_, err := p.PublishData(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestPublishValidationWarnsWithoutBlocking(t *testing.T) {
	p, _ := newTestPublisher(t, objstore.NewMemoryStore())

	data := map[string]json.RawMessage{
		"products": json.RawMessage(`[{"price":10}]`),
	}
	result, err := p.PublishData(context.Background(), data)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
}

func TestPublishFailsWhenWriteNotVisible(t *testing.T) {
	objects := objstore.NewMemoryStore()
	objects.DropWrites = true
	p, history := newTestPublisher(t, objects)

	_, err := p.PublishData(context.Background(), sampleData())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnverified)

	entries, herr := history.List(10)
	require.NoError(t, herr)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusFailed, entries[0].Status)
	assert.NotEmpty(t, entries[0].ErrorMessage)
}

func TestPublishFailsOnWriteError(t *testing.T) {
	objects := objstore.NewMemoryStore()
	objects.PutErr = assert.AnError
	p, history := newTestPublisher(t, objects)

	_, err := p.PublishData(context.Background(), sampleData())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnverified)

	entries, herr := history.List(10)
	require.NoError(t, herr)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusFailed, entries[0].Status)
}

func TestPublishAnnouncesOnSuccess(t *testing.T) {
	sink := &notify.MockSink{}
	announcer := notify.NewAnnouncerForSink("test", "vitrine.published", sink)

	objects := objstore.NewMemoryStore()
	history := ledger.NewMemoryLedger(ledger.DefaultRetention)
	p, err := NewPublisher(Config{
		Objects:     objects,
		History:     history,
		Announcer:   announcer,
		SnapshotKey: "store-data.json",
	})
	require.NoError(t, err)

	_, err = p.PublishData(context.Background(), sampleData())
	require.NoError(t, err)
	require.Len(t, sink.Messages, 1)
	assert.Equal(t, "vitrine.published", sink.Messages[0].Topic)
}

func TestRepublishReplacesSnapshotWholesale(t *testing.T) {
	objects := objstore.NewMemoryStore()
	p, _ := newTestPublisher(t, objects)

	first := map[string]json.RawMessage{
		"products": json.RawMessage(`[{"name":"Old","price":1}]`),
		"pages":    json.RawMessage(`[{"slug":"about"}]`),
	}
	_, err := p.PublishData(context.Background(), first)
	require.NoError(t, err)

	second := map[string]json.RawMessage{
		"products": json.RawMessage(`[{"name":"New","price":2}]`),
	}
	_, err = p.PublishData(context.Background(), second)
	require.NoError(t, err)

	stored, err := objects.Get(context.Background(), "store-data.json")
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored.Data, &doc))
	assert.NotContains(t, doc, "pages")
	assert.Contains(t, string(doc["products"]), "New")
}

func TestPublishLiveCollectsFromStore(t *testing.T) {
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "products", json.RawMessage(`[{"name":"Live","price":3}]`)))

	collector, err := catalog.NewCollector(store, nil)
	require.NoError(t, err)

	objects := objstore.NewMemoryStore()
	history := ledger.NewMemoryLedger(ledger.DefaultRetention)
	p, err := NewPublisher(Config{
		Objects:     objects,
		History:     history,
		Collector:   collector,
		SnapshotKey: "store-data.json",
	})
	require.NoError(t, err)

	result, err := p.PublishLive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProductCount)
	assert.Equal(t, len(catalog.SectionNames), len(result.DataKeys))

	_, err = p.PublishLive(context.Background())
	require.NoError(t, err)
	entries, herr := history.List(10)
	require.NoError(t, herr)
	assert.Len(t, entries, 2)
}

func TestResultTimingsPopulated(t *testing.T) {
	p, _ := newTestPublisher(t, objstore.NewMemoryStore())
	p.now = time.Now

	result, err := p.PublishData(context.Background(), sampleData())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.UploadTimeMs, int64(0))
	assert.GreaterOrEqual(t, result.VerifyTimeMs, int64(0))
}
