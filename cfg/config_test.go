package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfig() {
	Config.Gateway.Port = 8080
	Config.DocStore.Type = DocStorePebble
	Config.ObjectStore.Type = ObjectStoreFS
	Config.ObjectStore.NatsURL = ""
	Config.Publish.SnapshotKey = "store-data.json"
	Config.Publish.MonthlyLimit = 10
	Config.Publish.SectionTimeoutMS = 5000
	Config.Ledger.Backend = "pebble"
	Config.Ledger.Retention = 50
	Config.Notify = nil
}

func TestValidateDefaults(t *testing.T) {
	resetConfig()
	require.NoError(t, Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	resetConfig()
	Config.Gateway.Port = 0
	assert.Error(t, Validate())

	Config.Gateway.Port = 70000
	assert.Error(t, Validate())
}

func TestValidateRejectsUnknownStores(t *testing.T) {
	resetConfig()
	Config.DocStore.Type = "redis"
	assert.Error(t, Validate())

	resetConfig()
	Config.ObjectStore.Type = "s3"
	assert.Error(t, Validate())
}

func TestValidateNATSRequiresURL(t *testing.T) {
	resetConfig()
	Config.ObjectStore.Type = ObjectStoreNATS
	assert.Error(t, Validate())

	Config.ObjectStore.NatsURL = "nats://localhost:4222"
	assert.NoError(t, Validate())
}

func TestValidateRejectsBadLimits(t *testing.T) {
	resetConfig()
	Config.Publish.MonthlyLimit = 0
	assert.Error(t, Validate())

	resetConfig()
	Config.Ledger.Retention = 0
	assert.Error(t, Validate())

	resetConfig()
	Config.Publish.SnapshotKey = ""
	assert.Error(t, Validate())
}

func TestValidateNotifySinks(t *testing.T) {
	resetConfig()
	Config.Notify = []NotifyConfiguration{{Name: "events", Type: "nats"}}
	assert.Error(t, Validate())

	Config.Notify = []NotifyConfiguration{{Name: "events", Type: "kafka"}}
	assert.Error(t, Validate())

	Config.Notify = []NotifyConfiguration{
		{Name: "events", Type: "nats", NatsURL: "nats://localhost:4222"},
		{Name: "audit", Type: "kafka", Brokers: []string{"localhost:9092"}},
		{Name: "test", Type: "mock"},
	}
	assert.NoError(t, Validate())
}

func TestLoadFromFile(t *testing.T) {
	resetConfig()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
data_dir = "` + filepath.Join(dir, "data") + `"

[gateway]
port = 9999

[publish]
monthly_limit = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, Load(path))

	assert.Equal(t, 9999, Config.Gateway.Port)
	assert.Equal(t, 3, Config.Publish.MonthlyLimit)
	assert.DirExists(t, Config.DataDir)
	assert.NotZero(t, Config.NodeID)
}
