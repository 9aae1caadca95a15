package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// DocStoreType selects the backend for the mutable document store
type DocStoreType string

const (
	DocStoreMemory DocStoreType = "memory"
	DocStorePebble DocStoreType = "pebble"
	DocStoreSQLite DocStoreType = "sqlite"
)

// ObjectStoreType selects the backend holding the published snapshot
type ObjectStoreType string

const (
	ObjectStoreMemory ObjectStoreType = "memory"
	ObjectStoreFS     ObjectStoreType = "fs"
	ObjectStoreNATS   ObjectStoreType = "nats"
)

// DocStoreConfiguration for the mutable document store
type DocStoreConfiguration struct {
	Type       DocStoreType `toml:"type"`
	SQLitePath string       `toml:"sqlite_path"` // defaults to {data_dir}/docstore.db
	PebblePath string       `toml:"pebble_path"` // defaults to {data_dir}/docstore
}

// ObjectStoreConfiguration for the published snapshot object store
type ObjectStoreConfiguration struct {
	Type    ObjectStoreType `toml:"type"`
	Dir     string          `toml:"dir"`      // fs backend directory
	NatsURL string          `toml:"nats_url"` // nats backend URL
	Bucket  string          `toml:"bucket"`   // nats object store bucket
}

// PublishConfiguration controls the snapshot publish pipeline
type PublishConfiguration struct {
	SnapshotKey       string   `toml:"snapshot_key"`        // object store key (one file, last write wins)
	SchemaVersion     string   `toml:"schema_version"`      // stamped into every snapshot
	MonthlyLimit      int      `toml:"monthly_limit"`       // publishes per admin per calendar month
	SectionTimeoutMS  int      `toml:"section_timeout_ms"`  // per-section collection read timeout
	SectionPatterns   []string `toml:"section_patterns"`    // glob include patterns, empty = all sections
	StoreCacheSeconds int      `toml:"store_cache_seconds"` // cache hint attached to the stored object
	ReadCacheSeconds  int      `toml:"read_cache_seconds"`  // Cache-Control max-age on anonymous reads
}

// LedgerConfiguration controls the publish history ledger
type LedgerConfiguration struct {
	Backend   string `toml:"backend"`   // "pebble" or "memory"
	Retention int    `toml:"retention"` // max entries kept, oldest trimmed first
}

// GatewayConfiguration for the HTTP publish gateway
type GatewayConfiguration struct {
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	AdminToken  string `toml:"admin_token"` // optional PSK for write endpoints, empty disables auth
}

// NotifyConfiguration describes one publish notification sink
type NotifyConfiguration struct {
	Name    string   `toml:"name"`
	Type    string   `toml:"type"` // "nats", "kafka", "mock"
	Topic   string   `toml:"topic"`
	NatsURL string   `toml:"nats_url"`
	Brokers []string `toml:"brokers"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// Configuration is the main configuration structure
type Configuration struct {
	NodeID  uint64 `toml:"node_id"`
	DataDir string `toml:"data_dir"`

	DocStore    DocStoreConfiguration    `toml:"docstore"`
	ObjectStore ObjectStoreConfiguration `toml:"objectstore"`
	Publish     PublishConfiguration     `toml:"publish"`
	Ledger      LedgerConfiguration      `toml:"ledger"`
	Gateway     GatewayConfiguration     `toml:"gateway"`
	Notify      []NotifyConfiguration    `toml:"notify"`
	Logging     LoggingConfiguration     `toml:"logging"`
	Prometheus  PrometheusConfiguration  `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file")
	DataDirFlag    = flag.String("data-dir", "", "Data directory (overrides config)")
	PortFlag       = flag.Int("port", 0, "Gateway HTTP port (overrides config)")
)

// Default configuration
var Config = &Configuration{
	NodeID:  0, // Auto-generate
	DataDir: "./vitrine-data",

	DocStore: DocStoreConfiguration{
		Type: DocStorePebble,
	},

	ObjectStore: ObjectStoreConfiguration{
		Type:   ObjectStoreFS,
		Bucket: "vitrine-snapshots",
	},

	Publish: PublishConfiguration{
		SnapshotKey:       "store-data.json",
		SchemaVersion:     "1.0",
		MonthlyLimit:      10,
		SectionTimeoutMS:  5000,
		StoreCacheSeconds: 300,
		ReadCacheSeconds:  60,
	},

	Ledger: LedgerConfiguration{
		Backend:   "pebble",
		Retention: 50,
	},

	Gateway: GatewayConfiguration{
		BindAddress: "0.0.0.0",
		Port:        8080,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: true,
		Address: "0.0.0.0",
		Port:    9090,
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	// Apply CLI overrides
	if *DataDirFlag != "" {
		Config.DataDir = *DataDirFlag
	}
	if *PortFlag != 0 {
		Config.Gateway.Port = *PortFlag
	}

	// Auto-generate node ID if not set
	if Config.NodeID == 0 {
		var err error
		Config.NodeID, err = generateNodeID()
		if err != nil {
			return fmt.Errorf("failed to generate node ID: %w", err)
		}
		log.Info().Uint64("node_id", Config.NodeID).Msg("Auto-generated node ID")
	}

	// Ensure data directory exists
	if err := os.MkdirAll(Config.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return nil
}

// generateNodeID creates a unique node ID based on machine ID
func generateNodeID() (uint64, error) {
	id, err := machineid.ProtectedID("vitrine")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	if Config.Gateway.Port < 1 || Config.Gateway.Port > 65535 {
		return fmt.Errorf("invalid gateway port: %d", Config.Gateway.Port)
	}

	switch Config.DocStore.Type {
	case DocStoreMemory, DocStorePebble, DocStoreSQLite:
	default:
		return fmt.Errorf("invalid docstore type: %s", Config.DocStore.Type)
	}

	switch Config.ObjectStore.Type {
	case ObjectStoreMemory, ObjectStoreFS:
	case ObjectStoreNATS:
		if Config.ObjectStore.NatsURL == "" {
			return fmt.Errorf("nats object store requires nats_url")
		}
	default:
		return fmt.Errorf("invalid object store type: %s", Config.ObjectStore.Type)
	}

	if Config.Publish.SnapshotKey == "" {
		return fmt.Errorf("snapshot key must not be empty")
	}

	if Config.Publish.MonthlyLimit < 1 {
		return fmt.Errorf("monthly publish limit must be >= 1")
	}

	if Config.Publish.SectionTimeoutMS < 1 {
		return fmt.Errorf("section timeout must be >= 1ms")
	}

	if Config.Publish.StoreCacheSeconds < 0 || Config.Publish.ReadCacheSeconds < 0 {
		return fmt.Errorf("cache lifetimes must be >= 0")
	}

	if Config.Ledger.Retention < 1 {
		return fmt.Errorf("ledger retention must be >= 1")
	}

	switch Config.Ledger.Backend {
	case "pebble", "memory":
	default:
		return fmt.Errorf("invalid ledger backend: %s", Config.Ledger.Backend)
	}

	for _, n := range Config.Notify {
		switch n.Type {
		case "nats":
			if n.NatsURL == "" {
				return fmt.Errorf("notify sink %q: nats requires nats_url", n.Name)
			}
		case "kafka":
			if len(n.Brokers) == 0 {
				return fmt.Errorf("notify sink %q: kafka requires brokers", n.Name)
			}
		case "mock":
		default:
			return fmt.Errorf("notify sink %q: unknown type %s", n.Name, n.Type)
		}
	}

	return nil
}
