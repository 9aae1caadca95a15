package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/catalog"
	"github.com/ornata/vitrine/cfg"
	"github.com/ornata/vitrine/docstore"
	"github.com/ornata/vitrine/gateway"
	"github.com/ornata/vitrine/ledger"
	"github.com/ornata/vitrine/notify"
	"github.com/ornata/vitrine/objstore"
	"github.com/ornata/vitrine/publish"
	"github.com/ornata/vitrine/quota"
	"github.com/ornata/vitrine/telemetry"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("node_id", cfg.Config.NodeID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("Vitrine - Storefront Snapshot Publisher")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()

	// Mutable document store: sections and publish quotas
	documents, err := docstore.Open(cfg.Config.DocStore, cfg.Config.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open document store")
		return
	}
	defer documents.Close()

	// Object store: holds the single current snapshot
	objects, err := objstore.Open(cfg.Config.ObjectStore, cfg.Config.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open object store")
		return
	}
	defer objects.Close()

	// Publish history ledger
	history, err := ledger.Open(cfg.Config.Ledger, cfg.Config.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open publish ledger")
		return
	}
	defer history.Close()

	// Publish notification sinks
	announcer, err := notify.NewAnnouncer(cfg.Config.Notify)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize notify sinks")
		return
	}
	defer announcer.Close()

	collector, err := catalog.NewCollector(
		documents,
		cfg.Config.Publish.SectionPatterns,
		catalog.WithSectionTimeout(time.Duration(cfg.Config.Publish.SectionTimeoutMS)*time.Millisecond),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize section collector")
		return
	}

	publisher, err := publish.NewPublisher(publish.Config{
		Objects:           objects,
		History:           history,
		Collector:         collector,
		Announcer:         announcer,
		SnapshotKey:       cfg.Config.Publish.SnapshotKey,
		SchemaVersion:     cfg.Config.Publish.SchemaVersion,
		StoreCacheSeconds: cfg.Config.Publish.StoreCacheSeconds,
		NodeID:            cfg.Config.NodeID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize publisher")
		return
	}

	handlers, err := gateway.NewHandlers(gateway.HandlerConfig{
		Publisher:        publisher,
		Limiter:          quota.NewLimiter(documents, cfg.Config.Publish.MonthlyLimit),
		History:          history,
		Objects:          objects,
		Documents:        documents,
		SnapshotKey:      cfg.Config.Publish.SnapshotKey,
		ReadCacheSeconds: cfg.Config.Publish.ReadCacheSeconds,
		AdminToken:       cfg.Config.Gateway.AdminToken,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize gateway handlers")
		return
	}

	// Metrics endpoint
	if cfg.Config.Prometheus.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", telemetry.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Config.Prometheus.Address, cfg.Config.Prometheus.Port)
		go func() {
			log.Info().Str("address", metricsAddr).Msg("Metrics endpoint enabled")
			if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil && err != http.ErrServerClosed {
				log.Warn().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	server := gateway.NewServer(cfg.Config.Gateway.BindAddress, cfg.Config.Gateway.Port, gateway.NewRouter(handlers))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info().
		Uint64("node_id", cfg.Config.NodeID).
		Int("gateway_port", cfg.Config.Gateway.Port).
		Str("data_dir", cfg.Config.DataDir).
		Msg("Vitrine is operational")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Gateway server failed")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Gateway shutdown failed")
		}
	}
}
