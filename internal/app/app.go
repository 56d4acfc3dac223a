// Package app wires settings, adapters and services together.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/ai"
	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/config/file"
	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/metrics/prometheus"
	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/storage/memory"
	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/storage/postgres"
	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/storage/sqlite"
	"github.com/Andres10976/huli-project-medical-RAG/internal/connectors/filesystem"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/services"
	"github.com/Andres10976/huli-project-medical-RAG/internal/extractor"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
	"github.com/Andres10976/huli-project-medical-RAG/internal/normalisers/patient"
)

// Options are the process-level overrides given on the command line.
type Options struct {
	// ConfigPath is the TOML file; empty uses ~/.huli/config.toml.
	ConfigPath string

	// EnvFile is loaded before the environment is read; empty tries ./.env.
	EnvFile string

	// DataDir overrides the record directory.
	DataDir string

	// Verbose enables debug logging.
	Verbose bool

	// MetricsPort overrides the metrics port when greater than zero.
	MetricsPort int

	// WithIndex builds the embedding gateway, vector store and the
	// services depending on them.
	WithIndex bool
}

// Container holds the wired services of one process.
type Container struct {
	Settings        *domain.AppSettings
	SettingsService *services.SettingsService
	Patient         *services.PatientService

	// Set only with Options.WithIndex.
	Ingest *services.IngestService
	Watch  *services.WatchService
	Search *services.SearchService

	// Metrics is nil unless a metrics port is configured.
	Metrics *prometheus.Recorder

	closers []func() error
}

// Close releases every resource opened by Bootstrap, last opened first.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// LoadSettings reads the env file, config file and environment and returns
// the effective settings with command line overrides applied.
func LoadSettings(opts Options) (*services.SettingsService, *domain.AppSettings, error) {
	if err := LoadEnvFile(opts.EnvFile); err != nil {
		return nil, nil, err
	}

	store, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := ApplyEnv(store, os.Getenv); err != nil {
		return nil, nil, err
	}

	svc := services.NewSettingsService(store, ai.NewConfigValidator())
	settings, err := svc.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving settings: %w", err)
	}

	if opts.DataDir != "" {
		settings.DataDir = opts.DataDir
	}
	if opts.Verbose {
		settings.Log.Verbose = true
	}
	if opts.MetricsPort > 0 {
		settings.MetricsPort = opts.MetricsPort
	}

	logger.SetFormat(settings.Log.Format)
	logger.SetVerbose(settings.Log.Verbose)

	return svc, settings, nil
}

// Bootstrap builds the services for one command.
func Bootstrap(ctx context.Context, opts Options) (*Container, error) {
	settingsSvc, settings, err := LoadSettings(opts)
	if err != nil {
		return nil, err
	}
	return Build(ctx, settingsSvc, settings, opts.WithIndex)
}

// Build wires adapters and services for already resolved settings.
func Build(
	ctx context.Context,
	settingsSvc *services.SettingsService,
	settings *domain.AppSettings,
	withIndex bool,
) (*Container, error) {
	source := filesystem.New(settings.DataDir, filesystem.WithExtensions(settings.Watch.Extensions...))
	parser := patient.New()

	c := &Container{
		Settings:        settings,
		SettingsService: settingsSvc,
		Patient:         services.NewPatientService(source, parser),
	}
	if !withIndex {
		return c, nil
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var metrics driven.MetricsRecorder = driven.NopMetrics{}
	if settings.MetricsPort > 0 {
		c.Metrics = prometheus.NewRecorder()
		metrics = c.Metrics
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	c.closers = append(c.closers, embedder.Close)

	store, fingerprints, err := openVectorStore(ctx, c, &settings.Vector)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	index := services.NewIndexService(store, embedder, metrics, services.IndexConfigFromSettings(settings))
	c.Ingest = services.NewIngestService(source, parser, index, fingerprints,
		services.WithPruneStale(settings.Watch.PruneStale),
		services.WithExtractor(extractor.New(extractor.WithFallbackPolicy(settings.Watch.FallbackIDs))),
		services.WithIngestMetrics(metrics),
	)
	c.Watch = services.NewWatchService(source, c.Ingest, settings.Watch.Workers)
	c.Search = services.NewSearchService(index)

	logger.Debug("app: %s embeddings (%s), %s vector store, collection %s",
		settings.Embedding.Provider, settings.Embedding.Model, settings.Vector.Backend, settings.Vector.Collection)
	return c, nil
}

// openVectorStore opens the configured backend and the fingerprint store
// that matches its lifetime.
func openVectorStore(
	ctx context.Context,
	c *Container,
	cfg *domain.VectorSettings,
) (driven.VectorStore, driven.FingerprintStore, error) {
	switch cfg.Backend {
	case domain.VectorBackendPostgres:
		if cfg.DSN == "" {
			return nil, nil, fmt.Errorf("%w: set %s or vector.dsn", domain.ErrVectorStoreUnavailable, EnvDatabaseURL)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = domain.DefaultAppSettings().Vector.Timeout
		}
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		store, err := postgres.New(connectCtx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, store.Close)
		return store, memory.NewFingerprintStore(), nil

	case domain.VectorBackendSQLite:
		db, err := sqlite.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
		}
		c.closers = append(c.closers, db.Close)
		return db.VectorStore(), db.FingerprintStore(), nil

	case domain.VectorBackendMemory:
		logger.Warn("app: memory vector store selected, the index is lost on exit")
		return memory.NewVectorStore(), memory.NewFingerprintStore(), nil

	default:
		return nil, nil, fmt.Errorf("%w: unsupported vector backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}
