package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/archive"
	"github.com/ThiagoRGoveia/apt-trades/internal/config"
	"github.com/ThiagoRGoveia/apt-trades/internal/database"
	"github.com/ThiagoRGoveia/apt-trades/internal/fetcher"
	"github.com/ThiagoRGoveia/apt-trades/internal/ingestion"
	"github.com/ThiagoRGoveia/apt-trades/internal/metrics"
	"github.com/ThiagoRGoveia/apt-trades/internal/parser"
	"github.com/lmittmann/tint"
)

// app holds what one command invocation needs.
type app struct {
	cfg   *config.Config
	store database.Store
}

func initLogger(level slog.Level) {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(logger)
}

// setup loads the config and opens the store. The store must answer before
// any unit is processed.
func setup(ctx context.Context) (*app, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(cfg.LogLevel)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("store unreachable: %w", err)
	}

	cleanup := func() {
		slog.Debug("closing store")
		store.Close()
	}
	return &app{cfg: cfg, store: store}, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		store, err := database.OpenSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("unable to open sqlite store: %w", err)
		}
		return store, nil
	default:
		dbpool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		return database.NewPostgresStore(dbpool), nil
	}
}

// ingestionService wires the fetcher, archive and metrics around the store.
func (a *app) ingestionService(ctx context.Context, m metrics.Recorder) (*ingestion.IngestionService, error) {
	if err := a.cfg.RequireServiceKey(); err != nil {
		return nil, err
	}

	client, err := fetcher.NewAPIClient(fetcher.Config{
		Endpoint:          a.cfg.Endpoint,
		ServiceKey:        a.cfg.ServiceKey,
		RequestsPerSecond: a.cfg.RequestsPerSecond,
		Timeout:           a.cfg.HTTPTimeout,
		RequestBudget:     a.cfg.RequestBudget,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build api client: %w", err)
	}

	archiver, err := archive.New(ctx, archive.Config{
		Driver: a.cfg.ArchiveDriver,
		FSRoot: a.cfg.ArchiveFSRoot,
		S3: archive.S3Config{
			Bucket:    a.cfg.ArchiveS3Bucket,
			Region:    a.cfg.ArchiveS3Region,
			Endpoint:  a.cfg.ArchiveS3Endpoint,
			PathStyle: a.cfg.ArchiveS3PathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up archive: %w", err)
	}

	svc := ingestion.NewIngestionService(a.store, client, parser.NewNormalizer(), a.ingestionConfig()).
		WithMetrics(m)
	if archiver != nil {
		svc = svc.WithArchiver(archiver)
	}
	return svc, nil
}

func (a *app) ingestionConfig() ingestion.Config {
	return ingestion.Config{
		BackfillPageCap: a.cfg.BackfillPageCap,
		MonthlyPageCap:  a.cfg.MonthlyPageCap,
		RepairPageCap:   a.cfg.RepairPageCap,
		SuspectPageCaps: a.cfg.SuspectPageCaps,
	}
}

// pushMetrics ships the run's registry when a Pushgateway is configured. The
// run context may already be cancelled, so the push gets its own deadline.
func (a *app) pushMetrics(m *metrics.RunMetrics, mode ingestion.Mode) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Push(ctx, a.cfg.PushgatewayURL, string(mode)); err != nil {
		slog.Warn("failed to push metrics", "gateway", a.cfg.PushgatewayURL, "err", err)
	}
}
