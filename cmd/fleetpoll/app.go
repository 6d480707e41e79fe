package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nmslite/fleetpoll/internal/auth"
	"github.com/nmslite/fleetpoll/internal/config"
	"github.com/nmslite/fleetpoll/internal/database"
	"github.com/nmslite/fleetpoll/internal/inventory"
	"github.com/nmslite/fleetpoll/internal/poller"
	"github.com/nmslite/fleetpoll/internal/sectors"
	"github.com/nmslite/fleetpoll/internal/snmp"
)

// app holds everything a poll needs, built from configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	sectors *sectors.Map
	pool    *pgxpool.Pool
	engine  *snmp.Engine
	prober  *inventory.Prober
	fleet   *poller.Fleet
}

// newApp loads the sector map first so a broken mapping aborts before any
// device is contacted.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.sectors, a.pool, err = loadSectors(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	community, err := resolveCommunity(cfg)
	if err != nil {
		return nil, err
	}

	a.engine, err = snmp.NewEngine(cfg.SNMP.EngineConfig(community), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SNMP engine: %w", err)
	}

	attrs, err := cfg.Inventory.AttributeSet()
	if err != nil {
		return nil, fmt.Errorf("invalid attributes: %w", err)
	}
	fallback, err := cfg.Inventory.FallbackSpec()
	if err != nil {
		return nil, fmt.Errorf("invalid fallback: %w", err)
	}

	a.prober, err = inventory.NewProber(a.engine, attrs, fallback, a.sectors, logger)
	if err != nil {
		return nil, err
	}

	a.fleet = poller.NewFleet(a.prober, logger,
		poller.WithConcurrency(cfg.Poller.Concurrency),
		poller.WithDeviceTimeout(cfg.Poller.DeviceTimeout()),
	)

	return a, nil
}

// Close releases the SNMP engine and the database pool.
func (a *app) Close() error {
	var err error
	if a.engine != nil {
		err = a.engine.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}

func loadSectors(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sectors.Map, *pgxpool.Pool, error) {
	switch cfg.Sectors.Source {
	case config.SectorSourcePostgres:
		pool, err := database.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load sector mapping: %w", err)
		}
		m, err := sectors.LoadPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to load sector mapping: %w", err)
		}
		logger.InfoContext(ctx, "Sector mapping loaded",
			slog.String("source", cfg.Sectors.Source),
			slog.Int("entries", m.Len()),
		)
		return m, pool, nil
	default:
		m, err := sectors.LoadCSV(cfg.Sectors.CSVPath, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.InfoContext(ctx, "Sector mapping loaded",
			slog.String("source", cfg.Sectors.Source),
			slog.String("path", cfg.Sectors.CSVPath),
			slog.Int("entries", m.Len()),
		)
		return m, nil, nil
	}
}

// resolveCommunity prefers the encrypted community when one is configured.
func resolveCommunity(cfg *config.Config) (string, error) {
	if cfg.SNMP.CommunityEncrypted == "" {
		return cfg.SNMP.Community, nil
	}
	c, err := auth.NewCipher(cfg.Auth.EncryptionKey)
	if err != nil {
		return "", err
	}
	community, err := c.Decrypt(cfg.SNMP.CommunityEncrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt snmp.community_encrypted: %w", err)
	}
	return community, nil
}

// loadConfig reads the config file named by the --config flag and sets up
// logging from it.
func loadConfig(path string) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, closer, err := config.InitLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}
