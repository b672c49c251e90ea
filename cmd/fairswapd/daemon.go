package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"fairswap/config"
	"fairswap/core"
	"fairswap/core/genesis"
	"fairswap/core/state"
	"fairswap/native/common"
	"fairswap/observability/logging"
	"fairswap/rpc"
	"fairswap/services/indexer"
	"fairswap/storage"
)

const genesisPathEnv = "FAIRSWAP_GENESIS"

type envLookupFunc func(string) (string, bool)

// daemon holds the assembled services of one node process.
type daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *state.Store
	node    *core.Node
	rpc     *rpc.Server
	indexer *indexer.Indexer
	indexDB *gorm.DB
}

func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	admin, err := cfg.AdminAddress()
	if err != nil {
		return nil, fmt.Errorf("admin address: %w", err)
	}
	db, err := storage.Open(cfg.StorageEngine, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open ledger storage: %w", err)
	}
	store := state.NewStore(db)

	node := core.NewNode(store, core.Options{
		ChainID:  cfg.ChainID,
		Admin:    admin,
		Schedule: cfg.Schedule(),
		Pauses:   common.NewPauses(cfg.PausedModules()...),
		Logger:   logger,
	})

	secret := cfg.JWTSecret()
	if secret == "" {
		logger.Warn("admin RPC disabled; JWT secret not set",
			slog.String("env", cfg.RPC.JWTSecretEnv))
	}
	d := &daemon{
		cfg:    cfg,
		logger: logger,
		store:  store,
		node:   node,
		rpc: rpc.NewServer(node, rpc.Config{
			JWTSecret:         secret,
			JWTIssuer:         cfg.RPC.JWTIssuer,
			RequestsPerMinute: cfg.RPC.RequestsPerMinute,
			Burst:             cfg.RPC.Burst,
			Quota:             cfg.Quota(),
			Logger:            logger,
		}),
	}

	if cfg.Indexer.Enabled {
		gdb, err := indexer.Open(cfg.Indexer.DSN)
		if err != nil {
			store.Close()
			return nil, err
		}
		d.indexDB = gdb
		d.indexer = indexer.New(gdb, logger)
		d.indexer.SetSource(node)
		logger.Info("indexer enabled", logging.MaskField("dsn", cfg.Indexer.DSN))
	}
	return d, nil
}

// initGenesis applies the genesis file at path unless the ledger already
// holds state.
func (d *daemon) initGenesis(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		height, err := d.store.Height(ctx)
		if err != nil {
			return err
		}
		d.logger.Warn("no genesis file configured", slog.Uint64("height", height))
		return nil
	}
	spec, err := genesis.Load(path)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	err = d.node.InitGenesis(ctx, spec)
	if errors.Is(err, core.ErrGenesisApplied) {
		d.logger.Info("genesis already applied", slog.String("path", path))
		return nil
	}
	return err
}

// run serves RPC, and the indexer when enabled, until ctx is cancelled or
// one of them fails.
func (d *daemon) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.rpc.Start(ctx, d.cfg.RPCAddress)
	})
	if d.indexer != nil {
		g.Go(func() error {
			err := d.indexer.Run(ctx, d.node.Feed())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			return d.indexer.Serve(ctx, d.cfg.Indexer.ListenAddress)
		})
	}
	return g.Wait()
}

func (d *daemon) close() {
	if d.indexDB != nil {
		if sqlDB, err := d.indexDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	d.store.Close()
}

func resolveGenesisPath(cliPath, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgPath)
}
