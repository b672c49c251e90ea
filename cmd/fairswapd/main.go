package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fairswap/config"
	"fairswap/observability/logging"
	telemetry "fairswap/observability/otel"
)

const serviceName = "fairswapd"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a YAML genesis file (overrides FAIRSWAP_GENESIS and config GenesisFile)")
	exportSwaps := flag.String("export-swaps", "", "Write indexed swaps to this parquet file and exit")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("FAIRSWAP_ENV"))
	logger := logging.Setup(serviceName, env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger, logCloser := logging.New(logging.Options{
		Service:    serviceName,
		Env:        env,
		Level:      logging.ParseLevel(cfg.Log.Level),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: serviceName,
			Environment: env,
			ChainID:     cfg.ChainID,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			logger.Error("Failed to initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	d, err := newDaemon(cfg, logger)
	if err != nil {
		logger.Error("Failed to assemble node", slog.Any("error", err))
		os.Exit(1)
	}
	defer d.close()

	if path := strings.TrimSpace(*exportSwaps); path != "" {
		if d.indexer == nil {
			logger.Error("Swap export requires the indexer to be enabled")
			os.Exit(1)
		}
		n, err := d.indexer.ExportSwaps(ctx, path)
		if err != nil {
			logger.Error("Swap export failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Exported swaps", slog.String("path", path), slog.Int("rows", n))
		return
	}

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)
	if err := d.initGenesis(ctx, genesisPath); err != nil {
		logger.Error("Failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("fair-swap node running",
		slog.Uint64("chain_id", cfg.ChainID),
		slog.String("network", cfg.NetworkName),
		slog.String("storage", cfg.StorageEngine),
		slog.String("rpc_addr", cfg.RPCAddress),
		slog.Bool("indexer", d.indexer != nil))

	if err := d.run(ctx); err != nil {
		logger.Error("Node stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("fair-swap node stopped")
}
