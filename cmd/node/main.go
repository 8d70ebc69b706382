package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodnatureofminers/btpc-node/internal/chain"
	"github.com/goodnatureofminers/btpc-node/internal/clock"
	"github.com/goodnatureofminers/btpc-node/internal/config"
	"github.com/goodnatureofminers/btpc-node/internal/consensus"
	"github.com/goodnatureofminers/btpc-node/internal/crypto"
	"github.com/goodnatureofminers/btpc-node/internal/metrics"
	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/goodnatureofminers/btpc-node/internal/p2p"
	"github.com/goodnatureofminers/btpc-node/internal/repository/clickhouse"
	"github.com/goodnatureofminers/btpc-node/internal/service/exporter"
	"github.com/goodnatureofminers/btpc-node/internal/service/importer"
	"github.com/goodnatureofminers/btpc-node/internal/storage"
)

type options struct {
	Network          model.Network   `long:"network" env:"BTPC_NETWORK" description:"network name (mainnet, testnet, regtest)" default:"mainnet"`
	DataDir          string          `long:"data-dir" env:"BTPC_DATA_DIR" description:"directory holding chain state" default:"./btpc-data"`
	DB               storage.Backend `long:"db" env:"BTPC_DB" description:"storage backend (leveldb, bolt, memory)" default:"leveldb"`
	PolicyFile       string          `long:"policy" env:"BTPC_POLICY" description:"peer and export policy TOML file"`
	DumpPolicy       bool            `long:"dump-policy" description:"print the effective policy as TOML and exit"`
	MetricsAddr      string          `long:"metrics-addr" env:"BTPC_METRICS_ADDR" description:"address for metrics server" default:":2112"`
	ClickhouseDSN    string          `long:"clickhouse-dsn" env:"BTPC_CLICKHOUSE_DSN" description:"ClickHouse DSN for block and peer event export (optional)"`
	ImportFile       string          `long:"import-file" env:"BTPC_IMPORT_FILE" description:"bootstrap file of length-prefixed blocks to import on start"`
	ImportRate       int             `long:"import-rate" env:"BTPC_IMPORT_RATE" description:"maximum imported blocks per second, 0 for unpaced" default:"0"`
	SignatureWorkers int             `long:"signature-workers" env:"BTPC_SIGNATURE_WORKERS" description:"goroutines verifying signatures per block" default:"8"`
}

func main() {
	opts := options{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&opts, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, opts, logger); err != nil {
		logger.Fatal("node failed", zap.Error(err))
	}
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	policy, err := config.Load(opts.PolicyFile)
	if err != nil {
		return err
	}
	if opts.DumpPolicy {
		return policy.Encode(os.Stdout)
	}

	params, err := consensus.ParamsFor(opts.Network)
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("network", string(opts.Network)))

	store, err := openStore(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	var (
		chainOpts    = []chain.Option{chain.WithSignatureWorkers(opts.SignatureWorkers)}
		registryOpts []p2p.RegistryOption
	)
	if opts.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(opts.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		defer func() {
			_ = repo.Close()
		}()
		exp, err := exporter.New(policy.ExporterConfig(), opts.Network, repo, metrics.NewExporter(), logger)
		if err != nil {
			return err
		}
		// The final flush on shutdown must outlive the signal context.
		exp.Start(context.WithoutCancel(ctx))
		defer exp.Stop()

		chainOpts = append(chainOpts, chain.WithEventSink(exp))
		registryOpts = append(registryOpts, p2p.WithPeerEventSink(exp))
	}

	c, err := chain.New(store, params, crypto.Dilithium{}, metrics.NewChain(opts.Network), logger, chainOpts...)
	if err != nil {
		return err
	}
	if err := c.Init(ctx, consensus.GenesisBlock(params, crypto.DoubleSHA512{})); err != nil {
		return fmt.Errorf("init chain: %w", err)
	}

	p2pConfig := policy.P2P()
	bans, err := p2p.NewBanManager(p2pConfig.Bans, p2p.NewPeerStore(store), clock.System{}, logger)
	if err != nil {
		return err
	}
	if err := bans.Load(); err != nil {
		return fmt.Errorf("load bans: %w", err)
	}
	registry, err := p2p.NewRegistry(p2pConfig, bans, metrics.NewPeer(), logger, registryOpts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveMetrics(gctx, opts.MetricsAddr, logger)
	})
	g.Go(func() error {
		return registry.RunSweeper(gctx, policy.SweepInterval)
	})
	if opts.ImportFile != "" {
		g.Go(func() error {
			return importFile(gctx, opts, c, logger)
		})
	}
	return g.Wait()
}

func openStore(opts options) (storage.Store, error) {
	dir := filepath.Join(opts.DataDir, string(opts.Network))
	if opts.DB != storage.BackendMemory {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	raw, err := storage.Open(opts.DB, dir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	store, err := storage.NewObserved(raw, metrics.NewStorage(string(opts.DB)))
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return store, nil
}

func importFile(ctx context.Context, opts options, c *chain.Chain, logger *zap.Logger) error {
	f, err := os.Open(opts.ImportFile)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	imp, err := importer.New(
		importer.NewStreamSource(f),
		c,
		metrics.NewImporter(opts.Network),
		logger,
		importer.WithBlocksPerSecond(opts.ImportRate),
	)
	if err != nil {
		return err
	}
	if _, err := imp.Run(ctx); err != nil {
		return fmt.Errorf("import %s: %w", opts.ImportFile, err)
	}
	return nil
}

// serveMetrics serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown metrics server", zap.Error(err))
	}
	return nil
}
