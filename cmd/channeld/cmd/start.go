package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/zkchannel/zkchannel/api"
	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/app/health"
	"github.com/zkchannel/zkchannel/node"
	"github.com/zkchannel/zkchannel/x/channel/client"
	"github.com/zkchannel/zkchannel/x/channel/client/cli"
	"github.com/zkchannel/zkchannel/x/channel/types"
	"github.com/zkchannel/zkchannel/x/channel/zkproof"
)

const (
	FlagAPIListen     = "api.listen"
	FlagMetricsListen = "metrics.listen"
	FlagDevVerifier   = "verifier.dev-mode"
	FlagWithNode      = "node.enabled"
	FlagDBBackend     = "ledger.db-backend"
)

// startFlags maps start flags to config keys.
var startFlags = map[string]string{
	FlagAPIListen:     "api.listen",
	FlagMetricsListen: "metrics.listen",
	FlagDevVerifier:   "verifier.dev_mode",
	FlagWithNode:      "node.enabled",
	FlagDBBackend:     "ledger.db_backend",
}

func bindStartFlags(cmd *cobra.Command, v *viper.Viper) error {
	for flag, key := range startFlags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// StartCmd runs the ledger, the API, the monitoring server and, when
// enabled, a prover node.
func StartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sctx := GetServerContextFromCmd(cmd)
			if sctx == nil {
				return fmt.Errorf("server context not initialized")
			}
			return start(cmd.Context(), sctx)
		},
	}
	cmd.Flags().String(FlagAPIListen, api.DefaultConfig().ListenAddr, "API listen address")
	cmd.Flags().String(FlagMetricsListen, "127.0.0.1:26660", "health and metrics listen address")
	cmd.Flags().Bool(FlagDevVerifier, false, "accept any well formed proof (local networks only)")
	cmd.Flags().Bool(FlagWithNode, false, "run a prover node in process")
	cmd.Flags().String(FlagDBBackend, "goleveldb", "ledger database backend: memdb, goleveldb or pebbledb")
	return cmd
}

func start(ctx context.Context, sctx *ServerContext) error {
	cfg := sctx.Config
	logger := sctx.Logger

	verifier, err := newVerifier(sctx.Home, cfg.Verifier, logger)
	if err != nil {
		return err
	}
	ledger, err := openLedger(sctx, verifier)
	if err != nil {
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("failed to close ledger", "error", err)
		}
	}()

	checker, err := health.NewChecker(logger, health.Config{
		BlockInterval:   cfg.Ledger.BlockInterval,
		MaxResponseTime: health.DefaultConfig().MaxResponseTime,
		CacheDuration:   health.DefaultConfig().CacheDuration,
		Version:         Version,
	}, ledger)
	if err != nil {
		return err
	}

	var prover *node.Node
	if cfg.Node.Enabled {
		if prover, err = newProverNode(sctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ledger.Run(gctx) })
	g.Go(func() error { return api.NewServer(ledger, cfg.APIConfig(), logger).Start(gctx) })
	g.Go(func() error {
		srv := health.NewServer(health.ServerConfig{
			ListenAddr: cfg.Metrics.Listen,
			EnableCORS: cfg.Metrics.EnableCORS,
		}, checker, nil, logger)
		return srv.Start(gctx)
	})
	if prover != nil {
		g.Go(func() error { return prover.Run(gctx) })
	}

	logger.Info("channeld started", "home", sctx.Home, "height", ledger.Height(), "version", Version)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("channeld stopped", "height", ledger.Height())
	return nil
}

// openLedger opens the ledger and commits genesis on first start.
func openLedger(sctx *ServerContext, verifier zkproof.Verifier) (*app.Ledger, error) {
	ledger, err := app.NewLedger(sctx.Config.LedgerConfig(sctx.Home), verifier, sctx.Logger)
	if err != nil {
		return nil, err
	}
	if ledger.Initialized() {
		return ledger, nil
	}

	path := resolvePath(sctx.Home, sctx.Config.Ledger.Genesis)
	gs, err := app.LoadGenesisFile(path)
	if err != nil {
		_ = ledger.Close()
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no genesis at %s; run %s init first", path, app.AppName)
		}
		return nil, err
	}
	if err := ledger.InitChain(*gs); err != nil {
		_ = ledger.Close()
		return nil, err
	}
	return ledger, nil
}

// newVerifier loads a verifying key for each configured version. Dev mode
// replaces the Groth16 check entirely.
func newVerifier(home string, cfg VerifierConfig, logger log.Logger) (zkproof.Verifier, error) {
	if cfg.DevMode {
		logger.Info("proof verification disabled; using dev verifier")
		return zkproof.DevVerifier{}, nil
	}

	v := zkproof.NewGroth16Verifier()
	paths := map[types.ProverVersion]string{
		types.ProverVersionV1_0_1: cfg.Keys.V1_0_1,
		types.ProverVersionV1_2_1: cfg.Keys.V1_2_1,
	}
	for _, version := range types.SupportedProverVersions() {
		path := paths[version]
		if path == "" {
			continue
		}
		if err := v.LoadVerifyingKeyFile(version, resolvePath(home, path)); err != nil {
			return nil, fmt.Errorf("failed to load verifying key: %w", err)
		}
		logger.Info("loaded verifying key", "version", version.String(), "path", path)
	}
	if len(v.Versions()) == 0 {
		return nil, fmt.Errorf("no verifying keys configured; set verifier.keys or verifier.dev_mode")
	}
	return v, nil
}

func newProverNode(sctx *ServerContext) (*node.Node, error) {
	cfg, logger := sctx.Config, sctx.Logger
	if len(cfg.Node.ProverCommand) == 0 {
		return nil, fmt.Errorf("node.prover_command is required when the node is enabled")
	}
	if cfg.Node.KeyFile == "" {
		return nil, fmt.Errorf("node.keyfile is required when the node is enabled")
	}
	key, err := cli.LoadKeyFile(resolvePath(sctx.Home, cfg.Node.KeyFile))
	if err != nil {
		return nil, err
	}
	c, err := client.New(cfg.ClientConfig(), logger)
	if err != nil {
		return nil, err
	}
	prover := node.CommandProver{Path: cfg.Node.ProverCommand[0], Args: cfg.Node.ProverCommand[1:]}
	return node.New(cfg.NodeConfig(), c, prover, key, logger)
}
