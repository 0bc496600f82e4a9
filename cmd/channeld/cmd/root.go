package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/x/channel/client/cli"
)

const (
	FlagHome      = "home"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// ServerContext carries the resolved home, configuration and logger to
// subcommands.
type ServerContext struct {
	Home   string
	Viper  *viper.Viper
	Config *Config
	Logger log.Logger
}

type serverContextKey struct{}

// GetServerContextFromCmd returns the context set up by the root command's
// pre-run hook.
func GetServerContextFromCmd(cmd *cobra.Command) *ServerContext {
	if cmd.Context() != nil {
		if sctx, ok := cmd.Context().Value(serverContextKey{}).(*ServerContext); ok {
			return sctx
		}
	}
	return nil
}

// NewRootCmd creates the channeld root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   app.AppName,
		Short: "zkchannel ledger daemon",
		Long: `channeld runs a devnet ledger hosting the zk compute settlement channel,
serves it over HTTP and optionally runs a prover node against it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())
			return interceptConfigs(cmd)
		},
	}

	rootCmd.PersistentFlags().String(FlagHome, resolveNodeHome(), "directory for config and data")
	rootCmd.PersistentFlags().String(FlagLogLevel, "info", "log level or module filter, e.g. info or ledger:debug,*:info")
	rootCmd.PersistentFlags().String(FlagLogFormat, "plain", "log output format: plain or json")

	rootCmd.AddCommand(
		InitCmd(),
		StartCmd(),
		ExportCmd(),
		ValidateGenesisCmd(),
		VersionCmd(),
		cli.GetKeysCmd(),
		cli.GetTxCmd(),
		cli.GetQueryCmd(),
	)
	return rootCmd
}

// resolveNodeHome honors CHANNELD_HOME before the built-in default.
func resolveNodeHome() string {
	if home := os.Getenv(EnvPrefix + "_HOME"); home != "" {
		return home
	}
	return app.DefaultNodeHome
}

// interceptConfigs reads the config file, applies flag overrides and
// stores the result on the command context.
func interceptConfigs(cmd *cobra.Command) error {
	home, err := cmd.Flags().GetString(FlagHome)
	if err != nil {
		return err
	}
	v := newViper(home)
	if err := v.BindPFlag("log.level", cmd.Flags().Lookup(FlagLogLevel)); err != nil {
		return err
	}
	if err := v.BindPFlag("log.format", cmd.Flags().Lookup(FlagLogFormat)); err != nil {
		return err
	}
	if err := bindStartFlags(cmd, v); err != nil {
		return err
	}

	cfg, err := readConfig(v)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, serverContextKey{}, &ServerContext{
		Home:   home,
		Viper:  v,
		Config: cfg,
		Logger: logger,
	}))
	return nil
}

// newLogger accepts either a zerolog level or a module filter.
func newLogger(out io.Writer, cfg LogConfig) (log.Logger, error) {
	var opts []log.Option
	switch cfg.Format {
	case "json":
		opts = append(opts, log.OutputJSONOption())
	case "plain", "":
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		filter, ferr := log.ParseLogLevel(cfg.Level)
		if ferr != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, ferr)
		}
		opts = append(opts, log.FilterOption(filter))
	} else {
		opts = append(opts, log.LevelOption(lvl))
	}
	return log.NewLogger(out, opts...), nil
}

// VersionCmd prints the build version.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the channeld version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		},
	}
}
