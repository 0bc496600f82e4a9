package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cosmos/cosmos-sdk/crypto/keys/ed25519"
	"github.com/spf13/cobra"

	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/x/channel/client/cli"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

const (
	flagOverwrite = "overwrite"
	flagFund      = "fund"
	flagLamports  = "lamports"

	faucetKeyFile = "faucet_key.json"

	defaultGenesisLamports = 1_000_000_000_000
)

// InitCmd writes a default config, a funded faucet key and genesis under
// the home directory.
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize config, faucet key and genesis",
		Long: `Initialize the node home directory.

Example:
  channeld init --home ~/.zkchannel --fund <address> --lamports 1000000000
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sctx := GetServerContextFromCmd(cmd)
			if sctx == nil {
				return fmt.Errorf("server context not initialized")
			}
			overwrite, _ := cmd.Flags().GetBool(flagOverwrite)
			lamports, _ := cmd.Flags().GetUint64(flagLamports)
			fund, _ := cmd.Flags().GetStringSlice(flagFund)

			genFile := resolvePath(sctx.Home, sctx.Config.Ledger.Genesis)
			cfgFile := configPath(sctx.Home)
			if !overwrite {
				for _, path := range []string{genFile, cfgFile} {
					if fileExists(path) {
						return fmt.Errorf("%s already exists; use --%s", path, flagOverwrite)
					}
				}
			}

			funded := make([]types.Address, 0, len(fund)+1)
			for _, raw := range fund {
				addr, err := types.ParseAddress(raw)
				if err != nil {
					return fmt.Errorf("--%s %q: %w", flagFund, raw, err)
				}
				funded = append(funded, addr)
			}

			faucet, err := loadOrCreateFaucet(filepath.Join(sctx.Home, configDirName, faucetKeyFile))
			if err != nil {
				return err
			}
			funded = append(funded, faucet)

			if err := app.WriteGenesisFile(genFile, app.NewDefaultGenesisState(lamports, funded...)); err != nil {
				return fmt.Errorf("failed to write genesis: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(cfgFile), 0o755); err != nil {
				return err
			}
			if err := sctx.Viper.WriteConfigAs(cfgFile); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			out, err := json.MarshalIndent(map[string]interface{}{
				"home":     sctx.Home,
				"config":   cfgFile,
				"genesis":  genFile,
				"faucet":   faucet,
				"funded":   funded,
				"lamports": lamports,
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().Bool(flagOverwrite, false, "overwrite an existing config and genesis")
	cmd.Flags().StringSlice(flagFund, nil, "additional addresses to fund at genesis")
	cmd.Flags().Uint64(flagLamports, defaultGenesisLamports, "lamports for each funded account")
	return cmd
}

// loadOrCreateFaucet keeps an existing faucet key so re-initializing does
// not orphan its funds.
func loadOrCreateFaucet(path string) (types.Address, error) {
	if fileExists(path) {
		key, err := cli.LoadKeyFile(path)
		if err != nil {
			return types.Address{}, err
		}
		return types.AddressFromPubKey(key.PubKey()), nil
	}
	key := ed25519.GenPrivKey()
	if err := cli.WriteKeyFile(path, key); err != nil {
		return types.Address{}, fmt.Errorf("failed to write faucet key: %w", err)
	}
	return types.AddressFromPubKey(key.PubKey()), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
