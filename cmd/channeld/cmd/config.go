package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zkchannel/zkchannel/api"
	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/node"
	"github.com/zkchannel/zkchannel/x/channel/client"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CHANNELD_API_LISTEN.
	EnvPrefix = "CHANNELD"

	configDirName  = "config"
	configFileName = "channeld.toml"
	dataDirName    = "data"
)

// Config is the daemon configuration, read from config/channeld.toml under
// the home directory.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	API      APIConfig      `mapstructure:"api"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Verifier VerifierConfig `mapstructure:"verifier"`
	Node     NodeConfig     `mapstructure:"node"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LedgerConfig struct {
	DBBackend         string        `mapstructure:"db_backend"`
	DBDir             string        `mapstructure:"db_dir"`
	Genesis           string        `mapstructure:"genesis"`
	BlockInterval     time.Duration `mapstructure:"block_interval"`
	BlockhashValidity uint64        `mapstructure:"blockhash_validity"`
	MaxTxGas          uint64        `mapstructure:"max_tx_gas"`
	MaxAirdrop        uint64        `mapstructure:"max_airdrop"`
}

type APIConfig struct {
	Listen        string   `mapstructure:"listen"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
	RateLimitRPS  int      `mapstructure:"rate_limit_rps"`
	EnableAirdrop bool     `mapstructure:"enable_airdrop"`
}

type MetricsConfig struct {
	Listen     string `mapstructure:"listen"`
	EnableCORS bool   `mapstructure:"enable_cors"`
}

// VerifierConfig selects the proof verifier. Keys are paths to gnark
// verifying keys, one per prover version.
type VerifierConfig struct {
	DevMode bool         `mapstructure:"dev_mode"`
	Keys    VerifierKeys `mapstructure:"keys"`
}

type VerifierKeys struct {
	V1_0_1 string `mapstructure:"v1_0_1"`
	V1_2_1 string `mapstructure:"v1_2_1"`
}

// NodeConfig configures the optional in-process prover node.
type NodeConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	RPC                 string        `mapstructure:"rpc"`
	KeyFile             string        `mapstructure:"keyfile"`
	ProverCommand       []string      `mapstructure:"prover_command"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	PendingLimit        int           `mapstructure:"pending_limit"`
	MaxConcurrentProofs int           `mapstructure:"max_concurrent_proofs"`
	MinTip              uint64        `mapstructure:"min_tip"`
	MinBlocksRemaining  uint64        `mapstructure:"min_blocks_remaining"`
	ProveTimeout        time.Duration `mapstructure:"prove_timeout"`
	Images              []string      `mapstructure:"images"`
	RetryCount          uint64        `mapstructure:"retry_count"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
}

// setDefaults registers every key so that environment overrides and
// Unmarshal see the full tree.
func setDefaults(v *viper.Viper) {
	ledger := app.DefaultConfig()
	apiCfg := api.DefaultConfig()
	nodeCfg := node.DefaultConfig()
	clientCfg := client.DefaultConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "plain")

	v.SetDefault("ledger.db_backend", "goleveldb")
	v.SetDefault("ledger.db_dir", dataDirName)
	v.SetDefault("ledger.genesis", filepath.Join(configDirName, app.GenesisFileName))
	v.SetDefault("ledger.block_interval", ledger.BlockInterval.String())
	v.SetDefault("ledger.blockhash_validity", ledger.BlockhashValidity)
	v.SetDefault("ledger.max_tx_gas", ledger.MaxTxGas)
	v.SetDefault("ledger.max_airdrop", ledger.MaxAirdrop)

	v.SetDefault("api.listen", apiCfg.ListenAddr)
	v.SetDefault("api.cors_origins", apiCfg.CORSOrigins)
	v.SetDefault("api.rate_limit_rps", apiCfg.RateLimitRPS)
	v.SetDefault("api.enable_airdrop", apiCfg.EnableAirdrop)

	v.SetDefault("metrics.listen", "127.0.0.1:26660")
	v.SetDefault("metrics.enable_cors", false)

	v.SetDefault("verifier.dev_mode", false)
	v.SetDefault("verifier.keys.v1_0_1", "")
	v.SetDefault("verifier.keys.v1_2_1", "")

	v.SetDefault("node.enabled", false)
	v.SetDefault("node.rpc", "")
	v.SetDefault("node.keyfile", "")
	v.SetDefault("node.prover_command", []string{})
	v.SetDefault("node.poll_interval", nodeCfg.PollInterval.String())
	v.SetDefault("node.pending_limit", nodeCfg.PendingLimit)
	v.SetDefault("node.max_concurrent_proofs", nodeCfg.MaxConcurrentProofs)
	v.SetDefault("node.min_tip", nodeCfg.MinTip)
	v.SetDefault("node.min_blocks_remaining", nodeCfg.MinBlocksRemaining)
	v.SetDefault("node.prove_timeout", nodeCfg.ProveTimeout.String())
	v.SetDefault("node.images", []string{})
	v.SetDefault("node.retry_count", clientCfg.RetryCount)
	v.SetDefault("node.retry_backoff", clientCfg.RetryBackoff.String())
}

// newViper returns a viper instance with defaults and environment
// overrides for home.
func newViper(home string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetConfigFile(configPath(home))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readConfig loads the config file if present. A missing file leaves the
// defaults in place.
func readConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func configPath(home string) string {
	return filepath.Join(home, configDirName, configFileName)
}

// resolvePath anchors relative paths at the home directory.
func resolvePath(home, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(home, path)
}

// LedgerConfig converts to the ledger's own configuration.
func (c *Config) LedgerConfig(home string) app.Config {
	return app.Config{
		DBBackend:         c.Ledger.DBBackend,
		DBDir:             resolvePath(home, c.Ledger.DBDir),
		BlockInterval:     c.Ledger.BlockInterval,
		BlockhashValidity: c.Ledger.BlockhashValidity,
		MaxTxGas:          c.Ledger.MaxTxGas,
		MaxAirdrop:        c.Ledger.MaxAirdrop,
	}
}

func (c *Config) APIConfig() *api.Config {
	cfg := api.DefaultConfig()
	cfg.ListenAddr = c.API.Listen
	cfg.CORSOrigins = c.API.CORSOrigins
	cfg.RateLimitRPS = c.API.RateLimitRPS
	cfg.EnableAirdrop = c.API.EnableAirdrop
	return cfg
}

func (c *Config) NodeConfig() node.Config {
	return node.Config{
		PollInterval:        c.Node.PollInterval,
		PendingLimit:        c.Node.PendingLimit,
		MaxConcurrentProofs: c.Node.MaxConcurrentProofs,
		MinTip:              c.Node.MinTip,
		MinBlocksRemaining:  c.Node.MinBlocksRemaining,
		ProveTimeout:        c.Node.ProveTimeout,
		Images:              c.Node.Images,
	}
}

// ClientConfig points the node's client at node.rpc, or at the local API
// when unset.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.Endpoint = c.Node.RPC
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://" + c.API.Listen
	}
	cfg.RetryCount = c.Node.RetryCount
	cfg.RetryBackoff = c.Node.RetryBackoff
	return cfg
}
