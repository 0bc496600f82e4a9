package app

import (
	"fmt"
	"time"

	dbm "github.com/cosmos/cosmos-db"
)

// Config holds ledger configuration.
type Config struct {
	// DBBackend is a cosmos-db backend name: memdb, goleveldb or pebbledb.
	DBBackend string
	DBDir     string

	BlockInterval     time.Duration
	BlockhashValidity uint64
	MaxTxGas          uint64

	// MaxAirdrop is the largest devnet airdrop; zero disables airdrops.
	MaxAirdrop uint64
}

// DefaultConfig returns an in-memory ledger configuration.
func DefaultConfig() Config {
	return Config{
		DBBackend:         string(dbm.MemDBBackend),
		BlockInterval:     DefaultBlockInterval,
		BlockhashValidity: DefaultBlockhashValidity,
		MaxTxGas:          DefaultMaxTxGas,
		MaxAirdrop:        DefaultMaxAirdrop,
	}
}

// Validate performs basic config validation
func (c Config) Validate() error {
	switch dbm.BackendType(c.DBBackend) {
	case dbm.MemDBBackend:
	case dbm.GoLevelDBBackend, dbm.PebbleDBBackend:
		if c.DBDir == "" {
			return fmt.Errorf("db_dir is required for backend %s", c.DBBackend)
		}
	default:
		return fmt.Errorf("unsupported db backend %q", c.DBBackend)
	}
	if c.BlockInterval <= 0 {
		return fmt.Errorf("block interval must be positive")
	}
	if c.BlockhashValidity == 0 {
		return fmt.Errorf("blockhash validity must be positive")
	}
	if c.MaxTxGas == 0 {
		return fmt.Errorf("max tx gas must be positive")
	}
	return nil
}

func (c Config) openDB() (dbm.DB, error) {
	if dbm.BackendType(c.DBBackend) == dbm.MemDBBackend {
		return dbm.NewMemDB(), nil
	}
	return dbm.NewDB("ledger", dbm.BackendType(c.DBBackend), c.DBDir)
}
