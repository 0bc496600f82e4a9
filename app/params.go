package app

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// AppName is the name of the ledger daemon.
	AppName = "channeld"

	// DefaultBlockhashValidity is the number of blocks a recent blockhash
	// stays usable for new transactions.
	DefaultBlockhashValidity = 150

	// DefaultBlockInterval is the wall time between blocks.
	DefaultBlockInterval = 400 * time.Millisecond

	// DefaultMaxTxGas caps the gas one transaction may use.
	DefaultMaxTxGas = 5_000_000

	// MaxTxBytes caps the encoded size of a transaction.
	MaxTxBytes = 64 * 1024

	// DefaultMaxAirdrop caps a single devnet airdrop.
	DefaultMaxAirdrop = 100_000_000_000
)

// DefaultNodeHome is the default home directory for channeld.
var DefaultNodeHome string

func init() {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}

	DefaultNodeHome = filepath.Join(userHomeDir, ".zkchannel")
}
