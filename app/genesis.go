package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// GenesisFileName is the genesis file under the node home.
const GenesisFileName = "genesis.json"

// NewDefaultGenesisState returns the default genesis with each of funded
// holding lamports.
func NewDefaultGenesisState(lamports uint64, funded ...types.Address) *types.GenesisState {
	gs := types.DefaultGenesis()
	for _, addr := range funded {
		gs.Accounts = append(gs.Accounts, types.GenesisAccount{
			Address: addr,
			Account: types.Account{Lamports: lamports},
		})
	}
	return gs
}

// LoadGenesisFile reads and validates a genesis file.
func LoadGenesisFile(path string) (*types.GenesisState, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis: %w", err)
	}
	var gs types.GenesisState
	if err := json.Unmarshal(bz, &gs); err != nil {
		return nil, fmt.Errorf("failed to parse genesis %s: %w", path, err)
	}
	if err := gs.Validate(); err != nil {
		return nil, err
	}
	return &gs, nil
}

// WriteGenesisFile writes gs as indented JSON.
func WriteGenesisFile(path string, gs *types.GenesisState) error {
	if err := gs.Validate(); err != nil {
		return err
	}
	bz, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0o644)
}
