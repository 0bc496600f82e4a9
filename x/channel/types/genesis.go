package types

import "fmt"

// GenesisAccount seeds one account at height zero.
type GenesisAccount struct {
	Address Address `json:"address"`
	Account Account `json:"account"`
}

// GenesisState is the channel module genesis.
type GenesisState struct {
	Params   Params           `json:"params"`
	Accounts []GenesisAccount `json:"accounts"`
}

// DefaultGenesis returns the default genesis state
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Params:   DefaultParams(),
		Accounts: []GenesisAccount{},
	}
}

// Validate performs basic genesis state validation returning an error upon any
// failure.
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	seen := make(map[Address]bool, len(gs.Accounts))
	for i, ga := range gs.Accounts {
		if seen[ga.Address] {
			return fmt.Errorf("account %d: duplicate address %s", i, ga.Address)
		}
		seen[ga.Address] = true

		if ga.Account.Owner != ProgramID || len(ga.Account.Data) == 0 {
			continue
		}
		if !gs.Params.Rent.IsExempt(ga.Account.Lamports, len(ga.Account.Data)) {
			return fmt.Errorf("account %d (%s): program account below rent exempt minimum", i, ga.Address)
		}
	}
	return nil
}
