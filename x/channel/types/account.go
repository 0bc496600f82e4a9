package types

// Account is the ledger state stored under an Address.
type Account struct {
	Lamports   uint64  `json:"lamports"`
	Owner      Address `json:"owner"`
	Data       []byte  `json:"data"`
	Executable bool    `json:"executable"`
}

// Exists reports whether the account has ever been created. A system owned
// account with no lamports and no data is indistinguishable from absence.
func (a *Account) Exists() bool {
	return a != nil && (a.Lamports > 0 || len(a.Data) > 0 || a.Owner != SystemProgramID || a.Executable)
}

// AccountMeta describes how an instruction uses one account.
type AccountMeta struct {
	Address    Address `json:"address"`
	IsSigner   bool    `json:"is_signer"`
	IsWritable bool    `json:"is_writable"`
}

// NewAccountMeta returns a writable meta.
func NewAccountMeta(addr Address, signer bool) AccountMeta {
	return AccountMeta{Address: addr, IsSigner: signer, IsWritable: true}
}

// NewReadonlyAccountMeta returns a read-only meta.
func NewReadonlyAccountMeta(addr Address, signer bool) AccountMeta {
	return AccountMeta{Address: addr, IsSigner: signer}
}

// Instruction is one program call inside a transaction.
type Instruction struct {
	ProgramID Address       `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}
