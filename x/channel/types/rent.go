package types

import "fmt"

// AccountStorageOverhead is the per-account byte overhead charged by rent.
const AccountStorageOverhead = 128

// Rent holds the rent exemption parameters.
type Rent struct {
	LamportsPerByteYear uint64 `json:"lamports_per_byte_year"`
	ExemptionThreshold  uint64 `json:"exemption_threshold"`
}

// DefaultRent matches the reference ledger: 3480 lamports per byte-year, two years.
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2}
}

// MinimumBalance returns the rent exempt minimum for an account of size bytes.
func (r Rent) MinimumBalance(size int) uint64 {
	return (AccountStorageOverhead + uint64(size)) * r.LamportsPerByteYear * r.ExemptionThreshold
}

// IsExempt reports whether balance covers size.
func (r Rent) IsExempt(balance uint64, size int) bool {
	return balance >= r.MinimumBalance(size)
}

func (r Rent) Validate() error {
	if r.LamportsPerByteYear == 0 {
		return fmt.Errorf("lamports per byte-year must be positive")
	}
	if r.ExemptionThreshold == 0 {
		return fmt.Errorf("exemption threshold must be positive")
	}
	return nil
}
