package types

import "fmt"

// ExitCode is the terminal outcome persisted in a settled execution account.
type ExitCode uint8

const (
	ExitCodeSuccess      ExitCode = 0
	ExitCodeVerifyError  ExitCode = 1
	ExitCodeProvingError ExitCode = 2
)

func (c ExitCode) String() string {
	switch c {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeVerifyError:
		return "verify_error"
	case ExitCodeProvingError:
		return "proving_error"
	default:
		return fmt.Sprintf("exit_code(%d)", uint8(c))
	}
}

func (c ExitCode) IsValid() bool {
	return c <= ExitCodeProvingError
}

// MaxSystemExitCode is the largest system exit code a receipt claim can
// carry; it occupies the top byte of a 32-bit word.
const MaxSystemExitCode = 0xff

// Status is the prover-reported outcome carried by a status instruction.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
