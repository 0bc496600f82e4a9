package types

import (
	"errors"

	sdkerrors "cosmossdk.io/errors"
)

// Channel module sentinel errors. The registered code is the stable
// program error number reported to clients.

var (
	// Malformed input
	ErrInvalidInstruction       = sdkerrors.Register(ModuleName, 2, "invalid instruction")
	ErrInvalidAccounts          = sdkerrors.Register(ModuleName, 3, "invalid accounts")
	ErrInvalidExecutionAccount  = sdkerrors.Register(ModuleName, 4, "invalid execution account")
	ErrInvalidClaimAccount      = sdkerrors.Register(ModuleName, 5, "invalid claim account")
	ErrInvalidDeploymentAccount = sdkerrors.Register(ModuleName, 6, "invalid deployment account")
	ErrMaxSeedLength            = sdkerrors.Register(ModuleName, 7, "seed length exceeded")
	ErrAccountNotWritable       = sdkerrors.Register(ModuleName, 8, "account not writable")
	ErrMissingSignature         = sdkerrors.Register(ModuleName, 9, "missing required signature")
	ErrInvalidExecutionID       = sdkerrors.Register(ModuleName, 10, "invalid execution id")
	ErrInvalidImageID           = sdkerrors.Register(ModuleName, 11, "invalid image id")
	ErrInvalidInputs            = sdkerrors.Register(ModuleName, 12, "invalid inputs")
	ErrInvalidStatus            = sdkerrors.Register(ModuleName, 13, "invalid status")
	ErrInvalidParams            = sdkerrors.Register(ModuleName, 14, "invalid params")
	ErrUnknownProgram           = sdkerrors.Register(ModuleName, 15, "unknown program")

	// Protocol violations
	ErrExecutionExpired             = sdkerrors.Register(ModuleName, 20, "execution expired")
	ErrExecutionAlreadyClaimed      = sdkerrors.Register(ModuleName, 21, "execution already claimed")
	ErrAccountAlreadyExists         = sdkerrors.Register(ModuleName, 22, "account already exists")
	ErrInvalidCallbackProgram       = sdkerrors.Register(ModuleName, 23, "invalid callback program")
	ErrInvalidCallbackExtraAccounts = sdkerrors.Register(ModuleName, 24, "invalid callback extra accounts")
	ErrInputsDontMatch              = sdkerrors.Register(ModuleName, 25, "input digest does not match precommitment")
	ErrInsufficientFunds            = sdkerrors.Register(ModuleName, 26, "insufficient funds")
	ErrNotRentExempt                = sdkerrors.Register(ModuleName, 27, "account not rent exempt")
	ErrUnsupportedProverVersion     = sdkerrors.Register(ModuleName, 28, "unsupported prover version")
	ErrInvalidExpiry                = sdkerrors.Register(ModuleName, 29, "invalid max block height")
	ErrInvalidTip                   = sdkerrors.Register(ModuleName, 30, "invalid tip")
	ErrAlreadyDeployed              = sdkerrors.Register(ModuleName, 31, "image already deployed")
	ErrInvalidProgramAuthority      = sdkerrors.Register(ModuleName, 32, "program authority does not match account")
	ErrAccountNotFound              = sdkerrors.Register(ModuleName, 33, "account not found")
	ErrCallbackFailed               = sdkerrors.Register(ModuleName, 34, "callback failed")
)

// ErrorWithRecovery wraps an error with recovery suggestions
type ErrorWithRecovery struct {
	Err      error
	Recovery string
}

func (e *ErrorWithRecovery) Error() string {
	return e.Err.Error()
}

func (e *ErrorWithRecovery) Unwrap() error {
	return e.Err
}

// RecoverySuggestions provides actionable recovery steps for each error type
var RecoverySuggestions = map[error]string{
	ErrInvalidInstruction:       "Instruction bytes could not be decoded. Rebuild the instruction with the client package for the current wire version.",
	ErrInvalidAccounts:          "Account list is too short or in the wrong order. Use the client instruction builders which lay accounts out in the expected order.",
	ErrInvalidExecutionAccount:  "Execution account does not match requester and execution id, or is not a pending request. Query the execution status before retrying.",
	ErrInvalidClaimAccount:      "Claim account must be derived from the execution account with the execution_claim seed.",
	ErrInvalidDeploymentAccount: "Deployment account must be derived from the sha256 of the image id. Deploy the image before requesting executions.",
	ErrMaxSeedLength:            "Each seed is limited to 32 bytes and at most 16 seeds. Shorten the execution id.",
	ErrAccountNotWritable:       "Mark the account writable in the instruction account list.",
	ErrMissingSignature:         "Sign the transaction with the key of the account that must authorise the instruction.",
	ErrInvalidExecutionID:       "Execution ids must be between 1 and 32 bytes.",
	ErrInvalidImageID:           "Image ids are 64 lowercase hex characters and must match the deployment.",
	ErrInvalidInputs:            "Check the number of inputs and that every input type is accepted by the deployment.",
	ErrInvalidStatus:            "Only Completed status updates are accepted.",
	ErrInvalidParams:            "Module params failed validation. Check rent and limit values.",
	ErrUnknownProgram:           "Instruction targets a program that is not loaded in this ledger.",

	ErrExecutionExpired:             "Current height is past max_block_height. Submit a new execution request with a later expiry.",
	ErrExecutionAlreadyClaimed:      "Another prover already claimed this execution. Pick a different pending execution.",
	ErrAccountAlreadyExists:         "The derived account is already in use. Choose a new execution id.",
	ErrInvalidCallbackProgram:       "Pass the callback program configured in the execution request at account index 2.",
	ErrInvalidCallbackExtraAccounts: "Extra callback accounts must match the declared list in count, order, address and writability.",
	ErrInputsDontMatch:              "The proven input digest differs from the requester's precommitment. Prove with the committed inputs.",
	ErrInsufficientFunds:            "Fund the paying account with enough lamports for rent plus tip.",
	ErrNotRentExempt:                "Account balance is below the rent exempt minimum for its size.",
	ErrUnsupportedProverVersion:     "Supported prover versions are v1.0.1 and v1.2.1.",
	ErrInvalidExpiry:                "max_block_height must be in the future and within the configured maximum expiry window.",
	ErrInvalidTip:                   "Tip must be greater than zero.",
	ErrAlreadyDeployed:              "This image id is already deployed. Reuse the existing deployment.",
	ErrInvalidProgramAuthority:      "Seeds and bump do not derive the account being signed for.",
	ErrAccountNotFound:              "The account does not exist. Check the address or wait for the transaction to land.",
}

// WrapWithRecovery wraps an error with recovery suggestion
func WrapWithRecovery(err error, msg string, args ...interface{}) error {
	wrapped := sdkerrors.Wrapf(err, msg, args...)

	if suggestion, ok := RecoverySuggestions[err]; ok {
		return &ErrorWithRecovery{
			Err:      wrapped,
			Recovery: suggestion,
		}
	}

	return wrapped
}

// GetRecoverySuggestion returns the recovery suggestion for an error
func GetRecoverySuggestion(err error) string {
	rootErr := err
	for {
		if unwrapped := errors.Unwrap(rootErr); unwrapped != nil {
			rootErr = unwrapped
		} else {
			break
		}
	}

	if suggestion, ok := RecoverySuggestions[rootErr]; ok {
		return suggestion
	}

	return "No recovery suggestion available. Check error message for details."
}
