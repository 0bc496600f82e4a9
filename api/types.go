package api

import (
	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/x/channel/keeper"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Backend is the ledger the API serves.
type Backend interface {
	SubmitTransaction(tx *types.Transaction) (*app.TxResult, error)
	TxStatus(id string) (*app.TxResult, error)
	GetAccount(addr types.Address) (*types.Account, error)
	LatestBlockhash() (types.Hash, uint64)
	Height() uint64
	PendingExecutions(limit int) ([]keeper.PendingExecution, error)
	GetExecution(addr types.Address) (*keeper.ExecutionView, error)
	Airdrop(addr types.Address, lamports uint64) error
	SubscribeBlocks(fn func(app.Block))
}

// ErrorResponse carries an ABCI style error. Codespace and Code identify
// registered errors so clients can rebuild them.
type ErrorResponse struct {
	Error     string        `json:"error"`
	Codespace string        `json:"codespace,omitempty"`
	Code      uint32        `json:"code,omitempty"`
	Result    *app.TxResult `json:"result,omitempty"`
}

// SubmitTxRequest carries an rlp encoded signed transaction.
type SubmitTxRequest struct {
	Tx []byte `json:"tx" binding:"required"`
}

// BlockhashResponse is the newest blockhash.
type BlockhashResponse struct {
	Blockhash            types.Hash `json:"blockhash"`
	LastValidBlockHeight uint64     `json:"last_valid_block_height"`
}

// HeightResponse is the height of the block being built.
type HeightResponse struct {
	Height uint64 `json:"height"`
}

// AccountResponse is one account.
type AccountResponse struct {
	Address types.Address `json:"address"`
	types.Account
}

// ExecutionResponse is the state of an execution account. Exactly one of
// Pending or Settled is set.
type ExecutionResponse struct {
	Address  types.Address             `json:"address"`
	Lamports uint64                    `json:"lamports"`
	Pending  *types.ExecutionRequestV1 `json:"pending,omitempty"`
	Settled  *types.SettledExecution   `json:"settled,omitempty"`
	Claim    *types.ClaimRecordV1      `json:"claim,omitempty"`
}

// PendingExecutionsResponse lists pending executions.
type PendingExecutionsResponse struct {
	Height     uint64                    `json:"height"`
	Executions []keeper.PendingExecution `json:"executions"`
}

// AirdropRequest asks for devnet lamports.
type AirdropRequest struct {
	Address  types.Address `json:"address"`
	Lamports uint64        `json:"lamports" binding:"required"`
}

func executionResponse(view *keeper.ExecutionView) ExecutionResponse {
	return ExecutionResponse{
		Address:  view.Address,
		Lamports: view.Lamports,
		Pending:  view.State.Pending,
		Settled:  view.State.Settled,
		Claim:    view.Claim,
	}
}
