package types

// Event types for the channel module
const (
	EventTypeDeploy           = "channel_deploy"
	EventTypeExecutionRequest = "channel_execution_request"
	EventTypeExecutionClaimed = "channel_execution_claimed"
	EventTypeStatusUpdate     = "channel_status_update"
	EventTypeTipPaid          = "channel_tip_paid"
	EventTypeRefund           = "channel_refund"
	EventTypeCallback         = "channel_callback"
	EventTypeCallbackFailed   = "channel_callback_failed"
	EventTypeTransfer         = "channel_transfer"
)

// Event attribute keys for the channel module
const (
	AttributeKeyImageID        = "image_id"
	AttributeKeyDeployment     = "deployment"
	AttributeKeyExecution      = "execution"
	AttributeKeyExecutionID    = "execution_id"
	AttributeKeyRequester      = "requester"
	AttributeKeyClaimer        = "claimer"
	AttributeKeyProver         = "prover"
	AttributeKeyTip            = "tip"
	AttributeKeyAmount         = "amount"
	AttributeKeyMaxBlockHeight = "max_block_height"
	AttributeKeyExitCode       = "exit_code"
	AttributeKeyInputDigest    = "input_digest"
	AttributeKeyProverVersion  = "prover_version"
	AttributeKeyCallback       = "callback_program"
	AttributeKeyError          = "error"
	AttributeKeyFrom           = "from"
	AttributeKeyTo             = "to"
)
