package cli

import (
	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/zkchannel/zkchannel/x/channel/client"
)

// Flag constants for channel CLI commands
const (
	FlagNode    = "node"
	FlagKeyFile = "keyfile"

	// Deploy flags
	FlagImageID     = "image-id"
	FlagImageSize   = "image-size"
	FlagProgramName = "program-name"
	FlagImageURL    = "url"
	FlagInputTypes  = "input-types"

	// Execute flags
	FlagExecutionID     = "execution-id"
	FlagTip             = "tip"
	FlagExpiryBlocks    = "expiry-blocks"
	FlagInput           = "input"
	FlagInputHash       = "input-hash"
	FlagVerifyInputHash = "verify-input-hash"
	FlagForwardOutput   = "forward-output"
	FlagCallbackProgram = "callback-program"
	FlagCallbackPrefix  = "callback-prefix"
	FlagCallbackAccount = "callback-account"
	FlagProverVersion   = "prover-version"
	FlagWait            = "wait"

	// Claim flags
	FlagBlockCommitment = "block-commitment"

	// Query flags
	FlagLimit = "limit"
)

// AddNodeFlag adds the ledger endpoint flag.
func AddNodeFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String(FlagNode, client.DefaultConfig().Endpoint, "Ledger API endpoint")
}

// AddKeyFileFlag adds the signing key flag.
func AddKeyFileFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String(FlagKeyFile, "", "Path to the signing key file")
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	endpoint, err := cmd.Flags().GetString(FlagNode)
	if err != nil {
		return nil, err
	}
	cfg := client.DefaultConfig()
	cfg.Endpoint = endpoint
	return client.New(cfg, log.NewNopLogger())
}
