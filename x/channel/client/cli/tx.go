package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zkchannel/zkchannel/x/channel/client"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// GetTxCmd returns the transaction commands for the channel program
func GetTxCmd() *cobra.Command {
	txCmd := &cobra.Command{
		Use:                        "tx",
		Short:                      "Channel transaction subcommands",
		SuggestionsMinimumDistance: 2,
	}
	AddNodeFlag(txCmd)
	AddKeyFileFlag(txCmd)

	txCmd.AddCommand(
		CmdDeploy(),
		CmdExecute(),
		CmdClaim(),
		CmdTransfer(),
		CmdAirdrop(),
	)
	return txCmd
}

// CmdDeploy returns a CLI command handler for deploying an image
func CmdDeploy() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Register a zkVM guest image",
		Long: `Register a zkVM guest image so executions can be requested against it.

Example:
  $ channeld tx deploy \
    --image-id 8a1b...f9 \
    --image-size 262144 \
    --program-name hexagram \
    --url https://images.example.com/hexagram \
    --input-types public_data,private \
    --keyfile ~/.zkchannel/keys/deployer.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signingKey(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			imageID, _ := flags.GetString(FlagImageID)
			imageSize, _ := flags.GetUint64(FlagImageSize)
			name, _ := flags.GetString(FlagProgramName)
			url, _ := flags.GetString(FlagImageURL)
			rawTypes, _ := flags.GetStringSlice(FlagInputTypes)

			inputTypes := make([]types.InputType, 0, len(rawTypes))
			for _, raw := range rawTypes {
				t, err := types.ParseInputType(raw)
				if err != nil {
					return err
				}
				inputTypes = append(inputTypes, t)
			}

			deploy := &types.DeployV1{
				ImageID:            strings.ToLower(imageID),
				ImageSize:          imageSize,
				ProgramName:        name,
				URL:                url,
				AcceptedInputTypes: inputTypes,
			}
			if err := deploy.ValidateBasic(); err != nil {
				return err
			}
			signer := types.AddressFromPubKey(key.PubKey())
			ix, err := client.DeployInstruction(signer, signer, deploy)
			if err != nil {
				return err
			}
			res, err := c.SendTransaction(cmd.Context(), key, []types.Instruction{ix})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().String(FlagImageID, "", "Image id, 64 hex characters")
	cmd.Flags().Uint64(FlagImageSize, 0, "Image size in bytes")
	cmd.Flags().String(FlagProgramName, "", "Program name")
	cmd.Flags().String(FlagImageURL, "", "Where provers download the image")
	cmd.Flags().StringSlice(FlagInputTypes, []string{types.InputTypePublicData.String()}, "Accepted input types")
	_ = cmd.MarkFlagRequired(FlagImageID)
	_ = cmd.MarkFlagRequired(FlagProgramName)
	_ = cmd.MarkFlagRequired(FlagImageURL)
	return cmd
}

// CmdExecute returns a CLI command handler for requesting an execution
func CmdExecute() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute [image-id]",
		Short: "Request a proven execution of a deployed image",
		Long: `Request a proven execution of a deployed image. The tip is escrowed in the
execution account and paid to the prover that submits a result.

Inputs are given as type:hex, for example --input public_data:68656c6c6f.
Callback accounts are given as address or address:w for writable ones.

Example:
  $ channeld tx execute 8a1b...f9 \
    --tip 10000 \
    --expiry-blocks 1000 \
    --input public_data:68656c6c6f \
    --wait 2m \
    --keyfile ~/.zkchannel/keys/requester.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signingKey(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			msg, err := executeFromFlags(cmd, args[0])
			if err != nil {
				return err
			}

			height, err := c.Height(cmd.Context())
			if err != nil {
				return err
			}
			expiry, _ := cmd.Flags().GetUint64(FlagExpiryBlocks)
			msg.MaxBlockHeight = height + expiry
			if err := msg.ValidateBasic(); err != nil {
				return err
			}

			requester := types.AddressFromPubKey(key.PubKey())
			ix, err := client.ExecuteInstruction(requester, requester, msg)
			if err != nil {
				return err
			}
			res, err := c.SendTransaction(cmd.Context(), key, []types.Instruction{ix})
			if err != nil {
				return err
			}

			wait, _ := cmd.Flags().GetDuration(FlagWait)
			if wait <= 0 {
				return printJSON(cmd, map[string]interface{}{"execution_id": msg.ExecutionID, "result": res})
			}
			settled, err := c.WaitForProof(cmd.Context(), requester, msg.ExecutionID, wait)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{
				"execution_id": msg.ExecutionID,
				"exit_code":    settled.ExitCode.String(),
				"input_digest": hex.EncodeToString(settled.InputDigest),
			})
		},
	}

	cmd.Flags().String(FlagExecutionID, "", "Execution id (default: random)")
	cmd.Flags().Uint64(FlagTip, 0, "Tip paid to the prover, in lamports")
	cmd.Flags().Uint64(FlagExpiryBlocks, 1000, "Blocks until the request expires")
	cmd.Flags().StringArray(FlagInput, nil, "Input as type:hex (repeatable)")
	cmd.Flags().String(FlagInputHash, "", "Expected input digest, 32 bytes hex")
	cmd.Flags().Bool(FlagVerifyInputHash, false, "Reject proofs whose input digest differs from --input-hash")
	cmd.Flags().Bool(FlagForwardOutput, false, "Forward committed outputs to the callback")
	cmd.Flags().String(FlagCallbackProgram, "", "Callback program address")
	cmd.Flags().String(FlagCallbackPrefix, "", "Callback instruction prefix, hex")
	cmd.Flags().StringArray(FlagCallbackAccount, nil, "Extra callback account as address[:w] (repeatable)")
	cmd.Flags().String(FlagProverVersion, types.DefaultProverVersion.String(), "Prover version")
	cmd.Flags().Duration(FlagWait, 0, "Wait this long for the execution to settle")
	_ = cmd.MarkFlagRequired(FlagTip)
	return cmd
}

func executeFromFlags(cmd *cobra.Command, imageID string) (*types.ExecuteV1, error) {
	flags := cmd.Flags()
	executionID, _ := flags.GetString(FlagExecutionID)
	if executionID == "" {
		executionID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	tip, _ := flags.GetUint64(FlagTip)
	verify, _ := flags.GetBool(FlagVerifyInputHash)
	forward, _ := flags.GetBool(FlagForwardOutput)

	msg := &types.ExecuteV1{
		ExecutionID:     executionID,
		ImageID:         strings.ToLower(imageID),
		Tip:             tip,
		VerifyInputHash: verify,
		ForwardOutput:   forward,
	}

	rawInputs, _ := flags.GetStringArray(FlagInput)
	for _, raw := range rawInputs {
		in, err := parseInput(raw)
		if err != nil {
			return nil, err
		}
		msg.Inputs = append(msg.Inputs, in)
	}

	if raw, _ := flags.GetString(FlagInputHash); raw != "" {
		digest, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", FlagInputHash, err)
		}
		msg.InputHash = digest
	}

	version, _ := flags.GetString(FlagProverVersion)
	v, err := types.ParseProverVersion(version)
	if err != nil {
		return nil, err
	}
	msg.ProverVersion = v

	program, _ := flags.GetString(FlagCallbackProgram)
	if program == "" {
		return msg, nil
	}
	cb := &types.CallbackConfig{}
	if cb.ProgramID, err = types.ParseAddress(program); err != nil {
		return nil, err
	}
	if raw, _ := flags.GetString(FlagCallbackPrefix); raw != "" {
		if cb.InstructionPrefix, err = hex.DecodeString(raw); err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", FlagCallbackPrefix, err)
		}
	}
	rawAccounts, _ := flags.GetStringArray(FlagCallbackAccount)
	for _, raw := range rawAccounts {
		addr, writable := strings.CutSuffix(raw, ":w")
		a, err := types.ParseAddress(addr)
		if err != nil {
			return nil, err
		}
		cb.ExtraAccounts = append(cb.ExtraAccounts, types.CallbackAccount{Address: a, Writable: writable})
	}
	msg.Callback = cb
	return msg, nil
}

func parseInput(raw string) (types.Input, error) {
	typ, data, ok := strings.Cut(raw, ":")
	if !ok {
		return types.Input{}, fmt.Errorf("input %q must be type:hex", raw)
	}
	t, err := types.ParseInputType(typ)
	if err != nil {
		return types.Input{}, err
	}
	bz, err := hex.DecodeString(data)
	if err != nil {
		return types.Input{}, fmt.Errorf("input %q: %w", raw, err)
	}
	return types.Input{Type: t, Data: bz}, nil
}

// CmdClaim returns a CLI command handler for claiming an execution
func CmdClaim() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim [requester] [execution-id]",
		Short: "Claim an execution for proving",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signingKey(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			requester, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			commitment, _ := cmd.Flags().GetUint64(FlagBlockCommitment)

			claimer := types.AddressFromPubKey(key.PubKey())
			ix, err := client.ClaimInstruction(claimer, claimer, requester, &types.ClaimV1{
				ExecutionID:     args[1],
				BlockCommitment: commitment,
			})
			if err != nil {
				return err
			}
			res, err := c.SendTransaction(cmd.Context(), key, []types.Instruction{ix})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().Uint64(FlagBlockCommitment, 0, "Height by which the prover commits to deliver")
	return cmd
}

// CmdTransfer returns a CLI command handler for a lamport transfer
func CmdTransfer() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer [to] [lamports]",
		Short: "Transfer lamports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signingKey(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			to, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			lamports, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid lamports %q: %w", args[1], err)
			}
			from := types.AddressFromPubKey(key.PubKey())
			res, err := c.SendTransaction(cmd.Context(), key, []types.Instruction{types.NewSystemTransferInstruction(from, to, lamports)})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

// CmdAirdrop returns a CLI command handler for the devnet faucet
func CmdAirdrop() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop [lamports] [address]",
		Short: "Request devnet lamports; the address defaults to the key file's",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			lamports, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid lamports %q: %w", args[0], err)
			}
			var to types.Address
			if len(args) == 2 {
				if to, err = types.ParseAddress(args[1]); err != nil {
					return err
				}
			} else {
				key, err := signingKey(cmd)
				if err != nil {
					return err
				}
				to = types.AddressFromPubKey(key.PubKey())
			}
			if err := c.Airdrop(cmd.Context(), to, lamports); err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"address": to, "lamports": lamports})
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return err
}

