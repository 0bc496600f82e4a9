package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// GetQueryCmd returns the cli query commands for the channel program
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "query",
		Aliases:                    []string{"q"},
		Short:                      "Querying commands for the channel program",
		SuggestionsMinimumDistance: 2,
	}
	AddNodeFlag(cmd)

	cmd.AddCommand(
		CmdQueryAccount(),
		CmdQueryExecution(),
		CmdQueryPending(),
		CmdQueryTx(),
		CmdQueryBlockhash(),
		CmdQueryAddress(),
	)
	return cmd
}

func CmdQueryAccount() *cobra.Command {
	return &cobra.Command{
		Use:   "account [address]",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			addr, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			acct, err := c.GetAccount(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return printJSON(cmd, acct)
		},
	}
}

func CmdQueryExecution() *cobra.Command {
	return &cobra.Command{
		Use:   "execution [requester] [execution-id]",
		Short: "Show the state of an execution request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			requester, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			addr, _, err := types.ExecutionAddress(requester, args[1])
			if err != nil {
				return err
			}
			exec, err := c.GetExecution(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return printJSON(cmd, exec)
		},
	}
}

func CmdQueryPending() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List executions that can still settle, soonest expiry first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt(FlagLimit)
			resp, err := c.PendingExecutions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().Int(FlagLimit, 100, "Maximum entries")
	return cmd
}

func CmdQueryTx() *cobra.Command {
	return &cobra.Command{
		Use:   "tx [id]",
		Short: "Show the result of a recent transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			res, err := c.TxStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func CmdQueryBlockhash() *cobra.Command {
	return &cobra.Command{
		Use:   "blockhash",
		Short: "Show the latest blockhash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			hash, lastValid, err := c.LatestBlockhash(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"blockhash": hash, "last_valid_block_height": lastValid})
		},
	}
}

// CmdQueryAddress derives program addresses offline.
func CmdQueryAddress() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive program addresses",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "deployment [image-id]",
			Short: "Derive the deployment address of an image",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, bump, err := types.DeploymentAddress(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", addr, bump)
				return err
			},
		},
		&cobra.Command{
			Use:   "execution [requester] [execution-id]",
			Short: "Derive the execution address and its claim address",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				requester, err := types.ParseAddress(args[0])
				if err != nil {
					return err
				}
				exec, bump, err := types.ExecutionAddress(requester, args[1])
				if err != nil {
					return err
				}
				claim, claimBump, err := types.ExecutionClaimAddress(exec)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "execution %s %d\nclaim %s %d\n", exec, bump, claim, claimBump)
				return err
			},
		},
	)
	return cmd
}
