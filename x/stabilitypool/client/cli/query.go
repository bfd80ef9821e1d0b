package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"

	"github.com/openalpha/cdp-chain/x/stabilitypool/types"
)

// GetQueryCmd returns the cli query commands for the stability pool
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the stability pool",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryEntry(),
		CmdQueryPool(),
	)

	return cmd
}

// CmdQueryEntry returns the command to query a depositor's entry
func CmdQueryEntry() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry [depositor]",
		Short: "Query a depositor's stability pool entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			bz, _, err := clientCtx.QueryStore(types.GetEntryKey(args[0]), types.StoreKey)
			if err != nil {
				return err
			}
			if bz == nil {
				return fmt.Errorf("no entry for %s", args[0])
			}
			var entry types.Entry
			if err := json.Unmarshal(bz, &entry); err != nil {
				return err
			}
			return printJSON(cmd, entry)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryPool returns the command to query pool totals
func CmdQueryPool() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Query stability pool totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			bz, _, err := clientCtx.QueryStore(types.PoolStateKey, types.StoreKey)
			if err != nil {
				return err
			}
			state := types.NewPoolState()
			if bz != nil {
				if err := json.Unmarshal(bz, &state); err != nil {
					return err
				}
			}
			return printJSON(cmd, state)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(output))
	return nil
}
