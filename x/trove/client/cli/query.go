package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

// GetQueryCmd returns the cli query commands for the trove module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the trove module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryTrove(),
		CmdQueryTroves(),
		CmdQueryPriceFeed(),
		CmdQueryLiquidations(),
		CmdQueryParams(),
	)

	return cmd
}

// CmdQueryTrove returns the command to query a single trove
func CmdQueryTrove() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trove [owner]",
		Short: "Query a trove by owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			bz, _, err := clientCtx.QueryStore(types.GetTroveKey(args[0]), types.StoreKey)
			if err != nil {
				return err
			}
			if bz == nil {
				return fmt.Errorf("trove %s not found", args[0])
			}
			var trove types.Trove
			if err := json.Unmarshal(bz, &trove); err != nil {
				return err
			}
			return printJSON(cmd, trove)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryTroves returns the command to list all troves
func CmdQueryTroves() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "troves",
		Short: "List all open troves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			pairs, err := querySubspace(clientCtx, types.StoreKey, types.TroveKeyPrefix)
			if err != nil {
				return err
			}
			troves := make([]types.Trove, 0, len(pairs))
			for _, pair := range pairs {
				var trove types.Trove
				if err := json.Unmarshal(pair.Value, &trove); err != nil {
					continue
				}
				troves = append(troves, trove)
			}
			return printJSON(cmd, troves)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryPriceFeed returns the command to query a price feed
func CmdQueryPriceFeed() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price-feed [feed-id]",
		Short: "Query the latest reading of a price feed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			feedID := types.DefaultPriceFeedID
			if len(args) == 1 {
				feedID = args[0]
			}
			bz, _, err := clientCtx.QueryStore(types.GetPriceFeedKey(feedID), types.StoreKey)
			if err != nil {
				return err
			}
			if bz == nil {
				return fmt.Errorf("price feed %s not found", feedID)
			}
			var feed types.PriceFeed
			if err := json.Unmarshal(bz, &feed); err != nil {
				return err
			}
			return printJSON(cmd, feed)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryLiquidations returns the command to list liquidation records
func CmdQueryLiquidations() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidations",
		Short: "List executed liquidations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			pairs, err := querySubspace(clientCtx, types.StoreKey, types.LiquidationKeyPrefix)
			if err != nil {
				return err
			}
			liquidations := make([]types.Liquidation, 0, len(pairs))
			for _, pair := range pairs {
				var l types.Liquidation
				if err := json.Unmarshal(pair.Value, &l); err != nil {
					continue
				}
				liquidations = append(liquidations, l)
			}
			return printJSON(cmd, liquidations)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryParams returns the command to query module params
func CmdQueryParams() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Query the fee schedule and collateral policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			bz, _, err := clientCtx.QueryStore(types.ParamsKey, types.StoreKey)
			if err != nil {
				return err
			}
			params := types.DefaultParams()
			if bz != nil {
				if err := json.Unmarshal(bz, &params); err != nil {
					return err
				}
			}
			return printJSON(cmd, params)
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
