package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/finthetix/sidecar/pkg/stakingFetcher"
	"github.com/spf13/cobra"
)

type rewardsOutput struct {
	*stakingFetcher.UserRewards
	Preview *stakingFetcher.StakePreview `json:"preview,omitempty"`
}

var rewardsCmd = &cobra.Command{
	Use:   "rewards <address>",
	Short: "Compute the live reward balance of a staker",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(cmd, func(ctx context.Context, f *stakingFetcher.StakingFetcher) error {
			format, err := outputFormat(cmd, outputTable, outputJson)
			if err != nil {
				return err
			}

			rewards, err := f.GetUserRewards(ctx, args[0])
			if err != nil {
				return err
			}
			out := &rewardsOutput{UserRewards: rewards}

			if cmd.Flags().Changed(percentageFlag) {
				percentage, err := cmd.Flags().GetUint64(percentageFlag)
				if err != nil {
					return err
				}
				if out.Preview, err = f.PreviewFromRewards(rewards, percentage); err != nil {
					return err
				}
			}

			if format == outputJson {
				return printJSON(os.Stdout, out)
			}
			metadata, err := f.GetMetadata(ctx)
			if err != nil {
				return err
			}
			printTable(os.Stdout, []string{"Field", "Value"}, rewardsRows(out, metadata))
			return nil
		})
	},
}

func rewardsRows(out *rewardsOutput, metadata *stakingFetcher.Metadata) [][]string {
	stakingSymbol := metadata.StakingToken.Symbol
	rewardSymbol := metadata.RewardToken.Symbol

	rows := [][]string{
		{"Address", out.Address},
		{"Block", fmt.Sprintf("%d (%s)", out.BlockNumber, time.Unix(int64(out.BlockTimestamp), 0).UTC().Format(time.RFC3339))},
		{"Staked", formatAmount(out.StakedAmount, stakingSymbol)},
		{"Wallet balance", formatAmount(out.WalletBalance, stakingSymbol)},
		{"Published reward", formatAmount(out.Accrual.PublishedReward, rewardSymbol)},
		{"Accrued reward", formatAmount(out.Accrual.AccruedReward, rewardSymbol)},
		{"Total reward", formatAmount(out.TotalReward, rewardSymbol)},
		{"Formula", out.Accrual.FormulaVariant},
		{"Cooldown", formatCooldown(out.Cooldown)},
	}
	if p := out.Preview; p != nil {
		prefix := fmt.Sprintf("%d%% of ", p.Percentage)
		rows = append(rows,
			[]string{prefix + "wallet balance", formatAmount(p.OfWalletBalance, stakingSymbol)},
			[]string{prefix + "staked", formatAmount(p.OfStakedAmount, stakingSymbol)},
			[]string{prefix + "rewards", formatAmount(p.OfPendingRewards, rewardSymbol)},
		)
	}
	return rows
}
