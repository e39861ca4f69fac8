package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/finthetix/sidecar/pkg/stakingFetcher"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pool totals and cooldown",
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(cmd, func(ctx context.Context, f *stakingFetcher.StakingFetcher) error {
			format, err := outputFormat(cmd, outputTable, outputJson)
			if err != nil {
				return err
			}

			status, err := f.GetStatus(ctx)
			if err != nil {
				return err
			}
			if format == outputJson {
				return printJSON(os.Stdout, status)
			}

			cooldownAt := "-"
			if status.Cooldown.Enabled {
				cooldownAt = time.UnixMilli(status.Cooldown.CooldownAtMs).UTC().Format(time.RFC3339)
			}
			printTable(os.Stdout, []string{"Field", "Value"}, [][]string{
				{"Total staked", status.TotalStakedAmt},
				{"Last reward update", time.Unix(int64(status.LastUpdatedRewardAt), 0).UTC().Format(time.RFC3339)},
				{"Cooldown constant", status.CooldownConstant},
				{"Cooldown ends", cooldownAt},
				{"Cooldown", formatCooldown(status.Cooldown)},
			})
			return nil
		})
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Show the staking and reward token metadata",
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(cmd, func(ctx context.Context, f *stakingFetcher.StakingFetcher) error {
			format, err := outputFormat(cmd, outputTable, outputJson)
			if err != nil {
				return err
			}

			metadata, err := f.GetMetadata(ctx)
			if err != nil {
				return err
			}
			if format == outputJson {
				return printJSON(os.Stdout, metadata)
			}

			rows := make([][]string, 0, 2)
			for _, t := range []struct {
				name  string
				token stakingFetcher.TokenInfo
			}{
				{"staking", metadata.StakingToken},
				{"reward", metadata.RewardToken},
			} {
				rows = append(rows, []string{t.name, t.token.Address, t.token.Symbol, fmt.Sprintf("%d", t.token.Decimals)})
			}
			printTable(os.Stdout, []string{"Token", "Address", "Symbol", "Decimals"}, rows)
			fmt.Printf("Rewards per second: %s\nFormula: %s\n",
				formatAmount(metadata.TotalRewardsPerSecond, metadata.RewardToken.Symbol),
				metadata.FormulaVariant,
			)
			return nil
		})
	},
}
