package cmd

import (
	"bytes"
	"testing"

	"github.com/finthetix/sidecar/pkg/stakingFetcher"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func amount(raw, readable string) stakingFetcher.Amount {
	a := stakingFetcher.Amount{Readable: readable}
	a.Raw.Value = raw
	return a
}

func Test_FormatAmount(t *testing.T) {
	assert.Equal(t, "50.04K FIN (50042)", formatAmount(amount("50042", "50.04K"), "FIN"))
	assert.Equal(t, "0 FIN", formatAmount(amount("0", "0"), "FIN"))
}

func Test_FormatCooldown(t *testing.T) {
	assert.Equal(t, "disabled", formatCooldown(stakingFetcher.Cooldown{}))
	assert.Equal(t, "ready", formatCooldown(stakingFetcher.Cooldown{Enabled: true}))
	assert.Equal(t, "05 seconds", formatCooldown(stakingFetcher.Cooldown{Enabled: true, IsCoolingDown: true, TimeLeft: "05 seconds"}))
}

func Test_RewardsRows(t *testing.T) {
	metadata := &stakingFetcher.Metadata{
		StakingToken: stakingFetcher.TokenInfo{Symbol: "FIN"},
		RewardToken:  stakingFetcher.TokenInfo{Symbol: "RWD"},
	}
	out := &rewardsOutput{UserRewards: &stakingFetcher.UserRewards{
		Address:        "0xabc",
		BlockNumber:    16,
		BlockTimestamp: 1100,
		TotalReward:    amount("50042", "50.04K"),
	}}

	t.Run("Without a preview", func(t *testing.T) {
		rows := rewardsRows(out, metadata)
		assert.Equal(t, 9, len(rows))
		assert.Equal(t, []string{"Block", "16 (1970-01-01T00:18:20Z)"}, rows[1])
		assert.Equal(t, []string{"Total reward", "50.04K RWD (50042)"}, rows[6])
	})
	t.Run("With a preview", func(t *testing.T) {
		out.Preview = &stakingFetcher.StakePreview{Percentage: 50, OfPendingRewards: amount("25021", "25.02K")}
		rows := rewardsRows(out, metadata)
		assert.Equal(t, 12, len(rows))
		assert.Equal(t, []string{"50% of rewards", "25.02K RWD (25021)"}, rows[11])
	})
}

func Test_HistoryRequest(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{}
		c.Flags().Uint64(fromBlockFlag, 0, "")
		c.Flags().Uint64(toBlockFlag, 0, "")
		return c
	}

	t.Run("Unset blocks are left to the fetcher", func(t *testing.T) {
		req, err := historyRequest(newCmd(), "0xabc")
		assert.Nil(t, err)
		assert.Nil(t, req.FromBlock)
		assert.Nil(t, req.ToBlock)
	})
	t.Run("Explicit zero is kept", func(t *testing.T) {
		c := newCmd()
		assert.Nil(t, c.Flags().Set(fromBlockFlag, "0"))
		assert.Nil(t, c.Flags().Set(toBlockFlag, "42"))

		req, err := historyRequest(c, "0xabc")
		assert.Nil(t, err)
		assert.Equal(t, uint64(0), *req.FromBlock)
		assert.Equal(t, uint64(42), *req.ToBlock)
	})
}

func Test_OutputFormat(t *testing.T) {
	c := &cobra.Command{}
	c.Flags().String(outputFlag, outputTable, "")

	format, err := outputFormat(c, outputTable, outputJson)
	assert.Nil(t, err)
	assert.Equal(t, outputTable, format)

	assert.Nil(t, c.Flags().Set(outputFlag, "xml"))
	_, err = outputFormat(c, outputTable, outputJson)
	assert.NotNil(t, err)
}

func Test_GraphCsv(t *testing.T) {
	var buf bytes.Buffer
	err := gocsv.Marshal([]*stakingFetcher.GraphPoint{{
		TimestampMs:       1700000000000,
		ReadableTimestamp: "11/14/2023, 22:13",
		BlockNumber:       3,
		StakedAmt:         "1000",
		RewardBal:         "0",
		ReadableStakedAmt: "1K",
		ReadableRewardBal: "0",
	}}, &buf)
	assert.Nil(t, err)
	assert.Equal(t,
		"timestamp_ms,timestamp,block_number,staked_amt,reward_bal,readable_staked_amt,readable_reward_bal\n"+
			"1700000000000,\"11/14/2023, 22:13\",3,1000,0,1K,0\n",
		buf.String(),
	)
}

func Test_EventRows(t *testing.T) {
	rows := eventRows([]*stakingFetcher.HistoryEntry{{
		Name:        "UserRewardUpdated",
		BlockNumber: 12,
		LogIndex:    1,
		TimestampMs: 1700000120000,
		Value:       amount("100", "100"),
	}})
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, uint64(12), rows[0].BlockNumber)
	assert.Equal(t, "100", rows[0].Value)
}
