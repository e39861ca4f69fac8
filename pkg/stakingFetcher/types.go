package stakingFetcher

import (
	"github.com/finthetix/sidecar/internal/types/numbers"
)

type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type Metadata struct {
	StakingToken          TokenInfo `json:"stakingToken"`
	RewardToken           TokenInfo `json:"rewardToken"`
	TotalRewardsPerSecond Amount    `json:"totalRewardsPerSecond"`
	FormulaVariant        string    `json:"formulaVariant"`
}

// Amount is a raw token amount along with its display rendering.
type Amount struct {
	Raw      numbers.TokenCount `json:"raw"`
	Readable string             `json:"readable"`
}

type AccrualBreakdown struct {
	AlphaAtLastInteraction string `json:"alphaAtLastInteraction"`
	PublishedAlphaNow      string `json:"publishedAlphaNow"`
	AccruedAlpha           string `json:"accruedAlpha"`
	AlphaNow               string `json:"alphaNow"`
	PublishedReward        Amount `json:"publishedReward"`
	AccruedReward          Amount `json:"accruedReward"`
	FormulaVariant         string `json:"formulaVariant"`
}

type Cooldown struct {
	Enabled         bool   `json:"enabled"`
	CooldownAtMs    int64  `json:"cooldownAtMs"`
	IsCoolingDown   bool   `json:"isCoolingDown"`
	TimeLeftSeconds uint64 `json:"timeLeftSeconds"`
	TimeLeft        string `json:"timeLeft"`
}

type UserRewards struct {
	Address        string           `json:"address"`
	BlockNumber    uint64           `json:"blockNumber"`
	BlockTimestamp uint64           `json:"blockTimestamp"`
	StakedAmount   Amount           `json:"stakedAmount"`
	TotalReward    Amount           `json:"totalReward"`
	WalletBalance  Amount           `json:"walletBalance"`
	Accrual        AccrualBreakdown `json:"accrual"`
	Cooldown       Cooldown         `json:"cooldown"`
}

type Status struct {
	TotalStakedAmt      string   `json:"totalStakedAmt"`
	LastUpdatedRewardAt uint64   `json:"lastUpdatedRewardAt"`
	CooldownConstant    string   `json:"cooldownConstant"`
	Cooldown            Cooldown `json:"cooldown"`
}

type StakePreview struct {
	Address          string `json:"address"`
	Percentage       uint64 `json:"percentage"`
	OfWalletBalance  Amount `json:"ofWalletBalance"`
	OfStakedAmount   Amount `json:"ofStakedAmount"`
	OfPendingRewards Amount `json:"ofPendingRewards"`
}

type HistoryEntry struct {
	Name             string `json:"name"`
	BlockNumber      uint64 `json:"blockNumber"`
	TransactionIndex uint64 `json:"transactionIndex"`
	LogIndex         uint64 `json:"logIndex"`
	TransactionHash  string `json:"transactionHash"`
	TimestampMs      int64  `json:"timestampMs"`
	Value            Amount `json:"value"`
}

// GraphPoint is one reward event with the stake in effect at that time.
type GraphPoint struct {
	TimestampMs       int64  `json:"timestampMs" csv:"timestamp_ms"`
	ReadableTimestamp string `json:"readableTimestamp" csv:"timestamp"`
	BlockNumber       uint64 `json:"blockNumber" csv:"block_number"`
	StakedAmt         string `json:"stakedAmt" csv:"staked_amt"`
	RewardBal         string `json:"rewardBal" csv:"reward_bal"`
	ReadableStakedAmt string `json:"readableStakedAmt" csv:"readable_staked_amt"`
	ReadableRewardBal string `json:"readableRewardBal" csv:"readable_reward_bal"`
}

type History struct {
	Address   string          `json:"address"`
	FromBlock uint64          `json:"fromBlock"`
	ToBlock   uint64          `json:"toBlock"`
	Events    []*HistoryEntry `json:"events"`
	Graph     []*GraphPoint   `json:"graph"`
}

// HistoryProgressFunc is called after each block chunk is scanned.
type HistoryProgressFunc func(scannedBlocks uint64, totalBlocks uint64)
