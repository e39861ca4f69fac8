package stakingFetcher

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/finthetix/sidecar/internal/config"
	"github.com/finthetix/sidecar/internal/metrics"
	"github.com/finthetix/sidecar/internal/metrics/metricsTypes"
	"github.com/finthetix/sidecar/internal/types/numbers"
	"github.com/finthetix/sidecar/pkg/accrual"
	"github.com/finthetix/sidecar/pkg/contractCaller"
	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"github.com/finthetix/sidecar/pkg/storage"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultBlockTimestampCacheSize = 1024

// StakingFetcher reads everything a staker needs from chain and runs it through the
// accrual and cooldown calculators. Nothing is cached between requests except token
// metadata and block timestamps, which never change once observed.
type StakingFetcher struct {
	ContractCaller contractCaller.IContractCaller
	Store          storage.SnapshotStore
	Metrics        *metrics.MetricsSink
	Config         *config.Config
	Logger         *zap.Logger

	variant accrual.FormulaVariant
	now     func() time.Time

	metadataLock sync.Mutex
	metadata     *Metadata
	tokens       *contractCaller.TokenAddresses

	blockTimestamps *lru.Cache
}

// NewStakingFetcher builds a fetcher. store may be nil, in which case snapshots are not recorded.
func NewStakingFetcher(
	cc contractCaller.IContractCaller,
	store storage.SnapshotStore,
	ms *metrics.MetricsSink,
	cfg *config.Config,
	l *zap.Logger,
) (*StakingFetcher, error) {
	size := cfg.HistoryConfig.BlockTimestampCacheSize
	if size <= 0 {
		size = defaultBlockTimestampCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create block timestamp cache")
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	variant, err := accrual.ParseFormulaVariant(cfg.RewardsConfig.FormulaVariant)
	if err != nil {
		return nil, err
	}

	return &StakingFetcher{
		ContractCaller:  cc,
		Store:           store,
		Metrics:         ms,
		Config:          cfg,
		Logger:          l,
		variant:         variant,
		now:             time.Now,
		blockTimestamps: cache,
	}, nil
}

func (f *StakingFetcher) FormulaVariant() accrual.FormulaVariant {
	return f.variant
}

// ParseStakerAddress accepts a 0x prefixed, 20 byte hex address in any case.
func ParseStakerAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) || !strings.HasPrefix(strings.ToLower(address), "0x") {
		return common.Address{}, stakingErrors.Newf(stakingErrors.ErrorKind_InvalidInput, stakingErrors.Op_ParseInput, "invalid address '%s'", address)
	}
	return common.HexToAddress(address), nil
}

func (f *StakingFetcher) recordChainReadFailure(op stakingErrors.Op, err error) {
	if stakingErrors.KindOf(err).IsChainRead() {
		f.Metrics.Incr(metricsTypes.Metric_Incr_ChainReadFailure, []metricsTypes.MetricsLabel{
			{Name: "op", Value: string(op)},
		}, 1)
	}
}

// FetchAccrualInputs reads the full calculator input set at one block. Either every
// value is returned or an error is; partial inputs never reach the calculator.
func (f *StakingFetcher) FetchAccrualInputs(ctx context.Context, user common.Address) (*accrual.Inputs, error) {
	start := time.Now()
	inputs, err := f.ContractCaller.GetAccrualInputs(ctx, user)
	f.Metrics.Timing(metricsTypes.Metric_Timing_FetchAccrualInputs, time.Since(start), nil)
	if err != nil {
		f.recordChainReadFailure(stakingErrors.Op_FetchUserData, err)
		f.Logger.Sugar().Errorw("Failed to fetch accrual inputs",
			zap.String("user", user.Hex()),
			zap.Error(err),
		)
		return nil, err
	}

	f.Metrics.Gauge(metricsTypes.Metric_Gauge_CurrentBlockHeight, float64(inputs.Snapshot.CurrentBlockNumber), nil)
	totalStaked, _ := new(big.Float).SetInt(inputs.Global.TotalStakedAmt).Float64()
	f.Metrics.Gauge(metricsTypes.Metric_Gauge_TotalStakedAmt, totalStaked, nil)
	return inputs, nil
}

func (f *StakingFetcher) amount(value *big.Int, decimals uint8) Amount {
	raw := numbers.NewTokenCount(value, decimals)
	readable, err := numbers.ReadableTokenCount(raw)
	if err != nil {
		f.Logger.Sugar().Debugw("Failed to render token count", zap.String("value", raw.Value), zap.Error(err))
		readable = raw.Value
	}
	return Amount{Raw: raw, Readable: readable}
}

func (f *StakingFetcher) cooldown(window *accrual.CooldownWindow, now time.Time) Cooldown {
	timeLeft := window.TimeLeft(now)
	text, err := accrual.FormatTimeToCooldown(timeLeft)
	if err != nil {
		text = ""
	}
	return Cooldown{
		Enabled:         window.Enabled,
		CooldownAtMs:    window.CooldownAtMs(),
		IsCoolingDown:   window.IsCoolingDown(now),
		TimeLeftSeconds: uint64(timeLeft / time.Second),
		TimeLeft:        text,
	}
}

// GetUserRewards returns the live reward balance of a staker, rendered with the
// token decimals, along with the calculator breakdown and the pool cooldown.
func (f *StakingFetcher) GetUserRewards(ctx context.Context, address string) (*UserRewards, error) {
	user, err := ParseStakerAddress(address)
	if err != nil {
		return nil, err
	}

	metadata, err := f.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}

	var (
		wg         sync.WaitGroup
		inputs     *accrual.Inputs
		inputsErr  error
		balance    *big.Int
		balanceErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		inputs, inputsErr = f.FetchAccrualInputs(ctx, user)
	}()
	go func() {
		defer wg.Done()
		balance, balanceErr = f.ContractCaller.GetTokenBalance(ctx, common.HexToAddress(metadata.StakingToken.Address), user)
	}()
	wg.Wait()

	if inputsErr != nil {
		return nil, inputsErr
	}
	if balanceErr != nil {
		f.recordChainReadFailure(stakingErrors.Op_FetchUserData, balanceErr)
		f.Logger.Sugar().Errorw("Failed to fetch staking token balance",
			zap.String("user", user.Hex()),
			zap.Error(balanceErr),
		)
		return nil, balanceErr
	}

	result := accrual.ComputeAccruedReward(inputs, f.variant)
	window := accrual.ComputeCooldown(inputs.Global)
	f.Metrics.Incr(metricsTypes.Metric_Incr_RewardsComputed, []metricsTypes.MetricsLabel{
		{Name: "variant", Value: f.variant.String()},
	}, 1)

	stakingDecimals := metadata.StakingToken.Decimals
	rewardDecimals := metadata.RewardToken.Decimals

	rewards := &UserRewards{
		Address:        strings.ToLower(user.Hex()),
		BlockNumber:    inputs.Snapshot.CurrentBlockNumber,
		BlockTimestamp: inputs.Snapshot.CurrentBlockTimestamp,
		StakedAmount:   f.amount(inputs.Position.StakedAmt, stakingDecimals),
		TotalReward:    f.amount(result.TotalReward, rewardDecimals),
		WalletBalance:  f.amount(balance, stakingDecimals),
		Accrual: AccrualBreakdown{
			AlphaAtLastInteraction: inputs.Reward.AlphaAtLastInteraction.String(),
			PublishedAlphaNow:      inputs.Global.AlphaNow.String(),
			AccruedAlpha:           result.AccruedAlpha.String(),
			AlphaNow:               result.AlphaNow.String(),
			PublishedReward:        f.amount(inputs.Reward.PublishedReward, rewardDecimals),
			AccruedReward:          f.amount(result.AccruedReward, rewardDecimals),
			FormulaVariant:         result.Variant.String(),
		},
		Cooldown: f.cooldown(window, f.now()),
	}

	f.recordSnapshot(inputs, result, rewards.Address)
	return rewards, nil
}

// recordSnapshot is best effort; the reward result never depends on storage.
func (f *StakingFetcher) recordSnapshot(inputs *accrual.Inputs, result *accrual.AccrualResult, address string) {
	if f.Store == nil {
		return
	}
	_, err := f.Store.RecordRewardSnapshot(&storage.RewardSnapshot{
		StakerAddress:   address,
		BlockNumber:     inputs.Snapshot.CurrentBlockNumber,
		BlockTime:       time.Unix(int64(inputs.Snapshot.CurrentBlockTimestamp), 0).UTC(),
		StakedAmt:       inputs.Position.StakedAmt.String(),
		PublishedReward: inputs.Reward.PublishedReward.String(),
		AccruedReward:   result.AccruedReward.String(),
		TotalReward:     result.TotalReward.String(),
		FormulaVariant:  result.Variant.String(),
	})
	if err != nil {
		f.Metrics.Incr(metricsTypes.Metric_Incr_SnapshotWriteFailed, nil, 1)
		f.Logger.Sugar().Warnw("Failed to record reward snapshot",
			zap.String("user", address),
			zap.Error(stakingErrors.New(stakingErrors.ErrorKind_Storage, stakingErrors.Op_RecordSnapshot, err)),
		)
	}
}

// ListSnapshots returns cached snapshots for a staker, newest first.
func (f *StakingFetcher) ListSnapshots(address string, limit int) ([]*storage.RewardSnapshot, error) {
	user, err := ParseStakerAddress(address)
	if err != nil {
		return nil, err
	}
	if f.Store == nil {
		return []*storage.RewardSnapshot{}, nil
	}
	snapshots, err := f.Store.ListRewardSnapshots(strings.ToLower(user.Hex()), limit)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_Storage, stakingErrors.Op_ListSnapshots, err)
	}
	return snapshots, nil
}

// GetStatus returns the pool cooldown as seen at the latest block.
func (f *StakingFetcher) GetStatus(ctx context.Context) (*Status, error) {
	global, err := f.ContractCaller.GetPoolState(ctx)
	if err != nil {
		f.recordChainReadFailure(stakingErrors.Op_FetchStatus, err)
		f.Logger.Sugar().Errorw("Failed to fetch pool state", zap.Error(err))
		return nil, err
	}
	window := accrual.ComputeCooldown(*global)

	return &Status{
		TotalStakedAmt:      global.TotalStakedAmt.String(),
		LastUpdatedRewardAt: global.LastUpdatedRewardAt,
		CooldownConstant:    global.CooldownConstant.String(),
		Cooldown:            f.cooldown(window, f.now()),
	}, nil
}

func (f *StakingFetcher) tokenAddresses(ctx context.Context) (*contractCaller.TokenAddresses, error) {
	if f.tokens != nil {
		return f.tokens, nil
	}
	staking := f.Config.ContractsConfig.StakingTokenAddress
	reward := f.Config.ContractsConfig.RewardTokenAddress

	tokens := &contractCaller.TokenAddresses{
		StakingToken: common.HexToAddress(staking),
		RewardToken:  common.HexToAddress(reward),
	}
	if staking == "" || reward == "" {
		discovered, err := f.ContractCaller.GetTokenAddresses(ctx)
		if err != nil {
			return nil, err
		}
		if staking == "" {
			tokens.StakingToken = discovered.StakingToken
		}
		if reward == "" {
			tokens.RewardToken = discovered.RewardToken
		}
	}
	f.tokens = tokens
	return tokens, nil
}

// GetMetadata returns token metadata and the reward rate. The result is memoized after
// the first success since none of it can change for a deployed contract.
func (f *StakingFetcher) GetMetadata(ctx context.Context) (*Metadata, error) {
	f.metadataLock.Lock()
	defer f.metadataLock.Unlock()

	if f.metadata != nil {
		return f.metadata, nil
	}

	metadata, err := f.fetchMetadata(ctx)
	if err != nil {
		f.recordChainReadFailure(stakingErrors.Op_FetchMetadata, err)
		f.Logger.Sugar().Errorw("Failed to fetch token metadata", zap.Error(err))
		return nil, err
	}
	f.metadata = metadata
	return metadata, nil
}

func (f *StakingFetcher) fetchMetadata(ctx context.Context) (*Metadata, error) {
	tokens, err := f.tokenAddresses(ctx)
	if err != nil {
		return nil, err
	}
	stakingToken, err := f.ContractCaller.GetTokenMetadata(ctx, tokens.StakingToken)
	if err != nil {
		return nil, err
	}
	rewardToken, err := f.ContractCaller.GetTokenMetadata(ctx, tokens.RewardToken)
	if err != nil {
		return nil, err
	}
	global, err := f.ContractCaller.GetPoolState(ctx)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.KindOf(err), stakingErrors.Op_FetchMetadata, err)
	}

	return &Metadata{
		StakingToken: TokenInfo{
			Address:  strings.ToLower(stakingToken.Address.Hex()),
			Symbol:   stakingToken.Symbol,
			Decimals: stakingToken.Decimals,
		},
		RewardToken: TokenInfo{
			Address:  strings.ToLower(rewardToken.Address.Hex()),
			Symbol:   rewardToken.Symbol,
			Decimals: rewardToken.Decimals,
		},
		TotalRewardsPerSecond: f.amount(global.TotalRewardsPerSec, rewardToken.Decimals),
		FormulaVariant:        f.variant.String(),
	}, nil
}

// PreviewStakeAmount returns percentage of the staker's wallet balance, staked amount and
// pending rewards, as used for the stake, unstake and withdraw amount sliders.
func (f *StakingFetcher) PreviewStakeAmount(ctx context.Context, address string, percentage uint64) (*StakePreview, error) {
	if percentage > 100 {
		return nil, stakingErrors.Newf(stakingErrors.ErrorKind_InvalidInput, stakingErrors.Op_ParseInput, "invalid percentage %d: must be between 0 and 100", percentage)
	}
	rewards, err := f.GetUserRewards(ctx, address)
	if err != nil {
		return nil, err
	}
	return f.PreviewFromRewards(rewards, percentage)
}

// PreviewFromRewards applies percentage to rewards that were already fetched.
func (f *StakingFetcher) PreviewFromRewards(rewards *UserRewards, percentage uint64) (*StakePreview, error) {
	if percentage > 100 {
		return nil, stakingErrors.Newf(stakingErrors.ErrorKind_InvalidInput, stakingErrors.Op_ParseInput, "invalid percentage %d: must be between 0 and 100", percentage)
	}
	preview := &StakePreview{
		Address:    rewards.Address,
		Percentage: percentage,
	}
	for _, p := range []struct {
		from *Amount
		to   *Amount
	}{
		{&rewards.WalletBalance, &preview.OfWalletBalance},
		{&rewards.StakedAmount, &preview.OfStakedAmount},
		{&rewards.TotalReward, &preview.OfPendingRewards},
	} {
		raw, err := numbers.PercentageOfTokenCount(p.from.Raw, percentage)
		if err != nil {
			return nil, stakingErrors.New(stakingErrors.ErrorKind_Internal, stakingErrors.Op_PreviewStakeAmt, err)
		}
		value, _ := new(big.Int).SetString(raw.Value, 10)
		*p.to = f.amount(value, raw.Decimals)
	}
	return preview, nil
}
