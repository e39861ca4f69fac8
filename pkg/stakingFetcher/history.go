package stakingFetcher

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/finthetix/sidecar/internal/metrics/metricsTypes"
	"github.com/finthetix/sidecar/pkg/contractCaller"
	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

const defaultBlockChunkSize = uint64(5000)

// ReadableTimestampLayout renders as M/D/YYYY, HH:MM on a 24 hour clock.
const ReadableTimestampLayout = "1/2/2006, 15:04"

type HistoryRequest struct {
	Address string
	// FromBlock defaults to the configured lookback from ToBlock
	FromBlock *uint64
	// ToBlock defaults to, and is clamped to, the latest block
	ToBlock  *uint64
	Progress HistoryProgressFunc
}

// resolveRange clamps toBlock to the latest block and bounds the span by the configured max range.
func (f *StakingFetcher) resolveRange(ctx context.Context, req *HistoryRequest) (uint64, uint64, error) {
	latest, err := f.ContractCaller.GetLatestBlockNumber(ctx)
	if err != nil {
		return 0, 0, err
	}

	toBlock := latest
	if req.ToBlock != nil && *req.ToBlock < latest {
		toBlock = *req.ToBlock
	}

	var fromBlock uint64
	if req.FromBlock != nil {
		fromBlock = *req.FromBlock
	} else if lookback := f.Config.HistoryConfig.DefaultLookbackBlocks; lookback > 0 && toBlock > lookback {
		fromBlock = toBlock - lookback
	}

	if fromBlock > toBlock {
		return 0, 0, stakingErrors.Newf(stakingErrors.ErrorKind_InvalidInput, stakingErrors.Op_ParseInput,
			"fromBlock %d is after toBlock %d (latest block is %d)", fromBlock, toBlock, latest)
	}
	if maxRange := f.Config.HistoryConfig.MaxRangeBlocks; maxRange > 0 && toBlock-fromBlock >= maxRange {
		return 0, 0, stakingErrors.Newf(stakingErrors.ErrorKind_InvalidInput, stakingErrors.Op_ParseInput,
			"block range %d to %d spans more than %d blocks", fromBlock, toBlock, maxRange)
	}
	return fromBlock, toBlock, nil
}

func (f *StakingFetcher) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	if v, ok := f.blockTimestamps.Get(blockNumber); ok {
		return v.(uint64), nil
	}
	ts, err := f.ContractCaller.GetBlockTimestamp(ctx, blockNumber)
	if err != nil {
		return 0, err
	}
	f.blockTimestamps.Add(blockNumber, ts)
	return ts, nil
}

// SortStakingEvents orders events the way they executed: by block, then transaction, then log.
func SortStakingEvents(events []*contractCaller.StakingEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		if a.TransactionIndex != b.TransactionIndex {
			return a.TransactionIndex < b.TransactionIndex
		}
		return a.LogIndex < b.LogIndex
	})
}

// GetHistory scans the staking contract logs of a staker in block chunks and merges
// them into a graph of staked amount and reward balance over time.
func (f *StakingFetcher) GetHistory(ctx context.Context, req *HistoryRequest) (*History, error) {
	start := time.Now()
	defer func() {
		f.Metrics.Timing(metricsTypes.Metric_Timing_FetchHistory, time.Since(start), nil)
	}()

	user, err := ParseStakerAddress(req.Address)
	if err != nil {
		return nil, err
	}
	fromBlock, toBlock, err := f.resolveRange(ctx, req)
	if err != nil {
		return nil, err
	}
	metadata, err := f.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}

	chunkSize := f.Config.HistoryConfig.BlockChunkSize
	if chunkSize == 0 {
		chunkSize = defaultBlockChunkSize
	}
	totalBlocks := toBlock - fromBlock + 1

	events := make([]*contractCaller.StakingEvent, 0)
	for chunkStart := fromBlock; ; chunkStart += chunkSize {
		chunkEnd := toBlock
		if toBlock-chunkStart >= chunkSize {
			chunkEnd = chunkStart + chunkSize - 1
		}
		f.Logger.Sugar().Debugw("Fetching staking events",
			zap.String("user", user.Hex()),
			zap.Uint64("fromBlock", chunkStart),
			zap.Uint64("toBlock", chunkEnd),
		)
		chunk, err := f.ContractCaller.GetStakingEvents(ctx, user, chunkStart, chunkEnd)
		if err != nil {
			f.recordChainReadFailure(stakingErrors.Op_FetchHistory, err)
			f.Logger.Sugar().Errorw("Failed to fetch staking events",
				zap.Uint64("fromBlock", chunkStart),
				zap.Uint64("toBlock", chunkEnd),
				zap.Error(err),
			)
			return nil, err
		}
		events = append(events, chunk...)
		if req.Progress != nil {
			req.Progress(chunkEnd-fromBlock+1, totalBlocks)
		}
		if chunkEnd == toBlock {
			break
		}
	}
	SortStakingEvents(events)

	entries := make([]*HistoryEntry, 0, len(events))
	for _, event := range events {
		ts, err := f.blockTimestamp(ctx, event.BlockNumber)
		if err != nil {
			f.recordChainReadFailure(stakingErrors.Op_FetchHistory, err)
			return nil, errors.Wrapf(err, "failed to get timestamp of block %d", event.BlockNumber)
		}
		decimals := metadata.RewardToken.Decimals
		if event.Name == contractCaller.Event_StakeBalChanged {
			decimals = metadata.StakingToken.Decimals
		}
		entries = append(entries, &HistoryEntry{
			Name:             event.Name,
			BlockNumber:      event.BlockNumber,
			TransactionIndex: event.TransactionIndex,
			LogIndex:         event.LogIndex,
			TransactionHash:  event.TransactionHash,
			TimestampMs:      int64(ts) * 1000,
			Value:            f.amount(event.Value, decimals),
		})
	}

	return &History{
		Address:   strings.ToLower(user.Hex()),
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Events:    entries,
		Graph:     BuildGraph(entries),
	}, nil
}

// BuildGraph emits one point per reward update. The staked amount is taken from a stake
// change at the same timestamp when there is one, otherwise carried over from the
// previous point, starting from zero. Entries must already be in execution order.
func BuildGraph(entries []*HistoryEntry) []*GraphPoint {
	stakesByTimestamp := orderedmap.New[int64, []*HistoryEntry]()
	rewards := make([]*HistoryEntry, 0)
	for _, e := range entries {
		switch e.Name {
		case contractCaller.Event_StakeBalChanged:
			queued, _ := stakesByTimestamp.Get(e.TimestampMs)
			stakesByTimestamp.Set(e.TimestampMs, append(queued, e))
		case contractCaller.Event_UserRewardUpdated:
			rewards = append(rewards, e)
		}
	}
	sort.SliceStable(rewards, func(i, j int) bool {
		return rewards[i].TimestampMs < rewards[j].TimestampMs
	})

	points := make([]*GraphPoint, 0, len(rewards))
	staked := Amount{}
	staked.Raw.Value = "0"
	staked.Readable = "0"
	for _, reward := range rewards {
		if queued, ok := stakesByTimestamp.Get(reward.TimestampMs); ok && len(queued) > 0 {
			staked = queued[0].Value
			stakesByTimestamp.Set(reward.TimestampMs, queued[1:])
		}
		points = append(points, &GraphPoint{
			TimestampMs:       reward.TimestampMs,
			ReadableTimestamp: time.UnixMilli(reward.TimestampMs).UTC().Format(ReadableTimestampLayout),
			BlockNumber:       reward.BlockNumber,
			StakedAmt:         staked.Raw.Value,
			RewardBal:         reward.Value.Raw.Value,
			ReadableStakedAmt: staked.Readable,
			ReadableRewardBal: reward.Value.Readable,
		})
	}
	return points
}
