package stakingFetcher

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/finthetix/sidecar/internal/tests"
	"github.com/finthetix/sidecar/pkg/contractCaller"
	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"github.com/stretchr/testify/assert"
)

func stakeEvent(block, txIndex uint64, value int64) *contractCaller.StakingEvent {
	return &contractCaller.StakingEvent{
		Name:             contractCaller.Event_StakeBalChanged,
		User:             common.HexToAddress(user),
		Value:            big.NewInt(value),
		BlockNumber:      block,
		TransactionIndex: txIndex,
	}
}

func rewardEvent(block, txIndex uint64, value int64) *contractCaller.StakingEvent {
	return &contractCaller.StakingEvent{
		Name:             contractCaller.Event_UserRewardUpdated,
		User:             common.HexToAddress(user),
		Value:            big.NewInt(value),
		BlockNumber:      block,
		TransactionIndex: txIndex,
		LogIndex:         1,
	}
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func Test_GetHistory(t *testing.T) {
	t.Run("Scans in chunks and builds the graph", func(t *testing.T) {
		f, cc := setup(t, tests.GetConfig(), nil)
		cc.events = []*contractCaller.StakingEvent{
			// out of order on purpose
			rewardEvent(21, 0, 300),
			stakeEvent(3, 1, 1000),
			rewardEvent(3, 1, 0),
			rewardEvent(12, 4, 120),
			stakeEvent(21, 0, 400),
			rewardEvent(12, 2, 100),
		}
		cc.timestamps = map[uint64]uint64{3: 1700000000, 12: 1700000120, 21: 1700003600}

		progress := make([][2]uint64, 0)
		history, err := f.GetHistory(context.Background(), &HistoryRequest{
			Address:   user,
			FromBlock: uint64Ptr(0),
			Progress: func(scanned, total uint64) {
				progress = append(progress, [2]uint64{scanned, total})
			},
		})
		assert.Nil(t, err)

		assert.Equal(t, uint64(0), history.FromBlock)
		assert.Equal(t, uint64(25), history.ToBlock)
		assert.Equal(t, [][2]uint64{{0, 9}, {10, 19}, {20, 25}}, cc.eventRanges)
		assert.Equal(t, [][2]uint64{{10, 26}, {20, 26}, {26, 26}}, progress)
		// one lookup per distinct block
		assert.Equal(t, 3, cc.timestampCalls)

		assert.Equal(t, 6, len(history.Events))
		assert.Equal(t, contractCaller.Event_StakeBalChanged, history.Events[0].Name)
		assert.Equal(t, "100", history.Events[2].Value.Raw.Value)
		assert.Equal(t, "120", history.Events[3].Value.Raw.Value)
		assert.Equal(t, int64(1700000120000), history.Events[3].TimestampMs)

		assert.Equal(t, 4, len(history.Graph))
		assert.Equal(t, "1000", history.Graph[0].StakedAmt)
		assert.Equal(t, "0", history.Graph[0].RewardBal)
		assert.Equal(t, "11/14/2023, 22:13", history.Graph[0].ReadableTimestamp)
		assert.Equal(t, "1000", history.Graph[1].StakedAmt)
		assert.Equal(t, "100", history.Graph[1].RewardBal)
		assert.Equal(t, "1000", history.Graph[2].StakedAmt)
		assert.Equal(t, "400", history.Graph[3].StakedAmt)
		assert.Equal(t, "300", history.Graph[3].RewardBal)
		assert.Equal(t, "11/14/2023, 23:13", history.Graph[3].ReadableTimestamp)
	})
	t.Run("Block timestamps are cached across requests", func(t *testing.T) {
		f, cc := setup(t, tests.GetConfig(), nil)
		cc.events = []*contractCaller.StakingEvent{stakeEvent(3, 0, 10), rewardEvent(3, 0, 0)}
		cc.timestamps = map[uint64]uint64{3: 1700000000}

		for i := 0; i < 2; i++ {
			_, err := f.GetHistory(context.Background(), &HistoryRequest{Address: user})
			assert.Nil(t, err)
		}
		assert.Equal(t, 1, cc.timestampCalls)
	})
	t.Run("Defaults to the configured lookback from the latest block", func(t *testing.T) {
		cfg := tests.GetConfig()
		cfg.HistoryConfig.DefaultLookbackBlocks = 5
		f, cc := setup(t, cfg, nil)

		history, err := f.GetHistory(context.Background(), &HistoryRequest{Address: user})
		assert.Nil(t, err)
		assert.Equal(t, uint64(20), history.FromBlock)
		assert.Equal(t, uint64(25), history.ToBlock)
		assert.Equal(t, [][2]uint64{{20, 25}}, cc.eventRanges)
		assert.Equal(t, 0, len(history.Graph))
	})
	t.Run("Invalid ranges are rejected", func(t *testing.T) {
		f, cc := setup(t, tests.GetConfig(), nil)

		_, err := f.GetHistory(context.Background(), &HistoryRequest{Address: user, FromBlock: uint64Ptr(10), ToBlock: uint64Ptr(9)})
		assert.Equal(t, stakingErrors.ErrorKind_InvalidInput, stakingErrors.KindOf(err))
		assert.Equal(t, 0, len(cc.eventRanges))
	})
	t.Run("toBlock past the head is clamped to the latest block", func(t *testing.T) {
		f, cc := setup(t, tests.GetConfig(), nil)

		progress := make([][2]uint64, 0)
		history, err := f.GetHistory(context.Background(), &HistoryRequest{
			Address:   user,
			FromBlock: uint64Ptr(0),
			ToBlock:   uint64Ptr(math.MaxUint64),
			Progress: func(scanned, total uint64) {
				progress = append(progress, [2]uint64{scanned, total})
			},
		})
		assert.Nil(t, err)
		assert.Equal(t, uint64(25), history.ToBlock)
		assert.Equal(t, [][2]uint64{{0, 9}, {10, 19}, {20, 25}}, cc.eventRanges)
		assert.Equal(t, uint64(26), progress[len(progress)-1][1])
	})
	t.Run("fromBlock past the head is rejected", func(t *testing.T) {
		f, cc := setup(t, tests.GetConfig(), nil)

		_, err := f.GetHistory(context.Background(), &HistoryRequest{Address: user, FromBlock: uint64Ptr(26)})
		assert.Equal(t, stakingErrors.ErrorKind_InvalidInput, stakingErrors.KindOf(err))
		assert.Equal(t, 0, len(cc.eventRanges))
	})
	t.Run("Ranges wider than the max range are rejected", func(t *testing.T) {
		cfg := tests.GetConfig()
		cfg.HistoryConfig.DefaultLookbackBlocks = 5
		cfg.HistoryConfig.MaxRangeBlocks = 10
		f, cc := setup(t, cfg, nil)

		_, err := f.GetHistory(context.Background(), &HistoryRequest{Address: user, FromBlock: uint64Ptr(0)})
		assert.Equal(t, stakingErrors.ErrorKind_InvalidInput, stakingErrors.KindOf(err))
		assert.Equal(t, 0, len(cc.eventRanges))

		history, err := f.GetHistory(context.Background(), &HistoryRequest{Address: user, FromBlock: uint64Ptr(16)})
		assert.Nil(t, err)
		assert.Equal(t, uint64(16), history.FromBlock)
		assert.Equal(t, [][2]uint64{{16, 25}}, cc.eventRanges)
	})
	t.Run("Missing blocks fail the history", func(t *testing.T) {
		f, cc := setup(t, tests.GetConfig(), nil)
		cc.events = []*contractCaller.StakingEvent{rewardEvent(3, 0, 0)}

		_, err := f.GetHistory(context.Background(), &HistoryRequest{Address: user})
		assert.Equal(t, stakingErrors.ErrorKind_BlockUnavailable, stakingErrors.KindOf(err))
	})
}

func Test_BuildGraph(t *testing.T) {
	entry := func(name string, ts int64, value string) *HistoryEntry {
		return &HistoryEntry{Name: name, TimestampMs: ts, Value: Amount{Readable: value}}
	}
	withRaw := func(e *HistoryEntry) *HistoryEntry {
		e.Value.Raw.Value = e.Value.Readable
		return e
	}

	t.Run("Staked amount starts at zero", func(t *testing.T) {
		points := BuildGraph([]*HistoryEntry{
			withRaw(entry(contractCaller.Event_UserRewardUpdated, 1000, "5")),
		})
		assert.Equal(t, 1, len(points))
		assert.Equal(t, "0", points[0].StakedAmt)
		assert.Equal(t, "0", points[0].ReadableStakedAmt)
		assert.Equal(t, "1/1/1970, 00:00", points[0].ReadableTimestamp)
	})
	t.Run("Stake changes without a reward update are not points", func(t *testing.T) {
		points := BuildGraph([]*HistoryEntry{
			withRaw(entry(contractCaller.Event_StakeBalChanged, 1000, "7")),
			withRaw(entry(contractCaller.Event_UserRewardUpdated, 2000, "1")),
		})
		assert.Equal(t, 1, len(points))
		assert.Equal(t, "0", points[0].StakedAmt)
	})
	t.Run("Stake changes at the same time pair up in order", func(t *testing.T) {
		points := BuildGraph([]*HistoryEntry{
			withRaw(entry(contractCaller.Event_StakeBalChanged, 1000, "7")),
			withRaw(entry(contractCaller.Event_UserRewardUpdated, 1000, "0")),
			withRaw(entry(contractCaller.Event_StakeBalChanged, 1000, "9")),
			withRaw(entry(contractCaller.Event_UserRewardUpdated, 1000, "1")),
			withRaw(entry(contractCaller.Event_UserRewardUpdated, 5000, "2")),
		})
		assert.Equal(t, 3, len(points))
		assert.Equal(t, "7", points[0].StakedAmt)
		assert.Equal(t, "9", points[1].StakedAmt)
		assert.Equal(t, "9", points[2].StakedAmt)
	})
	t.Run("An unmatched earlier stake change does not block a later match", func(t *testing.T) {
		points := BuildGraph([]*HistoryEntry{
			withRaw(entry(contractCaller.Event_StakeBalChanged, 1000, "7")),
			withRaw(entry(contractCaller.Event_StakeBalChanged, 3000, "11")),
			withRaw(entry(contractCaller.Event_UserRewardUpdated, 3000, "4")),
		})
		assert.Equal(t, 1, len(points))
		assert.Equal(t, "11", points[0].StakedAmt)
	})
	t.Run("No events", func(t *testing.T) {
		assert.Equal(t, 0, len(BuildGraph(nil)))
	})
}

func Test_SortStakingEvents(t *testing.T) {
	events := []*contractCaller.StakingEvent{
		rewardEvent(5, 2, 0),
		stakeEvent(5, 2, 0),
		stakeEvent(5, 1, 0),
		stakeEvent(1, 9, 0),
	}
	SortStakingEvents(events)
	assert.Equal(t, uint64(1), events[0].BlockNumber)
	assert.Equal(t, uint64(1), events[1].TransactionIndex)
	assert.Equal(t, contractCaller.Event_StakeBalChanged, events[2].Name)
	assert.Equal(t, contractCaller.Event_UserRewardUpdated, events[3].Name)
}
