package batchContractCaller

import (
	"context"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/finthetix/sidecar/internal/logger"
	"github.com/finthetix/sidecar/internal/tests"
	"github.com/finthetix/sidecar/pkg/accrual"
	"github.com/finthetix/sidecar/pkg/clients/ethereum"
	"github.com/finthetix/sidecar/pkg/contractCaller"
	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
)

var (
	stakingContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	stakingToken    = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	rewardToken     = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	user            = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func setup(t *testing.T) (*BatchContractCaller, *tests.FakeEthereumNode) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	ethConfig := ethereum.DefaultNativeCallEthereumClientConfig()
	ethConfig.BaseUrl = tests.FakeEthereumNodeUrl
	ethConfig.Backoffs = []time.Duration{time.Millisecond}

	client := ethereum.NewClient(ethConfig, l)
	client.SetHttpClient(&http.Client{Transport: httpmock.DefaultTransport})

	cc, err := NewBatchContractCaller(client, stakingContract, l)
	if err != nil {
		t.Fatal(err)
	}

	httpmock.Reset()
	node := tests.NewFakeEthereumNode()
	node.Register()
	return cc, node
}

func setScenario(t *testing.T, cc *BatchContractCaller, node *tests.FakeEthereumNode) {
	values := map[string]int64{
		contractCaller.Method_ViewMyStakedAmt:              1000,
		contractCaller.Method_ViewMyPublishedRewards:       42,
		contractCaller.Method_ViewAlphaAtMyLastInteraction: 10,
		contractCaller.Method_AlphaNow:                     10,
		contractCaller.Method_TotalStakedAmt:               1000,
		contractCaller.Method_LastUpdatedRewardAt:          1000,
		contractCaller.Method_CooldownConstant:             100,
		contractCaller.Method_TotalRewardsPerSecond:        500,
	}
	for method, v := range values {
		if err := node.SetResult(cc.Abis.Staking.Methods[method], big.NewInt(v)); err != nil {
			t.Fatal(err)
		}
	}
}

func Test_BatchContractCaller(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	t.Run("Reads accrual inputs pinned to the latest block", func(t *testing.T) {
		cc, node := setup(t)
		setScenario(t, cc, node)

		inputs, err := cc.GetAccrualInputs(context.Background(), user)
		assert.Nil(t, err)

		assert.Equal(t, "1000", inputs.Position.StakedAmt.String())
		assert.Equal(t, "42", inputs.Reward.PublishedReward.String())
		assert.Equal(t, "10", inputs.Reward.AlphaAtLastInteraction.String())
		assert.Equal(t, uint64(1000), inputs.Global.LastUpdatedRewardAt)
		assert.Equal(t, uint64(16), inputs.Snapshot.CurrentBlockNumber)
		assert.Equal(t, uint64(1100), inputs.Snapshot.CurrentBlockTimestamp)

		result := accrual.ComputeAccruedReward(inputs, accrual.FormulaVariant_Undivided)
		assert.Equal(t, "5000000", result.AccruedReward.String())

		calls := node.Calls()
		assert.Equal(t, len(contractCaller.AccrualInputMethods), len(calls))
		for _, call := range calls {
			assert.Equal(t, strings.ToLower(user.Hex()), call.From)
			assert.Equal(t, strings.ToLower(stakingContract.Hex()), call.To)
			assert.Equal(t, "0x10", call.BlockTag)
		}
		// block header plus one batch
		assert.Equal(t, 2, httpmock.GetTotalCallCount())
	})
	t.Run("A reverted read fails the whole snapshot", func(t *testing.T) {
		cc, node := setup(t)
		setScenario(t, cc, node)
		node.Revert(cc.Abis.Staking.Methods[contractCaller.Method_ViewMyPublishedRewards])

		inputs, err := cc.GetAccrualInputs(context.Background(), user)
		assert.Nil(t, inputs)
		assert.Equal(t, stakingErrors.ErrorKind_ContractReverted, stakingErrors.KindOf(err))
		assert.Equal(t, "ERR3: Error fetching user data", stakingErrors.UserMessageOf(err))
	})
	t.Run("Empty return data is a chain read error", func(t *testing.T) {
		cc, node := setup(t)
		setScenario(t, cc, node)
		node.SetRawResult(cc.Abis.Staking.Methods[contractCaller.Method_AlphaNow], "0x")

		_, err := cc.GetAccrualInputs(context.Background(), user)
		assert.Equal(t, stakingErrors.ErrorKind_ChainRead, stakingErrors.KindOf(err))
	})
	t.Run("Missing latest block is reported as unavailable", func(t *testing.T) {
		cc, node := setup(t)
		setScenario(t, cc, node)
		node.RemoveLatestBlock()

		_, err := cc.GetAccrualInputs(context.Background(), user)
		assert.Equal(t, stakingErrors.ErrorKind_BlockUnavailable, stakingErrors.KindOf(err))
		assert.Equal(t, 0, len(node.Calls()))
	})
	t.Run("Pool state does not need a caller", func(t *testing.T) {
		cc, node := setup(t)
		setScenario(t, cc, node)

		global, err := cc.GetPoolState(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, "1000", global.TotalStakedAmt.String())
		assert.Equal(t, "100", global.CooldownConstant.String())
		calls := node.Calls()
		assert.Equal(t, len(contractCaller.PoolStateMethods), len(calls))
		for _, call := range calls {
			assert.Equal(t, "", call.From)
		}
	})
	t.Run("Token addresses and metadata", func(t *testing.T) {
		cc, node := setup(t)
		assert.Nil(t, node.SetResult(cc.Abis.Staking.Methods[contractCaller.Method_StakingToken], stakingToken))
		assert.Nil(t, node.SetResult(cc.Abis.Staking.Methods[contractCaller.Method_RewardToken], rewardToken))
		assert.Nil(t, node.SetResult(cc.Abis.Erc20.Methods[contractCaller.Method_Decimals], uint8(18)))
		assert.Nil(t, node.SetResult(cc.Abis.Erc20.Methods[contractCaller.Method_Symbol], "FSTK"))

		addresses, err := cc.GetTokenAddresses(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, stakingToken, addresses.StakingToken)
		assert.Equal(t, rewardToken, addresses.RewardToken)

		metadata, err := cc.GetTokenMetadata(context.Background(), stakingToken)
		assert.Nil(t, err)
		assert.Equal(t, uint8(18), metadata.Decimals)
		assert.Equal(t, "FSTK", metadata.Symbol)
	})
	t.Run("Token balance", func(t *testing.T) {
		cc, node := setup(t)
		balance, _ := new(big.Int).SetString("2500000000000000000000", 10)
		assert.Nil(t, node.SetResult(cc.Abis.Erc20.Methods[contractCaller.Method_BalanceOf], balance))

		res, err := cc.GetTokenBalance(context.Background(), stakingToken, user)
		assert.Nil(t, err)
		assert.Equal(t, balance.String(), res.String())
		calls := node.Calls()
		assert.Equal(t, strings.ToLower(stakingToken.Hex()), calls[0].To)
		assert.True(t, strings.HasSuffix(calls[0].Data, strings.ToLower(user.Hex()[2:])))
	})
	t.Run("Staking events are decoded", func(t *testing.T) {
		cc, node := setup(t)

		stakeEvent := cc.Abis.Staking.Events[contractCaller.Event_StakeBalChanged]
		rewardEvent := cc.Abis.Staking.Events[contractCaller.Event_UserRewardUpdated]
		stakeData, _ := stakeEvent.Inputs.NonIndexed().Pack(big.NewInt(700))
		rewardData, _ := rewardEvent.Inputs.NonIndexed().Pack(big.NewInt(33))
		userTopic := common.BytesToHash(user.Bytes()).Hex()

		logs := []map[string]interface{}{
			{
				"removed": false, "logIndex": "0x0", "transactionHash": "0xaa", "transactionIndex": "0x1",
				"blockHash": "0x01", "blockNumber": "0x5", "address": strings.ToLower(stakingContract.Hex()),
				"data": hexutil.Encode(stakeData), "topics": []string{stakeEvent.ID.Hex(), userTopic},
			},
			{
				"removed": true, "logIndex": "0x1", "transactionHash": "0xab", "transactionIndex": "0x1",
				"blockHash": "0x01", "blockNumber": "0x5", "address": strings.ToLower(stakingContract.Hex()),
				"data": hexutil.Encode(rewardData), "topics": []string{rewardEvent.ID.Hex(), userTopic},
			},
			{
				"removed": false, "logIndex": "0x2", "transactionHash": "0xac", "transactionIndex": "0x0",
				"blockHash": "0x02", "blockNumber": "0x6", "address": strings.ToLower(stakingContract.Hex()),
				"data": hexutil.Encode(rewardData), "topics": []string{rewardEvent.ID.Hex(), userTopic},
			},
		}
		assert.Nil(t, node.SetLogs(logs))

		events, err := cc.GetStakingEvents(context.Background(), user, 0, 16)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(events))

		assert.Equal(t, contractCaller.Event_StakeBalChanged, events[0].Name)
		assert.Equal(t, user, events[0].User)
		assert.Equal(t, "700", events[0].Value.String())
		assert.Equal(t, uint64(5), events[0].BlockNumber)

		assert.Equal(t, contractCaller.Event_UserRewardUpdated, events[1].Name)
		assert.Equal(t, "33", events[1].Value.String())
		assert.Equal(t, uint64(6), events[1].BlockNumber)
		assert.Equal(t, "0xac", events[1].TransactionHash)
	})
}
