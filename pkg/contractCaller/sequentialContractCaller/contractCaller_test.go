package sequentialContractCaller

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/finthetix/sidecar/internal/logger"
	"github.com/finthetix/sidecar/internal/tests"
	"github.com/finthetix/sidecar/pkg/clients/ethereum"
	"github.com/finthetix/sidecar/pkg/contractCaller"
	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
)

var (
	stakingContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	stakingToken    = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	user            = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func setup(t *testing.T) (*SequentialContractCaller, *tests.FakeEthereumNode) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	ethConfig := ethereum.DefaultChunkedCallEthereumClientConfig()
	ethConfig.BaseUrl = tests.FakeEthereumNodeUrl

	client := ethereum.NewClient(ethConfig, l)

	scc, err := NewSequentialContractCaller(client, stakingContract, l)
	if err != nil {
		t.Fatal(err)
	}

	httpmock.Reset()
	node := tests.NewFakeEthereumNode()
	node.Register()

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
		if err := node.SetResult(scc.Abis.Staking.Methods[method], big.NewInt(v)); err != nil {
			t.Fatal(err)
		}
	}
	return scc, node
}

// ethclient uses http.DefaultTransport, which httpmock.Activate replaces.
func Test_SequentialContractCaller(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	t.Run("Reads accrual inputs one call at a time", func(t *testing.T) {
		scc, node := setup(t)

		inputs, err := scc.GetAccrualInputs(context.Background(), user)
		assert.Nil(t, err)
		assert.Equal(t, "1000", inputs.Position.StakedAmt.String())
		assert.Equal(t, "500", inputs.Global.TotalRewardsPerSec.String())
		assert.Equal(t, uint64(1100), inputs.Snapshot.CurrentBlockTimestamp)

		calls := node.Calls()
		assert.Equal(t, len(contractCaller.AccrualInputMethods), len(calls))
		for _, call := range calls {
			assert.Equal(t, strings.ToLower(user.Hex()), call.From)
			assert.Equal(t, "0x10", call.BlockTag)
		}
	})
	t.Run("Reverts are tagged", func(t *testing.T) {
		scc, node := setup(t)
		node.Revert(scc.Abis.Staking.Methods[contractCaller.Method_AlphaNow])

		_, err := scc.GetPoolState(context.Background())
		assert.Equal(t, stakingErrors.ErrorKind_ContractReverted, stakingErrors.KindOf(err))
		assert.Equal(t, "ERR8: Could not fetch Finthetix Status", stakingErrors.UserMessageOf(err))
	})
	t.Run("Token metadata", func(t *testing.T) {
		scc, node := setup(t)
		assert.Nil(t, node.SetResult(scc.Abis.Erc20.Methods[contractCaller.Method_Decimals], uint8(6)))
		assert.Nil(t, node.SetResult(scc.Abis.Erc20.Methods[contractCaller.Method_Symbol], "FRWD"))

		metadata, err := scc.GetTokenMetadata(context.Background(), stakingToken)
		assert.Nil(t, err)
		assert.Equal(t, uint8(6), metadata.Decimals)
		assert.Equal(t, "FRWD", metadata.Symbol)
	})
	t.Run("Block timestamps", func(t *testing.T) {
		scc, node := setup(t)
		node.SetBlock(12, 900)

		ts, err := scc.GetBlockTimestamp(context.Background(), 12)
		assert.Nil(t, err)
		assert.Equal(t, uint64(900), ts)

		n, err := scc.GetLatestBlockNumber(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, uint64(16), n)
	})
}
