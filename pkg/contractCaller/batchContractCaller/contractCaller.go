package batchContractCaller

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/finthetix/sidecar/pkg/accrual"
	"github.com/finthetix/sidecar/pkg/clients/ethereum"
	"github.com/finthetix/sidecar/pkg/contractCaller"
	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"go.uber.org/zap"
)

// BatchContractCaller sends all reads of one snapshot as a single JSON-RPC batch of eth_calls,
// evaluated at one pinned block.
type BatchContractCaller struct {
	EthereumClient  *ethereum.Client
	Abis            *contractCaller.Abis
	StakingContract common.Address
	Logger          *zap.Logger
}

func NewBatchContractCaller(ec *ethereum.Client, stakingContract common.Address, l *zap.Logger) (*BatchContractCaller, error) {
	abis, err := contractCaller.ParseAbis()
	if err != nil {
		l.Sugar().Errorw("Failed to parse abis", zap.Error(err))
		return nil, err
	}
	return &BatchContractCaller{
		EthereumClient:  ec,
		Abis:            abis,
		StakingContract: stakingContract,
		Logger:          l,
	}, nil
}

type contractRead struct {
	to     common.Address
	abi    *abi.ABI
	method string
	from   *common.Address
	args   []interface{}
}

func (cc *BatchContractCaller) stakingReads(from *common.Address, methods []string) []*contractRead {
	reads := make([]*contractRead, 0, len(methods))
	for _, m := range methods {
		reads = append(reads, &contractRead{to: cc.StakingContract, abi: &cc.Abis.Staking, method: m, from: from})
	}
	return reads
}

func (cc *BatchContractCaller) latestBlock(ctx context.Context, op stakingErrors.Op) (*ethereum.EthereumBlock, error) {
	block, err := cc.EthereumClient.GetLatestBlock(ctx)
	if err != nil {
		cc.Logger.Sugar().Errorw("Failed to get latest block", zap.Error(err))
		return nil, stakingErrors.New(stakingErrors.ErrorKind_BlockUnavailable, op, err)
	}
	return block, nil
}

// readAll returns the unpacked outputs of every read, in order. Any failed item fails the whole call.
func (cc *BatchContractCaller) readAll(ctx context.Context, op stakingErrors.Op, blockTag string, reads []*contractRead) ([][]interface{}, error) {
	requests := make([]*ethereum.RPCRequest, 0, len(reads))
	for i, r := range reads {
		data, err := r.abi.Pack(r.method, r.args...)
		if err != nil {
			return nil, stakingErrors.New(stakingErrors.ErrorKind_Internal, op, fmt.Errorf("failed to pack %s: %w", r.method, err))
		}
		msg := &ethereum.CallMsg{
			To:   strings.ToLower(r.to.Hex()),
			Data: hexutil.Encode(data),
		}
		if r.from != nil {
			msg.From = strings.ToLower(r.from.Hex())
		}
		requests = append(requests, ethereum.GetCallRequest(msg, blockTag, uint(i)))
	}

	responses, err := cc.EthereumClient.BatchCall(ctx, requests)
	if err != nil {
		cc.Logger.Sugar().Errorw("Failed to batch contract reads", zap.Error(err), zap.Int("reads", len(reads)))
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, op, err)
	}
	if len(responses) != len(reads) {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, op, ethereum.ErrIncompleteResults)
	}

	results := make([][]interface{}, len(reads))
	for i, res := range responses {
		r := reads[i]
		if res.Error != nil {
			kind := stakingErrors.ErrorKind_ChainRead
			if res.Error.IsExecutionReverted() {
				kind = stakingErrors.ErrorKind_ContractReverted
			}
			return nil, stakingErrors.New(kind, op, fmt.Errorf("%s: %w", r.method, res.Error))
		}
		raw, err := ethereum.RPCMethod_call.ResponseParser(res.Result)
		if err != nil {
			return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, op, fmt.Errorf("%s: %w", r.method, err))
		}
		if len(raw) == 0 {
			return nil, stakingErrors.Newf(stakingErrors.ErrorKind_ChainRead, op, "%s returned no data, is %s a contract?", r.method, r.to.Hex())
		}
		values, err := r.abi.Unpack(r.method, raw)
		if err != nil {
			return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, op, fmt.Errorf("failed to unpack %s: %w", r.method, err))
		}
		if len(values) == 0 {
			return nil, stakingErrors.Newf(stakingErrors.ErrorKind_ChainRead, op, "%s returned no values", r.method)
		}
		results[i] = values
	}
	return results, nil
}

// firstValues keys the first output of each read by method name.
func firstValues(reads []*contractRead, results [][]interface{}) map[string]interface{} {
	values := make(map[string]interface{}, len(reads))
	for i, r := range reads {
		values[r.method] = results[i][0]
	}
	return values
}

func (cc *BatchContractCaller) GetAccrualInputs(ctx context.Context, user common.Address) (*accrual.Inputs, error) {
	block, err := cc.latestBlock(ctx, stakingErrors.Op_FetchUserData)
	if err != nil {
		return nil, err
	}

	reads := cc.stakingReads(&user, contractCaller.AccrualInputMethods)
	results, err := cc.readAll(ctx, stakingErrors.Op_FetchUserData, hexutil.EncodeUint64(block.Number.Value()), reads)
	if err != nil {
		return nil, err
	}

	inputs, err := contractCaller.NewAccrualInputs(firstValues(reads, results), block.Number.Value(), block.Timestamp.Value())
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchUserData, err)
	}
	return inputs, nil
}

func (cc *BatchContractCaller) GetPoolState(ctx context.Context) (*accrual.GlobalAccrualState, error) {
	reads := cc.stakingReads(nil, contractCaller.PoolStateMethods)
	results, err := cc.readAll(ctx, stakingErrors.Op_FetchStatus, ethereum.BlockTag_Latest, reads)
	if err != nil {
		return nil, err
	}
	global, err := contractCaller.NewGlobalAccrualState(firstValues(reads, results))
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchStatus, err)
	}
	return global, nil
}

func (cc *BatchContractCaller) GetTokenAddresses(ctx context.Context) (*contractCaller.TokenAddresses, error) {
	reads := cc.stakingReads(nil, []string{contractCaller.Method_StakingToken, contractCaller.Method_RewardToken})
	results, err := cc.readAll(ctx, stakingErrors.Op_FetchMetadata, ethereum.BlockTag_Latest, reads)
	if err != nil {
		return nil, err
	}
	stakingToken, err := contractCaller.AsAddress(results[0][0])
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchMetadata, err)
	}
	rewardToken, err := contractCaller.AsAddress(results[1][0])
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchMetadata, err)
	}
	return &contractCaller.TokenAddresses{StakingToken: stakingToken, RewardToken: rewardToken}, nil
}

func (cc *BatchContractCaller) GetTokenMetadata(ctx context.Context, token common.Address) (*contractCaller.TokenMetadata, error) {
	reads := []*contractRead{
		{to: token, abi: &cc.Abis.Erc20, method: contractCaller.Method_Decimals},
		{to: token, abi: &cc.Abis.Erc20, method: contractCaller.Method_Symbol},
	}
	results, err := cc.readAll(ctx, stakingErrors.Op_FetchMetadata, ethereum.BlockTag_Latest, reads)
	if err != nil {
		return nil, err
	}
	decimals, err := contractCaller.AsUint8(results[0][0])
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchMetadata, err)
	}
	symbol, err := contractCaller.AsString(results[1][0])
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchMetadata, err)
	}
	return &contractCaller.TokenMetadata{Address: token, Decimals: decimals, Symbol: symbol}, nil
}

func (cc *BatchContractCaller) GetTokenBalance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	reads := []*contractRead{
		{to: token, abi: &cc.Abis.Erc20, method: contractCaller.Method_BalanceOf, args: []interface{}{owner}},
	}
	results, err := cc.readAll(ctx, stakingErrors.Op_FetchUserData, ethereum.BlockTag_Latest, reads)
	if err != nil {
		return nil, err
	}
	balance, err := contractCaller.AsBigInt(results[0][0])
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchUserData, err)
	}
	return balance, nil
}

func (cc *BatchContractCaller) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	n, err := cc.EthereumClient.GetBlockNumberUint64(ctx)
	if err != nil {
		return 0, stakingErrors.New(stakingErrors.ErrorKind_BlockUnavailable, stakingErrors.Op_FetchBlock, err)
	}
	return n, nil
}

func (cc *BatchContractCaller) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	block, err := cc.EthereumClient.GetBlockByNumber(ctx, blockNumber)
	if err != nil {
		return 0, stakingErrors.New(stakingErrors.ErrorKind_BlockUnavailable, stakingErrors.Op_FetchBlock, err)
	}
	return block.Timestamp.Value(), nil
}

func (cc *BatchContractCaller) GetStakingEvents(ctx context.Context, user common.Address, fromBlock uint64, toBlock uint64) ([]*contractCaller.StakingEvent, error) {
	filter := ethereum.NewLogFilter(cc.StakingContract, fromBlock, toBlock, cc.Abis.StakingEventTopics(user)...)
	logs, err := cc.EthereumClient.GetLogs(ctx, filter)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchHistory, err)
	}

	events := make([]*contractCaller.StakingEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		data, err := log.Data.Bytes()
		if err != nil {
			return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchHistory, err)
		}
		event, err := cc.Abis.DecodeStakingEvent(log.TopicHashes(), data)
		if err != nil {
			cc.Logger.Sugar().Errorw("Failed to decode staking event",
				zap.Error(err),
				zap.String("transactionHash", log.TransactionHash.Value()),
				zap.Uint64("logIndex", log.LogIndex.Value()),
			)
			return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchHistory, err)
		}
		event.BlockNumber = log.BlockNumber.Value()
		event.TransactionIndex = log.TransactionIndex.Value()
		event.LogIndex = log.LogIndex.Value()
		event.TransactionHash = log.TransactionHash.Value()
		events = append(events, event)
	}
	return events, nil
}
