package sequentialContractCaller

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	goEthereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/finthetix/sidecar/pkg/accrual"
	"github.com/finthetix/sidecar/pkg/clients/ethereum"
	"github.com/finthetix/sidecar/pkg/contractCaller"
	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"go.uber.org/zap"
)

// SequentialContractCaller makes one bound contract call per read through go-ethereum's ethclient.
// Useful against nodes that reject JSON-RPC batches.
type SequentialContractCaller struct {
	EthereumClient  *ethereum.Client
	Abis            *contractCaller.Abis
	StakingContract common.Address
	Logger          *zap.Logger

	caller *ethclient.Client
}

func NewSequentialContractCaller(ec *ethereum.Client, stakingContract common.Address, l *zap.Logger) (*SequentialContractCaller, error) {
	abis, err := contractCaller.ParseAbis()
	if err != nil {
		l.Sugar().Errorw("Failed to parse abis", zap.Error(err))
		return nil, err
	}
	caller, err := ec.GetEthereumContractCaller()
	if err != nil {
		return nil, err
	}
	return &SequentialContractCaller{
		EthereumClient:  ec,
		Abis:            abis,
		StakingContract: stakingContract,
		Logger:          l,
		caller:          caller,
	}, nil
}

var executionRevertedRegex = regexp.MustCompile(`execution reverted`)

func isExecutionRevertedError(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 3 {
		return true
	}
	return executionRevertedRegex.MatchString(err.Error())
}

func (cc *SequentialContractCaller) call(
	ctx context.Context,
	op stakingErrors.Op,
	address common.Address,
	a abi.ABI,
	opts *bind.CallOpts,
	method string,
	args ...interface{},
) (interface{}, error) {
	contract := bind.NewBoundContract(address, a, cc.caller, nil, nil)

	results := make([]interface{}, 0)
	callOpts := *opts
	callOpts.Context = ctx
	if err := contract.Call(&callOpts, &results, method, args...); err != nil {
		cc.Logger.Sugar().Errorw("Failed to call contract method",
			zap.String("method", method),
			zap.String("address", address.Hex()),
			zap.Error(err),
		)
		kind := stakingErrors.ErrorKind_ChainRead
		if isExecutionRevertedError(err) {
			kind = stakingErrors.ErrorKind_ContractReverted
		}
		return nil, stakingErrors.New(kind, op, fmt.Errorf("%s: %w", method, err))
	}
	if len(results) == 0 {
		return nil, stakingErrors.Newf(stakingErrors.ErrorKind_ChainRead, op, "%s returned no values", method)
	}
	return results[0], nil
}

func (cc *SequentialContractCaller) readStaking(ctx context.Context, op stakingErrors.Op, opts *bind.CallOpts, methods []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(methods))
	for _, m := range methods {
		v, err := cc.call(ctx, op, cc.StakingContract, cc.Abis.Staking, opts, m)
		if err != nil {
			return nil, err
		}
		values[m] = v
	}
	return values, nil
}

func (cc *SequentialContractCaller) GetAccrualInputs(ctx context.Context, user common.Address) (*accrual.Inputs, error) {
	header, err := cc.caller.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_BlockUnavailable, stakingErrors.Op_FetchUserData, err)
	}

	opts := &bind.CallOpts{From: user, BlockNumber: header.Number}
	values, err := cc.readStaking(ctx, stakingErrors.Op_FetchUserData, opts, contractCaller.AccrualInputMethods)
	if err != nil {
		return nil, err
	}

	inputs, err := contractCaller.NewAccrualInputs(values, header.Number.Uint64(), header.Time)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchUserData, err)
	}
	return inputs, nil
}

func (cc *SequentialContractCaller) GetPoolState(ctx context.Context) (*accrual.GlobalAccrualState, error) {
	values, err := cc.readStaking(ctx, stakingErrors.Op_FetchStatus, &bind.CallOpts{}, contractCaller.PoolStateMethods)
	if err != nil {
		return nil, err
	}
	global, err := contractCaller.NewGlobalAccrualState(values)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchStatus, err)
	}
	return global, nil
}

func (cc *SequentialContractCaller) GetTokenAddresses(ctx context.Context) (*contractCaller.TokenAddresses, error) {
	values, err := cc.readStaking(ctx, stakingErrors.Op_FetchMetadata, &bind.CallOpts{}, []string{
		contractCaller.Method_StakingToken,
		contractCaller.Method_RewardToken,
	})
	if err != nil {
		return nil, err
	}
	stakingToken, err := contractCaller.AsAddress(values[contractCaller.Method_StakingToken])
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchMetadata, err)
	}
	rewardToken, err := contractCaller.AsAddress(values[contractCaller.Method_RewardToken])
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchMetadata, err)
	}
	return &contractCaller.TokenAddresses{StakingToken: stakingToken, RewardToken: rewardToken}, nil
}

func (cc *SequentialContractCaller) GetTokenMetadata(ctx context.Context, token common.Address) (*contractCaller.TokenMetadata, error) {
	op := stakingErrors.Op_FetchMetadata
	d, err := cc.call(ctx, op, token, cc.Abis.Erc20, &bind.CallOpts{}, contractCaller.Method_Decimals)
	if err != nil {
		return nil, err
	}
	s, err := cc.call(ctx, op, token, cc.Abis.Erc20, &bind.CallOpts{}, contractCaller.Method_Symbol)
	if err != nil {
		return nil, err
	}
	decimals, err := contractCaller.AsUint8(d)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, op, err)
	}
	symbol, err := contractCaller.AsString(s)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, op, err)
	}
	return &contractCaller.TokenMetadata{Address: token, Decimals: decimals, Symbol: symbol}, nil
}

func (cc *SequentialContractCaller) GetTokenBalance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	v, err := cc.call(ctx, stakingErrors.Op_FetchUserData, token, cc.Abis.Erc20, &bind.CallOpts{}, contractCaller.Method_BalanceOf, owner)
	if err != nil {
		return nil, err
	}
	balance, err := contractCaller.AsBigInt(v)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchUserData, err)
	}
	return balance, nil
}

func (cc *SequentialContractCaller) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	n, err := cc.caller.BlockNumber(ctx)
	if err != nil {
		return 0, stakingErrors.New(stakingErrors.ErrorKind_BlockUnavailable, stakingErrors.Op_FetchBlock, err)
	}
	return n, nil
}

func (cc *SequentialContractCaller) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	header, err := cc.caller.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, stakingErrors.New(stakingErrors.ErrorKind_BlockUnavailable, stakingErrors.Op_FetchBlock, err)
	}
	return header.Time, nil
}

func (cc *SequentialContractCaller) GetStakingEvents(ctx context.Context, user common.Address, fromBlock uint64, toBlock uint64) ([]*contractCaller.StakingEvent, error) {
	logs, err := cc.caller.FilterLogs(ctx, goEthereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{cc.StakingContract},
		Topics:    cc.Abis.StakingEventTopics(user),
	})
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchHistory, err)
	}
	events := make([]*contractCaller.StakingEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		event, err := cc.Abis.DecodeStakingEvent(log.Topics, log.Data)
		if err != nil {
			return nil, stakingErrors.New(stakingErrors.ErrorKind_ChainRead, stakingErrors.Op_FetchHistory, err)
		}
		event.BlockNumber = log.BlockNumber
		event.TransactionIndex = uint64(log.TxIndex)
		event.LogIndex = uint64(log.Index)
		event.TransactionHash = log.TxHash.Hex()
		events = append(events, event)
	}
	return events, nil
}
