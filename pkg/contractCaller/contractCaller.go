package contractCaller

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/finthetix/sidecar/pkg/accrual"
)

type TokenAddresses struct {
	StakingToken common.Address
	RewardToken  common.Address
}

type TokenMetadata struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
}

type StakingEvent struct {
	Name             string
	User             common.Address
	Value            *big.Int
	BlockNumber      uint64
	TransactionIndex uint64
	LogIndex         uint64
	TransactionHash  string
}

type IContractCaller interface {
	// GetAccrualInputs reads every value the accrual calculator needs for user, pinned to the latest block.
	GetAccrualInputs(ctx context.Context, user common.Address) (*accrual.Inputs, error)
	GetPoolState(ctx context.Context) (*accrual.GlobalAccrualState, error)
	GetTokenAddresses(ctx context.Context) (*TokenAddresses, error)
	GetTokenMetadata(ctx context.Context, token common.Address) (*TokenMetadata, error)
	GetTokenBalance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error)
	GetBlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error)
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	// GetStakingEvents returns StakeBalChanged and UserRewardUpdated events for user in [fromBlock, toBlock].
	GetStakingEvents(ctx context.Context, user common.Address, fromBlock uint64, toBlock uint64) ([]*StakingEvent, error)
}

// Abis are parsed once and shared; abi.ABI is safe for concurrent reads.
type Abis struct {
	Staking abi.ABI
	Erc20   abi.ABI
}

func ParseAbis() (*Abis, error) {
	staking, err := abi.JSON(strings.NewReader(FinthetixStakingContractAbi))
	if err != nil {
		return nil, fmt.Errorf("failed to parse staking contract abi: %w", err)
	}
	erc20, err := abi.JSON(strings.NewReader(Erc20Abi))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &Abis{Staking: staking, Erc20: erc20}, nil
}

// StakingEventTopics is the topic filter matching both staking events of a single user.
func (a *Abis) StakingEventTopics(user common.Address) [][]common.Hash {
	return [][]common.Hash{
		{a.Staking.Events[Event_StakeBalChanged].ID, a.Staking.Events[Event_UserRewardUpdated].ID},
		{common.BytesToHash(user.Bytes())},
	}
}

// DecodeStakingEvent decodes a raw log emitted by the staking contract.
func (a *Abis) DecodeStakingEvent(topics []common.Hash, data []byte) (*StakingEvent, error) {
	if len(topics) < 2 {
		return nil, fmt.Errorf("expected 2 topics, got %d", len(topics))
	}
	event, err := a.Staking.EventByID(topics[0])
	if err != nil {
		return nil, err
	}
	values, err := a.Staking.Unpack(event.Name, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", event.Name, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("expected 1 value for %s, got %d", event.Name, len(values))
	}
	value, err := AsBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", event.Name, err)
	}
	return &StakingEvent{
		Name:  event.Name,
		User:  common.BytesToAddress(topics[1].Bytes()),
		Value: value,
	}, nil
}

func AsBigInt(v interface{}) (*big.Int, error) {
	b, ok := v.(*big.Int)
	if !ok || b == nil {
		return nil, fmt.Errorf("expected uint256, got %T", v)
	}
	return b, nil
}

func AsAddress(v interface{}) (common.Address, error) {
	a, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("expected address, got %T", v)
	}
	return a, nil
}

func AsUint8(v interface{}) (uint8, error) {
	u, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("expected uint8, got %T", v)
	}
	return u, nil
}

func AsString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

// AsUnixSeconds narrows a uint256 timestamp read from a contract.
func AsUnixSeconds(v interface{}) (uint64, error) {
	b, err := AsBigInt(v)
	if err != nil {
		return 0, err
	}
	if !b.IsUint64() {
		return 0, fmt.Errorf("timestamp %s does not fit in uint64", b.String())
	}
	return b.Uint64(), nil
}

// PoolStateMethods are the pool-wide reads behind GlobalAccrualState.
var PoolStateMethods = []string{
	Method_AlphaNow,
	Method_TotalStakedAmt,
	Method_LastUpdatedRewardAt,
	Method_CooldownConstant,
	Method_TotalRewardsPerSecond,
}

// AccrualInputMethods are the reads behind accrual.Inputs. The user reads depend on msg.sender.
var AccrualInputMethods = append([]string{
	Method_ViewMyStakedAmt,
	Method_ViewMyPublishedRewards,
	Method_ViewAlphaAtMyLastInteraction,
}, PoolStateMethods...)

func bigIntFor(values map[string]interface{}, method string) (*big.Int, error) {
	v, ok := values[method]
	if !ok {
		return nil, fmt.Errorf("missing value for %s", method)
	}
	b, err := AsBigInt(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return b, nil
}

// NewGlobalAccrualState assembles the pool state from the first return value of each PoolStateMethods read.
func NewGlobalAccrualState(values map[string]interface{}) (*accrual.GlobalAccrualState, error) {
	alphaNow, err := bigIntFor(values, Method_AlphaNow)
	if err != nil {
		return nil, err
	}
	totalStaked, err := bigIntFor(values, Method_TotalStakedAmt)
	if err != nil {
		return nil, err
	}
	cooldownConstant, err := bigIntFor(values, Method_CooldownConstant)
	if err != nil {
		return nil, err
	}
	rewardsPerSec, err := bigIntFor(values, Method_TotalRewardsPerSecond)
	if err != nil {
		return nil, err
	}
	v, ok := values[Method_LastUpdatedRewardAt]
	if !ok {
		return nil, fmt.Errorf("missing value for %s", Method_LastUpdatedRewardAt)
	}
	lastUpdated, err := AsUnixSeconds(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Method_LastUpdatedRewardAt, err)
	}

	return &accrual.GlobalAccrualState{
		AlphaNow:            alphaNow,
		LastUpdatedRewardAt: lastUpdated,
		TotalStakedAmt:      totalStaked,
		CooldownConstant:    cooldownConstant,
		TotalRewardsPerSec:  rewardsPerSec,
	}, nil
}

// NewAccrualInputs assembles a complete accrual.Inputs or fails; partial inputs are never returned.
func NewAccrualInputs(values map[string]interface{}, blockNumber uint64, blockTimestamp uint64) (*accrual.Inputs, error) {
	global, err := NewGlobalAccrualState(values)
	if err != nil {
		return nil, err
	}
	staked, err := bigIntFor(values, Method_ViewMyStakedAmt)
	if err != nil {
		return nil, err
	}
	published, err := bigIntFor(values, Method_ViewMyPublishedRewards)
	if err != nil {
		return nil, err
	}
	alphaAtLast, err := bigIntFor(values, Method_ViewAlphaAtMyLastInteraction)
	if err != nil {
		return nil, err
	}

	return &accrual.Inputs{
		Position: accrual.StakePosition{StakedAmt: staked},
		Reward: accrual.RewardState{
			PublishedReward:        published,
			AlphaAtLastInteraction: alphaAtLast,
		},
		Global: *global,
		Snapshot: accrual.AccrualSnapshot{
			CurrentBlockNumber:    blockNumber,
			CurrentBlockTimestamp: blockTimestamp,
		},
	}, nil
}
