package accrual

import (
	"fmt"
	"math/big"
)

// FormulaVariant selects how the accrued reward product is scaled.
//
// Two generations of the staking contract accounting exist: one where the
// accrual index is already scaled by the cooldown constant and one where it is not.
type FormulaVariant int

const (
	// FormulaVariant_DividedByCooldownConstant divides the final product by COOLDOWN_CONSTANT
	FormulaVariant_DividedByCooldownConstant FormulaVariant = iota
	// FormulaVariant_Undivided leaves the product as is
	FormulaVariant_Undivided
)

// ParseFormulaVariant treats an empty value as divided and rejects anything it does not know.
func ParseFormulaVariant(v string) (FormulaVariant, error) {
	switch v {
	case "", "divided":
		return FormulaVariant_DividedByCooldownConstant, nil
	case "undivided":
		return FormulaVariant_Undivided, nil
	default:
		return FormulaVariant_DividedByCooldownConstant, fmt.Errorf("unknown formula variant '%s': must be divided or undivided", v)
	}
}

func (v FormulaVariant) String() string {
	switch v {
	case FormulaVariant_Undivided:
		return "undivided"
	default:
		return "divided"
	}
}

// StakePosition is a user's current stake in the token's smallest unit.
type StakePosition struct {
	StakedAmt *big.Int
}

// RewardState is a user's reward bookkeeping as last committed on chain.
type RewardState struct {
	PublishedReward        *big.Int
	AlphaAtLastInteraction *big.Int
}

// GlobalAccrualState is the pool-wide accumulator state maintained by the contract.
type GlobalAccrualState struct {
	AlphaNow            *big.Int
	LastUpdatedRewardAt uint64
	TotalStakedAmt      *big.Int
	CooldownConstant    *big.Int
	TotalRewardsPerSec  *big.Int
}

// AccrualSnapshot is the chain clock the computation is evaluated against.
type AccrualSnapshot struct {
	CurrentBlockNumber    uint64
	CurrentBlockTimestamp uint64
}

type Inputs struct {
	Position StakePosition
	Reward   RewardState
	Global   GlobalAccrualState
	Snapshot AccrualSnapshot
}

type AccrualResult struct {
	AccruedAlpha  *big.Int
	AlphaNow      *big.Int
	AccruedReward *big.Int
	TotalReward   *big.Int
	Variant       FormulaVariant
}

// orZero lets callers leave zero-valued amounts unset.
func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
