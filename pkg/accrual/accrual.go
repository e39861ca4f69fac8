package accrual

import "math/big"

// ComputeAccruedAlpha extrapolates the global accrual index from the last on-chain
// commit up to the current block:
//
//	(currentBlockTimestamp - lastUpdatedRewardAt) * cooldownConstant / totalStakedAmt
//
// An empty pool accrues nothing.
func ComputeAccruedAlpha(global GlobalAccrualState, snapshot AccrualSnapshot) *big.Int {
	totalStakedAmt := orZero(global.TotalStakedAmt)
	if totalStakedAmt.Sign() == 0 {
		return new(big.Int)
	}

	// the chain clock can trail the last commit when reads straddle a new block
	if snapshot.CurrentBlockTimestamp <= global.LastUpdatedRewardAt {
		return new(big.Int)
	}
	elapsed := new(big.Int).SetUint64(snapshot.CurrentBlockTimestamp - global.LastUpdatedRewardAt)

	accruedAlpha := new(big.Int).Mul(elapsed, orZero(global.CooldownConstant))
	return accruedAlpha.Quo(accruedAlpha, totalStakedAmt)
}

// ComputeAccruedReward derives a user's total unclaimed reward from a snapshot of
// on-chain state without submitting a transaction.
//
//	alphaNow      = alphaNowPublished + accruedAlpha
//	accruedReward = stakedAmt * totalRewardsPerSec * (alphaNow - alphaAtLastInteraction) [/ cooldownConstant]
//	totalReward   = publishedReward + accruedReward
//
// All arithmetic is integer arithmetic; divisions truncate like the contract does.
// The function never mutates its inputs.
func ComputeAccruedReward(inputs *Inputs, variant FormulaVariant) *AccrualResult {
	accruedAlpha := ComputeAccruedAlpha(inputs.Global, inputs.Snapshot)
	alphaNow := new(big.Int).Add(orZero(inputs.Global.AlphaNow), accruedAlpha)

	alphaDelta := new(big.Int).Sub(alphaNow, orZero(inputs.Reward.AlphaAtLastInteraction))

	accruedReward := new(big.Int)
	if alphaDelta.Sign() > 0 {
		accruedReward.Mul(orZero(inputs.Position.StakedAmt), orZero(inputs.Global.TotalRewardsPerSec))
		accruedReward.Mul(accruedReward, alphaDelta)

		cooldownConstant := orZero(inputs.Global.CooldownConstant)
		if variant == FormulaVariant_DividedByCooldownConstant && cooldownConstant.Sign() != 0 {
			accruedReward.Quo(accruedReward, cooldownConstant)
		}
	}

	return &AccrualResult{
		AccruedAlpha:  accruedAlpha,
		AlphaNow:      alphaNow,
		AccruedReward: accruedReward,
		TotalReward:   new(big.Int).Add(orZero(inputs.Reward.PublishedReward), accruedReward),
		Variant:       variant,
	}
}
