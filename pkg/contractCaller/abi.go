package contractCaller

// FinthetixStakingContractAbi covers the read methods and events of the staking contract.
// The "viewMy*" methods read the position of msg.sender and must be called with From set.
const FinthetixStakingContractAbi = `[
	{"type":"function","name":"viewMyStakedAmt","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"viewMyPublishedRewards","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"viewAlphaAtMyLastInteraction","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"alphaNow","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalStakedAmt","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"lastUpdatedRewardAt","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"COOLDOWN_CONSTANT","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"TOTAL_REWARDS_PER_SECOND","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"stakingToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"rewardToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"StakeBalChanged","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"totalAmtStaked","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"UserRewardUpdated","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"rewardBal","type":"uint256","indexed":false}
	]}
]`

// Erc20Abi is the subset of ERC-20 used for token metadata and balances.
const Erc20Abi = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const (
	Method_ViewMyStakedAmt              = "viewMyStakedAmt"
	Method_ViewMyPublishedRewards       = "viewMyPublishedRewards"
	Method_ViewAlphaAtMyLastInteraction = "viewAlphaAtMyLastInteraction"
	Method_AlphaNow                     = "alphaNow"
	Method_TotalStakedAmt               = "totalStakedAmt"
	Method_LastUpdatedRewardAt          = "lastUpdatedRewardAt"
	Method_CooldownConstant             = "COOLDOWN_CONSTANT"
	Method_TotalRewardsPerSecond        = "TOTAL_REWARDS_PER_SECOND"
	Method_StakingToken                 = "stakingToken"
	Method_RewardToken                  = "rewardToken"

	Method_Decimals  = "decimals"
	Method_Symbol    = "symbol"
	Method_BalanceOf = "balanceOf"

	Event_StakeBalChanged   = "StakeBalChanged"
	Event_UserRewardUpdated = "UserRewardUpdated"
)
