package types

// Event types
const (
	EventTypeDeposit     = "stabilitypool_deposit"
	EventTypeWithdraw    = "stabilitypool_withdraw"
	EventTypeGrantReward = "stabilitypool_grant_reward"
	EventTypeClaimReward = "stabilitypool_claim_reward"
	EventTypeEntryClosed = "stabilitypool_entry_closed"
)

// Event attribute keys
const (
	AttributeKeyOwner            = "owner"
	AttributeKeyAmount           = "amount"
	AttributeKeyBalance          = "balance"
	AttributeKeyTokenReward      = "token_reward"
	AttributeKeyGovernanceReward = "governance_reward"
	AttributeKeyCoinReward       = "coin_reward"
)
