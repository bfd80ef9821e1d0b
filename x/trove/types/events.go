package types

// Event types
const (
	EventTypeTroveOpened        = "trove_opened"
	EventTypeTroveIncreased     = "trove_increased"
	EventTypeCollateralAdded    = "trove_collateral_added"
	EventTypeTroveRepaid        = "trove_repaid"
	EventTypeCollateralWithdraw = "trove_collateral_withdrawn"
	EventTypeTroveRedeemed      = "trove_redeemed"
	EventTypeTroveClosed        = "trove_closed"
	EventTypeTroveReceived      = "trove_received"
	EventTypeLiquidation        = "liquidation"
	EventTypePriceFeedUpdated   = "price_feed_updated"
)

// Event attribute keys
const (
	AttributeKeyOwner        = "owner"
	AttributeKeyDebt         = "debt"
	AttributeKeyCollateral   = "collateral"
	AttributeKeyDepositorFee = "depositor_fee"
	AttributeKeyTeamFee      = "team_fee"
	AttributeKeyNetAmount    = "net_amount"
	AttributeKeyAmount       = "amount"
	AttributeKeyToClose      = "amount_to_close"
	AttributeKeyRecipient    = "recipient"
	AttributeKeyLiquidator   = "liquidator"
	AttributeKeyLiquidation  = "liquidation_id"
	AttributeKeyFeedID       = "feed_id"
	AttributeKeyPrice        = "price"
	AttributeKeyExpo         = "expo"
)
