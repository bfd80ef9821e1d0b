package types

// Module name and store key
const (
	ModuleName = "trove"
	StoreKey   = ModuleName

	// TeamFeeCollectorName is the module account that receives team fees
	TeamFeeCollectorName = "trove_team"

	// StabilityPoolModuleName is the default depositor fee destination
	StabilityPoolModuleName = "stabilitypool"
)

// Store key prefixes
var (
	TroveKeyPrefix         = []byte{0x01}
	ParamsKey              = []byte{0x02}
	PriceFeedKeyPrefix     = []byte{0x10}
	LiquidationKeyPrefix   = []byte{0x20}
	LiquidationCounterKey  = []byte{0x21}
	LiquidatedOwnerPrefix  = []byte{0x22}
)

// GetTroveKey returns the store key for the trove owned by owner
func GetTroveKey(owner string) []byte {
	return append(TroveKeyPrefix, []byte(owner)...)
}

// GetPriceFeedKey returns the store key for a price feed
func GetPriceFeedKey(feedID string) []byte {
	return append(PriceFeedKeyPrefix, []byte(feedID)...)
}

// GetLiquidationKey returns the store key for a liquidation record
func GetLiquidationKey(id string) []byte {
	return append(LiquidationKeyPrefix, []byte(id)...)
}

// GetLiquidatedOwnerKey returns the key of the terminal trove left behind by a liquidation
func GetLiquidatedOwnerKey(owner string) []byte {
	return append(LiquidatedOwnerPrefix, []byte(owner)...)
}
