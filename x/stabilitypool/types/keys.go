package types

// Module name and store key
const (
	ModuleName = "stabilitypool"
	StoreKey   = ModuleName
)

// Store key prefixes
var (
	EntryKeyPrefix = []byte{0x01}
	PoolStateKey   = []byte{0x02}
	ParamsKey      = []byte{0x03}
)

// GetEntryKey returns the store key for a depositor's entry
func GetEntryKey(owner string) []byte {
	return append(EntryKeyPrefix, []byte(owner)...)
}
