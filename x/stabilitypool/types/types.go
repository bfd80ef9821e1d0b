package types

import (
	"fmt"

	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Entry is one depositor's position in the pool. Token amounts are in
// debt-token units; the coin reward is in native base units.
type Entry struct {
	Owner                       string `json:"owner"`
	TokenAccount                string `json:"token_account"`
	GovernanceAccount           string `json:"governance_account"`
	TokenAmount                 uint64 `json:"token_amount"`
	RewardTokenAmount           uint64 `json:"reward_token_amount"`
	RewardGovernanceTokenAmount uint64 `json:"reward_governance_token_amount"`
	RewardCoinAmount            uint64 `json:"reward_coin_amount"`
}

// NewEntry creates an empty entry; blank accounts default to the owner
func NewEntry(owner, tokenAccount, governanceAccount string) *Entry {
	if tokenAccount == "" {
		tokenAccount = owner
	}
	if governanceAccount == "" {
		governanceAccount = owner
	}
	return &Entry{
		Owner:             owner,
		TokenAccount:      tokenAccount,
		GovernanceAccount: governanceAccount,
	}
}

// HasRewards reports whether any reward is unclaimed
func (e *Entry) HasRewards() bool {
	return e.RewardTokenAmount > 0 || e.RewardGovernanceTokenAmount > 0 || e.RewardCoinAmount > 0
}

// IsEmpty reports whether the entry holds no deposit and no rewards
func (e *Entry) IsEmpty() bool {
	return e.TokenAmount == 0 && !e.HasRewards()
}

// PoolState aggregates pool-wide accounting
type PoolState struct {
	TotalDeposits       math.Int `json:"total_deposits"`
	TotalTokenRewards   math.Int `json:"total_token_rewards"`
	TotalGovRewards     math.Int `json:"total_gov_rewards"`
	TotalCoinRewards    math.Int `json:"total_coin_rewards"`
	TotalRewardsClaimed math.Int `json:"total_rewards_claimed"`
	Depositors          uint64   `json:"depositors"`
}

// NewPoolState returns a zeroed pool state
func NewPoolState() PoolState {
	return PoolState{
		TotalDeposits:       math.ZeroInt(),
		TotalTokenRewards:   math.ZeroInt(),
		TotalGovRewards:     math.ZeroInt(),
		TotalCoinRewards:    math.ZeroInt(),
		TotalRewardsClaimed: math.ZeroInt(),
	}
}

// Params configures governance-token unit conversion. Debt-token decimals
// are owned by the trove module so every mint and burn scales the same way.
type Params struct {
	GovernanceDecimals uint32 `json:"governance_decimals"`
}

// DefaultParams returns the default params
func DefaultParams() Params {
	return Params{GovernanceDecimals: 6}
}

// Validate checks the params
func (p Params) Validate() error {
	if p.GovernanceDecimals > 18 {
		return fmt.Errorf("%w: decimals above 18", ErrInvalidParams)
	}
	return nil
}

// ClaimResult reports what a claim paid out
type ClaimResult struct {
	TokenReward      uint64 `json:"token_reward"`
	GovernanceReward uint64 `json:"governance_reward"`
	CoinReward       uint64 `json:"coin_reward"`
}

// GenesisState is the stability pool's genesis. PoolState carries the reward
// totals; deposit totals and the depositor count are rebuilt from Entries.
type GenesisState struct {
	Params    Params     `json:"params"`
	Entries   []Entry    `json:"entries"`
	PoolState *PoolState `json:"pool_state,omitempty"`
}

// DefaultGenesis returns the default genesis state
func DefaultGenesis() *GenesisState {
	return &GenesisState{Params: DefaultParams()}
}

// Validate performs basic genesis validation
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(gs.Entries))
	for _, e := range gs.Entries {
		if _, err := sdk.AccAddressFromBech32(e.Owner); err != nil {
			return fmt.Errorf("entry owner %q: %w", e.Owner, err)
		}
		if seen[e.Owner] {
			return fmt.Errorf("duplicate entry for owner %s", e.Owner)
		}
		seen[e.Owner] = true
	}
	if gs.PoolState != nil {
		totals := map[string]math.Int{
			"total_token_rewards":   gs.PoolState.TotalTokenRewards,
			"total_gov_rewards":     gs.PoolState.TotalGovRewards,
			"total_coin_rewards":    gs.PoolState.TotalCoinRewards,
			"total_rewards_claimed": gs.PoolState.TotalRewardsClaimed,
		}
		for name, v := range totals {
			if !v.IsNil() && v.IsNegative() {
				return fmt.Errorf("%w: negative %s", ErrInvalidParams, name)
			}
		}
	}
	return nil
}
