package types

import "fmt"

// GenesisState is the trove module's genesis
type GenesisState struct {
	Params           Params        `json:"params"`
	Troves           []Trove       `json:"troves"`
	LiquidatedTroves []Trove       `json:"liquidated_troves,omitempty"`
	PriceFeeds       []PriceFeed   `json:"price_feeds"`
	Liquidations     []Liquidation `json:"liquidations"`
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
	seen := make(map[string]bool, len(gs.Troves))
	for _, t := range gs.Troves {
		if seen[t.Owner] {
			return fmt.Errorf("duplicate trove for owner %s", t.Owner)
		}
		seen[t.Owner] = true
		if t.IsLiquidated {
			return fmt.Errorf("trove %s is liquidated but listed as live", t.Owner)
		}
	}
	for _, t := range gs.LiquidatedTroves {
		if seen[t.Owner] {
			return fmt.Errorf("owner %s has both a live and a liquidated trove", t.Owner)
		}
		seen[t.Owner] = true
		if !t.IsLiquidated || !t.IsReceived {
			return fmt.Errorf("liquidated trove %s must be received and liquidated", t.Owner)
		}
	}
	for _, f := range gs.PriceFeeds {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}
