package types

// Trove is a borrower's collateralized debt position. There is at most one per owner,
// and the owner address doubles as the position id.
type Trove struct {
	Owner         string `json:"owner"`
	IsInitialized bool   `json:"is_initialized"`
	IsReceived    bool   `json:"is_received"`
	IsLiquidated  bool   `json:"is_liquidated"`

	BorrowAmount     uint64 `json:"borrow_amount"`     // cumulative debt principal, debt units
	CollateralAmount uint64 `json:"collateral_amount"` // locked native, base units
	DepositorFee     uint64 `json:"depositor_fee"`     // accumulated, informational
	TeamFee          uint64 `json:"team_fee"`          // accumulated, informational
	AmountToClose    uint64 `json:"amount_to_close"`   // outstanding debt
}

// NewTrove creates an initialized trove for owner
func NewTrove(owner string, debt, collateral uint64, fees FeeBreakdown) *Trove {
	return &Trove{
		Owner:            owner,
		IsInitialized:    true,
		BorrowAmount:     debt,
		CollateralAmount: collateral,
		DepositorFee:     fees.DepositorFee,
		TeamFee:          fees.TeamFee,
		AmountToClose:    debt,
	}
}

// Trove status strings
const (
	TroveStatusActive     = "active"
	TroveStatusReceived   = "received"
	TroveStatusLiquidated = "liquidated"
)

// Status returns the lifecycle state of the trove
func (t *Trove) Status() string {
	switch {
	case t.IsLiquidated:
		return TroveStatusLiquidated
	case t.IsReceived:
		return TroveStatusReceived
	default:
		return TroveStatusActive
	}
}

// TroveHealth is a read-only snapshot of a trove's collateralization at the current price
type TroveHealth struct {
	Owner           string `json:"owner"`
	CollateralRatio string `json:"collateral_ratio"`
	MinRatio        string `json:"min_ratio"`
	IsHealthy       bool   `json:"is_healthy"`
	Price           string `json:"price"`
	AmountToClose   uint64 `json:"amount_to_close"`
	Collateral      uint64 `json:"collateral"`
}
