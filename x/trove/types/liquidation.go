package types

import "time"

// Liquidation records one executed liquidation
type Liquidation struct {
	LiquidationID    string    `json:"liquidation_id"`
	Owner            string    `json:"owner"`
	Liquidator       string    `json:"liquidator"`
	Recipient        string    `json:"recipient"`
	CollateralSeized uint64    `json:"collateral_seized"`
	DebtOutstanding  uint64    `json:"debt_outstanding"`
	BlockHeight      int64     `json:"block_height"`
	Timestamp        time.Time `json:"timestamp"`
}
