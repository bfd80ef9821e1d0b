package types

import (
	"context"

	pooltypes "github.com/openalpha/cdp-chain/x/stabilitypool/types"
	trovetypes "github.com/openalpha/cdp-chain/x/trove/types"
)

// Trove represents a trove in the API response
type Trove struct {
	*trovetypes.Trove
	Status string `json:"status"`
}

// NewTrove wraps a keeper trove for the API
func NewTrove(t *trovetypes.Trove) *Trove {
	if t == nil {
		return nil
	}
	return &Trove{Trove: t, Status: t.Status()}
}

// RiskEntry is one trove in the at-risk listing, lowest ratio first
type RiskEntry struct {
	Owner           string `json:"owner"`
	CollateralRatio string `json:"collateral_ratio"`
	AmountToClose   uint64 `json:"amount_to_close"`
	Collateral      uint64 `json:"collateral"`
	IsReceived      bool   `json:"is_received"`
}

// LiquidationStats totals executed liquidations
type LiquidationStats struct {
	Count            int    `json:"count"`
	CollateralSeized string `json:"collateral_seized"`
	DebtWrittenOff   string `json:"debt_written_off"`
}

// Price represents the current oracle reading
type Price struct {
	FeedID      string `json:"feed_id"`
	Price       int64  `json:"price"`
	Expo        int32  `json:"expo"`
	Value       string `json:"value"`
	PublishTime int64  `json:"publish_time"`
}

// Balances lists an account's ledger balances by denom
type Balances struct {
	Address  string            `json:"address"`
	Balances map[string]string `json:"balances"`
}

// Request fields tagged json:"-" name the acting identity. Handlers fill them
// from the authenticated caller, never from the body.

// OpenTroveRequest represents the request to open a trove
type OpenTroveRequest struct {
	Owner      string `json:"-"`
	Debt       uint64 `json:"debt,string"`
	Collateral uint64 `json:"collateral,string"`
}

// IncreaseTroveRequest represents the request to borrow more against a trove
type IncreaseTroveRequest struct {
	Owner      string `json:"-"`
	Debt       uint64 `json:"debt,string"`
	Collateral uint64 `json:"collateral,string"`
}

// AmountRequest carries the caller and an amount for single-amount trove operations
type AmountRequest struct {
	Caller string `json:"-"`
	Amount uint64 `json:"amount,string"`
}

// RedeemRequest represents an admin redemption of trove collateral
type RedeemRequest struct {
	Authority string `json:"-"`
	Amount    uint64 `json:"amount,string"`
	Recipient string `json:"recipient,omitempty"`
}

// CloseTroveRequest represents the request to close a trove
type CloseTroveRequest struct {
	Owner    string `json:"-"`
	Expected uint64 `json:"expected,string,omitempty"`
}

// CloseTroveResponse reports what closing a trove burned and refunded
type CloseTroveResponse struct {
	TroveID  string `json:"trove_id"`
	Burned   uint64 `json:"burned,string"`
	Refunded uint64 `json:"refunded,string"`
}

// AuthorityRequest carries the caller of an admin-only operation
type AuthorityRequest struct {
	Authority string `json:"-"`
}

// PublishPriceRequest represents a price update from the feed publisher
type PublishPriceRequest struct {
	Authority string `json:"-"`
	FeedID    string `json:"feed_id,omitempty"`
	Price     int64  `json:"price,string"`
	Expo      int32  `json:"expo"`
}

// FundRequest credits native currency to an address
type FundRequest struct {
	Authority string `json:"-"`
	Address   string `json:"address"`
	Amount    uint64 `json:"amount,string"`
}

// DepositRequest represents a stability pool deposit
type DepositRequest struct {
	Depositor         string `json:"-"`
	Amount            uint64 `json:"amount,string"`
	TokenAccount      string `json:"token_account,omitempty"`
	GovernanceAccount string `json:"governance_account,omitempty"`
}

// WithdrawRequest represents a stability pool withdrawal
type WithdrawRequest struct {
	Depositor string `json:"-"`
	Amount    uint64 `json:"amount,string"`
}

// GrantRewardRequest credits rewards to a depositor
type GrantRewardRequest struct {
	Authority  string `json:"-"`
	Depositor  string `json:"depositor"`
	Coin       uint64 `json:"coin,string"`
	Governance uint64 `json:"governance,string"`
	Token      uint64 `json:"token,string"`
}

// TroveService defines the interface for trove and liquidation operations
type TroveService interface {
	OpenTrove(ctx context.Context, req *OpenTroveRequest) (*Trove, error)
	IncreaseTrove(ctx context.Context, troveID string, req *IncreaseTroveRequest) (*Trove, error)
	AddCollateral(ctx context.Context, troveID string, req *AmountRequest) (*Trove, error)
	Repay(ctx context.Context, troveID string, req *AmountRequest) (*Trove, error)
	WithdrawCollateral(ctx context.Context, troveID string, req *AmountRequest) (*Trove, error)
	Redeem(ctx context.Context, troveID string, req *RedeemRequest) (*Trove, error)
	CloseTrove(ctx context.Context, troveID string, req *CloseTroveRequest) (*CloseTroveResponse, error)
	ReceiveTrove(ctx context.Context, troveID string, req *AuthorityRequest) (*Trove, error)
	Liquidate(ctx context.Context, troveID string, req *AuthorityRequest) (*trovetypes.Liquidation, error)

	GetTrove(ctx context.Context, troveID string) (*Trove, error)
	ListTroves(ctx context.Context) ([]*Trove, error)
	GetTroveHealth(ctx context.Context, troveID string) (*trovetypes.TroveHealth, error)
	ListAtRisk(ctx context.Context, limit int) ([]*RiskEntry, error)
	ListLiquidations(ctx context.Context, limit int) ([]*trovetypes.Liquidation, error)
	GetLiquidationStats(ctx context.Context) (*LiquidationStats, error)
}

// PoolService defines the interface for stability pool operations
type PoolService interface {
	Deposit(ctx context.Context, req *DepositRequest) (*pooltypes.Entry, error)
	WithdrawDeposit(ctx context.Context, req *WithdrawRequest) (*pooltypes.Entry, error)
	GrantReward(ctx context.Context, req *GrantRewardRequest) (*pooltypes.Entry, error)
	ClaimReward(ctx context.Context, depositor string) (*pooltypes.ClaimResult, error)
	CloseEntry(ctx context.Context, depositor string) error

	GetEntry(ctx context.Context, depositor string) (*pooltypes.Entry, error)
	GetPoolState(ctx context.Context) (*pooltypes.PoolState, error)
}

// OracleService defines the interface for price operations
type OracleService interface {
	PublishPrice(ctx context.Context, req *PublishPriceRequest) (*Price, error)
	GetPrice(ctx context.Context) (*Price, error)
}

// AccountService defines the interface for ledger balances
type AccountService interface {
	GetBalances(ctx context.Context, address string) (*Balances, error)
	Fund(ctx context.Context, req *FundRequest) (*Balances, error)
}
