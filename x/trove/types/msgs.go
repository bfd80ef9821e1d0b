package types

import (
	"context"
	"fmt"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgOpenTrove{},
		&MsgIncreaseTrove{},
		&MsgAddCollateral{},
		&MsgRepay{},
		&MsgWithdrawCollateral{},
		&MsgRedeem{},
		&MsgCloseTrove{},
		&MsgReceiveTrove{},
		&MsgLiquidate{},
		&MsgUpdatePriceFeed{},
	)
}

// MsgServer executes trove messages against the keeper. The cdp-api service
// drives every trove write through it.
type MsgServer interface {
	OpenTrove(context.Context, *MsgOpenTrove) (*MsgOpenTroveResponse, error)
	IncreaseTrove(context.Context, *MsgIncreaseTrove) (*MsgTroveResponse, error)
	AddCollateral(context.Context, *MsgAddCollateral) (*MsgTroveResponse, error)
	Repay(context.Context, *MsgRepay) (*MsgTroveResponse, error)
	WithdrawCollateral(context.Context, *MsgWithdrawCollateral) (*MsgTroveResponse, error)
	Redeem(context.Context, *MsgRedeem) (*MsgTroveResponse, error)
	CloseTrove(context.Context, *MsgCloseTrove) (*MsgCloseTroveResponse, error)
	ReceiveTrove(context.Context, *MsgReceiveTrove) (*MsgTroveResponse, error)
	Liquidate(context.Context, *MsgLiquidate) (*MsgLiquidateResponse, error)
	UpdatePriceFeed(context.Context, *MsgUpdatePriceFeed) (*MsgUpdatePriceFeedResponse, error)
}

// MsgOpenTrove opens a trove for Owner
type MsgOpenTrove struct {
	Owner      string `json:"owner"`
	Debt       uint64 `json:"debt"`
	Collateral uint64 `json:"collateral"`
}

// MsgIncreaseTrove borrows more against an existing trove
type MsgIncreaseTrove struct {
	Owner      string `json:"owner"`
	TroveID    string `json:"trove_id"`
	Debt       uint64 `json:"debt"`
	Collateral uint64 `json:"collateral"`
}

// MsgAddCollateral tops up trove collateral
type MsgAddCollateral struct {
	Owner   string `json:"owner"`
	TroveID string `json:"trove_id"`
	Amount  uint64 `json:"amount"`
}

// MsgRepay burns debt tokens against a trove
type MsgRepay struct {
	Owner   string `json:"owner"`
	TroveID string `json:"trove_id"`
	Amount  uint64 `json:"amount"`
}

// MsgWithdrawCollateral releases collateral back to the owner
type MsgWithdrawCollateral struct {
	Owner   string `json:"owner"`
	TroveID string `json:"trove_id"`
	Amount  uint64 `json:"amount"`
}

// MsgRedeem is the administrative collateral release path
type MsgRedeem struct {
	Authority string `json:"authority"`
	TroveID   string `json:"trove_id"`
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient,omitempty"`
}

// MsgCloseTrove pays the outstanding debt and closes the trove.
// A non-zero ExpectedAmount must match the trove's amount to close.
type MsgCloseTrove struct {
	Owner          string `json:"owner"`
	TroveID        string `json:"trove_id"`
	ExpectedAmount uint64 `json:"expected_amount,omitempty"`
}

// MsgReceiveTrove marks a trove as received by the liquidation authority
type MsgReceiveTrove struct {
	Authority string `json:"authority"`
	TroveID   string `json:"trove_id"`
}

// MsgLiquidate liquidates a received trove
type MsgLiquidate struct {
	Authority string `json:"authority"`
	TroveID   string `json:"trove_id"`
}

// MsgUpdatePriceFeed publishes a price reading for a feed
type MsgUpdatePriceFeed struct {
	Authority string `json:"authority"`
	FeedID    string `json:"feed_id"`
	Price     int64  `json:"price"`
	Expo      int32  `json:"expo"`
}

// Proto interface implementations
func (msg *MsgOpenTrove) Reset()                  { *msg = MsgOpenTrove{} }
func (msg *MsgOpenTrove) String() string          { return msg.Owner }
func (msg *MsgOpenTrove) ProtoMessage()           {}
func (msg *MsgOpenTrove) XXX_MessageName() string { return "cdp.trove.v1.MsgOpenTrove" }

func (msg *MsgIncreaseTrove) Reset()                  { *msg = MsgIncreaseTrove{} }
func (msg *MsgIncreaseTrove) String() string          { return msg.TroveID }
func (msg *MsgIncreaseTrove) ProtoMessage()           {}
func (msg *MsgIncreaseTrove) XXX_MessageName() string { return "cdp.trove.v1.MsgIncreaseTrove" }

func (msg *MsgAddCollateral) Reset()                  { *msg = MsgAddCollateral{} }
func (msg *MsgAddCollateral) String() string          { return msg.TroveID }
func (msg *MsgAddCollateral) ProtoMessage()           {}
func (msg *MsgAddCollateral) XXX_MessageName() string { return "cdp.trove.v1.MsgAddCollateral" }

func (msg *MsgRepay) Reset()                  { *msg = MsgRepay{} }
func (msg *MsgRepay) String() string          { return msg.TroveID }
func (msg *MsgRepay) ProtoMessage()           {}
func (msg *MsgRepay) XXX_MessageName() string { return "cdp.trove.v1.MsgRepay" }

func (msg *MsgWithdrawCollateral) Reset()         { *msg = MsgWithdrawCollateral{} }
func (msg *MsgWithdrawCollateral) String() string { return msg.TroveID }
func (msg *MsgWithdrawCollateral) ProtoMessage()  {}
func (msg *MsgWithdrawCollateral) XXX_MessageName() string {
	return "cdp.trove.v1.MsgWithdrawCollateral"
}

func (msg *MsgRedeem) Reset()                  { *msg = MsgRedeem{} }
func (msg *MsgRedeem) String() string          { return msg.TroveID }
func (msg *MsgRedeem) ProtoMessage()           {}
func (msg *MsgRedeem) XXX_MessageName() string { return "cdp.trove.v1.MsgRedeem" }

func (msg *MsgCloseTrove) Reset()                  { *msg = MsgCloseTrove{} }
func (msg *MsgCloseTrove) String() string          { return msg.TroveID }
func (msg *MsgCloseTrove) ProtoMessage()           {}
func (msg *MsgCloseTrove) XXX_MessageName() string { return "cdp.trove.v1.MsgCloseTrove" }

func (msg *MsgReceiveTrove) Reset()                  { *msg = MsgReceiveTrove{} }
func (msg *MsgReceiveTrove) String() string          { return msg.TroveID }
func (msg *MsgReceiveTrove) ProtoMessage()           {}
func (msg *MsgReceiveTrove) XXX_MessageName() string { return "cdp.trove.v1.MsgReceiveTrove" }

func (msg *MsgLiquidate) Reset()                  { *msg = MsgLiquidate{} }
func (msg *MsgLiquidate) String() string          { return msg.TroveID }
func (msg *MsgLiquidate) ProtoMessage()           {}
func (msg *MsgLiquidate) XXX_MessageName() string { return "cdp.trove.v1.MsgLiquidate" }

func (msg *MsgUpdatePriceFeed) Reset()                  { *msg = MsgUpdatePriceFeed{} }
func (msg *MsgUpdatePriceFeed) String() string          { return msg.FeedID }
func (msg *MsgUpdatePriceFeed) ProtoMessage()           {}
func (msg *MsgUpdatePriceFeed) XXX_MessageName() string { return "cdp.trove.v1.MsgUpdatePriceFeed" }

// ValidateBasic for MsgOpenTrove
func (msg *MsgOpenTrove) ValidateBasic() error {
	if err := validateAddress("owner", msg.Owner); err != nil {
		return err
	}
	if msg.Debt == 0 || msg.Collateral == 0 {
		return fmt.Errorf("%w: debt and collateral must be positive", ErrInvalidAmount)
	}
	return nil
}

// ValidateBasic for MsgIncreaseTrove
func (msg *MsgIncreaseTrove) ValidateBasic() error {
	if err := validateOwnerAndTrove(msg.Owner, msg.TroveID); err != nil {
		return err
	}
	if msg.Debt == 0 && msg.Collateral == 0 {
		return fmt.Errorf("%w: nothing to increase", ErrInvalidAmount)
	}
	return nil
}

// ValidateBasic for MsgAddCollateral
func (msg *MsgAddCollateral) ValidateBasic() error {
	return validateAmountMsg(msg.Owner, msg.TroveID, msg.Amount)
}

// ValidateBasic for MsgRepay
func (msg *MsgRepay) ValidateBasic() error {
	return validateAmountMsg(msg.Owner, msg.TroveID, msg.Amount)
}

// ValidateBasic for MsgWithdrawCollateral
func (msg *MsgWithdrawCollateral) ValidateBasic() error {
	return validateAmountMsg(msg.Owner, msg.TroveID, msg.Amount)
}

// ValidateBasic for MsgRedeem
func (msg *MsgRedeem) ValidateBasic() error {
	if err := validateAmountMsg(msg.Authority, msg.TroveID, msg.Amount); err != nil {
		return err
	}
	if msg.Recipient != "" {
		return validateAddress("recipient", msg.Recipient)
	}
	return nil
}

// ValidateBasic for MsgCloseTrove
func (msg *MsgCloseTrove) ValidateBasic() error {
	return validateOwnerAndTrove(msg.Owner, msg.TroveID)
}

// ValidateBasic for MsgReceiveTrove
func (msg *MsgReceiveTrove) ValidateBasic() error {
	return validateOwnerAndTrove(msg.Authority, msg.TroveID)
}

// ValidateBasic for MsgLiquidate
func (msg *MsgLiquidate) ValidateBasic() error {
	return validateOwnerAndTrove(msg.Authority, msg.TroveID)
}

// ValidateBasic for MsgUpdatePriceFeed
func (msg *MsgUpdatePriceFeed) ValidateBasic() error {
	if err := validateAddress("authority", msg.Authority); err != nil {
		return err
	}
	return PriceFeed{FeedID: msg.FeedID, Price: msg.Price, Expo: msg.Expo}.Validate()
}

// GetSigners returns the signer addresses
func (msg *MsgOpenTrove) GetSigners() []sdk.AccAddress          { return signers(msg.Owner) }
func (msg *MsgIncreaseTrove) GetSigners() []sdk.AccAddress      { return signers(msg.Owner) }
func (msg *MsgAddCollateral) GetSigners() []sdk.AccAddress      { return signers(msg.Owner) }
func (msg *MsgRepay) GetSigners() []sdk.AccAddress              { return signers(msg.Owner) }
func (msg *MsgWithdrawCollateral) GetSigners() []sdk.AccAddress { return signers(msg.Owner) }
func (msg *MsgRedeem) GetSigners() []sdk.AccAddress             { return signers(msg.Authority) }
func (msg *MsgCloseTrove) GetSigners() []sdk.AccAddress         { return signers(msg.Owner) }
func (msg *MsgReceiveTrove) GetSigners() []sdk.AccAddress       { return signers(msg.Authority) }
func (msg *MsgLiquidate) GetSigners() []sdk.AccAddress          { return signers(msg.Authority) }
func (msg *MsgUpdatePriceFeed) GetSigners() []sdk.AccAddress    { return signers(msg.Authority) }

func signers(addr string) []sdk.AccAddress {
	acc, _ := sdk.AccAddressFromBech32(addr)
	return []sdk.AccAddress{acc}
}

func validateAddress(field, addr string) error {
	if _, err := sdk.AccAddressFromBech32(addr); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAddress, field, err)
	}
	return nil
}

func validateOwnerAndTrove(signer, troveID string) error {
	if err := validateAddress("signer", signer); err != nil {
		return err
	}
	return validateAddress("trove id", troveID)
}

func validateAmountMsg(signer, troveID string, amount uint64) error {
	if err := validateOwnerAndTrove(signer, troveID); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}

// MsgOpenTroveResponse is the response for MsgOpenTrove
type MsgOpenTroveResponse struct {
	TroveID       string `json:"trove_id"`
	AmountToClose uint64 `json:"amount_to_close"`
	DepositorFee  uint64 `json:"depositor_fee"`
	TeamFee       uint64 `json:"team_fee"`
}

func (msg *MsgOpenTroveResponse) Reset()         { *msg = MsgOpenTroveResponse{} }
func (msg *MsgOpenTroveResponse) String() string { return msg.TroveID }
func (msg *MsgOpenTroveResponse) ProtoMessage()  {}

// MsgTroveResponse returns the trove after a mutation
type MsgTroveResponse struct {
	Trove Trove `json:"trove"`
}

func (msg *MsgTroveResponse) Reset()         { *msg = MsgTroveResponse{} }
func (msg *MsgTroveResponse) String() string { return msg.Trove.Owner }
func (msg *MsgTroveResponse) ProtoMessage()  {}

// MsgCloseTroveResponse is the response for MsgCloseTrove
type MsgCloseTroveResponse struct {
	Burned   uint64 `json:"burned"`
	Refunded uint64 `json:"refunded"`
}

func (msg *MsgCloseTroveResponse) Reset()         { *msg = MsgCloseTroveResponse{} }
func (msg *MsgCloseTroveResponse) String() string { return fmt.Sprintf("%d/%d", msg.Burned, msg.Refunded) }
func (msg *MsgCloseTroveResponse) ProtoMessage()  {}

// MsgLiquidateResponse is the response for MsgLiquidate
type MsgLiquidateResponse struct {
	Liquidation Liquidation `json:"liquidation"`
}

func (msg *MsgLiquidateResponse) Reset()         { *msg = MsgLiquidateResponse{} }
func (msg *MsgLiquidateResponse) String() string { return msg.Liquidation.LiquidationID }
func (msg *MsgLiquidateResponse) ProtoMessage()  {}

// MsgUpdatePriceFeedResponse is the response for MsgUpdatePriceFeed
type MsgUpdatePriceFeedResponse struct{}

func (msg *MsgUpdatePriceFeedResponse) Reset()         { *msg = MsgUpdatePriceFeedResponse{} }
func (msg *MsgUpdatePriceFeedResponse) String() string { return "" }
func (msg *MsgUpdatePriceFeedResponse) ProtoMessage()  {}
