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
		&MsgDeposit{},
		&MsgWithdrawDeposit{},
		&MsgGrantReward{},
		&MsgClaimReward{},
		&MsgCloseEntry{},
	)
}

// MsgServer executes stability pool messages against the keeper
type MsgServer interface {
	Deposit(context.Context, *MsgDeposit) (*MsgEntryResponse, error)
	WithdrawDeposit(context.Context, *MsgWithdrawDeposit) (*MsgEntryResponse, error)
	GrantReward(context.Context, *MsgGrantReward) (*MsgEntryResponse, error)
	ClaimReward(context.Context, *MsgClaimReward) (*MsgClaimRewardResponse, error)
	CloseEntry(context.Context, *MsgCloseEntry) (*MsgCloseEntryResponse, error)
}

// MsgDeposit deposits debt tokens into the pool
type MsgDeposit struct {
	Depositor         string `json:"depositor"`
	Amount            uint64 `json:"amount"`
	TokenAccount      string `json:"token_account,omitempty"`
	GovernanceAccount string `json:"governance_account,omitempty"`
}

// MsgWithdrawDeposit withdraws part of a deposit
type MsgWithdrawDeposit struct {
	Depositor string `json:"depositor"`
	Amount    uint64 `json:"amount"`
}

// MsgGrantReward credits rewards to a depositor
type MsgGrantReward struct {
	Authority  string `json:"authority"`
	Depositor  string `json:"depositor"`
	Coin       uint64 `json:"coin"`
	Governance uint64 `json:"governance"`
	Token      uint64 `json:"token"`
}

// MsgClaimReward claims all accrued rewards
type MsgClaimReward struct {
	Depositor string `json:"depositor"`
}

// MsgCloseEntry removes an empty entry
type MsgCloseEntry struct {
	Depositor string `json:"depositor"`
}

func (msg *MsgDeposit) Reset()                  { *msg = MsgDeposit{} }
func (msg *MsgDeposit) String() string          { return msg.Depositor }
func (msg *MsgDeposit) ProtoMessage()           {}
func (msg *MsgDeposit) XXX_MessageName() string { return "cdp.stabilitypool.v1.MsgDeposit" }

func (msg *MsgWithdrawDeposit) Reset()         { *msg = MsgWithdrawDeposit{} }
func (msg *MsgWithdrawDeposit) String() string { return msg.Depositor }
func (msg *MsgWithdrawDeposit) ProtoMessage()  {}
func (msg *MsgWithdrawDeposit) XXX_MessageName() string {
	return "cdp.stabilitypool.v1.MsgWithdrawDeposit"
}

func (msg *MsgGrantReward) Reset()                  { *msg = MsgGrantReward{} }
func (msg *MsgGrantReward) String() string          { return msg.Depositor }
func (msg *MsgGrantReward) ProtoMessage()           {}
func (msg *MsgGrantReward) XXX_MessageName() string { return "cdp.stabilitypool.v1.MsgGrantReward" }

func (msg *MsgClaimReward) Reset()                  { *msg = MsgClaimReward{} }
func (msg *MsgClaimReward) String() string          { return msg.Depositor }
func (msg *MsgClaimReward) ProtoMessage()           {}
func (msg *MsgClaimReward) XXX_MessageName() string { return "cdp.stabilitypool.v1.MsgClaimReward" }

func (msg *MsgCloseEntry) Reset()                  { *msg = MsgCloseEntry{} }
func (msg *MsgCloseEntry) String() string          { return msg.Depositor }
func (msg *MsgCloseEntry) ProtoMessage()           {}
func (msg *MsgCloseEntry) XXX_MessageName() string { return "cdp.stabilitypool.v1.MsgCloseEntry" }

// ValidateBasic for MsgDeposit
func (msg *MsgDeposit) ValidateBasic() error {
	if err := validateAddress("depositor", msg.Depositor); err != nil {
		return err
	}
	if msg.Amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if msg.TokenAccount != "" {
		if err := validateAddress("token account", msg.TokenAccount); err != nil {
			return err
		}
	}
	if msg.GovernanceAccount != "" {
		return validateAddress("governance account", msg.GovernanceAccount)
	}
	return nil
}

// ValidateBasic for MsgWithdrawDeposit
func (msg *MsgWithdrawDeposit) ValidateBasic() error {
	if err := validateAddress("depositor", msg.Depositor); err != nil {
		return err
	}
	if msg.Amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}

// ValidateBasic for MsgGrantReward
func (msg *MsgGrantReward) ValidateBasic() error {
	if err := validateAddress("authority", msg.Authority); err != nil {
		return err
	}
	return validateAddress("depositor", msg.Depositor)
}

// ValidateBasic for MsgClaimReward
func (msg *MsgClaimReward) ValidateBasic() error {
	return validateAddress("depositor", msg.Depositor)
}

// ValidateBasic for MsgCloseEntry
func (msg *MsgCloseEntry) ValidateBasic() error {
	return validateAddress("depositor", msg.Depositor)
}

// GetSigners returns the signer addresses
func (msg *MsgDeposit) GetSigners() []sdk.AccAddress         { return signers(msg.Depositor) }
func (msg *MsgWithdrawDeposit) GetSigners() []sdk.AccAddress { return signers(msg.Depositor) }
func (msg *MsgGrantReward) GetSigners() []sdk.AccAddress     { return signers(msg.Authority) }
func (msg *MsgClaimReward) GetSigners() []sdk.AccAddress     { return signers(msg.Depositor) }
func (msg *MsgCloseEntry) GetSigners() []sdk.AccAddress      { return signers(msg.Depositor) }

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

// MsgEntryResponse returns the entry after a mutation
type MsgEntryResponse struct {
	Entry Entry `json:"entry"`
}

func (msg *MsgEntryResponse) Reset()         { *msg = MsgEntryResponse{} }
func (msg *MsgEntryResponse) String() string { return msg.Entry.Owner }
func (msg *MsgEntryResponse) ProtoMessage()  {}

// MsgClaimRewardResponse reports the claimed amounts
type MsgClaimRewardResponse struct {
	Claimed ClaimResult `json:"claimed"`
}

func (msg *MsgClaimRewardResponse) Reset() { *msg = MsgClaimRewardResponse{} }
func (msg *MsgClaimRewardResponse) String() string {
	return fmt.Sprintf("%d/%d/%d", msg.Claimed.TokenReward, msg.Claimed.GovernanceReward, msg.Claimed.CoinReward)
}
func (msg *MsgClaimRewardResponse) ProtoMessage() {}

// MsgCloseEntryResponse is the response for MsgCloseEntry
type MsgCloseEntryResponse struct{}

func (msg *MsgCloseEntryResponse) Reset()         { *msg = MsgCloseEntryResponse{} }
func (msg *MsgCloseEntryResponse) String() string { return "" }
func (msg *MsgCloseEntryResponse) ProtoMessage()  {}
