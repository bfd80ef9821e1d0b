package keeper

import (
	"context"

	"github.com/openalpha/cdp-chain/x/stabilitypool/types"
)

var _ types.MsgServer = (*msgServer)(nil)

type msgServer struct {
	Keeper *Keeper
}

// NewMsgServerImpl returns an implementation of the MsgServer interface
func NewMsgServerImpl(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

// Deposit handles MsgDeposit
func (m *msgServer) Deposit(ctx context.Context, msg *types.MsgDeposit) (*types.MsgEntryResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return entryResponse(m.Keeper.Deposit(ctx, msg.Depositor, msg.Amount, msg.TokenAccount, msg.GovernanceAccount))
}

// WithdrawDeposit handles MsgWithdrawDeposit
func (m *msgServer) WithdrawDeposit(ctx context.Context, msg *types.MsgWithdrawDeposit) (*types.MsgEntryResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return entryResponse(m.Keeper.WithdrawDeposit(ctx, msg.Depositor, msg.Amount))
}

// GrantReward handles MsgGrantReward
func (m *msgServer) GrantReward(ctx context.Context, msg *types.MsgGrantReward) (*types.MsgEntryResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return entryResponse(m.Keeper.GrantReward(ctx, msg.Authority, msg.Depositor, msg.Coin, msg.Governance, msg.Token))
}

// ClaimReward handles MsgClaimReward
func (m *msgServer) ClaimReward(ctx context.Context, msg *types.MsgClaimReward) (*types.MsgClaimRewardResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	claimed, err := m.Keeper.ClaimReward(ctx, msg.Depositor)
	if err != nil {
		return nil, err
	}
	return &types.MsgClaimRewardResponse{Claimed: claimed}, nil
}

// CloseEntry handles MsgCloseEntry
func (m *msgServer) CloseEntry(ctx context.Context, msg *types.MsgCloseEntry) (*types.MsgCloseEntryResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := m.Keeper.CloseEntry(ctx, msg.Depositor); err != nil {
		return nil, err
	}
	return &types.MsgCloseEntryResponse{}, nil
}

func entryResponse(entry *types.Entry, err error) (*types.MsgEntryResponse, error) {
	if err != nil {
		return nil, err
	}
	return &types.MsgEntryResponse{Entry: *entry}, nil
}
