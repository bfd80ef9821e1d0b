package keeper

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

var _ types.MsgServer = (*msgServer)(nil)

type msgServer struct {
	Keeper *Keeper
}

// NewMsgServerImpl returns an implementation of the MsgServer interface
func NewMsgServerImpl(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

// OpenTrove handles the MsgOpenTrove message
func (m *msgServer) OpenTrove(ctx context.Context, msg *types.MsgOpenTrove) (*types.MsgOpenTroveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	trove, err := m.Keeper.OpenTrove(sdk.UnwrapSDKContext(ctx), msg.Owner, msg.Debt, msg.Collateral)
	if err != nil {
		return nil, err
	}
	return &types.MsgOpenTroveResponse{
		TroveID:       trove.Owner,
		AmountToClose: trove.AmountToClose,
		DepositorFee:  trove.DepositorFee,
		TeamFee:       trove.TeamFee,
	}, nil
}

// IncreaseTrove handles the MsgIncreaseTrove message
func (m *msgServer) IncreaseTrove(ctx context.Context, msg *types.MsgIncreaseTrove) (*types.MsgTroveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return troveResponse(m.Keeper.IncreaseTrove(sdk.UnwrapSDKContext(ctx), msg.Owner, msg.TroveID, msg.Debt, msg.Collateral))
}

// AddCollateral handles the MsgAddCollateral message
func (m *msgServer) AddCollateral(ctx context.Context, msg *types.MsgAddCollateral) (*types.MsgTroveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return troveResponse(m.Keeper.AddCollateral(sdk.UnwrapSDKContext(ctx), msg.Owner, msg.TroveID, msg.Amount))
}

// Repay handles the MsgRepay message
func (m *msgServer) Repay(ctx context.Context, msg *types.MsgRepay) (*types.MsgTroveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return troveResponse(m.Keeper.Repay(sdk.UnwrapSDKContext(ctx), msg.Owner, msg.TroveID, msg.Amount))
}

// WithdrawCollateral handles the MsgWithdrawCollateral message
func (m *msgServer) WithdrawCollateral(ctx context.Context, msg *types.MsgWithdrawCollateral) (*types.MsgTroveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return troveResponse(m.Keeper.WithdrawCollateral(sdk.UnwrapSDKContext(ctx), msg.Owner, msg.TroveID, msg.Amount))
}

// Redeem handles the MsgRedeem message
func (m *msgServer) Redeem(ctx context.Context, msg *types.MsgRedeem) (*types.MsgTroveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return troveResponse(m.Keeper.Redeem(sdk.UnwrapSDKContext(ctx), msg.Authority, msg.TroveID, msg.Amount, msg.Recipient))
}

// CloseTrove handles the MsgCloseTrove message
func (m *msgServer) CloseTrove(ctx context.Context, msg *types.MsgCloseTrove) (*types.MsgCloseTroveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	burned, refunded, err := m.Keeper.CloseTrove(sdk.UnwrapSDKContext(ctx), msg.Owner, msg.TroveID, msg.ExpectedAmount)
	if err != nil {
		return nil, err
	}
	return &types.MsgCloseTroveResponse{Burned: burned, Refunded: refunded}, nil
}

// ReceiveTrove handles the MsgReceiveTrove message
func (m *msgServer) ReceiveTrove(ctx context.Context, msg *types.MsgReceiveTrove) (*types.MsgTroveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return troveResponse(m.Keeper.ReceiveTrove(sdk.UnwrapSDKContext(ctx), msg.Authority, msg.TroveID))
}

// Liquidate handles the MsgLiquidate message
func (m *msgServer) Liquidate(ctx context.Context, msg *types.MsgLiquidate) (*types.MsgLiquidateResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	liquidation, err := NewLiquidationEngine(m.Keeper).Liquidate(sdk.UnwrapSDKContext(ctx), msg.Authority, msg.TroveID)
	if err != nil {
		return nil, err
	}
	return &types.MsgLiquidateResponse{Liquidation: *liquidation}, nil
}

// UpdatePriceFeed handles the MsgUpdatePriceFeed message
func (m *msgServer) UpdatePriceFeed(ctx context.Context, msg *types.MsgUpdatePriceFeed) (*types.MsgUpdatePriceFeedResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := m.Keeper.PublishPrice(sdk.UnwrapSDKContext(ctx), msg.Authority, msg.FeedID, msg.Price, msg.Expo); err != nil {
		return nil, err
	}
	return &types.MsgUpdatePriceFeedResponse{}, nil
}

func troveResponse(trove *types.Trove, err error) (*types.MsgTroveResponse, error) {
	if err != nil {
		return nil, err
	}
	return &types.MsgTroveResponse{Trove: *trove}, nil
}
