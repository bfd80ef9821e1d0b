package keeper

import (
	"encoding/json"
	"fmt"
	"strconv"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

// deviationWarnPct triggers a warning log when a published price moves this much
var deviationWarnPct = math.LegacyNewDecWithPrec(10, 2) // 10%

// ============ Price Feed Store Operations ============

// SetPriceFeed stores a feed record
func (k *Keeper) SetPriceFeed(ctx sdk.Context, feed *types.PriceFeed) {
	bz, _ := json.Marshal(feed)
	k.GetStore(ctx).Set(types.GetPriceFeedKey(feed.FeedID), bz)
}

// GetPriceFeed retrieves a feed record
func (k *Keeper) GetPriceFeed(ctx sdk.Context, feedID string) *types.PriceFeed {
	bz := k.GetStore(ctx).Get(types.GetPriceFeedKey(feedID))
	if bz == nil {
		return nil
	}
	var feed types.PriceFeed
	if err := json.Unmarshal(bz, &feed); err != nil {
		return nil
	}
	return &feed
}

// PublishPrice records a new reading for a feed. Only the admin authority may publish.
func (k *Keeper) PublishPrice(ctx sdk.Context, caller, feedID string, price int64, expo int32) error {
	if caller != k.registry.AdminAuthority(ctx) {
		return errors.Wrapf(types.ErrUnauthorized, "%s cannot publish prices", caller)
	}
	feed := &types.PriceFeed{
		FeedID:      feedID,
		Price:       price,
		Expo:        expo,
		PublishTime: ctx.BlockTime(),
		Publisher:   caller,
	}
	if err := feed.Validate(); err != nil {
		return err
	}

	if prev := k.GetPriceFeed(ctx, feedID); prev != nil {
		oldVal := types.PriceReading{Price: prev.Price, Expo: prev.Expo}.Value()
		newVal := types.PriceReading{Price: price, Expo: expo}.Value()
		change := newVal.Sub(oldVal).Abs().Quo(oldVal)
		if change.GT(deviationWarnPct) {
			k.Logger().Warn("price feed moved sharply",
				"feed", feedID,
				"old", oldVal.String(),
				"new", newVal.String(),
				"change", change.String(),
			)
		}
	}

	k.SetPriceFeed(ctx, feed)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePriceFeedUpdated,
			sdk.NewAttribute(types.AttributeKeyFeedID, feedID),
			sdk.NewAttribute(types.AttributeKeyPrice, strconv.FormatInt(price, 10)),
			sdk.NewAttribute(types.AttributeKeyExpo, strconv.FormatInt(int64(expo), 10)),
		),
	)
	return nil
}

// ============ Price Oracle Adapter ============

// PriceOracleAdapter reads the collateral price from the configured feed.
// Readings are not cached: each call reads the feed once.
type PriceOracleAdapter struct {
	keeper *Keeper
}

// NewPriceOracleAdapter creates a new adapter
func NewPriceOracleAdapter(keeper *Keeper) *PriceOracleAdapter {
	return &PriceOracleAdapter{keeper: keeper}
}

// ReadPrice returns the current reading of feedID. When maxAge is positive,
// readings published more than maxAge seconds before the block time are rejected.
func (a *PriceOracleAdapter) ReadPrice(ctx sdk.Context, feedID string, maxAge int64) (types.PriceReading, error) {
	feed := a.keeper.GetPriceFeed(ctx, feedID)
	if feed == nil {
		return types.PriceReading{}, errors.Wrapf(types.ErrOracleUnavailable, "feed %s", feedID)
	}
	if feed.Price <= 0 {
		return types.PriceReading{}, errors.Wrapf(types.ErrInvalidPrice, "feed %s reports %d", feedID, feed.Price)
	}
	if maxAge > 0 {
		age := ctx.BlockTime().Sub(feed.PublishTime)
		if age.Seconds() > float64(maxAge) {
			return types.PriceReading{}, errors.Wrapf(types.ErrStalePrice,
				"feed %s is %s old, max %ds", feedID, age, maxAge)
		}
	}
	return types.PriceReading{
		Price:       feed.Price,
		Expo:        feed.Expo,
		PublishTime: feed.PublishTime,
	}, nil
}

// readCollateralPrice reads the feed configured in params
func (k *Keeper) readCollateralPrice(ctx sdk.Context, params types.Params) (types.PriceReading, error) {
	reading, err := NewPriceOracleAdapter(k).ReadPrice(ctx, params.PriceFeedID, params.MaxPriceAge)
	if err != nil {
		return types.PriceReading{}, fmt.Errorf("read collateral price: %w", err)
	}
	return reading, nil
}
