package types

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
)

// MaxPriceExponent bounds the feed exponent accepted by the adapter
const MaxPriceExponent = 18

// PriceFeed is a published price record for one feed handle.
// The quote value of one whole collateral unit is Price × 10^Expo.
type PriceFeed struct {
	FeedID      string    `json:"feed_id"`
	Price       int64     `json:"price"`
	Expo        int32     `json:"expo"`
	PublishTime time.Time `json:"publish_time"`
	Publisher   string    `json:"publisher"`
}

// Validate checks a feed before it is stored
func (f PriceFeed) Validate() error {
	if f.FeedID == "" {
		return fmt.Errorf("%w: empty feed id", ErrInvalidPrice)
	}
	if f.Price <= 0 {
		return fmt.Errorf("%w: price %d must be positive", ErrInvalidPrice, f.Price)
	}
	if f.Expo > MaxPriceExponent || f.Expo < -MaxPriceExponent {
		return fmt.Errorf("%w: exponent %d out of range", ErrInvalidPrice, f.Expo)
	}
	return nil
}

// PriceReading is one read of a feed. It is never persisted or reused across operations.
type PriceReading struct {
	Price       int64     `json:"price"`
	Expo        int32     `json:"expo"`
	PublishTime time.Time `json:"publish_time"`
}

// Value returns the price as a decimal, Price × 10^Expo
func (r PriceReading) Value() math.LegacyDec {
	v := math.LegacyNewDec(r.Price)
	scale := math.LegacyNewDec(10).Power(uint64(absInt32(r.Expo)))
	if r.Expo < 0 {
		return v.Quo(scale)
	}
	return v.Mul(scale)
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
