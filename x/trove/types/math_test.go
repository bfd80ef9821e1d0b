package types

import (
	"errors"
	"testing"

	"cosmossdk.io/math"
)

func TestCheckedArithmetic(t *testing.T) {
	const max = ^uint64(0)

	if v, err := SafeAdd(1, 2); err != nil || v != 3 {
		t.Errorf("SafeAdd(1, 2) = %d, %v", v, err)
	}
	if _, err := SafeAdd(max, 1); !errors.Is(err, ErrMathOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
	if v, err := SafeSub(5, 5); err != nil || v != 0 {
		t.Errorf("SafeSub(5, 5) = %d, %v", v, err)
	}
	if _, err := SafeSub(4, 5); !errors.Is(err, ErrMathOverflow) {
		t.Errorf("expected underflow, got %v", err)
	}
	if v, err := SafeMul(1<<32, 1<<31); err != nil || v != 1<<63 {
		t.Errorf("SafeMul = %d, %v", v, err)
	}
	if _, err := SafeMul(1<<32, 1<<32); !errors.Is(err, ErrMathOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestScaleAmount(t *testing.T) {
	if got := ScaleAmount(100, 6); !got.Equal(math.NewInt(100_000_000)) {
		t.Errorf("expected 100000000, got %s", got)
	}
	if got := ScaleAmount(7, 0); !got.Equal(math.NewInt(7)) {
		t.Errorf("expected 7, got %s", got)
	}
	// does not overflow past uint64
	got := ScaleAmount(^uint64(0), 18)
	if got.IsUint64() {
		t.Errorf("expected a value beyond uint64, got %s", got)
	}
}

func TestPriceReadingValue(t *testing.T) {
	tests := []struct {
		price int64
		expo  int32
		want  math.LegacyDec
	}{
		{11, -1, math.LegacyNewDecWithPrec(11, 1)},
		{15_000_000_000, -8, math.LegacyNewDec(150)},
		{3, 2, math.LegacyNewDec(300)},
		{42, 0, math.LegacyNewDec(42)},
	}
	for _, tt := range tests {
		got := PriceReading{Price: tt.price, Expo: tt.expo}.Value()
		if !got.Equal(tt.want) {
			t.Errorf("%d e%d: expected %s, got %s", tt.price, tt.expo, tt.want, got)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"depositor rate above denominator", func(p *Params) { p.DepositorFeeRate = 1001 }},
		{"team rate above denominator", func(p *Params) { p.TeamFeeRate = 1001 }},
		{"zero min debt", func(p *Params) { p.MinDebt = 0 }},
		{"zero ratio", func(p *Params) { p.MinCollateralRatio = math.LegacyZeroDec() }},
		{"too many decimals", func(p *Params) { p.DebtDecimals = 19 }},
		{"empty feed", func(p *Params) { p.PriceFeedID = "" }},
		{"negative max age", func(p *Params) { p.MaxPriceAge = -1 }},
		{"bad fee collector", func(p *Params) { p.TeamFeeCollector = "nope" }},
		{"bad treasury", func(p *Params) { p.LiquidationTreasury = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}
