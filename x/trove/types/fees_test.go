package types

import (
	"testing"
)

func TestFeeCalculator_Floors(t *testing.T) {
	calc := NewFeeCalculator(DefaultParams())

	tests := []struct {
		name          string
		debt          uint64
		wantDepositor uint64
		wantTeam      uint64
	}{
		{"zero debt hits both floors", 0, 20, 5},
		{"small debt hits both floors", 100, 20, 5},
		{"depositor floor boundary", 200, 20, 9},
		{"team floor boundary", 107, 20, 5},
		{"above both floors", 1_000, 100, 47},
		{"large debt", 1_000_000, 100_000, 47_000},
		{"rounds down", 1_999, 199, 93},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dep, err := calc.DepositorFee(tt.debt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dep != tt.wantDepositor {
				t.Errorf("depositor fee: expected %d, got %d", tt.wantDepositor, dep)
			}
			team, err := calc.TeamFee(tt.debt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if team != tt.wantTeam {
				t.Errorf("team fee: expected %d, got %d", tt.wantTeam, team)
			}
		})
	}
}

func TestFeeCalculator_FloorProperty(t *testing.T) {
	p := DefaultParams()
	calc := NewFeeCalculator(p)

	for debt := uint64(0); debt < 5_000; debt += 7 {
		dep, _ := calc.DepositorFee(debt)
		raw := debt * p.DepositorFeeRate / FeeRateDenominator
		if raw < p.MinDepositorFee && dep != p.MinDepositorFee {
			t.Fatalf("debt %d: expected floor %d, got %d", debt, p.MinDepositorFee, dep)
		}
		if raw >= p.MinDepositorFee && dep != raw {
			t.Fatalf("debt %d: expected proportional fee %d, got %d", debt, raw, dep)
		}

		team, _ := calc.TeamFee(debt)
		raw = debt * p.TeamFeeRate / FeeRateDenominator
		if raw < p.MinTeamFee && team != p.MinTeamFee {
			t.Fatalf("debt %d: expected floor %d, got %d", debt, p.MinTeamFee, team)
		}
		if raw >= p.MinTeamFee && team != raw {
			t.Fatalf("debt %d: expected proportional fee %d, got %d", debt, raw, team)
		}
	}
}

func TestFeeCalculator_Overflow(t *testing.T) {
	calc := NewFeeCalculator(DefaultParams())

	if _, err := calc.DepositorFee(^uint64(0)); err == nil {
		t.Error("expected overflow for max debt")
	}
	if _, err := calc.Fees(^uint64(0) / 10); err == nil {
		t.Error("expected overflow on huge debt")
	}
}

func TestFeeCalculator_NetSentAmount(t *testing.T) {
	calc := NewFeeCalculator(DefaultParams())

	net, err := calc.NetSentAmount(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if net != 75 {
		t.Errorf("expected 75, got %d", net)
	}

	net, err = calc.NetSentAmount(10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if net != 10_000-1_000-470 {
		t.Errorf("expected %d, got %d", 10_000-1_000-470, net)
	}

	// fees larger than the debt itself cannot be netted
	if _, err := calc.NetSentAmount(10); err == nil {
		t.Error("expected underflow when floors exceed debt")
	}

	if calc.AmountToClose(123) != 123 {
		t.Error("amount to close must equal the borrowed amount")
	}
}
