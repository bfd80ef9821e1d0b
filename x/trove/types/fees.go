package types

// FeeBreakdown is the fee pair charged on a debt amount
type FeeBreakdown struct {
	DepositorFee uint64 `json:"depositor_fee"`
	TeamFee      uint64 `json:"team_fee"`
}

// Total returns the sum of both fees
func (f FeeBreakdown) Total() (uint64, error) {
	return SafeAdd(f.DepositorFee, f.TeamFee)
}

// FeeCalculator derives depositor and team fees from a debt amount.
// All methods are pure.
type FeeCalculator struct {
	depositorRate uint64
	teamRate      uint64
	minDepositor  uint64
	minTeam       uint64
}

// NewFeeCalculator builds a calculator from params
func NewFeeCalculator(p Params) FeeCalculator {
	return FeeCalculator{
		depositorRate: p.DepositorFeeRate,
		teamRate:      p.TeamFeeRate,
		minDepositor:  p.MinDepositorFee,
		minTeam:       p.MinTeamFee,
	}
}

// DepositorFee = max(D × rate / 1000, minDepositorFee)
func (c FeeCalculator) DepositorFee(debt uint64) (uint64, error) {
	return flooredFee(debt, c.depositorRate, c.minDepositor)
}

// TeamFee = max(D × rate / 1000, minTeamFee)
func (c FeeCalculator) TeamFee(debt uint64) (uint64, error) {
	return flooredFee(debt, c.teamRate, c.minTeam)
}

// Fees computes both fees for debt
func (c FeeCalculator) Fees(debt uint64) (FeeBreakdown, error) {
	dep, err := c.DepositorFee(debt)
	if err != nil {
		return FeeBreakdown{}, err
	}
	team, err := c.TeamFee(debt)
	if err != nil {
		return FeeBreakdown{}, err
	}
	return FeeBreakdown{DepositorFee: dep, TeamFee: team}, nil
}

// NetSentAmount is the debt left after both fees are taken out of it
func (c FeeCalculator) NetSentAmount(debt uint64) (uint64, error) {
	fees, err := c.Fees(debt)
	if err != nil {
		return 0, err
	}
	total, err := fees.Total()
	if err != nil {
		return 0, err
	}
	return SafeSub(debt, total)
}

// AmountToClose is the debt that must be burned to settle a fresh trove of size debt
func (c FeeCalculator) AmountToClose(debt uint64) uint64 {
	return debt
}

func flooredFee(debt, rate, floor uint64) (uint64, error) {
	product, err := SafeMul(debt, rate)
	if err != nil {
		return 0, err
	}
	fee := product / FeeRateDenominator
	if fee < floor {
		return floor, nil
	}
	return fee, nil
}
