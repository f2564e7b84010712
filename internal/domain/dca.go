package domain

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const (
	percentageMultiplier = 100
	// unitsPrecision decimal places kept for units bought per period.
	unitsPrecision = 40
)

// ErrInvalidInput matches every *InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid simulation input")

// InputRule names the precondition a simulation input violated.
type InputRule string

const (
	RuleEmptySeries       InputRule = "empty price series"
	RuleNonPositiveAmount InputRule = "non-positive periodic amount"
	RuleNonPositivePrice  InputRule = "non-positive price"
	RuleZeroAverageCost   InputRule = "average cost truncated to zero"
)

// InvalidInputError reports which precondition failed and where.
// Index is -1 when the rule is not tied to a period.
type InvalidInputError struct {
	Rule  InputRule
	Index int
	Value decimal.Decimal
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s (got %s)", ErrInvalidInput, e.Rule, e.Value.String())
	}
	return fmt.Sprintf("%s: %s at index %d (got %s)", ErrInvalidInput, e.Rule, e.Index, e.Value.String())
}

// Is makes errors.Is(err, ErrInvalidInput) hold for every rule.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ContributionPlan fixed amount invested every period.
type ContributionPlan struct {
	PeriodicAmount decimal.Decimal `json:"periodic_amount"`
}

// Validate rejects a non-positive periodic amount.
func (p ContributionPlan) Validate() error {
	if !p.PeriodicAmount.IsPositive() {
		return &InvalidInputError{Rule: RuleNonPositiveAmount, Index: -1, Value: p.PeriodicAmount}
	}
	return nil
}

// SimulationRow one period of a DCA simulation.
type SimulationRow struct {
	PeriodIndex        int             `json:"period_index"`
	Time               time.Time       `json:"time,omitempty"`
	Price              decimal.Decimal `json:"price"`
	Contribution       decimal.Decimal `json:"contribution"`
	UnitsBought        decimal.Decimal `json:"units_bought"`
	CumulativeUnits    decimal.Decimal `json:"cumulative_units"`
	CumulativeInvested decimal.Decimal `json:"cumulative_invested"`
	AverageCost        decimal.Decimal `json:"average_cost"`
	ReturnRatePct      decimal.Decimal `json:"return_rate_pct"`
}

// Summary headline numbers taken from the last simulated period.
type Summary struct {
	Periods            int             `json:"periods"`
	TotalInvested      decimal.Decimal `json:"total_invested"`
	TotalUnits         decimal.Decimal `json:"total_units"`
	FinalReturnRatePct decimal.Decimal `json:"final_return_rate_pct"`
}

// FloorCost truncates an exact non-negative cost to whole currency units.
func FloorCost(r *big.Rat) decimal.Decimal {
	q := new(big.Int).Quo(r.Num(), r.Denom())
	return decimal.NewFromBigInt(q, 0)
}

// ReturnRate returns the percentage difference of price relative to cost.
func ReturnRate(price, cost decimal.Decimal) decimal.Decimal {
	return price.Sub(cost).Div(cost).Mul(decimal.NewFromInt(percentageMultiplier))
}

// Simulate runs a dollar-cost-averaging simulation over prices, investing
// periodicAmount every period. It returns one row per price or an
// *InvalidInputError and no rows.
func Simulate(prices []decimal.Decimal, periodicAmount decimal.Decimal) ([]SimulationRow, error) {
	points := make([]PricePoint, len(prices))
	for i, p := range prices {
		points[i] = PricePoint{Price: p}
	}

	return SimulateSeries(points, ContributionPlan{PeriodicAmount: periodicAmount})
}

// SimulateSeries is Simulate over timestamped prices; row times are carried over.
func SimulateSeries(points []PricePoint, plan ContributionPlan) ([]SimulationRow, error) {
	if err := validateInput(points, plan); err != nil {
		return nil, err
	}

	rows := make([]SimulationRow, 0, len(points))
	runningUnits := decimal.Zero
	runningInvested := decimal.Zero
	// exact running units; the average cost is floored from these, not from the rounded decimals
	exactUnits := new(big.Rat)

	for i, point := range points {
		contribution := plan.PeriodicAmount
		unitsBought := contribution.DivRound(point.Price, unitsPrecision)

		runningUnits = runningUnits.Add(unitsBought)
		runningInvested = runningInvested.Add(contribution)
		exactUnits.Add(exactUnits, new(big.Rat).Quo(contribution.Rat(), point.Price.Rat()))

		averageCost := FloorCost(new(big.Rat).Quo(runningInvested.Rat(), exactUnits))
		if !averageCost.IsPositive() {
			return nil, &InvalidInputError{Rule: RuleZeroAverageCost, Index: i, Value: point.Price}
		}

		rows = append(rows, SimulationRow{
			PeriodIndex:        i,
			Time:               point.Time,
			Price:              point.Price,
			Contribution:       contribution,
			UnitsBought:        unitsBought,
			CumulativeUnits:    runningUnits,
			CumulativeInvested: runningInvested,
			AverageCost:        averageCost,
			ReturnRatePct:      ReturnRate(point.Price, averageCost),
		})
	}

	return rows, nil
}

func validateInput(points []PricePoint, plan ContributionPlan) error {
	if len(points) == 0 {
		return &InvalidInputError{Rule: RuleEmptySeries, Index: -1, Value: decimal.Zero}
	}
	if err := plan.Validate(); err != nil {
		return err
	}
	for i, point := range points {
		if !point.Price.IsPositive() {
			return &InvalidInputError{Rule: RuleNonPositivePrice, Index: i, Value: point.Price}
		}
	}
	return nil
}

// Summarize returns the summary of a simulation.
func Summarize(rows []SimulationRow) (Summary, error) {
	if len(rows) == 0 {
		return Summary{}, fmt.Errorf("cannot summarize empty simulation")
	}

	last := rows[len(rows)-1]

	return Summary{
		Periods:            len(rows),
		TotalInvested:      last.CumulativeInvested,
		TotalUnits:         last.CumulativeUnits,
		FinalReturnRatePct: last.ReturnRatePct,
	}, nil
}
