// Package render formats simulation results as terminal tables and HTML charts.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/bitalgo/bitalgo/internal/domain"
	"github.com/bitalgo/bitalgo/internal/services/simulation"
	"github.com/bitalgo/bitalgo/pkg/indicators"
)

const dateLayout = "2006-01-02"

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

var simulationHeaders = []string{
	"#", "Date", "Price", "Invested", "Units", "Cum. units", "Cum. invested", "Avg cost", "Return %",
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// Table renders the simulation rows followed by the summary lines.
func Table(rows []domain.SimulationRow, summary domain.Summary) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			strconv.Itoa(r.PeriodIndex + 1),
			formatDate(r),
			r.Price.String(),
			r.Contribution.String(),
			r.UnitsBought.StringFixed(8),
			r.CumulativeUnits.StringFixed(8),
			r.CumulativeInvested.String(),
			r.AverageCost.String(),
			r.ReturnRatePct.StringFixed(2),
		})
	}

	var b strings.Builder
	b.WriteString(newTable(simulationHeaders...).Rows(data...).String())
	b.WriteString("\n")
	b.WriteString(Summary(summary))
	return b.String()
}

// Summary renders the three summary values of a simulation.
func Summary(s domain.Summary) string {
	ret := s.FinalReturnRatePct.StringFixed(2) + "%"
	if s.FinalReturnRatePct.IsNegative() {
		ret = negativeStyle.Render(ret)
	} else {
		ret = positiveStyle.Render(ret)
	}

	return fmt.Sprintf("Periods:        %d\nTotal invested: %s\nTotal units:    %s\nFinal return:   %s\n",
		s.Periods, s.TotalInvested.String(), s.TotalUnits.StringFixed(6), ret)
}

// QuoteTable renders the live price board; the 24h column is blank when the
// exchange does not report it.
func QuoteTable(quotes []simulation.Quote) string {
	data := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		if q.Err != nil {
			data = append(data, []string{q.Pair.String(), "-", "", q.Err.Error()})
			continue
		}
		data = append(data, []string{q.Pair.String(), q.Price.String(), formatChange(q.Change24hPct), ""})
	}

	return newTable("Pair", "Price", "24h %", "Error").Rows(data...).String()
}

func formatChange(change decimal.NullDecimal) string {
	if !change.Valid {
		return ""
	}
	out := change.Decimal.StringFixed(2) + "%"
	if change.Decimal.IsNegative() {
		return negativeStyle.Render(out)
	}
	return positiveStyle.Render(out)
}

// HistoryTable renders closes with an EMA column; the EMA is blank during warmup
// or when there are fewer points than emaPeriod.
func HistoryTable(points []domain.PricePoint, emaPeriod int) string {
	ema := emaOverlay(points, emaPeriod)

	data := make([][]string, 0, len(points))
	for i, p := range points {
		emaCell := ""
		if ema[i].Valid {
			emaCell = ema[i].Decimal.StringFixed(2)
		}
		data = append(data, []string{p.Time.Format(dateLayout), p.Price.String(), emaCell})
	}

	return newTable("Date", "Close", emaSeriesName(emaPeriod)).Rows(data...).String()
}

func emaOverlay(points []domain.PricePoint, period int) []decimal.NullDecimal {
	values, err := indicators.CalculateEMA(domain.Prices(points), period)
	if err != nil {
		return make([]decimal.NullDecimal, len(points))
	}
	return indicators.Align(values, len(points))
}

func formatDate(r domain.SimulationRow) string {
	if r.Time.IsZero() {
		return "-"
	}
	return r.Time.Format(dateLayout)
}
