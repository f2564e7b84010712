package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"

	"github.com/bitalgo/bitalgo/internal/domain"
)

// echarts treats "-" as a missing point
const missingValue = "-"

func chartInit() charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		Width:  "1200px",
		Height: "600px",
	})
}

// ReturnChart writes an HTML bar chart of the return rate of every period.
func ReturnChart(w io.Writer, title string, rows []domain.SimulationRow) error {
	if len(rows) == 0 {
		return errors.New("no rows to chart")
	}

	xAxis := make([]string, len(rows))
	bars := make([]opts.BarData, len(rows))
	for i, r := range rows {
		xAxis[i] = formatDate(r)
		if xAxis[i] == "-" {
			xAxis[i] = r.Price.String()
		}
		bars[i] = opts.BarData{Value: r.ReturnRatePct.Round(2).InexactFloat64()}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		chartInit(),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "Return rate per period against the floored average cost",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Return %"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	bar.SetXAxis(xAxis).AddSeries("Return %", bars)

	return errors.Wrap(bar.Render(w), "render return chart")
}

// PriceChart writes an HTML line chart of closes with an EMA overlay.
// The overlay is omitted when there are fewer points than emaPeriod.
func PriceChart(w io.Writer, title string, points []domain.PricePoint, emaPeriod int) error {
	if len(points) == 0 {
		return errors.New("no prices to chart")
	}

	xAxis := make([]string, len(points))
	closes := make([]opts.LineData, len(points))
	for i, p := range points {
		xAxis[i] = p.Time.Format(dateLayout)
		closes[i] = opts.LineData{Value: p.Price.InexactFloat64()}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		chartInit(),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Close"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	line.SetXAxis(xAxis).AddSeries("Close", closes,
		charts.WithLineStyleOpts(opts.LineStyle{Color: "#007aff", Width: 2}),
	)

	if emaPeriod > 0 && len(points) >= emaPeriod {
		ema := emaOverlay(points, emaPeriod)
		emaData := make([]opts.LineData, len(ema))
		for i, v := range ema {
			if !v.Valid {
				emaData[i] = opts.LineData{Value: missingValue}
				continue
			}
			emaData[i] = opts.LineData{Value: v.Decimal.Round(2).InexactFloat64()}
		}
		line.AddSeries(emaSeriesName(emaPeriod), emaData,
			charts.WithLineStyleOpts(opts.LineStyle{Color: "#ff9500", Width: 2}),
		)
	}

	return errors.Wrap(line.Render(w), "render price chart")
}

func emaSeriesName(period int) string {
	return fmt.Sprintf("EMA %d", period)
}
