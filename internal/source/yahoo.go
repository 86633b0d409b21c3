package source

import (
	"context"
	"fmt"
	"math"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

// YahooProvider fetches OHLC bars from Yahoo Finance chart data. NSE symbols
// use the exchange suffix, e.g. "RELIANCE.NS".
type YahooProvider struct{}

func NewYahooProvider() *YahooProvider {
	return &YahooProvider{}
}

// Fetch retrieves bars covering the lookback window. A symbol Yahoo does not
// know, an empty chart, and a transport failure all map to ErrNoData.
func (p *YahooProvider) Fetch(ctx context.Context, symbol string, lookbackDays int, interval string) (models.PriceSeries, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)

	params := &chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.Interval(interval),
	}

	iter := chart.Get(params)

	var series models.PriceSeries
	for iter.Next() {
		bar, ok := convertBar(iter.Bar())
		if !ok {
			continue
		}
		// Providers occasionally repeat or reorder bars around session
		// boundaries; keep the series strictly increasing.
		if n := len(series); n > 0 && !bar.Time.After(series[n-1].Time) {
			continue
		}
		series = append(series, bar)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoData, symbol, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	return series, nil
}

// convertBar turns a Yahoo chart bar into a domain bar. Bars without a usable
// close are dropped; partially filled rows get their missing sides patched so
// the result satisfies PriceBar.Validate.
func convertBar(b *finance.ChartBar) (models.PriceBar, bool) {
	closeP := price(b.Close)
	if closeP <= 0 {
		return models.PriceBar{}, false
	}
	openP := price(b.Open)
	highP := price(b.High)
	lowP := price(b.Low)

	if openP <= 0 {
		openP = closeP
	}
	if top := math.Max(openP, closeP); highP < top {
		highP = top
	}
	if bottom := math.Min(openP, closeP); lowP <= 0 || lowP > bottom {
		lowP = bottom
	}

	return models.PriceBar{
		Time:   time.Unix(int64(b.Timestamp), 0),
		Open:   openP,
		High:   highP,
		Low:    lowP,
		Close:  closeP,
		Volume: float64(b.Volume),
	}, true
}

// price collapses Yahoo's decimal quotes to the float64 the rest of the
// pipeline works in. Exactness ends at this boundary.
func price(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

