package source

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

// StubProvider generates a deterministic synthetic series per symbol, for
// offline runs and tests. The walk is seeded from the symbol name, so two
// fetches at the same clock step return identical bars, and different symbols
// trend differently.
type StubProvider struct {
	now func() time.Time
}

func NewStubProvider() *StubProvider {
	return &StubProvider{now: time.Now}
}

func (p *StubProvider) Fetch(_ context.Context, symbol string, lookbackDays int, interval string) (models.PriceSeries, error) {
	step, err := intervalDuration(interval)
	if err != nil {
		return nil, err
	}

	count := int(time.Duration(lookbackDays) * 24 * time.Hour / step)
	if count < 1 {
		count = 1
	}
	end := p.now().Truncate(step)

	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := h.Sum32()

	base := 500.0 + float64(seed%2500)
	phase := float64(seed%360) * math.Pi / 180

	series := make(models.PriceSeries, 0, count)
	prevClose := base
	for i := 0; i < count; i++ {
		ts := end.Add(-time.Duration(count-i) * step)
		wave := 0.06*math.Sin(float64(i)/24+phase) + 0.02*math.Sin(float64(i)/7)
		closeP := base * (1 + wave)

		openP := prevClose
		highP := math.Max(openP, closeP) * 1.002
		lowP := math.Min(openP, closeP) * 0.998

		series = append(series, models.PriceBar{
			Time:   ts,
			Open:   openP,
			High:   highP,
			Low:    lowP,
			Close:  closeP,
			Volume: float64(10000 + (seed+uint32(i))%5000),
		})
		prevClose = closeP
	}

	return series, nil
}
