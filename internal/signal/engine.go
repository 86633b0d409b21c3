package signal

import (
	"errors"
	"time"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

// ErrEmptySeries reports a series with no bars to compute over.
var ErrEmptySeries = errors.New("price series is empty")

type Config struct {
	ShortWindow int
	LongWindow  int
}

func DefaultConfig() Config {
	return Config{
		ShortWindow: 10,
		LongWindow:  50,
	}
}

// Engine derives annotated snapshots from raw price series.
type Engine struct {
	config Config
}

func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// ComputeSnapshot annotates every bar of the series with short and long
// moving averages over close prices and the trend state derived from them.
// Bars inside the warm-up window carry nil averages and TrendUndetermined.
func (e *Engine) ComputeSnapshot(symbol string, series models.PriceSeries, polledAt time.Time) (*models.SymbolSnapshot, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}

	closes := make([]float64, len(series))
	for i := range series {
		closes[i] = series[i].Close
	}

	shorts := RollingMeans(closes, e.config.ShortWindow)
	longs := RollingMeans(closes, e.config.LongWindow)

	bars := make([]models.AnnotatedBar, len(series))
	for i := range series {
		bars[i] = models.AnnotatedBar{
			PriceBar: series[i],
			ShortMA:  shorts[i],
			LongMA:   longs[i],
			State:    Classify(shorts[i], longs[i]),
		}
	}

	return &models.SymbolSnapshot{
		Symbol:   symbol,
		Bars:     bars,
		PolledAt: polledAt,
	}, nil
}

// Classify maps a pair of moving averages to a trend state. A missing
// average, or two exactly equal averages, is TrendUndetermined.
func Classify(short, long *float64) models.TrendState {
	if short == nil || long == nil {
		return models.TrendUndetermined
	}
	switch {
	case *short > *long:
		return models.TrendBullish
	case *short < *long:
		return models.TrendBearish
	default:
		return models.TrendUndetermined
	}
}

// Markers extracts the bars where the trend state flipped into an actionable
// state, for chart annotation. The first bar never yields a marker.
func Markers(bars []models.AnnotatedBar) []models.Marker {
	var markers []models.Marker
	for i := 1; i < len(bars); i++ {
		if bars[i].State == bars[i-1].State || bars[i].State == models.TrendUndetermined {
			continue
		}
		markers = append(markers, models.Marker{
			Time:  bars[i].Time,
			Price: bars[i].Close,
			State: bars[i].State,
			Label: bars[i].State.Label(),
		})
	}
	return markers
}
