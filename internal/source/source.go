// Package source fetches price series from market data providers.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

// ErrNoData reports that a provider produced no usable bars for a symbol.
// Unknown symbols, empty responses, and transport failures all surface as
// ErrNoData so the polling loop treats them uniformly: warn and skip.
var ErrNoData = errors.New("no price data available")

// Provider fetches the recent price series for one symbol. Implementations
// return bars ordered by strictly increasing timestamp.
type Provider interface {
	Fetch(ctx context.Context, symbol string, lookbackDays int, interval string) (models.PriceSeries, error)
}

// intervalDuration maps a config interval token to its bar spacing.
func intervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
}
