package source

import (
	"context"
	"errors"
	"time"

	"github.com/shitalnb11/indian-market-dashboard/internal/logger"
	"github.com/shitalnb11/indian-market-dashboard/internal/models"
	"github.com/shitalnb11/indian-market-dashboard/internal/storage"
)

// CachedProvider writes successful fetches through to the local bar cache.
// When the inner provider comes back empty and stale serving is enabled, it
// returns the cached lookback window instead.
type CachedProvider struct {
	inner      Provider
	store      *storage.Storage
	serveStale bool
}

func NewCachedProvider(inner Provider, store *storage.Storage, serveStale bool) *CachedProvider {
	return &CachedProvider{
		inner:      inner,
		store:      store,
		serveStale: serveStale,
	}
}

func (p *CachedProvider) Fetch(ctx context.Context, symbol string, lookbackDays int, interval string) (models.PriceSeries, error) {
	series, err := p.inner.Fetch(ctx, symbol, lookbackDays, interval)
	if err == nil {
		if upErr := p.store.UpsertBars(symbol, interval, series); upErr != nil {
			logger.Warn("Failed to cache %d bars for %s: %v", len(series), symbol, upErr)
		}
		return series, nil
	}

	if !p.serveStale || !errors.Is(err, ErrNoData) {
		return nil, err
	}

	from := time.Now().AddDate(0, 0, -lookbackDays)
	cached, loadErr := p.store.LoadSeries(symbol, interval, from)
	if loadErr != nil {
		logger.Warn("Bar cache lookup for %s failed: %v", symbol, loadErr)
		return nil, err
	}
	if len(cached) == 0 {
		return nil, err
	}

	logger.Warn("Serving %d cached bars for %s after fetch failure: %v", len(cached), symbol, err)
	return cached, nil
}
