// Package poller runs the recurring polling cycle against the configured
// watchlist and fans results out to alerting and presentation.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shitalnb11/indian-market-dashboard/internal/config"
	"github.com/shitalnb11/indian-market-dashboard/internal/logger"
	"github.com/shitalnb11/indian-market-dashboard/internal/metrics"
	"github.com/shitalnb11/indian-market-dashboard/internal/models"
	"github.com/shitalnb11/indian-market-dashboard/internal/signal"
	"github.com/shitalnb11/indian-market-dashboard/internal/source"
	"github.com/shitalnb11/indian-market-dashboard/internal/storage"
	"github.com/shitalnb11/indian-market-dashboard/internal/telegram"
	"github.com/shitalnb11/indian-market-dashboard/internal/web"
)

// Poller owns the polling loop. Run is its single driving goroutine; the only
// state shared with other goroutines (the active config and the latest cycle
// summary) sits behind mu.
type Poller struct {
	provider source.Provider
	tracker  *signal.Tracker
	store    *storage.Storage
	telegram *telegram.Client
	web      *web.Server

	mu      sync.RWMutex
	cfg     *config.Config
	summary *models.CycleSummary

	consecutiveFailures int
}

// New creates a poller. store, telegramClient, and webServer may be nil when
// the corresponding feature is disabled.
func New(cfg *config.Config, provider source.Provider, store *storage.Storage, telegramClient *telegram.Client, webServer *web.Server) *Poller {
	return &Poller{
		provider: provider,
		tracker:  signal.NewTracker(),
		store:    store,
		telegram: telegramClient,
		web:      webServer,
		cfg:      cfg,
	}
}

// Reconfigure swaps in a new validated config. The next cycle picks it up;
// tracked signal states survive so a reload never re-alerts on old trends.
func (p *Poller) Reconfigure(cfg *config.Config) {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	logger.Info("Poller configuration updated (symbols: %d, windows: %d/%d, interval: %v)",
		len(cfg.Watchlist.Symbols), cfg.Signal.ShortWindow, cfg.Signal.LongWindow, cfg.Market.PollInterval)
}

// LatestSummary returns the most recent successful cycle, or nil before one
// completes.
func (p *Poller) LatestSummary() *models.CycleSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summary
}

func (p *Poller) currentConfig() *config.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Run polls immediately, then on every tick until ctx is cancelled. Failed
// cycles are reported and counted but never stop the loop.
func (p *Poller) Run(ctx context.Context) {
	interval := p.currentConfig().Market.PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug("Running initial polling cycle")
	p.handleCycleResult(p.RunCycle(ctx))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Polling loop stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled polling cycle")
			p.handleCycleResult(p.RunCycle(ctx))

			if p.store != nil {
				if pruned, err := p.store.Prune(time.Now()); err != nil {
					logger.Warn("Failed to prune cached bars: %v", err)
				} else if pruned > 0 {
					logger.Debug("Pruned %d cached bars past retention", pruned)
				}
			}

			if cur := p.currentConfig().Market.PollInterval; cur != interval {
				logger.Info("Poll interval changed from %v to %v", interval, cur)
				interval = cur
				ticker.Reset(interval)
			}
		}
	}
}

// RunCycle polls every watched symbol once. A symbol that fails is skipped
// with a warning; the cycle itself only fails when the context is cancelled
// or no symbol produced data.
func (p *Poller) RunCycle(ctx context.Context) error {
	cfg := p.currentConfig()
	start := time.Now()
	logger.Info("Starting polling cycle (%d symbols)", len(cfg.Watchlist.Symbols))

	engine := signal.NewEngine(signal.Config{
		ShortWindow: cfg.Signal.ShortWindow,
		LongWindow:  cfg.Signal.LongWindow,
	})

	polledAt := time.Now()
	rows := make([]models.SummaryRow, 0, len(cfg.Watchlist.Symbols))
	snapshots := make(map[string]*models.SymbolSnapshot, len(cfg.Watchlist.Symbols))
	var warnings []models.CycleWarning
	failed := 0

	for _, symbol := range cfg.Watchlist.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap, err := p.pollSymbol(ctx, engine, cfg, symbol, polledAt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			metrics.FetchErrorsTotal.WithLabelValues(symbol).Inc()
			logger.Warn("Skipping %s this cycle: %v", symbol, err)
			warnings = append(warnings, models.CycleWarning{Symbol: symbol, Reason: warningReason(err)})
			continue
		}

		bar, _ := snap.Latest()
		state := snap.LatestState()
		rows = append(rows, models.SummaryRow{
			Symbol: symbol,
			Price:  bar.Close,
			State:  state,
			Label:  state.Label(),
		})
		snapshots[symbol] = snap

		if ev := p.tracker.Observe(symbol, state, bar.Close, polledAt); ev != nil {
			metrics.TransitionsTotal.WithLabelValues(symbol, ev.NewState.String()).Inc()
			logger.Info("%s signal changed: %s -> %s at ₹%.2f", symbol, ev.OldState.Label(), ev.NewState.Label(), ev.Price)
			if p.telegram != nil {
				if err := p.telegram.SendTransition(ev); err != nil {
					logger.Error("Failed to send transition alert for %s: %v", symbol, err)
				}
			}
		}
	}

	duration := time.Since(start)
	metrics.CycleDuration.Set(duration.Seconds())

	if len(cfg.Watchlist.Symbols) > 0 && failed == len(cfg.Watchlist.Symbols) {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("all %d symbols failed this cycle", failed)
	}

	summary := &models.CycleSummary{Rows: rows, Warnings: warnings, GeneratedAt: polledAt}
	p.mu.Lock()
	p.summary = summary
	p.mu.Unlock()

	if p.web != nil {
		if err := p.web.Publish(summary, snapshots); err != nil {
			logger.Error("Failed to publish cycle to dashboard: %v", err)
		}
	}

	outcome := "success"
	if failed > 0 {
		outcome = "partial"
	}
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	logger.Info("Polling cycle completed in %v (%d ok, %d failed)", duration, len(rows), failed)
	return nil
}

func (p *Poller) pollSymbol(ctx context.Context, engine *signal.Engine, cfg *config.Config, symbol string, polledAt time.Time) (*models.SymbolSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, cfg.Market.Timeout)
	defer cancel()

	series, err := p.provider.Fetch(fetchCtx, symbol, cfg.Market.LookbackDays, cfg.Market.Interval)
	if err != nil {
		return nil, err
	}

	snap, err := engine.ComputeSnapshot(symbol, series, polledAt)
	if err != nil {
		return nil, err
	}
	if cfg.Signal.ShowMarkers {
		snap.Markers = signal.Markers(snap.Bars)
	}
	return snap, nil
}

// handleCycleResult keeps the consecutive-failure count and sends a Telegram
// notice on the first failure and on recovery.
func (p *Poller) handleCycleResult(err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		p.consecutiveFailures++
		logger.Error("Polling cycle failed: %v", err)
		if p.consecutiveFailures == 1 && p.telegram != nil {
			if sendErr := p.telegram.SendError(err); sendErr != nil {
				logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
			}
		}
		return
	}

	if p.consecutiveFailures > 0 && p.telegram != nil {
		if sendErr := p.telegram.SendRecovery(p.consecutiveFailures); sendErr != nil {
			logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
		}
	}
	p.consecutiveFailures = 0
}

func warningReason(err error) string {
	switch {
	case errors.Is(err, source.ErrNoData):
		return "no data returned"
	case errors.Is(err, signal.ErrEmptySeries):
		return "empty price series"
	default:
		return err.Error()
	}
}
