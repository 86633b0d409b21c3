package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

func f(v float64) *float64 { return &v }

// makeSeries builds an hourly series where each bar closes at the given price.
func makeSeries(closes []float64) models.PriceSeries {
	base := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	series := make(models.PriceSeries, len(closes))
	for i, c := range closes {
		series[i] = models.PriceBar{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return series
}

func TestRollingMeans(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
		want   []*float64
	}{
		{
			name:   "window one is identity",
			values: []float64{10, 12, 14},
			window: 1,
			want:   []*float64{f(10), f(12), f(14)},
		},
		{
			name:   "window larger than input yields all nil",
			values: []float64{10, 12, 14},
			window: 4,
			want:   []*float64{nil, nil, nil},
		},
		{
			name:   "window equals input length",
			values: []float64{10, 12, 14},
			window: 3,
			want:   []*float64{nil, nil, f(12)},
		},
		{
			name:   "trailing window slides",
			values: []float64{10, 10, 10, 12, 14, 16, 18, 20},
			window: 4,
			want:   []*float64{nil, nil, nil, f(10.5), f(11.5), f(13), f(15), f(17)},
		},
		{
			name:   "zero window yields all nil",
			values: []float64{10, 12},
			window: 0,
			want:   []*float64{nil, nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RollingMeans(tt.values, tt.window)
			if len(got) != len(tt.want) {
				t.Fatalf("RollingMeans returned %d values, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				switch {
				case tt.want[i] == nil && got[i] != nil:
					t.Errorf("index %d = %v, want nil", i, *got[i])
				case tt.want[i] != nil && got[i] == nil:
					t.Errorf("index %d = nil, want %v", i, *tt.want[i])
				case tt.want[i] != nil && *got[i] != *tt.want[i]:
					t.Errorf("index %d = %v, want %v", i, *got[i], *tt.want[i])
				}
			}
		})
	}
}

// TestComputeSnapshot_GoldenCrossover walks the canonical rising series.
//
// Closes [10 10 10 12 14 16 18 20] with windows 2/4:
//
//	short(2): _ 10 10 11 13 15 17 19
//	long(4):  _  _  _ 10.5 11.5 13 15 17
//
// The final bar has shortMA=19 > longMA=17, so the series ends bullish. All
// sums involved are exact in float64, so the assertions compare exactly.
func TestComputeSnapshot_GoldenCrossover(t *testing.T) {
	engine := NewEngine(Config{ShortWindow: 2, LongWindow: 4})
	series := makeSeries([]float64{10, 10, 10, 12, 14, 16, 18, 20})
	polledAt := time.Date(2025, 6, 3, 15, 30, 0, 0, time.UTC)

	snap, err := engine.ComputeSnapshot("RELIANCE.NS", series, polledAt)
	if err != nil {
		t.Fatalf("ComputeSnapshot failed: %v", err)
	}
	if snap.Symbol != "RELIANCE.NS" {
		t.Errorf("Symbol = %q, want RELIANCE.NS", snap.Symbol)
	}
	if !snap.PolledAt.Equal(polledAt) {
		t.Errorf("PolledAt = %v, want %v", snap.PolledAt, polledAt)
	}
	if len(snap.Bars) != len(series) {
		t.Fatalf("annotated %d bars, want %d", len(snap.Bars), len(series))
	}

	wantShort := []*float64{nil, f(10), f(10), f(11), f(13), f(15), f(17), f(19)}
	wantLong := []*float64{nil, nil, nil, f(10.5), f(11.5), f(13), f(15), f(17)}
	wantState := []models.TrendState{
		models.TrendUndetermined, models.TrendUndetermined, models.TrendUndetermined,
		models.TrendBullish, models.TrendBullish, models.TrendBullish,
		models.TrendBullish, models.TrendBullish,
	}

	checkMA := func(i int, name string, got, want *float64) {
		switch {
		case want == nil && got != nil:
			t.Errorf("bar %d %s = %v, want nil", i, name, *got)
		case want != nil && got == nil:
			t.Errorf("bar %d %s = nil, want %v", i, name, *want)
		case want != nil && *got != *want:
			t.Errorf("bar %d %s = %v, want %v", i, name, *got, *want)
		}
	}

	for i, bar := range snap.Bars {
		checkMA(i, "ShortMA", bar.ShortMA, wantShort[i])
		checkMA(i, "LongMA", bar.LongMA, wantLong[i])
		if bar.State != wantState[i] {
			t.Errorf("bar %d State = %v, want %v", i, bar.State, wantState[i])
		}
		if bar.Close != series[i].Close {
			t.Errorf("bar %d Close = %v, want %v", i, bar.Close, series[i].Close)
		}
	}

	if got := snap.LatestState(); got != models.TrendBullish {
		t.Errorf("LatestState() = %v, want TrendBullish", got)
	}
}

func TestComputeSnapshot_DecliningSeriesEndsBearish(t *testing.T) {
	engine := NewEngine(Config{ShortWindow: 2, LongWindow: 4})
	series := makeSeries([]float64{20, 20, 20, 18, 16, 14, 12, 10})

	snap, err := engine.ComputeSnapshot("TCS.NS", series, time.Now())
	if err != nil {
		t.Fatalf("ComputeSnapshot failed: %v", err)
	}
	if got := snap.LatestState(); got != models.TrendBearish {
		t.Errorf("LatestState() = %v, want TrendBearish", got)
	}
}

// On a strictly increasing series the short average always sits above the
// long one, so every bar with both averages defined must classify bullish.
func TestComputeSnapshot_StrictlyRisingSeriesStaysBullish(t *testing.T) {
	engine := NewEngine(Config{ShortWindow: 3, LongWindow: 8})
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	series := makeSeries(closes)

	snap, err := engine.ComputeSnapshot("INFY.NS", series, time.Now())
	if err != nil {
		t.Fatalf("ComputeSnapshot failed: %v", err)
	}
	for i, bar := range snap.Bars {
		if bar.ShortMA == nil || bar.LongMA == nil {
			if i >= 7 {
				t.Errorf("bar %d has undefined averages past the warm-up", i)
			}
			continue
		}
		if *bar.ShortMA <= *bar.LongMA {
			t.Errorf("bar %d ShortMA = %v not above LongMA = %v", i, *bar.ShortMA, *bar.LongMA)
		}
		if bar.State != models.TrendBullish {
			t.Errorf("bar %d State = %v, want TrendBullish", i, bar.State)
		}
	}
}

func TestComputeSnapshot_EmptySeries(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	_, err := engine.ComputeSnapshot("RELIANCE.NS", models.PriceSeries{}, time.Now())
	if !errors.Is(err, ErrEmptySeries) {
		t.Errorf("ComputeSnapshot on empty series: err = %v, want ErrEmptySeries", err)
	}
}

// A series shorter than the long window produces annotated bars throughout,
// every one of them undetermined. It must never error or panic.
func TestComputeSnapshot_ShorterThanLongWindow(t *testing.T) {
	engine := NewEngine(Config{ShortWindow: 2, LongWindow: 50})
	series := makeSeries([]float64{10, 11, 12})

	snap, err := engine.ComputeSnapshot("HDFCBANK.NS", series, time.Now())
	if err != nil {
		t.Fatalf("ComputeSnapshot failed: %v", err)
	}
	for i, bar := range snap.Bars {
		if bar.LongMA != nil {
			t.Errorf("bar %d LongMA = %v, want nil", i, *bar.LongMA)
		}
		if bar.State != models.TrendUndetermined {
			t.Errorf("bar %d State = %v, want TrendUndetermined", i, bar.State)
		}
	}
}

// Identical windows make the two averages exactly equal on every bar, which
// classifies as undetermined rather than as either actionable state.
func TestComputeSnapshot_EqualWindowsAlwaysUndetermined(t *testing.T) {
	engine := NewEngine(Config{ShortWindow: 3, LongWindow: 3})
	series := makeSeries([]float64{10, 12, 14, 16, 18})

	snap, err := engine.ComputeSnapshot("RELIANCE.NS", series, time.Now())
	if err != nil {
		t.Fatalf("ComputeSnapshot failed: %v", err)
	}
	for i, bar := range snap.Bars {
		if bar.State != models.TrendUndetermined {
			t.Errorf("bar %d State = %v, want TrendUndetermined", i, bar.State)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		short *float64
		long  *float64
		want  models.TrendState
	}{
		{"both missing", nil, nil, models.TrendUndetermined},
		{"short missing", nil, f(10), models.TrendUndetermined},
		{"long missing", f(10), nil, models.TrendUndetermined},
		{"short above long", f(19), f(17), models.TrendBullish},
		{"short below long", f(15), f(17), models.TrendBearish},
		{"exactly equal", f(17), f(17), models.TrendUndetermined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.short, tt.long); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkers(t *testing.T) {
	series := makeSeries([]float64{10, 10, 10, 12, 14})
	states := []models.TrendState{
		models.TrendUndetermined,
		models.TrendUndetermined,
		models.TrendBullish,
		models.TrendBullish,
		models.TrendBearish,
	}
	bars := make([]models.AnnotatedBar, len(series))
	for i := range series {
		bars[i] = models.AnnotatedBar{PriceBar: series[i], State: states[i]}
	}

	markers := Markers(bars)
	if len(markers) != 2 {
		t.Fatalf("Markers() returned %d markers, want 2", len(markers))
	}
	if markers[0].State != models.TrendBullish || markers[0].Label != "BUY" {
		t.Errorf("first marker = %v/%q, want bullish/BUY", markers[0].State, markers[0].Label)
	}
	if !markers[0].Time.Equal(bars[2].Time) {
		t.Errorf("first marker at %v, want %v", markers[0].Time, bars[2].Time)
	}
	if markers[1].State != models.TrendBearish || markers[1].Label != "SELL" {
		t.Errorf("second marker = %v/%q, want bearish/SELL", markers[1].State, markers[1].Label)
	}

	// An actionable first bar yields no marker; there is nothing to flip from.
	bars[0].State = models.TrendBullish
	bars[1].State = models.TrendBullish
	markers = Markers(bars)
	for _, m := range markers {
		if m.Time.Equal(bars[0].Time) {
			t.Error("Markers() must not annotate the first bar")
		}
	}
}
