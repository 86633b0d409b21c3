package models

import (
	"fmt"
	"strconv"
	"time"
)

// TrendState classifies the most recent bar of a symbol.
type TrendState int

const (
	TrendUndetermined TrendState = iota
	TrendBullish
	TrendBearish
)

func (t TrendState) String() string {
	switch t {
	case TrendBullish:
		return "bullish"
	case TrendBearish:
		return "bearish"
	default:
		return "undetermined"
	}
}

// Label returns the action shown to users for this state.
func (t TrendState) Label() string {
	switch t {
	case TrendBullish:
		return "BUY"
	case TrendBearish:
		return "SELL"
	default:
		return "WAIT"
	}
}

func (t TrendState) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *TrendState) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("trend state must be a JSON string: %w", err)
	}
	switch s {
	case "bullish":
		*t = TrendBullish
	case "bearish":
		*t = TrendBearish
	case "undetermined":
		*t = TrendUndetermined
	default:
		return fmt.Errorf("unknown trend state %q", s)
	}
	return nil
}

// AnnotatedBar is a price bar enriched with moving averages and the trend
// state derived from them. The averages are nil while the lookback window
// has fewer bars than the respective period.
type AnnotatedBar struct {
	PriceBar
	ShortMA *float64   `json:"short_ma"`
	LongMA  *float64   `json:"long_ma"`
	State   TrendState `json:"state"`
}

// SymbolSnapshot is the full annotated series for one symbol as of a poll.
// Markers is only populated when chart markers are enabled.
type SymbolSnapshot struct {
	Symbol   string         `json:"symbol"`
	Bars     []AnnotatedBar `json:"bars"`
	Markers  []Marker       `json:"markers,omitempty"`
	PolledAt time.Time      `json:"polled_at"`
}

// Latest returns the most recent annotated bar, if any.
func (s *SymbolSnapshot) Latest() (AnnotatedBar, bool) {
	if len(s.Bars) == 0 {
		return AnnotatedBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// LatestState returns the trend state of the most recent bar, or
// TrendUndetermined for an empty snapshot.
func (s *SymbolSnapshot) LatestState() TrendState {
	last, ok := s.Latest()
	if !ok {
		return TrendUndetermined
	}
	return last.State
}

// TransitionEvent records a change of a symbol's trend state between polls.
type TransitionEvent struct {
	ID       string     `json:"id"`
	Symbol   string     `json:"symbol"`
	OldState TrendState `json:"old_state"`
	NewState TrendState `json:"new_state"`
	Price    float64    `json:"price"`
	At       time.Time  `json:"at"`
}

// Marker is a chart annotation at a bar where the trend state flipped into
// an actionable state.
type Marker struct {
	Time  time.Time  `json:"time"`
	Price float64    `json:"price"`
	State TrendState `json:"state"`
	Label string     `json:"label"`
}

type SummaryRow struct {
	Symbol string     `json:"symbol"`
	Price  float64    `json:"price"`
	State  TrendState `json:"state"`
	Label  string     `json:"label"`
}

type CycleWarning struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// CycleSummary is the dashboard view of one completed poll cycle: a row per
// watched symbol that produced data, plus warnings for symbols that failed.
type CycleSummary struct {
	Rows        []SummaryRow   `json:"rows"`
	Warnings    []CycleWarning `json:"warnings,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}
