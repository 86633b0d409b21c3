// Package models defines the core domain entities: price bars, annotated
// snapshots, and trend transition events.
package models

import (
	"errors"
	"time"
)

// PriceBar is one sampled OHLC observation for a symbol at a fixed interval.
// Volume is zero when the provider does not report it.
type PriceBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume,omitempty"`
}

// Validate checks bar field constraints.
func (b *PriceBar) Validate() error {
	if b.Time.IsZero() {
		return errors.New("bar timestamp must not be zero")
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return errors.New("bar prices must be positive")
	}
	if b.High < b.Open || b.High < b.Close {
		return errors.New("bar high must be >= max(open, close)")
	}
	if b.Low > b.Open || b.Low > b.Close {
		return errors.New("bar low must be <= min(open, close)")
	}
	if b.Volume < 0 {
		return errors.New("bar volume must not be negative")
	}
	return nil
}

// PriceSeries is an ordered sequence of bars for one symbol over a requested
// window. A series may be empty when the provider has no data.
type PriceSeries []PriceBar

// Validate checks per-bar constraints and that timestamps strictly increase.
func (s PriceSeries) Validate() error {
	for i := range s {
		if err := s[i].Validate(); err != nil {
			return err
		}
		if i > 0 && !s[i].Time.After(s[i-1].Time) {
			return errors.New("bar timestamps must strictly increase")
		}
	}
	return nil
}

// Last returns the most recent bar, if any.
func (s PriceSeries) Last() (PriceBar, bool) {
	if len(s) == 0 {
		return PriceBar{}, false
	}
	return s[len(s)-1], true
}
