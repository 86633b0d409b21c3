package signal

import (
	"time"

	"github.com/google/uuid"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

// Tracker remembers the last trend state observed per symbol and turns state
// changes into transition events. State lives for the process lifetime only.
// The polling loop is its single caller; it is not safe for concurrent use.
type Tracker struct {
	states map[string]models.TrendState
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]models.TrendState)}
}

// Observe records the state for symbol and returns a transition event when an
// alert-worthy change occurred, or nil.
//
// The first observation of a symbol is recorded without emitting. A move into
// TrendUndetermined is recorded but never emitted. A move out of
// TrendUndetermined into an actionable state emits, as does a direct flip
// between the two actionable states. Re-observing the same state is a no-op.
func (t *Tracker) Observe(symbol string, state models.TrendState, price float64, at time.Time) *models.TransitionEvent {
	prev, seen := t.states[symbol]
	t.states[symbol] = state

	if !seen {
		return nil
	}
	if state == prev || state == models.TrendUndetermined {
		return nil
	}

	return &models.TransitionEvent{
		ID:       uuid.NewString(),
		Symbol:   symbol,
		OldState: prev,
		NewState: state,
		Price:    price,
		At:       at,
	}
}

// LastState returns the most recently observed state for symbol.
func (t *Tracker) LastState(symbol string) (models.TrendState, bool) {
	state, ok := t.states[symbol]
	return state, ok
}
