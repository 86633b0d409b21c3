package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"RELIANCE.NS", "RELIANCE\\.NS"},
		{"Price: ₹2843.20", "Price: ₹2843\\.20"},
		{"Test*bold*", "Test\\*bold\\*"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"+plus-minus", "\\+plus\\-minus"},
		{"=equal|pipe", "\\=equal\\|pipe"},
		{"{brace}", "\\{brace\\}"},
		{"end!", "end\\!"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatTransition(t *testing.T) {
	ev := &models.TransitionEvent{
		ID:       "evt-1",
		Symbol:   "RELIANCE.NS",
		OldState: models.TrendUndetermined,
		NewState: models.TrendBullish,
		Price:    2843.2,
		At:       time.Date(2025, 6, 2, 15, 30, 5, 0, time.UTC),
	}

	got := formatTransition(ev)
	want := "📈 *RELIANCE\\.NS Signal Changed\\!*\nWAIT → BUY\nNew Signal: BUY \\| Price ₹2843\\.20\n📅 2025\\-06\\-02 15:30:05\n"
	if got != want {
		t.Errorf("formatTransition() = %q, want %q", got, want)
	}
}

func TestFormatTransition_BearishEmoji(t *testing.T) {
	ev := &models.TransitionEvent{
		Symbol:   "TCS.NS",
		OldState: models.TrendBullish,
		NewState: models.TrendBearish,
		Price:    3501.1,
		At:       time.Date(2025, 6, 2, 15, 30, 5, 0, time.UTC),
	}

	got := formatTransition(ev)
	if !strings.HasPrefix(got, "📉") {
		t.Errorf("bearish alert should start with 📉, got %q", got)
	}
	if !strings.Contains(got, "BUY → SELL") {
		t.Errorf("alert should show the move, got %q", got)
	}
	if !strings.Contains(got, "New Signal: SELL") {
		t.Errorf("alert should name the new signal, got %q", got)
	}
}

func TestFormatStatus(t *testing.T) {
	if got := formatStatus(nil); got != "No signals yet" {
		t.Errorf("formatStatus(nil) = %q, want %q", got, "No signals yet")
	}
	if got := formatStatus(&models.CycleSummary{}); got != "No signals yet" {
		t.Errorf("formatStatus(empty) = %q, want %q", got, "No signals yet")
	}

	summary := &models.CycleSummary{
		Rows: []models.SummaryRow{
			{Symbol: "RELIANCE.NS", Price: 2843.2, State: models.TrendBullish, Label: "BUY"},
			{Symbol: "TCS.NS", Price: 3501.1, State: models.TrendUndetermined, Label: "WAIT"},
		},
		Warnings: []models.CycleWarning{
			{Symbol: "HDFCBANK.NS", Reason: "no price data available"},
		},
		GeneratedAt: time.Date(2025, 6, 2, 15, 30, 5, 0, time.UTC),
	}

	got := formatStatus(summary)
	for _, want := range []string{
		"Live Signals (Updated: 15:30:05)",
		"RELIANCE.NS",
		"₹2843.20",
		"BUY",
		"WAIT",
		"! HDFCBANK.NS: no price data available",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatStatus() missing %q in %q", want, got)
		}
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	// The bot token validation happens first (network call), so an empty token
	// fails before chat ID parsing; either way NewClient must error.
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}
