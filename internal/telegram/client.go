// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	summary        func() *models.CycleSummary
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SetSummaryProvider wires the source of the latest cycle summary used by the
// /status command.
func (c *Client) SetSummaryProvider(fn func() *models.CycleSummary) {
	c.summary = fn
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	case "status":
		var summary *models.CycleSummary
		if c.summary != nil {
			summary = c.summary()
		}
		reply := tgbotapi.NewMessage(msg.Chat.ID, formatStatus(summary))
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a polling error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Polling error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Polling recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendTransition sends a trend change alert for one symbol.
func (c *Client) SendTransition(ev *models.TransitionEvent) error {
	return c.sendMarkdownV2(formatTransition(ev))
}

// formatTransition formats a transition event into a Telegram MarkdownV2 message.
func formatTransition(ev *models.TransitionEvent) string {
	emoji := "📈"
	if ev.NewState == models.TrendBearish {
		emoji = "📉"
	}

	title := escapeMarkdownV2(fmt.Sprintf("%s Signal Changed!", ev.Symbol))
	move := escapeMarkdownV2(fmt.Sprintf("%s → %s", ev.OldState.Label(), ev.NewState.Label()))
	body := escapeMarkdownV2(fmt.Sprintf("New Signal: %s | Price ₹%.2f", ev.NewState.Label(), ev.Price))
	dateStr := escapeMarkdownV2(ev.At.Format("2006-01-02 15:04:05"))

	return fmt.Sprintf("%s *%s*\n%s\n%s\n📅 %s\n", emoji, title, move, body, dateStr)
}

// formatStatus renders the latest cycle summary as the plain-text table shown
// by the /status command.
func formatStatus(summary *models.CycleSummary) string {
	if summary == nil || (len(summary.Rows) == 0 && len(summary.Warnings) == 0) {
		return "No signals yet"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live Signals (Updated: %s)\n", summary.GeneratedAt.Format("15:04:05"))
	for _, row := range summary.Rows {
		fmt.Fprintf(&b, "%-14s ₹%.2f  %s\n", row.Symbol, row.Price, row.Label)
	}
	for _, w := range summary.Warnings {
		fmt.Fprintf(&b, "! %s: %s\n", w.Symbol, w.Reason)
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
