// Package bot adapts Telegram to the job pipeline: commands go to intake,
// and Reply delivers worker output back to the originating chat.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/rankbot/internal/domain"
	tele "gopkg.in/telebot.v3"
)

// Submitter accepts a command invocation
type Submitter interface {
	Submit(ctx context.Context, target domain.ReplyTarget, action domain.Action, args []string) (*domain.Job, error)
}

// Config holds Telegram settings
type Config struct {
	Token       string
	PollTimeout time.Duration
	// URL overrides the Bot API endpoint
	URL string
	// Offline skips the getMe call at construction
	Offline bool
}

// Bot is the Telegram front end
type Bot struct {
	api    *tele.Bot
	intake Submitter
	logger *slog.Logger
}

// New connects to the Bot API. Handlers are attached later with Register
// since intake needs the bot as its replier.
func New(cfg Config, logger *slog.Logger) (*Bot, error) {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}

	b := &Bot{logger: logger}

	pref := tele.Settings{
		URL:     cfg.URL,
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: cfg.PollTimeout},
		Offline: cfg.Offline,
		OnError: b.onError,
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	b.api = api
	return b, nil
}

// Register wires command handlers to the intake
func (b *Bot) Register(intake Submitter) {
	b.intake = intake

	b.api.Handle("/search", b.handleSearch)
	b.api.Handle("/intent", b.handleIntent)
	b.api.Handle("/start", b.handleHelp)
	b.api.Handle("/help", b.handleHelp)

	// free text is not a command
	b.api.Handle(tele.OnText, b.handleHelp)
}

// Start polls for updates until Stop is called
func (b *Bot) Start() {
	username := ""
	if b.api.Me != nil {
		username = b.api.Me.Username
	}
	b.logger.Info("Bot started", slog.String("username", username))
	b.api.Start()
}

// Stop ends polling
func (b *Bot) Stop() {
	b.logger.Info("Stopping bot...")
	b.api.Stop()
}

// Reply sends text to the target chat, threaded to the original message when
// it still exists
func (b *Bot) Reply(ctx context.Context, target domain.ReplyTarget, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	if target.ChatID == 0 {
		return fmt.Errorf("%w: empty chat id", domain.ErrDeliveryFailed)
	}

	opts := &tele.SendOptions{AllowWithoutReply: true}
	if target.MessageID != 0 {
		opts.ReplyTo = &tele.Message{ID: target.MessageID}
	}

	if _, err := b.api.Send(tele.ChatID(target.ChatID), text, opts); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return nil
}

func (b *Bot) onError(err error, c tele.Context) {
	attrs := []any{slog.String("error", err.Error())}
	if c != nil && c.Message() != nil {
		attrs = append(attrs, slog.String("text", c.Message().Text))
	}
	b.logger.Error("Telegram handler failed", attrs...)
}
