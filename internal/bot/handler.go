package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cuongbtq/rankbot/internal/domain"
	tele "gopkg.in/telebot.v3"
)

const helpText = `Send a keyword and I will look it up on Google.

/search <keyword> - top 10 ranking domains
/intent <keyword> - top 10 results with their result type`

// /search <keyword>
func (b *Bot) handleSearch(c tele.Context) error {
	return b.submit(c, domain.ActionRank)
}

// /intent <keyword>
func (b *Bot) handleIntent(c tele.Context) error {
	return b.submit(c, domain.ActionIntent)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(helpText)
}

func (b *Bot) submit(c tele.Context, action domain.Action) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return nil
	}

	target := domain.ReplyTarget{ChatID: msg.Chat.ID, MessageID: msg.ID}
	args := strings.Fields(msg.Payload)

	// usage and ack replies are sent by intake
	_, err := b.intake.Submit(context.Background(), target, action, args)
	if err != nil && !errors.Is(err, domain.ErrEmptyKeyword) {
		b.logger.Warn("Request not queued",
			slog.Int64("chat_id", target.ChatID),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
