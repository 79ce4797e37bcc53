package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/ctlst/telegramollamabot/internal/markdown"
)

// messageLimit stays under Telegram's 4096-character cap with headroom for
// escape characters added during rendering.
const messageLimit = 4000

// sender is the outbound half of the Telegram API, extracted so handlers can
// be tested without the network.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type deliveryMode struct {
	parseMode string
	render    func(string) string
}

func raw(s string) string { return s }

// deliveryModes is the fallback cascade for one fragment: strict MarkdownV2
// with escaping, then legacy Markdown as-is, then plain text.
var deliveryModes = []deliveryMode{
	{parseMode: tgbotapi.ModeMarkdownV2, render: markdown.EscapeV2},
	{parseMode: tgbotapi.ModeMarkdown, render: raw},
	{parseMode: "", render: raw},
}

// deliver splits text into fragments and sends them strictly in order, with
// pacing between sends. A fragment that fails in every mode aborts the rest.
func (b *Bot) deliver(ctx context.Context, chatID int64, text string) error {
	fragments := markdown.Split(text, messageLimit)
	// Pacing is scoped to this delivery so a long reply in one chat
	// never holds up fragments bound for another.
	limiter := rate.NewLimiter(rate.Every(b.pacing), 1)
	for i, fragment := range fragments {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := b.sendFragment(chatID, fragment); err != nil {
			return fmt.Errorf("fragment %d of %d: %w", i+1, len(fragments), err)
		}
	}
	return nil
}

func (b *Bot) sendFragment(chatID int64, fragment string) error {
	var lastErr error
	for _, mode := range deliveryModes {
		msg := tgbotapi.NewMessage(chatID, mode.render(fragment))
		msg.ParseMode = mode.parseMode
		if _, err := b.out.Send(msg); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
