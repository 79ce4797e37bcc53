// Package bot runs the Telegram front end of the relay.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ctlst/telegramollamabot/internal/config"
	"github.com/ctlst/telegramollamabot/internal/registry"
	"github.com/ctlst/telegramollamabot/internal/relay"
)

const (
	// mgmtTimeout bounds quick management calls (listing, pulling metadata,
	// clearing history). Chat calls use the configured request timeout.
	mgmtTimeout = 30 * time.Second

	// fragmentInterval paces multi-fragment deliveries to stay under the
	// platform rate limit.
	fragmentInterval = 1500 * time.Millisecond

	commandHelp = "Available commands:\n" +
		"/models - List available models\n" +
		"/setmodel - Select a model to chat with\n" +
		"/clear - Clear chat history\n" +
		"/help - Show this help message"
)

// backendAPI is the slice of the relay client the bot calls directly.
type backendAPI interface {
	Models(ctx context.Context) ([]relay.Model, error)
	Chat(ctx context.Context, model, message, sessionID string) (*relay.ChatResult, error)
}

// modelRegistry tracks per-user model selection.
type modelRegistry interface {
	ResolveModel(ctx context.Context, userID int64) (string, error)
	SetModel(ctx context.Context, userID int64, name string) error
	ClearHistory(ctx context.Context, userID int64) error
	Current(userID int64) string
}

// Bot wires Telegram updates to the relay backend.
type Bot struct {
	api     *tgbotapi.BotAPI
	out     sender
	backend backendAPI
	models  modelRegistry
	timeout time.Duration
	pacing  time.Duration
	log     *log.Logger
}

// New authorizes against Telegram and builds the Bot.
func New(cfg *config.BotConfig, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	// Per-call timeouts come from contexts; chat calls may legitimately
	// take minutes, so the transport itself carries no deadline.
	client := relay.NewClient(cfg.APIBaseURL, 0)

	return &Bot{
		api:     api,
		out:     api,
		backend: client,
		models:  registry.New(client, cfg.DefaultModel),
		timeout: cfg.RequestTimeout,
		pacing:  fragmentInterval,
		log:     logger,
	}, nil
}

// Run polls for updates until the context is cancelled. Each update is
// handled in its own goroutine; overlapping updates from the same user are
// last-writer-wins on the model selection.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("bot authorized", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panicked", "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Text != "":
		b.handleText(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.handleHelp(ctx, msg)
	case "models":
		b.handleModels(ctx, msg)
	case "setmodel":
		b.handleSetModel(ctx, msg)
	case "clear":
		b.handleClear(ctx, msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, mgmtTimeout)
	defer cancel()

	greeting := fmt.Sprintf("Hi %s! I'm your Ollama chatbot.\n\n", msg.From.FirstName)
	model, err := b.models.ResolveModel(ctx, msg.From.ID)
	if err != nil {
		b.log.Warn("default model unavailable on /start", "user", msg.From.ID, "err", err)
		b.reply(msg.Chat.ID, greeting+
			"Error: Could not initialize default model. Please use /setmodel to choose a model.")
		return
	}
	b.reply(msg.Chat.ID, greeting+"Currently using model: "+model+"\n\n"+commandHelp)
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, mgmtTimeout)
	defer cancel()

	modelInfo := "\nNo model currently selected"
	if model, err := b.models.ResolveModel(ctx, msg.From.ID); err == nil {
		modelInfo = "\nCurrently using model: " + model
	}
	b.reply(msg.Chat.ID, commandHelp+modelInfo)
}

func (b *Bot) handleModels(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, mgmtTimeout)
	defer cancel()

	listed, err := b.backend.Models(ctx)
	if err != nil {
		b.log.Error("listing models failed", "err", err)
		b.reply(msg.Chat.ID, "Error connecting to the server. Please try again later.")
		return
	}
	current, err := b.models.ResolveModel(ctx, msg.From.ID)
	if err != nil {
		b.log.Error("resolving current model failed", "err", err)
		b.reply(msg.Chat.ID, "Error connecting to the server. Please try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Available models:\n\n")
	for _, m := range listed {
		prefix := "• "
		if m.Name == current {
			prefix = "► "
		}
		if m.Size.Known() {
			fmt.Fprintf(&sb, "%s%s (%s GB)\n", prefix, m.Name, m.Size)
		} else {
			fmt.Fprintf(&sb, "%s%s (size unknown)\n", prefix, m.Name)
		}
	}
	sb.WriteString("\nCurrently using: " + current)
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleSetModel(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, mgmtTimeout)
	defer cancel()

	listed, err := b.backend.Models(ctx)
	if err != nil {
		b.log.Error("listing models failed", "err", err)
		b.reply(msg.Chat.ID, "Failed to fetch models. Please try again later.")
		return
	}

	current := b.models.Current(msg.From.ID)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(listed))
	for _, m := range listed {
		label := m.Name
		if m.Name == current {
			label = "✓ " + m.Name
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "model:"+m.Name),
		))
	}

	prompt := tgbotapi.NewMessage(msg.Chat.ID, "Please select a model:")
	prompt.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.out.Send(prompt); err != nil {
		b.log.Error("sending model keyboard failed", "err", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.out.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("answering callback failed", "err", err)
	}

	name, ok := strings.CutPrefix(query.Data, "model:")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, mgmtTimeout)
	defer cancel()

	text := "Model set to: " + name
	if err := b.models.SetModel(ctx, query.From.ID, name); err != nil {
		b.log.Error("setting model failed", "user", query.From.ID, "model", name, "err", err)
		text = "Failed to set model to " + name + ". Please try again."
	}
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
	if _, err := b.out.Send(edit); err != nil {
		b.log.Error("editing selection message failed", "err", err)
	}
}

func (b *Bot) handleClear(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, mgmtTimeout)
	defer cancel()

	if err := b.models.ClearHistory(ctx, msg.From.ID); err != nil {
		b.log.Error("clearing history failed", "user", msg.From.ID, "err", err)
		b.reply(msg.Chat.ID, "Failed to clear chat history. Please try again.")
		return
	}
	b.reply(msg.Chat.ID, "Chat history cleared!")
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if _, err := b.out.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Warn("typing indicator failed", "err", err)
	}

	resolveCtx, cancel := context.WithTimeout(ctx, mgmtTimeout)
	model, err := b.models.ResolveModel(resolveCtx, userID)
	cancel()
	if err != nil {
		b.log.Error("model resolution failed", "user", userID, "err", err)
		b.reply(chatID, "No models are available right now. Please try again later.")
		return
	}

	// The generation call itself is never retried; it may legitimately be
	// this slow.
	chatCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	result, err := b.backend.Chat(chatCtx, model, msg.Text, strconv.FormatInt(userID, 10))
	if err != nil {
		b.log.Error("chat request failed", "user", userID, "model", model, "err", err)
		b.reply(chatID, chatErrorMessage(err))
		return
	}

	if err := b.deliver(ctx, chatID, result.Response); err != nil {
		b.log.Error("reply delivery failed", "user", userID, "err", err)
		b.reply(chatID, "Sorry, part of the reply could not be delivered.")
	}
}

func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, relay.ErrBackendTimeout):
		return "The model took too long to answer. Please try again, or shorten your message."
	case errors.Is(err, relay.ErrBackendUnavailable):
		return "The backend is unreachable right now. Please try again later."
	case errors.Is(err, registry.ErrNoModelAvailable):
		return "No models are available right now. Please try again later."
	}
	var remote *relay.RemoteError
	if errors.As(err, &remote) {
		return "The model reported an error: " + remote.Message
	}
	return "Sorry, I encountered an error. Please try again."
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.out.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Error("sending reply failed", "chat", chatID, "err", err)
	}
}
