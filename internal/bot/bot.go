// Package bot is the Telegram glue: it routes webhook updates to
// command handlers and multi-step flows, keeps the member roster in
// sync, and renders ledger output as chat messages.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/service"
)

var updatesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tallybot_updates_processed_total",
	Help: "Telegram updates processed by kind.",
}, []string{"kind"})

// Sender is the subset of the Telegram client the bot needs. The
// concrete tgbotapi.BotAPI satisfies it; tests use a recorder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot handles Telegram updates against the group and ledger services.
type Bot struct {
	api     Sender
	groups  *service.GroupService
	ledgers *service.LedgerService
	flows   *FlowManager
}

// New creates a Bot.
func New(api Sender, groups *service.GroupService, ledgers *service.LedgerService) *Bot {
	return &Bot{
		api:     api,
		groups:  groups,
		ledgers: ledgers,
		flows:   NewFlowManager(),
	}
}

// HandleUpdate routes one webhook update. Errors are logged and
// swallowed: Telegram retries failed webhooks, and a user-facing
// failure is already answered with an apology message.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		updatesProcessed.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		updatesProcessed.WithLabelValues("message").Inc()
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	b.trackSighting(ctx, msg)
	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Non-command text only matters when a flow is waiting for input.
	if f, ok := b.flows.get(msg.Chat.ID, msg.From.ID); ok {
		b.handleFlowInput(ctx, msg, f)
	}
}

// trackSighting keeps the group and member roster current from every
// update: the sender, explicit join events and leave events.
func (b *Bot) trackSighting(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if err := b.groups.TrackGroup(ctx, chatID, msg.Chat.Title); err != nil {
		slog.Warn("Failed to track group", "chat_id", chatID, "error", err)
		return
	}

	if msg.From != nil && !msg.From.IsBot {
		b.trackUser(ctx, chatID, msg.From)
	}
	for i := range msg.NewChatMembers {
		if !msg.NewChatMembers[i].IsBot {
			b.trackUser(ctx, chatID, &msg.NewChatMembers[i])
		}
	}
	if left := msg.LeftChatMember; left != nil && !left.IsBot {
		if err := b.groups.UntrackMember(ctx, chatID, left.ID); err != nil {
			slog.Warn("Failed to untrack member", "chat_id", chatID, "user_id", left.ID, "error", err)
		}
	}
}

func (b *Bot) trackUser(ctx context.Context, chatID int64, user *tgbotapi.User) {
	member := models.Member{
		UserID:    user.ID,
		Username:  user.UserName,
		FirstName: user.FirstName,
	}
	if err := b.groups.TrackMember(ctx, chatID, member); err != nil {
		slog.Warn("Failed to track member", "chat_id", chatID, "user_id", user.ID, "error", err)
	}
}

// reply sends plain text to a chat.
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// replyMarkup sends text with an inline keyboard.
func (b *Bot) replyMarkup(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// answerCallback acknowledges a callback query with a toast.
func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		slog.Warn("Failed to answer callback", "error", err)
	}
}

// displayNames resolves a group's roster into an id → name map.
func (b *Bot) displayNames(ctx context.Context, chatID int64) map[int64]string {
	names := make(map[int64]string)
	members, err := b.groups.Members(ctx, chatID)
	if err != nil {
		slog.Warn("Failed to load members", "chat_id", chatID, "error", err)
		return names
	}
	for _, m := range members {
		names[m.UserID] = m.DisplayName()
	}
	return names
}

func nameOrID(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("%d", id)
}
