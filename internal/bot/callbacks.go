package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tallybot/tallybot/internal/money"
)

// handleCallback dispatches inline keyboard taps on the callback data
// prefix. Every branch answers the query so the client stops its
// loading spinner.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		b.answerCallback(cq.ID, "")
		return
	}
	chatID := cq.Message.Chat.ID
	userID := cq.From.ID

	parts := strings.SplitN(cq.Data, ":", 3)
	switch parts[0] {
	case cbParticipant:
		b.callbackParticipant(ctx, cq, chatID, userID, parts)
	case cbSettle:
		b.callbackSettle(ctx, cq, chatID, userID, parts)
	case cbClear:
		b.callbackClear(ctx, cq, chatID, parts)
	case cbEditPick:
		b.callbackEditPick(cq, chatID, userID, parts)
	case cbEditField:
		b.callbackEditField(ctx, cq, chatID, userID, parts)
	default:
		b.answerCallback(cq.ID, "")
	}
}

func (b *Bot) callbackParticipant(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID, userID int64, parts []string) {
	f, ok := b.flows.get(chatID, userID)
	if !ok || f.state != stateExpenseParticipants {
		b.answerCallback(cq.ID, "That expense is no longer in progress.")
		return
	}

	if len(parts) < 2 {
		b.answerCallback(cq.ID, "")
		return
	}
	if parts[1] == "done" {
		b.answerCallback(cq.ID, "")
		b.finishExpense(ctx, chatID, userID, f)
		return
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.answerCallback(cq.ID, "")
		return
	}
	f.toggleParticipant(id)
	b.flows.set(chatID, userID, f)
	b.answerCallback(cq.ID, "")

	// Redraw the roster with the new selection.
	members, err := b.groups.Members(ctx, chatID)
	if err != nil {
		slog.Warn("Failed to load members", "chat_id", chatID, "error", err)
		return
	}
	keyboard := participantsKeyboard(members, f.participants)
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cq.Message.MessageID, keyboard)
	if _, err := b.api.Request(edit); err != nil {
		slog.Warn("Failed to update keyboard", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) callbackSettle(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID, userID int64, parts []string) {
	if len(parts) < 3 {
		b.answerCallback(cq.ID, "")
		return
	}
	debtorID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.answerCallback(cq.ID, "")
		return
	}
	maxOwed, err := money.ParsePositive(parts[2])
	if err != nil {
		b.answerCallback(cq.ID, "")
		return
	}

	b.flows.set(chatID, userID, &flow{
		state:    stateSettleAmount,
		debtorID: debtorID,
		maxOwed:  maxOwed,
	})
	b.answerCallback(cq.ID, "")

	names := b.displayNames(ctx, chatID)
	b.reply(chatID, fmt.Sprintf("How much did %s pay you back? Up to %s.",
		nameOrID(names, debtorID), maxOwed))
}

func (b *Bot) callbackClear(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID int64, parts []string) {
	if len(parts) < 2 || parts[1] != "yes" {
		b.answerCallback(cq.ID, "Kept everything.")
		b.reply(chatID, "Okay, nothing was deleted.")
		return
	}
	if err := b.groups.ClearExpenses(ctx, chatID); err != nil {
		slog.Error("Failed to clear expenses", "chat_id", chatID, "error", err)
		b.answerCallback(cq.ID, "Something went wrong.")
		return
	}
	b.answerCallback(cq.ID, "Cleared.")
	b.reply(chatID, "All expenses deleted. Fresh start!")
}

func (b *Bot) callbackEditPick(cq *tgbotapi.CallbackQuery, chatID, userID int64, parts []string) {
	if len(parts) < 2 {
		b.answerCallback(cq.ID, "")
		return
	}
	expenseID := parts[1]
	b.flows.set(chatID, userID, &flow{state: stateEditChoose, expenseID: expenseID})
	b.answerCallback(cq.ID, "")
	b.replyMarkup(chatID, "What do you want to change?", editFieldKeyboard(expenseID))
}

func (b *Bot) callbackEditField(ctx context.Context, cq *tgbotapi.CallbackQuery, chatID, userID int64, parts []string) {
	if len(parts) < 3 {
		b.answerCallback(cq.ID, "")
		return
	}
	field, expenseID := parts[1], parts[2]

	switch field {
	case "amount":
		b.flows.set(chatID, userID, &flow{state: stateEditAmount, expenseID: expenseID})
		b.answerCallback(cq.ID, "")
		b.reply(chatID, "Send the new amount.")
	case "desc":
		b.flows.set(chatID, userID, &flow{state: stateEditDescription, expenseID: expenseID})
		b.answerCallback(cq.ID, "")
		b.reply(chatID, "Send the new description.")
	case "delete":
		if err := b.groups.DeleteExpense(ctx, chatID, expenseID); err != nil {
			slog.Error("Failed to delete expense", "chat_id", chatID, "error", err)
			b.answerCallback(cq.ID, "Something went wrong.")
			return
		}
		b.flows.clear(chatID, userID)
		b.answerCallback(cq.ID, "Deleted.")
		b.reply(chatID, "Expense deleted.")
	default:
		b.answerCallback(cq.ID, "")
	}
}
