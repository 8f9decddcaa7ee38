package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tallybot/tallybot/internal/ledger"
	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/money"
	"github.com/tallybot/tallybot/internal/service"
)

const historyLimit = 20

const helpText = `I keep track of shared expenses and who owes whom.

/add - record a new expense
/calculate - show balances and the cheapest way to settle up
/settle - record a repayment someone made to you
/history - recent expenses and settlements
/edit - change or delete one of your expenses
/clear - wipe all expenses for this group
/cancel - abandon the current step
/help - this message`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
	case "cancel":
		b.flows.clear(chatID, userID)
		b.reply(chatID, "Okay, cancelled.")
	case "add":
		b.flows.set(chatID, userID, &flow{state: stateExpenseAmount})
		b.reply(chatID, "How much was it? Send the amount, e.g. 12.50")
	case "calculate":
		b.handleCalculate(ctx, chatID)
	case "settle":
		b.handleSettle(ctx, chatID, userID)
	case "history":
		b.handleHistory(ctx, chatID)
	case "edit":
		b.handleEdit(ctx, chatID, userID)
	case "clear":
		b.replyMarkup(chatID, "This deletes every expense in this group. Are you sure?", clearConfirmKeyboard())
	default:
		b.reply(chatID, "I don't know that command. Try /help.")
	}
}

func (b *Bot) handleCalculate(ctx context.Context, chatID int64) {
	balances, err := b.ledgers.Balances(ctx, chatID)
	if err != nil {
		slog.Error("Failed to compute balances", "chat_id", chatID, "error", err)
		b.reply(chatID, "Sorry, I couldn't work out the balances just now.")
		return
	}
	if len(balances) == 0 {
		b.reply(chatID, "All settled up! Nobody owes anything.")
		return
	}

	names := b.displayNames(ctx, chatID)
	var sb strings.Builder
	sb.WriteString("Balances:\n")
	for _, id := range sortedMemberIDs(balances) {
		amt := balances[id]
		if amt.IsPositive() {
			fmt.Fprintf(&sb, "%s is owed %s\n", nameOrID(names, id), amt)
		} else {
			fmt.Fprintf(&sb, "%s owes %s\n", nameOrID(names, id), amt.Neg())
		}
	}

	transfers := ledger.MinimizeTransfers(balances)
	sb.WriteString("\nTo settle up:\n")
	for _, t := range transfers {
		fmt.Fprintf(&sb, "%s pays %s to %s\n", nameOrID(names, t.From), t.Amount, nameOrID(names, t.To))
	}
	b.reply(chatID, sb.String())
}

// handleSettle lists everyone who currently owes the caller. Picking a
// debtor asks for the repaid amount, capped at what is outstanding.
func (b *Bot) handleSettle(ctx context.Context, chatID, userID int64) {
	owed, err := b.ledgers.OwedTo(ctx, chatID, userID)
	if err != nil {
		slog.Error("Failed to compute debts", "chat_id", chatID, "error", err)
		b.reply(chatID, "Sorry, I couldn't look up who owes you.")
		return
	}
	if len(owed) == 0 {
		b.reply(chatID, "Nobody owes you anything right now.")
		return
	}

	names := b.displayNames(ctx, chatID)
	b.replyMarkup(chatID, "Who paid you back?", settleKeyboard(owed, names))
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	entries, err := b.ledgers.History(ctx, chatID, historyLimit)
	if err != nil {
		slog.Error("Failed to load history", "chat_id", chatID, "error", err)
		b.reply(chatID, "Sorry, I couldn't load the history.")
		return
	}
	if len(entries) == 0 {
		b.reply(chatID, "Nothing recorded yet. Use /add to record an expense.")
		return
	}

	names := b.displayNames(ctx, chatID)
	var sb strings.Builder
	sb.WriteString("Recent activity:\n")
	for _, e := range entries {
		day := time.Unix(e.CreatedAt, 0).Format("Jan 2")
		switch {
		case e.Expense != nil:
			fmt.Fprintf(&sb, "%s: %s paid %s (%s)\n",
				day, nameOrID(names, e.Expense.PaidBy),
				e.Expense.Amount, e.Expense.Description)
		case e.Settlement != nil:
			fmt.Fprintf(&sb, "%s: %s repaid %s to %s\n",
				day, nameOrID(names, e.Settlement.From),
				e.Settlement.Amount, nameOrID(names, e.Settlement.To))
		}
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleEdit(ctx context.Context, chatID, userID int64) {
	expenses, err := b.groups.ExpensesPaidBy(ctx, chatID, userID)
	if err != nil {
		slog.Error("Failed to list expenses", "chat_id", chatID, "error", err)
		b.reply(chatID, "Sorry, I couldn't load your expenses.")
		return
	}
	if len(expenses) == 0 {
		b.reply(chatID, "You have no expenses to edit.")
		return
	}
	b.replyMarkup(chatID, "Which expense?", editPickKeyboard(expenses))
}

// handleFlowInput consumes free text while a flow is waiting for it.
func (b *Bot) handleFlowInput(ctx context.Context, msg *tgbotapi.Message, f *flow) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	switch f.state {
	case stateExpenseAmount:
		amt, err := money.ParsePositive(text)
		if err != nil {
			b.reply(chatID, "That doesn't look like an amount. Try something like 12.50")
			return
		}
		f.amount = amt
		f.state = stateExpenseDescription
		b.flows.set(chatID, userID, f)
		b.reply(chatID, "What was it for?")

	case stateExpenseDescription:
		if text == "" {
			b.reply(chatID, "Give it a short description, e.g. groceries")
			return
		}
		f.description = text
		f.state = stateExpenseParticipants
		b.flows.set(chatID, userID, f)
		b.promptParticipants(ctx, chatID, f)

	case stateSettleAmount:
		amt, err := money.ParsePositive(text)
		if err != nil {
			b.reply(chatID, "That doesn't look like an amount. Try something like 12.50")
			return
		}
		// Cheap pre-check against the ceiling shown at the prompt. The
		// recorder re-validates against fresh balances either way.
		if f.maxOwed.LessThan(amt) {
			b.reply(chatID, fmt.Sprintf("They only owe you %s. Send an amount up to that.", f.maxOwed))
			return
		}
		b.recordSettlement(ctx, chatID, userID, f, amt)

	case stateEditAmount:
		amt, err := money.ParsePositive(text)
		if err != nil {
			b.reply(chatID, "That doesn't look like an amount. Try something like 12.50")
			return
		}
		if err := b.groups.UpdateExpenseAmount(ctx, chatID, f.expenseID, amt); err != nil {
			slog.Error("Failed to update expense", "chat_id", chatID, "error", err)
			b.reply(chatID, "Sorry, I couldn't update that expense.")
			return
		}
		b.flows.clear(chatID, userID)
		b.reply(chatID, fmt.Sprintf("Updated the amount to %s.", amt))

	case stateEditDescription:
		if text == "" {
			b.reply(chatID, "Send the new description.")
			return
		}
		if err := b.groups.UpdateExpenseDescription(ctx, chatID, f.expenseID, text); err != nil {
			slog.Error("Failed to update expense", "chat_id", chatID, "error", err)
			b.reply(chatID, "Sorry, I couldn't update that expense.")
			return
		}
		b.flows.clear(chatID, userID)
		b.reply(chatID, "Updated the description.")
	}
}

func (b *Bot) promptParticipants(ctx context.Context, chatID int64, f *flow) {
	members, err := b.groups.Members(ctx, chatID)
	if err != nil || len(members) == 0 {
		slog.Error("Failed to load members", "chat_id", chatID, "error", err)
		b.reply(chatID, "I don't know anyone in this group yet. Have everyone send a message first.")
		return
	}
	b.replyMarkup(chatID, "Who shared this expense? Tap to toggle, then Done.",
		participantsKeyboard(members, f.participants))
}

func (b *Bot) recordSettlement(ctx context.Context, chatID, userID int64, f *flow, amt money.Amount) {
	_, err := b.ledgers.RecordSettlement(ctx, chatID, f.debtorID, userID, amt)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidSettlement) {
			// The outstanding debt may have shrunk since the prompt;
			// re-read it and ask again with the corrected ceiling.
			outstanding, oerr := b.ledgers.Outstanding(ctx, chatID, f.debtorID, userID)
			if oerr == nil && outstanding.IsPositive() {
				b.reply(chatID, fmt.Sprintf("They only owe you %s. Send an amount up to that.", outstanding))
				return
			}
			b.flows.clear(chatID, userID)
			b.reply(chatID, "They don't owe you anything anymore.")
			return
		}
		slog.Error("Failed to record settlement", "chat_id", chatID, "error", err)
		b.reply(chatID, "Sorry, I couldn't record that repayment.")
		return
	}
	b.flows.clear(chatID, userID)
	names := b.displayNames(ctx, chatID)
	b.reply(chatID, fmt.Sprintf("Recorded: %s repaid you %s.", nameOrID(names, f.debtorID), amt))
}

func (b *Bot) finishExpense(ctx context.Context, chatID, userID int64, f *flow) {
	expense := &models.Expense{
		ChatID:       chatID,
		Amount:       f.amount,
		Description:  f.description,
		PaidBy:       userID,
		Participants: f.participants,
	}
	if err := b.groups.AddExpense(ctx, expense); err != nil {
		switch {
		case errors.Is(err, ledger.ErrEmptyParticipants):
			b.reply(chatID, "Pick at least one person to split with.")
		case errors.Is(err, service.ErrExpenseLimit):
			b.flows.clear(chatID, userID)
			b.reply(chatID, "This group has reached the free expense limit. Use /clear to start over.")
		default:
			slog.Error("Failed to add expense", "chat_id", chatID, "error", err)
			b.reply(chatID, "Sorry, I couldn't save that expense.")
		}
		return
	}
	b.flows.clear(chatID, userID)
	b.reply(chatID, fmt.Sprintf("Got it: %s for %s, split %d ways.",
		expense.Amount, expense.Description, len(expense.Participants)))
}
