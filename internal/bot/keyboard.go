package bot

import (
	"fmt"
	"sort"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tallybot/tallybot/internal/ledger"
	"github.com/tallybot/tallybot/internal/models"
)

// Callback data prefixes. Telegram caps callback data at 64 bytes, so
// everything here is a short tag plus ids.
const (
	cbParticipant = "part"
	cbSettle      = "settle"
	cbClear       = "clear"
	cbEditPick    = "edit"
	cbEditField   = "editf"
)

func sortedMemberIDs(balances ledger.Balances) []int64 {
	ids := make([]int64, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// participantsKeyboard renders the roster with a check mark on each
// selected member and a Done row at the bottom.
func participantsKeyboard(members []models.Member, selected []int64) tgbotapi.InlineKeyboardMarkup {
	picked := make(map[int64]bool, len(selected))
	for _, id := range selected {
		picked[id] = true
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(members)+1)
	for _, m := range members {
		label := m.DisplayName()
		if picked[m.UserID] {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s:%d", cbParticipant, m.UserID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Done", cbParticipant+":done"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// settleKeyboard lists each debtor with the amount they still owe.
func settleKeyboard(owed []ledger.Transfer, names map[int64]string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(owed))
	for _, t := range owed {
		label := fmt.Sprintf("%s (%s)", nameOrID(names, t.From), t.Amount)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s:%d:%s", cbSettle, t.From, t.Amount)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func clearConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete everything", cbClear+":yes"),
			tgbotapi.NewInlineKeyboardButtonData("No, keep it", cbClear+":no"),
		),
	)
}

func editPickKeyboard(expenses []models.Expense) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(expenses))
	for _, e := range expenses {
		label := fmt.Sprintf("%s - %s", e.Amount, e.Description)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s:%s", cbEditPick, e.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func editFieldKeyboard(expenseID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Amount", fmt.Sprintf("%s:amount:%s", cbEditField, expenseID)),
			tgbotapi.NewInlineKeyboardButtonData("Description", fmt.Sprintf("%s:desc:%s", cbEditField, expenseID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete expense", fmt.Sprintf("%s:delete:%s", cbEditField, expenseID)),
		),
	)
}
