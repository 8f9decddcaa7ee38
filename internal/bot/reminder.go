package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/tallybot/tallybot/internal/service"
	"github.com/tallybot/tallybot/internal/storage"
)

// Reminder posts a daily nudge to every group that still has unsettled
// debts, listing the suggested transfers.
type Reminder struct {
	bot     *Bot
	store   storage.Store
	ledgers *service.LedgerService
	cron    *cron.Cron
}

// NewReminder schedules the reminder job on the given cron spec, e.g.
// "0 9 * * *" for nine in the morning server time. Start must be called
// before any job fires.
func NewReminder(bot *Bot, store storage.Store, ledgers *service.LedgerService, spec string) (*Reminder, error) {
	r := &Reminder{
		bot:     bot,
		store:   store,
		ledgers: ledgers,
		cron:    cron.New(),
	}
	if _, err := r.cron.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("scheduling reminder %q: %w", spec, err)
	}
	return r, nil
}

// Start begins the cron scheduler in its own goroutine.
func (r *Reminder) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (r *Reminder) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Reminder) run() {
	ctx := context.Background()
	groups, err := r.store.ListGroups(ctx)
	if err != nil {
		slog.Error("Reminder: failed to list groups", "error", err)
		return
	}

	for _, g := range groups {
		if err := r.remindGroup(ctx, g.ChatID); err != nil {
			slog.Warn("Reminder failed for group", "chat_id", g.ChatID, "error", err)
		}
	}
}

func (r *Reminder) remindGroup(ctx context.Context, chatID int64) error {
	transfers, err := r.ledgers.Transfers(ctx, chatID)
	if err != nil {
		return err
	}
	if len(transfers) == 0 {
		return nil
	}

	names := r.bot.displayNames(ctx, chatID)
	var sb strings.Builder
	sb.WriteString("Daily reminder, these debts are still open:\n")
	for _, t := range transfers {
		fmt.Fprintf(&sb, "%s owes %s to %s\n", nameOrID(names, t.From), t.Amount, nameOrID(names, t.To))
	}
	sb.WriteString("\nUse /settle once you've paid up.")
	r.bot.reply(chatID, sb.String())
	return nil
}
