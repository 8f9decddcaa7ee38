package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tallybot/tallybot/internal/models"
	"github.com/tallybot/tallybot/internal/money"
	"github.com/tallybot/tallybot/internal/service"
	"github.com/tallybot/tallybot/internal/storage/sqlite"
)

// recorder captures outgoing Telegram calls instead of sending them.
type recorder struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (r *recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (r *recorder) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.requests = append(r.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// lastText returns the text of the most recent sent message.
func (r *recorder) lastText(t *testing.T) string {
	t.Helper()
	if len(r.sent) == 0 {
		t.Fatal("expected at least one sent message")
	}
	return r.sent[len(r.sent)-1].Text
}

func newTestBot(t *testing.T) (*Bot, *recorder, *sqlite.SQLiteStore) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	groups := service.NewGroupService(store, service.Limits{MaxMembersFree: 4, MaxExpensesFree: 20})
	ledgers := service.NewLedgerService(store)
	rec := &recorder{}
	return New(rec, groups, ledgers), rec, store
}

const testChatID = int64(-100)

func testUser(id int64, name string) *tgbotapi.User {
	return &tgbotapi.User{ID: id, FirstName: name}
}

func commandUpdate(from *tgbotapi.User, command string) tgbotapi.Update {
	text := "/" + command
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: testChatID, Title: "Trip", Type: "group"},
		Text:      text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(text)},
		},
	}}
}

func textUpdate(from *tgbotapi.User, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: testChatID, Title: "Trip", Type: "group"},
		Text:      text,
	}}
}

func callbackUpdate(from *tgbotapi.User, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: from,
		Message: &tgbotapi.Message{
			MessageID: 3,
			Chat:      &tgbotapi.Chat{ID: testChatID, Type: "group"},
		},
		Data: data,
	}}
}

// seedMembers makes the given users known to the group by replaying a
// plain message from each of them.
func seedMembers(ctx context.Context, b *Bot, users ...*tgbotapi.User) {
	for _, u := range users {
		b.HandleUpdate(ctx, textUpdate(u, "hello"))
	}
}

func TestAddExpenseFlow(t *testing.T) {
	ctx := context.Background()
	b, rec, store := newTestBot(t)
	alice := testUser(1, "Alice")
	bob := testUser(2, "Bob")
	seedMembers(ctx, b, alice, bob)

	b.HandleUpdate(ctx, commandUpdate(alice, "add"))
	if got := rec.lastText(t); !strings.Contains(got, "How much") {
		t.Errorf("expected amount prompt, got %q", got)
	}

	b.HandleUpdate(ctx, textUpdate(alice, "30.00"))
	if got := rec.lastText(t); !strings.Contains(got, "What was it for") {
		t.Errorf("expected description prompt, got %q", got)
	}

	b.HandleUpdate(ctx, textUpdate(alice, "dinner"))
	if got := rec.lastText(t); !strings.Contains(got, "Who shared") {
		t.Errorf("expected participant prompt, got %q", got)
	}

	b.HandleUpdate(ctx, callbackUpdate(alice, "part:1"))
	b.HandleUpdate(ctx, callbackUpdate(alice, "part:2"))
	b.HandleUpdate(ctx, callbackUpdate(alice, "part:done"))
	if got := rec.lastText(t); !strings.Contains(got, "split 2 ways") {
		t.Errorf("expected confirmation, got %q", got)
	}

	expenses, err := store.ListExpenses(ctx, testChatID)
	if err != nil {
		t.Fatalf("failed to list expenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(expenses))
	}
	e := expenses[0]
	if e.PaidBy != 1 || e.Description != "dinner" || e.Amount.String() != "30.00" {
		t.Errorf("unexpected expense: %+v", e)
	}
	if len(e.Participants) != 2 {
		t.Errorf("expected 2 participants, got %v", e.Participants)
	}

	if _, ok := b.flows.get(testChatID, alice.ID); ok {
		t.Error("expected flow to be cleared after completion")
	}
}

func TestAddExpenseRejectsBadAmount(t *testing.T) {
	ctx := context.Background()
	b, rec, _ := newTestBot(t)
	alice := testUser(1, "Alice")

	b.HandleUpdate(ctx, commandUpdate(alice, "add"))
	b.HandleUpdate(ctx, textUpdate(alice, "not a number"))
	if got := rec.lastText(t); !strings.Contains(got, "doesn't look like an amount") {
		t.Errorf("expected rejection, got %q", got)
	}

	// Still waiting on the amount.
	f, ok := b.flows.get(testChatID, alice.ID)
	if !ok || f.state != stateExpenseAmount {
		t.Error("expected flow to remain at the amount step")
	}
}

func TestCancelAbandonsFlow(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBot(t)
	alice := testUser(1, "Alice")

	b.HandleUpdate(ctx, commandUpdate(alice, "add"))
	b.HandleUpdate(ctx, commandUpdate(alice, "cancel"))
	if _, ok := b.flows.get(testChatID, alice.ID); ok {
		t.Error("expected flow to be cleared by /cancel")
	}
}

func TestCalculate(t *testing.T) {
	ctx := context.Background()
	b, rec, store := newTestBot(t)
	alice := testUser(1, "Alice")
	bob := testUser(2, "Bob")
	seedMembers(ctx, b, alice, bob)

	tests := []struct {
		name    string
		prepare func(t *testing.T)
		want    []string
	}{
		{
			name:    "empty ledger",
			prepare: func(t *testing.T) {},
			want:    []string{"All settled up"},
		},
		{
			name: "one expense",
			prepare: func(t *testing.T) {
				err := store.CreateExpense(ctx, &models.Expense{
					ChatID:       testChatID,
					Amount:       mustAmount(t, "20.00"),
					Description:  "taxi",
					PaidBy:       1,
					Participants: []int64{1, 2},
				})
				if err != nil {
					t.Fatalf("failed to create expense: %v", err)
				}
			},
			want: []string{"Alice is owed 10.00", "Bob owes 10.00", "Bob pays 10.00 to Alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepare(t)
			b.HandleUpdate(ctx, commandUpdate(alice, "calculate"))
			got := rec.lastText(t)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("expected %q in output, got %q", want, got)
				}
			}
		})
	}
}

func TestSettleFlow(t *testing.T) {
	ctx := context.Background()
	b, rec, store := newTestBot(t)
	alice := testUser(1, "Alice")
	bob := testUser(2, "Bob")
	seedMembers(ctx, b, alice, bob)

	// Bob owes Alice 10.00.
	err := store.CreateExpense(ctx, &models.Expense{
		ChatID:       testChatID,
		Amount:       mustAmount(t, "20.00"),
		Description:  "taxi",
		PaidBy:       1,
		Participants: []int64{1, 2},
	})
	if err != nil {
		t.Fatalf("failed to create expense: %v", err)
	}

	b.HandleUpdate(ctx, commandUpdate(alice, "settle"))
	if got := rec.lastText(t); !strings.Contains(got, "Who paid you back") {
		t.Errorf("expected debtor prompt, got %q", got)
	}

	b.HandleUpdate(ctx, callbackUpdate(alice, "settle:2:10.00"))
	if got := rec.lastText(t); !strings.Contains(got, "Up to 10.00") {
		t.Errorf("expected amount prompt with ceiling, got %q", got)
	}

	// Over the outstanding debt: rejected with the corrected maximum.
	b.HandleUpdate(ctx, textUpdate(alice, "15.00"))
	if got := rec.lastText(t); !strings.Contains(got, "only owe you 10.00") {
		t.Errorf("expected overpayment rejection, got %q", got)
	}

	b.HandleUpdate(ctx, textUpdate(alice, "10.00"))
	if got := rec.lastText(t); !strings.Contains(got, "repaid you 10.00") {
		t.Errorf("expected confirmation, got %q", got)
	}

	settlements, err := store.ListSettlements(ctx, testChatID)
	if err != nil {
		t.Fatalf("failed to list settlements: %v", err)
	}
	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}
	s := settlements[0]
	if s.From != 2 || s.To != 1 || s.Amount.String() != "10.00" {
		t.Errorf("unexpected settlement: %+v", s)
	}

	// The pair is square now.
	b.HandleUpdate(ctx, commandUpdate(alice, "settle"))
	if got := rec.lastText(t); !strings.Contains(got, "Nobody owes you") {
		t.Errorf("expected empty settle prompt, got %q", got)
	}
}

// A repayment recorded after the prompt shrinks the debt; the stale
// ceiling passes the local check but the recorder re-validates against
// fresh balances and surfaces the corrected maximum.
func TestSettleFlowStaleCeiling(t *testing.T) {
	ctx := context.Background()
	b, rec, store := newTestBot(t)
	alice := testUser(1, "Alice")
	bob := testUser(2, "Bob")
	seedMembers(ctx, b, alice, bob)

	err := store.CreateExpense(ctx, &models.Expense{
		ChatID:       testChatID,
		Amount:       mustAmount(t, "20.00"),
		Description:  "taxi",
		PaidBy:       1,
		Participants: []int64{1, 2},
	})
	if err != nil {
		t.Fatalf("failed to create expense: %v", err)
	}

	b.HandleUpdate(ctx, commandUpdate(alice, "settle"))
	b.HandleUpdate(ctx, callbackUpdate(alice, "settle:2:10.00"))

	// Bob pays back 6.00 through another path while Alice is typing.
	err = store.CreateSettlement(ctx, &models.Settlement{
		ChatID: testChatID,
		From:   2,
		To:     1,
		Amount: mustAmount(t, "6.00"),
	})
	if err != nil {
		t.Fatalf("failed to create settlement: %v", err)
	}

	b.HandleUpdate(ctx, textUpdate(alice, "10.00"))
	if got := rec.lastText(t); !strings.Contains(got, "only owe you 4.00") {
		t.Errorf("expected corrected maximum, got %q", got)
	}

	b.HandleUpdate(ctx, textUpdate(alice, "4.00"))
	if got := rec.lastText(t); !strings.Contains(got, "repaid you 4.00") {
		t.Errorf("expected confirmation, got %q", got)
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	b, rec, store := newTestBot(t)
	alice := testUser(1, "Alice")
	bob := testUser(2, "Bob")
	seedMembers(ctx, b, alice, bob)

	err := store.CreateExpense(ctx, &models.Expense{
		ChatID:       testChatID,
		Amount:       mustAmount(t, "20.00"),
		Description:  "taxi",
		PaidBy:       1,
		Participants: []int64{1, 2},
		CreatedAt:    100,
	})
	if err != nil {
		t.Fatalf("failed to create expense: %v", err)
	}
	err = store.CreateSettlement(ctx, &models.Settlement{
		ChatID:    testChatID,
		From:      2,
		To:        1,
		Amount:    mustAmount(t, "10.00"),
		CreatedAt: 200,
	})
	if err != nil {
		t.Fatalf("failed to create settlement: %v", err)
	}

	b.HandleUpdate(ctx, commandUpdate(alice, "history"))
	got := rec.lastText(t)
	if !strings.Contains(got, "Alice paid 20.00 (taxi)") {
		t.Errorf("expected expense line, got %q", got)
	}
	if !strings.Contains(got, "Bob repaid 10.00 to Alice") {
		t.Errorf("expected settlement line, got %q", got)
	}
	// Newest first.
	if strings.Index(got, "repaid") > strings.Index(got, "paid 20.00") {
		t.Errorf("expected settlement before expense, got %q", got)
	}
}

func TestClearConfirm(t *testing.T) {
	ctx := context.Background()
	b, rec, store := newTestBot(t)
	alice := testUser(1, "Alice")
	seedMembers(ctx, b, alice)

	err := store.CreateExpense(ctx, &models.Expense{
		ChatID:       testChatID,
		Amount:       mustAmount(t, "5.00"),
		Description:  "coffee",
		PaidBy:       1,
		Participants: []int64{1},
	})
	if err != nil {
		t.Fatalf("failed to create expense: %v", err)
	}

	b.HandleUpdate(ctx, commandUpdate(alice, "clear"))
	if got := rec.lastText(t); !strings.Contains(got, "Are you sure") {
		t.Errorf("expected confirmation prompt, got %q", got)
	}

	// Declining keeps the ledger.
	b.HandleUpdate(ctx, callbackUpdate(alice, "clear:no"))
	expenses, err := store.ListExpenses(ctx, testChatID)
	if err != nil {
		t.Fatalf("failed to list expenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected expense to survive, got %d", len(expenses))
	}

	b.HandleUpdate(ctx, callbackUpdate(alice, "clear:yes"))
	expenses, err = store.ListExpenses(ctx, testChatID)
	if err != nil {
		t.Fatalf("failed to list expenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Fatalf("expected empty ledger after clear, got %d", len(expenses))
	}
}

func TestMemberTracking(t *testing.T) {
	ctx := context.Background()
	b, _, store := newTestBot(t)
	alice := testUser(1, "Alice")

	b.HandleUpdate(ctx, textUpdate(alice, "hello"))

	// A join event introduces Bob without him speaking.
	update := textUpdate(alice, "")
	update.Message.NewChatMembers = []tgbotapi.User{{ID: 2, FirstName: "Bob"}}
	b.HandleUpdate(ctx, update)

	members, err := store.ListMembers(ctx, testChatID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Leaving removes Bob again.
	update = textUpdate(alice, "")
	update.Message.LeftChatMember = &tgbotapi.User{ID: 2, FirstName: "Bob"}
	b.HandleUpdate(ctx, update)

	members, err = store.ListMembers(ctx, testChatID)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 1 || members[0].UserID != 1 {
		t.Fatalf("expected only Alice to remain, got %+v", members)
	}
}

func TestParticipantToggle(t *testing.T) {
	f := &flow{state: stateExpenseParticipants}
	if !f.toggleParticipant(1) {
		t.Error("expected first toggle to select")
	}
	if f.toggleParticipant(1) {
		t.Error("expected second toggle to deselect")
	}
	if len(f.participants) != 0 {
		t.Errorf("expected empty selection, got %v", f.participants)
	}
}

func mustAmount(t *testing.T, s string) money.Amount {
	t.Helper()
	amt, err := money.Parse(s)
	if err != nil {
		t.Fatalf("failed to parse amount %q: %v", s, err)
	}
	return amt
}
