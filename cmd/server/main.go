package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/tallybot/tallybot/internal/api"
	"github.com/tallybot/tallybot/internal/app"
	"github.com/tallybot/tallybot/internal/auth"
	"github.com/tallybot/tallybot/internal/bot"
	"github.com/tallybot/tallybot/internal/service"
	"github.com/tallybot/tallybot/internal/storage/sqlite"
	"github.com/tallybot/tallybot/pkg/logging"
)

func main() {
	// Missing .env is fine in production where env vars come from the
	// environment directly.
	_ = godotenv.Load()
	logging.Setup()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	groups := service.NewGroupService(store, service.Limits{
		MaxMembersFree:  cfg.MaxMembersFree,
		MaxExpensesFree: cfg.MaxExpensesFree,
	})
	ledgers := service.NewLedgerService(store)

	tg, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		slog.Error("Failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	slog.Info("Telegram bot authorized", "username", tg.Self.UserName)
	tgBot := bot.New(tg, groups, ledgers)

	reminder, err := bot.NewReminder(tgBot, store, ledgers, cfg.ReminderCron)
	if err != nil {
		slog.Error("Failed to schedule reminders", "error", err)
		os.Exit(1)
	}

	authn := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	router := api.NewServer(groups, ledgers, authn, jwtManager).Routes()
	router.Post("/telegram/webhook", bot.WebhookHandler(tgBot, cfg.WebhookSecret))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h2c.NewHandler(router, &http2.Server{}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "address", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reminder.Start()
		<-ctx.Done()
		reminder.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
