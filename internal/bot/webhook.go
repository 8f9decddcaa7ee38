package bot

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// secretTokenHeader is set by Telegram on every webhook delivery when a
// secret_token was registered with setWebhook.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler decodes Telegram webhook payloads and hands them to
// the bot. When secret is non-empty, requests without the matching
// secret token header are rejected, so third parties cannot inject
// forged updates.
func WebhookHandler(b *Bot, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" {
			got := r.Header.Get(secretTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				slog.Warn("Webhook request with bad secret token", "remote_addr", r.RemoteAddr)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			slog.Warn("Malformed webhook payload", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	}
}
