package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oiflow/config"
	"oiflow/logger"
)

// Telegram sends messages through the Telegram bot API.
type Telegram struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
	log     *logger.Entry
}

// NewTelegram creates a Telegram notifier from config. The bot token and
// chat id are expected to arrive through the environment overlay.
func NewTelegram(cfg config.TelegramConfig) *Telegram {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		client:  &http.Client{Timeout: timeout},
		log:     logger.Logger().WithComponent("notifier-telegram"),
	}
}

// Notify posts a sendMessage request. Error messages get a warning prefix
// so they stand out in the chat.
func (t *Telegram) Notify(ctx context.Context, text string, isError bool) error {
	if isError {
		text = "⚠️ " + text
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &DeliveryError{Channel: "telegram", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return &DeliveryError{Channel: "telegram", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{Channel: "telegram", Status: resp.StatusCode}
	}

	t.log.WithFields(logger.Fields{"chars": len(text)}).Debug("Telegram message delivered")
	return nil
}
