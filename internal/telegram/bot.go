// Package telegram delivers vault notices through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org/bot"

// StatusFunc renders the reply to /status.
type StatusFunc func(ctx context.Context) string

type Bot struct {
	token   string
	baseURL string
	status  StatusFunc
	logger  *slog.Logger
	client  *http.Client
	offset  int64
}

func NewBot(token string, status StatusFunc, logger *slog.Logger) *Bot {
	return &Bot{
		token:   token,
		baseURL: telegramAPI,
		status:  status,
		logger:  logger.With("component", "telegram"),
		client:  &http.Client{Timeout: 40 * time.Second},
	}
}

func (b *Bot) endpoint(method string) string {
	return b.baseURL + b.token + "/" + method
}

// SendMessage sends an HTML text message to a chat id or @channel name.
func (b *Bot) SendMessage(ctx context.Context, chatID, text string) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("telegram API error %d: %s", resp.StatusCode, errResp.Description)
	}
	return nil
}

// Run long-polls for commands until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot started")
	for {
		select {
		case <-ctx.Done():
			return
		default:
			b.poll(ctx)
		}
	}
}

func (b *Bot) poll(ctx context.Context) {
	url := fmt.Sprintf("%s?offset=%d&timeout=30", b.endpoint("getUpdates"), b.offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		b.logger.Error("create poll request", "error", err)
		return
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("poll updates", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
		return
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool `json:"ok"`
		Result []struct {
			UpdateID int64 `json:"update_id"`
			Message  *struct {
				Chat struct {
					ID int64 `json:"id"`
				} `json:"chat"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		b.logger.Error("decode updates", "error", err)
		return
	}

	for _, u := range result.Result {
		b.offset = u.UpdateID + 1
		if u.Message == nil {
			continue
		}
		b.handle(ctx, fmt.Sprint(u.Message.Chat.ID), strings.TrimSpace(u.Message.Text))
	}
}

func (b *Bot) handle(ctx context.Context, chatID, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	// Commands may carry a @botname suffix in groups.
	cmd, _, _ := strings.Cut(fields[0], "@")

	var reply string
	switch cmd {
	case "/status", "/start":
		if b.status == nil {
			reply = "Status is not available."
		} else {
			reply = b.status(ctx)
		}
	case "/help":
		reply = "🤖 <b>Sonic Vault Bot</b>\n\n" +
			"Commands:\n" +
			"/status — Current pool TVL, APY and capacity\n" +
			"/help — Show this message"
	default:
		reply = "Unknown command. Send /help for available commands."
	}
	if err := b.SendMessage(ctx, chatID, reply); err != nil {
		b.logger.Warn("reply failed", "chat_id", chatID, "error", err)
	}
}
