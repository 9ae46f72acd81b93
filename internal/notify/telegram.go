package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// TelegramClient sends alert messages through the Telegram Bot API. Messages
// are sent with MarkdownV2 parse mode, so every dynamic field must be run
// through Escape before it reaches a template.
type TelegramClient struct {
	BotToken   string
	ChatID     string
	BaseURL    string // Overridable for tests; defaults to the Bot API host
	HTTPClient *http.Client
}

// NewTelegramClient creates a Telegram client with a bounded send timeout.
func NewTelegramClient(botToken, chatID string) *TelegramClient {
	return &TelegramClient{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  defaultAPIBaseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendMessageRequest is the Bot API sendMessage payload.
type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send delivers one already-formatted MarkdownV2 message. A non-2xx response
// or transport failure is returned as an error; the caller decides whether
// that matters.
func (c *TelegramClient) Send(ctx context.Context, text string) error {
	if c.BotToken == "" || c.ChatID == "" {
		return fmt.Errorf("telegram bot token and chat ID are not configured")
	}

	payload := sendMessageRequest{
		ChatID:                c.ChatID,
		Text:                  text,
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build Telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
