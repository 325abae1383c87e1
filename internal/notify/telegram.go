package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// TelegramTransport sends payloads through the Bot API's sendMessage
// call.
type TelegramTransport struct {
	BotToken string
	ChatID   string
	Client   *http.Client

	// BaseURL overrides the Bot API host in tests.
	BaseURL string
}

func (t *TelegramTransport) Name() string { return "telegram" }

func (t *TelegramTransport) Send(ctx context.Context, p Payload) error {
	base := t.BaseURL
	if base == "" {
		base = "https://api.telegram.org"
	}
	text := p.Title
	if lines := p.Lines(); len(lines) > 0 {
		text += "\n" + strings.Join(lines, "\n")
	}
	body := map[string]string{
		"chat_id": t.ChatID,
		"text":    text,
	}
	return postJSON(ctx, t.Client, fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken), body)
}
