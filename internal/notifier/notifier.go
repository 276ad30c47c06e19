// Package notifier delivers persistence failure notices to a webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type WebhookPayload struct {
	Text   string    `json:"text"`
	Level  Level     `json:"level"`
	Source string    `json:"source"`
	SentAt time.Time `json:"sent_at"`
}

// Webhook posts notices as JSON. The zero URL disables delivery.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

func New(url, secret string) *Webhook {
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Webhook) Enabled() bool {
	return n != nil && n.url != ""
}

// Notify sends text at level. It is a no-op when no URL is configured.
func (n *Webhook) Notify(ctx context.Context, level Level, text string) error {
	if !n.Enabled() {
		return nil
	}

	payload := WebhookPayload{
		Text:   text,
		Level:  level,
		Source: constants.AppName,
		SentAt: time.Now().UTC(),
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("X-Shiftcal-Secret", n.secret)
	}

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
