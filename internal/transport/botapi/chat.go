// Package botapi delivers chat notifications through an HTTP bot gateway
// (a Telegram-style sendMessage endpoint).
package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/bloomhaus/orderflow/internal/domain/notify"
)

var _ notify.ChatTransport = (*Transport)(nil)

// Transport posts messages to the bot gateway's sendMessage endpoint.
type Transport struct {
	baseURL string
	client  *http.Client
}

// New creates a Transport for the given gateway base URL (token included,
// e.g. "https://api.telegram.org/bot<token>").
func New(baseURL string, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Transport{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send posts one message to a chat handle. Non-2xx responses are errors; the
// dispatcher logs and abandons them.
func (t *Transport) Send(ctx context.Context, handle, body string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: handle, Text: body})
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post message")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bot gateway responded %d", resp.StatusCode)
	}
	return nil
}
