// Package notify delivers user-facing messages (SMS today) after money
// movements. Delivery is best-effort: callers fire and forget, failures are
// logged and never surfaced to the money path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message is one outbound notification.
type Message struct {
	Channel string `json:"channel"` // "sms" for now
	To      string `json:"to"`      // phone number
	Body    string `json:"body"`
}

// Notifier sends a single message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Logged writes notifications to the log instead of a gateway. The default
// in development, mirroring how real gateways get stubbed locally.
type Logged struct {
	Log *zap.Logger
}

func (n *Logged) Send(ctx context.Context, msg Message) error {
	n.Log.Info("notification",
		zap.String("channel", msg.Channel),
		zap.String("to", msg.To),
		zap.String("body", msg.Body),
	)
	return nil
}

// Webhook POSTs notifications as JSON to a gateway URL.
type Webhook struct {
	URL    string
	Client *http.Client
}

// NewWebhook builds a Webhook notifier with a bounded-timeout client so a
// slow gateway can never stall the caller's goroutine for long.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *Webhook) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification gateway returned %d", resp.StatusCode)
	}
	return nil
}

// Dispatch sends msg on its own goroutine, detached from the request context
// so an in-flight response never waits on delivery. Errors are swallowed
// into the log.
func Dispatch(n Notifier, log *zap.Logger, msg Message) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.Send(ctx, msg); err != nil {
			log.Warn("notification delivery failed",
				zap.String("to", msg.To),
				zap.Error(err),
			)
		}
	}()
}
