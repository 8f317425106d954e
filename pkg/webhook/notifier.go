// Package webhook posts domain events to an external endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Event is one webhook payload.
type Event struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Event types posted by the withdrawal workflow.
const (
	EventWithdrawalRequested = "withdrawal.requested"
	EventWithdrawalStatus    = "withdrawal.status_changed"
	EventContractSigned      = "customer.contract_signed"
)

// Notifier posts events to a configured URL. Delivery is asynchronous
// and best effort; failures are logged, never propagated to the caller.
type Notifier struct {
	url     string
	secret  string
	client  *http.Client
	logger  *zap.Logger
	enabled bool
}

// Config holds webhook settings.
type Config struct {
	Enabled bool
	URL     string
	Secret  string
	Timeout time.Duration
}

// NewNotifier creates a notifier. A nil config or empty URL disables
// delivery.
func NewNotifier(config *Config, logger *zap.Logger) *Notifier {
	if config == nil {
		config = &Config{}
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		url:     config.URL,
		secret:  config.Secret,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		enabled: config.Enabled && config.URL != "",
	}
}

// Enabled reports whether events will actually be delivered.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

// Notify posts an event in the background.
func (n *Notifier) Notify(eventType string, data interface{}) {
	if !n.enabled {
		return
	}

	event := &Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
		defer cancel()

		if err := n.post(ctx, event); err != nil {
			n.logger.Warn("webhook delivery failed",
				zap.String("event_type", eventType),
				zap.Error(err),
			)
		}
	}()
}

func (n *Notifier) post(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("X-Webhook-Signature", n.sign(body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// sign computes the HMAC-SHA256 signature of the payload.
func (n *Notifier) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(n.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
