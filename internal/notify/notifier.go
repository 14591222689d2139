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

// WebhookNotifier posts submission notifications to a messaging gateway
// (e.g. a WhatsApp bridge). Delivery is best effort; callers treat errors
// as non-fatal.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func NewWebhookNotifier(url string, log *zap.Logger) *WebhookNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

type payload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(payload{Phone: phone, Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification gateway returned %s", resp.Status)
	}
	n.log.Debug("notification dispatched", zap.String("phone", phone))
	return nil
}

// Noop is the notifier used when no gateway is configured.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) error { return nil }
