package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PushSender delivers the push channel. Best-effort: the worker records
// failure and moves on, nothing is queued for later.
type PushSender interface {
	Send(ctx context.Context, userID int64, title, message string) error
}

// WebhookPush posts push payloads to an external push gateway (the service
// that owns device tokens). An empty endpoint disables the channel.
type WebhookPush struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

func NewWebhookPush(endpoint string, timeout time.Duration, log *zap.Logger) *WebhookPush {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookPush{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log.With(zap.String("component", "notifier.push")),
	}
}

func (p *WebhookPush) Send(ctx context.Context, userID int64, title, message string) error {
	if p.endpoint == "" {
		p.log.Debug("push endpoint not configured, dropping", zap.Int64("user_id", userID))
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"user_id": userID,
		"title":   title,
		"message": message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway status %d", resp.StatusCode)
	}
	return nil
}
