// Package webhook delivers outbox notifications to the marketplace's
// configured endpoint, signed so the receiver can authenticate them.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"realty_portal_backend/platform/config"
)

const (
	headerSignature = "X-Portal-Signature"
	headerEventKind = "X-Portal-Event"

	requestTimeout = 10 * time.Second
)

// Sender posts signed JSON payloads to the configured webhook endpoint.
type Sender struct {
	url    string
	secret []byte
	client *http.Client
}

// NewSender creates a webhook sender. An empty URL yields a disabled sender
// whose Send is a no-op, which keeps deployments without a webhook simple.
func NewSender(cfg config.NotifyConfig) *Sender {
	return &Sender{
		url:    cfg.GetNotifyWebhookURL(),
		secret: []byte(cfg.GetNotifyWebhookSecret()),
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Enabled reports whether a webhook endpoint is configured.
func (s *Sender) Enabled() bool {
	return s != nil && s.url != ""
}

// Send delivers one event. The body is the raw payload; the signature is
// hex(HMAC-SHA256(body)) so receivers can verify without re-serializing.
func (s *Sender) Send(ctx context.Context, kind string, payload json.RawMessage) error {
	if !s.Enabled() {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEventKind, kind)
	req.Header.Set(headerSignature, s.sign(payload))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sender) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
