package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubNotifyConfig struct {
	url    string
	secret string
}

func (c stubNotifyConfig) GetNotifyWebhookURL() string    { return c.url }
func (c stubNotifyConfig) GetNotifyWebhookSecret() string { return c.secret }
func (c stubNotifyConfig) IsNotifyEnabled() bool          { return c.url != "" }

func TestSendSignsPayload(t *testing.T) {
	const secret = "portal-secret"
	payload := []byte(`{"leadId":"abc","newStatus":"RESERVED"}`)

	var gotBody []byte
	var gotSignature, gotKind string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Portal-Signature")
		gotKind = r.Header.Get("X-Portal-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewSender(stubNotifyConfig{url: srv.URL, secret: secret})
	if err := sender.Send(context.Background(), "leads.lead.status_changed", payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	if string(gotBody) != string(payload) {
		t.Fatalf("body altered in transit: %s", gotBody)
	}
	if gotKind != "leads.lead.status_changed" {
		t.Fatalf("unexpected event header %q", gotKind)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	want := hex.EncodeToString(mac.Sum(nil))
	if gotSignature != want {
		t.Fatalf("signature mismatch: got %s want %s", gotSignature, want)
	}
}

func TestSendNon2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := NewSender(stubNotifyConfig{url: srv.URL, secret: "s"})
	if err := sender.Send(context.Background(), "leads.lead.created", []byte(`{}`)); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestSendDisabledWithoutURL(t *testing.T) {
	sender := NewSender(stubNotifyConfig{})
	if sender.Enabled() {
		t.Fatal("sender must be disabled without a url")
	}
	if err := sender.Send(context.Background(), "leads.lead.created", []byte(`{}`)); err != nil {
		t.Fatalf("disabled send must be a no-op, got %v", err)
	}
}
