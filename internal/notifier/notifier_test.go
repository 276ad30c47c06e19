package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNotify(t *testing.T) {
	var got WebhookPayload
	var secret string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		secret = r.Header.Get("X-Shiftcal-Secret")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := New(server.URL, "s3cret")
	if err := n.Notify(context.Background(), LevelError, "Failed to save shift"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if got.Text != "Failed to save shift" || got.Level != LevelError || got.Source != "shiftcal" {
		t.Errorf("payload = %+v", got)
	}
	if secret != "s3cret" {
		t.Errorf("secret header = %q", secret)
	}
}

func TestNotifyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	err := New(server.URL, "").Notify(context.Background(), LevelInfo, "hello")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("Notify() error = %v, want status 401", err)
	}
}

func TestNotifyDisabled(t *testing.T) {
	n := New("", "")
	if n.Enabled() {
		t.Error("Enabled() = true without url")
	}
	if err := n.Notify(context.Background(), LevelInfo, "ignored"); err != nil {
		t.Errorf("Notify() error = %v", err)
	}

	var nilHook *Webhook
	if err := nilHook.Notify(context.Background(), LevelInfo, "ignored"); err != nil {
		t.Errorf("nil Notify() error = %v", err)
	}
}
