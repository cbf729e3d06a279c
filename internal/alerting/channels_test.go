package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oddsguard/internal/rules"
)

func testSummary() AlertSummary {
	return AlertSummary{
		ID:          42,
		Ticker:      "T1",
		Rule:        rules.RuleRecordCorrelation,
		Severity:    rules.SeverityCritical,
		Title:       "REVERSED ODDS DETECTED",
		Description: "REVERSED ODDS: Bills (9-1) priced 0.35 despite stronger record than Jets (3-7) priced 0.65",
		AwayName:    "Bills",
		AwayPrice:   decimal.NewFromFloat(0.35),
		HomeName:    "Jets",
		HomePrice:   decimal.NewFromFloat(0.65),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestTelegramChannelSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	channel := NewTelegramChannel("token", "chat", srv.URL, time.Second, zerolog.Nop())
	if err := channel.Send(context.Background(), testSummary()); err != nil {
		t.Fatalf("Telegram Send 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received["text"], "REVERSED ODDS DETECTED") {
		t.Fatalf("text 应包含告警标题: %q", received["text"])
	}
	if !strings.Contains(received["text"], "T1") {
		t.Fatalf("text 应包含 ticker: %q", received["text"])
	}
}

func TestTelegramChannelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	channel := NewTelegramChannel("token", "chat", srv.URL, time.Second, zerolog.Nop())
	if err := channel.Send(context.Background(), testSummary()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestWebhookChannelSuccess(t *testing.T) {
	var payload webhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	channel := NewWebhookChannel(srv.URL, "secret", time.Second, zerolog.Nop())
	if err := channel.Send(context.Background(), testSummary()); err != nil {
		t.Fatalf("webhook Send failed: %v", err)
	}

	if auth != "Bearer secret" {
		t.Fatalf("auth header = %q", auth)
	}
	if payload.AlertID != 42 || payload.Rule != "record_correlation" || payload.Severity != "critical" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestWebhookChannelHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	channel := NewWebhookChannel(srv.URL, "", time.Second, zerolog.Nop())
	if err := channel.Send(context.Background(), testSummary()); err == nil {
		t.Fatal("HTTP 502 should surface an error")
	}
}

func TestWebhookChannelMissingURL(t *testing.T) {
	channel := NewWebhookChannel("", "", time.Second, zerolog.Nop())
	if err := channel.Send(context.Background(), testSummary()); err == nil {
		t.Fatal("missing url should surface an error")
	}
}
