package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, Event) error {
	f.calls++
	return errors.New("down")
}

func TestTelegramNotifierSendsText(t *testing.T) {
	s := &fakeSender{}
	n := &TelegramNotifier{api: s, chatID: 42}
	err := n.Notify(context.Background(), Event{Kind: KindAutoPaused, RuleID: "r1", RuleName: "usdt buy", Message: "3 deviations"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].ChatID != 42 {
		t.Fatalf("unexpected sends %+v", s.sent)
	}
	if !strings.Contains(s.sent[0].Text, "auto_paused") || !strings.Contains(s.sent[0].Text, "3 deviations") {
		t.Fatalf("unexpected text %q", s.sent[0].Text)
	}
}

func TestMultiSwallowsFailures(t *testing.T) {
	bad := &failingNotifier{}
	s := &fakeSender{}
	m := &Multi{Notifiers: []Notifier{bad, nil, &TelegramNotifier{api: s, chatID: 1}}}
	if err := m.Notify(context.Background(), Event{Kind: KindRuleError}); err != nil {
		t.Fatalf("multi must not return errors: %v", err)
	}
	if bad.calls != 1 || len(s.sent) != 1 {
		t.Fatalf("every notifier must be tried")
	}
}

func TestPaaSNotifierLogsInOnce(t *testing.T) {
	logins, logs := 0, 0
	var got createLogRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/login":
			logins++
			_, _ = w.Write([]byte(`{"token":"tok","expires_at":"2099-01-01T00:00:00Z"}`))
		case "/api/v1/logs":
			logs++
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Fatalf("missing bearer token")
			}
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	n := &PaaSNotifier{BaseURL: srv.URL + "/", APIKey: "k"}
	for i := 0; i < 2; i++ {
		if err := n.Notify(context.Background(), Event{Kind: KindRuleError, RuleID: "r1"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if logins != 1 || logs != 2 {
		t.Fatalf("expected 1 login and 2 logs, got %d/%d", logins, logs)
	}
	if got.Action != "autoprice.rule_error" || got.Level != "error" || got.Agent != "auto-price-engine" {
		t.Fatalf("unexpected payload %+v", got)
	}
}
