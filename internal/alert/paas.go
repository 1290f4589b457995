package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// PaaSNotifier ships events to the platform log API, logging in with an API
// key and caching the bearer token until shortly before it expires.
type PaaSNotifier struct {
	BaseURL string
	APIKey  string
	Agent   string

	HTTP *resty.Client

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type createLogRequest struct {
	Agent   string         `json:"agent"`
	Action  string         `json:"action"`
	Level   string         `json:"level"`
	Details map[string]any `json:"details"`
}

func (n *PaaSNotifier) Notify(ctx context.Context, ev Event) error {
	if err := n.ensureToken(ctx); err != nil {
		return err
	}
	level := "warn"
	if ev.Kind == KindRuleError {
		level = "error"
	}
	agent := strings.TrimSpace(n.Agent)
	if agent == "" {
		agent = "auto-price-engine"
	}
	resp, err := n.client().R().
		SetContext(ctx).
		SetAuthToken(n.currentToken()).
		SetBody(createLogRequest{
			Agent:  agent,
			Action: "autoprice." + ev.Kind,
			Level:  level,
			Details: map[string]any{
				"rule_id":   ev.RuleID,
				"rule_name": ev.RuleName,
				"asset":     ev.Asset,
				"message":   ev.Message,
			},
		}).
		Post(n.base() + "/api/v1/logs")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("paas create log http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

func (n *PaaSNotifier) login(ctx context.Context) error {
	if n.base() == "" {
		return errors.New("paas base url is empty")
	}
	apiKey := strings.TrimSpace(n.APIKey)
	if apiKey == "" {
		return errors.New("paas api key is empty")
	}
	var lr loginResponse
	resp, err := n.client().R().
		SetContext(ctx).
		SetBody(map[string]any{"api_key": apiKey}).
		SetResult(&lr).
		Post(n.base() + "/api/v1/auth/login")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("paas login http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	exp, _ := time.Parse(time.RFC3339, strings.TrimSpace(lr.ExpiresAt))

	n.mu.Lock()
	n.token = strings.TrimSpace(lr.Token)
	n.expiresAt = exp
	n.mu.Unlock()
	return nil
}

func (n *PaaSNotifier) ensureToken(ctx context.Context) error {
	n.mu.RLock()
	tok := n.token
	exp := n.expiresAt
	n.mu.RUnlock()
	if strings.TrimSpace(tok) == "" {
		return n.login(ctx)
	}
	if !exp.IsZero() && time.Until(exp) < 2*time.Minute {
		return n.login(ctx)
	}
	return nil
}

func (n *PaaSNotifier) currentToken() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.token
}

func (n *PaaSNotifier) base() string {
	return strings.TrimRight(strings.TrimSpace(n.BaseURL), "/")
}

func (n *PaaSNotifier) client() *resty.Client {
	if n.HTTP != nil {
		return n.HTTP
	}
	n.HTTP = resty.New().SetTimeout(10 * time.Second)
	return n.HTTP
}
