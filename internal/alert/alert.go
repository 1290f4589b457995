package alert

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	KindAutoPaused  = "auto_paused"
	KindDeactivated = "deactivated"
	KindRuleError   = "rule_error"
)

type Event struct {
	Kind     string
	RuleID   string
	RuleName string
	Asset    string
	Message  string
}

func (e Event) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[auto-price] %s", e.Kind)
	if e.RuleName != "" {
		fmt.Fprintf(&b, " rule=%q", e.RuleName)
	}
	if e.RuleID != "" {
		fmt.Fprintf(&b, " id=%s", e.RuleID)
	}
	if e.Asset != "" {
		fmt.Fprintf(&b, " asset=%s", e.Asset)
	}
	if e.Message != "" {
		b.WriteString("\n")
		b.WriteString(e.Message)
	}
	return b.String()
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every notifier. Failures are logged and never
// returned, so alerting cannot break a pricing pass.
type Multi struct {
	Notifiers []Notifier
	Logger    *zap.Logger
}

func (m *Multi) Notify(ctx context.Context, ev Event) error {
	if m == nil {
		return nil
	}
	for _, n := range m.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil && m.Logger != nil {
			m.Logger.Warn("alert delivery failed",
				zap.String("kind", ev.Kind),
				zap.String("rule_id", ev.RuleID),
				zap.Error(err),
			)
		}
	}
	return nil
}
