package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/alert"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/pricing"
)

// Rule state changes are column-scoped writes; the in-memory rule is kept in
// step so later gates in the same pass see the new values.

func (e *Engine) updateRule(ctx context.Context, rule *models.PricingRule, updates map[string]any) error {
	if err := e.repo.UpdatePricingRuleFields(ctx, rule.ID, updates); err != nil {
		return fmt.Errorf("update rule %s: %w", rule.ID, err)
	}
	return nil
}

func (e *Engine) deactivate(ctx context.Context, rule *models.PricingRule, kind, asset, message string) error {
	rule.IsActive = false
	if err := e.updateRule(ctx, rule, map[string]any{"is_active": false}); err != nil {
		return err
	}
	e.logger.Warn("pricing rule deactivated",
		zap.String("rule_id", rule.ID),
		zap.String("kind", kind),
		zap.String("reason", message),
	)
	e.notify(ctx, alert.Event{
		Kind:     kind,
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Asset:    asset,
		Message:  message,
	})
	return nil
}

func (e *Engine) recordDeviation(ctx context.Context, rule *models.PricingRule, asset, merchant string, price, deviation decimal.Decimal) error {
	rule.ConsecutiveDeviations++
	rule.LastDeviationPct = decimal.NewNullDecimal(deviation.Round(4))
	updates := map[string]any{
		"consecutive_deviations": rule.ConsecutiveDeviations,
		"last_deviation_pct":     rule.LastDeviationPct,
	}
	e.observe(rule, asset, merchant, price, updates)
	return e.updateRule(ctx, rule, updates)
}

func (e *Engine) resetDeviations(ctx context.Context, rule *models.PricingRule, deviation decimal.Decimal) error {
	rule.LastDeviationPct = decimal.NewNullDecimal(deviation.Round(4))
	updates := map[string]any{"last_deviation_pct": rule.LastDeviationPct}
	if rule.ConsecutiveDeviations != 0 {
		rule.ConsecutiveDeviations = 0
		updates["consecutive_deviations"] = 0
	}
	return e.updateRule(ctx, rule, updates)
}

// recordObservation persists the competitor seen this cycle without touching
// the last applied values.
func (e *Engine) recordObservation(ctx context.Context, rule *models.PricingRule, asset, merchant string, price decimal.Decimal) error {
	updates := map[string]any{}
	e.observe(rule, asset, merchant, price, updates)
	return e.updateRule(ctx, rule, updates)
}

// recordApplied stores the value pushed to the listings as the base for the
// next cycle's rate-of-change clamp.
func (e *Engine) recordApplied(ctx context.Context, rule *models.PricingRule, asset, merchant string, price, applied decimal.Decimal, floating bool) error {
	updates := map[string]any{}
	e.observe(rule, asset, merchant, price, updates)
	now := e.now().UTC()
	updates["asset_state"] = withAssetState(rule, asset, func(st *models.AssetState) {
		v := applied
		if floating {
			st.LastAppliedRatio = &v
		} else {
			st.LastAppliedPrice = &v
		}
		st.UpdatedAt = &now
	})
	if isPrimary(rule, asset) {
		if floating {
			rule.LastAppliedRatio = decimal.NewNullDecimal(applied)
			updates["last_applied_ratio"] = rule.LastAppliedRatio
		} else {
			rule.LastAppliedPrice = decimal.NewNullDecimal(applied)
			updates["last_applied_price"] = rule.LastAppliedPrice
		}
	}
	return e.updateRule(ctx, rule, updates)
}

// forgetApplied drops the last applied values of assets whose listings were
// moved outside the normal cycle, so the next active cycle pushes again
// instead of reporting no change.
func (e *Engine) forgetApplied(ctx context.Context, rule *models.PricingRule, assets []string) error {
	updates := map[string]any{}
	for _, asset := range assets {
		if price, ratio := pricing.LastApplied(rule, asset); price == nil && ratio == nil {
			continue
		}
		updates["asset_state"] = withAssetState(rule, asset, func(st *models.AssetState) {
			st.LastAppliedPrice = nil
			st.LastAppliedRatio = nil
		})
		if isPrimary(rule, asset) {
			rule.LastAppliedPrice = decimal.NullDecimal{}
			rule.LastAppliedRatio = decimal.NullDecimal{}
			updates["last_applied_price"] = rule.LastAppliedPrice
			updates["last_applied_ratio"] = rule.LastAppliedRatio
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return e.updateRule(ctx, rule, updates)
}

func (e *Engine) observe(rule *models.PricingRule, asset, merchant string, price decimal.Decimal, updates map[string]any) {
	now := e.now().UTC()
	rule.LastMatchedMerchant = merchant
	rule.LastCompetitorPrice = decimal.NewNullDecimal(price)
	updates["last_matched_merchant"] = merchant
	updates["last_competitor_price"] = rule.LastCompetitorPrice
	updates["asset_state"] = withAssetState(rule, asset, func(st *models.AssetState) {
		p := price
		st.LastCompetitorPrice = &p
		st.LastMatchedMerchant = merchant
		st.UpdatedAt = &now
	})
}

// markChecked closes a pass that reached a terminal outcome without a
// rule-level failure.
func (e *Engine) markChecked(ctx context.Context, rule *models.PricingRule) {
	now := e.now().UTC()
	rule.LastCheckedAt = &now
	rule.LastError = nil
	rule.ConsecutiveErrors = 0
	err := e.updateRule(ctx, rule, map[string]any{
		"last_checked_at":    now,
		"last_error":         nil,
		"consecutive_errors": 0,
	})
	if err != nil {
		e.logger.Warn("mark rule checked failed", zap.String("rule_id", rule.ID), zap.Error(err))
	}
}

func (e *Engine) markFailed(ctx context.Context, rule *models.PricingRule, cause error) {
	now := e.now().UTC()
	msg := cause.Error()
	rule.LastCheckedAt = &now
	rule.LastError = &msg
	rule.ConsecutiveErrors++
	err := e.updateRule(ctx, rule, map[string]any{
		"last_checked_at":    now,
		"last_error":         msg,
		"consecutive_errors": rule.ConsecutiveErrors,
	})
	if err != nil {
		e.logger.Warn("record rule error failed", zap.String("rule_id", rule.ID), zap.Error(err))
	}
}

func withAssetState(rule *models.PricingRule, asset string, fn func(*models.AssetState)) datatypes.JSONType[map[string]models.AssetState] {
	cur := rule.AssetState.Data()
	next := make(map[string]models.AssetState, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	st := next[asset]
	fn(&st)
	next[asset] = st
	rule.AssetState = datatypes.NewJSONType(next)
	return rule.AssetState
}

func isPrimary(rule *models.PricingRule, asset string) bool {
	return strings.EqualFold(strings.TrimSpace(rule.Asset), asset)
}
