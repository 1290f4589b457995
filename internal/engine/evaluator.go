package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/alert"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/pricing"
)

type ruleRun struct {
	rule     *models.PricingRule
	excluded map[string]struct{}
	dryRun   bool
	assets   []string
	fiatRate decimal.Decimal
	result   RuleResult
}

func (r *ruleRun) multiAsset() bool {
	return len(r.assets) > 1
}

// evaluate walks the gates in order and fans out over the rule's assets. A
// returned error is a rule-level failure; asset and listing failures are
// absorbed into the result.
func (e *Engine) evaluate(ctx context.Context, run *ruleRun) error {
	rule := run.rule
	now := e.now()
	run.assets = pricing.Assets(rule)
	if len(run.assets) == 0 {
		return ErrNoAssets
	}
	primary := run.assets[0]

	inWindow, err := pricing.InActiveWindow(now, e.opts.Zone, rule.ActiveHoursStart, rule.ActiveHoursEnd)
	if err != nil {
		return err
	}
	if !inWindow {
		e.pushResting(ctx, run)
		e.audit.skipped(ctx, rule, primary, models.SkipOutsideHours, nil)
		run.result.Status = StatusSkipped
		run.result.Reason = models.SkipOutsideHours
		return nil
	}

	if until, active := pricing.CooldownUntil(now, rule.LastManualEditAt, rule.ManualOverrideCooldownMinutes); active {
		e.logger.Debug("pricing rule in manual cooldown",
			zap.String("rule_id", rule.ID),
			zap.Time("until", until),
		)
		if err := e.forgetApplied(ctx, rule, run.assets); err != nil {
			e.logger.Warn("clear last applied failed", zap.String("rule_id", rule.ID), zap.Error(err))
		}
		e.audit.skipped(ctx, rule, primary, models.SkipCooldown, nil)
		run.result.Status = StatusSkipped
		run.result.Reason = models.SkipCooldown
		return nil
	}

	if pricing.ShouldAutoPause(rule.ConsecutiveDeviations, rule.AutoPauseAfterDeviations) {
		msg := fmt.Sprintf("%d consecutive market deviations (threshold %d)", rule.ConsecutiveDeviations, rule.AutoPauseAfterDeviations)
		if err := e.deactivate(ctx, rule, alert.KindAutoPaused, "", msg); err != nil {
			return err
		}
		e.audit.skipped(ctx, rule, primary, models.SkipAutoPaused, nil)
		run.result.Status = StatusSkipped
		run.result.Reason = models.SkipAutoPaused
		run.result.Deactivated = true
		return nil
	}

	run.fiatRate, _ = e.fiatRate(ctx, rule.Fiat)

	run.result.Status = StatusSuccess
	for _, asset := range run.assets {
		res := e.runAsset(ctx, run, asset)
		run.result.Assets = append(run.result.Assets, res)
	}

	if run.multiAsset() && allUnmatched(run.result.Assets) {
		msg := "no listings or merchant found for any configured asset"
		if err := e.deactivate(ctx, rule, alert.KindDeactivated, "", msg); err != nil {
			e.logger.Warn("deactivate rule failed", zap.String("rule_id", rule.ID), zap.Error(err))
		} else {
			run.result.Deactivated = true
		}
	}
	return nil
}

// runAsset isolates one asset: any error or panic becomes an error row and an
// error result without touching sibling assets.
func (e *Engine) runAsset(ctx context.Context, run *ruleRun, asset string) (res AssetResult) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			e.logger.Error("asset evaluation panicked", zap.String("rule_id", run.rule.ID), zap.String("asset", asset), zap.Any("panic", p))
			e.audit.failed(ctx, run.rule, asset, "", err, nil)
			res = AssetResult{Asset: asset, Status: StatusError, Error: err.Error()}
		}
	}()
	res, err := e.evaluateAsset(ctx, run, asset)
	if err != nil {
		e.logger.Warn("asset evaluation failed",
			zap.String("rule_id", run.rule.ID),
			zap.String("asset", asset),
			zap.Error(err),
		)
		e.audit.failed(ctx, run.rule, asset, "", err, nil)
		res.Asset = asset
		res.Status = StatusError
		res.Error = err.Error()
	}
	return res
}

// pushResting applies resting values to every non-excluded listing of every
// asset. Failures are logged per listing and otherwise ignored. Assets with a
// listing moved to its resting value lose their last applied values.
func (e *Engine) pushResting(ctx context.Context, run *ruleRun) {
	var moved []string
	for _, asset := range run.assets {
		eff := pricing.EffectiveConfig(run.rule, asset)
		value, ok := eff.Resting()
		if !ok {
			continue
		}
		applied, capped := pricing.ClampResting(*value, eff)
		for _, ad := range pricing.FilterExcluded(eff.AdNumbers, run.excluded) {
			fill := func(row *models.PricingLog) {
				row.IsResting = true
				row.WasCapped = capped
				setValues(row, eff.IsFloating(), *value, applied)
			}
			if err := e.pushListing(ctx, ad, eff.IsFloating(), applied, run.dryRun); err != nil {
				e.logger.Warn("resting push failed",
					zap.String("rule_id", run.rule.ID),
					zap.String("asset", asset),
					zap.String("ad_number", ad),
					zap.Error(err),
				)
				e.audit.failed(ctx, run.rule, asset, ad, err, fill)
				continue
			}
			e.audit.write(ctx, appliedRow(run.rule, asset, ad, fill))
			if !run.dryRun && (len(moved) == 0 || moved[len(moved)-1] != asset) {
				moved = append(moved, asset)
			}
		}
	}
	if err := e.forgetApplied(ctx, run.rule, moved); err != nil {
		e.logger.Warn("clear last applied failed", zap.String("rule_id", run.rule.ID), zap.Error(err))
	}
}

func (e *Engine) fiatRate(ctx context.Context, fiat string) (decimal.Decimal, string) {
	if e.market == nil {
		return decimal.Zero, ""
	}
	rate, source := e.market.FiatRate(ctx, strings.ToUpper(strings.TrimSpace(fiat)))
	e.logger.Debug("fiat reference rate", zap.String("fiat", fiat), zap.String("rate", rate.String()), zap.String("source", source))
	return rate, source
}

func allUnmatched(results []AssetResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Status != StatusSkipped {
			return false
		}
		if r.Reason != models.SkipNoMerchant && r.Reason != models.SkipNoListings {
			return false
		}
	}
	return true
}
