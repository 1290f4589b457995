package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/alert"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/pricing"
)

// evaluateAsset is the per-asset price calculation: discover the competitor,
// validate against the market reference, compute the target and execute it.
func (e *Engine) evaluateAsset(ctx context.Context, run *ruleRun, asset string) (AssetResult, error) {
	rule := run.rule
	eff := pricing.EffectiveConfig(rule, asset)
	if e.market == nil {
		return AssetResult{}, fmt.Errorf("market data is not configured")
	}

	side := pricing.CounterpartySide(rule.TradeType)
	listings, err := e.market.SearchListings(ctx, asset, rule.Fiat, side)
	if err != nil {
		return AssetResult{}, err
	}
	if len(listings) == 0 {
		e.audit.skipped(ctx, rule, asset, models.SkipNoListings, nil)
		e.pauseIfUnmatched(ctx, run, asset, "no competitor listings")
		return skippedAsset(asset, models.SkipNoListings), nil
	}

	targets := pricing.MerchantTargets(rule.TargetMerchant, rule.FallbackMerchants)
	match, ok := pricing.MatchMerchant(listings, targets, rule.OnlyCounterWhenOnline)
	if !ok {
		e.audit.skipped(ctx, rule, asset, models.SkipNoMerchant, nil)
		e.pauseIfUnmatched(ctx, run, asset, "target merchant not found")
		return skippedAsset(asset, models.SkipNoMerchant), nil
	}
	cp := match.Price
	res := AssetResult{Asset: asset, Merchant: match.Nickname, CompetitorPrice: decPtr(cp)}

	var spot decimal.Decimal
	if asset != e.opts.StableAsset {
		spot = e.market.SpotRate(ctx, asset)
	}
	var refPtr, devPtr *decimal.Decimal
	if ref, ok := pricing.ReferencePrice(asset, e.opts.StableAsset, run.fiatRate, spot); ok {
		refPtr = decPtr(ref)
		dev, _ := pricing.DeviationPct(cp, ref)
		devPtr = decPtr(dev)
		if pricing.DeviationExceeded(dev, nullablePtr(rule.MaxDeviationFromMarketPct)) {
			if err := e.recordDeviation(ctx, rule, asset, match.Nickname, cp, dev); err != nil {
				return res, err
			}
			e.audit.skipped(ctx, rule, asset, models.SkipDeviationExceeded, competitor(match.Nickname, cp, refPtr, devPtr))
			res.Status = StatusSkipped
			res.Reason = models.SkipDeviationExceeded
			return res, nil
		}
		if err := e.resetDeviations(ctx, rule, dev); err != nil {
			return res, err
		}
	}
	observed := competitor(match.Nickname, cp, refPtr, devPtr)

	ads := pricing.FilterExcluded(eff.AdNumbers, run.excluded)
	lastPrice, lastRatio := pricing.LastApplied(rule, asset)

	var calc pricing.Result
	last := lastPrice
	if eff.IsFloating() {
		index, err := e.inferIndex(ctx, ads, refPtr)
		if err != nil {
			return res, err
		}
		var desired decimal.Decimal
		calc, desired, err = pricing.ComputeFloating(cp, index, eff, lastRatio)
		if err != nil {
			return res, err
		}
		res.TargetPrice = decPtr(desired.Round(pricing.PricePlaces))
		res.TargetRatio = decPtr(calc.Applied)
		last = lastRatio
	} else {
		calc = pricing.ComputeFixed(cp, eff, lastPrice)
		res.TargetPrice = decPtr(calc.Applied)
	}
	computed := func(row *models.PricingLog) {
		observed(row)
		row.WasCapped = calc.WasCapped
		row.WasRateLimited = calc.WasRateLimited
		setValues(row, eff.IsFloating(), calc.Calculated, calc.Applied)
	}

	if len(ads) == 0 {
		e.audit.skipped(ctx, rule, asset, models.SkipNoAds, computed)
		res.Status = StatusSkipped
		res.Reason = models.SkipNoAds
		return res, nil
	}

	if last != nil && last.Equal(calc.Applied) {
		if err := e.recordObservation(ctx, rule, asset, match.Nickname, cp); err != nil {
			return res, err
		}
		row := &models.PricingLog{RuleID: rule.ID, Asset: asset, Status: models.LogStatusNoChange}
		computed(row)
		e.audit.write(ctx, row)
		res.Status = StatusNoChange
		res.Skipped = len(ads)
		return res, nil
	}

	updated, failed := e.executeListings(ctx, run, asset, ads, eff.IsFloating(), calc.Applied, computed)
	res.Updated, res.Failed = updated, failed
	switch {
	case updated > 0:
		res.Status = StatusSuccess
	default:
		res.Status = StatusError
		res.Error = "every listing update failed"
	}

	if updated > 0 && !run.dryRun {
		if err := e.recordApplied(ctx, rule, asset, match.Nickname, cp, calc.Applied, eff.IsFloating()); err != nil {
			return res, err
		}
	} else if err := e.recordObservation(ctx, rule, asset, match.Nickname, cp); err != nil {
		return res, err
	}
	return res, nil
}

// inferIndex recovers the platform's floating index from the first listing.
// The market reference stands in when the listing cannot be used.
func (e *Engine) inferIndex(ctx context.Context, ads []string, reference *decimal.Decimal) (decimal.Decimal, error) {
	if len(ads) > 0 && e.ads != nil {
		detail, err := e.ads.GetAdDetail(ctx, ads[0])
		switch {
		case err != nil:
			e.logger.Warn("ad detail fetch failed", zap.String("ad_number", ads[0]), zap.Error(err))
		case detail != nil:
			if index, ok := pricing.InferIndex(detail.IsFloating(), detail.Price, detail.PriceFloatingRatio); ok {
				return index, nil
			}
		}
	}
	if reference != nil && reference.IsPositive() {
		return *reference, nil
	}
	return decimal.Zero, ErrIndexUnavailable
}

// pauseIfUnmatched deactivates single-asset rules that opted in; multi-asset
// rules are judged after the whole fan-out.
func (e *Engine) pauseIfUnmatched(ctx context.Context, run *ruleRun, asset, message string) {
	if !run.rule.PauseIfNoMerchantFound || run.multiAsset() {
		return
	}
	if err := e.deactivate(ctx, run.rule, alert.KindDeactivated, asset, message); err != nil {
		e.logger.Warn("deactivate rule failed", zap.String("rule_id", run.rule.ID), zap.Error(err))
		return
	}
	run.result.Deactivated = true
}

func nullablePtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
