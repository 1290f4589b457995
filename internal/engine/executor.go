package engine

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/ads"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
)

// executeListings pushes value to each listing in order. One listing failing
// never stops the rest.
func (e *Engine) executeListings(ctx context.Context, run *ruleRun, asset string, adNumbers []string, floating bool, value decimal.Decimal, fill func(*models.PricingLog)) (updated, failed int) {
	for _, ad := range adNumbers {
		if err := e.pushListing(ctx, ad, floating, value, run.dryRun); err != nil {
			failed++
			e.logger.Warn("listing update failed",
				zap.String("rule_id", run.rule.ID),
				zap.String("asset", asset),
				zap.String("ad_number", ad),
				zap.Error(err),
			)
			e.audit.failed(ctx, run.rule, asset, ad, err, fill)
			continue
		}
		updated++
		e.audit.write(ctx, appliedRow(run.rule, asset, ad, fill))
	}
	return updated, failed
}

// pushListing waits for the pacer and sends one update. Dry runs stop short
// of the external call.
func (e *Engine) pushListing(ctx context.Context, adNumber string, floating bool, value decimal.Decimal, dryRun bool) error {
	if dryRun {
		return nil
	}
	if e.ads == nil {
		return errAdsNotConfigured
	}
	if err := e.pacer.Wait(ctx); err != nil {
		return err
	}
	v := value
	req := ads.UpdateAdRequest{AdvNo: adNumber}
	if floating {
		req.PriceType = ads.PriceTypeFloating
		req.PriceFloatingRatio = &v
	} else {
		req.PriceType = ads.PriceTypeFixed
		req.Price = &v
	}
	return e.ads.UpdateAd(ctx, req)
}

func appliedRow(rule *models.PricingRule, asset, adNumber string, fill func(*models.PricingLog)) *models.PricingLog {
	row := &models.PricingLog{
		RuleID:   rule.ID,
		Asset:    asset,
		AdNumber: adNumber,
		Status:   models.LogStatusApplied,
	}
	if fill != nil {
		fill(row)
	}
	return row
}

func setValues(row *models.PricingLog, floating bool, calculated, applied decimal.Decimal) {
	if floating {
		row.CalculatedRatio = decimal.NewNullDecimal(calculated)
		row.AppliedRatio = decimal.NewNullDecimal(applied)
		return
	}
	row.CalculatedPrice = decimal.NewNullDecimal(calculated)
	row.AppliedPrice = decimal.NewNullDecimal(applied)
}
