package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository"
)

// auditor appends pricing log rows. A failed insert is logged and never
// interrupts the pass.
type auditor struct {
	repo   repository.PricingLogRepository
	logger *zap.Logger
	now    func() time.Time
}

func (a *auditor) write(ctx context.Context, row *models.PricingLog) {
	if a == nil || a.repo == nil || row == nil {
		return
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = a.now().UTC()
	}
	if err := a.repo.InsertPricingLog(ctx, row); err != nil && a.logger != nil {
		a.logger.Warn("pricing log insert failed",
			zap.String("rule_id", row.RuleID),
			zap.String("asset", row.Asset),
			zap.String("status", row.Status),
			zap.Error(err),
		)
	}
}

func (a *auditor) skipped(ctx context.Context, rule *models.PricingRule, asset, reason string, fill func(*models.PricingLog)) {
	r := reason
	row := &models.PricingLog{
		RuleID:        rule.ID,
		Asset:         asset,
		Status:        models.LogStatusSkipped,
		SkippedReason: &r,
	}
	if fill != nil {
		fill(row)
	}
	a.write(ctx, row)
}

func (a *auditor) failed(ctx context.Context, rule *models.PricingRule, asset, adNumber string, err error, fill func(*models.PricingLog)) {
	msg := err.Error()
	row := &models.PricingLog{
		RuleID:       rule.ID,
		Asset:        asset,
		AdNumber:     adNumber,
		Status:       models.LogStatusError,
		ErrorMessage: &msg,
	}
	if fill != nil {
		fill(row)
	}
	a.write(ctx, row)
}

// competitor fills the market observation columns shared by most rows.
func competitor(merchant string, price decimal.Decimal, ref, dev *decimal.Decimal) func(*models.PricingLog) {
	return func(row *models.PricingLog) {
		row.CompetitorMerchant = merchant
		row.CompetitorPrice = decimal.NewNullDecimal(price)
		if ref != nil {
			row.MarketReferencePrice = decimal.NewNullDecimal(*ref)
		}
		if dev != nil {
			row.DeviationPct = decimal.NewNullDecimal(dev.Round(4))
		}
	}
}
