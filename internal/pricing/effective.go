package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
)

// Effective is the rule configuration as seen by a single asset: rule-level
// defaults with the asset's override layered on top.
type Effective struct {
	Asset     string
	PriceType string

	OffsetAmount    decimal.Decimal
	OffsetPct       decimal.Decimal
	OffsetDirection string

	MaxCeiling      *decimal.Decimal
	MinFloor        *decimal.Decimal
	MaxRatioCeiling *decimal.Decimal
	MinRatioFloor   *decimal.Decimal

	MaxPriceChangePerCycle *decimal.Decimal
	MaxRatioChangePerCycle *decimal.Decimal

	RestingPrice *decimal.Decimal
	RestingRatio *decimal.Decimal

	AdNumbers []string
}

func (e Effective) IsFloating() bool {
	return e.PriceType == models.PriceTypeFloating
}

// Resting returns the value pushed outside active hours, if configured for
// the listing price type.
func (e Effective) Resting() (*decimal.Decimal, bool) {
	if e.IsFloating() {
		return e.RestingRatio, e.RestingRatio != nil
	}
	return e.RestingPrice, e.RestingPrice != nil
}

// Assets resolves the fan-out list: assets[] when set, else the single asset.
func Assets(rule *models.PricingRule) []string {
	if rule == nil {
		return nil
	}
	out := make([]string, 0, len(rule.Assets)+1)
	seen := map[string]struct{}{}
	for _, raw := range rule.Assets {
		a := normalizeAsset(raw)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	if len(out) == 0 {
		if a := normalizeAsset(rule.Asset); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// EffectiveConfig merges rule defaults with assetConfig[asset].
func EffectiveConfig(rule *models.PricingRule, asset string) Effective {
	asset = normalizeAsset(asset)
	eff := Effective{
		Asset:                  asset,
		PriceType:              strings.ToUpper(strings.TrimSpace(rule.PriceType)),
		OffsetAmount:           rule.OffsetAmount,
		OffsetPct:              rule.OffsetPct,
		OffsetDirection:        strings.ToUpper(strings.TrimSpace(rule.OffsetDirection)),
		MaxCeiling:             nullable(rule.MaxCeiling),
		MinFloor:               nullable(rule.MinFloor),
		MaxRatioCeiling:        nullable(rule.MaxRatioCeiling),
		MinRatioFloor:          nullable(rule.MinRatioFloor),
		MaxPriceChangePerCycle: nullable(rule.MaxPriceChangePerCycle),
		MaxRatioChangePerCycle: nullable(rule.MaxRatioChangePerCycle),
		RestingPrice:           nullable(rule.RestingPrice),
		RestingRatio:           nullable(rule.RestingRatio),
		AdNumbers:              cleanAdNumbers(rule.AdNumbers),
	}
	if eff.PriceType == "" {
		eff.PriceType = models.PriceTypeFixed
	}
	if eff.OffsetDirection == "" {
		eff.OffsetDirection = models.OffsetUndercut
	}

	ov, ok := lookupOverride(rule, asset)
	if !ok {
		return eff
	}
	if ov.OffsetAmount != nil {
		eff.OffsetAmount = *ov.OffsetAmount
	}
	if ov.OffsetPct != nil {
		eff.OffsetPct = *ov.OffsetPct
	}
	if ov.OffsetDirection != nil && strings.TrimSpace(*ov.OffsetDirection) != "" {
		eff.OffsetDirection = strings.ToUpper(strings.TrimSpace(*ov.OffsetDirection))
	}
	override(&eff.MaxCeiling, ov.MaxCeiling)
	override(&eff.MinFloor, ov.MinFloor)
	override(&eff.MaxRatioCeiling, ov.MaxRatioCeiling)
	override(&eff.MinRatioFloor, ov.MinRatioFloor)
	override(&eff.MaxPriceChangePerCycle, ov.MaxPriceChangePerCycle)
	override(&eff.MaxRatioChangePerCycle, ov.MaxRatioChangePerCycle)
	override(&eff.RestingPrice, ov.RestingPrice)
	override(&eff.RestingRatio, ov.RestingRatio)
	if ads := cleanAdNumbers(ov.AdNumbers); len(ads) > 0 {
		eff.AdNumbers = ads
	}
	return eff
}

// LastApplied returns the asset's last applied price and ratio. The rule-level
// columns act as the state of the rule's primary asset.
func LastApplied(rule *models.PricingRule, asset string) (price, ratio *decimal.Decimal) {
	asset = normalizeAsset(asset)
	if st, ok := rule.AssetState.Data()[asset]; ok {
		price, ratio = st.LastAppliedPrice, st.LastAppliedRatio
	}
	if asset == normalizeAsset(rule.Asset) {
		if price == nil {
			price = nullable(rule.LastAppliedPrice)
		}
		if ratio == nil {
			ratio = nullable(rule.LastAppliedRatio)
		}
	}
	return price, ratio
}

func lookupOverride(rule *models.PricingRule, asset string) (models.AssetOverride, bool) {
	for k, v := range rule.AssetConfig.Data() {
		if normalizeAsset(k) == asset {
			return v, true
		}
	}
	return models.AssetOverride{}, false
}

func override(dst **decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func nullable(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func normalizeAsset(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func cleanAdNumbers(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
