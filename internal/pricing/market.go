package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/p2p"
)

// ReferencePrice is the fiat rate for the stable asset and spot × fiat rate
// otherwise. ok is false when either input is missing.
func ReferencePrice(asset, stableAsset string, fiatRate, spot decimal.Decimal) (decimal.Decimal, bool) {
	if !fiatRate.IsPositive() {
		return decimal.Zero, false
	}
	if strings.EqualFold(strings.TrimSpace(asset), strings.TrimSpace(stableAsset)) {
		return fiatRate, true
	}
	if !spot.IsPositive() {
		return decimal.Zero, false
	}
	return spot.Mul(fiatRate), true
}

// DeviationPct is |price - reference| / reference × 100.
func DeviationPct(price, reference decimal.Decimal) (decimal.Decimal, bool) {
	if !reference.IsPositive() {
		return decimal.Zero, false
	}
	return price.Sub(reference).Abs().Div(reference).Mul(hundred), true
}

func DeviationExceeded(deviation decimal.Decimal, maxPct *decimal.Decimal) bool {
	return maxPct != nil && maxPct.IsPositive() && deviation.GreaterThan(*maxPct)
}

// InferIndex recovers the platform index from a live floating listing:
// index = price / (ratio / 100).
func InferIndex(floating bool, price, ratio decimal.Decimal) (decimal.Decimal, bool) {
	if !floating || !price.IsPositive() || !ratio.IsPositive() {
		return decimal.Zero, false
	}
	return price.Div(ratio.Div(hundred)), true
}

// MerchantTargets is the target nickname followed by the fallbacks, in order.
func MerchantTargets(target string, fallbacks []string) []string {
	out := make([]string, 0, len(fallbacks)+1)
	for _, raw := range append([]string{target}, fallbacks...) {
		if v := strings.TrimSpace(raw); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MatchMerchant returns the first listing of the first target that matches.
// Nicknames compare trimmed and case-insensitively. With onlyOnline, a listing
// without an online indicator still counts as online.
func MatchMerchant(listings []p2p.Listing, targets []string, onlyOnline bool) (p2p.Listing, bool) {
	for _, target := range targets {
		want := strings.TrimSpace(target)
		if want == "" {
			continue
		}
		for _, l := range listings {
			if !strings.EqualFold(strings.TrimSpace(l.Nickname), want) {
				continue
			}
			if onlyOnline && l.Online != nil && !*l.Online {
				continue
			}
			return l, true
		}
	}
	return p2p.Listing{}, false
}

// FilterExcluded drops listing numbers present in the exclusion set.
func FilterExcluded(adNumbers []string, excluded map[string]struct{}) []string {
	out := make([]string, 0, len(adNumbers))
	for _, ad := range adNumbers {
		if _, skip := excluded[ad]; skip {
			continue
		}
		out = append(out, ad)
	}
	return out
}
