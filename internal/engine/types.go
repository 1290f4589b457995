package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/ads"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/p2p"
)

var (
	ErrRuleNotFound     = errors.New("pricing rule not found")
	ErrIndexUnavailable = errors.New("floating index unavailable")
	ErrNoAssets         = errors.New("rule has no asset configured")

	errAdsNotConfigured = errors.New("ads api is not configured")
)

// Outcome statuses reported in results.
const (
	StatusSuccess  = "success"
	StatusSkipped  = "skipped"
	StatusError    = "error"
	StatusNoChange = "no_change"

	ReasonLocked = "locked"
)

type MarketData interface {
	FiatRate(ctx context.Context, fiat string) (decimal.Decimal, string)
	SpotRate(ctx context.Context, asset string) decimal.Decimal
	SearchListings(ctx context.Context, asset, fiat, tradeType string) ([]p2p.Listing, error)
}

type AdsAPI interface {
	UpdateAd(ctx context.Context, req ads.UpdateAdRequest) error
	GetAdDetail(ctx context.Context, advNo string) (*ads.AdDetail, error)
}

// Pacer blocks until the next external update call may be made.
type Pacer interface {
	Wait(ctx context.Context) error
}

type Switches interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

// NewPacer spaces calls at least interval apart. The first call is free.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

type Request struct {
	RuleID string `json:"ruleId"`
}

type Response struct {
	Success bool         `json:"success"`
	Results []RuleResult `json:"results"`
}

type RuleResult struct {
	RuleID      string        `json:"ruleId"`
	RuleName    string        `json:"ruleName"`
	Status      string        `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Error       string        `json:"error,omitempty"`
	Deactivated bool          `json:"deactivated,omitempty"`
	DryRun      bool          `json:"dryRun,omitempty"`
	Assets      []AssetResult `json:"assets,omitempty"`
}

type AssetResult struct {
	Asset           string           `json:"asset"`
	Status          string           `json:"status"`
	Reason          string           `json:"reason,omitempty"`
	Updated         int              `json:"updated"`
	Skipped         int              `json:"skipped"`
	Failed          int              `json:"failed"`
	Merchant        string           `json:"merchant,omitempty"`
	CompetitorPrice *decimal.Decimal `json:"competitorPrice,omitempty"`
	TargetPrice     *decimal.Decimal `json:"targetPrice,omitempty"`
	TargetRatio     *decimal.Decimal `json:"targetRatio,omitempty"`
	Error           string           `json:"error,omitempty"`
}

func skippedAsset(asset, reason string) AssetResult {
	return AssetResult{Asset: asset, Status: StatusSkipped, Reason: reason}
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
