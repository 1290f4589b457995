package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LogStatusApplied  = "applied"
	LogStatusSkipped  = "skipped"
	LogStatusError    = "error"
	LogStatusNoChange = "no_change"
)

const (
	SkipOutsideHours      = "outside_hours"
	SkipCooldown          = "cooldown"
	SkipAutoPaused        = "auto_paused"
	SkipNoListings        = "no_listings"
	SkipNoMerchant        = "no_merchant"
	SkipDeviationExceeded = "deviation_exceeded"
	SkipNoAds             = "no_ads"
)

// PricingLog is an append-only audit row, one per evaluation outcome.
type PricingLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	RuleID   string `gorm:"type:varchar(36);not null;index:idx_pricing_logs_rule_created,priority:1" json:"rule_id"`
	Asset    string `gorm:"type:varchar(20);index" json:"asset"`
	AdNumber string `gorm:"type:varchar(40)" json:"ad_number"`

	Status        string  `gorm:"type:varchar(16);not null;index" json:"status"`
	SkippedReason *string `gorm:"type:varchar(32)" json:"skipped_reason"`
	IsResting     bool    `gorm:"not null;default:false" json:"is_resting"`

	CompetitorMerchant   string              `gorm:"type:varchar(120)" json:"competitor_merchant"`
	CompetitorPrice      decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"competitor_price"`
	MarketReferencePrice decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"market_reference_price"`
	DeviationPct         decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"deviation_pct"`

	CalculatedPrice decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"calculated_price"`
	AppliedPrice    decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"applied_price"`
	CalculatedRatio decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"calculated_ratio"`
	AppliedRatio    decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"applied_ratio"`
	WasCapped       bool                `gorm:"not null;default:false" json:"was_capped"`
	WasRateLimited  bool                `gorm:"not null;default:false" json:"was_rate_limited"`

	ErrorMessage *string `gorm:"type:text" json:"error_message"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index:idx_pricing_logs_rule_created,priority:2" json:"created_at"`
}

func (PricingLog) TableName() string {
	return "pricing_logs"
}
