package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"

	PriceTypeFixed    = "FIXED"
	PriceTypeFloating = "FLOATING"

	OffsetOvercut  = "OVERCUT"
	OffsetUndercut = "UNDERCUT"
)

// PricingRule is a standing instruction to keep one or more P2P listings
// priced against a competitor merchant.
type PricingRule struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(120);not null" json:"name"`
	IsActive bool   `gorm:"not null;default:true;index" json:"is_active"`

	TradeType string `gorm:"type:varchar(8);not null" json:"trade_type"`
	Fiat      string `gorm:"type:varchar(10);not null;default:'INR'" json:"fiat"`
	Asset     string `gorm:"type:varchar(20);not null;default:'USDT'" json:"asset"`

	// Assets enables multi-asset fan-out; empty means Asset only.
	Assets      datatypes.JSONSlice[string]                  `gorm:"type:jsonb" json:"assets"`
	AssetConfig datatypes.JSONType[map[string]AssetOverride] `gorm:"type:jsonb" json:"asset_config"`
	AdNumbers   datatypes.JSONSlice[string]                  `gorm:"type:jsonb" json:"ad_numbers"`

	PriceType       string              `gorm:"type:varchar(10);not null;default:'FIXED'" json:"price_type"`
	OffsetAmount    decimal.Decimal     `gorm:"type:numeric(20,8);not null;default:0" json:"offset_amount"`
	OffsetPct       decimal.Decimal     `gorm:"type:numeric(20,8);not null;default:0" json:"offset_pct"`
	OffsetDirection string              `gorm:"type:varchar(10);not null;default:'UNDERCUT'" json:"offset_direction"`
	MaxCeiling      decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"max_ceiling"`
	MinFloor        decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"min_floor"`
	MaxRatioCeiling decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"max_ratio_ceiling"`
	MinRatioFloor   decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"min_ratio_floor"`

	MaxPriceChangePerCycle decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"max_price_change_per_cycle"`
	MaxRatioChangePerCycle decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"max_ratio_change_per_cycle"`
	LastAppliedPrice       decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"last_applied_price"`
	LastAppliedRatio       decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"last_applied_ratio"`

	AssetState datatypes.JSONType[map[string]AssetState] `gorm:"type:jsonb" json:"asset_state"`

	MaxDeviationFromMarketPct decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"max_deviation_from_market_pct"`
	ConsecutiveDeviations     int                 `gorm:"not null;default:0" json:"consecutive_deviations"`
	AutoPauseAfterDeviations  int                 `gorm:"not null;default:0" json:"auto_pause_after_deviations"`
	LastDeviationPct          decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"last_deviation_pct"`

	// Active hours are "HH:MM" in the fixed UTC+05:30 reference zone.
	ActiveHoursStart string              `gorm:"type:varchar(5)" json:"active_hours_start"`
	ActiveHoursEnd   string              `gorm:"type:varchar(5)" json:"active_hours_end"`
	RestingPrice     decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"resting_price"`
	RestingRatio     decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"resting_ratio"`

	LastManualEditAt              *time.Time `gorm:"type:timestamptz" json:"last_manual_edit_at"`
	ManualOverrideCooldownMinutes int        `gorm:"not null;default:0" json:"manual_override_cooldown_minutes"`

	TargetMerchant         string                      `gorm:"type:varchar(120)" json:"target_merchant"`
	FallbackMerchants      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"fallback_merchants"`
	OnlyCounterWhenOnline  bool                        `gorm:"not null;default:false" json:"only_counter_when_online"`
	PauseIfNoMerchantFound bool                        `gorm:"not null;default:false" json:"pause_if_no_merchant_found"`

	LastMatchedMerchant string              `gorm:"type:varchar(120)" json:"last_matched_merchant"`
	LastCompetitorPrice decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"last_competitor_price"`

	LastCheckedAt     *time.Time `gorm:"type:timestamptz" json:"last_checked_at"`
	LastError         *string    `gorm:"type:text" json:"last_error"`
	ConsecutiveErrors int        `gorm:"not null;default:0" json:"consecutive_errors"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (PricingRule) TableName() string {
	return "pricing_rules"
}

// AssetOverride layers over the rule-level defaults for one asset. Nil fields
// inherit the rule value.
type AssetOverride struct {
	OffsetAmount           *decimal.Decimal `json:"offset_amount,omitempty"`
	OffsetPct              *decimal.Decimal `json:"offset_pct,omitempty"`
	OffsetDirection        *string          `json:"offset_direction,omitempty"`
	MaxCeiling             *decimal.Decimal `json:"max_ceiling,omitempty"`
	MinFloor               *decimal.Decimal `json:"min_floor,omitempty"`
	MaxRatioCeiling        *decimal.Decimal `json:"max_ratio_ceiling,omitempty"`
	MinRatioFloor          *decimal.Decimal `json:"min_ratio_floor,omitempty"`
	MaxPriceChangePerCycle *decimal.Decimal `json:"max_price_change_per_cycle,omitempty"`
	MaxRatioChangePerCycle *decimal.Decimal `json:"max_ratio_change_per_cycle,omitempty"`
	RestingPrice           *decimal.Decimal `json:"resting_price,omitempty"`
	RestingRatio           *decimal.Decimal `json:"resting_ratio,omitempty"`
	AdNumbers              []string         `json:"ad_numbers,omitempty"`
}

// AssetState is the per-asset memory of the last applied cycle.
type AssetState struct {
	LastAppliedPrice    *decimal.Decimal `json:"last_applied_price,omitempty"`
	LastAppliedRatio    *decimal.Decimal `json:"last_applied_ratio,omitempty"`
	LastCompetitorPrice *decimal.Decimal `json:"last_competitor_price,omitempty"`
	LastMatchedMerchant string           `json:"last_matched_merchant,omitempty"`
	UpdatedAt           *time.Time       `json:"updated_at,omitempty"`
}
