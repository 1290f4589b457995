package repository

import (
	"context"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
)

type PricingRuleRepository interface {
	CreatePricingRule(ctx context.Context, item *models.PricingRule) error
	GetPricingRule(ctx context.Context, id string) (*models.PricingRule, error)
	ListPricingRules(ctx context.Context, params ListPricingRulesParams) ([]models.PricingRule, error)
	ListActivePricingRules(ctx context.Context) ([]models.PricingRule, error)
	// UpdatePricingRuleFields writes only the given columns, leaving
	// concurrent edits to other columns intact.
	UpdatePricingRuleFields(ctx context.Context, id string, updates map[string]any) error
	DeletePricingRule(ctx context.Context, id string) error
}

type PricingLogRepository interface {
	InsertPricingLog(ctx context.Context, item *models.PricingLog) error
	ListPricingLogs(ctx context.Context, params ListPricingLogsParams) ([]models.PricingLog, error)
	CountPricingLogs(ctx context.Context, params ListPricingLogsParams) (int64, error)
}

type ExclusionRepository interface {
	ListExcludedAds(ctx context.Context) ([]models.ExcludedAd, error)
	ListExcludedAdNumbers(ctx context.Context) ([]string, error)
	UpsertExcludedAd(ctx context.Context, item *models.ExcludedAd) error
	DeleteExcludedAd(ctx context.Context, adNumber string) error
}

type SystemSettingRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error)
}

// Repository is the unified store used by the engine, handlers and services.
type Repository interface {
	PricingRuleRepository
	PricingLogRepository
	ExclusionRepository
	SystemSettingRepository
}

type ListPricingRulesParams struct {
	Limit     int
	Offset    int
	Active    *bool
	TradeType *string
	Asset     *string
	OrderBy   string
	Asc       *bool
}

type ListPricingLogsParams struct {
	Limit   int
	Offset  int
	RuleID  *string
	Asset   *string
	Status  *string
	OrderBy string
	Asc     *bool
}
