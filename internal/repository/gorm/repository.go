package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

// --- pricing rules ----------------------------------------------------------

func (s *Store) CreatePricingRule(ctx context.Context, item *models.PricingRule) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPricingRule(ctx context.Context, id string) (*models.PricingRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.PricingRule
	err := s.db.WithContext(ctx).
		Model(&models.PricingRule{}).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPricingRules(ctx context.Context, params repository.ListPricingRulesParams) ([]models.PricingRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PricingRule{})
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}
	if params.TradeType != nil && strings.TrimSpace(*params.TradeType) != "" {
		query = query.Where("trade_type = ?", strings.ToUpper(strings.TrimSpace(*params.TradeType)))
	}
	if params.Asset != nil && strings.TrimSpace(*params.Asset) != "" {
		query = query.Where("asset = ?", strings.ToUpper(strings.TrimSpace(*params.Asset)))
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.PricingRule
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActivePricingRules(ctx context.Context) ([]models.PricingRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PricingRule
	if err := s.db.WithContext(ctx).
		Model(&models.PricingRule{}).
		Where("is_active = ?", true).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdatePricingRuleFields(ctx context.Context, id string, updates map[string]any) error {
	if s == nil || s.db == nil || len(updates) == 0 {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.PricingRule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) DeletePricingRule(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PricingRule{}).Error
}

// --- pricing logs -----------------------------------------------------------

func (s *Store) InsertPricingLog(ctx context.Context, item *models.PricingLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPricingLogs(ctx context.Context, params repository.ListPricingLogsParams) ([]models.PricingLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyPricingLogFilters(s.db.WithContext(ctx).Model(&models.PricingLog{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.PricingLog
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPricingLogs(ctx context.Context, params repository.ListPricingLogsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyPricingLogFilters(s.db.WithContext(ctx).Model(&models.PricingLog{}), params).Count(&total).Error
	return total, err
}

func applyPricingLogFilters(query *gorm.DB, params repository.ListPricingLogsParams) *gorm.DB {
	if params.RuleID != nil && strings.TrimSpace(*params.RuleID) != "" {
		query = query.Where("rule_id = ?", strings.TrimSpace(*params.RuleID))
	}
	if params.Asset != nil && strings.TrimSpace(*params.Asset) != "" {
		query = query.Where("asset = ?", strings.ToUpper(strings.TrimSpace(*params.Asset)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

// --- exclusions -------------------------------------------------------------

func (s *Store) ListExcludedAds(ctx context.Context) ([]models.ExcludedAd, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ExcludedAd
	if err := s.db.WithContext(ctx).
		Model(&models.ExcludedAd{}).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListExcludedAdNumbers(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var out []string
	if err := s.db.WithContext(ctx).
		Model(&models.ExcludedAd{}).
		Pluck("ad_number", &out).Error; err != nil {
		return nil, err
	}
	return cleanStrings(out), nil
}

func (s *Store) UpsertExcludedAd(ctx context.Context, item *models.ExcludedAd) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.AdNumber = strings.TrimSpace(item.AdNumber)
	if item.AdNumber == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ad_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason"}),
	}).Create(item).Error
}

func (s *Store) DeleteExcludedAd(ctx context.Context, adNumber string) error {
	if s == nil || s.db == nil {
		return nil
	}
	adNumber = strings.TrimSpace(adNumber)
	if adNumber == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("ad_number = ?", adNumber).
		Delete(&models.ExcludedAd{}).Error
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).
		Model(&models.SystemSetting{}).
		Where("key = ?", key).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SystemSetting
	if err := s.db.WithContext(ctx).
		Model(&models.SystemSetting{}).
		Order("key asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
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
