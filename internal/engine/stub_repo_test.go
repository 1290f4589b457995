package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Rule field updates are merged into fields[ruleID] for assertions.
type stubRepo struct {
	rules    map[string]models.PricingRule
	fields   map[string]map[string]any
	logs     []models.PricingLog
	excluded []string

	excludedErr error
	rulesErr    error
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo(rules ...models.PricingRule) *stubRepo {
	s := &stubRepo{rules: map[string]models.PricingRule{}, fields: map[string]map[string]any{}}
	for _, r := range rules {
		s.rules[r.ID] = r
	}
	return s
}

func (s *stubRepo) CreatePricingRule(_ context.Context, item *models.PricingRule) error {
	s.rules[item.ID] = *item
	return nil
}

func (s *stubRepo) GetPricingRule(_ context.Context, id string) (*models.PricingRule, error) {
	if s.rulesErr != nil {
		return nil, s.rulesErr
	}
	r, ok := s.rules[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *stubRepo) ListPricingRules(context.Context, repository.ListPricingRulesParams) ([]models.PricingRule, error) {
	return s.sortedRules(false), nil
}

func (s *stubRepo) ListActivePricingRules(context.Context) ([]models.PricingRule, error) {
	if s.rulesErr != nil {
		return nil, s.rulesErr
	}
	return s.sortedRules(true), nil
}

func (s *stubRepo) UpdatePricingRuleFields(_ context.Context, id string, updates map[string]any) error {
	if _, ok := s.rules[id]; !ok {
		return errors.New("rule not found")
	}
	if s.fields[id] == nil {
		s.fields[id] = map[string]any{}
	}
	for k, v := range updates {
		s.fields[id][k] = v
	}
	r := s.rules[id]
	if v, ok := updates["is_active"].(bool); ok {
		r.IsActive = v
	}
	if v, ok := updates["consecutive_deviations"].(int); ok {
		r.ConsecutiveDeviations = v
	}
	if v, ok := updates["last_applied_price"].(decimal.NullDecimal); ok {
		r.LastAppliedPrice = v
	}
	if v, ok := updates["last_applied_ratio"].(decimal.NullDecimal); ok {
		r.LastAppliedRatio = v
	}
	if v, ok := updates["asset_state"].(datatypes.JSONType[map[string]models.AssetState]); ok {
		r.AssetState = v
	}
	s.rules[id] = r
	return nil
}

func (s *stubRepo) DeletePricingRule(_ context.Context, id string) error {
	delete(s.rules, id)
	return nil
}

func (s *stubRepo) InsertPricingLog(_ context.Context, item *models.PricingLog) error {
	item.ID = uint64(len(s.logs) + 1)
	s.logs = append(s.logs, *item)
	return nil
}

func (s *stubRepo) ListPricingLogs(context.Context, repository.ListPricingLogsParams) ([]models.PricingLog, error) {
	return s.logs, nil
}

func (s *stubRepo) CountPricingLogs(context.Context, repository.ListPricingLogsParams) (int64, error) {
	return int64(len(s.logs)), nil
}

func (s *stubRepo) ListExcludedAds(context.Context) ([]models.ExcludedAd, error) { return nil, nil }

func (s *stubRepo) ListExcludedAdNumbers(context.Context) ([]string, error) {
	return s.excluded, s.excludedErr
}

func (s *stubRepo) UpsertExcludedAd(context.Context, *models.ExcludedAd) error { return nil }
func (s *stubRepo) DeleteExcludedAd(context.Context, string) error             { return nil }

func (s *stubRepo) UpsertSystemSetting(context.Context, *models.SystemSetting) error { return nil }
func (s *stubRepo) GetSystemSettingByKey(context.Context, string) (*models.SystemSetting, error) {
	return nil, nil
}
func (s *stubRepo) ListSystemSettings(context.Context) ([]models.SystemSetting, error) {
	return nil, nil
}

func (s *stubRepo) sortedRules(activeOnly bool) []models.PricingRule {
	out := make([]models.PricingRule, 0, len(s.rules))
	for _, r := range s.rules {
		if activeOnly && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *stubRepo) logsWith(status, reason string) []models.PricingLog {
	var out []models.PricingLog
	for _, l := range s.logs {
		if l.Status != status {
			continue
		}
		if reason != "" && (l.SkippedReason == nil || *l.SkippedReason != reason) {
			continue
		}
		out = append(out, l)
	}
	return out
}
