package handler

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
type stubRepo struct {
	rules    map[string]models.PricingRule
	fields   map[string]map[string]any
	logs     []models.PricingLog
	excluded map[string]models.ExcludedAd
	settings map[string]models.SystemSetting

	lastLogParams repository.ListPricingLogsParams
	// afterGet runs once a rule has been read, standing in for a concurrent
	// writer.
	afterGet func(id string)
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo() *stubRepo {
	return &stubRepo{
		rules:    map[string]models.PricingRule{},
		fields:   map[string]map[string]any{},
		excluded: map[string]models.ExcludedAd{},
		settings: map[string]models.SystemSetting{},
	}
}

func (s *stubRepo) CreatePricingRule(_ context.Context, item *models.PricingRule) error {
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	s.rules[item.ID] = *item
	return nil
}

func (s *stubRepo) GetPricingRule(_ context.Context, id string) (*models.PricingRule, error) {
	r, ok := s.rules[id]
	if s.afterGet != nil {
		s.afterGet(id)
	}
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *stubRepo) ListPricingRules(_ context.Context, params repository.ListPricingRulesParams) ([]models.PricingRule, error) {
	out := make([]models.PricingRule, 0, len(s.rules))
	for _, r := range s.rules {
		if params.Active != nil && r.IsActive != *params.Active {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *stubRepo) ListActivePricingRules(ctx context.Context) ([]models.PricingRule, error) {
	active := true
	return s.ListPricingRules(ctx, repository.ListPricingRulesParams{Active: &active})
}

func (s *stubRepo) UpdatePricingRuleFields(_ context.Context, id string, updates map[string]any) error {
	if s.fields[id] == nil {
		s.fields[id] = map[string]any{}
	}
	for k, v := range updates {
		s.fields[id][k] = v
	}
	r, ok := s.rules[id]
	if !ok {
		return nil
	}
	// Column names match the JSON tags, so the updates apply as a JSON overlay.
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	row := map[string]any{}
	if err := json.Unmarshal(raw, &row); err != nil {
		return err
	}
	for k, v := range updates {
		row[k] = v
	}
	if raw, err = json.Marshal(row); err != nil {
		return err
	}
	var next models.PricingRule
	if err := json.Unmarshal(raw, &next); err != nil {
		return err
	}
	s.rules[id] = next
	return nil
}

func (s *stubRepo) DeletePricingRule(_ context.Context, id string) error {
	delete(s.rules, id)
	return nil
}

func (s *stubRepo) InsertPricingLog(_ context.Context, item *models.PricingLog) error {
	s.logs = append(s.logs, *item)
	return nil
}

func (s *stubRepo) ListPricingLogs(_ context.Context, params repository.ListPricingLogsParams) ([]models.PricingLog, error) {
	s.lastLogParams = params
	out := s.filterLogs(params)
	if params.Offset < len(out) {
		out = out[params.Offset:]
	} else {
		out = nil
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *stubRepo) CountPricingLogs(_ context.Context, params repository.ListPricingLogsParams) (int64, error) {
	return int64(len(s.filterLogs(params))), nil
}

func (s *stubRepo) filterLogs(params repository.ListPricingLogsParams) []models.PricingLog {
	var out []models.PricingLog
	for _, l := range s.logs {
		if params.RuleID != nil && l.RuleID != *params.RuleID {
			continue
		}
		if params.Asset != nil && !strings.EqualFold(l.Asset, *params.Asset) {
			continue
		}
		if params.Status != nil && l.Status != *params.Status {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (s *stubRepo) ListExcludedAds(context.Context) ([]models.ExcludedAd, error) {
	out := make([]models.ExcludedAd, 0, len(s.excluded))
	for _, it := range s.excluded {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdNumber < out[j].AdNumber })
	return out, nil
}

func (s *stubRepo) ListExcludedAdNumbers(ctx context.Context) ([]string, error) {
	items, _ := s.ListExcludedAds(ctx)
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.AdNumber)
	}
	return out, nil
}

func (s *stubRepo) UpsertExcludedAd(_ context.Context, item *models.ExcludedAd) error {
	s.excluded[item.AdNumber] = *item
	return nil
}

func (s *stubRepo) DeleteExcludedAd(_ context.Context, adNumber string) error {
	delete(s.excluded, adNumber)
	return nil
}

func (s *stubRepo) UpsertSystemSetting(_ context.Context, item *models.SystemSetting) error {
	s.settings[item.Key] = *item
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(_ context.Context, key string) (*models.SystemSetting, error) {
	it, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (s *stubRepo) ListSystemSettings(context.Context) ([]models.SystemSetting, error) {
	out := make([]models.SystemSetting, 0, len(s.settings))
	for _, it := range s.settings {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
