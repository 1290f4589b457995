package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/alert"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/lock"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/service"
)

type Options struct {
	// StableAsset is priced directly against the fiat rate.
	StableAsset string
	// Zone is where active-hours windows are evaluated.
	Zone    *time.Location
	LockTTL time.Duration
	DryRun  bool
}

type Deps struct {
	Repo     repository.Repository
	Market   MarketData
	Ads      AdsAPI
	Locker   lock.Locker
	Notifier alert.Notifier
	Pacer    Pacer
	Switches Switches
	Logger   *zap.Logger
	Now      func() time.Time
	Options  Options
}

// Engine runs pricing passes. A pass is strictly sequential: rules one at a
// time, assets within a rule one at a time, listings one at a time.
type Engine struct {
	repo     repository.Repository
	market   MarketData
	ads      AdsAPI
	locker   lock.Locker
	notifier alert.Notifier
	pacer    Pacer
	switches Switches
	logger   *zap.Logger
	now      func() time.Time
	opts     Options
	audit    *auditor
}

func New(d Deps) *Engine {
	e := &Engine{
		repo:     d.Repo,
		market:   d.Market,
		ads:      d.Ads,
		locker:   d.Locker,
		notifier: d.Notifier,
		pacer:    d.Pacer,
		switches: d.Switches,
		logger:   d.Logger,
		now:      d.Now,
		opts:     d.Options,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.pacer == nil {
		e.pacer = NewPacer(0)
	}
	if e.locker == nil {
		e.locker = lock.NewMemoryLocker()
	}
	if strings.TrimSpace(e.opts.StableAsset) == "" {
		e.opts.StableAsset = "USDT"
	}
	e.opts.StableAsset = strings.ToUpper(strings.TrimSpace(e.opts.StableAsset))
	if e.opts.Zone == nil {
		e.opts.Zone = time.FixedZone("UTC+05:30", 5*3600+30*60)
	}
	if e.opts.LockTTL <= 0 {
		e.opts.LockTTL = 5 * time.Minute
	}
	e.audit = &auditor{repo: d.Repo, logger: e.logger, now: e.now}
	return e
}

// Run executes one pass. With RuleID set only that rule is evaluated, active
// or not; otherwise every active rule is. The error is non-nil only when the
// rule set or the exclusion set cannot be loaded; everything after that is
// reported inside the response.
func (e *Engine) Run(ctx context.Context, req Request) (Response, error) {
	if e == nil || e.repo == nil {
		return Response{}, fmt.Errorf("engine is not configured")
	}
	started := e.now()

	excludedList, err := e.repo.ListExcludedAdNumbers(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("load excluded ads: %w", err)
	}
	excluded := make(map[string]struct{}, len(excludedList))
	for _, ad := range excludedList {
		excluded[strings.TrimSpace(ad)] = struct{}{}
	}

	rules, err := e.loadRules(ctx, strings.TrimSpace(req.RuleID))
	if err != nil {
		return Response{}, err
	}

	dryRun := e.opts.DryRun || e.switchOn(ctx, service.FeatureAutoPriceDryRun, false)
	results := make([]RuleResult, 0, len(rules))
	counts := map[string]int{}
	for i := range rules {
		res := e.processRule(ctx, &rules[i], excluded, dryRun)
		results = append(results, res)
		counts[res.Status]++
	}

	e.logger.Info("auto price pass finished",
		zap.String("rule_id", req.RuleID),
		zap.Int("rules", len(rules)),
		zap.Int("excluded_ads", len(excluded)),
		zap.Int("success", counts[StatusSuccess]),
		zap.Int("skipped", counts[StatusSkipped]),
		zap.Int("error", counts[StatusError]),
		zap.Bool("dry_run", dryRun),
		zap.Duration("elapsed", e.now().Sub(started)),
	)
	return Response{Success: true, Results: results}, nil
}

func (e *Engine) loadRules(ctx context.Context, ruleID string) ([]models.PricingRule, error) {
	if ruleID == "" {
		rules, err := e.repo.ListActivePricingRules(ctx)
		if err != nil {
			return nil, fmt.Errorf("load active rules: %w", err)
		}
		return rules, nil
	}
	rule, err := e.repo.GetPricingRule(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("load rule %s: %w", ruleID, err)
	}
	if rule == nil {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
	}
	return []models.PricingRule{*rule}, nil
}

func (e *Engine) processRule(ctx context.Context, rule *models.PricingRule, excluded map[string]struct{}, dryRun bool) RuleResult {
	base := RuleResult{RuleID: rule.ID, RuleName: rule.Name, DryRun: dryRun}

	release, ok, err := e.locker.Acquire(ctx, lock.RuleKey(rule.ID), e.opts.LockTTL)
	if err != nil {
		err = fmt.Errorf("acquire rule lock: %w", err)
		e.failRule(ctx, rule, err)
		base.Status = StatusError
		base.Error = err.Error()
		return base
	}
	if !ok {
		e.logger.Info("pricing rule busy, skipping", zap.String("rule_id", rule.ID))
		base.Status = StatusSkipped
		base.Reason = ReasonLocked
		return base
	}
	defer release()

	run := &ruleRun{rule: rule, excluded: excluded, dryRun: dryRun, result: base}
	if err := e.evaluate(ctx, run); err != nil {
		e.failRule(ctx, rule, err)
		run.result.Status = StatusError
		run.result.Error = err.Error()
		return run.result
	}
	e.markChecked(ctx, rule)
	return run.result
}

func (e *Engine) failRule(ctx context.Context, rule *models.PricingRule, err error) {
	e.logger.Error("pricing rule failed", zap.String("rule_id", rule.ID), zap.Error(err))
	e.markFailed(ctx, rule, err)
	e.notify(ctx, alert.Event{
		Kind:     alert.KindRuleError,
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Message:  err.Error(),
	})
}

func (e *Engine) notify(ctx context.Context, ev alert.Event) {
	if e.notifier == nil || !e.switchOn(ctx, service.FeatureAutoPriceAlerts, true) {
		return
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.logger.Warn("alert failed", zap.String("kind", ev.Kind), zap.Error(err))
	}
}

func (e *Engine) switchOn(ctx context.Context, key string, fallback bool) bool {
	if e.switches == nil {
		return fallback
	}
	return e.switches.IsEnabled(ctx, key, fallback)
}
