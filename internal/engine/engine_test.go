package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/alert"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/ads"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/p2p"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/lock"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
)

// 06:30 UTC is 12:00 in the reference zone.
var testNow = time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeMarket struct {
	fiat      decimal.Decimal
	spot      map[string]decimal.Decimal
	listings  map[string][]p2p.Listing
	searchErr map[string]error
	searches  []string
}

func (f *fakeMarket) FiatRate(context.Context, string) (decimal.Decimal, string) {
	return f.fiat, "test"
}

func (f *fakeMarket) SpotRate(_ context.Context, asset string) decimal.Decimal {
	return f.spot[asset]
}

func (f *fakeMarket) SearchListings(_ context.Context, asset, fiat, tradeType string) ([]p2p.Listing, error) {
	f.searches = append(f.searches, asset+"/"+fiat+"/"+tradeType)
	if err := f.searchErr[asset]; err != nil {
		return nil, err
	}
	return f.listings[asset], nil
}

type fakeAds struct {
	updates []ads.UpdateAdRequest
	fail    map[string]error
	details map[string]*ads.AdDetail
}

func (f *fakeAds) UpdateAd(_ context.Context, req ads.UpdateAdRequest) error {
	f.updates = append(f.updates, req)
	return f.fail[req.AdvNo]
}

func (f *fakeAds) GetAdDetail(_ context.Context, advNo string) (*ads.AdDetail, error) {
	if det, ok := f.details[advNo]; ok {
		return det, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeAds) updatedAds() []string {
	out := make([]string, 0, len(f.updates))
	for _, u := range f.updates {
		out = append(out, u.AdvNo)
	}
	return out
}

type fakeNotifier struct {
	events []alert.Event
}

func (f *fakeNotifier) Notify(_ context.Context, ev alert.Event) error {
	f.events = append(f.events, ev)
	return nil
}

type fixture struct {
	repo     *stubRepo
	market   *fakeMarket
	ads      *fakeAds
	notifier *fakeNotifier
	locker   *lock.MemoryLocker
	engine   *Engine
	clock    time.Time
}

func newFixture(t *testing.T, opts Options, rules ...models.PricingRule) *fixture {
	t.Helper()
	f := &fixture{
		repo: newStubRepo(rules...),
		market: &fakeMarket{
			fiat:     d("91"),
			spot:     map[string]decimal.Decimal{},
			listings: map[string][]p2p.Listing{},
		},
		ads:      &fakeAds{fail: map[string]error{}, details: map[string]*ads.AdDetail{}},
		notifier: &fakeNotifier{},
		locker:   lock.NewMemoryLocker(),
		clock:    testNow,
	}
	f.engine = New(Deps{
		Repo:     f.repo,
		Market:   f.market,
		Ads:      f.ads,
		Locker:   f.locker,
		Notifier: f.notifier,
		Now:      func() time.Time { return f.clock },
		Options:  opts,
	})
	return f
}

func (f *fixture) run(t *testing.T, ruleID string) Response {
	t.Helper()
	resp, err := f.engine.Run(context.Background(), Request{RuleID: ruleID})
	require.NoError(t, err)
	require.True(t, resp.Success)
	return resp
}

func fixedRule() models.PricingRule {
	return models.PricingRule{
		ID:              "r1",
		Name:            "usdt sell",
		IsActive:        true,
		TradeType:       models.TradeTypeSell,
		Fiat:            "INR",
		Asset:           "USDT",
		PriceType:       models.PriceTypeFixed,
		OffsetAmount:    d("0.05"),
		OffsetDirection: models.OffsetUndercut,
		AdNumbers:       datatypes.JSONSlice[string]{"A1"},
		TargetMerchant:  "Alpha",
	}
}

func competitorAt(price string) []p2p.Listing {
	return []p2p.Listing{
		{Nickname: "Other", Price: d("90.10")},
		{Nickname: "alpha", Price: d(price)},
	}
}

func TestFixedUndercutAppliesOffset(t *testing.T) {
	f := newFixture(t, Options{}, fixedRule())
	f.market.listings["USDT"] = competitorAt("91.00")

	resp := f.run(t, "")

	require.Len(t, resp.Results, 1)
	res := resp.Results[0]
	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Assets, 1)
	assert.Equal(t, 1, res.Assets[0].Updated)
	assert.Equal(t, []string{"USDT/INR/BUY"}, f.market.searches)

	require.Len(t, f.ads.updates, 1)
	upd := f.ads.updates[0]
	assert.Equal(t, ads.PriceTypeFixed, upd.PriceType)
	require.NotNil(t, upd.Price)
	assert.True(t, upd.Price.Equal(d("90.95")), "price %s", upd.Price)
	assert.Nil(t, upd.PriceFloatingRatio)

	applied := f.repo.logsWith(models.LogStatusApplied, "")
	require.Len(t, applied, 1)
	assert.Equal(t, "A1", applied[0].AdNumber)
	assert.True(t, applied[0].AppliedPrice.Decimal.Equal(d("90.95")))
	assert.False(t, applied[0].WasCapped)
	assert.Equal(t, "alpha", applied[0].CompetitorMerchant)

	fields := f.repo.fields["r1"]
	last, ok := fields["last_applied_price"].(decimal.NullDecimal)
	require.True(t, ok)
	assert.True(t, last.Decimal.Equal(d("90.95")))
	assert.Nil(t, fields["last_error"])
	assert.Equal(t, 0, fields["consecutive_errors"])
	assert.Equal(t, testNow.UTC(), fields["last_checked_at"])
}

func TestFixedPriceCappedAtCeiling(t *testing.T) {
	rule := fixedRule()
	rule.OffsetAmount = d("0.20")
	rule.OffsetDirection = models.OffsetOvercut
	rule.MaxCeiling = decimal.NewNullDecimal(d("91.00"))
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91.00")

	f.run(t, "")

	require.Len(t, f.ads.updates, 1)
	assert.True(t, f.ads.updates[0].Price.Equal(d("91.00")))
	applied := f.repo.logsWith(models.LogStatusApplied, "")
	require.Len(t, applied, 1)
	assert.True(t, applied[0].WasCapped)
	assert.True(t, applied[0].CalculatedPrice.Decimal.Equal(d("91.20")))
	assert.True(t, applied[0].AppliedPrice.Decimal.Equal(d("91.00")))
}

func TestFloatingRatioFromInferredIndex(t *testing.T) {
	rule := fixedRule()
	rule.PriceType = models.PriceTypeFloating
	rule.OffsetPct = decimal.Zero
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("90.50")
	f.ads.details["A1"] = &ads.AdDetail{
		AdvNo:              "A1",
		PriceType:          ads.PriceTypeFloating,
		Price:              d("91.708"),
		PriceFloatingRatio: d("101"),
	}

	resp := f.run(t, "")

	require.Len(t, f.ads.updates, 1)
	upd := f.ads.updates[0]
	assert.Equal(t, ads.PriceTypeFloating, upd.PriceType)
	require.NotNil(t, upd.PriceFloatingRatio)
	assert.True(t, upd.PriceFloatingRatio.Equal(d("99.6696")), "ratio %s", upd.PriceFloatingRatio)

	asset := resp.Results[0].Assets[0]
	require.NotNil(t, asset.TargetRatio)
	assert.True(t, asset.TargetRatio.Equal(d("99.6696")))
	assert.True(t, asset.TargetPrice.Equal(d("90.50")))

	applied := f.repo.logsWith(models.LogStatusApplied, "")
	require.Len(t, applied, 1)
	assert.True(t, applied[0].AppliedRatio.Decimal.Equal(d("99.6696")))
	_, hasRatio := f.repo.fields["r1"]["last_applied_ratio"]
	assert.True(t, hasRatio)
}

func TestFloatingFallsBackToMarketReference(t *testing.T) {
	rule := fixedRule()
	rule.PriceType = models.PriceTypeFloating
	f := newFixture(t, Options{}, rule)
	f.market.fiat = d("90.80")
	f.market.listings["USDT"] = competitorAt("90.50")
	// a fixed-price listing cannot reveal the index
	f.ads.details["A1"] = &ads.AdDetail{AdvNo: "A1", PriceType: ads.PriceTypeFixed, Price: d("91")}

	f.run(t, "")

	require.Len(t, f.ads.updates, 1)
	assert.True(t, f.ads.updates[0].PriceFloatingRatio.Equal(d("99.6696")))
}

func TestFloatingWithoutIndexIsAssetError(t *testing.T) {
	rule := fixedRule()
	rule.PriceType = models.PriceTypeFloating
	f := newFixture(t, Options{}, rule)
	f.market.fiat = decimal.Zero
	f.market.listings["USDT"] = competitorAt("90.50")

	resp := f.run(t, "")

	assert.Empty(t, f.ads.updates)
	assert.Equal(t, StatusSuccess, resp.Results[0].Status)
	assert.Equal(t, StatusError, resp.Results[0].Assets[0].Status)
	rows := f.repo.logsWith(models.LogStatusError, "")
	require.Len(t, rows, 1)
	assert.Contains(t, *rows[0].ErrorMessage, ErrIndexUnavailable.Error())
}

func TestNoListingsWritesOneRowAndNoUpdates(t *testing.T) {
	f := newFixture(t, Options{}, fixedRule())

	resp := f.run(t, "")

	assert.Empty(t, f.ads.updates)
	require.Len(t, f.repo.logs, 1)
	row := f.repo.logs[0]
	assert.Equal(t, models.LogStatusSkipped, row.Status)
	require.NotNil(t, row.SkippedReason)
	assert.Equal(t, models.SkipNoListings, *row.SkippedReason)
	assert.Equal(t, models.SkipNoListings, resp.Results[0].Assets[0].Reason)
	assert.True(t, f.repo.rules["r1"].IsActive)
}

func TestNoMerchantPausesSingleAssetRule(t *testing.T) {
	rule := fixedRule()
	rule.PauseIfNoMerchantFound = true
	rule.FallbackMerchants = datatypes.JSONSlice[string]{"Beta"}
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = []p2p.Listing{{Nickname: "Gamma", Price: d("91")}}

	resp := f.run(t, "")

	assert.Len(t, f.repo.logsWith(models.LogStatusSkipped, models.SkipNoMerchant), 1)
	assert.True(t, resp.Results[0].Deactivated)
	assert.False(t, f.repo.rules["r1"].IsActive)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, alert.KindDeactivated, f.notifier.events[0].Kind)
}

func TestFallbackMerchantMatchesWhenTargetOffline(t *testing.T) {
	rule := fixedRule()
	rule.OnlyCounterWhenOnline = true
	rule.FallbackMerchants = datatypes.JSONSlice[string]{"Beta"}
	offline := false
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = []p2p.Listing{
		{Nickname: "Alpha", Online: &offline, Price: d("90")},
		{Nickname: "Beta", Price: d("91")},
	}

	resp := f.run(t, "")

	assert.Equal(t, "Beta", resp.Results[0].Assets[0].Merchant)
	require.Len(t, f.ads.updates, 1)
	assert.True(t, f.ads.updates[0].Price.Equal(d("90.95")))
}

func TestDeviationExceededSkipsWithoutUpdates(t *testing.T) {
	rule := fixedRule()
	rule.MaxDeviationFromMarketPct = decimal.NewNullDecimal(d("5"))
	f := newFixture(t, Options{}, rule)
	f.market.fiat = d("88")
	f.market.listings["USDT"] = competitorAt("95")

	resp := f.run(t, "")

	assert.Empty(t, f.ads.updates)
	rows := f.repo.logsWith(models.LogStatusSkipped, models.SkipDeviationExceeded)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].DeviationPct.Decimal.Equal(d("7.9545")), "deviation %s", rows[0].DeviationPct.Decimal)
	assert.True(t, rows[0].MarketReferencePrice.Decimal.Equal(d("88")))
	assert.Equal(t, 1, f.repo.fields["r1"]["consecutive_deviations"])
	assert.Equal(t, models.SkipDeviationExceeded, resp.Results[0].Assets[0].Reason)
}

func TestDeviationPassResetsCounter(t *testing.T) {
	rule := fixedRule()
	rule.MaxDeviationFromMarketPct = decimal.NewNullDecimal(d("5"))
	rule.ConsecutiveDeviations = 2
	rule.AutoPauseAfterDeviations = 5
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91")

	f.run(t, "")

	assert.Equal(t, 0, f.repo.fields["r1"]["consecutive_deviations"])
	assert.Len(t, f.ads.updates, 1)
}

func TestAutoPauseAfterConsecutiveDeviations(t *testing.T) {
	rule := fixedRule()
	rule.MaxDeviationFromMarketPct = decimal.NewNullDecimal(d("1"))
	rule.AutoPauseAfterDeviations = 2
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("95")

	f.run(t, "")
	f.run(t, "")
	require.Len(t, f.market.searches, 2)
	require.True(t, f.repo.rules["r1"].IsActive)

	resp := f.run(t, "")

	assert.Len(t, f.market.searches, 2, "paused rule must not search")
	assert.Empty(t, f.ads.updates)
	assert.Equal(t, StatusSkipped, resp.Results[0].Status)
	assert.Equal(t, models.SkipAutoPaused, resp.Results[0].Reason)
	assert.False(t, f.repo.rules["r1"].IsActive)
	assert.Len(t, f.repo.logsWith(models.LogStatusSkipped, models.SkipAutoPaused), 1)
	require.NotEmpty(t, f.notifier.events)
	assert.Equal(t, alert.KindAutoPaused, f.notifier.events[len(f.notifier.events)-1].Kind)

	// the paused rule is no longer picked up by a full pass
	resp = f.run(t, "")
	assert.Empty(t, resp.Results)
}

func TestExcludedListingsNeverUpdated(t *testing.T) {
	rule := fixedRule()
	rule.AdNumbers = datatypes.JSONSlice[string]{"A1", "A2", "A3"}
	f := newFixture(t, Options{}, rule)
	f.repo.excluded = []string{"A2"}
	f.market.listings["USDT"] = competitorAt("91")

	f.run(t, "")

	assert.Equal(t, []string{"A1", "A3"}, f.ads.updatedAds())
}

func TestAllListingsExcludedSkipsNoAds(t *testing.T) {
	f := newFixture(t, Options{}, fixedRule())
	f.repo.excluded = []string{"A1"}
	f.market.listings["USDT"] = competitorAt("91")

	resp := f.run(t, "")

	assert.Empty(t, f.ads.updates)
	assert.Len(t, f.repo.logsWith(models.LogStatusSkipped, models.SkipNoAds), 1)
	assert.Equal(t, models.SkipNoAds, resp.Results[0].Assets[0].Reason)
}

func TestListingFailureDoesNotStopSiblings(t *testing.T) {
	rule := fixedRule()
	rule.AdNumbers = datatypes.JSONSlice[string]{"A1", "A2", "A3"}
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91")
	f.ads.fail["A2"] = &ads.RejectedError{Action: "updateAd", Message: "price out of range"}

	resp := f.run(t, "")

	assert.Equal(t, []string{"A1", "A2", "A3"}, f.ads.updatedAds())
	asset := resp.Results[0].Assets[0]
	assert.Equal(t, StatusSuccess, asset.Status)
	assert.Equal(t, 2, asset.Updated)
	assert.Equal(t, 1, asset.Failed)
	errs := f.repo.logsWith(models.LogStatusError, "")
	require.Len(t, errs, 1)
	assert.Equal(t, "A2", errs[0].AdNumber)
	assert.Contains(t, *errs[0].ErrorMessage, "price out of range")
	assert.Len(t, f.repo.logsWith(models.LogStatusApplied, ""), 2)
}

func TestNoChangeSkipsUpdateCall(t *testing.T) {
	rule := fixedRule()
	rule.LastAppliedPrice = decimal.NewNullDecimal(d("90.95"))
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91")

	resp := f.run(t, "")

	assert.Empty(t, f.ads.updates)
	assert.Equal(t, StatusNoChange, resp.Results[0].Assets[0].Status)
	require.Len(t, f.repo.logs, 1)
	assert.Equal(t, models.LogStatusNoChange, f.repo.logs[0].Status)
}

func TestRateLimitedAgainstLastApplied(t *testing.T) {
	rule := fixedRule()
	rule.LastAppliedPrice = decimal.NewNullDecimal(d("90.00"))
	rule.MaxPriceChangePerCycle = decimal.NewNullDecimal(d("0.50"))
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91")

	f.run(t, "")

	require.Len(t, f.ads.updates, 1)
	assert.True(t, f.ads.updates[0].Price.Equal(d("90.50")))
	applied := f.repo.logsWith(models.LogStatusApplied, "")
	require.Len(t, applied, 1)
	assert.True(t, applied[0].WasRateLimited)
}

func TestOutsideHoursPushesRestingPrice(t *testing.T) {
	rule := fixedRule()
	rule.ActiveHoursStart = "13:00"
	rule.ActiveHoursEnd = "18:00"
	rule.RestingPrice = decimal.NewNullDecimal(d("90"))
	rule.AdNumbers = datatypes.JSONSlice[string]{"A1", "A2", "A3"}
	f := newFixture(t, Options{}, rule)
	f.repo.excluded = []string{"A2"}
	f.ads.fail["A3"] = errors.New("timeout")

	resp := f.run(t, "")

	assert.Empty(t, f.market.searches)
	assert.Equal(t, []string{"A1", "A3"}, f.ads.updatedAds())
	for _, u := range f.ads.updates {
		assert.True(t, u.Price.Equal(d("90")))
	}
	assert.Equal(t, StatusSkipped, resp.Results[0].Status)
	assert.Equal(t, models.SkipOutsideHours, resp.Results[0].Reason)
	assert.Len(t, f.repo.logsWith(models.LogStatusSkipped, models.SkipOutsideHours), 1)

	applied := f.repo.logsWith(models.LogStatusApplied, "")
	require.Len(t, applied, 1)
	assert.True(t, applied[0].IsResting)
	failed := f.repo.logsWith(models.LogStatusError, "")
	require.Len(t, failed, 1)
	assert.True(t, failed[0].IsResting)
	assert.Equal(t, "A3", failed[0].AdNumber)
}

func TestOutsideHoursWithoutRestingOnlyLogs(t *testing.T) {
	rule := fixedRule()
	rule.ActiveHoursStart = "22:00"
	rule.ActiveHoursEnd = "06:00"
	f := newFixture(t, Options{}, rule)

	f.run(t, "")

	assert.Empty(t, f.ads.updates)
	require.Len(t, f.repo.logs, 1)
	assert.Equal(t, models.SkipOutsideHours, *f.repo.logs[0].SkippedReason)
}

func TestManualCooldownSkips(t *testing.T) {
	rule := fixedRule()
	edited := testNow.Add(-5 * time.Minute)
	rule.LastManualEditAt = &edited
	rule.ManualOverrideCooldownMinutes = 10
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91")

	resp := f.run(t, "")

	assert.Empty(t, f.market.searches)
	assert.Empty(t, f.ads.updates)
	assert.Equal(t, models.SkipCooldown, resp.Results[0].Reason)
	assert.Len(t, f.repo.logsWith(models.LogStatusSkipped, models.SkipCooldown), 1)
}

func TestActiveHoursRepricesAfterRestingPush(t *testing.T) {
	rule := fixedRule()
	rule.ActiveHoursStart = "09:00"
	rule.ActiveHoursEnd = "18:00"
	rule.RestingPrice = decimal.NewNullDecimal(d("85"))
	rule.LastAppliedPrice = decimal.NewNullDecimal(d("90.95"))
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91")

	// 20:00 in the reference zone.
	f.clock = time.Date(2024, 2, 29, 14, 30, 0, 0, time.UTC)
	f.run(t, "")
	require.Len(t, f.ads.updates, 1)
	assert.True(t, f.ads.updates[0].Price.Equal(d("85")))
	assert.False(t, f.repo.rules["r1"].LastAppliedPrice.Valid)

	f.clock = testNow
	resp := f.run(t, "")

	require.Len(t, f.ads.updates, 2)
	assert.Equal(t, "A1", f.ads.updates[1].AdvNo)
	assert.True(t, f.ads.updates[1].Price.Equal(d("90.95")))
	assert.Equal(t, StatusSuccess, resp.Results[0].Assets[0].Status)
	assert.Equal(t, 1, resp.Results[0].Assets[0].Updated)
	assert.True(t, f.repo.rules["r1"].LastAppliedPrice.Decimal.Equal(d("90.95")))
}

func TestDryRunRestingPushKeepsLastApplied(t *testing.T) {
	rule := fixedRule()
	rule.ActiveHoursStart = "13:00"
	rule.ActiveHoursEnd = "18:00"
	rule.RestingPrice = decimal.NewNullDecimal(d("85"))
	rule.LastAppliedPrice = decimal.NewNullDecimal(d("90.95"))
	f := newFixture(t, Options{DryRun: true}, rule)

	f.run(t, "")

	assert.Empty(t, f.ads.updates)
	assert.True(t, f.repo.rules["r1"].LastAppliedPrice.Decimal.Equal(d("90.95")))
}

func TestRepricesWhenManualCooldownEnds(t *testing.T) {
	rule := fixedRule()
	edited := testNow.Add(-5 * time.Minute)
	rule.LastManualEditAt = &edited
	rule.ManualOverrideCooldownMinutes = 10
	rule.LastAppliedPrice = decimal.NewNullDecimal(d("90.95"))
	rule.AssetState = datatypes.NewJSONType(map[string]models.AssetState{
		"USDT": {LastAppliedPrice: ptrDecimal(d("90.95"))},
	})
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91")

	resp := f.run(t, "")
	assert.Equal(t, models.SkipCooldown, resp.Results[0].Reason)
	assert.Empty(t, f.ads.updates)

	f.clock = testNow.Add(10 * time.Minute)
	resp = f.run(t, "")

	require.Len(t, f.ads.updates, 1)
	assert.True(t, f.ads.updates[0].Price.Equal(d("90.95")))
	assert.Equal(t, StatusSuccess, resp.Results[0].Assets[0].Status)
}

func ptrDecimal(v decimal.Decimal) *decimal.Decimal { return &v }

func TestMultiAssetDeactivatedWhenAllUnmatched(t *testing.T) {
	rule := fixedRule()
	rule.Assets = datatypes.JSONSlice[string]{"USDT", "BTC"}
	f := newFixture(t, Options{}, rule)
	f.market.listings["BTC"] = []p2p.Listing{{Nickname: "Gamma", Price: d("6000000")}}

	resp := f.run(t, "")

	require.Len(t, resp.Results[0].Assets, 2)
	assert.Equal(t, models.SkipNoListings, resp.Results[0].Assets[0].Reason)
	assert.Equal(t, models.SkipNoMerchant, resp.Results[0].Assets[1].Reason)
	assert.True(t, resp.Results[0].Deactivated)
	assert.False(t, f.repo.rules["r1"].IsActive)
}

func TestMultiAssetPartialMatchStaysActive(t *testing.T) {
	rule := fixedRule()
	rule.Assets = datatypes.JSONSlice[string]{"USDT", "BTC"}
	rule.PauseIfNoMerchantFound = true
	rule.AssetConfig = datatypes.NewJSONType(map[string]models.AssetOverride{
		"BTC": {AdNumbers: []string{"B1"}},
	})
	f := newFixture(t, Options{}, rule)
	f.market.listings["BTC"] = []p2p.Listing{{Nickname: "Alpha", Price: d("6000000")}}

	resp := f.run(t, "")

	assert.False(t, resp.Results[0].Deactivated)
	assert.True(t, f.repo.rules["r1"].IsActive)
	assert.Equal(t, []string{"B1"}, f.ads.updatedAds())
	assert.True(t, f.ads.updates[0].Price.Equal(d("5999999.95")))

	state := f.repo.fields["r1"]["asset_state"].(datatypes.JSONType[map[string]models.AssetState]).Data()
	require.NotNil(t, state["BTC"].LastAppliedPrice)
	assert.True(t, state["BTC"].LastAppliedPrice.Equal(d("5999999.95")))
	_, primaryTouched := f.repo.fields["r1"]["last_applied_price"]
	assert.False(t, primaryTouched, "non-primary asset must not overwrite rule-level last price")
}

func TestAssetErrorIsIsolated(t *testing.T) {
	rule := fixedRule()
	rule.Assets = datatypes.JSONSlice[string]{"BTC", "USDT"}
	f := newFixture(t, Options{}, rule)
	f.market.searchErr = map[string]error{"BTC": errors.New("upstream 503")}
	f.market.listings["USDT"] = competitorAt("91")

	resp := f.run(t, "")

	res := resp.Results[0]
	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Assets, 2)
	assert.Equal(t, StatusError, res.Assets[0].Status)
	assert.Equal(t, StatusSuccess, res.Assets[1].Status)
	assert.Equal(t, []string{"A1"}, f.ads.updatedAds())
	errs := f.repo.logsWith(models.LogStatusError, "")
	require.Len(t, errs, 1)
	assert.Equal(t, "BTC", errs[0].Asset)
}

func TestRuleLevelErrorRecordedAndPassContinues(t *testing.T) {
	bad := fixedRule()
	bad.ActiveHoursStart = "nine"
	bad.ActiveHoursEnd = "18:00"
	good := fixedRule()
	good.ID = "r2"
	f := newFixture(t, Options{}, bad, good)
	f.market.listings["USDT"] = competitorAt("91")

	resp := f.run(t, "")

	require.Len(t, resp.Results, 2)
	assert.Equal(t, StatusError, resp.Results[0].Status)
	assert.NotEmpty(t, resp.Results[0].Error)
	assert.Equal(t, StatusSuccess, resp.Results[1].Status)

	fields := f.repo.fields["r1"]
	assert.Equal(t, 1, fields["consecutive_errors"])
	assert.NotNil(t, fields["last_error"])
	assert.True(t, f.repo.rules["r1"].IsActive, "rule errors alone never deactivate")
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, alert.KindRuleError, f.notifier.events[0].Kind)
}

func TestExplicitRuleIDRunsInactiveRule(t *testing.T) {
	rule := fixedRule()
	rule.IsActive = false
	f := newFixture(t, Options{}, rule)
	f.market.listings["USDT"] = competitorAt("91")

	assert.Empty(t, f.run(t, "").Results)
	resp := f.run(t, "r1")
	require.Len(t, resp.Results, 1)
	assert.Len(t, f.ads.updates, 1)
}

func TestFatalLoadErrors(t *testing.T) {
	f := newFixture(t, Options{}, fixedRule())
	_, err := f.engine.Run(context.Background(), Request{RuleID: "missing"})
	assert.ErrorIs(t, err, ErrRuleNotFound)

	f.repo.rulesErr = errors.New("db down")
	_, err = f.engine.Run(context.Background(), Request{})
	assert.Error(t, err)

	f.repo.rulesErr = nil
	f.repo.excludedErr = errors.New("db down")
	_, err = f.engine.Run(context.Background(), Request{})
	assert.Error(t, err)
	assert.Empty(t, f.repo.logs)
}

func TestLockedRuleIsSkippedWithoutLogRow(t *testing.T) {
	f := newFixture(t, Options{}, fixedRule())
	f.market.listings["USDT"] = competitorAt("91")
	release, ok, err := f.locker.Acquire(context.Background(), lock.RuleKey("r1"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	resp := f.run(t, "")

	assert.Equal(t, StatusSkipped, resp.Results[0].Status)
	assert.Equal(t, ReasonLocked, resp.Results[0].Reason)
	assert.Empty(t, f.repo.logs)
	assert.Empty(t, f.market.searches)

	release()
	f.run(t, "")
	assert.Len(t, f.ads.updates, 1)
}

func TestDryRunSkipsUpdatesAndState(t *testing.T) {
	f := newFixture(t, Options{DryRun: true}, fixedRule())
	f.market.listings["USDT"] = competitorAt("91")

	resp := f.run(t, "")

	assert.True(t, resp.Results[0].DryRun)
	assert.Empty(t, f.ads.updates)
	assert.Len(t, f.repo.logsWith(models.LogStatusApplied, ""), 1)
	_, touched := f.repo.fields["r1"]["last_applied_price"]
	assert.False(t, touched)
}
