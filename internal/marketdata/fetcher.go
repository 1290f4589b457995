package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/p2p"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/config"
)

const (
	SourcePrimary  = "spot_api"
	SourceP2P      = "p2p_median"
	SourceFallback = "default"
)

// ListingSearcher is the order-book page fetcher, satisfied by *p2p.Client.
type ListingSearcher interface {
	Search(ctx context.Context, req p2p.SearchRequest) ([]p2p.Listing, error)
}

// Fetcher pulls reference prices and competitor listings.
type Fetcher struct {
	P2P    ListingSearcher
	HTTP   *resty.Client
	Logger *zap.Logger

	Config      config.MarketDataConfig
	StableAsset string
	MaxPages    int
	PageSize    int
}

func New(cfg config.MarketDataConfig, engineCfg config.EngineConfig, searcher ListingSearcher, logger *zap.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		P2P:         searcher,
		HTTP:        resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json"),
		Logger:      logger,
		Config:      cfg,
		StableAsset: engineCfg.StableAsset,
		MaxPages:    engineCfg.MaxSearchPages,
		PageSize:    engineCfg.SearchPageSize,
	}
}

// FiatRate returns the stablecoin/fiat reference rate and the source it came
// from. It never fails: the configured default is the last resort.
func (f *Fetcher) FiatRate(ctx context.Context, fiat string) (decimal.Decimal, string) {
	fiat = strings.ToUpper(strings.TrimSpace(fiat))
	floor := decimal.NewFromFloat(f.Config.FiatSanityFloor)

	rate, err := f.primaryFiatRate(ctx, fiat)
	if err == nil && rate.GreaterThan(floor) {
		return rate, SourcePrimary
	}
	if err != nil {
		f.warn("fiat rate primary source failed", zap.String("fiat", fiat), zap.Error(err))
	} else {
		f.warn("fiat rate below sanity floor", zap.String("fiat", fiat), zap.String("rate", rate.String()))
	}

	rate, err = f.p2pMedianRate(ctx, fiat)
	if err == nil && rate.IsPositive() {
		return rate, SourceP2P
	}
	if err != nil {
		f.warn("fiat rate p2p fallback failed", zap.String("fiat", fiat), zap.Error(err))
	}
	return decimal.NewFromFloat(f.Config.FiatDefaultRate), SourceFallback
}

// SpotRate returns asset priced in the stable asset, or zero when unavailable.
func (f *Fetcher) SpotRate(ctx context.Context, asset string) decimal.Decimal {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		return decimal.Zero
	}
	if asset == f.stableAsset() {
		return decimal.NewFromInt(1)
	}
	if f.HTTP == nil || strings.TrimSpace(f.Config.SpotTickerURL) == "" {
		return decimal.Zero
	}
	resp, err := f.HTTP.R().
		SetContext(ctx).
		SetQueryParam("symbol", asset+f.stableAsset()).
		Get(f.Config.SpotTickerURL)
	if err != nil {
		f.warn("spot ticker request failed", zap.String("asset", asset), zap.Error(err))
		return decimal.Zero
	}
	if resp.IsError() {
		f.warn("spot ticker http error", zap.String("asset", asset), zap.Int("status", resp.StatusCode()))
		return decimal.Zero
	}
	var payload struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		f.warn("spot ticker decode failed", zap.String("asset", asset), zap.Error(err))
		return decimal.Zero
	}
	price, err := decimal.NewFromString(strings.TrimSpace(payload.Price))
	if err != nil || !price.IsPositive() {
		return decimal.Zero
	}
	return price
}

// SearchListings walks the merchant-only order book page by page and stops
// early on a short page. A failure after the first page keeps what was read.
func (f *Fetcher) SearchListings(ctx context.Context, asset, fiat, tradeType string) ([]p2p.Listing, error) {
	if f.P2P == nil {
		return nil, fmt.Errorf("listing searcher is nil")
	}
	pages := f.MaxPages
	if pages <= 0 {
		pages = 25
	}
	size := f.PageSize
	if size <= 0 {
		size = 20
	}
	var out []p2p.Listing
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		items, err := f.P2P.Search(ctx, p2p.SearchRequest{
			Asset:         strings.ToUpper(strings.TrimSpace(asset)),
			Fiat:          strings.ToUpper(strings.TrimSpace(fiat)),
			TradeType:     tradeType,
			Page:          page,
			Rows:          size,
			PublisherType: p2p.PublisherTypeMerchant,
			MerchantCheck: true,
		})
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("search %s/%s %s: %w", asset, fiat, tradeType, err)
			}
			f.warn("listing search page failed",
				zap.String("asset", asset),
				zap.String("fiat", fiat),
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}
		out = append(out, items...)
		if len(items) < size {
			break
		}
	}
	return out, nil
}

func (f *Fetcher) primaryFiatRate(ctx context.Context, fiat string) (decimal.Decimal, error) {
	if f.HTTP == nil || strings.TrimSpace(f.Config.FiatRateURL) == "" {
		return decimal.Zero, fmt.Errorf("fiat rate url is empty")
	}
	vs := strings.ToLower(fiat)
	resp, err := f.HTTP.R().
		SetContext(ctx).
		SetQueryParam("ids", "tether").
		SetQueryParam("vs_currencies", vs).
		Get(f.Config.FiatRateURL)
	if err != nil {
		return decimal.Zero, err
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("http %d", resp.StatusCode())
	}
	var payload map[string]map[string]json.Number
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return decimal.Zero, err
	}
	raw, ok := payload["tether"][vs]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate for %s missing", vs)
	}
	return decimal.NewFromString(raw.String())
}

func (f *Fetcher) p2pMedianRate(ctx context.Context, fiat string) (decimal.Decimal, error) {
	if f.P2P == nil {
		return decimal.Zero, fmt.Errorf("listing searcher is nil")
	}
	items, err := f.P2P.Search(ctx, p2p.SearchRequest{
		Asset:         f.stableAsset(),
		Fiat:          fiat,
		TradeType:     p2p.TradeTypeSell,
		Page:          1,
		Rows:          20,
		PublisherType: p2p.PublisherTypeMerchant,
		MerchantCheck: true,
	})
	if err != nil {
		return decimal.Zero, err
	}
	prices := make([]decimal.Decimal, 0, len(items))
	for _, it := range items {
		if it.Price.IsPositive() {
			prices = append(prices, it.Price)
		}
	}
	sample := f.Config.FiatFallbackSample
	if sample <= 0 {
		sample = 10
	}
	return lowestMedian(prices, sample)
}

// lowestMedian is the median of the n smallest values.
func lowestMedian(values []decimal.Decimal, n int) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, fmt.Errorf("no prices")
	}
	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2)), nil
}

func (f *Fetcher) stableAsset() string {
	s := strings.ToUpper(strings.TrimSpace(f.StableAsset))
	if s == "" {
		return "USDT"
	}
	return s
}

func (f *Fetcher) warn(msg string, fields ...zap.Field) {
	if f.Logger != nil {
		f.Logger.Warn(msg, fields...)
	}
}
