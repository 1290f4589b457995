package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/p2p"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/config"
)

type fakeSearcher struct {
	pages map[int][]p2p.Listing
	err   map[int]error
	calls []p2p.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req p2p.SearchRequest) ([]p2p.Listing, error) {
	f.calls = append(f.calls, req)
	if err := f.err[req.Page]; err != nil {
		return nil, err
	}
	return f.pages[req.Page], nil
}

func listingsAt(prices ...string) []p2p.Listing {
	out := make([]p2p.Listing, 0, len(prices))
	for _, p := range prices {
		out = append(out, p2p.Listing{Nickname: "m" + p, Price: decimal.RequireFromString(p)})
	}
	return out
}

func newFetcher(t *testing.T, fiatURL, tickerURL string, s ListingSearcher) *Fetcher {
	t.Helper()
	return New(config.MarketDataConfig{
		FiatRateURL:        fiatURL,
		FiatSanityFloor:    80,
		FiatDefaultRate:    92,
		FiatFallbackSample: 10,
		SpotTickerURL:      tickerURL,
		Timeout:            time.Second,
	}, config.EngineConfig{StableAsset: "USDT", MaxSearchPages: 25, SearchPageSize: 2}, s, nil)
}

func TestSearchListingsStopsOnShortPage(t *testing.T) {
	s := &fakeSearcher{pages: map[int][]p2p.Listing{
		1: listingsAt("91.00", "91.10"),
		2: listingsAt("91.20"),
		3: listingsAt("99.00", "99.10"),
	}}
	f := newFetcher(t, "", "", s)
	got, err := f.SearchListings(context.Background(), "usdt", "inr", p2p.TradeTypeSell)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 || len(s.calls) != 2 {
		t.Fatalf("expected 3 listings over 2 pages, got %d over %d", len(got), len(s.calls))
	}
	if s.calls[0].Asset != "USDT" || s.calls[0].Fiat != "INR" || s.calls[0].PublisherType != p2p.PublisherTypeMerchant {
		t.Fatalf("unexpected request %+v", s.calls[0])
	}
}

func TestSearchListingsCapsPages(t *testing.T) {
	full := listingsAt("1", "2")
	s := &fakeSearcher{pages: map[int][]p2p.Listing{}}
	for i := 1; i <= 30; i++ {
		s.pages[i] = full
	}
	f := newFetcher(t, "", "", s)
	f.MaxPages = 3
	got, err := f.SearchListings(context.Background(), "USDT", "INR", p2p.TradeTypeBuy)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(s.calls) != 3 || len(got) != 6 {
		t.Fatalf("expected 3 pages, got %d calls %d listings", len(s.calls), len(got))
	}
}

func TestSearchListingsFirstPageErrorFails(t *testing.T) {
	s := &fakeSearcher{err: map[int]error{1: errors.New("boom")}}
	if _, err := newFetcher(t, "", "", s).SearchListings(context.Background(), "USDT", "INR", p2p.TradeTypeSell); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSearchListingsLaterPageErrorKeepsResults(t *testing.T) {
	s := &fakeSearcher{
		pages: map[int][]p2p.Listing{1: listingsAt("1", "2")},
		err:   map[int]error{2: errors.New("boom")},
	}
	got, err := newFetcher(t, "", "", s).SearchListings(context.Background(), "USDT", "INR", p2p.TradeTypeSell)
	if err != nil || len(got) != 2 {
		t.Fatalf("expected partial results, got %d err=%v", len(got), err)
	}
}

func TestFiatRatePrimary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vs_currencies") != "inr" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"tether":{"inr":88.5}}`))
	}))
	defer srv.Close()

	rate, src := newFetcher(t, srv.URL, "", &fakeSearcher{}).FiatRate(context.Background(), "INR")
	if src != SourcePrimary || !rate.Equal(decimal.RequireFromString("88.5")) {
		t.Fatalf("unexpected rate %s from %s", rate, src)
	}
}

func TestFiatRateBelowFloorUsesP2PMedian(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tether":{"inr":1.2}}`))
	}))
	defer srv.Close()

	s := &fakeSearcher{pages: map[int][]p2p.Listing{
		1: listingsAt("95", "90", "91", "92", "93", "94", "96", "97", "98", "99", "100", "89"),
	}}
	rate, src := newFetcher(t, srv.URL, "", s).FiatRate(context.Background(), "INR")
	// lowest ten: 89..98, median (93+94)/2
	if src != SourceP2P || !rate.Equal(decimal.RequireFromString("93.5")) {
		t.Fatalf("unexpected rate %s from %s", rate, src)
	}
	if s.calls[0].TradeType != p2p.TradeTypeSell || s.calls[0].Asset != "USDT" {
		t.Fatalf("unexpected fallback search %+v", s.calls[0])
	}
}

func TestFiatRateDefault(t *testing.T) {
	s := &fakeSearcher{err: map[int]error{1: errors.New("down")}}
	rate, src := newFetcher(t, "", "", s).FiatRate(context.Background(), "INR")
	if src != SourceFallback || !rate.Equal(decimal.NewFromInt(92)) {
		t.Fatalf("unexpected rate %s from %s", rate, src)
	}
}

func TestSpotRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"65000.10"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	f := newFetcher(t, "", srv.URL, &fakeSearcher{})
	if got := f.SpotRate(context.Background(), "btc"); !got.Equal(decimal.RequireFromString("65000.10")) {
		t.Fatalf("unexpected BTC spot %s", got)
	}
	if got := f.SpotRate(context.Background(), "NOPE"); !got.IsZero() {
		t.Fatalf("expected zero on failure, got %s", got)
	}
	if got := f.SpotRate(context.Background(), "USDT"); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("stable asset spot should be 1, got %s", got)
	}
}

func TestLowestMedianOdd(t *testing.T) {
	got, err := lowestMedian([]decimal.Decimal{
		decimal.NewFromInt(5), decimal.NewFromInt(1), decimal.NewFromInt(3),
	}, 10)
	if err != nil || !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected median %s err=%v", got, err)
	}
	if _, err := lowestMedian(nil, 10); err == nil {
		t.Fatalf("expected error on empty input")
	}
}
