package p2p

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"

	PublisherTypeMerchant = "merchant"
)

// SearchRequest mirrors the order-book search body.
type SearchRequest struct {
	Asset         string   `json:"asset"`
	Fiat          string   `json:"fiat"`
	TradeType     string   `json:"tradeType"`
	Page          int      `json:"page"`
	Rows          int      `json:"rows"`
	PublisherType string   `json:"publisherType,omitempty"`
	MerchantCheck bool     `json:"merchantCheck"`
	PayTypes      []string `json:"payTypes"`
}

// Listing is one competitor advertisement. Online is nil when the
// advertiser payload carries no online indicator.
type Listing struct {
	AdvNo                string
	Nickname             string
	Online               *bool
	Price                decimal.Decimal
	MinSingleTransAmount decimal.Decimal
	MaxSingleTransAmount decimal.Decimal
	SurplusAmount        decimal.Decimal
}

type searchResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Success bool         `json:"success"`
	Total   int          `json:"total"`
	Data    []searchItem `json:"data"`
}

type searchItem struct {
	Adv struct {
		AdvNo                string `json:"advNo"`
		Price                string `json:"price"`
		MinSingleTransAmount string `json:"minSingleTransAmount"`
		MaxSingleTransAmount string `json:"maxSingleTransAmount"`
		SurplusAmount        string `json:"surplusAmount"`
	} `json:"adv"`
	Advertiser struct {
		NickName string `json:"nickName"`
		UserNo   string `json:"userNo"`
		IsOnline *bool  `json:"isOnline"`
	} `json:"advertiser"`
}

func (it searchItem) listing() (Listing, bool) {
	price, ok := parseDecimal(it.Adv.Price)
	if !ok {
		return Listing{}, false
	}
	minAmt, _ := parseDecimal(it.Adv.MinSingleTransAmount)
	maxAmt, _ := parseDecimal(it.Adv.MaxSingleTransAmount)
	surplus, _ := parseDecimal(it.Adv.SurplusAmount)
	return Listing{
		AdvNo:                strings.TrimSpace(it.Adv.AdvNo),
		Nickname:             strings.TrimSpace(it.Advertiser.NickName),
		Online:               it.Advertiser.IsOnline,
		Price:                price,
		MinSingleTransAmount: minAmt,
		MaxSingleTransAmount: maxAmt,
		SurplusAmount:        surplus,
	}, true
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
