package p2p

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const searchPath = "/bapi/c2c/v2/friendly/c2c/adv/search"

type Client struct {
	http *resty.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://p2p.binance.com"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json"),
	}
}

// Search fetches one page of order-book listings. Listings whose price does
// not parse are dropped.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Listing, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(req.Asset) == "" || strings.TrimSpace(req.Fiat) == "" {
		return nil, fmt.Errorf("asset and fiat are required")
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Rows <= 0 {
		req.Rows = 20
	}
	if req.PayTypes == nil {
		req.PayTypes = []string{}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(searchPath)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	var out searchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if out.Code != "" && out.Code != "000000" {
		return nil, &APIError{Status: resp.StatusCode(), Body: out.Code + ": " + out.Message}
	}
	listings := make([]Listing, 0, len(out.Data))
	for _, item := range out.Data {
		if l, ok := item.listing(); ok {
			listings = append(listings, l)
		}
	}
	return listings, nil
}
