package ads

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Client talks to the merchant ads function. Every call is a POST of
// {"action": ..., ...} to the same endpoint.
type Client struct {
	endpoint  string
	apiKey    string
	apiSecret string
	http      *resty.Client
	now       func() time.Time
}

func NewClient(endpoint, apiKey, apiSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:  strings.TrimSpace(endpoint),
		apiKey:    strings.TrimSpace(apiKey),
		apiSecret: strings.TrimSpace(apiSecret),
		http:      resty.New().SetTimeout(timeout),
		now:       time.Now,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) UpdateAd(ctx context.Context, req UpdateAdRequest) error {
	advNo := strings.TrimSpace(req.AdvNo)
	if advNo == "" {
		return fmt.Errorf("advNo is required")
	}
	payload := map[string]any{
		"action":    actionUpdateAd,
		"advNo":     advNo,
		"priceType": req.PriceType,
	}
	switch req.PriceType {
	case PriceTypeFixed:
		if req.Price == nil {
			return fmt.Errorf("price is required for fixed listings")
		}
		payload["price"] = json.Number(req.Price.String())
	case PriceTypeFloating:
		if req.PriceFloatingRatio == nil {
			return fmt.Errorf("priceFloatingRatio is required for floating listings")
		}
		payload["priceFloatingRatio"] = json.Number(req.PriceFloatingRatio.String())
	default:
		return fmt.Errorf("unsupported price type %d", req.PriceType)
	}
	_, err := c.call(ctx, actionUpdateAd, payload)
	return err
}

func (c *Client) GetAdDetail(ctx context.Context, advNo string) (*AdDetail, error) {
	advNo = strings.TrimSpace(advNo)
	if advNo == "" {
		return nil, fmt.Errorf("advNo is required")
	}
	data, err := c.call(ctx, actionGetAdDetail, map[string]any{
		"action": actionGetAdDetail,
		"advNo":  advNo,
	})
	if err != nil {
		return nil, err
	}
	return parseAdDetail(advNo, data)
}

func (c *Client) call(ctx context.Context, action string, payload map[string]any) (json.RawMessage, error) {
	raw, err := c.doJSON(ctx, payload)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = strings.TrimSpace(env.Message)
		}
		return nil, &RejectedError{Action: action, Message: msg}
	}
	return env.Data, nil
}

func (c *Client) doJSON(ctx context.Context, payload any) ([]byte, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if c.endpoint == "" {
		return nil, fmt.Errorf("ads endpoint is empty")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if c.apiKey != "" {
		req.SetHeader("X-API-Key", c.apiKey)
	}
	if c.apiSecret != "" {
		ts := strconv.FormatInt(c.now().UTC().Unix(), 10)
		req.SetHeader("X-Timestamp", ts)
		req.SetHeader("X-Signature", sign(c.apiSecret, ts, body))
	}
	resp, err := req.Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

func sign(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts + "\nPOST\n" + string(body)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func parseAdDetail(advNo string, raw json.RawMessage) (*AdDetail, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, fmt.Errorf("ad %s: empty detail", advNo)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode ad detail: %w", err)
	}
	out := &AdDetail{
		AdvNo:              advNo,
		Price:              firstDecimal(m, "price"),
		PriceFloatingRatio: firstDecimal(m, "priceFloatingRatio", "price_floating_ratio"),
	}
	if v := firstString(m, "advNo", "adv_no"); v != "" {
		out.AdvNo = v
	}
	pt := firstDecimal(m, "priceType", "price_type")
	out.PriceType = int(pt.IntPart())
	return out, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func firstDecimal(m map[string]any, keys ...string) decimal.Decimal {
	for _, k := range keys {
		var s string
		switch v := m[k].(type) {
		case string:
			s = strings.TrimSpace(v)
		case json.Number:
			s = v.String()
		default:
			continue
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}
