package newebpay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const StatusSuccess = "SUCCESS"

// TradeOrder holds the per-order fields of an MPG request.
type TradeOrder struct {
	MerchantOrderNo string
	Amount          int64
	Email           string
	// ItemDesc overrides the configured description when set.
	ItemDesc  string
	Timestamp time.Time
}

// Trade is the form payload the browser posts to the gateway.
type Trade struct {
	MerchantID      string `json:"MerchantID"`
	Version         string `json:"Version"`
	TradeInfo       string `json:"TradeInfo"`
	TradeSha        string `json:"TradeSha"`
	MerchantOrderNo string `json:"MerchantOrderNo"`
	PaymentURL      string `json:"PaymentURL"`
}

// BuildTradeInfo renders the canonical query string. url.Values.Encode sorts
// by key, so the output is stable for a given order.
func (c *Client) BuildTradeInfo(o TradeOrder) string {
	ts := o.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	desc := o.ItemDesc
	if desc == "" {
		desc = c.cfg.ItemDesc
	}
	v := url.Values{}
	v.Set("MerchantID", c.cfg.MerchantID)
	v.Set("RespondType", "JSON")
	v.Set("TimeStamp", strconv.FormatInt(ts.Unix(), 10))
	v.Set("Version", c.cfg.Version)
	v.Set("MerchantOrderNo", o.MerchantOrderNo)
	v.Set("Amt", strconv.FormatInt(o.Amount, 10))
	v.Set("ItemDesc", desc)
	v.Set("Email", o.Email)
	v.Set("NotifyURL", c.cfg.NotifyURL)
	v.Set("ReturnURL", c.cfg.ReturnURL)
	v.Set("LoginType", "0")
	v.Set("CREDIT", "1")
	return v.Encode()
}

// NewTrade encrypts and signs o.
func (c *Client) NewTrade(o TradeOrder) (*Trade, error) {
	plain := c.BuildTradeInfo(o)
	enc, err := c.Encrypt(plain)
	if err != nil {
		return nil, err
	}
	return &Trade{
		MerchantID:      c.cfg.MerchantID,
		Version:         c.cfg.Version,
		TradeInfo:       enc,
		TradeSha:        c.TradeSha(enc),
		MerchantOrderNo: o.MerchantOrderNo,
		PaymentURL:      c.cfg.PaymentURL,
	}, nil
}

// Callback is what the gateway posts to NotifyURL and ReturnURL.
type Callback struct {
	Status     string `form:"Status" json:"Status"`
	MerchantID string `form:"MerchantID" json:"MerchantID"`
	Version    string `form:"Version" json:"Version"`
	TradeInfo  string `form:"TradeInfo" json:"TradeInfo" binding:"required"`
	TradeSha   string `form:"TradeSha" json:"TradeSha"`
	Message    string `form:"Message" json:"Message"`
}

type TradeResult struct {
	MerchantID      string `json:"MerchantID"`
	Amt             int64  `json:"Amt"`
	TradeNo         string `json:"TradeNo"`
	MerchantOrderNo string `json:"MerchantOrderNo"`
	PaymentType     string `json:"PaymentType"`
	RespondType     string `json:"RespondType"`
	PayTime         string `json:"PayTime"`
	IP              string `json:"IP"`
	EscrowBank      string `json:"EscrowBank"`
}

type TradeResponse struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Result  TradeResult `json:"Result"`
}

func (r *TradeResponse) Success() bool { return r.Status == StatusSuccess }

// DecodeTradeInfo decrypts and parses a callback TradeInfo. Failed trades may
// carry an empty array as Result, which decodes to a zero TradeResult.
func (c *Client) DecodeTradeInfo(cipherHex string) (*TradeResponse, error) {
	plain, err := c.Decrypt(cipherHex)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Status  string          `json:"Status"`
		Message string          `json:"Message"`
		Result  json.RawMessage `json:"Result"`
	}
	if err := json.Unmarshal([]byte(plain), &raw); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrMalformedTradeInfo, err)
	}
	resp := &TradeResponse{Status: raw.Status, Message: raw.Message}
	if body := bytes.TrimSpace(raw.Result); len(body) > 0 && body[0] == '{' {
		if err := json.Unmarshal(body, &resp.Result); err != nil {
			return nil, fmt.Errorf("%w: result: %v", ErrMalformedTradeInfo, err)
		}
	}
	return resp, nil
}

// VerifyCallback checks TradeSha and decodes TradeInfo. A callback whose
// MerchantID differs from ours is rejected.
func (c *Client) VerifyCallback(cb *Callback) (*TradeResponse, error) {
	if cb == nil || cb.TradeInfo == "" {
		return nil, fmt.Errorf("%w: empty TradeInfo", ErrMalformedTradeInfo)
	}
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	if !c.VerifyTradeSha(cb.TradeInfo, cb.TradeSha) {
		return nil, ErrTradeShaMismatch
	}
	resp, err := c.DecodeTradeInfo(cb.TradeInfo)
	if err != nil {
		return nil, err
	}
	if resp.Result.MerchantID != "" && resp.Result.MerchantID != c.cfg.MerchantID {
		return nil, fmt.Errorf("%w: %s", ErrMerchantMismatch, resp.Result.MerchantID)
	}
	// The form Status is not covered by TradeSha.
	if cb.Status != "" && cb.Status != resp.Status {
		return nil, fmt.Errorf("%w: form status %q, trade info status %q", ErrMalformedTradeInfo, cb.Status, resp.Status)
	}
	return resp, nil
}
