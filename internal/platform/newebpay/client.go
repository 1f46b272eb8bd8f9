// Package newebpay implements the NewebPay MPG handshake: AES-256-CBC
// encrypted TradeInfo plus an upper-case SHA-256 TradeSha.
package newebpay

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/errs"
)

const ProviderID = "newebpay"

var (
	ErrMalformedTradeInfo = errs.New(errs.KindIntegration, "malformed trade info")
	ErrTradeShaMismatch   = errs.New(errs.KindIntegration, "trade sha mismatch")
	ErrMerchantMismatch   = errs.New(errs.KindIntegration, "merchant id mismatch")
	ErrNotConfigured      = errs.New(errs.KindInternal, "newebpay is not configured")
)

type Config struct {
	MerchantID string
	HashKey    string
	HashIV     string
	Version    string
	NotifyURL  string
	ReturnURL  string
	PaymentURL string
	ItemDesc   string
	// Location is the gateway's wall-clock zone for PayTime.
	Location *time.Location
}

type Client struct {
	cfg   Config
	block cipher.Block
	now   func() time.Time
}

// NewClient validates the key pair: HashKey must be 32 bytes (AES-256) and
// HashIV one block.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.HashKey) != 32 {
		return nil, fmt.Errorf("newebpay hash key must be 32 bytes, got %d", len(cfg.HashKey))
	}
	if len(cfg.HashIV) != aes.BlockSize {
		return nil, fmt.Errorf("newebpay hash iv must be %d bytes, got %d", aes.BlockSize, len(cfg.HashIV))
	}
	block, err := aes.NewCipher([]byte(cfg.HashKey))
	if err != nil {
		return nil, fmt.Errorf("newebpay cipher: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = taipei()
	}
	return &Client{cfg: cfg, block: block, now: time.Now}, nil
}

func (c *Client) MerchantID() string { return c.cfg.MerchantID }

func (c *Client) Version() string { return c.cfg.Version }

func (c *Client) PaymentURL() string { return c.cfg.PaymentURL }

func (c *Client) Location() *time.Location { return c.cfg.Location }

func (c *Client) configured() bool { return c != nil && c.block != nil }

// LoadLocation resolves the gateway zone, falling back to a fixed UTC+8.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return taipei()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, 8*3600)
	}
	return loc
}

func taipei() *time.Location {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}

func newFromConfig(cfg *config.Config, log *zap.SugaredLogger) (*Client, error) {
	nc := cfg.NewebPay
	c := Config{
		MerchantID: nc.MerchantID,
		HashKey:    nc.HashKey,
		HashIV:     nc.HashIV,
		Version:    nc.Version,
		NotifyURL:  nc.NotifyURL,
		ReturnURL:  nc.ReturnURL,
		PaymentURL: nc.PaymentURL,
		ItemDesc:   nc.ItemDesc,
		Location:   LoadLocation(nc.Timezone),
	}
	if nc.HashKey == "" && nc.HashIV == "" {
		log.Warnw("newebpay credentials not set, purchases are disabled")
		return &Client{cfg: c, now: time.Now}, nil
	}
	return NewClient(c)
}

var Module = fx.Options(
	fx.Provide(newFromConfig),
)
