// Package reconciler bridges the gateway's asynchronous notify with the
// browser's synchronous return by polling order status until it settles.
package reconciler

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/app/service/pointsorder"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/metrics"
	"github.com/shuttlepoint/server/pkg/types"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusTimeout means the order was still pending when polling stopped.
	// Support resolves it later from the merchant order number.
	StatusTimeout Status = "timeout"
)

type Outcome struct {
	Status          Status `json:"status"`
	MerchantOrderNo string `json:"merchantOrderNo"`
	Points          int64  `json:"points,omitempty"`
	Balance         int64  `json:"balance,omitempty"`
}

type OrderReader interface {
	GetOrder(ctx context.Context, merchantOrderNo string) (*models.PointsOrder, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, memberID string) (int64, error)
}

type Reconciler struct {
	orders      OrderReader
	balances    BalanceReader
	log         *zap.SugaredLogger
	metrics     *metrics.Business
	interval    time.Duration
	maxAttempts int
	resultURL   string
}

func New(orders OrderReader, balances BalanceReader, log *zap.SugaredLogger, cfg *config.Config, m *metrics.Business) *Reconciler {
	return &Reconciler{
		orders:      orders,
		balances:    balances,
		log:         log,
		metrics:     m,
		interval:    cfg.Reconciler.Interval,
		maxAttempts: cfg.Reconciler.MaxAttempts,
		resultURL:   cfg.Frontend.PaymentResultURL,
	}
}

// Await polls the order every interval, at most maxAttempts times. Running
// out of attempts or ctx being cancelled yields StatusTimeout, not an error.
func (r *Reconciler) Await(ctx context.Context, merchantOrderNo string) (*Outcome, error) {
	start := time.Now()
	lg := logctx.FromCtx(ctx, r.log).With("merchant_order_no", merchantOrderNo)
	out := &Outcome{Status: StatusTimeout, MerchantOrderNo: merchantOrderNo}
	defer func() {
		r.metrics.Observe("reconciler", "await", start)
		r.metrics.Count("reconciler_await", string(out.Status))
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		order, err := r.orders.GetOrder(ctx, merchantOrderNo)
		switch {
		case errors.Is(err, pointsorder.ErrOrderNotFound):
			lg.Warnw("return for unknown order")
			out.Status = StatusFailed
			return out, nil
		case err != nil:
			if ctx.Err() == nil {
				lg.Warnw("poll order status failed", "attempt", attempt, "err", err)
			}
		case order.Status == types.PointsOrderStatusCompleted:
			out.Status = StatusSuccess
			out.Points = order.Points
			bal, err := r.balances.Balance(ctx, order.MemberID)
			if err != nil {
				lg.Warnw("read balance after purchase failed", "member_id", order.MemberID, "err", err)
			}
			out.Balance = bal
			return out, nil
		case order.Status == types.PointsOrderStatusFailed:
			out.Status = StatusFailed
			return out, nil
		}
		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			lg.Infow("return reconciliation cancelled", "attempt", attempt)
			return out, nil
		case <-ticker.C:
		}
	}
	lg.Warnw("order still pending after polling", "attempts", r.maxAttempts)
	return out, nil
}

// RedirectURL appends the outcome to the frontend result page.
func (r *Reconciler) RedirectURL(o *Outcome) string {
	u, err := url.Parse(r.resultURL)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("status", string(o.Status))
	q.Set("merchantOrderNo", o.MerchantOrderNo)
	if o.Status == StatusSuccess {
		q.Set("points", strconv.FormatInt(o.Points, 10))
		q.Set("balance", strconv.FormatInt(o.Balance, 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var Module = fx.Options(
	fx.Provide(func(s *pointsorder.Service) OrderReader { return s }),
	fx.Provide(func(s *ledger.Service) BalanceReader { return s }),
	fx.Provide(New),
)
