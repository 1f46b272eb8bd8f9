package pointsorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/shuttlepoint/server/internal/app/service/events"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	notificationlog "github.com/shuttlepoint/server/internal/app/service/notification_log"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/types"
)

type NotifyOutcome string

const (
	NotifyOutcomeCompleted NotifyOutcome = "completed"
	NotifyOutcomeFailed    NotifyOutcome = "failed"
	// NotifyOutcomeDuplicate is a redelivery for an order that already left
	// pending. Nothing is written.
	NotifyOutcomeDuplicate NotifyOutcome = "duplicate"
)

type NotifyResult struct {
	Order   *models.PointsOrder `json:"order"`
	Outcome NotifyOutcome       `json:"outcome"`
}

// HandleNotify settles an order from the gateway's server-to-server callback.
// The pending -> completed update and the addPoint credit commit together,
// and only when the update changed a row, so retries never double-credit.
func (s *Service) HandleNotify(ctx context.Context, cb *newebpay.Callback) (res *NotifyResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "pointsorder.HandleNotify")
	defer span.End()
	var merchantOrderNo, tradeNo string
	s.notif.Save(ctx, notificationlog.NewEntry(ctx, newebpay.ProviderID, models.PaymentNotificationLogKindNotify,
		models.PaymentNotificationLogStatusReceived, "", cb, nil))
	defer func() {
		s.metrics.Observe("points_order", "notify", start)
		status := models.PaymentNotificationLogStatusHandled
		result := map[string]any{}
		if res != nil {
			result["outcome"] = res.Outcome
			s.metrics.Count("points_order_notify", string(res.Outcome))
		}
		span.SetAttributes(attribute.String("order.merchant_order_no", merchantOrderNo))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status = models.PaymentNotificationLogStatusHandleFailed
			result["error"] = err.Error()
			s.metrics.Count("points_order_notify", "error")
			logctx.FromCtx(ctx, s.log).Errorw("gateway notify failed",
				"merchant_order_no", merchantOrderNo, "trade_no", tradeNo, "err", err)
		}
		entry := notificationlog.NewEntry(ctx, newebpay.ProviderID, models.PaymentNotificationLogKindNotify, status, merchantOrderNo, cb, result)
		entry.TradeNo = tradeNo
		s.notif.Save(ctx, entry)
	}()

	resp, err := s.gateway.VerifyCallback(cb)
	if err != nil {
		return nil, fmt.Errorf("verify notify: %w", err)
	}
	merchantOrderNo, tradeNo = resp.Result.MerchantOrderNo, resp.Result.TradeNo

	order, err := s.GetOrder(ctx, merchantOrderNo)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: merchant order no %q", ErrUnknownOrder, merchantOrderNo)
		}
		return nil, err
	}

	if !resp.Success() {
		return s.fail(ctx, order, lo.CoalesceOrEmpty(resp.Message, resp.Status))
	}
	if resp.Result.Amt != order.Amount {
		return nil, fmt.Errorf("%w: paid %d, order %d", ErrAmountMismatch, resp.Result.Amt, order.Amount)
	}
	return s.complete(ctx, order, resp.Result)
}

func (s *Service) complete(ctx context.Context, order *models.PointsOrder, r newebpay.TradeResult) (*NotifyResult, error) {
	payTime, err := newebpay.ParsePayTime(r.PayTime, s.gateway.Location())
	if err != nil {
		return nil, err
	}
	cols := map[string]any{}
	if r.TradeNo != "" {
		cols["trade_no"] = r.TradeNo
	}
	if !payTime.IsZero() {
		cols["pay_time"] = payTime
	}

	var changed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = s.transition(ctx, tx, order, types.PointsOrderStatusCompleted, cols)
		if err != nil || !changed {
			return err
		}
		_, err = s.ledger.Apply(ctx, tx, ledger.Entry{
			MemberID:      order.MemberID,
			Change:        order.Points,
			Type:          types.PointsRecordTypeAddPoint,
			PointsOrderID: &order.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return s.duplicate(ctx, order)
	}

	if r.TradeNo != "" {
		order.TradeNo = &r.TradeNo
	}
	if !payTime.IsZero() {
		order.PayTime = &payTime
	}
	logctx.FromCtx(ctx, s.log).Infow("points order completed",
		"merchant_order_no", order.MerchantOrderNo, "trade_no", r.TradeNo, "points", order.Points)
	s.events.Publish(ctx, events.KeyPointsPurchased, events.PointsPurchasedEvent{
		MerchantOrderNo: order.MerchantOrderNo,
		MemberID:        order.MemberID,
		Points:          order.Points,
		Amount:          order.Amount,
		TradeNo:         r.TradeNo,
	})
	return &NotifyResult{Order: order, Outcome: NotifyOutcomeCompleted}, nil
}

func (s *Service) fail(ctx context.Context, order *models.PointsOrder, reason string) (*NotifyResult, error) {
	changed, err := s.transition(ctx, s.db, order, types.PointsOrderStatusFailed, map[string]any{
		"fail_reason": lo.Substring(reason, 0, 255),
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return s.duplicate(ctx, order)
	}
	order.FailReason = &reason
	logctx.FromCtx(ctx, s.log).Warnw("points order failed", "merchant_order_no", order.MerchantOrderNo, "reason", reason)
	s.events.Publish(ctx, events.KeyPointsPurchaseFailed, events.PointsPurchaseFailedEvent{
		MerchantOrderNo: order.MerchantOrderNo,
		MemberID:        order.MemberID,
		Reason:          reason,
	})
	return &NotifyResult{Order: order, Outcome: NotifyOutcomeFailed}, nil
}

func (s *Service) duplicate(ctx context.Context, order *models.PointsOrder) (*NotifyResult, error) {
	current, err := s.GetOrder(ctx, order.MerchantOrderNo)
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("duplicate gateway notify ignored",
		"merchant_order_no", current.MerchantOrderNo, "status", current.Status)
	return &NotifyResult{Order: current, Outcome: NotifyOutcomeDuplicate}, nil
}

// ResolveReturn verifies the browser redirect-back payload and returns the
// merchant order number to reconcile. It never changes order state.
func (s *Service) ResolveReturn(ctx context.Context, cb *newebpay.Callback) (string, error) {
	resp, err := s.gateway.VerifyCallback(cb)
	status := models.PaymentNotificationLogStatusHandled
	var merchantOrderNo string
	result := map[string]any{}
	if err != nil {
		status = models.PaymentNotificationLogStatusHandleFailed
		result["error"] = err.Error()
	} else {
		merchantOrderNo = resp.Result.MerchantOrderNo
		result["status"] = resp.Status
		if merchantOrderNo == "" {
			err = fmt.Errorf("%w: empty merchant order no", ErrUnknownOrder)
			status = models.PaymentNotificationLogStatusHandleFailed
			result["error"] = err.Error()
		}
	}
	s.notif.Save(ctx, notificationlog.NewEntry(ctx, newebpay.ProviderID, models.PaymentNotificationLogKindReturn,
		status, merchantOrderNo, cb, result))
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("gateway return rejected", "merchant_order_no", merchantOrderNo, "err", err)
		return "", err
	}
	return merchantOrderNo, nil
}
