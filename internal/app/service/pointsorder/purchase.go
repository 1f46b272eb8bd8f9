package pointsorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/tool"
	"github.com/shuttlepoint/server/pkg/types"
)

type PurchaseRequest struct {
	PointsPlan struct {
		Value int64 `json:"value" binding:"required"`
	} `json:"pointsPlan"`
}

// Purchase creates a pending order for the plan priced req.PointsPlan.Value
// and returns the signed handshake. Encryption runs after the order is
// committed; a handshake failure marks the order failed.
func (s *Service) Purchase(ctx context.Context, memberID string, req *PurchaseRequest) (trade *newebpay.Trade, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("points_order", "purchase", start)
		if err != nil {
			s.metrics.Count("points_order_purchase", "error")
		}
	}()
	if req == nil || req.PointsPlan.Value <= 0 {
		return nil, ErrInvalidPlan
	}
	db := s.db.WithContext(ctx)

	var plan models.PointsPlan
	if err := db.Where("value = ?", req.PointsPlan.Value).Take(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: value %d", ErrPlanNotFound, req.PointsPlan.Value)
		}
		return nil, fmt.Errorf("get points plan: %w", err)
	}
	var member models.Member
	if err := db.Select("id", "email").Where("id = ?", memberID).Take(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
		}
		return nil, fmt.Errorf("get member: %w", err)
	}

	now := s.now()
	order := &models.PointsOrder{
		ID:              tool.GenerateUUIDV7(),
		MemberID:        memberID,
		PointsPlanID:    plan.ID,
		MerchantOrderNo: s.orderNo.Next(),
		Amount:          plan.Value,
		Points:          plan.Points,
		Status:          types.PointsOrderStatusPending,
	}
	if err := db.Create(order).Error; err != nil {
		return nil, fmt.Errorf("create points order: %w", err)
	}

	lg := logctx.FromCtx(ctx, s.log).With("merchant_order_no", order.MerchantOrderNo)
	trade, err = s.gateway.NewTrade(newebpay.TradeOrder{
		MerchantOrderNo: order.MerchantOrderNo,
		Amount:          order.Amount,
		Email:           member.Email,
		Timestamp:       now,
	})
	if err != nil {
		lg.Errorw("build gateway handshake failed", "err", err)
		if ferr := s.markFailed(ctx, db, order, "handshake: "+err.Error()); ferr != nil {
			lg.Errorw("mark order failed", "err", ferr)
		}
		return nil, fmt.Errorf("build gateway handshake: %w", err)
	}
	lg.Infow("points order created", "amount", order.Amount, "points", order.Points)
	return trade, nil
}

// markFailed moves a pending order to failed with reason.
func (s *Service) markFailed(ctx context.Context, tx *gorm.DB, order *models.PointsOrder, reason string) error {
	_, err := s.transition(ctx, tx, order, types.PointsOrderStatusFailed, map[string]any{
		"fail_reason": lo.Substring(reason, 0, 255),
	})
	return err
}

// transition applies pending -> to with extra columns. Zero affected rows
// means another delivery already finished the order.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, order *models.PointsOrder, to types.PointsOrderStatus, cols map[string]any) (bool, error) {
	values := map[string]any{"status": to, "updated_at": s.now()}
	for k, v := range cols {
		values[k] = v
	}
	res := tx.WithContext(ctx).Model(&models.PointsOrder{}).
		Where("id = ? AND status = ?", order.ID, types.PointsOrderStatusPending).
		Updates(values)
	if res.Error != nil {
		return false, fmt.Errorf("transition order %s to %s: %w", order.MerchantOrderNo, to, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	order.Status = to
	return true, nil
}
