package notification_log

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	wg  sync.WaitGroup
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a payment notification log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, log *models.PaymentNotificationLog) {
	if log == nil {
		return
	}
	if log.ID == "" {
		log.ID = tool.GenerateUUIDV7()
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("failed to save notification log",
				"merchant_order_no", log.MerchantOrderNo, "status", log.Status, "err", err)
		}
	}()
}

// Flush blocks until pending saves finish or ctx is done.
func (s *Service) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) ListByMerchantOrderNo(ctx context.Context, merchantOrderNo string) ([]*models.PaymentNotificationLog, error) {
	var out []*models.PaymentNotificationLog
	err := s.db.WithContext(ctx).
		Where("merchant_order_no = ?", merchantOrderNo).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// NewEntry builds a log row stamped with the trace and member ids found in
// ctx. data and result are JSON encoded; a nil result leaves the column NULL.
func NewEntry(ctx context.Context, providerID string, kind models.PaymentNotificationLogKind, status models.PaymentNotificationLogStatus, merchantOrderNo string, data, result any) *models.PaymentNotificationLog {
	entry := &models.PaymentNotificationLog{
		ProviderID:       providerID,
		Kind:             kind,
		TraceID:          logctx.TraceID(ctx),
		MerchantOrderNo:  merchantOrderNo,
		NotificationTime: time.Now(),
		Status:           status,
	}
	if mid := logctx.MemberID(ctx); mid != "" {
		entry.MemberID = &mid
	}
	if b, err := json.Marshal(data); err == nil {
		entry.Data = datatypes.JSON(b)
	}
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			j := datatypes.JSON(b)
			entry.Result = &j
		}
	}
	return entry
}

func registerFlush(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Flush(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerFlush),
)
