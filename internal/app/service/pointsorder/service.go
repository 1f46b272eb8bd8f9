// Package pointsorder implements points purchases through NewebPay:
// pending orders, the encrypted handshake and the idempotent
// pending -> completed | failed transition driven by gateway callbacks.
package pointsorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shuttlepoint/server/internal/app/service/events"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	notificationlog "github.com/shuttlepoint/server/internal/app/service/notification_log"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/errs"
	"github.com/shuttlepoint/server/pkg/metrics"
	"github.com/shuttlepoint/server/pkg/tool"
	"github.com/shuttlepoint/server/pkg/types"
)

var (
	ErrInvalidPlan    = errs.New(errs.KindValidation, "invalid points plan")
	ErrPlanNotFound   = errs.New(errs.KindNotFound, "points plan not found")
	ErrMemberNotFound = errs.New(errs.KindNotFound, "member not found")
	ErrOrderNotFound  = errs.New(errs.KindNotFound, "points order not found")
	// ErrUnknownOrder is a gateway callback naming an order we never created.
	ErrUnknownOrder   = errs.New(errs.KindIntegration, "callback for unknown order")
	ErrAmountMismatch = errs.New(errs.KindIntegration, "paid amount does not match order")
)

// Gateway is the part of the NewebPay client the order flow needs.
type Gateway interface {
	NewTrade(o newebpay.TradeOrder) (*newebpay.Trade, error)
	VerifyCallback(cb *newebpay.Callback) (*newebpay.TradeResponse, error)
	Location() *time.Location
}

type Ledger interface {
	Apply(ctx context.Context, tx *gorm.DB, e ledger.Entry) (*models.PointsRecord, error)
}

type OrderNoGenerator interface {
	Next() string
}

type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	cfg     *config.Config
	gateway Gateway
	ledger  Ledger
	notif   *notificationlog.Service
	events  *events.Publisher
	metrics *metrics.Business
	orderNo OrderNoGenerator
	tracer  trace.Tracer
	now     func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config, gw Gateway, l Ledger, notif *notificationlog.Service, ev *events.Publisher, m *metrics.Business, gen OrderNoGenerator) *Service {
	return &Service{
		db:      db,
		log:     log,
		cfg:     cfg,
		gateway: gw,
		ledger:  l,
		notif:   notif,
		events:  ev,
		metrics: m,
		orderNo: gen,
		tracer:  otel.Tracer("github.com/shuttlepoint/server/internal/app/service/pointsorder"),
		now:     time.Now,
	}
}

// ListPlans returns the catalog ordered by price.
func (s *Service) ListPlans(ctx context.Context) ([]types.PointsPlan, error) {
	var rows []*models.PointsPlan
	if err := s.db.WithContext(ctx).Order("value").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list points plans: %w", err)
	}
	out := make([]types.PointsPlan, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.PointsPlan{Points: r.Points, Value: r.Value})
	}
	return out, nil
}

// SeedPlans upserts the configured catalog keyed by value.
func (s *Service) SeedPlans(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range s.cfg.PointsPlans {
			row := &models.PointsPlan{ID: tool.GenerateUUIDV7(), Points: p.Points, Value: p.Value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "value"}},
				DoUpdates: clause.AssignmentColumns([]string{"points", "updated_at"}),
			}).Create(row).Error
			if err != nil {
				return fmt.Errorf("seed points plan %d: %w", p.Value, err)
			}
		}
		return nil
	})
}

func (s *Service) GetOrder(ctx context.Context, merchantOrderNo string) (*models.PointsOrder, error) {
	var o models.PointsOrder
	err := s.db.WithContext(ctx).Where("merchant_order_no = ?", merchantOrderNo).Take(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, merchantOrderNo)
		}
		return nil, fmt.Errorf("get points order: %w", err)
	}
	return &o, nil
}

// GetMemberOrder hides orders of other members behind ErrOrderNotFound.
func (s *Service) GetMemberOrder(ctx context.Context, memberID, merchantOrderNo string) (*models.PointsOrder, error) {
	o, err := s.GetOrder(ctx, merchantOrderNo)
	if err != nil {
		return nil, err
	}
	if o.MemberID != memberID {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, merchantOrderNo)
	}
	return o, nil
}
