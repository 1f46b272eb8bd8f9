// Package events publishes domain events after a transaction commits.
// Publishing is best effort: failures are logged and never undo ledger state.
package events

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/mq"
)

const (
	KeyRegistrationRegistered = "registration.registered"
	KeyRegistrationUpdated    = "registration.updated"
	KeyRegistrationCancelled  = "registration.cancelled"
	KeyActivitySuspended      = "activity.suspended"
	KeyPointsPurchased        = "points.purchased"
	KeyPointsPurchaseFailed   = "points.purchase_failed"
)

const publishTimeout = 3 * time.Second

type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	TraceID    string    `json:"trace_id,omitempty"`
	Data       any       `json:"data"`
}

type RegistrationEvent struct {
	RegistrationID   string `json:"registration_id"`
	MemberID         string `json:"member_id"`
	ActivityID       string `json:"activity_id"`
	ParticipantCount int    `json:"participant_count"`
	PointsChange     int64  `json:"points_change"`
}

type Refund struct {
	MemberID       string `json:"member_id"`
	RegistrationID string `json:"registration_id"`
	Seats          int    `json:"seats"`
	Points         int64  `json:"points"`
}

type ActivitySuspendedEvent struct {
	ActivityID    string   `json:"activity_id"`
	OrganizerID   string   `json:"organizer_id"`
	RefundedSeats int      `json:"refunded_seats"`
	Refunds       []Refund `json:"refunds"`
}

type PointsPurchasedEvent struct {
	MerchantOrderNo string `json:"merchant_order_no"`
	MemberID        string `json:"member_id"`
	Points          int64  `json:"points"`
	Amount          int64  `json:"amount"`
	TradeNo         string `json:"trade_no"`
}

type PointsPurchaseFailedEvent struct {
	MerchantOrderNo string `json:"merchant_order_no"`
	MemberID        string `json:"member_id"`
	Reason          string `json:"reason"`
}

type Publisher struct {
	pub mq.JSONPublisher
	log *zap.SugaredLogger
	now func() time.Time
}

func New(pub mq.JSONPublisher, log *zap.SugaredLogger) *Publisher {
	if pub == nil {
		pub = mq.NopPublisher{}
	}
	return &Publisher{pub: pub, log: log, now: time.Now}
}

// Publish sends data under key. The request context may already be
// cancelled by the time a handler returns, so the publish gets its own
// deadline while keeping ctx values.
func (p *Publisher) Publish(ctx context.Context, key string, data any) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	env := Envelope{Type: key, OccurredAt: p.now().UTC(), TraceID: logctx.TraceID(ctx), Data: data}
	if err := p.pub.PublishJSON(pctx, key, env); err != nil {
		logctx.FromCtx(ctx, p.log).Errorw("publish domain event failed", "key", key, "err", err)
	}
}

var Module = fx.Options(
	fx.Provide(New),
)
