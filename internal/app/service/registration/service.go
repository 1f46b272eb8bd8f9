// Package registration runs the seat and points bookkeeping of activity
// sign-up. Every operation is one database transaction: the activity row and
// the registration row are locked, seat counts move by conditional updates
// and points move through the ledger.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shuttlepoint/server/internal/app/service/events"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/errs"
	"github.com/shuttlepoint/server/pkg/metrics"
	"github.com/shuttlepoint/server/pkg/types"
)

var (
	ErrInvalidActivityID       = errs.New(errs.KindValidation, "invalid activity id")
	ErrInvalidParticipantCount = errs.New(errs.KindValidation, "participant count must be positive")
	ErrActivityNotFound        = errs.New(errs.KindNotFound, "activity not found")
	ErrActivityStarted         = errs.New(errs.KindValidation, "activity has already started")
	ErrActivityEnded           = errs.New(errs.KindValidation, "activity has already ended")
	ErrCutoffPassed            = errs.New(errs.KindValidation, "too close to activity start")
	ErrCapacityExceeded        = errs.New(errs.KindValidation, "not enough seats left")
	ErrAlreadyRegistered       = errs.New(errs.KindConflict, "already registered")
	ErrRegistrationNotFound    = errs.New(errs.KindNotFound, "registration not found")
	ErrAlreadyCancelled        = errs.New(errs.KindConflict, "registration already cancelled")
	ErrRegistrationNotActive   = errs.New(errs.KindConflict, "registration is not active")
	ErrNotOrganizer            = errs.New(errs.KindUnauthorized, "not the organizer of this activity")
	ErrAlreadySuspended        = errs.New(errs.KindConflict, "activity already suspended")
	ErrActivityNotPublished    = errs.New(errs.KindConflict, "activity is not published")
)

// Ledger applies balance changes inside the caller's transaction.
type Ledger interface {
	ApplyAll(ctx context.Context, tx *gorm.DB, entries ...ledger.Entry) ([]*models.PointsRecord, error)
}

type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	ledger  Ledger
	events  *events.Publisher
	metrics *metrics.Business
	tracer  trace.Tracer
	cutoff  time.Duration
	now     func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config, l Ledger, ev *events.Publisher, m *metrics.Business) *Service {
	return &Service{
		db:      db,
		log:     log,
		ledger:  l,
		events:  ev,
		metrics: m,
		tracer:  otel.Tracer("github.com/shuttlepoint/server/internal/app/service/registration"),
		cutoff:  cfg.Registration.Cutoff,
		now:     time.Now,
	}
}

type RegisterRequest struct {
	ActivityID       string `json:"activityId" binding:"required"`
	ParticipantCount int    `json:"participantCount" binding:"required"`
}

type UpdateCountRequest struct {
	ActivityID       string `json:"activityId" binding:"required"`
	ParticipantCount int    `json:"participantCount" binding:"required"`
}

type Result struct {
	Registration *models.ActivityRegistration
	// Changed is false when UpdateCount was asked for the current count.
	Changed bool
	// PointsChange is the signed change applied to the member.
	PointsChange int64
}

func validate(activityID string, count int, checkCount bool) error {
	if _, err := uuid.Parse(activityID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidActivityID, activityID)
	}
	if checkCount && count <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidParticipantCount, count)
	}
	return nil
}

func (s *Service) lockActivity(ctx context.Context, tx *gorm.DB, id string) (*models.Activity, error) {
	var a models.Activity
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
		}
		return nil, fmt.Errorf("lock activity %s: %w", id, err)
	}
	return &a, nil
}

// lockRegistration returns nil without error when the member never registered.
func (s *Service) lockRegistration(ctx context.Context, tx *gorm.DB, memberID, activityID string) (*models.ActivityRegistration, error) {
	var r models.ActivityRegistration
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ? AND activity_id = ?", memberID, activityID).Take(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock registration: %w", err)
	}
	return &r, nil
}

// shiftSeats moves booked_count by delta. Increases are only allowed on a
// published activity with room left; decreases never go below zero.
func (s *Service) shiftSeats(ctx context.Context, tx *gorm.DB, a *models.Activity, delta int) error {
	if delta == 0 {
		return nil
	}
	q := tx.WithContext(ctx).Model(&models.Activity{}).Where("id = ?", a.ID)
	if delta > 0 {
		q = q.Where("status = ? AND booked_count + ? <= participant_count", types.ActivityStatusPublished, delta)
	} else {
		q = q.Where("booked_count + ? >= 0", delta)
	}
	res := q.Updates(map[string]any{
		"booked_count": gorm.Expr("booked_count + ?", delta),
		"updated_at":   s.now(),
	})
	if res.Error != nil {
		return fmt.Errorf("update booked count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if delta > 0 {
			return fmt.Errorf("%w: %d left, %d requested", ErrCapacityExceeded, a.RemainingSeats(), delta)
		}
		return fmt.Errorf("booked count of %s would go negative", a.ID)
	}
	a.BookedCount += delta
	return nil
}

// beforeCutoff reports whether now is strictly earlier than cutoff before start.
func (s *Service) beforeCutoff(a *models.Activity, now time.Time) bool {
	return now.Before(a.StartTime.Add(-s.cutoff))
}

func (s *Service) finish(op string, start time.Time, err error) {
	s.metrics.Observe("registration", op, start)
	outcome := "ok"
	if err != nil {
		outcome = errs.KindOf(err).String()
	}
	s.metrics.Count("registration_"+op, outcome)
}
