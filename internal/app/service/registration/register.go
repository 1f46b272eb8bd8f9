package registration

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/shuttlepoint/server/internal/app/service/events"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/tool"
	"github.com/shuttlepoint/server/pkg/types"
)

// Register books req.ParticipantCount seats for memberID, debits the member
// with applyAct and credits the organizer with receiveAct in one transaction.
// A previously cancelled or suspended registration row is reused.
func (s *Service) Register(ctx context.Context, memberID string, req *RegisterRequest) (res *Result, err error) {
	start := time.Now()
	defer func() { s.finish("register", start, err) }()
	if err := validate(req.ActivityID, req.ParticipantCount, true); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "registration.Register", trace.WithAttributes(
		attribute.String("activity.id", req.ActivityID),
		attribute.Int("registration.seats", req.ParticipantCount),
	))
	defer span.End()

	var reg *models.ActivityRegistration
	var cost int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		act, err := s.lockActivity(ctx, tx, req.ActivityID)
		if err != nil {
			return err
		}
		if act.Status != types.ActivityStatusPublished {
			return fmt.Errorf("%w: %s is %s", ErrActivityNotFound, act.ID, act.Status)
		}
		if act.Started(now) {
			return ErrActivityStarted
		}

		reg, err = s.lockRegistration(ctx, tx, memberID, act.ID)
		if err != nil {
			return err
		}
		if reg != nil && reg.Status == types.RegistrationStatusRegistered {
			return ErrAlreadyRegistered
		}

		if err := s.shiftSeats(ctx, tx, act, req.ParticipantCount); err != nil {
			return err
		}

		if reg == nil {
			reg = &models.ActivityRegistration{
				ID:               tool.GenerateUUIDV7(),
				MemberID:         memberID,
				ActivityID:       act.ID,
				ParticipantCount: req.ParticipantCount,
				Status:           types.RegistrationStatusRegistered,
			}
			if err := tx.WithContext(ctx).Create(reg).Error; err != nil {
				return fmt.Errorf("create registration: %w", err)
			}
		} else {
			reg.ParticipantCount = req.ParticipantCount
			reg.Status = types.RegistrationStatusRegistered
			if err := tx.WithContext(ctx).Model(reg).Updates(map[string]any{
				"participant_count": reg.ParticipantCount,
				"status":            reg.Status,
			}).Error; err != nil {
				return fmt.Errorf("reactivate registration: %w", err)
			}
		}

		cost = act.Points * int64(req.ParticipantCount)
		_, err = s.ledger.ApplyAll(ctx, tx,
			ledger.Entry{MemberID: memberID, Change: -cost, Type: types.PointsRecordTypeApplyAct, ActivityID: &act.ID},
			ledger.Entry{MemberID: act.MemberID, Change: cost, Type: types.PointsRecordTypeReceiveAct, ActivityID: &act.ID},
		)
		return err
	})
	if err != nil {
		span.RecordError(err)
		logctx.FromCtx(ctx, s.log).Infow("register rejected", "activity_id", req.ActivityID, "err", err)
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("registered", "registration_id", reg.ID, "activity_id", reg.ActivityID, "seats", reg.ParticipantCount, "cost", cost)
	s.events.Publish(ctx, events.KeyRegistrationRegistered, events.RegistrationEvent{
		RegistrationID:   reg.ID,
		MemberID:         memberID,
		ActivityID:       reg.ActivityID,
		ParticipantCount: reg.ParticipantCount,
		PointsChange:     -cost,
	})
	return &Result{Registration: reg, Changed: true, PointsChange: -cost}, nil
}

// UpdateCount changes the seats of an active registration. The member pays
// or is refunded the marginal cost with a single applyAct entry.
func (s *Service) UpdateCount(ctx context.Context, memberID string, req *UpdateCountRequest) (res *Result, err error) {
	start := time.Now()
	defer func() { s.finish("update_count", start, err) }()
	if err := validate(req.ActivityID, req.ParticipantCount, true); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "registration.UpdateCount", trace.WithAttributes(
		attribute.String("activity.id", req.ActivityID),
		attribute.Int("registration.seats", req.ParticipantCount),
	))
	defer span.End()

	res = &Result{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		act, err := s.lockActivity(ctx, tx, req.ActivityID)
		if err != nil {
			return err
		}
		if act.Status != types.ActivityStatusPublished {
			return fmt.Errorf("%w: %s is %s", ErrActivityNotFound, act.ID, act.Status)
		}
		if act.Ended(now) {
			return ErrActivityEnded
		}
		if !s.beforeCutoff(act, now) {
			return fmt.Errorf("%w: changes close %s before start", ErrCutoffPassed, s.cutoff)
		}

		reg, err := s.lockRegistration(ctx, tx, memberID, act.ID)
		if err != nil {
			return err
		}
		switch {
		case reg == nil:
			return ErrRegistrationNotFound
		case reg.Status == types.RegistrationStatusCancelled:
			return ErrAlreadyCancelled
		case reg.Status != types.RegistrationStatusRegistered:
			return ErrRegistrationNotActive
		}
		res.Registration = reg
		diff := req.ParticipantCount - reg.ParticipantCount
		if diff == 0 {
			return nil
		}

		if err := s.shiftSeats(ctx, tx, act, diff); err != nil {
			return err
		}
		res.PointsChange = -act.Points * int64(diff)
		if _, err := s.ledger.ApplyAll(ctx, tx, ledger.Entry{
			MemberID:   memberID,
			Change:     res.PointsChange,
			Type:       types.PointsRecordTypeApplyAct,
			ActivityID: &act.ID,
		}); err != nil {
			return err
		}
		reg.ParticipantCount = req.ParticipantCount
		if err := tx.WithContext(ctx).Model(reg).Update("participant_count", reg.ParticipantCount).Error; err != nil {
			return fmt.Errorf("update registration count: %w", err)
		}
		res.Changed = true
		return nil
	})
	if err != nil {
		span.RecordError(err)
		logctx.FromCtx(ctx, s.log).Infow("update count rejected", "activity_id", req.ActivityID, "err", err)
		return nil, err
	}
	if !res.Changed {
		return res, nil
	}

	logctx.FromCtx(ctx, s.log).Infow("registration count updated", "registration_id", res.Registration.ID, "seats", req.ParticipantCount, "points_change", res.PointsChange)
	s.events.Publish(ctx, events.KeyRegistrationUpdated, events.RegistrationEvent{
		RegistrationID:   res.Registration.ID,
		MemberID:         memberID,
		ActivityID:       res.Registration.ActivityID,
		ParticipantCount: res.Registration.ParticipantCount,
		PointsChange:     res.PointsChange,
	})
	return res, nil
}

// Cancel releases the member's seats and refunds them with cancelAct. The
// organizer keeps the receiveAct credit.
func (s *Service) Cancel(ctx context.Context, memberID, activityID string) (res *Result, err error) {
	start := time.Now()
	defer func() { s.finish("cancel", start, err) }()
	if err := validate(activityID, 0, false); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "registration.Cancel", trace.WithAttributes(attribute.String("activity.id", activityID)))
	defer span.End()

	res = &Result{Changed: true}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		act, err := s.lockActivity(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if act.Started(now) {
			return ErrActivityStarted
		}
		if !s.beforeCutoff(act, now) {
			return fmt.Errorf("%w: cancellation closes %s before start", ErrCutoffPassed, s.cutoff)
		}

		reg, err := s.lockRegistration(ctx, tx, memberID, act.ID)
		if err != nil {
			return err
		}
		switch {
		case reg == nil:
			return ErrRegistrationNotFound
		case reg.Status == types.RegistrationStatusCancelled:
			return ErrAlreadyCancelled
		case reg.Status != types.RegistrationStatusRegistered:
			return ErrRegistrationNotActive
		}

		if err := s.shiftSeats(ctx, tx, act, -reg.ParticipantCount); err != nil {
			return err
		}
		reg.Status = types.RegistrationStatusCancelled
		if err := tx.WithContext(ctx).Model(reg).Update("status", reg.Status).Error; err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		res.Registration = reg
		res.PointsChange = act.Points * int64(reg.ParticipantCount)
		_, err = s.ledger.ApplyAll(ctx, tx, ledger.Entry{
			MemberID:   memberID,
			Change:     res.PointsChange,
			Type:       types.PointsRecordTypeCancelAct,
			ActivityID: &act.ID,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		logctx.FromCtx(ctx, s.log).Infow("cancel rejected", "activity_id", activityID, "err", err)
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("registration cancelled", "registration_id", res.Registration.ID, "refund", res.PointsChange)
	s.events.Publish(ctx, events.KeyRegistrationCancelled, events.RegistrationEvent{
		RegistrationID:   res.Registration.ID,
		MemberID:         memberID,
		ActivityID:       activityID,
		ParticipantCount: res.Registration.ParticipantCount,
		PointsChange:     res.PointsChange,
	})
	return res, nil
}
