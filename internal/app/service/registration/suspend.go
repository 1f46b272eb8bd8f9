package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shuttlepoint/server/internal/app/service/events"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/types"
)

type SuspendResult struct {
	ActivityID    string          `json:"activityId"`
	RefundedSeats int             `json:"refundedSeats"`
	Refunds       []events.Refund `json:"refunds"`
}

// Suspend cancels a published activity that has not started yet on behalf of
// its organizer. Every registered member is refunded with suspendAct and
// booked_count drops by the refunded total in a single update.
func (s *Service) Suspend(ctx context.Context, organizerID, activityID string) (res *SuspendResult, err error) {
	start := time.Now()
	defer func() { s.finish("suspend", start, err) }()
	if err := validate(activityID, 0, false); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "registration.Suspend", trace.WithAttributes(attribute.String("activity.id", activityID)))
	defer span.End()

	res = &SuspendResult{ActivityID: activityID, Refunds: []events.Refund{}}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		act, err := s.lockActivity(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if act.MemberID != organizerID {
			return ErrNotOrganizer
		}
		switch act.Status {
		case types.ActivityStatusSuspended:
			return ErrAlreadySuspended
		case types.ActivityStatusPublished:
		default:
			return fmt.Errorf("%w: %s", ErrActivityNotPublished, act.Status)
		}
		if act.Started(now) {
			return ErrActivityStarted
		}

		flip := tx.WithContext(ctx).Model(&models.Activity{}).
			Where("id = ? AND status = ?", act.ID, types.ActivityStatusPublished).
			Updates(map[string]any{"status": types.ActivityStatusSuspended, "updated_at": now})
		if flip.Error != nil {
			return fmt.Errorf("suspend activity: %w", flip.Error)
		}
		if flip.RowsAffected == 0 {
			return ErrAlreadySuspended
		}

		var regs []*models.ActivityRegistration
		if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("activity_id = ? AND status = ?", act.ID, types.RegistrationStatusRegistered).
			Order("member_id").Find(&regs).Error; err != nil {
			return fmt.Errorf("load registrations: %w", err)
		}
		if len(regs) == 0 {
			return nil
		}

		entries := make([]ledger.Entry, 0, len(regs))
		for _, r := range regs {
			refund := act.Points * int64(r.ParticipantCount)
			entries = append(entries, ledger.Entry{
				MemberID:   r.MemberID,
				Change:     refund,
				Type:       types.PointsRecordTypeSuspendAct,
				ActivityID: &act.ID,
			})
			res.RefundedSeats += r.ParticipantCount
			res.Refunds = append(res.Refunds, events.Refund{
				MemberID:       r.MemberID,
				RegistrationID: r.ID,
				Seats:          r.ParticipantCount,
				Points:         refund,
			})
		}

		if err := tx.WithContext(ctx).Model(&models.ActivityRegistration{}).
			Where("activity_id = ? AND status = ?", act.ID, types.RegistrationStatusRegistered).
			Updates(map[string]any{"status": types.RegistrationStatusSuspended, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("suspend registrations: %w", err)
		}
		if _, err := s.ledger.ApplyAll(ctx, tx, entries...); err != nil {
			return err
		}
		return s.shiftSeats(ctx, tx, act, -res.RefundedSeats)
	})
	if err != nil {
		span.RecordError(err)
		logctx.FromCtx(ctx, s.log).Infow("suspend rejected", "activity_id", activityID, "err", err)
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("activity suspended", "activity_id", activityID,
		"refunded_registrations", len(res.Refunds), "refunded_seats", res.RefundedSeats)
	s.events.Publish(ctx, events.KeyActivitySuspended, events.ActivitySuspendedEvent{
		ActivityID:    activityID,
		OrganizerID:   organizerID,
		RefundedSeats: res.RefundedSeats,
		Refunds:       res.Refunds,
	})
	return res, nil
}

type RosterEntry struct {
	RegistrationID     string                   `json:"registrationId"`
	MemberID           string                   `json:"memberId"`
	Name               string                   `json:"name"`
	Email              string                   `json:"email"`
	RegisteredAt       time.Time                `json:"registrationDate"`
	CancelledAt        *time.Time               `json:"cancellationDate"`
	ParticipantCount   int                      `json:"registrationCount"`
	RegistrationPoints int64                    `json:"registrationPoints"`
	RefundPoints       *int64                   `json:"refundPoints"`
	Status             types.RegistrationStatus `json:"status"`
}

// Roster lists an activity's registrations for its organizer. Cancelled and
// suspended rows carry the refund taken from their latest refund ledger row.
func (s *Service) Roster(ctx context.Context, organizerID, activityID string) ([]*RosterEntry, error) {
	if err := validate(activityID, 0, false); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var act models.Activity
	if err := db.Where("id = ?", activityID).Take(&act).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, activityID)
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	if act.MemberID != organizerID {
		return nil, ErrNotOrganizer
	}

	var regs []*models.ActivityRegistration
	if err := db.Where("activity_id = ?", activityID).Order("created_at").Find(&regs).Error; err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	out := make([]*RosterEntry, 0, len(regs))
	if len(regs) == 0 {
		return out, nil
	}

	memberIDs := make([]string, 0, len(regs))
	for _, r := range regs {
		memberIDs = append(memberIDs, r.MemberID)
	}
	var members []*models.Member
	if err := db.Where("id IN ?", memberIDs).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	byID := make(map[string]*models.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	var refunds []*models.PointsRecord
	if err := db.Where("activity_id = ? AND record_type IN ?", activityID,
		[]types.PointsRecordType{types.PointsRecordTypeCancelAct, types.PointsRecordTypeSuspendAct}).
		Order("created_at").Find(&refunds).Error; err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	latest := make(map[string]int64, len(refunds))
	for _, r := range refunds {
		latest[r.MemberID+"/"+string(r.RecordType)] = r.PointsChange
	}

	for _, r := range regs {
		e := &RosterEntry{
			RegistrationID:     r.ID,
			MemberID:           r.MemberID,
			RegisteredAt:       r.CreatedAt,
			ParticipantCount:   r.ParticipantCount,
			RegistrationPoints: act.Points * int64(r.ParticipantCount),
			Status:             r.Status,
		}
		if m := byID[r.MemberID]; m != nil {
			e.Name, e.Email = m.Name, m.Email
		}
		var refundType types.PointsRecordType
		switch r.Status {
		case types.RegistrationStatusCancelled:
			refundType = types.PointsRecordTypeCancelAct
		case types.RegistrationStatusSuspended:
			refundType = types.PointsRecordTypeSuspendAct
		}
		if refundType != "" {
			updated := r.UpdatedAt
			e.CancelledAt = &updated
			v := latest[r.MemberID+"/"+string(refundType)]
			e.RefundPoints = &v
		}
		out = append(out, e)
	}
	return out, nil
}
