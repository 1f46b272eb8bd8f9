// Package ledger owns members.points. Every balance change goes through
// Apply/ApplyAll, which update the balance with a conditional statement and
// append exactly one points_records row in the caller's transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/pkg/errs"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/metrics"
	"github.com/shuttlepoint/server/pkg/tool"
	"github.com/shuttlepoint/server/pkg/types"
)

var (
	ErrMemberNotFound     = errs.New(errs.KindNotFound, "member not found")
	ErrInsufficientPoints = errs.New(errs.KindValidation, "insufficient points")
	ErrInvalidEntry       = errs.New(errs.KindValidation, "invalid ledger entry")
)

// Entry is one signed balance change and its cause.
type Entry struct {
	MemberID      string
	Change        int64
	Type          types.PointsRecordType
	ActivityID    *string
	PointsOrderID *string
}

func (e Entry) validate() error {
	if e.MemberID == "" {
		return fmt.Errorf("%w: empty member id", ErrInvalidEntry)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: record type %q", ErrInvalidEntry, e.Type)
	}
	return nil
}

type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	metrics *metrics.Business
	tracer  trace.Tracer
	now     func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger, m *metrics.Business) *Service {
	return &Service{
		db:      db,
		log:     log,
		metrics: m,
		tracer:  otel.Tracer("github.com/shuttlepoint/server/internal/app/service/ledger"),
		now:     time.Now,
	}
}

// Apply applies e inside tx. The balance never goes below zero: the update is
// conditioned on points + change >= 0 and zero affected rows is reported as
// ErrInsufficientPoints, or ErrMemberNotFound when the member is missing.
func (s *Service) Apply(ctx context.Context, tx *gorm.DB, e Entry) (*models.PointsRecord, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	res := tx.WithContext(ctx).Model(&models.Member{}).
		Where("id = ? AND points + ? >= 0", e.MemberID, e.Change).
		Updates(map[string]any{
			"points":     gorm.Expr("points + ?", e.Change),
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update balance of %s: %w", e.MemberID, res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.WithContext(ctx).Model(&models.Member{}).Where("id = ?", e.MemberID).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("lookup member %s: %w", e.MemberID, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, e.MemberID)
		}
		return nil, fmt.Errorf("%w: member %s needs %d", ErrInsufficientPoints, e.MemberID, -e.Change)
	}

	rec := &models.PointsRecord{
		ID:            tool.GenerateUUIDV7(),
		MemberID:      e.MemberID,
		ActivityID:    e.ActivityID,
		PointsOrderID: e.PointsOrderID,
		PointsChange:  e.Change,
		RecordType:    e.Type,
		CreatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("insert points record: %w", err)
	}
	return rec, nil
}

// ApplyAll applies entries in one transaction. Member rows are locked in
// ascending id order first so two transfers touching the same pair of members
// cannot deadlock. Records are returned in the order of entries.
func (s *Service) ApplyAll(ctx context.Context, tx *gorm.DB, entries ...Entry) ([]*models.PointsRecord, error) {
	start := time.Now()
	defer s.metrics.Observe("ledger", "apply_all", start)

	ctx, span := s.tracer.Start(ctx, "ledger.ApplyAll", trace.WithAttributes(attribute.Int("ledger.entries", len(entries))))
	defer span.End()

	order := make([]int, len(entries))
	for i := range entries {
		if err := entries[i].validate(); err != nil {
			return nil, err
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].MemberID < entries[order[b]].MemberID
	})

	locked := make(map[string]bool, len(entries))
	for _, i := range order {
		id := entries[i].MemberID
		if locked[id] {
			continue
		}
		var m models.Member
		err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", id).Take(&m).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
			}
			return nil, fmt.Errorf("lock member %s: %w", id, err)
		}
		locked[id] = true
	}

	out := make([]*models.PointsRecord, len(entries))
	for _, i := range order {
		rec, err := s.Apply(ctx, tx, entries[i])
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// Transact applies entries in a transaction of its own.
func (s *Service) Transact(ctx context.Context, entries ...Entry) ([]*models.PointsRecord, error) {
	var out []*models.PointsRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recs, err := s.ApplyAll(ctx, tx, entries...)
		out = recs
		return err
	})
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("ledger transaction rolled back", "entries", len(entries), "err", err)
		return nil, err
	}
	return out, nil
}
