package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/pkg/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var recordFilterFields = []string{"record_type", "activity_id", "points_order_id", "points_change", "created_at"}

type ListRecordsRequest struct {
	MemberID string           `json:"-"`
	Filters  types.FiltersAnd `json:"filters"`
	From     int              `json:"from"`
	Size     int              `json:"size"`
}

type ListRecordsResponse struct {
	Items []*models.PointsRecord `json:"items"`
	Total int64                  `json:"total"`
}

// Mismatch is a member whose stored balance differs from the sum of its
// ledger rows.
type Mismatch struct {
	MemberID  string `gorm:"column:member_id" json:"member_id"`
	Stored    int64  `gorm:"column:stored" json:"stored"`
	LedgerSum int64  `gorm:"column:ledger_sum" json:"ledger_sum"`
}

func (s *Service) Balance(ctx context.Context, memberID string) (int64, error) {
	var m models.Member
	err := s.db.WithContext(ctx).Select("id", "points").Where("id = ?", memberID).Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return m.Points, nil
}

// ListRecords pages through a member's ledger, newest first.
func (s *Service) ListRecords(ctx context.Context, req *ListRecordsRequest) (*ListRecordsResponse, error) {
	if req == nil || req.MemberID == "" {
		return nil, fmt.Errorf("%w: member id required", ErrInvalidEntry)
	}
	for _, f := range req.Filters {
		if err := f.Validate(recordFilterFields...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
	}
	if req.Size <= 0 {
		req.Size = defaultPageSize
	}
	if req.Size > maxPageSize {
		req.Size = maxPageSize
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.PointsRecord{}).Where("member_id = ?", req.MemberID)
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{req.Filters}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count points records: %w", err)
	}
	var rows []*models.PointsRecord
	q := tx.Order("created_at DESC").Order("id DESC").Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list points records: %w", err)
	}
	return &ListRecordsResponse{Items: rows, Total: total}, nil
}

// Audit rebuilds every balance from the ledger and returns the members whose
// stored balance disagrees.
func (s *Service) Audit(ctx context.Context) ([]Mismatch, error) {
	var out []Mismatch
	err := s.db.WithContext(ctx).
		Table("members AS m").
		Select("m.id AS member_id, m.points AS stored, COALESCE(SUM(r.points_change), 0) AS ledger_sum").
		Joins("LEFT JOIN points_records r ON r.member_id = m.id").
		Group("m.id, m.points").
		Having("m.points <> COALESCE(SUM(r.points_change), 0)").
		Order("m.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("audit ledger: %w", err)
	}
	return out, nil
}
