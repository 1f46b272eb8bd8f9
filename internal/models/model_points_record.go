package models

import (
	"time"

	"github.com/shuttlepoint/server/pkg/types"
)

// PointsRecord is an immutable ledger row. The sum of a member's rows equals
// members.points.
type PointsRecord struct {
	ID            string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	MemberID      string                 `gorm:"column:member_id;type:varchar(64);not null;index" json:"member_id"`
	ActivityID    *string                `gorm:"column:activity_id;type:uuid;index" json:"activity_id,omitempty"`
	PointsOrderID *string                `gorm:"column:points_order_id;type:uuid;uniqueIndex" json:"points_order_id,omitempty"`
	PointsChange  int64                  `gorm:"column:points_change;not null" json:"points_change"`
	RecordType    types.PointsRecordType `gorm:"column:record_type;type:varchar(32);not null;index" json:"record_type"`
	CreatedAt     time.Time              `json:"created_at"`
}

func (PointsRecord) TableName() string { return "points_records" }
