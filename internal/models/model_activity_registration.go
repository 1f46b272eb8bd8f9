package models

import (
	"time"

	"github.com/shuttlepoint/server/pkg/types"
)

// ActivityRegistration is the single row per (member, activity). Cancel,
// re-register and suspend update it in place; the money history lives in
// points_records.
type ActivityRegistration struct {
	ID               string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	MemberID         string                   `gorm:"column:member_id;type:varchar(64);not null;uniqueIndex:uniq_registration_member_activity,priority:1" json:"member_id"`
	ActivityID       string                   `gorm:"column:activity_id;type:uuid;not null;uniqueIndex:uniq_registration_member_activity,priority:2;index" json:"activity_id"`
	ParticipantCount int                      `gorm:"column:participant_count;not null" json:"participant_count"`
	Status           types.RegistrationStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func (ActivityRegistration) TableName() string { return "activity_registrations" }
