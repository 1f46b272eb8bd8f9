package models

import (
	"time"

	"github.com/shuttlepoint/server/pkg/types"
)

type Activity struct {
	ID string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	// MemberID is the hosting organizer, credited on every registration.
	MemberID         string               `gorm:"column:member_id;type:varchar(64);not null;index" json:"member_id"`
	Name             string               `gorm:"column:name;type:varchar(255)" json:"name"`
	StartTime        time.Time            `gorm:"column:start_time;not null" json:"start_time"`
	EndTime          time.Time            `gorm:"column:end_time;not null" json:"end_time"`
	ParticipantCount int                  `gorm:"column:participant_count;not null" json:"participant_count"`
	BookedCount      int                  `gorm:"column:booked_count;not null;default:0" json:"booked_count"`
	Points           int64                `gorm:"column:points;not null;default:0" json:"points"`
	Status           types.ActivityStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func (Activity) TableName() string { return "activities" }

func (a *Activity) Started(now time.Time) bool { return !now.Before(a.StartTime) }

func (a *Activity) Ended(now time.Time) bool { return !now.Before(a.EndTime) }

func (a *Activity) RemainingSeats() int { return a.ParticipantCount - a.BookedCount }
