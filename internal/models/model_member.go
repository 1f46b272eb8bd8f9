package models

import "time"

// Member owns a points balance. Points is only written by the ledger service,
// always together with a PointsRecord row.
type Member struct {
	ID        string    `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(128)" json:"name"`
	Email     string    `gorm:"column:email;type:varchar(255)" json:"email"`
	Points    int64     `gorm:"column:points;not null;default:0" json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Member) TableName() string { return "members" }
