package models

import "time"

type PointsPlan struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Points int64  `gorm:"column:points;not null" json:"points"`
	// Value is the price in TWD and the lookup key for purchases.
	Value     int64     `gorm:"column:value;not null;uniqueIndex" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PointsPlan) TableName() string { return "points_plans" }
