package models

import (
	"time"

	"github.com/shuttlepoint/server/pkg/types"
)

type PointsOrder struct {
	ID           string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	MemberID     string `gorm:"column:member_id;type:varchar(64);not null;index" json:"member_id"`
	PointsPlanID string `gorm:"column:points_plan_id;type:uuid;not null" json:"points_plan_id"`
	// MerchantOrderNo is our correlation id echoed back by the gateway.
	MerchantOrderNo string `gorm:"column:merchant_order_no;type:varchar(30);not null;uniqueIndex" json:"merchant_order_no"`
	Amount          int64  `gorm:"column:amount;not null" json:"amount"`
	// Points is a snapshot of the plan at purchase time.
	Points int64 `gorm:"column:points;not null" json:"points"`
	// TradeNo is the gateway transaction id, set on completion.
	TradeNo    *string                 `gorm:"column:trade_no;type:varchar(64);uniqueIndex" json:"trade_no,omitempty"`
	PayTime    *time.Time              `gorm:"column:pay_time" json:"pay_time,omitempty"`
	Status     types.PointsOrderStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	FailReason *string                 `gorm:"column:fail_reason;type:varchar(255)" json:"fail_reason,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

func (PointsOrder) TableName() string { return "points_orders" }
