package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentNotificationLogStatus string

const (
	PaymentNotificationLogStatusReceived     PaymentNotificationLogStatus = "received"
	PaymentNotificationLogStatusHandled      PaymentNotificationLogStatus = "handled"
	PaymentNotificationLogStatusHandleFailed PaymentNotificationLogStatus = "handle_failed"
)

type PaymentNotificationLogKind string

const (
	PaymentNotificationLogKindNotify PaymentNotificationLogKind = "notify"
	PaymentNotificationLogKindReturn PaymentNotificationLogKind = "return"
)

// PaymentNotificationLog audits every gateway callback so money-affecting
// failures can be reconciled by hand from the merchant order number.
type PaymentNotificationLog struct {
	ID               string                       `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ProviderID       string                       `gorm:"column:provider_id;type:varchar(64);not null" json:"provider_id"`
	Kind             PaymentNotificationLogKind   `gorm:"column:kind;type:varchar(16);not null" json:"kind"`
	MemberID         *string                      `gorm:"column:member_id;type:varchar(64)" json:"member_id"`
	TraceID          string                       `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	MerchantOrderNo  string                       `gorm:"column:merchant_order_no;type:varchar(30);index" json:"merchant_order_no"`
	TradeNo          string                       `gorm:"column:trade_no;type:varchar(64)" json:"trade_no"`
	NotificationTime time.Time                    `gorm:"column:notification_time" json:"notification_time"`
	Data             datatypes.JSON               `gorm:"column:data;type:jsonb" json:"data"`
	Result           *datatypes.JSON              `gorm:"column:result;type:jsonb" json:"result"`
	Status           PaymentNotificationLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

func (PaymentNotificationLog) TableName() string { return "payment_notification_log" }
