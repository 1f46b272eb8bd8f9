package types

type PointsRecordType string

const (
	// PointsRecordTypeAddPoint credits a completed points purchase.
	PointsRecordTypeAddPoint PointsRecordType = "addPoint"
	// PointsRecordTypeApplyAct debits (or re-credits on seat decrease) a registration.
	PointsRecordTypeApplyAct PointsRecordType = "applyAct"
	// PointsRecordTypeCancelAct refunds a member-initiated cancellation.
	PointsRecordTypeCancelAct PointsRecordType = "cancelAct"
	// PointsRecordTypeSuspendAct refunds a host-initiated suspension.
	PointsRecordTypeSuspendAct PointsRecordType = "suspendAct"
	// PointsRecordTypeReceiveAct credits the host for a registration.
	PointsRecordTypeReceiveAct PointsRecordType = "receiveAct"
)

func (t PointsRecordType) Valid() bool {
	switch t {
	case PointsRecordTypeAddPoint, PointsRecordTypeApplyAct, PointsRecordTypeCancelAct,
		PointsRecordTypeSuspendAct, PointsRecordTypeReceiveAct:
		return true
	}
	return false
}

type PointsOrderStatus string

const (
	PointsOrderStatusPending   PointsOrderStatus = "pending"
	PointsOrderStatusCompleted PointsOrderStatus = "completed"
	PointsOrderStatusFailed    PointsOrderStatus = "failed"
)

// Terminal reports whether the order will not change state anymore.
func (s PointsOrderStatus) Terminal() bool {
	return s == PointsOrderStatusCompleted || s == PointsOrderStatusFailed
}

// PointsPlan is a purchasable (points, value) pair loaded from configuration.
type PointsPlan struct {
	Points int64 `json:"points" mapstructure:"points"`
	// Value is the price in TWD charged through the gateway.
	Value int64 `json:"value" mapstructure:"value"`
}
