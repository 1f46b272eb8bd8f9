package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommonFilter_ValidateWhitelist(t *testing.T) {
	f := &CommonFilter{Field: "record_type", Operator: CommonFilterOperatorEq, Values: []any{"addPoint"}}
	require.NoError(t, f.Validate("record_type", "activity_id"))

	bad := &CommonFilter{Field: "points; drop table members", Operator: CommonFilterOperatorEq, Values: []any{1}}
	require.Error(t, bad.Validate("record_type"))

	empty := &CommonFilter{Field: "record_type", Operator: CommonFilterOperatorEq}
	require.Error(t, empty.Validate("record_type"))

	shortRange := &CommonFilter{Field: "created_at", Operator: CommonFilterOperatorRange, Values: []any{"2025-01-01"}}
	require.Error(t, shortRange.Validate("created_at"))
}

func TestPointsRecordType_Valid(t *testing.T) {
	require.True(t, PointsRecordTypeReceiveAct.Valid())
	require.False(t, PointsRecordType("bonus").Valid())
	require.True(t, PointsOrderStatusFailed.Terminal())
	require.False(t, PointsOrderStatusPending.Terminal())
}
