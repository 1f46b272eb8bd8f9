package handlers

import (
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/app/service/registration"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/response"
	"github.com/shuttlepoint/server/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespError is the envelope of every non-2xx JSON answer; data carries the reason.
type RespError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    string                   `json:"data"`
}

type RespRegistration struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    registrationResp         `json:"data"`
}

type RespSuspend struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    registration.SuspendResult `json:"data"`
}

type RespRoster struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    []*registration.RosterEntry `json:"data"`
}

type RespPointsPlans struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []types.PointsPlan       `json:"data"`
}

type RespBalance struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    balanceResp              `json:"data"`
}

type RespPointsRecords struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    ledger.ListRecordsResponse `json:"data"`
}

type RespTrade struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    newebpay.Trade           `json:"data"`
}

type RespPointsOrder struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    pointsOrderResp          `json:"data"`
}
