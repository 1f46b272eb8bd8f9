package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/app/service/pointsorder"
	"github.com/shuttlepoint/server/internal/app/service/reconciler"
	"github.com/shuttlepoint/server/internal/app/service/registration"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/response"
	"github.com/shuttlepoint/server/pkg/types"
)

type stubRegistration struct {
	err       error
	memberID  string
	registerq *registration.RegisterRequest
	changed   bool
}

func (s *stubRegistration) Register(_ context.Context, memberID string, req *registration.RegisterRequest) (*registration.Result, error) {
	s.memberID, s.registerq = memberID, req
	if s.err != nil {
		return nil, s.err
	}
	return &registration.Result{Registration: &models.ActivityRegistration{ID: "reg-1"}, Changed: true}, nil
}

func (s *stubRegistration) UpdateCount(_ context.Context, memberID string, _ *registration.UpdateCountRequest) (*registration.Result, error) {
	s.memberID = memberID
	if s.err != nil {
		return nil, s.err
	}
	return &registration.Result{Registration: &models.ActivityRegistration{ID: "reg-1"}, Changed: s.changed}, nil
}

func (s *stubRegistration) Cancel(_ context.Context, memberID, activityID string) (*registration.Result, error) {
	s.memberID = memberID
	if s.err != nil {
		return nil, s.err
	}
	return &registration.Result{Registration: &models.ActivityRegistration{ID: "reg-" + activityID}}, nil
}

func (s *stubRegistration) Suspend(_ context.Context, organizerID, activityID string) (*registration.SuspendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &registration.SuspendResult{ActivityID: activityID, RefundedSeats: 3}, nil
}

func (s *stubRegistration) Roster(_ context.Context, organizerID, activityID string) ([]*registration.RosterEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*registration.RosterEntry{}, nil
}

type stubPoints struct {
	err error
}

func (s *stubPoints) ListPlans(context.Context) ([]types.PointsPlan, error) {
	return []types.PointsPlan{{Points: 100, Value: 100}}, s.err
}

func (s *stubPoints) Purchase(_ context.Context, _ string, req *pointsorder.PurchaseRequest) (*newebpay.Trade, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &newebpay.Trade{MerchantID: "MS1", TradeInfo: "abc", TradeSha: "DEF", MerchantOrderNo: fmt.Sprint(req.PointsPlan.Value)}, nil
}

func (s *stubPoints) GetMemberOrder(_ context.Context, memberID, no string) (*models.PointsOrder, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.PointsOrder{MerchantOrderNo: no, MemberID: memberID, Status: types.PointsOrderStatusPending, Points: 100}, nil
}

type stubLedger struct {
	req *ledger.ListRecordsRequest
}

func (s *stubLedger) Balance(context.Context, string) (int64, error) { return 420, nil }

func (s *stubLedger) ListRecords(_ context.Context, req *ledger.ListRecordsRequest) (*ledger.ListRecordsResponse, error) {
	s.req = req
	return &ledger.ListRecordsResponse{Items: []*models.PointsRecord{}}, nil
}

type stubCallbacks struct {
	notifyErr error
	returnErr error
}

func (s *stubCallbacks) HandleNotify(_ context.Context, cb *newebpay.Callback) (*pointsorder.NotifyResult, error) {
	if s.notifyErr != nil {
		return nil, s.notifyErr
	}
	return &pointsorder.NotifyResult{Order: &models.PointsOrder{MerchantOrderNo: cb.TradeSha}, Outcome: pointsorder.NotifyOutcomeCompleted}, nil
}

func (s *stubCallbacks) ResolveReturn(_ context.Context, cb *newebpay.Callback) (string, error) {
	return cb.TradeSha, s.returnErr
}

type stubReconciler struct{}

func (stubReconciler) Await(_ context.Context, no string) (*reconciler.Outcome, error) {
	return &reconciler.Outcome{Status: reconciler.StatusSuccess, MerchantOrderNo: no, Points: 100, Balance: 520}, nil
}

func (stubReconciler) RedirectURL(o *reconciler.Outcome) string {
	return "https://app.example.com/result?status=" + string(o.Status) + "&merchantOrderNo=" + o.MerchantOrderNo
}

func asMember(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(logctx.GinMemberIDKey, id)
		c.Next()
	}
}

func newRouter(reg RegistrationService, pts PointsService, l LedgerReader, cbs GatewayCallbackService) *gin.Engine {
	return newLoggedRouter(zap.NewNop().Sugar(), reg, pts, l, cbs)
}

func newLoggedRouter(log *zap.SugaredLogger, reg RegistrationService, pts PointsService, l LedgerReader, cbs GatewayCallbackService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	member := api.Group("", asMember("m1"))
	RegisterHealthRoutes(r)
	RegisterRegistrationRoutes(member, reg, log)
	RegisterPointsRoutes(api, member, pts, l, log)
	RegisterNewebPayRoutes(api, cbs, stubReconciler{}, log)
	return r
}

func do(r http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.APIResponse[json.RawMessage] {
	t.Helper()
	var out response.APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRoutes_Registered(t *testing.T) {
	r := newRouter(&stubRegistration{}, &stubPoints{}, &stubLedger{}, &stubCallbacks{})
	var got []string
	for _, rt := range r.Routes() {
		got = append(got, rt.Method+" "+rt.Path)
	}
	require.ElementsMatch(t, []string{
		"GET /healthz",
		"POST /api/v1/activity/registration",
		"PATCH /api/v1/activity/registration",
		"DELETE /api/v1/activity/registration/:activityId",
		"POST /api/v1/organizer/activity/:activityId/suspend",
		"GET /api/v1/organizer/activities/:activityId/registrations",
		"GET /api/v1/points",
		"GET /api/v1/points/balance",
		"GET /api/v1/points/records",
		"POST /api/v1/points/purchase",
		"GET /api/v1/points/orders/:merchantOrderNo",
		"POST /api/v1/points/newebpay-notify",
		"POST /api/v1/points/newebpay-return",
	}, got)
}

func TestRegister_Created(t *testing.T) {
	reg := &stubRegistration{}
	r := newRouter(reg, &stubPoints{}, &stubLedger{}, &stubCallbacks{})

	w := do(r, http.MethodPost, "/api/v1/activity/registration", "application/json", `{"activityId":"a1","participantCount":2}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"registrationId":"reg-1"}`, string(decode(t, w).Data))
	require.Equal(t, "m1", reg.memberID)
	require.Equal(t, &registration.RegisterRequest{ActivityID: "a1", ParticipantCount: 2}, reg.registerq)

	w = do(r, http.MethodPost, "/api/v1/activity/registration", "application/json", `{"activityId":"a1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRegistration_ReportsChanged(t *testing.T) {
	r := newRouter(&stubRegistration{changed: false}, &stubPoints{}, &stubLedger{}, &stubCallbacks{})
	w := do(r, http.MethodPatch, "/api/v1/activity/registration", "application/json", `{"activityId":"a1","participantCount":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"registrationId":"reg-1","changed":false}`, string(decode(t, w).Data))
}

func TestInternalErrorLoggedThroughInjectedLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newLoggedRouter(zap.New(core).Sugar(), &stubRegistration{err: errors.New("db exploded")}, &stubPoints{}, &stubLedger{}, &stubCallbacks{})

	w := do(r, http.MethodDelete, "/api/v1/activity/registration/a1", "", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "db exploded", entries[0].ContextMap()["err"])
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   response.APIResponseCode
	}{
		{registration.ErrCapacityExceeded, http.StatusBadRequest, response.APIResponseCodeBadRequest},
		{fmt.Errorf("wrapped: %w", registration.ErrAlreadyRegistered), http.StatusConflict, response.APIResponseCodeConflict},
		{registration.ErrNotOrganizer, http.StatusUnauthorized, response.APIResponseCodeUnauthorized},
		{registration.ErrActivityNotFound, http.StatusNotFound, response.APIResponseCodeNotFound},
		{ledger.ErrInsufficientPoints, http.StatusBadRequest, response.APIResponseCodeBadRequest},
		{errors.New("db exploded"), http.StatusInternalServerError, response.APIResponseCodeError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := newRouter(&stubRegistration{err: tc.err}, &stubPoints{}, &stubLedger{}, &stubCallbacks{})
			w := do(r, http.MethodDelete, "/api/v1/activity/registration/a1", "", "")
			require.Equal(t, tc.status, w.Code)
			out := decode(t, w)
			require.Equal(t, tc.code, out.Code)
			require.NotContains(t, string(out.Data), "db exploded")
		})
	}
}

func TestOrganizerRoutes(t *testing.T) {
	r := newRouter(&stubRegistration{}, &stubPoints{}, &stubLedger{}, &stubCallbacks{})

	w := do(r, http.MethodPost, "/api/v1/organizer/activity/a1/suspend", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"activityId":"a1","refundedSeats":3,"refunds":null}`, string(decode(t, w).Data))

	w = do(r, http.MethodGet, "/api/v1/organizer/activities/a1/registrations", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestPointsRoutes(t *testing.T) {
	l := &stubLedger{}
	r := newRouter(&stubRegistration{}, &stubPoints{}, l, &stubCallbacks{})

	w := do(r, http.MethodGet, "/api/v1/points", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[{"points":100,"value":100}]`, string(decode(t, w).Data))

	w = do(r, http.MethodGet, "/api/v1/points/balance", "", "")
	require.JSONEq(t, `{"memberId":"m1","points":420}`, string(decode(t, w).Data))

	w = do(r, http.MethodGet, "/api/v1/points/records?from=20&size=10&record_type=applyAct&activity_id=a1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "m1", l.req.MemberID)
	require.Equal(t, 20, l.req.From)
	require.Equal(t, 10, l.req.Size)
	require.Len(t, l.req.Filters, 2)

	w = do(r, http.MethodGet, "/api/v1/points/records?record_type=bonus", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodGet, "/api/v1/points/records?size=-1", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/points/purchase", "application/json", `{"pointsPlan":{"value":500}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var trade newebpay.Trade
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &trade))
	require.Equal(t, "500", trade.MerchantOrderNo)
	require.Equal(t, "DEF", trade.TradeSha)

	w = do(r, http.MethodGet, "/api/v1/points/orders/2025060501", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(decode(t, w).Data), `"status":"pending"`)
}

func TestPurchase_PlanNotFound(t *testing.T) {
	r := newRouter(&stubRegistration{}, &stubPoints{err: pointsorder.ErrPlanNotFound}, &stubLedger{}, &stubCallbacks{})
	w := do(r, http.MethodPost, "/api/v1/points/purchase", "application/json", `{"pointsPlan":{"value":7}}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewebPayNotify(t *testing.T) {
	form := url.Values{"Status": {"SUCCESS"}, "TradeInfo": {"cafe"}, "TradeSha": {"2025060501"}}.Encode()

	r := newRouter(&stubRegistration{}, &stubPoints{}, &stubLedger{}, &stubCallbacks{})
	w := do(r, http.MethodPost, "/api/v1/points/newebpay-notify", "application/x-www-form-urlencoded", form)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"merchantOrderNo":"2025060501","outcome":"completed"}`, string(decode(t, w).Data))

	w = do(r, http.MethodPost, "/api/v1/points/newebpay-notify", "application/x-www-form-urlencoded", "Status=SUCCESS")
	require.Equal(t, http.StatusBadRequest, w.Code)

	r = newRouter(&stubRegistration{}, &stubPoints{}, &stubLedger{}, &stubCallbacks{notifyErr: pointsorder.ErrUnknownOrder})
	w = do(r, http.MethodPost, "/api/v1/points/newebpay-notify", "application/x-www-form-urlencoded", form)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewebPayReturn_Redirects(t *testing.T) {
	form := url.Values{"TradeInfo": {"cafe"}, "TradeSha": {"2025060501"}}.Encode()

	r := newRouter(&stubRegistration{}, &stubPoints{}, &stubLedger{}, &stubCallbacks{})
	w := do(r, http.MethodPost, "/api/v1/points/newebpay-return", "application/x-www-form-urlencoded", form)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://app.example.com/result?status=success&merchantOrderNo=2025060501", w.Header().Get("Location"))

	r = newRouter(&stubRegistration{}, &stubPoints{}, &stubLedger{}, &stubCallbacks{returnErr: newebpay.ErrTradeShaMismatch})
	w = do(r, http.MethodPost, "/api/v1/points/newebpay-return", "application/x-www-form-urlencoded", form)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://app.example.com/result?status=failed&merchantOrderNo=", w.Header().Get("Location"))
}
