package pointsorder

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/shuttlepoint/server/internal/app/service/events"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	notificationlog "github.com/shuttlepoint/server/internal/app/service/notification_log"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/internal/platform/db/dbtest"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/errs"
	"github.com/shuttlepoint/server/pkg/types"
)

const (
	testKey = "12345678901234567890123456789012"
	testIV  = "1234567890123456"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

type seqOrderNo struct {
	mu sync.Mutex
	n  int
}

func (g *seqOrderNo) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "20250605" + strconv.Itoa(g.n)
}

type brokenGateway struct {
	Gateway
}

func (brokenGateway) NewTrade(newebpay.TradeOrder) (*newebpay.Trade, error) {
	return nil, errors.New("cipher unavailable")
}

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	client *newebpay.Client
	ledger *ledger.Service
	notif  *notificationlog.Service
	pub    *recordingPublisher
	logs   *observer.ObservedLogs
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core).Sugar()
	client, err := newebpay.NewClient(newebpay.Config{
		MerchantID: "MS123456",
		HashKey:    testKey,
		HashIV:     testIV,
		Version:    "2.0",
		PaymentURL: "https://ccore.newebpay.com/MPG/mpg_gateway",
		ItemDesc:   "badminton points",
	})
	require.NoError(t, err)
	cfg := &config.Config{PointsPlans: []*types.PointsPlan{
		{Points: 100, Value: 100},
		{Points: 550, Value: 500},
	}}
	l := ledger.New(gdb, log, nil)
	notif := notificationlog.New(gdb, log)
	pub := &recordingPublisher{}
	f := &fixture{t: t, db: gdb, client: client, ledger: l, notif: notif, pub: pub, logs: logs}
	f.svc = New(gdb, log, cfg, client, l, notif, events.New(pub, log), nil, &seqOrderNo{})
	require.NoError(t, f.svc.SeedPlans(context.Background()))
	require.NoError(t, gdb.Create(&models.Member{ID: "m1", Name: "Amy", Email: "amy@example.com"}).Error)
	return f
}

func (f *fixture) callback(status string, result map[string]any) *newebpay.Callback {
	f.t.Helper()
	body, err := json.Marshal(map[string]any{"Status": status, "Message": "msg-" + status, "Result": result})
	require.NoError(f.t, err)
	enc, err := f.client.Encrypt(string(body))
	require.NoError(f.t, err)
	return &newebpay.Callback{
		Status:     status,
		MerchantID: "MS123456",
		Version:    "2.0",
		TradeInfo:  enc,
		TradeSha:   f.client.TradeSha(enc),
	}
}

func (f *fixture) purchase(value int64) *newebpay.Trade {
	f.t.Helper()
	req := &PurchaseRequest{}
	req.PointsPlan.Value = value
	trade, err := f.svc.Purchase(context.Background(), "m1", req)
	require.NoError(f.t, err)
	return trade
}

func (f *fixture) balance() int64 {
	f.t.Helper()
	b, err := f.ledger.Balance(context.Background(), "m1")
	require.NoError(f.t, err)
	return b
}

func (f *fixture) flush() {
	f.t.Helper()
	require.NoError(f.t, f.notif.Flush(context.Background()))
}

func paid(no string, amt int64) map[string]any {
	return map[string]any{
		"MerchantID":      "MS123456",
		"Amt":             amt,
		"TradeNo":         "T" + no,
		"MerchantOrderNo": no,
		"PaymentType":     "CREDIT",
		"PayTime":         "2025-06-0523:01:54",
	}
}

func TestListPlans_SeededAndIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SeedPlans(context.Background()))

	plans, err := f.svc.ListPlans(context.Background())
	require.NoError(t, err)
	require.Equal(t, []types.PointsPlan{{Points: 100, Value: 100}, {Points: 550, Value: 500}}, plans)
}

func TestPurchase_CreatesPendingOrderAndHandshake(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(500)

	require.Equal(t, "MS123456", trade.MerchantID)
	require.True(t, f.client.VerifyTradeSha(trade.TradeInfo, trade.TradeSha))
	plain, err := f.client.Decrypt(trade.TradeInfo)
	require.NoError(t, err)
	require.Contains(t, plain, "Amt=500")
	require.Contains(t, plain, "MerchantOrderNo="+trade.MerchantOrderNo)

	order, err := f.svc.GetMemberOrder(context.Background(), "m1", trade.MerchantOrderNo)
	require.NoError(t, err)
	require.Equal(t, types.PointsOrderStatusPending, order.Status)
	require.EqualValues(t, 550, order.Points)
	require.EqualValues(t, 500, order.Amount)
	require.Zero(t, f.balance())
}

func TestPurchase_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Purchase(context.Background(), "m1", &PurchaseRequest{})
	require.ErrorIs(t, err, ErrInvalidPlan)

	req := &PurchaseRequest{}
	req.PointsPlan.Value = 999
	_, err = f.svc.Purchase(context.Background(), "m1", req)
	require.ErrorIs(t, err, ErrPlanNotFound)
	require.Equal(t, errs.KindNotFound, errs.KindOf(err))

	req.PointsPlan.Value = 100
	_, err = f.svc.Purchase(context.Background(), "ghost", req)
	require.ErrorIs(t, err, ErrMemberNotFound)

	var n int64
	require.NoError(t, f.db.Model(&models.PointsOrder{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestPurchase_HandshakeFailureMarksOrderFailed(t *testing.T) {
	f := newFixture(t)
	f.svc.gateway = brokenGateway{Gateway: f.client}

	req := &PurchaseRequest{}
	req.PointsPlan.Value = 100
	_, err := f.svc.Purchase(context.Background(), "m1", req)
	require.Error(t, err)

	var order models.PointsOrder
	require.NoError(t, f.db.Take(&order).Error)
	require.Equal(t, types.PointsOrderStatusFailed, order.Status)
	require.NotNil(t, order.FailReason)
	require.Contains(t, *order.FailReason, "cipher unavailable")
}

func TestGetMemberOrder_HidesOtherMembersOrders(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(100)

	_, err := f.svc.GetMemberOrder(context.Background(), "m2", trade.MerchantOrderNo)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestHandleNotify_SuccessCreditsOnce(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(500)
	cb := f.callback(newebpay.StatusSuccess, paid(trade.MerchantOrderNo, 500))

	res, err := f.svc.HandleNotify(context.Background(), cb)
	require.NoError(t, err)
	require.Equal(t, NotifyOutcomeCompleted, res.Outcome)
	require.Equal(t, types.PointsOrderStatusCompleted, res.Order.Status)
	require.EqualValues(t, 550, f.balance())

	again, err := f.svc.HandleNotify(context.Background(), cb)
	require.NoError(t, err)
	require.Equal(t, NotifyOutcomeDuplicate, again.Outcome)
	require.EqualValues(t, 550, f.balance())

	var records []*models.PointsRecord
	require.NoError(t, f.db.Where("member_id = ?", "m1").Find(&records).Error)
	require.Len(t, records, 1)
	require.Equal(t, types.PointsRecordTypeAddPoint, records[0].RecordType)
	require.NotNil(t, records[0].PointsOrderID)
	require.Equal(t, res.Order.ID, *records[0].PointsOrderID)

	order, err := f.svc.GetOrder(context.Background(), trade.MerchantOrderNo)
	require.NoError(t, err)
	require.Equal(t, "T"+trade.MerchantOrderNo, *order.TradeNo)
	require.NotNil(t, order.PayTime)
	want := time.Date(2025, 6, 5, 23, 1, 54, 0, f.client.Location())
	require.True(t, want.Equal(*order.PayTime))

	f.flush()
	logs, err := f.notif.ListByMerchantOrderNo(context.Background(), trade.MerchantOrderNo)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		require.Equal(t, models.PaymentNotificationLogStatusHandled, l.Status)
	}
	require.Equal(t, []string{events.KeyPointsPurchased}, f.pub.keys)
}

func TestHandleNotify_ConcurrentDeliveriesCreditOnce(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(100)
	cb := f.callback(newebpay.StatusSuccess, paid(trade.MerchantOrderNo, 100))

	var wg sync.WaitGroup
	errc := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.HandleNotify(context.Background(), cb)
			errc <- err
		}()
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		require.NoError(t, err)
	}
	f.flush()

	require.EqualValues(t, 100, f.balance())
	var n int64
	require.NoError(t, f.db.Model(&models.PointsRecord{}).Where("member_id = ?", "m1").Count(&n).Error)
	require.EqualValues(t, 1, n)
}

func TestHandleNotify_UnknownOrderIsRejectedAndLogged(t *testing.T) {
	f := newFixture(t)
	cb := f.callback(newebpay.StatusSuccess, paid("1234567890", 100))

	_, err := f.svc.HandleNotify(context.Background(), cb)
	require.ErrorIs(t, err, ErrUnknownOrder)
	require.Equal(t, errs.KindIntegration, errs.KindOf(err))
	require.Zero(t, f.balance())

	entries := f.logs.FilterMessage("gateway notify failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "1234567890", entries[0].ContextMap()["merchant_order_no"])

	f.flush()
	logs, err := f.notif.ListByMerchantOrderNo(context.Background(), "1234567890")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, models.PaymentNotificationLogStatusHandleFailed, logs[0].Status)
}

func TestHandleNotify_TamperedPayloadRejected(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(100)
	cb := f.callback(newebpay.StatusSuccess, paid(trade.MerchantOrderNo, 100))
	cb.TradeSha = "00"

	_, err := f.svc.HandleNotify(context.Background(), cb)
	require.ErrorIs(t, err, newebpay.ErrTradeShaMismatch)
	f.flush()

	order, err := f.svc.GetOrder(context.Background(), trade.MerchantOrderNo)
	require.NoError(t, err)
	require.Equal(t, types.PointsOrderStatusPending, order.Status)
}

func TestHandleNotify_AmountMismatchLeavesOrderPending(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(500)
	cb := f.callback(newebpay.StatusSuccess, paid(trade.MerchantOrderNo, 1))

	_, err := f.svc.HandleNotify(context.Background(), cb)
	require.ErrorIs(t, err, ErrAmountMismatch)
	f.flush()

	order, err := f.svc.GetOrder(context.Background(), trade.MerchantOrderNo)
	require.NoError(t, err)
	require.Equal(t, types.PointsOrderStatusPending, order.Status)
	require.Zero(t, f.balance())
}

func TestHandleNotify_FailedPaymentMarksOrderFailed(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(100)
	cb := f.callback("MPG03009", map[string]any{"MerchantID": "MS123456", "MerchantOrderNo": trade.MerchantOrderNo, "Amt": 100})

	res, err := f.svc.HandleNotify(context.Background(), cb)
	require.NoError(t, err)
	require.Equal(t, NotifyOutcomeFailed, res.Outcome)
	require.Equal(t, "msg-MPG03009", *res.Order.FailReason)
	require.Zero(t, f.balance())

	// a late success for the same order must not resurrect it
	late, err := f.svc.HandleNotify(context.Background(), f.callback(newebpay.StatusSuccess, paid(trade.MerchantOrderNo, 100)))
	require.NoError(t, err)
	require.Equal(t, NotifyOutcomeDuplicate, late.Outcome)
	require.Equal(t, types.PointsOrderStatusFailed, late.Order.Status)
	require.Zero(t, f.balance())
	f.flush()
	require.Equal(t, []string{events.KeyPointsPurchaseFailed}, f.pub.keys)
}

func TestHandleNotify_FormStatusCannotOverrideSignedStatus(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(500)

	forgedSuccess := f.callback("FAILED", paid(trade.MerchantOrderNo, 500))
	forgedSuccess.Status = newebpay.StatusSuccess
	_, err := f.svc.HandleNotify(context.Background(), forgedSuccess)
	require.ErrorIs(t, err, newebpay.ErrMalformedTradeInfo)
	require.Equal(t, 400, errs.KindOf(err).HTTPStatus())

	forgedFailure := f.callback(newebpay.StatusSuccess, paid(trade.MerchantOrderNo, 500))
	forgedFailure.Status = "FAILED"
	_, err = f.svc.HandleNotify(context.Background(), forgedFailure)
	require.ErrorIs(t, err, newebpay.ErrMalformedTradeInfo)
	f.flush()

	order, err := f.svc.GetOrder(context.Background(), trade.MerchantOrderNo)
	require.NoError(t, err)
	require.Equal(t, types.PointsOrderStatusPending, order.Status)
	require.Zero(t, f.balance())
	require.Empty(t, f.pub.keys)
}

func TestHandleNotify_SignedFailureWithoutFormStatus(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(100)
	cb := f.callback("FAILED", paid(trade.MerchantOrderNo, 100))
	cb.Status = ""

	res, err := f.svc.HandleNotify(context.Background(), cb)
	require.NoError(t, err)
	require.Equal(t, NotifyOutcomeFailed, res.Outcome)
	require.Equal(t, "msg-FAILED", *res.Order.FailReason)
	require.Zero(t, f.balance())
}

func TestResolveReturn(t *testing.T) {
	f := newFixture(t)
	trade := f.purchase(100)

	no, err := f.svc.ResolveReturn(context.Background(), f.callback(newebpay.StatusSuccess, paid(trade.MerchantOrderNo, 100)))
	require.NoError(t, err)
	require.Equal(t, trade.MerchantOrderNo, no)

	order, err := f.svc.GetOrder(context.Background(), trade.MerchantOrderNo)
	require.NoError(t, err)
	require.Equal(t, types.PointsOrderStatusPending, order.Status)

	bad := f.callback(newebpay.StatusSuccess, paid(trade.MerchantOrderNo, 100))
	bad.TradeInfo = bad.TradeInfo[:len(bad.TradeInfo)-2] + "00"
	_, err = f.svc.ResolveReturn(context.Background(), bad)
	require.Error(t, err)

	f.flush()
	logs, err := f.notif.ListByMerchantOrderNo(context.Background(), trade.MerchantOrderNo)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, models.PaymentNotificationLogKindReturn, logs[0].Kind)
}
