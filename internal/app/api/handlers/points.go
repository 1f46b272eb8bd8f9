package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"github.com/samber/lo"

	mw "github.com/shuttlepoint/server/internal/app/api/middleware"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/app/service/pointsorder"
	"github.com/shuttlepoint/server/internal/models"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/response"
	"github.com/shuttlepoint/server/pkg/types"
)

type PointsService interface {
	ListPlans(ctx context.Context) ([]types.PointsPlan, error)
	Purchase(ctx context.Context, memberID string, req *pointsorder.PurchaseRequest) (*newebpay.Trade, error)
	GetMemberOrder(ctx context.Context, memberID, merchantOrderNo string) (*models.PointsOrder, error)
}

type LedgerReader interface {
	Balance(ctx context.Context, memberID string) (int64, error)
	ListRecords(ctx context.Context, req *ledger.ListRecordsRequest) (*ledger.ListRecordsResponse, error)
}

type balanceResp struct {
	MemberID string `json:"memberId"`
	Points   int64  `json:"points"`
}

type pointsOrderResp struct {
	MerchantOrderNo string                  `json:"merchantOrderNo"`
	Status          types.PointsOrderStatus `json:"status"`
	Points          int64                   `json:"points"`
	Amount          int64                   `json:"amount"`
	TradeNo         string                  `json:"tradeNo,omitempty"`
	PayTime         *time.Time              `json:"payTime,omitempty"`
	FailReason      string                  `json:"failReason,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
}

func toPointsOrderResp(o *models.PointsOrder) pointsOrderResp {
	return pointsOrderResp{
		MerchantOrderNo: o.MerchantOrderNo,
		Status:          o.Status,
		Points:          o.Points,
		Amount:          o.Amount,
		TradeNo:         lo.FromPtr(o.TradeNo),
		PayTime:         o.PayTime,
		FailReason:      lo.FromPtr(o.FailReason),
		CreatedAt:       o.CreatedAt,
	}
}

// @Summary      Points plans
// @Description  Purchasable points packages ordered by price.
// @Tags         Points
// @Produce      json
// @Success      200  {object}  handlers.RespPointsPlans
// @Router       /api/v1/points [get]
func ApiListPointsPlans(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := svc.ListPlans(c.Request.Context())
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

// @Summary      Points balance
// @Tags         Points
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespBalance
// @Failure      404  {object}  handlers.RespError
// @Router       /api/v1/points/balance [get]
func ApiPointsBalance(l LedgerReader, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := mw.MemberID(c)
		bal, err := l.Balance(c.Request.Context(), memberID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(balanceResp{MemberID: memberID, Points: bal}))
	}
}

// @Summary      Points history
// @Description  The caller's ledger rows, newest first.
// @Tags         Points
// @Produce      json
// @Security     BearerAuth
// @Param        from         query int    false "Offset"
// @Param        size         query int    false "Page size (max 100)"
// @Param        record_type  query string false "addPoint | applyAct | cancelAct | suspendAct | receiveAct"
// @Param        activity_id  query string false "Activity ID"
// @Success      200  {object}  handlers.RespPointsRecords
// @Failure      400  {object}  handlers.RespError
// @Router       /api/v1/points/records [get]
func ApiPointsRecords(l LedgerReader, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &ledger.ListRecordsRequest{MemberID: mw.MemberID(c)}
		if v := c.Query("from"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				badRequest(c, "invalid from")
				return
			}
			req.From = n
		}
		if v := c.Query("size"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				badRequest(c, "invalid size")
				return
			}
			req.Size = n
		}
		if v := c.Query("record_type"); v != "" {
			if !types.PointsRecordType(v).Valid() {
				badRequest(c, "invalid record_type")
				return
			}
			req.Filters = append(req.Filters, &types.CommonFilter{Field: "record_type", Operator: types.CommonFilterOperatorEq, Values: []any{v}})
		}
		if v := c.Query("activity_id"); v != "" {
			req.Filters = append(req.Filters, &types.CommonFilter{Field: "activity_id", Operator: types.CommonFilterOperatorEq, Values: []any{v}})
		}
		res, err := l.ListRecords(c.Request.Context(), req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Purchase points
// @Description  Creates a pending order and returns the signed NewebPay MPG form fields.
// @Tags         Points
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body pointsorder.PurchaseRequest true "Plan to buy, identified by price"
// @Success      200  {object}  handlers.RespTrade
// @Failure      404  {object}  handlers.RespError
// @Router       /api/v1/points/purchase [post]
func ApiPurchasePoints(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pointsorder.PurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		trade, err := svc.Purchase(c.Request.Context(), mw.MemberID(c), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(trade))
	}
}

// @Summary      Points order status
// @Tags         Points
// @Produce      json
// @Security     BearerAuth
// @Param        merchantOrderNo path string true "Merchant order number"
// @Success      200  {object}  handlers.RespPointsOrder
// @Failure      404  {object}  handlers.RespError
// @Router       /api/v1/points/orders/{merchantOrderNo} [get]
func ApiPointsOrder(svc PointsService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.GetMemberOrder(c.Request.Context(), mw.MemberID(c), c.Param("merchantOrderNo"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(toPointsOrderResp(o)))
	}
}

// RegisterPointsRoutes mounts the plan catalog on pub and the member routes
// on member, both under /points.
func RegisterPointsRoutes(pub, member gin.IRouter, svc PointsService, l LedgerReader, log *zap.SugaredLogger) {
	pub.GET("/points", ApiListPointsPlans(svc, log))

	p := member.Group("/points")
	p.GET("/balance", ApiPointsBalance(l, log))
	p.GET("/records", ApiPointsRecords(l, log))
	p.POST("/purchase", ApiPurchasePoints(svc, log))
	p.GET("/orders/:merchantOrderNo", ApiPointsOrder(svc, log))
}
