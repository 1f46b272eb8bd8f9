package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shuttlepoint/server/internal/app/service/pointsorder"
	"github.com/shuttlepoint/server/internal/app/service/reconciler"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/response"
)

type GatewayCallbackService interface {
	HandleNotify(ctx context.Context, cb *newebpay.Callback) (*pointsorder.NotifyResult, error)
	ResolveReturn(ctx context.Context, cb *newebpay.Callback) (string, error)
}

type ReturnReconciler interface {
	Await(ctx context.Context, merchantOrderNo string) (*reconciler.Outcome, error)
	RedirectURL(o *reconciler.Outcome) string
}

type notifyResp struct {
	MerchantOrderNo string                    `json:"merchantOrderNo"`
	Outcome         pointsorder.NotifyOutcome `json:"outcome"`
}

// @Summary      NewebPay notify
// @Description  Server-to-server payment result. Redeliveries are acknowledged without crediting twice.
// @Tags         Webhook
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        Status     formData string true  "Gateway status"
// @Param        MerchantID formData string false "Merchant ID"
// @Param        TradeInfo  formData string true  "Encrypted trade info"
// @Param        TradeSha   formData string true  "TradeInfo signature"
// @Success      200  {object}  handlers.RespOK
// @Failure      400  {object}  handlers.RespError
// @Router       /api/v1/points/newebpay-notify [post]
func ApiNewebPayNotify(svc GatewayCallbackService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cb newebpay.Callback
		if err := c.ShouldBind(&cb); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.HandleNotify(c.Request.Context(), &cb)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(notifyResp{MerchantOrderNo: res.Order.MerchantOrderNo, Outcome: res.Outcome}))
	}
}

// @Summary      NewebPay return
// @Description  Browser redirect-back. Waits for the notify to settle the order, then redirects to the frontend result page.
// @Tags         Webhook
// @Accept       x-www-form-urlencoded
// @Param        TradeInfo formData string true "Encrypted trade info"
// @Param        TradeSha  formData string true "TradeInfo signature"
// @Success      302
// @Router       /api/v1/points/newebpay-return [post]
func ApiNewebPayReturn(svc GatewayCallbackService, rec ReturnReconciler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var cb newebpay.Callback
		out := &reconciler.Outcome{Status: reconciler.StatusFailed}
		if err := c.ShouldBind(&cb); err != nil {
			logctx.FromGin(c, log).Warnw("unreadable gateway return", "err", err)
			c.Redirect(http.StatusFound, rec.RedirectURL(out))
			return
		}
		no, err := svc.ResolveReturn(ctx, &cb)
		if err != nil {
			c.Redirect(http.StatusFound, rec.RedirectURL(out))
			return
		}
		out, err = rec.Await(ctx, no)
		if err != nil {
			logctx.FromGin(c, log).Errorw("return reconciliation failed", "merchant_order_no", no, "err", err)
			out = &reconciler.Outcome{Status: reconciler.StatusTimeout, MerchantOrderNo: no}
		}
		c.Redirect(http.StatusFound, rec.RedirectURL(out))
	}
}

func RegisterNewebPayRoutes(r gin.IRouter, svc GatewayCallbackService, rec ReturnReconciler, log *zap.SugaredLogger) {
	p := r.Group("/points")
	p.POST("/newebpay-notify", ApiNewebPayNotify(svc, log))
	p.POST("/newebpay-return", ApiNewebPayReturn(svc, rec, log))
}
