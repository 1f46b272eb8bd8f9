package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shuttlepoint/server/pkg/errs"
	"github.com/shuttlepoint/server/pkg/logctx"
	"github.com/shuttlepoint/server/pkg/response"
)

var kindToCode = map[errs.Kind]response.APIResponseCode{
	errs.KindValidation:   response.APIResponseCodeBadRequest,
	errs.KindIntegration:  response.APIResponseCodeBadRequest,
	errs.KindUnauthorized: response.APIResponseCodeUnauthorized,
	errs.KindNotFound:     response.APIResponseCodeNotFound,
	errs.KindConflict:     response.APIResponseCodeConflict,
	errs.KindInternal:     response.APIResponseCodeError,
}

// writeError answers with the status of err's kind. Internal errors are
// logged and their text is not sent to the client.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	kind := errs.KindOf(err)
	_ = c.Error(err)
	msg := err.Error()
	if kind == errs.KindInternal {
		logctx.FromGin(c, log).Errorw("request failed", "path", c.FullPath(), "err", err)
		msg = "internal error"
	}
	c.JSON(kind.HTTPStatus(), response.ErrorT[any](kindToCode[kind], msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(errs.KindValidation.HTTPStatus(), response.ErrorT[any](response.APIResponseCodeBadRequest, msg))
}
