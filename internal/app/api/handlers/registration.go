package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/shuttlepoint/server/internal/app/api/middleware"
	"github.com/shuttlepoint/server/internal/app/service/registration"
	"github.com/shuttlepoint/server/pkg/response"
)

type RegistrationService interface {
	Register(ctx context.Context, memberID string, req *registration.RegisterRequest) (*registration.Result, error)
	UpdateCount(ctx context.Context, memberID string, req *registration.UpdateCountRequest) (*registration.Result, error)
	Cancel(ctx context.Context, memberID, activityID string) (*registration.Result, error)
	Suspend(ctx context.Context, organizerID, activityID string) (*registration.SuspendResult, error)
	Roster(ctx context.Context, organizerID, activityID string) ([]*registration.RosterEntry, error)
}

type registrationResp struct {
	RegistrationID string `json:"registrationId"`
	Changed        *bool  `json:"changed,omitempty"`
}

// @Summary      Register for an activity
// @Description  Books participantCount seats and moves seats x points from the member to the organizer.
// @Tags         Registration
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body registration.RegisterRequest true "Registration request"
// @Success      201  {object}  handlers.RespRegistration
// @Failure      400  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/activity/registration [post]
func ApiRegister(svc RegistrationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registration.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.Register(c.Request.Context(), mw.MemberID(c), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, response.OKT(registrationResp{RegistrationID: res.Registration.ID}))
	}
}

// @Summary      Change seat count
// @Description  Moves only the seat and points difference. An unchanged count is a no-op with changed=false.
// @Tags         Registration
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body registration.UpdateCountRequest true "New participant count"
// @Success      200  {object}  handlers.RespRegistration
// @Failure      400  {object}  handlers.RespError
// @Router       /api/v1/activity/registration [patch]
func ApiUpdateRegistration(svc RegistrationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registration.UpdateCountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.UpdateCount(c.Request.Context(), mw.MemberID(c), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		changed := res.Changed
		c.JSON(http.StatusOK, response.OKT(registrationResp{RegistrationID: res.Registration.ID, Changed: &changed}))
	}
}

// @Summary      Cancel a registration
// @Description  Releases the seats and refunds the member (cancelAct).
// @Tags         Registration
// @Produce      json
// @Security     BearerAuth
// @Param        activityId path string true "Activity ID"
// @Success      200  {object}  handlers.RespRegistration
// @Failure      404  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/activity/registration/{activityId} [delete]
func ApiCancelRegistration(svc RegistrationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Cancel(c.Request.Context(), mw.MemberID(c), c.Param("activityId"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(registrationResp{RegistrationID: res.Registration.ID}))
	}
}

// @Summary      Suspend an activity
// @Description  Organizer only. Refunds every registered member (suspendAct) and frees all seats.
// @Tags         Organizer
// @Produce      json
// @Security     BearerAuth
// @Param        activityId path string true "Activity ID"
// @Success      200  {object}  handlers.RespSuspend
// @Failure      401  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/organizer/activity/{activityId}/suspend [post]
func ApiSuspendActivity(svc RegistrationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Suspend(c.Request.Context(), mw.MemberID(c), c.Param("activityId"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Activity roster
// @Description  Organizer only. Lists registrations with their points and refunds.
// @Tags         Organizer
// @Produce      json
// @Security     BearerAuth
// @Param        activityId path string true "Activity ID"
// @Success      200  {object}  handlers.RespRoster
// @Failure      401  {object}  handlers.RespError
// @Router       /api/v1/organizer/activities/{activityId}/registrations [get]
func ApiActivityRoster(svc RegistrationService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Roster(c.Request.Context(), mw.MemberID(c), c.Param("activityId"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// RegisterRegistrationRoutes mounts member and organizer routes. r must
// already require member auth.
func RegisterRegistrationRoutes(r gin.IRouter, svc RegistrationService, log *zap.SugaredLogger) {
	reg := r.Group("/activity/registration")
	reg.POST("", ApiRegister(svc, log))
	reg.PATCH("", ApiUpdateRegistration(svc, log))
	reg.DELETE("/:activityId", ApiCancelRegistration(svc, log))

	org := r.Group("/organizer")
	org.POST("/activity/:activityId/suspend", ApiSuspendActivity(svc, log))
	org.GET("/activities/:activityId/registrations", ApiActivityRoster(svc, log))
}
