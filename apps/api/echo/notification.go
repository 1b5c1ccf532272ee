package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/notification"
)

var (
	errSchedulingFailed = errors.New("scheduling notification failed")
	errDirectoryMissing = errors.New("no contact directory configured")
)

type notificationApi struct {
	svc       *notification.Dispatcher
	directory notification.Directory
	validate  *validator.Validate
}

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *notification.Dispatcher,
	directory notification.Directory,
	validate *validator.Validate,
) {
	api := notificationApi{
		svc:       svc,
		directory: directory,
		validate:  validate,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.POST("/:id/read", api.markRead)

	// admin endpoints
	ng.POST("/schedule", api.schedule, adminMiddleware())
	ng.POST("/sweep", api.sweep, adminMiddleware())
	ng.GET("/log", api.queryLog, adminMiddleware())

	g.POST("/announcements", api.announce, jwt, adminMiddleware())
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	unreadOnly := strings.EqualFold(ctx.QueryParam("unread"), "true")
	ns, err := api.svc.InAppFor(ctx.Request().Context(), claims.Subject, unreadOnly, queryInt(ctx, "limit", 50))
	if err != nil {
		return errors.Wrap(err, "querying in-app notifications")
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err = api.svc.MarkRead(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) schedule(ctx echo.Context) error {
	var data ScheduleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScheduleRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	req, ok := api.svc.ScheduleNotification(ctx.Request().Context(), data.Channel, data.Recipient, data.Subject, data.Body, data.SendAt)
	if !ok {
		return errSchedulingFailed
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *notificationApi) sweep(ctx echo.Context) error {
	processed := api.svc.ProcessScheduledNotifications(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, SweepResponse{Processed: processed})
}

func (api *notificationApi) queryLog(ctx echo.Context) error {
	q, err := bindLogQuery(ctx)
	if err != nil {
		return err
	}

	entries, err := api.svc.QueryLog(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying notification log")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *notificationApi) announce(ctx echo.Context) error {
	var data notification.Announcement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Announcement")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if api.directory == nil {
		return errDirectoryMissing
	}

	recipients, err := api.directory.Contacts(ctx.Request().Context(), data.Roles)
	if err != nil {
		return errors.Wrap(err, "resolving announcement recipients")
	}
	res := api.svc.BroadcastAnnouncement(ctx.Request().Context(), data, recipients)
	return ctx.JSON(http.StatusOK, res)
}
