package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/chatbot"
)

type chatApi struct {
	svc      *chatbot.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt, rateLimit echo.MiddlewareFunc, svc *chatbot.Service, validate *validator.Validate) {
	api := chatApi{svc: svc, validate: validate}

	cg := g.Group("/chat", jwt)
	cg.POST("", api.chat, rateLimit)
	cg.GET("/history", api.history)
}

// Handlers

func (api *chatApi) chat(ctx echo.Context) error {
	var data ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	caller := claims.Caller()

	res, err := api.svc.ProcessMessage(ctx.Request().Context(), chatbot.RequestContext{
		CallerID:  caller.ID,
		Role:      caller.Role,
		SessionID: data.SessionID,
	}, data.Message)
	if err != nil {
		return errors.Wrap(err, "processing chat message")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *chatApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	turns, err := api.svc.History(ctx.Request().Context(), claims.Subject, queryInt(ctx, "limit", 20))
	if err != nil {
		return errors.Wrap(err, "querying chat history")
	}
	return ctx.JSON(http.StatusOK, turns)
}
