package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/notification"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

type (
	ChatRequest struct {
		Message   string `json:"message" validate:"required,max=10000"`
		SessionID string `json:"sessionId" validate:"omitempty,max=64"`
	}

	ScheduleRequest struct {
		Channel   notification.Channel `json:"channel" validate:"required,channel"`
		Recipient string               `json:"recipient" validate:"required,notblank,max=255"`
		Subject   string               `json:"subject" validate:"omitempty,max=255"`
		Body      string               `json:"body" validate:"required,notblank"`
		SendAt    time.Time            `json:"sendAt"`
	}

	SweepResponse struct {
		Processed int `json:"processed"`
	}
)

// queryInt reads a positive int query param, falling back to `def`.
func queryInt(ctx echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(ctx.QueryParam(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func bindLogQuery(ctx echo.Context) (notification.LogQuery, error) {
	var ord Ordering
	ord.Bind(ctx)

	q := notification.LogQuery{
		Recipient: strings.TrimSpace(ctx.QueryParam("recipient")),
		Channel:   notification.Channel(ctx.QueryParam("channel")),
		Limit:     queryInt(ctx, "limit", 100),
		Ordering:  ord.Orderings,
	}
	if q.Channel != "" && !q.Channel.Valid() {
		return q, core.NewValidationError(nil, core.FieldError{Field: "channel", Error: "must be one of: email, sms, in_app"})
	}
	if since := ctx.QueryParam("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return q, core.NewValidationError(nil, core.FieldError{Field: "since", Error: "must be an RFC3339 timestamp"})
		}
		q.Since = t
	}
	return q, nil
}
