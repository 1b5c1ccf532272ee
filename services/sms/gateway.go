package smssvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/campus/core"
)

var (
	messagingEndpoint = "/version1/messaging"

	sendFunc = rest.SendWithContext // mockable
)

type (
	// gatewayService sends text messages through an Africa's Talking compatible HTTP API.
	gatewayService struct {
		baseURL  string
		apiKey   string
		username string
		senderID string
		tmpl     core.ContextData
	}

	gatewayRecipient struct {
		Number     string `json:"number"`
		Status     string `json:"status"`
		StatusCode int    `json:"statusCode"`
	}

	gatewayResponse struct {
		SMSMessageData struct {
			Message    string             `json:"Message"`
			Recipients []gatewayRecipient `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
)

var _ core.SMSService = (*gatewayService)(nil)

func NewGatewayService(conf *core.Config) core.SMSService {
	return &gatewayService{
		baseURL:  conf.SMS.BaseURL,
		apiKey:   conf.SMS.APIKey,
		username: conf.SMS.Username,
		senderID: conf.SMS.SenderID,
		tmpl:     core.ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL},
	}
}

func (svc *gatewayService) Send(ctx context.Context, msg *core.SMSMessage) error {
	if err := prepare(msg, svc.tmpl); err != nil {
		return err
	}

	form := make(url.Values)
	form.Set("username", svc.username)
	form.Set("to", msg.To)
	form.Set("message", msg.Content)
	if svc.senderID != "" {
		form.Set("from", svc.senderID)
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: svc.baseURL + messagingEndpoint,
		Headers: map[string]string{
			"apiKey":       svc.apiKey,
			"Accept":       "application/json",
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	}

	res, err := sendFunc(ctx, req)
	if err != nil {
		return errors.Wrap(err, "calling sms gateway")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sms gateway status: %d - body: %s", res.StatusCode, res.Body)
	}

	var body gatewayResponse
	if err = json.Unmarshal([]byte(res.Body), &body); err != nil {
		return errors.Wrap(err, "decoding sms gateway response")
	}
	for _, r := range body.SMSMessageData.Recipients {
		// 100: processed, 101: sent, 102: queued
		if r.StatusCode < 100 || r.StatusCode > 102 {
			return errors.Errorf("sms to %s rejected: %s", r.Number, r.Status)
		}
	}
	if len(body.SMSMessageData.Recipients) == 0 {
		return errors.Errorf("sms not accepted: %s", body.SMSMessageData.Message)
	}
	return nil
}
