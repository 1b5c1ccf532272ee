package emailsvc

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/campus/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	sendFunc = rest.SendWithContext // mockable
)

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	tmpl       core.ContextData
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config) core.EmailService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		tmpl:       core.ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL},
	}
}

func (svc *sendgridService) Send(ctx context.Context, msg *core.EmailMessage) error {
	if !msg.HasContent() {
		if err := msg.Render(svc.tmpl); err != nil {
			return errors.Wrap(err, "rendering email")
		}
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return errors.New("email has no recipients or no content")
	}

	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(*msg))

	res, err := sendFunc(ctx, req)
	if err != nil {
		return errors.Wrap(err, "calling sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}

	m := sgmail.NewV3Mail()
	if msg.From != nil {
		m.SetFrom(getSGEmail(*msg.From))
	} else {
		m.SetFrom(svc.from)
	}
	m.AddPersonalizations(p)

	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}
