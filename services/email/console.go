package emailsvc

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

type consoleService struct {
	defaultFrom   mail.Address
	subjPrefix    string
	tmpl          core.ContextData
	std           *log.Logger
	disableOutput bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService returns an EmailService that prints messages to `std`. Used in development.
func NewConsoleService(conf *core.Config, std *log.Logger) core.EmailService {
	return &consoleService{
		defaultFrom: conf.DefaultFromEmail(),
		subjPrefix:  "[" + conf.AppName + "] ",
		tmpl:        core.ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL},
		std:         std,
	}
}

func (svc *consoleService) Send(_ context.Context, msg *core.EmailMessage) error {
	if !msg.HasContent() {
		if err := msg.Render(svc.tmpl); err != nil {
			return errors.Wrap(err, "rendering email")
		}
	}
	if !msg.HasRecipients() {
		return errors.New("email has no recipients")
	}
	if !msg.HasContent() {
		return errors.New("email has no content")
	}
	body, err := svc.format(*msg)
	if err != nil {
		return err
	}
	if !svc.disableOutput {
		svc.std.Println(body)
	}
	return nil
}

func (svc *consoleService) format(msg core.EmailMessage) (string, error) {
	from := svc.defaultFrom
	if msg.From != nil {
		from = *msg.From
	}
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err = altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock is a silent console service that keeps every sent message. Used in tests.
type ConsoleServiceMock struct {
	consoleService
	mu           sync.Mutex
	sentMessages []core.EmailMessage
	failFor      map[string]bool
}

func NewConsoleServiceMock(conf *core.Config) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{
			defaultFrom:   conf.DefaultFromEmail(),
			subjPrefix:    "[" + conf.AppName + "] ",
			tmpl:          core.ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL},
			disableOutput: true,
		},
		failFor: make(map[string]bool),
	}
}

// FailFor makes every later send to `address` fail.
func (svc *ConsoleServiceMock) FailFor(address string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.failFor[address] = true
}

func (svc *ConsoleServiceMock) Send(ctx context.Context, msg *core.EmailMessage) error {
	svc.mu.Lock()
	for _, to := range msg.To {
		if svc.failFor[to.Address] {
			svc.mu.Unlock()
			return errors.Errorf("delivery to %s refused", to.Address)
		}
	}
	svc.mu.Unlock()

	if err := svc.consoleService.Send(ctx, msg); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sentMessages = append(svc.sentMessages, *msg)
	return nil
}

func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sentMessages...)
}
