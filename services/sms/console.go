package smssvc

import (
	"context"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

type consoleService struct {
	senderID      string
	tmpl          core.ContextData
	std           *log.Logger
	disableOutput bool
}

var _ core.SMSService = (*consoleService)(nil)

// NewConsoleService returns an SMSService that prints messages to `std`. Used in development.
func NewConsoleService(conf *core.Config, std *log.Logger) core.SMSService {
	return &consoleService{
		senderID: conf.SMS.SenderID,
		tmpl:     core.ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL},
		std:      std,
	}
}

func (svc *consoleService) Send(_ context.Context, msg *core.SMSMessage) error {
	if err := prepare(msg, svc.tmpl); err != nil {
		return err
	}
	if !svc.disableOutput {
		svc.std.Printf("SMS from %q to %s:\n%s\n", svc.senderID, msg.To, msg.Content)
	}
	return nil
}

// prepare renders `msg` when needed and checks it can be sent.
func prepare(msg *core.SMSMessage, data core.ContextData) error {
	msg.To = core.NormalizePhone(msg.To)
	if !msg.HasContent() {
		if err := msg.Render(data); err != nil {
			return errors.Wrap(err, "rendering sms")
		}
	}
	if !msg.HasRecipient() {
		return errors.New("sms has no recipient")
	}
	if !msg.HasContent() {
		return errors.New("sms has no content")
	}
	return nil
}

// ServiceMock keeps every sent message instead of printing it. Used in tests.
type ServiceMock struct {
	consoleService
	mu           sync.Mutex
	sentMessages []core.SMSMessage
	failAll      bool
}

func NewServiceMock(conf *core.Config) *ServiceMock {
	return &ServiceMock{
		consoleService: consoleService{
			senderID:      conf.SMS.SenderID,
			tmpl:          core.ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL},
			disableOutput: true,
		},
	}
}

// FailAll makes every later send fail (or succeed again with `false`).
func (svc *ServiceMock) FailAll(fail bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.failAll = fail
}

func (svc *ServiceMock) Send(ctx context.Context, msg *core.SMSMessage) error {
	svc.mu.Lock()
	fail := svc.failAll
	svc.mu.Unlock()
	if fail {
		return errors.New("sms gateway unavailable")
	}

	if err := svc.consoleService.Send(ctx, msg); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sentMessages = append(svc.sentMessages, *msg)
	return nil
}

func (svc *ServiceMock) SentMessages() []core.SMSMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.SMSMessage(nil), svc.sentMessages...)
}
