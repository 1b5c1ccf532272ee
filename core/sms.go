package core

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

type (
	SMSMessage struct {
		To      string // normalized: optional leading `+` then digits
		BodyStr string

		TemplateName string
		TemplateData interface{}
		Content      string
	}

	// SMSService is any service that can send text messages
	SMSService interface {
		Send(ctx context.Context, msg *SMSMessage) error
	}
)

// Render fills Content from BodyStr or from the named sms template.
func (m *SMSMessage) Render(data ContextData) error {
	if m.BodyStr != "" {
		m.Content = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}
	data.Data = m.TemplateData
	text, found, err := smsTemplates.renderText(m.TemplateName, data)
	if err != nil {
		return err
	}
	if !found {
		return errors.Errorf("sms template %q not found", m.TemplateName)
	}
	m.Content = strings.TrimSpace(text)
	return nil
}

func (m *SMSMessage) HasRecipient() bool { return m.To != "" }
func (m *SMSMessage) HasContent() bool   { return m.Content != "" }

// NormalizePhone keeps a leading `+` and the digits of `s`; everything else is dropped.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if out := b.String(); out != "+" {
		return out
	}
	return ""
}
