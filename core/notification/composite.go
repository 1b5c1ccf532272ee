package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/campus/core"
)

// template names, shared by the email and sms template dirs
const (
	tmplFeeReminder        = "fee_reminder"
	tmplAssignmentReminder = "assignment_reminder"
	tmplCertificateReady   = "certificate_ready"
	tmplAnnouncement       = "announcement"
)

type (
	// fanout is one message composed for every channel of a recipient.
	fanout struct {
		template string
		subject  string
		data     interface{}
		sms      bool
		title    string
		body     string
		severity Severity
		link     string
	}

	feeReminderData struct {
		Name     string
		Currency string
		Amount   string
		DueDate  string
		Paybill  string
	}

	assignmentReminderData struct {
		Name   string
		Course string
		Title  string
		DueAt  string
		Link   string
	}

	certificateReadyData struct {
		Name        string
		Certificate string
		Collection  string
	}

	announcementData struct {
		Name  string
		Title string
		Body  string
	}
)

// SendFeeReminder notifies `c` of an outstanding fee balance by email, sms and in-app.
func (d *Dispatcher) SendFeeReminder(ctx context.Context, c Contact, due FeeDue) Result {
	currency := due.Currency
	if currency == "" {
		currency = d.fees.Currency
	}
	data := feeReminderData{
		Name:     displayName(c),
		Currency: currency,
		Amount:   core.FormatAmount(due.Amount),
		DueDate:  due.DueDate.Format("2 Jan 2006"),
		Paybill:  d.fees.Paybill,
	}
	return d.fanOut(ctx, []Contact{c}, func(Contact) fanout {
		return fanout{
			template: tmplFeeReminder,
			subject:  "Fee payment reminder",
			data:     data,
			sms:      true,
			title:    "Fee payment reminder",
			body:     fmt.Sprintf("Your fee balance of %s %s is due on %s.", data.Currency, data.Amount, data.DueDate),
			severity: SeverityWarning,
			link:     "/fees/pay",
		}
	})
}

// SendAssignmentReminder notifies every student of `a` by email and in-app.
func (d *Dispatcher) SendAssignmentReminder(ctx context.Context, a Assignment, students []Contact) Result {
	dueAt := a.DueAt.Format("Mon 2 Jan 2006, 15:04")
	return d.fanOut(ctx, students, func(c Contact) fanout {
		return fanout{
			template: tmplAssignmentReminder,
			subject:  "Assignment due: " + a.Title,
			data: assignmentReminderData{
				Name:   displayName(c),
				Course: a.Course,
				Title:  a.Title,
				DueAt:  dueAt,
				Link:   a.Link,
			},
			title:    "Assignment due soon",
			body:     fmt.Sprintf("%q (%s) is due on %s.", a.Title, a.Course, dueAt),
			severity: SeverityInfo,
			link:     a.Link,
		}
	})
}

// SendCertificateReady tells `c` their certificate can be collected, by email, sms and in-app.
func (d *Dispatcher) SendCertificateReady(ctx context.Context, c Contact, cert Certificate) Result {
	data := certificateReadyData{
		Name:        displayName(c),
		Certificate: cert.Name,
		Collection:  cert.Collection,
	}
	return d.fanOut(ctx, []Contact{c}, func(Contact) fanout {
		return fanout{
			template: tmplCertificateReady,
			subject:  "Your certificate is ready",
			data:     data,
			sms:      true,
			title:    "Certificate ready for collection",
			body:     fmt.Sprintf("Your %s is ready for collection at %s.", cert.Name, cert.Collection),
			severity: SeveritySuccess,
			link:     "/certificates",
		}
	})
}

// BroadcastAnnouncement sends `an` to the recipients whose role is in an.Roles (all when empty).
// Sms is only sent when an.SendSMS is set.
func (d *Dispatcher) BroadcastAnnouncement(ctx context.Context, an Announcement, recipients []Contact) Result {
	severity := an.Severity
	if !severity.Valid() {
		severity = SeverityInfo
	}
	return d.fanOut(ctx, filterByRoles(recipients, an.Roles), func(c Contact) fanout {
		return fanout{
			template: tmplAnnouncement,
			subject:  an.Title,
			data:     announcementData{Name: displayName(c), Title: an.Title, Body: an.Body},
			sms:      an.SendSMS,
			title:    an.Title,
			body:     an.Body,
			severity: severity,
			link:     an.ActionLink,
		}
	})
}

// fanOut delivers to each recipient independently; one failing channel or recipient never stops the others.
func (d *Dispatcher) fanOut(ctx context.Context, recipients []Contact, compose func(Contact) fanout) Result {
	var res Result
	for _, c := range recipients {
		res.Recipients++
		if d.deliverTo(ctx, c, compose(c)) {
			res.Delivered++
		} else {
			res.Failed++
		}
	}
	return res
}

func (d *Dispatcher) deliverTo(ctx context.Context, c Contact, f fanout) bool {
	meta := map[string]interface{}{"template": f.template, "contactId": c.ID}
	ok := true

	if strings.TrimSpace(c.Email) != "" {
		msg := &core.EmailMessage{Subject: f.subject, TemplateName: f.template, TemplateData: f.data}
		ok = d.sendEmail(ctx, c.Email, msg, nil, meta) && ok
	}
	if f.sms && strings.TrimSpace(c.Phone) != "" {
		msg := &core.SMSMessage{TemplateName: f.template, TemplateData: f.data}
		ok = d.sendSMS(ctx, c.Phone, msg, meta) && ok
	}

	var links []string
	if f.link != "" {
		links = append(links, f.link)
	}
	_, created := d.CreateSystemNotification(ctx, c.ID, f.title, f.body, f.severity, links...)
	return created && ok
}

func filterByRoles(contacts []Contact, roles []string) []Contact {
	if len(roles) == 0 {
		return contacts
	}
	wanted := make(map[string]bool, len(roles))
	for _, r := range roles {
		wanted[core.NormalizeRole(r)] = true
	}
	out := make([]Contact, 0, len(contacts))
	for _, c := range contacts {
		if wanted[core.NormalizeRole(c.Role)] {
			out = append(out, c)
		}
	}
	return out
}

func displayName(c Contact) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return "Sir/Madam"
}
