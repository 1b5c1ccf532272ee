package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

func TestDispatcher_SendFeeReminder(t *testing.T) {
	d, deps := newTestDispatcher(t)
	c := Contact{ID: "ST001", Name: "Jane Wanjiku", Email: "jane@campus.test", Phone: "+254 712 345 678", Role: core.RoleStudent}

	res := d.SendFeeReminder(context.Background(), c, FeeDue{Amount: 25000, DueDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, Result{Recipients: 1, Delivered: 1}, res)

	require.Equal(t, 1, deps.email.count())
	email := deps.email.sent[0]
	assert.Equal(t, "Fee payment reminder", email.Subject)
	assert.Contains(t, email.TextContent, "Dear Jane Wanjiku")
	assert.Contains(t, email.TextContent, "KES 25,000")
	assert.Contains(t, email.TextContent, "31 Mar 2024")
	assert.Contains(t, email.TextContent, "M-Pesa")
	assert.NotEmpty(t, email.HTMLContent)

	require.Len(t, deps.sms.sent, 1)
	assert.Equal(t, "+254712345678", deps.sms.sent[0].To)
	assert.Contains(t, deps.sms.sent[0].Content, "KES 25,000")

	require.Len(t, deps.repo.inApp, 1)
	assert.Equal(t, SeverityWarning, deps.repo.inApp[0].Severity)
	assert.Equal(t, "/fees/pay", deps.repo.inApp[0].ActionLink)

	// one audit entry per channel
	assert.Len(t, deps.repo.logs, 3)
}

func TestDispatcher_SendFeeReminder_smsFailureStillNotifiesInApp(t *testing.T) {
	d, deps := newTestDispatcher(t)
	deps.sms.failAll = true
	c := Contact{ID: "ST001", Name: "Jane", Email: "jane@campus.test", Phone: "0712345678"}

	res := d.SendFeeReminder(context.Background(), c, FeeDue{Amount: 100, Currency: "USD", DueDate: testNow})
	assert.Equal(t, Result{Recipients: 1, Failed: 1}, res)
	assert.Equal(t, 1, deps.email.count())
	assert.Len(t, deps.repo.inApp, 1)
}

func TestDispatcher_SendAssignmentReminder(t *testing.T) {
	d, deps := newTestDispatcher(t)
	a := Assignment{ID: "A1", Course: "Computer Science", Title: "Sorting", DueAt: testNow.Add(48 * time.Hour), Link: "http://campus.test/a/1"}
	students := []Contact{
		{ID: "ST001", Name: "Jane", Email: "jane@campus.test", Phone: "0712345678"},
		{ID: "ST002", Name: "John"}, // in-app only
	}

	res := d.SendAssignmentReminder(context.Background(), a, students)
	assert.Equal(t, Result{Recipients: 2, Delivered: 2}, res)
	require.Equal(t, 1, deps.email.count())
	assert.Contains(t, deps.email.sent[0].TextContent, "http://campus.test/a/1")
	assert.Empty(t, deps.sms.sent)
	assert.Len(t, deps.repo.inApp, 2)
}

func TestDispatcher_SendCertificateReady(t *testing.T) {
	d, deps := newTestDispatcher(t)
	c := Contact{ID: "ST001", Email: "jane@campus.test", Phone: "0712345678"}

	res := d.SendCertificateReady(context.Background(), c, Certificate{ID: "C1", Name: "Diploma in Nursing", Collection: "the registry"})
	assert.Equal(t, Result{Recipients: 1, Delivered: 1}, res)
	assert.Contains(t, deps.email.sent[0].TextContent, "Dear Sir/Madam")
	assert.Len(t, deps.sms.sent, 1)
	require.Len(t, deps.repo.inApp, 1)
	assert.Equal(t, SeveritySuccess, deps.repo.inApp[0].Severity)
}

func TestDispatcher_BroadcastAnnouncement_partialFailure(t *testing.T) {
	d, deps := newTestDispatcher(t)

	const n = 6
	recipients := make([]Contact, 0, n)
	for i := 0; i < n; i++ {
		recipients = append(recipients, Contact{
			ID:    fmt.Sprintf("U%d", i),
			Name:  fmt.Sprintf("User %d", i),
			Email: fmt.Sprintf("u%d@campus.test", i),
			Role:  core.RoleStudent,
		})
	}
	deps.email.failFor["u3@campus.test"] = true

	an := Announcement{Title: "Campus closed", Body: "The campus is closed on Friday.", Severity: SeverityWarning}
	res := d.BroadcastAnnouncement(context.Background(), an, recipients)

	assert.Equal(t, Result{Recipients: n, Delivered: n - 1, Failed: 1}, res)
	assert.Equal(t, n-1, deps.email.count())
	assert.Len(t, deps.repo.inApp, n)
	assert.Empty(t, deps.sms.sent)
}

func TestDispatcher_BroadcastAnnouncement_roleFilter(t *testing.T) {
	recipients := []Contact{
		{ID: "S1", Role: core.RoleStudent, Phone: "0711111111"},
		{ID: "T1", Role: core.RoleTeacher, Phone: "0722222222"},
		{ID: "H1", Role: "Staff", Phone: "0733333333"},
	}

	tests := []struct {
		name  string
		roles []string
		want  []string
	}{
		{name: "everyone", want: []string{"S1", "T1", "H1"}},
		{name: "teachers", roles: []string{"teacher"}, want: []string{"T1"}},
		{name: "staff and students", roles: []string{"staff", "student"}, want: []string{"S1", "H1"}},
		{name: "nobody", roles: []string{"admin"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, deps := newTestDispatcher(t)
			an := Announcement{Title: "T", Body: "B", Severity: Severity("loud"), Roles: tt.roles, SendSMS: true}

			res := d.BroadcastAnnouncement(context.Background(), an, recipients)
			assert.Equal(t, len(tt.want), res.Recipients)
			assert.Equal(t, len(tt.want), res.Delivered)
			assert.Len(t, deps.sms.sent, len(tt.want))

			got := make([]string, 0)
			for _, n := range deps.repo.inApp {
				got = append(got, n.UserID)
				assert.Equal(t, SeverityInfo, n.Severity)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
