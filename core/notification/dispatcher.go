package notification

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var (
	nowFunc   = time.Now       // mockable
	newUUID   = uuid.NewString // mockable
	errNoSend = errors.New("nothing to send")
)

type (
	// Metrics receives delivery and sweep observations.
	Metrics interface {
		ObserveDelivery(channel, status string)
		ObserveSweep(processed int)
	}

	Dispatcher struct {
		repo    Repository
		email   core.EmailService
		sms     core.SMSService
		logger  core.Logger
		metrics Metrics
		conf    core.NotificationConfig
		tmpl    core.ContextData
		fees    core.FeesConfig
	}

	Option func(d *Dispatcher)
)

func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(
	repo Repository,
	email core.EmailService,
	sms core.SMSService,
	logger core.Logger,
	conf *core.Config,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		repo:   repo,
		email:  email,
		sms:    sms,
		logger: logger,
		conf:   conf.Notification,
		fees:   conf.Fees,
		tmpl: core.ContextData{
			AppName:         conf.AppName,
			FrontendBaseURL: conf.FrontendBaseURL,
		},
	}
	if d.conf.LogBodyMaxLen <= 0 {
		d.conf.LogBodyMaxLen = 500
	}
	if d.conf.SweepBatch <= 0 {
		d.conf.SweepBatch = 100
	}
	if d.conf.ClaimLease <= 0 {
		d.conf.ClaimLease = 10 * time.Minute
	}
	if d.conf.MaxAttempts <= 0 {
		d.conf.MaxAttempts = 1
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendEmail delivers a plain text email. Every attempt is written to the audit log;
// failures are logged and reported as false.
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string, from ...string) bool {
	msg := &core.EmailMessage{Subject: subject, BodyStr: body}
	return d.sendEmail(ctx, to, msg, from, nil)
}

// SendSMS delivers a text message to `to`, normalized to digits with an optional leading `+`.
func (d *Dispatcher) SendSMS(ctx context.Context, to, body string) bool {
	return d.sendSMS(ctx, to, &core.SMSMessage{BodyStr: body}, nil)
}

func (d *Dispatcher) sendEmail(ctx context.Context, to string, msg *core.EmailMessage, from []string, meta map[string]interface{}) (ok bool) {
	var sendErr error
	meta = withMeta(meta, "channel", string(ChannelEmail))

	defer func() {
		if r := recover(); r != nil {
			ok, sendErr = false, errors.Errorf("panic: %v", r)
		}
		if !ok {
			d.logger.Error("notification: sending email", sendErr, map[string]interface{}{"to": to, "subject": msg.Subject})
		}
		d.audit(ctx, ChannelEmail, to, msg.Subject, msg.TextContent, meta, sendErr)
	}()

	addr, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		sendErr = errors.Wrap(err, "parsing recipient")
		return false
	}
	msg.To = []mail.Address{*addr}

	if len(from) > 0 && strings.TrimSpace(from[0]) != "" {
		fromAddr, err := mail.ParseAddress(strings.TrimSpace(from[0]))
		if err != nil {
			sendErr = errors.Wrap(err, "parsing sender")
			return false
		}
		msg.From = fromAddr
		meta["from"] = fromAddr.String()
	}

	if err = msg.Render(d.tmpl); err != nil {
		sendErr = errors.Wrap(err, "rendering email")
		return false
	}
	if !msg.HasContent() {
		sendErr = errNoSend
		return false
	}
	if err = d.email.Send(ctx, msg); err != nil {
		sendErr = errors.Wrap(err, "sending email")
		return false
	}
	return true
}

func (d *Dispatcher) sendSMS(ctx context.Context, to string, msg *core.SMSMessage, meta map[string]interface{}) (ok bool) {
	var sendErr error
	msg.To = core.NormalizePhone(to)
	meta = withMeta(meta, "channel", string(ChannelSMS))

	defer func() {
		if r := recover(); r != nil {
			ok, sendErr = false, errors.Errorf("panic: %v", r)
		}
		if !ok {
			d.logger.Error("notification: sending sms", sendErr, map[string]interface{}{"to": to})
		}
		recipient := msg.To
		if recipient == "" {
			recipient = to
		}
		d.audit(ctx, ChannelSMS, recipient, "", msg.Content, meta, sendErr)
	}()

	if !msg.HasRecipient() {
		sendErr = errors.Errorf("invalid phone number %q", to)
		return false
	}
	if err := msg.Render(d.tmpl); err != nil {
		sendErr = errors.Wrap(err, "rendering sms")
		return false
	}
	if !msg.HasContent() {
		sendErr = errNoSend
		return false
	}
	if err := d.sms.Send(ctx, msg); err != nil {
		sendErr = errors.Wrap(err, "sending sms")
		return false
	}
	return true
}

// CreateSystemNotification stores an unread in-app notification for `userID`.
// An unknown severity falls back to SeverityInfo.
func (d *Dispatcher) CreateSystemNotification(
	ctx context.Context,
	userID, title, body string,
	severity Severity,
	actionLink ...string,
) (n InAppNotification, ok bool) {
	var createErr error
	userID = strings.TrimSpace(userID)
	if !severity.Valid() {
		severity = SeverityInfo
	}
	n = InAppNotification{
		ID:        newUUID(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Severity:  severity,
		CreatedAt: nowFunc().UTC(),
	}
	if len(actionLink) > 0 {
		n.ActionLink = strings.TrimSpace(actionLink[0])
	}

	defer func() {
		if r := recover(); r != nil {
			ok, createErr = false, errors.Errorf("panic: %v", r)
		}
		if !ok {
			d.logger.Error("notification: creating in-app notification", createErr, core.Caller{ID: userID})
		}
		d.audit(ctx, ChannelInApp, userID, title, body, map[string]interface{}{
			"channel":  string(ChannelInApp),
			"severity": string(severity),
		}, createErr)
	}()

	if userID == "" {
		createErr = errors.New("missing user id")
		return InAppNotification{}, false
	}
	saved, err := d.repo.CreateInApp(ctx, n)
	if err != nil {
		createErr = errors.Wrap(err, "creating in-app notification")
		return InAppNotification{}, false
	}
	return saved, true
}

// ScheduleNotification queues a pending request to be delivered by the sweep once `sendAt` has passed.
func (d *Dispatcher) ScheduleNotification(
	ctx context.Context,
	channel Channel,
	recipient, subject, body string,
	sendAt time.Time,
) (Request, bool) {
	return d.schedule(ctx, Request{
		Attempt:   1,
		Channel:   channel,
		Recipient: strings.TrimSpace(recipient),
		Subject:   subject,
		Body:      body,
		SendAt:    sendAt,
	})
}

func (d *Dispatcher) schedule(ctx context.Context, req Request) (saved Request, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification: scheduling", errors.Errorf("panic: %v", r))
			saved, ok = Request{}, false
		}
	}()

	if !req.Channel.Valid() {
		d.logger.Error("notification: scheduling", ErrInvalidChannel, map[string]interface{}{"channel": string(req.Channel)})
		return Request{}, false
	}
	if req.Recipient == "" {
		d.logger.Error("notification: scheduling", errors.New("missing recipient"))
		return Request{}, false
	}

	now := nowFunc().UTC()
	req.ID = newUUID()
	req.Status = StatusPending
	req.CreatedAt = now
	req.SendAt = req.SendAt.UTC()
	if req.SendAt.IsZero() {
		req.SendAt = now
	}

	saved, err := d.repo.SaveRequest(ctx, req)
	if err != nil {
		d.logger.Error("notification: scheduling", errors.Wrap(err, "saving request"), map[string]interface{}{"recipient": req.Recipient})
		return Request{}, false
	}
	return saved, true
}

// ProcessScheduledNotifications delivers every due pending request and returns how many were resolved.
// Requests are claimed before delivery, so overlapping sweeps never deliver the same request twice.
// A failed request is retried through a new request, until NotificationConfig.MaxAttempts is reached.
func (d *Dispatcher) ProcessScheduledNotifications(ctx context.Context) (processed int) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification: sweeping", errors.Errorf("panic: %v", r))
		}
		if d.metrics != nil {
			d.metrics.ObserveSweep(processed)
		}
	}()

	// retries are only saved once claiming is over, so a sweep never picks up its own retries.
	var retries []Request
	defer func() {
		for _, retry := range retries {
			if _, ok := d.schedule(ctx, retry); !ok {
				d.logger.Warn("notification: scheduling retry failed", map[string]interface{}{"id": retry.ParentID})
			}
		}
	}()

	token := newUUID()
	for {
		reqs, err := d.repo.ClaimDue(ctx, nowFunc().UTC(), d.conf.ClaimLease, token, d.conf.SweepBatch)
		if err != nil {
			d.logger.Error("notification: claiming due requests", errors.Wrap(err, "claiming"))
			return processed
		}
		for _, req := range reqs {
			resolved, retry := d.processRequest(ctx, req, token)
			if resolved {
				processed++
			}
			if retry != nil {
				retries = append(retries, *retry)
			}
		}
		if len(reqs) < d.conf.SweepBatch {
			return processed
		}
	}
}

// processRequest delivers and resolves one claimed request. It returns the retry to schedule, if any.
func (d *Dispatcher) processRequest(ctx context.Context, req Request, token string) (bool, *Request) {
	status := StatusFailed
	if d.deliver(ctx, req) {
		status = StatusSent
	}

	resolved, err := d.repo.Resolve(ctx, req.ID, token, status, nowFunc().UTC())
	if err != nil {
		d.logger.Error("notification: resolving request", errors.Wrap(err, "resolving"), map[string]interface{}{"id": req.ID})
		return false, nil
	}
	if !resolved {
		d.logger.Warn("notification: request resolved by another sweep", map[string]interface{}{"id": req.ID})
		return false, nil
	}

	if status == StatusFailed && req.Attempt < d.conf.MaxAttempts {
		return true, &Request{
			ParentID:  req.ID,
			Attempt:   req.Attempt + 1,
			Channel:   req.Channel,
			Recipient: req.Recipient,
			Subject:   req.Subject,
			Body:      req.Body,
			SendAt:    nowFunc().UTC().Add(d.conf.RetryDelay),
		}
	}
	return true, nil
}

func (d *Dispatcher) deliver(ctx context.Context, req Request) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification: delivering request", errors.Errorf("panic: %v", r), map[string]interface{}{"id": req.ID})
			ok = false
		}
	}()

	meta := map[string]interface{}{"requestId": req.ID, "attempt": req.Attempt}
	switch req.Channel {
	case ChannelEmail:
		return d.sendEmail(ctx, req.Recipient, &core.EmailMessage{Subject: req.Subject, BodyStr: req.Body}, nil, meta)
	case ChannelSMS:
		return d.sendSMS(ctx, req.Recipient, &core.SMSMessage{BodyStr: req.Body}, meta)
	case ChannelInApp:
		_, ok = d.CreateSystemNotification(ctx, req.Recipient, req.Subject, req.Body, SeverityInfo)
		return ok
	default:
		d.logger.Error("notification: delivering request", ErrInvalidChannel, map[string]interface{}{"id": req.ID})
		return false
	}
}

// audit writes the log entry of one attempt. A failed write only reaches the logger.
func (d *Dispatcher) audit(
	ctx context.Context,
	channel Channel,
	recipient, subject, body string,
	meta map[string]interface{},
	sendErr error,
) {
	status := StatusSent
	if sendErr != nil {
		status = StatusFailed
		meta["error"] = sendErr.Error()
	}
	meta["status"] = string(status)

	if d.metrics != nil {
		d.metrics.ObserveDelivery(string(channel), string(status))
	}

	entry := LogEntry{
		Channel:   channel,
		Recipient: recipient,
		Subject:   subject,
		Body:      core.Truncate(body, d.conf.LogBodyMaxLen),
		Metadata:  meta,
		CreatedAt: nowFunc().UTC(),
	}
	if err := d.repo.AppendLog(ctx, entry); err != nil {
		d.logger.Error(fmt.Sprintf("notification: writing %s audit log", channel), errors.Wrap(err, "appending log"))
	}
}

// QueryLog returns audit entries matching `q`.
func (d *Dispatcher) QueryLog(ctx context.Context, q LogQuery) ([]LogEntry, error) {
	entries, err := d.repo.QueryLog(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit log")
	}
	return entries, nil
}

// InAppFor returns the in-app notifications of `userID`, newest first.
func (d *Dispatcher) InAppFor(ctx context.Context, userID string, unreadOnly bool, limit int) ([]InAppNotification, error) {
	ns, err := d.repo.QueryInApp(ctx, InAppQuery{UserID: userID, UnreadOnly: unreadOnly, Limit: limit})
	if err != nil {
		return nil, errors.Wrap(err, "querying in-app notifications")
	}
	return ns, nil
}

// MarkRead marks one in-app notification of `userID` as read. It returns ErrNotFound when `userID` doesn't own it.
func (d *Dispatcher) MarkRead(ctx context.Context, userID, id string) error {
	return d.repo.MarkInAppRead(ctx, userID, id, nowFunc().UTC())
}

func withMeta(meta map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta)+3)
	for k, v := range meta {
		out[k] = v
	}
	out[key] = value
	return out
}
