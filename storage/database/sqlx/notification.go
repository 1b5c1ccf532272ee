package sqlxrepos

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/notification"
)

const pqUniqueViolation = "23505"

const requestColumns = `id, parent_id, attempt, channel, recipient, subject, body, send_at, status, created_at, sent_at`

var logOrderings = map[string]string{
	"createdAt": "created_at",
	"recipient": "recipient",
	"channel":   "channel",
	"id":        "id",
}

type (
	requestRow struct {
		ID        string      `db:"id"`
		ParentID  null.String `db:"parent_id"`
		Attempt   int         `db:"attempt"`
		Channel   string      `db:"channel"`
		Recipient string      `db:"recipient"`
		Subject   string      `db:"subject"`
		Body      string      `db:"body"`
		SendAt    null.Time   `db:"send_at"`
		Status    string      `db:"status"`
		CreatedAt time.Time   `db:"created_at"`
		SentAt    null.Time   `db:"sent_at"`
	}

	logRow struct {
		ID        int64     `db:"id"`
		Channel   string    `db:"channel"`
		Recipient string    `db:"recipient"`
		Subject   string    `db:"subject"`
		Body      string    `db:"body"`
		Metadata  jsonMap   `db:"metadata"`
		CreatedAt time.Time `db:"created_at"`
	}

	inAppRow struct {
		ID         string      `db:"id"`
		UserID     string      `db:"user_id"`
		Title      string      `db:"title"`
		Body       string      `db:"body"`
		Severity   string      `db:"severity"`
		IsRead     bool        `db:"is_read"`
		ActionLink null.String `db:"action_link"`
		CreatedAt  time.Time   `db:"created_at"`
		ReadAt     null.Time   `db:"read_at"`
	}
)

func (r requestRow) unmarshal() notification.Request {
	return notification.Request{
		ID:        r.ID,
		ParentID:  r.ParentID.String,
		Attempt:   r.Attempt,
		Channel:   notification.Channel(r.Channel),
		Recipient: r.Recipient,
		Subject:   r.Subject,
		Body:      r.Body,
		SendAt:    r.SendAt.Time.UTC(),
		Status:    notification.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		SentAt:    nullTimePtr(r.SentAt),
	}
}

func (r logRow) unmarshal() notification.LogEntry {
	return notification.LogEntry{
		ID:        r.ID,
		Channel:   notification.Channel(r.Channel),
		Recipient: r.Recipient,
		Subject:   r.Subject,
		Body:      r.Body,
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (r inAppRow) unmarshal() notification.InAppNotification {
	return notification.InAppNotification{
		ID:         r.ID,
		UserID:     r.UserID,
		Title:      r.Title,
		Body:       r.Body,
		Severity:   notification.Severity(r.Severity),
		IsRead:     r.IsRead,
		ActionLink: r.ActionLink.String,
		CreatedAt:  r.CreatedAt.UTC(),
		ReadAt:     nullTimePtr(r.ReadAt),
	}
}

type notificationRepository struct {
	exec core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) SaveRequest(ctx context.Context, req notification.Request) (notification.Request, error) {
	q := `INSERT INTO notification_schedule (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + requestColumns

	var row requestRow
	err := repo.exec.GetContext(
		ctx, &row, q,
		req.ID,
		null.NewString(req.ParentID, req.ParentID != ""),
		req.Attempt,
		string(req.Channel),
		req.Recipient,
		req.Subject,
		req.Body,
		null.NewTime(req.SendAt.UTC(), !req.SendAt.IsZero()),
		string(req.Status),
		req.CreatedAt.UTC(),
		null.TimeFromPtr(req.SentAt),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return notification.Request{}, notification.ErrDuplicateID
		}
		return notification.Request{}, errors.Wrap(err, "saving notification request")
	}
	return row.unmarshal(), nil
}

func (repo notificationRepository) ClaimDue(
	ctx context.Context,
	now time.Time,
	lease time.Duration,
	token string,
	limit int,
) ([]notification.Request, error) {
	// SKIP LOCKED keeps concurrent sweeps off each other's rows; stale claims are retaken after `lease`.
	q := `UPDATE notification_schedule SET claim_token = $1, claimed_at = $2
		WHERE id IN (
			SELECT id FROM notification_schedule
			WHERE status = 'pending' AND send_at <= $2 AND (claim_token IS NULL OR claimed_at < $3)
			ORDER BY send_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + requestColumns

	var rows []requestRow
	if err := repo.exec.SelectContext(ctx, &rows, q, token, now.UTC(), now.UTC().Add(-lease), limit); err != nil {
		return nil, errors.Wrap(err, "claiming due notifications")
	}

	reqs := make([]notification.Request, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, row.unmarshal())
	}
	sortBySendAt(reqs)
	return reqs, nil
}

func (repo notificationRepository) Resolve(
	ctx context.Context,
	id, token string,
	status notification.Status,
	at time.Time,
) (bool, error) {
	var sentAt null.Time
	if status == notification.StatusSent {
		sentAt = null.TimeFrom(at.UTC())
	}
	res, err := repo.exec.ExecContext(
		ctx,
		`UPDATE notification_schedule SET status = $1, sent_at = $2
		WHERE id = $3 AND status = 'pending' AND claim_token = $4`,
		string(status), sentAt, id, token,
	)
	if err != nil {
		return false, errors.Wrap(err, "resolving notification request")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "resolving notification request")
	}
	return n == 1, nil
}

func (repo notificationRepository) GetRequest(ctx context.Context, id string) (notification.Request, error) {
	var row requestRow
	err := repo.exec.GetContext(ctx, &row, `SELECT `+requestColumns+` FROM notification_schedule WHERE id = $1`, id)
	if err != nil {
		return notification.Request{}, trapNoRowsErr(err, notification.ErrNotFound, "finding notification request")
	}
	return row.unmarshal(), nil
}

func (repo notificationRepository) AppendLog(ctx context.Context, entry notification.LogEntry) error {
	meta, err := marshalJSON(entry.Metadata)
	if err != nil {
		return err
	}
	createdAt := entry.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = repo.exec.ExecContext(
		ctx,
		`INSERT INTO notification_log (channel, recipient, subject, body, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(entry.Channel), entry.Recipient, entry.Subject, entry.Body, meta, createdAt,
	)
	if err != nil {
		return errors.Wrap(err, "appending notification log")
	}
	return nil
}

func (repo notificationRepository) QueryLog(ctx context.Context, lq notification.LogQuery) ([]notification.LogEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if lq.Recipient != "" {
		where = append(where, "recipient = "+arg(lq.Recipient))
	}
	if lq.Channel != "" {
		where = append(where, "channel = "+arg(string(lq.Channel)))
	}
	if !lq.Since.IsZero() {
		where = append(where, "created_at >= "+arg(lq.Since.UTC()))
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, channel, recipient, subject, body, metadata, created_at FROM notification_log")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + core.OrderByClause(lq.Ordering, logOrderings, "created_at DESC, id DESC"))
	if lq.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(lq.Limit))
	}

	var rows []logRow
	if err := repo.exec.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(err, "querying notification log")
	}
	entries := make([]notification.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.unmarshal())
	}
	return entries, nil
}

func (repo notificationRepository) CreateInApp(
	ctx context.Context,
	n notification.InAppNotification,
) (notification.InAppNotification, error) {
	var row inAppRow
	err := repo.exec.GetContext(
		ctx, &row,
		`INSERT INTO in_app_notification (id, user_id, title, body, severity, is_read, action_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, user_id, title, body, severity, is_read, action_link, created_at, read_at`,
		n.ID,
		n.UserID,
		n.Title,
		n.Body,
		string(n.Severity),
		n.IsRead,
		null.NewString(n.ActionLink, n.ActionLink != ""),
		n.CreatedAt.UTC(),
	)
	if err != nil {
		return notification.InAppNotification{}, errors.Wrap(err, "inserting in-app notification")
	}
	return row.unmarshal(), nil
}

func (repo notificationRepository) QueryInApp(
	ctx context.Context,
	iq notification.InAppQuery,
) ([]notification.InAppNotification, error) {
	q := `SELECT id, user_id, title, body, severity, is_read, action_link, created_at, read_at
		FROM in_app_notification WHERE user_id = $1`
	args := []interface{}{iq.UserID}
	if iq.UnreadOnly {
		q += " AND NOT is_read"
	}
	q += " ORDER BY created_at DESC, id"
	if iq.Limit > 0 {
		args = append(args, iq.Limit)
		q += " LIMIT $2"
	}

	var rows []inAppRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying in-app notifications")
	}
	ns := make([]notification.InAppNotification, 0, len(rows))
	for _, row := range rows {
		ns = append(ns, row.unmarshal())
	}
	return ns, nil
}

func (repo notificationRepository) MarkInAppRead(ctx context.Context, userID, id string, at time.Time) error {
	res, err := repo.exec.ExecContext(
		ctx,
		`UPDATE in_app_notification SET is_read = TRUE, read_at = COALESCE(read_at, $1)
		WHERE id = $2 AND user_id = $3`,
		at.UTC(), id, userID,
	)
	if err != nil {
		return errors.Wrap(err, "marking in-app notification read")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "marking in-app notification read")
	}
	if n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// RETURNING gives no ordering guarantee.
func sortBySendAt(reqs []notification.Request) {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].SendAt.Before(reqs[j].SendAt) })
}
