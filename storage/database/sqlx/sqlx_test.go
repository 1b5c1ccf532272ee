package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/chatbot"
	"github.com/trezcool/campus/core/notification"
)

var (
	ctx = context.Background()
	now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func requestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "parent_id", "attempt", "channel", "recipient", "subject", "body", "send_at", "status", "created_at", "sent_at",
	})
}

func TestNotificationRepository_ClaimDue(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notification_schedule SET claim_token = $1")).
		WithArgs("tok", now, now.Add(-10*time.Minute), 2).
		WillReturnRows(requestRows().
			AddRow("b", nil, 1, "sms", "+254700000001", "", "later", now.Add(-time.Minute), "pending", now, nil).
			AddRow("a", "p", 2, "email", "a@test.io", "Hi", "earlier", now.Add(-time.Hour), "pending", now, nil))

	reqs, err := repo.ClaimDue(ctx, now, 10*time.Minute, "tok", 2)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "a", reqs[0].ID)
	assert.Equal(t, "p", reqs[0].ParentID)
	assert.Equal(t, 2, reqs[0].Attempt)
	assert.Equal(t, notification.ChannelEmail, reqs[0].Channel)
	assert.Equal(t, "b", reqs[1].ID)
	assert.Equal(t, "", reqs[1].ParentID)
	assert.Nil(t, reqs[1].SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_SaveRequest(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)
	req := notification.Request{
		ID:        "a",
		Attempt:   1,
		Channel:   notification.ChannelEmail,
		Recipient: "a@test.io",
		Subject:   "Hi",
		Body:      "body",
		SendAt:    now,
		Status:    notification.StatusPending,
		CreatedAt: now,
	}
	// plain insert: an existing id is never overwritten
	insert := `^INSERT INTO notification_schedule \(.+\) VALUES \(\$1, .+, \$11\) RETURNING id,`

	mock.ExpectQuery(insert).
		WithArgs("a", nil, 1, "email", "a@test.io", "Hi", "body", now, "pending", now, nil).
		WillReturnRows(requestRows().AddRow("a", nil, 1, "email", "a@test.io", "Hi", "body", now, "pending", now, nil))
	saved, err := repo.SaveRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "a", saved.ID)
	assert.Equal(t, notification.StatusPending, saved.Status)

	mock.ExpectQuery(insert).WillReturnError(&pq.Error{Code: pqUniqueViolation})
	_, err = repo.SaveRequest(ctx, req)
	assert.Equal(t, notification.ErrDuplicateID, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "claimed pending", affected: 1, want: true},
		{name: "already resolved or claimed elsewhere", affected: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewNotificationRepository(db)

			mock.ExpectExec(regexp.QuoteMeta("UPDATE notification_schedule SET status = $1, sent_at = $2")).
				WithArgs("sent", sqlmock.AnyArg(), "id-1", "tok").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.Resolve(ctx, "id-1", "tok", notification.StatusSent, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNotificationRepository_GetRequestNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectQuery("FROM notification_schedule WHERE id").WithArgs("missing").WillReturnRows(requestRows())

	_, err := repo.GetRequest(ctx, "missing")
	assert.Equal(t, notification.ErrNotFound, err)
}

func TestNotificationRepository_QueryLog(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM notification_log WHERE recipient = $1 AND channel = $2 ORDER BY created_at DESC, id DESC LIMIT $3",
	)).
		WithArgs("a@test.io", "email", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel", "recipient", "subject", "body", "metadata", "created_at"}).
			AddRow(7, "email", "a@test.io", "Hi", "body", []byte(`{"status":"sent","attempt":1}`), now))

	entries, err := repo.QueryLog(ctx, notification.LogQuery{
		Recipient: "a@test.io",
		Channel:   notification.ChannelEmail,
		Limit:     5,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].ID)
	assert.Equal(t, "sent", entries[0].Metadata["status"])
	assert.Equal(t, float64(1), entries[0].Metadata["attempt"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_MarkInAppRead(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE in_app_notification SET is_read").
		WithArgs(now, "n-1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkInAppRead(ctx, "someone-else", "n-1", now)
	assert.Equal(t, notification.ErrNotFound, err)
}

func TestConversationRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewConversationRepository(db)

	mock.ExpectExec("INSERT INTO conversation_log").
		WithArgs("S001", "student", nil, "my fee balance", "my fee balance", "reply", "fee_balance_inquiry",
			[]byte(`{"amount":"100"}`), sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.AppendTurn(ctx, chatbot.ConversationTurn{
		CallerID:  "S001",
		Role:      "student",
		Message:   "my fee balance",
		Cleaned:   "my fee balance",
		Response:  "reply",
		Intent:    chatbot.IntentFeeBalance,
		Entities:  chatbot.Entities{chatbot.EntityAmount: "100"},
		CreatedAt: now,
	})
	require.NoError(t, err)

	mock.ExpectQuery("FROM conversation_log WHERE caller_id").
		WithArgs("S001", 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "caller_id", "role", "session_id", "message", "cleaned", "response", "intent", "entities", "suggestions", "created_at",
		}).AddRow(1, "S001", "student", "sess", "my fee balance", "my fee balance", "reply", "fee_balance_inquiry",
			[]byte(`{"amount":"100"}`), []byte(`{"Pay now","Show payment methods"}`), now))

	turns, err := repo.RecentTurns(ctx, "S001", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "sess", turns[0].SessionID)
	assert.Equal(t, chatbot.IntentFeeBalance, turns[0].Intent)
	assert.Equal(t, "100", turns[0].Entities[chatbot.EntityAmount])
	assert.Equal(t, []string{"Pay now", "Show payment methods"}, turns[0].Suggestions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallerDataRepository_FeeBalance(t *testing.T) {
	cols := []string{"records", "outstanding", "currency", "due_date"}

	t.Run("no fee records", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM student_fee").WithArgs("S404").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(0, 0, nil, nil))

		_, err := NewCallerDataRepository(db).FeeBalance(ctx, "S404")
		assert.Equal(t, chatbot.ErrCallerDataNotFound, err)
	})

	t.Run("outstanding balance", func(t *testing.T) {
		db, mock := newMock(t)
		due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery("FROM student_fee").WithArgs("S001").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(2, 25000.5, "KES", due))

		bal, err := NewCallerDataRepository(db).FeeBalance(ctx, "S001")
		require.NoError(t, err)
		assert.Equal(t, 25000.5, bal.Outstanding)
		assert.Equal(t, "KES", bal.Currency)
		require.NotNil(t, bal.DueDate)
		assert.True(t, due.Equal(*bal.DueDate))
	})
}

func TestDirectoryRepository_Contacts(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE active AND role = ANY($1) ORDER BY name, id")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "role"}).
			AddRow("S001", "Amina", "amina@test.io", nil, "student"))

	contacts, err := NewDirectoryRepository(db).Contacts(ctx, []string{" Student "})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "", contacts[0].Phone)
	assert.Equal(t, "amina@test.io", contacts[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
