package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chatbot"
)

type callerDataRepository struct {
	exec core.DBExecutor
}

var _ chatbot.CallerData = (*callerDataRepository)(nil) // interface compliance check

func NewCallerDataRepository(exec core.DBExecutor) *callerDataRepository {
	return &callerDataRepository{exec: exec}
}

func (repo callerDataRepository) FeeBalance(ctx context.Context, callerID string) (chatbot.FeeBalance, error) {
	var row struct {
		Records     int         `db:"records"`
		Outstanding float64     `db:"outstanding"`
		Currency    null.String `db:"currency"`
		DueDate     null.Time   `db:"due_date"`
	}
	// earliest due date among the unpaid records
	err := repo.exec.GetContext(
		ctx, &row,
		`SELECT COUNT(*) AS records,
			COALESCE(SUM(amount_due - amount_paid), 0) AS outstanding,
			MAX(currency) AS currency,
			MIN(due_date) FILTER (WHERE amount_due > amount_paid) AS due_date
		FROM student_fee WHERE student_id = $1`,
		callerID,
	)
	if err != nil {
		return chatbot.FeeBalance{}, errors.Wrap(err, "querying fee balance")
	}
	if row.Records == 0 {
		return chatbot.FeeBalance{}, chatbot.ErrCallerDataNotFound
	}
	return chatbot.FeeBalance{
		Outstanding: row.Outstanding,
		Currency:    row.Currency.String,
		DueDate:     nullTimePtr(row.DueDate),
	}, nil
}

func (repo callerDataRepository) UpcomingAssignments(ctx context.Context, callerID string, limit int) ([]chatbot.Assignment, error) {
	var rows []struct {
		ID     string    `db:"id"`
		Course string    `db:"course"`
		Title  string    `db:"title"`
		DueAt  time.Time `db:"due_at"`
	}
	err := repo.exec.SelectContext(
		ctx, &rows,
		`SELECT a.id, a.course, a.title, a.due_at
		FROM assignment a JOIN assignment_enrolment e ON e.assignment_id = a.id
		WHERE e.student_id = $1 AND NOT e.submitted AND a.due_at >= NOW()
		ORDER BY a.due_at
		LIMIT $2`,
		callerID, limitOrAll(limit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying upcoming assignments")
	}

	out := make([]chatbot.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, chatbot.Assignment{ID: r.ID, Course: r.Course, Title: r.Title, DueAt: r.DueAt.UTC()})
	}
	return out, nil
}

func (repo callerDataRepository) RecentGrades(ctx context.Context, callerID string, limit int) ([]chatbot.Grade, error) {
	var rows []struct {
		Course   string    `db:"course"`
		Score    float64   `db:"score"`
		Letter   string    `db:"letter"`
		GradedAt time.Time `db:"graded_at"`
	}
	err := repo.exec.SelectContext(
		ctx, &rows,
		`SELECT course, score, letter, graded_at FROM grade
		WHERE student_id = $1 ORDER BY graded_at DESC LIMIT $2`,
		callerID, limitOrAll(limit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}

	out := make([]chatbot.Grade, 0, len(rows))
	for _, r := range rows {
		out = append(out, chatbot.Grade{Course: r.Course, Score: r.Score, Letter: r.Letter, GradedAt: r.GradedAt.UTC()})
	}
	return out, nil
}

// limitOrAll turns a non-positive limit into NULL, which postgres reads as LIMIT ALL.
func limitOrAll(limit int) null.Int {
	return null.NewInt(limit, limit > 0)
}
