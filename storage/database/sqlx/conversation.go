package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chatbot"
)

type turnRow struct {
	ID          int64          `db:"id"`
	CallerID    string         `db:"caller_id"`
	Role        string         `db:"role"`
	SessionID   null.String    `db:"session_id"`
	Message     string         `db:"message"`
	Cleaned     string         `db:"cleaned"`
	Response    string         `db:"response"`
	Intent      string         `db:"intent"`
	Entities    []byte         `db:"entities"`
	Suggestions pq.StringArray `db:"suggestions"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r turnRow) unmarshal() (chatbot.ConversationTurn, error) {
	ents := make(chatbot.Entities)
	if len(r.Entities) > 0 {
		if err := json.Unmarshal(r.Entities, &ents); err != nil {
			return chatbot.ConversationTurn{}, errors.Wrap(err, "decoding entities")
		}
	}
	suggestions := []string(r.Suggestions)
	if suggestions == nil {
		suggestions = []string{}
	}
	return chatbot.ConversationTurn{
		ID:          r.ID,
		CallerID:    r.CallerID,
		Role:        r.Role,
		SessionID:   r.SessionID.String,
		Message:     r.Message,
		Cleaned:     r.Cleaned,
		Intent:      chatbot.Intent(r.Intent),
		Entities:    ents,
		Response:    r.Response,
		Suggestions: suggestions,
		CreatedAt:   r.CreatedAt.UTC(),
	}, nil
}

type conversationRepository struct {
	exec core.DBExecutor
}

var _ chatbot.ConversationRepository = (*conversationRepository)(nil) // interface compliance check

func NewConversationRepository(exec core.DBExecutor) *conversationRepository {
	return &conversationRepository{exec: exec}
}

func (repo conversationRepository) AppendTurn(ctx context.Context, turn chatbot.ConversationTurn) error {
	ents, err := marshalJSON(turn.Entities)
	if err != nil {
		return err
	}
	createdAt := turn.CreatedAt.UTC()
	if turn.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	suggestions := turn.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	_, err = repo.exec.ExecContext(
		ctx,
		`INSERT INTO conversation_log
			(caller_id, role, session_id, message, cleaned, response, intent, entities, suggestions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		turn.CallerID,
		turn.Role,
		null.NewString(turn.SessionID, turn.SessionID != ""),
		turn.Message,
		turn.Cleaned,
		turn.Response,
		string(turn.Intent),
		ents,
		pq.Array(suggestions),
		createdAt,
	)
	if err != nil {
		return errors.Wrap(err, "appending conversation turn")
	}
	return nil
}

func (repo conversationRepository) RecentTurns(ctx context.Context, callerID string, limit int) ([]chatbot.ConversationTurn, error) {
	q := `SELECT id, caller_id, role, session_id, message, cleaned, response, intent, entities, suggestions, created_at
		FROM conversation_log WHERE caller_id = $1 ORDER BY created_at DESC, id DESC`
	args := []interface{}{callerID}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}

	var rows []turnRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying conversation turns")
	}
	turns := make([]chatbot.ConversationTurn, 0, len(rows))
	for _, row := range rows {
		turn, err := row.unmarshal()
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
