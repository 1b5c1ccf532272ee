package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core/chatbot"
)

type conversationRepository struct {
	db *conversationTable
}

var _ chatbot.ConversationRepository = (*conversationRepository)(nil) // interface compliance check

func NewConversationRepository(db *DB) *conversationRepository {
	return &conversationRepository{db: db.conversation}
}

func (repo *conversationRepository) AppendTurn(_ context.Context, turn chatbot.ConversationTurn) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.pk++
	turn.ID = repo.db.pk
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = nowFunc().UTC()
	}
	repo.db.table = append(repo.db.table, turn)
	return nil
}

func (repo *conversationRepository) RecentTurns(_ context.Context, callerID string, limit int) ([]chatbot.ConversationTurn, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	// newest first: walk the append-only table backwards
	turns := make([]chatbot.ConversationTurn, 0)
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		if limit > 0 && len(turns) == limit {
			break
		}
		if turn := repo.db.table[i]; turn.CallerID == callerID {
			turns = append(turns, turn)
		}
	}
	return turns, nil
}
