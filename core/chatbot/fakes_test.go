package chatbot

import (
	"context"
	"errors"
	"sync"
)

type fakeCallerData struct {
	balances    map[string]FeeBalance
	assignments map[string][]Assignment
	grades      map[string][]Grade
	err         error
	panicOnFee  bool
}

func (d *fakeCallerData) FeeBalance(_ context.Context, callerID string) (FeeBalance, error) {
	if d.panicOnFee {
		panic("boom")
	}
	if d.err != nil {
		return FeeBalance{}, d.err
	}
	bal, ok := d.balances[callerID]
	if !ok {
		return FeeBalance{}, ErrCallerDataNotFound
	}
	return bal, nil
}

func (d *fakeCallerData) UpcomingAssignments(_ context.Context, callerID string, limit int) ([]Assignment, error) {
	if d.err != nil {
		return nil, d.err
	}
	as := d.assignments[callerID]
	if len(as) > limit {
		as = as[:limit]
	}
	return as, nil
}

func (d *fakeCallerData) RecentGrades(_ context.Context, callerID string, limit int) ([]Grade, error) {
	if d.err != nil {
		return nil, d.err
	}
	gs := d.grades[callerID]
	if len(gs) > limit {
		gs = gs[:limit]
	}
	return gs, nil
}

var errStore = errors.New("store unavailable")

type fakeConversationRepo struct {
	mu    sync.Mutex
	turns []ConversationTurn
	err   error
}

func (r *fakeConversationRepo) AppendTurn(_ context.Context, turn ConversationTurn) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, turn)
	return nil
}

func (r *fakeConversationRepo) RecentTurns(_ context.Context, callerID string, limit int) ([]ConversationTurn, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConversationTurn, 0)
	for i := len(r.turns) - 1; i >= 0 && len(out) < limit; i-- {
		if r.turns[i].CallerID == callerID {
			out = append(out, r.turns[i])
		}
	}
	return out, nil
}
