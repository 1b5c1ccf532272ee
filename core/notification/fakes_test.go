package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/trezcool/campus/core"
)

var errTransport = errors.New("transport down")

type memRepo struct {
	mu       sync.Mutex
	requests map[string]Request
	claims   map[string]string // id: token
	logs     []LogEntry
	inApp    []InAppNotification
	logErr   error
	inAppErr error
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{requests: make(map[string]Request), claims: make(map[string]string)}
}

func (r *memRepo) SaveRequest(_ context.Context, req Request) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; ok {
		return Request{}, ErrDuplicateID
	}
	r.requests[req.ID] = req
	return req, nil
}

func (r *memRepo) ClaimDue(_ context.Context, now time.Time, _ time.Duration, token string, limit int) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Request
	for _, req := range r.requests {
		if req.Status != StatusPending || req.SendAt.After(now) || r.claims[req.ID] != "" {
			continue
		}
		due = append(due, req)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].SendAt.Before(due[j].SendAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for _, req := range due {
		r.claims[req.ID] = token
	}
	return due, nil
}

func (r *memRepo) Resolve(_ context.Context, id, token string, status Status, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != StatusPending || r.claims[id] != token {
		return false, nil
	}
	req.Status = status
	if status == StatusSent {
		req.SentAt = &at
	}
	r.requests[id] = req
	return true, nil
}

func (r *memRepo) GetRequest(_ context.Context, id string) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (r *memRepo) AppendLog(_ context.Context, entry LogEntry) error {
	if r.logErr != nil {
		return r.logErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, entry)
	return nil
}

func (r *memRepo) QueryLog(_ context.Context, q LogQuery) ([]LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LogEntry
	for _, e := range r.logs {
		if (q.Recipient == "" || e.Recipient == q.Recipient) && (q.Channel == "" || e.Channel == q.Channel) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) CreateInApp(_ context.Context, n InAppNotification) (InAppNotification, error) {
	if r.inAppErr != nil {
		return InAppNotification{}, r.inAppErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inApp = append(r.inApp, n)
	return n, nil
}

func (r *memRepo) QueryInApp(_ context.Context, q InAppQuery) ([]InAppNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []InAppNotification
	for _, n := range r.inApp {
		if n.UserID == q.UserID && !(q.UnreadOnly && n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memRepo) MarkInAppRead(_ context.Context, userID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.inApp {
		if n.ID == id && n.UserID == userID {
			r.inApp[i].IsRead = true
			r.inApp[i].ReadAt = &at
			return nil
		}
	}
	return ErrNotFound
}

func (r *memRepo) logsFor(recipient string) []LogEntry {
	entries, _ := r.QueryLog(context.Background(), LogQuery{Recipient: recipient})
	return entries
}

type fakeEmail struct {
	mu      sync.Mutex
	sent    []core.EmailMessage
	failFor map[string]bool
}

func (s *fakeEmail) Send(_ context.Context, msg *core.EmailMessage) error {
	if s.failFor[msg.To[0].Address] {
		return errTransport
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, *msg)
	return nil
}

func (s *fakeEmail) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeSMS struct {
	mu      sync.Mutex
	sent    []core.SMSMessage
	failAll bool
}

func (s *fakeSMS) Send(_ context.Context, msg *core.SMSMessage) error {
	if s.failAll {
		return errTransport
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, *msg)
	return nil
}
