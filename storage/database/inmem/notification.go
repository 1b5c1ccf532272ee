package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/campus/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) SaveRequest(_ context.Context, req notification.Request) (notification.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.requests[req.ID]; ok {
		return notification.Request{}, notification.ErrDuplicateID
	}
	repo.db.requests[req.ID] = &claimedRequest{Request: req}
	return req, nil
}

func (repo *notificationRepository) ClaimDue(
	_ context.Context,
	now time.Time,
	lease time.Duration,
	token string,
	limit int,
) ([]notification.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	due := make([]*claimedRequest, 0)
	for _, req := range repo.db.requests {
		if !req.IsPending() || req.SendAt.After(now) {
			continue
		}
		if req.claimToken != "" && !req.claimedAt.Before(now.Add(-lease)) {
			continue
		}
		due = append(due, req)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].SendAt.Before(due[j].SendAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]notification.Request, 0, len(due))
	for _, req := range due {
		req.claimToken = token
		req.claimedAt = now
		out = append(out, req.Request)
	}
	return out, nil
}

func (repo *notificationRepository) Resolve(
	_ context.Context,
	id, token string,
	status notification.Status,
	at time.Time,
) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	req, ok := repo.db.requests[id]
	if !ok || !req.IsPending() || req.claimToken != token {
		return false, nil
	}
	req.Status = status
	if status == notification.StatusSent {
		sentAt := at
		req.SentAt = &sentAt
	}
	return true, nil
}

func (repo *notificationRepository) GetRequest(_ context.Context, id string) (notification.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if req, ok := repo.db.requests[id]; ok {
		return req.Request, nil
	}
	return notification.Request{}, notification.ErrNotFound
}

func (repo *notificationRepository) AppendLog(_ context.Context, entry notification.LogEntry) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.logPK++
	entry.ID = repo.db.logPK
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = nowFunc().UTC()
	}
	repo.db.log = append(repo.db.log, entry)
	return nil
}

func (repo *notificationRepository) QueryLog(_ context.Context, q notification.LogQuery) ([]notification.LogEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]notification.LogEntry, 0)
	for _, e := range repo.db.log {
		if q.Recipient != "" && e.Recipient != q.Recipient {
			continue
		}
		if q.Channel != "" && e.Channel != q.Channel {
			continue
		}
		if !q.Since.IsZero() && e.CreatedAt.Before(q.Since) {
			continue
		}
		entries = append(entries, e)
	}

	asc := len(q.Ordering) > 0 && q.Ordering[0].Field == "createdAt" && q.Ordering[0].Ascending
	sort.SliceStable(entries, func(i, j int) bool {
		if asc {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].ID > entries[j].ID
	})
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return entries, nil
}

func (repo *notificationRepository) CreateInApp(
	_ context.Context,
	n notification.InAppNotification,
) (notification.InAppNotification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := n
	repo.db.inApp = append(repo.db.inApp, &stored)
	return n, nil
}

func (repo *notificationRepository) QueryInApp(
	_ context.Context,
	q notification.InAppQuery,
) ([]notification.InAppNotification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := make([]notification.InAppNotification, 0)
	for i := len(repo.db.inApp) - 1; i >= 0; i-- {
		n := repo.db.inApp[i]
		if n.UserID != q.UserID || (q.UnreadOnly && n.IsRead) {
			continue
		}
		out = append(out, *n)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (repo *notificationRepository) MarkInAppRead(_ context.Context, userID, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, n := range repo.db.inApp {
		if n.ID != id || n.UserID != userID {
			continue
		}
		if !n.IsRead {
			readAt := at
			n.IsRead = true
			n.ReadAt = &readAt
		}
		return nil
	}
	return notification.ErrNotFound
}
