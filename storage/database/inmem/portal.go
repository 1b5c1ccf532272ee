package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chatbot"
	"github.com/trezcool/campus/core/notification"
)

var nowFunc = time.Now // mockable

type (
	Contact struct {
		notification.Contact
		Active bool
	}

	Fee struct {
		StudentID  string
		AmountDue  float64
		AmountPaid float64
		Currency   string
		DueDate    *time.Time
	}

	Assignment struct {
		chatbot.Assignment
		Link     string
		Enrolled map[string]bool // student ID: submitted
	}
)

func (db *DB) AddContact(c Contact) {
	db.portal.mutex.Lock()
	defer db.portal.mutex.Unlock()
	c.Role = core.NormalizeRole(c.Role)
	db.portal.contacts[c.ID] = c
}

func (db *DB) AddFee(f Fee) {
	db.portal.mutex.Lock()
	defer db.portal.mutex.Unlock()
	db.portal.fees[f.StudentID] = append(db.portal.fees[f.StudentID], f)
}

func (db *DB) AddAssignment(a Assignment) {
	db.portal.mutex.Lock()
	defer db.portal.mutex.Unlock()
	db.portal.assignments = append(db.portal.assignments, a)
}

func (db *DB) AddGrade(studentID string, g chatbot.Grade) {
	db.portal.mutex.Lock()
	defer db.portal.mutex.Unlock()
	db.portal.grades[studentID] = append(db.portal.grades[studentID], g)
}

type callerDataRepository struct {
	db *portalTables
}

var _ chatbot.CallerData = (*callerDataRepository)(nil) // interface compliance check

func NewCallerDataRepository(db *DB) *callerDataRepository {
	return &callerDataRepository{db: db.portal}
}

func (repo *callerDataRepository) FeeBalance(_ context.Context, callerID string) (chatbot.FeeBalance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	fees, ok := repo.db.fees[callerID]
	if !ok || len(fees) == 0 {
		return chatbot.FeeBalance{}, chatbot.ErrCallerDataNotFound
	}

	var bal chatbot.FeeBalance
	for _, f := range fees {
		bal.Outstanding += f.AmountDue - f.AmountPaid
		if bal.Currency == "" {
			bal.Currency = f.Currency
		}
		// earliest due date among the unpaid records
		if f.AmountDue > f.AmountPaid && f.DueDate != nil && (bal.DueDate == nil || f.DueDate.Before(*bal.DueDate)) {
			due := *f.DueDate
			bal.DueDate = &due
		}
	}
	return bal, nil
}

func (repo *callerDataRepository) UpcomingAssignments(_ context.Context, callerID string, limit int) ([]chatbot.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	now := nowFunc()
	out := make([]chatbot.Assignment, 0)
	for _, a := range repo.db.assignments {
		submitted, enrolled := a.Enrolled[callerID]
		if !enrolled || submitted || a.DueAt.Before(now) {
			continue
		}
		out = append(out, a.Assignment)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (repo *callerDataRepository) RecentGrades(_ context.Context, callerID string, limit int) ([]chatbot.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := append([]chatbot.Grade{}, repo.db.grades[callerID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].GradedAt.After(out[j].GradedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type directoryRepository struct {
	db *portalTables
}

var _ notification.Directory = (*directoryRepository)(nil) // interface compliance check

func NewDirectoryRepository(db *DB) *directoryRepository {
	return &directoryRepository{db: db.portal}
}

func (repo *directoryRepository) Contacts(_ context.Context, roles []string) ([]notification.Contact, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(roles))
	for _, r := range roles {
		wanted[core.NormalizeRole(r)] = true
	}

	out := make([]notification.Contact, 0, len(repo.db.contacts))
	for _, c := range repo.db.contacts {
		if !c.Active || (len(wanted) > 0 && !wanted[c.Role]) {
			continue
		}
		out = append(out, c.Contact)
	}
	sort.Slice(out, func(i, j int) bool {
		if ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name); ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
