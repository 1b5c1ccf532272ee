package inmemdb

import (
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chatbot"
	"github.com/trezcool/campus/core/notification"
)

// Seed loads a small demo campus: two students, a teacher, a staff member and an admin.
func (db *DB) Seed() {
	now := nowFunc().UTC().Truncate(time.Hour)
	endOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC)

	for _, c := range []Contact{
		{Contact: notification.Contact{ID: "ST1001", Name: "Amina Wanjiru", Email: "amina@students.campus.test", Phone: "+254700000001", Role: core.RoleStudent}, Active: true},
		{Contact: notification.Contact{ID: "ST1002", Name: "Brian Otieno", Email: "brian@students.campus.test", Role: core.RoleStudent}, Active: true},
		{Contact: notification.Contact{ID: "T001", Name: "Grace Muthoni", Email: "grace@campus.test", Phone: "+254700000003", Role: core.RoleTeacher}, Active: true},
		{Contact: notification.Contact{ID: "F001", Name: "Peter Kamau", Email: "peter@campus.test", Role: core.RoleStaff}, Active: true},
		{Contact: notification.Contact{ID: "A001", Name: "Registrar", Email: "registrar@campus.test", Role: core.RoleAdmin}, Active: true},
	} {
		db.AddContact(c)
	}

	db.AddFee(Fee{StudentID: "ST1001", AmountDue: 45000, AmountPaid: 20000, Currency: "KES", DueDate: &endOfMonth})
	db.AddFee(Fee{StudentID: "ST1002", AmountDue: 45000, AmountPaid: 45000, Currency: "KES"})

	db.AddAssignment(Assignment{
		Assignment: chatbot.Assignment{ID: "ASG-1", Course: "Computer Science", Title: "Data Structures Lab 3", DueAt: now.Add(72 * time.Hour)},
		Link:       "/academics/assignments/ASG-1",
		Enrolled:   map[string]bool{"ST1001": false, "ST1002": true},
	})
	db.AddAssignment(Assignment{
		Assignment: chatbot.Assignment{ID: "ASG-2", Course: "Mathematics", Title: "Linear Algebra Problem Set", DueAt: now.Add(5 * 24 * time.Hour)},
		Link:       "/academics/assignments/ASG-2",
		Enrolled:   map[string]bool{"ST1001": false},
	})

	db.AddGrade("ST1001", chatbot.Grade{Course: "Computer Science", Score: 78, Letter: "B+", GradedAt: now.Add(-7 * 24 * time.Hour)})
	db.AddGrade("ST1001", chatbot.Grade{Course: "Mathematics", Score: 64, Letter: "C+", GradedAt: now.Add(-2 * 24 * time.Hour)})
}
