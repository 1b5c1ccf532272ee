package chatbot

import (
	"regexp"
	"strings"
)

// EntityKind
const (
	EntityAmount    EntityKind = "amount"
	EntityDate      EntityKind = "date"
	EntityCourse    EntityKind = "course_name"
	EntityStudentID EntityKind = "student_id"
)

var (
	datePattern      = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})\b`)
	amountPattern    = regexp.MustCompile(`\b(?:\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)\b`)
	studentIDPattern = regexp.MustCompile(`(?i)\bST\d{3,6}\b`)
)

type (
	EntityKind string

	// Entities holds at most one value per kind; the first match wins.
	Entities map[EntityKind]string
)

func (e Entities) Get(kind EntityKind) (string, bool) {
	v, ok := e[kind]
	return v, ok
}

// ExtractEntities pulls a date, an amount, a known course name and a student id out of `text`.
// It never fails: kinds without a match are absent from the result.
func ExtractEntities(text string) Entities {
	ents := make(Entities)
	raw := strings.TrimSpace(text)
	if raw == "" {
		return ents
	}
	cleaned := CleanText(raw)

	if date := datePattern.FindString(raw); date != "" {
		ents[EntityDate] = date
	}

	// thousands separators only survive in the raw text
	for _, s := range []string{raw, cleaned} {
		if amount := amountPattern.FindString(datePattern.ReplaceAllString(s, " ")); amount != "" {
			ents[EntityAmount] = amount
			break
		}
	}

	if course, ok := findCourse(cleaned); ok {
		ents[EntityCourse] = course
	}

	if id := studentIDPattern.FindString(raw); id != "" {
		ents[EntityStudentID] = id
	}
	return ents
}

// findCourse returns the canonical name of the first known course contained in `cleaned`.
func findCourse(cleaned string) (string, bool) {
	for _, course := range Courses {
		if strings.Contains(cleaned, strings.ToLower(course)) {
			return course, true
		}
	}
	return "", false
}
