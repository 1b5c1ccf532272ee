package chatbot

import (
	"regexp"
	"strings"
)

var (
	// everything but letters, digits, `_`, whitespace and `. ? ! - /`
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.?!\-/]+`)

	topics = []topic{
		{
			primary: keywords("fee", "fees", "balance", "payment", "pay", "paid", "tuition", "m-pesa", "mpesa", "invoice", "receipt", "owe", "arrears"),
			refinements: []refinement{
				{keywords("balance", "owe", "outstanding", "arrears", "how much", "remaining"), IntentFeeBalance},
				{keywords("receipt", "statement", "invoice", "document", "proof"), IntentFeeDocuments},
				{keywords("method", "how to pay", "how can i pay", "m-pesa", "mpesa", "bank", "paybill", "card", "pay"), IntentPaymentMethods},
			},
			fallback: IntentFeeGeneral,
		},
		{
			primary: keywords("assignment", "homework", "coursework", "grade", "grades", "marks", "score", "result", "results", "exam", "cat", "progress", "performance", "gpa", "transcript"),
			refinements: []refinement{
				{keywords("assignment", "homework", "coursework"), IntentAssignmentHelp},
				{keywords("grade", "grades", "marks", "score", "result", "results", "gpa", "transcript"), IntentGradeInquiry},
				{keywords("progress", "performance", "doing"), IntentProgressInquiry},
			},
			fallback: IntentAcademicGeneral,
		},
		{
			primary:  keywords("certificate", "certificates", "cert", "diploma", "graduation", "clearance"),
			fallback: IntentCertificate,
		},
		{
			primary:  keywords("timetable", "schedule", "class time", "lecture", "when is", "venue"),
			fallback: IntentTimetable,
		},
		{
			primary:  keywords("register", "registration", "enrol", "enroll", "enrolment", "enrollment", "admission", "unit registration"),
			fallback: IntentRegistrationHelp,
		},
		{
			primary:  keywords("password", "login", "log in", "portal", "error", "bug", "not working", "reset", "access"),
			fallback: IntentTechnicalSupport,
		},
		{
			primary:  keywords("hello", "hi", "hey", "good morning", "good afternoon", "good evening", "greetings", "habari", "jambo"),
			fallback: IntentGreeting,
		},
		{
			primary:  keywords("help", "assist", "support", "what can you do", "guide"),
			fallback: IntentHelpRequest,
		},
	}
)

type (
	refinement struct {
		pattern *regexp.Regexp
		intent  Intent
	}

	// topic is a group of intents sharing a primary keyword set.
	topic struct {
		primary     *regexp.Regexp
		refinements []refinement
		fallback    Intent
	}
)

// keywords compiles a whole-word, case-insensitive alternation of `kws`.
func keywords(kws ...string) *regexp.Regexp {
	quoted := make([]string, 0, len(kws))
	for _, kw := range kws {
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// CleanText lowers `text`, replaces disallowed characters with spaces and collapses whitespace.
func CleanText(text string) string {
	text = disallowedChars.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Join(strings.Fields(text), " ")
}

// Classify maps `text` to an Intent. Topics are tried in a fixed order (fee, academic, certificate, timetable,
// registration, technical, greeting, help request); the first topic whose primary keywords match wins,
// then its first matching refinement, else the topic fallback. Defaults to IntentGeneralInquiry.
func Classify(text string) Intent {
	cleaned := CleanText(text)
	if cleaned == "" {
		return IntentGeneralInquiry
	}
	for _, t := range topics {
		if !t.primary.MatchString(cleaned) {
			continue
		}
		for _, r := range t.refinements {
			if r.pattern.MatchString(cleaned) {
				return r.intent
			}
		}
		return t.fallback
	}
	return IntentGeneralInquiry
}
