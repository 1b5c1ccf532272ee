package chatbot

// Courses offered by the college, in lookup order.
var Courses = []string{
	"Computer Science",
	"Information Technology",
	"Business Administration",
	"Accounting",
	"Electrical Engineering",
	"Civil Engineering",
	"Nursing",
	"Hospitality Management",
	"Journalism",
	"Mathematics",
}

// portal paths used by quick actions
const (
	pathFees         = "/fees"
	pathPayFees      = "/fees/pay"
	pathStatement    = "/fees/statement"
	pathAssignments  = "/academics/assignments"
	pathGrades       = "/academics/grades"
	pathTimetable    = "/academics/timetable"
	pathCertificates = "/certificates"
	pathRegistration = "/registration"
	pathSupport      = "/support"
	pathPassword     = "/account/password"
)

const (
	helpDeskEmail = "helpdesk@campus.ac.ke"
	officeHours   = "Monday to Friday, 8:00 AM to 5:00 PM"
)

// suggestions
const (
	suggestBalance      = "Check my fee balance"
	suggestPayMethods   = "Show payment methods"
	suggestStatement    = "Download fee statement"
	suggestHistory      = "View payment history"
	suggestAssignments  = "Show my assignments"
	suggestGrades       = "Show my grades"
	suggestProgress     = "How is my progress?"
	suggestTimetable    = "Show my timetable"
	suggestCertificate  = "Certificate status"
	suggestRegistration = "How do I register for units?"
	suggestPassword     = "Reset my password"
	suggestContact      = "Contact the help desk"
)
