package chatbot

// Intent is the single category assigned to a chat message.
type Intent string

// Intents
const (
	IntentGreeting         Intent = "greeting"
	IntentFeeBalance       Intent = "fee_balance_inquiry"
	IntentPaymentMethods   Intent = "payment_methods"
	IntentFeeDocuments     Intent = "fee_documents"
	IntentFeeGeneral       Intent = "fee_general"
	IntentAssignmentHelp   Intent = "assignment_help"
	IntentGradeInquiry     Intent = "grade_inquiry"
	IntentProgressInquiry  Intent = "progress_inquiry"
	IntentAcademicGeneral  Intent = "academic_general"
	IntentCertificate      Intent = "certificate_inquiry"
	IntentTimetable        Intent = "timetable_inquiry"
	IntentRegistrationHelp Intent = "registration_help"
	IntentTechnicalSupport Intent = "technical_support"
	IntentHelpRequest      Intent = "help_request"
	IntentGeneralInquiry   Intent = "general_inquiry"
	IntentError            Intent = "error"
)

var AllIntents = []Intent{
	IntentGreeting,
	IntentFeeBalance,
	IntentPaymentMethods,
	IntentFeeDocuments,
	IntentFeeGeneral,
	IntentAssignmentHelp,
	IntentGradeInquiry,
	IntentProgressInquiry,
	IntentAcademicGeneral,
	IntentCertificate,
	IntentTimetable,
	IntentRegistrationHelp,
	IntentTechnicalSupport,
	IntentHelpRequest,
	IntentGeneralInquiry,
	IntentError,
}

func (i Intent) String() string { return string(i) }

func (i Intent) IsFee() bool {
	switch i {
	case IntentFeeBalance, IntentPaymentMethods, IntentFeeDocuments, IntentFeeGeneral:
		return true
	}
	return false
}

func (i Intent) IsAcademic() bool {
	switch i {
	case IntentAssignmentHelp, IntentGradeInquiry, IntentProgressInquiry, IntentAcademicGeneral:
		return true
	}
	return false
}
