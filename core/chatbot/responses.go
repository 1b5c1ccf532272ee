package chatbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const (
	apologyText     = "I'm sorry, I ran into a problem processing your request. Please try again or contact the help desk."
	assignmentLimit = 5
	gradeLimit      = 5
)

// Responder builds role-appropriate replies. Caller records are read through CallerData;
// a failed lookup degrades to a generic reply.
type Responder struct {
	data   CallerData
	fees   core.FeesConfig
	logger core.Logger
}

func NewResponder(data CallerData, fees core.FeesConfig, logger core.Logger) *Responder {
	if fees.Currency == "" {
		fees.Currency = "KES"
	}
	return &Responder{data: data, fees: fees, logger: logger}
}

// GenerateResponse dispatches `intent` to its reply builder.
func (r *Responder) GenerateResponse(ctx context.Context, intent Intent, ents Entities, callerID, role string) Response {
	if ents == nil {
		ents = make(Entities)
	}
	caller := core.Caller{ID: callerID, Role: core.NormalizeRole(role)}

	switch intent {
	case IntentGreeting:
		return r.greeting(caller)
	case IntentFeeBalance:
		return r.feeBalance(ctx, caller, ents)
	case IntentPaymentMethods:
		return r.paymentMethods(ents)
	case IntentFeeDocuments:
		return r.feeDocuments(ents)
	case IntentFeeGeneral:
		return r.feeGeneral()
	case IntentAssignmentHelp:
		return r.assignmentHelp(ctx, caller, ents)
	case IntentGradeInquiry:
		return r.gradeInquiry(ctx, caller, ents)
	case IntentProgressInquiry:
		return r.progressInquiry(ctx, caller)
	case IntentAcademicGeneral:
		return r.academicGeneral(caller)
	case IntentCertificate:
		return r.certificate(caller)
	case IntentTimetable:
		return r.timetable(caller, ents)
	case IntentRegistrationHelp:
		return r.registration(caller)
	case IntentTechnicalSupport:
		return r.technicalSupport()
	case IntentHelpRequest:
		return r.helpRequest(caller)
	case IntentError:
		return errorResponse()
	case IntentGeneralInquiry:
		return r.general()
	default:
		return r.general()
	}
}

func errorResponse() Response {
	return Response{Text: apologyText, Suggestions: []string{}, QuickActions: []QuickAction{}}
}

func (r *Responder) greeting(caller core.Caller) Response {
	switch caller.Role {
	case core.RoleStudent:
		return Response{
			Text:        "Hello! I'm your campus assistant. I can help with fee balances, assignments, grades, timetables and certificates. What would you like to know?",
			Suggestions: []string{suggestBalance, suggestAssignments, suggestGrades, suggestTimetable},
		}
	case core.RoleTeacher:
		return Response{
			Text:        "Hello! I'm your campus assistant. I can help you with class timetables, assignment deadlines, grade submission and portal access.",
			Suggestions: []string{suggestTimetable, "How do I submit grades?", suggestPassword},
		}
	case core.RoleStaff:
		return Response{
			Text:        "Hello! I'm your campus assistant. I can point you to fee records, registration procedures, certificates and technical support.",
			Suggestions: []string{"Fee payment methods", suggestRegistration, suggestContact},
		}
	case core.RoleAdmin:
		return Response{
			Text:        "Hello! I'm your campus assistant. Ask me about fees, registration, certificates or send an announcement from the notifications panel.",
			Suggestions: []string{"Fee payment methods", suggestCertificate, suggestContact},
		}
	default:
		return Response{
			Text:        "Hello! Welcome to the campus portal. How can I help you today?",
			Suggestions: []string{suggestPayMethods, suggestRegistration, suggestContact},
		}
	}
}

func (r *Responder) feeBalance(ctx context.Context, caller core.Caller, ents Entities) Response {
	studentID := caller.ID
	switch caller.Role {
	case core.RoleStudent:
	case core.RoleStaff, core.RoleAdmin:
		id, ok := ents.Get(EntityStudentID)
		if !ok {
			return Response{
				Text:         "Please include the student number (for example ST12345) and I'll look up the outstanding balance.",
				Suggestions:  []string{suggestPayMethods},
				QuickActions: []QuickAction{{Text: "Open fee records", Action: "open_fee_records", URL: pathFees}},
			}
		}
		studentID = strings.ToUpper(id)
	case core.RoleTeacher:
		return Response{
			Text:        "Fee balances are only available to students and the finance office. Students can check theirs under Fees on the portal.",
			Suggestions: []string{suggestPayMethods, suggestContact},
		}
	default:
		return r.genericFeeBalance()
	}

	bal, err := r.data.FeeBalance(ctx, studentID)
	if err != nil {
		r.lookupFailed("fee balance", err, caller)
		return r.genericFeeBalance()
	}

	subject := "Your"
	if studentID != caller.ID {
		subject = studentID + "'s"
	}
	currency := bal.Currency
	if currency == "" {
		currency = r.fees.Currency
	}

	resp := Response{
		Suggestions: []string{suggestPayMethods, suggestStatement, suggestHistory},
		QuickActions: []QuickAction{
			{Text: "Pay now", Action: "pay_fees", URL: pathPayFees},
			{Text: "Fee statement", Action: "download_statement", URL: pathStatement},
		},
	}
	if bal.Outstanding <= 0 {
		resp.Text = fmt.Sprintf("%s fee account is fully paid. There is no outstanding balance.", subject)
		return resp
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s outstanding fee balance is %s %s", subject, currency, core.FormatAmount(bal.Outstanding))
	if bal.DueDate != nil {
		fmt.Fprintf(&b, ", due on %s", bal.DueDate.Format("2 January 2006"))
	}
	fmt.Fprintf(&b, ". You can pay via M-Pesa (Paybill %s), bank deposit or card.", r.fees.Paybill)
	resp.Text = b.String()
	return resp
}

func (r *Responder) genericFeeBalance() Response {
	return Response{
		Text:         "I couldn't retrieve the fee balance right now. You can view it under Fees on the portal or visit the finance office. Payments are accepted via M-Pesa, bank deposit or card.",
		Suggestions:  []string{suggestPayMethods, suggestContact},
		QuickActions: []QuickAction{{Text: "Open fees", Action: "open_fees", URL: pathFees}},
	}
}

func (r *Responder) paymentMethods(ents Entities) Response {
	var b strings.Builder
	if amount, ok := ents.Get(EntityAmount); ok {
		if v, err := core.ParseAmount(amount); err == nil && v > 0 {
			fmt.Fprintf(&b, "To pay %s %s, use any of these methods:\n", r.fees.Currency, core.FormatAmount(v))
		}
	}
	if b.Len() == 0 {
		b.WriteString("You can pay your fees using any of these methods:\n")
	}
	fmt.Fprintf(&b, "1. M-Pesa: Paybill %s, account number is your student number.\n", r.fees.Paybill)
	b.WriteString("2. Bank deposit: use the college account and quote your student number.\n")
	b.WriteString("3. Card: pay online from the Fees page.\n")
	b.WriteString("Payments reflect on your account within 24 hours.")

	return Response{
		Text:        b.String(),
		Suggestions: []string{suggestBalance, suggestStatement},
		QuickActions: []QuickAction{
			{Text: "Pay with M-Pesa", Action: "pay_mpesa", URL: pathPayFees},
			{Text: "Pay by card", Action: "pay_card", URL: pathPayFees},
		},
	}
}

func (r *Responder) feeDocuments(ents Entities) Response {
	text := "You can download your fee statement and payment receipts from the Fees page."
	if date, ok := ents.Get(EntityDate); ok {
		text = fmt.Sprintf("You can download the receipt for the payment made on %s from the Fees page, along with your full fee statement.", date)
	}
	return Response{
		Text:         text + " Stamped copies are available from the finance office during office hours (" + officeHours + ").",
		Suggestions:  []string{suggestBalance, suggestHistory},
		QuickActions: []QuickAction{{Text: "Download statement", Action: "download_statement", URL: pathStatement}},
	}
}

func (r *Responder) feeGeneral() Response {
	return Response{
		Text:         "I can help with fee balances, payment methods and fee statements. What would you like to know?",
		Suggestions:  []string{suggestBalance, suggestPayMethods, suggestStatement},
		QuickActions: []QuickAction{{Text: "Open fees", Action: "open_fees", URL: pathFees}},
	}
}

func (r *Responder) assignmentHelp(ctx context.Context, caller core.Caller, ents Entities) Response {
	if caller.Role == core.RoleTeacher {
		return Response{
			Text:         "You can create assignments, set deadlines and grade submissions from the Assignments section of your teaching dashboard.",
			Suggestions:  []string{"How do I submit grades?", suggestTimetable},
			QuickActions: []QuickAction{{Text: "Open assignments", Action: "open_assignments", URL: pathAssignments}},
		}
	}
	generic := Response{
		Text:         "You can find all your assignments, deadlines and submission links under Academics > Assignments.",
		Suggestions:  []string{suggestGrades, suggestTimetable},
		QuickActions: []QuickAction{{Text: "Open assignments", Action: "open_assignments", URL: pathAssignments}},
	}
	if caller.Role != core.RoleStudent {
		return generic
	}

	assignments, err := r.data.UpcomingAssignments(ctx, caller.ID, assignmentLimit)
	if err != nil {
		r.lookupFailed("assignments", err, caller)
		return generic
	}
	course, filtered := ents.Get(EntityCourse)
	if filtered {
		kept := assignments[:0:0]
		for _, a := range assignments {
			if strings.EqualFold(a.Course, course) {
				kept = append(kept, a)
			}
		}
		assignments = kept
	}
	if len(assignments) == 0 {
		generic.Text = "You have no upcoming assignments"
		if filtered {
			generic.Text += " for " + course
		}
		generic.Text += ". Keep it up!"
		return generic
	}

	var b strings.Builder
	b.WriteString("Your upcoming assignments:")
	for _, a := range assignments {
		fmt.Fprintf(&b, "\n- %s (%s), due %s", a.Title, a.Course, a.DueAt.Format("Mon 2 Jan 15:04"))
	}
	generic.Text = b.String()
	return generic
}

func (r *Responder) gradeInquiry(ctx context.Context, caller core.Caller, ents Entities) Response {
	generic := Response{
		Text:         "Your grades are published under Academics > Grades once they are approved by the department.",
		Suggestions:  []string{suggestProgress, suggestAssignments},
		QuickActions: []QuickAction{{Text: "View grades", Action: "view_grades", URL: pathGrades}},
	}
	switch caller.Role {
	case core.RoleStudent:
	case core.RoleTeacher:
		generic.Text = "You can enter and submit grades from the Grades section of your teaching dashboard. Submitted grades are published after department approval."
		return generic
	default:
		return generic
	}

	grades, err := r.data.RecentGrades(ctx, caller.ID, gradeLimit)
	if err != nil {
		r.lookupFailed("grades", err, caller)
		return generic
	}
	if course, ok := ents.Get(EntityCourse); ok {
		kept := grades[:0:0]
		for _, g := range grades {
			if strings.EqualFold(g.Course, course) {
				kept = append(kept, g)
			}
		}
		grades = kept
	}
	if len(grades) == 0 {
		generic.Text = "No grades have been published for you yet. " + generic.Text
		return generic
	}

	var b strings.Builder
	b.WriteString("Your recent grades:")
	for _, g := range grades {
		fmt.Fprintf(&b, "\n- %s: %s (%s%%)", g.Course, g.Letter, strconv.FormatFloat(g.Score, 'f', -1, 64))
	}
	generic.Text = b.String()
	return generic
}

func (r *Responder) progressInquiry(ctx context.Context, caller core.Caller) Response {
	generic := Response{
		Text:         "You can follow your academic progress from the Grades page, which shows your results per course and your running average.",
		Suggestions:  []string{suggestGrades, suggestAssignments},
		QuickActions: []QuickAction{{Text: "View grades", Action: "view_grades", URL: pathGrades}},
	}
	if caller.Role != core.RoleStudent {
		return generic
	}

	grades, err := r.data.RecentGrades(ctx, caller.ID, gradeLimit)
	if err != nil {
		r.lookupFailed("grades", err, caller)
		return generic
	}
	if len(grades) == 0 {
		return generic
	}

	var total float64
	for _, g := range grades {
		total += g.Score
	}
	avg := total / float64(len(grades))

	var remark string
	switch {
	case avg >= 70:
		remark = "Excellent work, keep it up!"
	case avg >= 50:
		remark = "You are doing well. A little more effort will lift your average."
	default:
		remark = "Your average is below the pass mark. Consider talking to your lecturers or academic advisor."
	}
	generic.Text = fmt.Sprintf("Your average over your last %d graded courses is %.1f%%. %s", len(grades), avg, remark)
	return generic
}

func (r *Responder) academicGeneral(caller core.Caller) Response {
	text := "I can help with assignments, grades, exams and your academic progress. What would you like to know?"
	if caller.Role == core.RoleTeacher {
		text = "I can help with assignments, grade submission and exam schedules. What would you like to know?"
	}
	return Response{
		Text:        text,
		Suggestions: []string{suggestAssignments, suggestGrades, suggestProgress},
	}
}

func (r *Responder) certificate(caller core.Caller) Response {
	text := "Certificates are processed after graduation clearance. Once yours is ready you will receive an email, SMS and portal notification with collection details."
	if caller.Role == core.RoleStaff || caller.Role == core.RoleAdmin {
		text = "Certificates are issued once students complete graduation clearance. Mark a certificate as ready in the Certificates module and the student is notified automatically."
	}
	return Response{
		Text:         text,
		Suggestions:  []string{"Graduation clearance", suggestContact},
		QuickActions: []QuickAction{{Text: "Certificate status", Action: "certificate_status", URL: pathCertificates}},
	}
}

func (r *Responder) timetable(caller core.Caller, ents Entities) Response {
	text := "Your class timetable, lecture venues and exam dates are available under Academics > Timetable."
	if course, ok := ents.Get(EntityCourse); ok {
		text = fmt.Sprintf("The %s timetable, lecture venues and exam dates are available under Academics > Timetable.", course)
	}
	if caller.Role == core.RoleTeacher {
		text += " Your teaching schedule is on your dashboard."
	}
	return Response{
		Text:         text,
		Suggestions:  []string{suggestAssignments, suggestGrades},
		QuickActions: []QuickAction{{Text: "Open timetable", Action: "open_timetable", URL: pathTimetable}},
	}
}

func (r *Responder) registration(caller core.Caller) Response {
	text := "Unit registration opens at the start of each semester. Clear any outstanding fees, then select your units under Registration and submit them for approval."
	if caller.Role == core.RoleStaff || caller.Role == core.RoleAdmin {
		text = "Registration requests are reviewed in the Registration module. New admissions are handled by the admissions office during office hours (" + officeHours + ")."
	}
	return Response{
		Text:         text,
		Suggestions:  []string{suggestBalance, suggestTimetable},
		QuickActions: []QuickAction{{Text: "Register units", Action: "register_units", URL: pathRegistration}},
	}
}

func (r *Responder) technicalSupport() Response {
	return Response{
		Text: "For login problems, use \"Forgot password\" on the sign-in page to reset your password. " +
			"If the portal still isn't working, email " + helpDeskEmail + " with a screenshot of the error.",
		Suggestions: []string{suggestPassword, suggestContact},
		QuickActions: []QuickAction{
			{Text: "Reset password", Action: "reset_password", URL: pathPassword},
			{Text: "Contact support", Action: "contact_support", URL: pathSupport},
		},
	}
}

func (r *Responder) helpRequest(caller core.Caller) Response {
	switch caller.Role {
	case core.RoleStudent:
		return Response{
			Text:        "I can check your fee balance, list upcoming assignments, show your grades and progress, and answer questions about timetables, registration and certificates.",
			Suggestions: []string{suggestBalance, suggestAssignments, suggestGrades, suggestTimetable},
		}
	case core.RoleTeacher:
		return Response{
			Text:        "I can help you find your teaching timetable, manage assignments and grade submissions, and sort out portal access.",
			Suggestions: []string{suggestTimetable, "How do I submit grades?", suggestPassword},
		}
	case core.RoleStaff, core.RoleAdmin:
		return Response{
			Text:        "I can look up a student's fee balance (include their student number), explain payment and registration procedures, and guide you through certificates.",
			Suggestions: []string{"Fee balance for ST12345", suggestRegistration, suggestCertificate},
		}
	default:
		return Response{
			Text:        "I can answer questions about fees, admissions, registration, timetables and certificates.",
			Suggestions: []string{suggestPayMethods, suggestRegistration, suggestContact},
		}
	}
}

func (r *Responder) general() Response {
	return Response{
		Text:         "I'm not sure I understood that. I can help with fees, assignments, grades, timetables, registration, certificates and portal access. For anything else, contact the help desk at " + helpDeskEmail + ".",
		Suggestions:  []string{suggestBalance, suggestTimetable, suggestContact},
		QuickActions: []QuickAction{{Text: "Contact support", Action: "contact_support", URL: pathSupport}},
	}
}

func (r *Responder) lookupFailed(what string, err error, caller core.Caller) {
	if errors.Cause(err) == ErrCallerDataNotFound {
		return
	}
	r.logger.Warn("chatbot: looking up "+what+" failed", err, caller)
}
