package notification

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/campus/core"
)

// Channels
const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

// Statuses
const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Severities
const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

var (
	// errors
	ErrNotFound       = errors.New("notification not found")
	ErrInvalidChannel = errors.New("invalid notification channel")
	ErrDuplicateID    = errors.New("notification request already exists")

	AllChannels   = []Channel{ChannelEmail, ChannelSMS, ChannelInApp}
	AllSeverities = []Severity{SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError}
)

type (
	Channel  string
	Status   string
	Severity string

	// Request is a queued notification. Its status moves once, from pending to sent or failed;
	// a retry is a new Request pointing at its parent.
	Request struct {
		ID        string     `json:"id"`
		ParentID  string     `json:"parentId,omitempty"`
		Attempt   int        `json:"attempt"`
		Channel   Channel    `json:"channel"`
		Recipient string     `json:"recipient"`
		Subject   string     `json:"subject"`
		Body      string     `json:"body"`
		SendAt    time.Time  `json:"sendAt"`
		Status    Status     `json:"status"`
		CreatedAt time.Time  `json:"createdAt"`
		SentAt    *time.Time `json:"sentAt,omitempty"`
	}

	// LogEntry is the write-once audit record of one delivery attempt.
	LogEntry struct {
		ID        int64                  `json:"id"`
		Channel   Channel                `json:"channel"`
		Recipient string                 `json:"recipient"`
		Subject   string                 `json:"subject"`
		Body      string                 `json:"body"`
		Metadata  map[string]interface{} `json:"metadata"`
		CreatedAt time.Time              `json:"createdAt"`
	}

	InAppNotification struct {
		ID         string     `json:"id"`
		UserID     string     `json:"userId"`
		Title      string     `json:"title"`
		Body       string     `json:"body"`
		Severity   Severity   `json:"severity"`
		IsRead     bool       `json:"isRead"`
		ActionLink string     `json:"actionLink,omitempty"`
		CreatedAt  time.Time  `json:"createdAt"`
		ReadAt     *time.Time `json:"readAt,omitempty"`
	}

	// Contact is a resolved recipient.
	Contact struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
		Role  string `json:"role"`
	}

	FeeDue struct {
		Amount   float64
		Currency string
		DueDate  time.Time
	}

	Assignment struct {
		ID     string
		Course string
		Title  string
		DueAt  time.Time
		Link   string
	}

	Certificate struct {
		ID         string
		Name       string // e.g. "Diploma in Nursing"
		Collection string // where to collect it
	}

	Announcement struct {
		Title      string   `json:"title" validate:"required,notblank,max=255"`
		Body       string   `json:"body" validate:"required,notblank"`
		Severity   Severity `json:"severity" validate:"omitempty,severity"`
		ActionLink string   `json:"actionLink" validate:"omitempty,max=512"`
		Roles      []string `json:"roles" validate:"omitempty,role"`
		SendSMS    bool     `json:"sendSms"`
	}

	// Result aggregates a composite operation. A recipient is delivered when every attempted channel succeeded.
	Result struct {
		Recipients int `json:"recipients"`
		Delivered  int `json:"delivered"`
		Failed     int `json:"failed"`
	}

	LogQuery struct {
		Recipient string
		Channel   Channel
		Since     time.Time
		Limit     int
		Ordering  []core.DBOrdering
	}

	InAppQuery struct {
		UserID     string
		UnreadOnly bool
		Limit      int
	}

	Repository interface {
		SaveRequest(ctx context.Context, req Request) (Request, error)
		// ClaimDue marks up to `limit` pending requests due at `now` with `token` and returns them.
		// Requests claimed by another sweep are skipped until their claim is older than `lease`.
		ClaimDue(ctx context.Context, now time.Time, lease time.Duration, token string, limit int) ([]Request, error)
		// Resolve moves a claimed pending request to `status`. It reports false when the request
		// is no longer pending or is claimed by another token.
		Resolve(ctx context.Context, id, token string, status Status, at time.Time) (bool, error)
		GetRequest(ctx context.Context, id string) (Request, error)

		AppendLog(ctx context.Context, entry LogEntry) error
		QueryLog(ctx context.Context, q LogQuery) ([]LogEntry, error)

		CreateInApp(ctx context.Context, n InAppNotification) (InAppNotification, error)
		QueryInApp(ctx context.Context, q InAppQuery) ([]InAppNotification, error)
		MarkInAppRead(ctx context.Context, userID, id string, at time.Time) error
	}

	// Directory resolves contacts. No role means every active contact.
	Directory interface {
		Contacts(ctx context.Context, roles []string) ([]Contact, error)
	}
)

func (c Channel) Valid() bool {
	for _, ch := range AllChannels {
		if c == ch {
			return true
		}
	}
	return false
}

func (s Severity) Valid() bool {
	for _, sv := range AllSeverities {
		if s == sv {
			return true
		}
	}
	return false
}

func (r Request) IsPending() bool { return r.Status == StatusPending }
