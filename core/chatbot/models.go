package chatbot

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrEmptyMessage       = errors.New("message cannot be empty")
	ErrCallerDataNotFound = errors.New("caller data not found")
)

type (
	FeeBalance struct {
		Outstanding float64
		Currency    string
		DueDate     *time.Time
	}

	Assignment struct {
		ID     string
		Course string
		Title  string
		DueAt  time.Time
	}

	Grade struct {
		Course   string
		Score    float64
		Letter   string
		GradedAt time.Time
	}

	// CallerData is the read-only accessor to caller-specific records.
	// Implementations return ErrCallerDataNotFound when the caller has no such record.
	CallerData interface {
		FeeBalance(ctx context.Context, callerID string) (FeeBalance, error)
		UpcomingAssignments(ctx context.Context, callerID string, limit int) ([]Assignment, error)
		RecentGrades(ctx context.Context, callerID string, limit int) ([]Grade, error)
	}

	// ConversationTurn is one processed exchange. Turns are append-only.
	ConversationTurn struct {
		ID          int64     `json:"id"`
		CallerID    string    `json:"callerId"`
		Role        string    `json:"role"`
		SessionID   string    `json:"sessionId,omitempty"`
		Message     string    `json:"message"`
		Cleaned     string    `json:"-"`
		Intent      Intent    `json:"intent"`
		Entities    Entities  `json:"entities"`
		Response    string    `json:"response"`
		Suggestions []string  `json:"suggestions"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	ConversationRepository interface {
		AppendTurn(ctx context.Context, turn ConversationTurn) error
		// RecentTurns returns the latest turns of `callerID`, newest first.
		RecentTurns(ctx context.Context, callerID string, limit int) ([]ConversationTurn, error)
	}

	// RequestContext carries the caller identity of a chat request.
	RequestContext struct {
		CallerID  string
		Role      string
		SessionID string
	}

	QuickAction struct {
		Text   string `json:"text"`
		Action string `json:"action"`
		URL    string `json:"url,omitempty"`
	}

	Response struct {
		Text         string
		Suggestions  []string
		QuickActions []QuickAction
	}

	CallerContext struct {
		CallerID  string `json:"callerId"`
		Role      string `json:"role"`
		SessionID string `json:"sessionId,omitempty"`
	}

	ChatResponse struct {
		Success       bool          `json:"success"`
		Response      string        `json:"response"`
		Intent        Intent        `json:"intent"`
		Entities      Entities      `json:"entities"`
		Suggestions   []string      `json:"suggestions"`
		QuickActions  []QuickAction `json:"quickActions"`
		CallerContext CallerContext `json:"callerContext"`
		Timestamp     time.Time     `json:"timestamp"`
	}
)
