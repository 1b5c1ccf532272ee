package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const defaultMaxMessageLen = 2000

var nowFunc = time.Now // mockable

type (
	// Metrics receives one observation per processed message.
	Metrics interface {
		ObserveIntent(intent string)
	}

	Service struct {
		repo          ConversationRepository
		responder     *Responder
		logger        core.Logger
		metrics       Metrics
		maxMessageLen int
	}

	Option func(svc *Service)
)

func WithMetrics(m Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

func WithMaxMessageLen(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.maxMessageLen = n
		}
	}
}

func NewService(repo ConversationRepository, data CallerData, fees core.FeesConfig, logger core.Logger, opts ...Option) *Service {
	svc := &Service{
		repo:          repo,
		responder:     NewResponder(data, fees, logger),
		logger:        logger,
		maxMessageLen: defaultMaxMessageLen,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ProcessMessage answers one chat message. An empty message is rejected with a *core.ValidationError
// before anything is classified or logged. Any other failure yields the IntentError reply, never an error.
// The turn is appended to the conversation log; a failed append is reported to the logger only.
func (svc *Service) ProcessMessage(ctx context.Context, rc RequestContext, rawText string) (ChatResponse, error) {
	message := strings.TrimSpace(rawText)
	if message == "" {
		return ChatResponse{}, core.NewValidationError(ErrEmptyMessage, core.FieldError{Field: "message", Error: ErrEmptyMessage.Error()})
	}
	if utf8.RuneCountInString(message) > svc.maxMessageLen {
		message = string([]rune(message)[:svc.maxMessageLen])
	}
	rc.Role = core.NormalizeRole(rc.Role)
	caller := core.Caller{ID: rc.CallerID, Role: rc.Role}

	turn, resp := svc.answer(ctx, caller, message)
	turn.SessionID = rc.SessionID
	turn.CreatedAt = nowFunc().UTC()

	if err := svc.repo.AppendTurn(ctx, turn); err != nil {
		svc.logger.Error("chatbot: appending conversation turn", errors.Wrap(err, "appending turn"), caller)
	}
	if svc.metrics != nil {
		svc.metrics.ObserveIntent(turn.Intent.String())
	}

	return ChatResponse{
		Success:      turn.Intent != IntentError,
		Response:     resp.Text,
		Intent:       turn.Intent,
		Entities:     turn.Entities,
		Suggestions:  resp.Suggestions,
		QuickActions: resp.QuickActions,
		CallerContext: CallerContext{
			CallerID:  rc.CallerID,
			Role:      rc.Role,
			SessionID: rc.SessionID,
		},
		Timestamp: turn.CreatedAt,
	}, nil
}

// answer runs clean -> classify -> extract -> generate, turning a panic into the IntentError reply.
func (svc *Service) answer(ctx context.Context, caller core.Caller, message string) (turn ConversationTurn, resp Response) {
	turn = ConversationTurn{CallerID: caller.ID, Role: caller.Role, Message: message}

	defer func() {
		if r := recover(); r != nil {
			svc.logger.Error(fmt.Sprintf("chatbot: processing message: %v", r), errors.Errorf("panic: %v", r), caller)
			resp = errorResponse()
			turn.Intent = IntentError
			turn.Entities = Entities{}
		}
		turn.Response = resp.Text
		turn.Suggestions = resp.Suggestions
	}()

	turn.Cleaned = CleanText(message)
	turn.Intent = Classify(turn.Cleaned)
	turn.Entities = ExtractEntities(message)
	resp = svc.responder.GenerateResponse(ctx, turn.Intent, turn.Entities, caller.ID, caller.Role)
	if turn.Intent == IntentGeneralInquiry {
		resp = withDidYouMean(resp, turn.Cleaned)
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	if resp.QuickActions == nil {
		resp.QuickActions = []QuickAction{}
	}
	return turn, resp
}

// History returns the latest conversation turns of the caller, newest first.
func (svc *Service) History(ctx context.Context, callerID string, limit int) ([]ConversationTurn, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	turns, err := svc.repo.RecentTurns(ctx, callerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversation turns")
	}
	return turns, nil
}
