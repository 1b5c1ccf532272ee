package chatbot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	testutil "github.com/trezcool/campus/tests"
)

type intentCounter map[string]int

func (c intentCounter) ObserveIntent(intent string) { c[intent]++ }

func newTestService(data CallerData, repo ConversationRepository, logger core.Logger, opts ...Option) *Service {
	return NewService(repo, data, testFees, logger, opts...)
}

func TestService_ProcessMessage(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	data := &fakeCallerData{balances: map[string]FeeBalance{"ST001": {Outstanding: 25000, Currency: "KES"}}}

	tests := []struct {
		name           string
		rc             RequestContext
		text           string
		wantIntent     Intent
		wantContains   string
		wantSuggestion string
		wantEntities   Entities
	}{
		{
			name:           "student fee balance",
			rc:             RequestContext{CallerID: "ST001", Role: "student", SessionID: "s1"},
			text:           "What is my fee balance?",
			wantIntent:     IntentFeeBalance,
			wantContains:   "25,000",
			wantSuggestion: "Show payment methods",
			wantEntities:   Entities{},
		},
		{
			name:         "teacher greeting",
			rc:           RequestContext{CallerID: "T01", Role: "Teacher"},
			text:         "hello",
			wantIntent:   IntentGreeting,
			wantContains: "grade submission",
			wantEntities: Entities{},
		},
		{
			name:         "payment with amount and date",
			rc:           RequestContext{CallerID: "ST001", Role: "student"},
			text:         "I want to pay my fee of 5000 on 12/03/2024",
			wantIntent:   IntentPaymentMethods,
			wantContains: "M-Pesa",
			wantEntities: Entities{EntityAmount: "5000", EntityDate: "12/03/2024"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeConversationRepo{}
			counter := make(intentCounter)
			svc := newTestService(data, repo, testutil.NewRecordingLogger(), WithMetrics(counter))

			got, err := svc.ProcessMessage(context.Background(), tt.rc, tt.text)
			require.NoError(t, err)

			assert.True(t, got.Success)
			assert.Equal(t, tt.wantIntent, got.Intent)
			assert.Contains(t, got.Response, tt.wantContains)
			assert.Equal(t, tt.wantEntities, got.Entities)
			if tt.wantSuggestion != "" {
				assert.Contains(t, got.Suggestions, tt.wantSuggestion)
			}
			assert.Equal(t, tt.rc.CallerID, got.CallerContext.CallerID)
			assert.Equal(t, strings.ToLower(tt.rc.Role), got.CallerContext.Role)
			assert.Equal(t, now, got.Timestamp)
			assert.NotNil(t, got.QuickActions)

			require.Len(t, repo.turns, 1)
			turn := repo.turns[0]
			assert.Equal(t, tt.wantIntent, turn.Intent)
			assert.Equal(t, strings.TrimSpace(tt.text), turn.Message)
			assert.Equal(t, got.Response, turn.Response)
			assert.Equal(t, tt.rc.SessionID, turn.SessionID)
			assert.Equal(t, 1, counter[tt.wantIntent.String()])
		})
	}
}

func TestService_ProcessMessage_emptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		repo := &fakeConversationRepo{}
		logger := testutil.NewRecordingLogger()
		svc := newTestService(&fakeCallerData{}, repo, logger)

		_, err := svc.ProcessMessage(context.Background(), RequestContext{CallerID: "ST001", Role: "student"}, text)
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
		assert.True(t, errors.Is(err, ErrEmptyMessage))
		assert.Empty(t, repo.turns)
		assert.Empty(t, logger.Calls())
	}
}

func TestService_ProcessMessage_panicBecomesErrorIntent(t *testing.T) {
	repo := &fakeConversationRepo{}
	logger := testutil.NewRecordingLogger()
	svc := newTestService(&fakeCallerData{panicOnFee: true}, repo, logger)

	got, err := svc.ProcessMessage(context.Background(), RequestContext{CallerID: "ST001", Role: "student"}, "what is my balance")
	require.NoError(t, err)

	assert.False(t, got.Success)
	assert.Equal(t, IntentError, got.Intent)
	assert.Equal(t, apologyText, got.Response)
	assert.Empty(t, got.Suggestions)
	assert.Empty(t, got.QuickActions)
	assert.Len(t, logger.CallsAt("error"), 1)

	require.Len(t, repo.turns, 1)
	assert.Equal(t, IntentError, repo.turns[0].Intent)
}

func TestService_ProcessMessage_logFailureIsSwallowed(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	svc := newTestService(&fakeCallerData{}, &fakeConversationRepo{err: errStore}, logger)

	got, err := svc.ProcessMessage(context.Background(), RequestContext{CallerID: "T01", Role: "teacher"}, "hello")
	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, IntentGreeting, got.Intent)

	calls := logger.CallsAt("error")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Msg, "appending conversation turn")
}

func TestService_ProcessMessage_truncatesLongInput(t *testing.T) {
	repo := &fakeConversationRepo{}
	svc := newTestService(&fakeCallerData{}, repo, testutil.NewRecordingLogger(), WithMaxMessageLen(10))

	_, err := svc.ProcessMessage(context.Background(), RequestContext{CallerID: "ST001", Role: "student"}, strings.Repeat("é", 50))
	require.NoError(t, err)
	require.Len(t, repo.turns, 1)
	assert.Equal(t, strings.Repeat("é", 10), repo.turns[0].Message)
}

func TestService_History(t *testing.T) {
	repo := &fakeConversationRepo{}
	svc := newTestService(&fakeCallerData{}, repo, testutil.NewRecordingLogger())
	ctx := context.Background()

	for _, text := range []string{"hello", "help", "exam"} {
		_, err := svc.ProcessMessage(ctx, RequestContext{CallerID: "ST001", Role: "student"}, text)
		require.NoError(t, err)
	}
	_, err := svc.ProcessMessage(ctx, RequestContext{CallerID: "ST002", Role: "student"}, "hello")
	require.NoError(t, err)

	turns, err := svc.History(ctx, "ST001", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, IntentAcademicGeneral, turns[0].Intent)
	assert.Equal(t, IntentHelpRequest, turns[1].Intent)

	_, err = newTestService(&fakeCallerData{}, &fakeConversationRepo{err: errStore}, testutil.NewRecordingLogger()).History(ctx, "ST001", 2)
	assert.Error(t, err)
}
