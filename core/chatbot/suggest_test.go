package chatbot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/trezcool/campus/tests"
)

func TestDidYouMean(t *testing.T) {
	tests := []struct {
		cleaned string
		want    string
		wantOk  bool
	}{
		{cleaned: "show my timetabel", want: suggestTimetable, wantOk: true},
		{cleaned: "asignment due", want: suggestAssignments, wantOk: true},
		{cleaned: "my grdes", want: suggestGrades, wantOk: true},
		{cleaned: "pasword", want: suggestPassword, wantOk: true},
		{cleaned: "what is the weather like"},
		{cleaned: "payroll"},
		{cleaned: ""},
	}
	for _, tt := range tests {
		t.Run(tt.cleaned, func(t *testing.T) {
			got, ok := didYouMean(tt.cleaned)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ProcessMessage_didYouMean(t *testing.T) {
	svc := newTestService(&fakeCallerData{}, &fakeConversationRepo{}, testutil.NewRecordingLogger())

	got, err := svc.ProcessMessage(context.Background(), RequestContext{CallerID: "ST001", Role: "student"}, "Show my timetabel")
	require.NoError(t, err)
	assert.Equal(t, IntentGeneralInquiry, got.Intent)
	assert.Contains(t, got.Response, `Did you mean "Show my timetable"?`)
	require.NotEmpty(t, got.Suggestions)
	assert.Equal(t, suggestTimetable, got.Suggestions[0])
	assert.Len(t, got.Suggestions, 3)
}
