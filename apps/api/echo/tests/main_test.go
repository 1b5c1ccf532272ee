package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/chatbot"
	"github.com/trezcool/campus/core/notification"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/services/ratelimit"
	smssvc "github.com/trezcool/campus/services/sms"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	testutil "github.com/trezcool/campus/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	Server
	conf     *core.Config
	logger   *testutil.RecordingLogger
	mailSvc  *emailsvc.ConsoleServiceMock
	smsSvc   *smssvc.ServiceMock
	notifier *notification.Dispatcher
}

func setup(t *testing.T, chatLimit int) *testApp {
	t.Helper()
	conf := core.NewTestConfig()

	// set up DB & repos
	db := inmemdb.Open()
	db.Seed()

	// set up services
	logger := testutil.NewRecordingLogger()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	smsSvc := smssvc.NewServiceMock(conf)
	bot := chatbot.NewService(
		inmemdb.NewConversationRepository(db),
		inmemdb.NewCallerDataRepository(db),
		conf.Fees,
		logger,
		chatbot.WithMaxMessageLen(conf.Chat.MaxMessageLen),
	)
	notifier := notification.NewDispatcher(inmemdb.NewNotificationRepository(db), mailSvc, smsSvc, logger, conf)

	// set up server
	srv := NewServer("", nil, &Deps{
		Conf:           conf,
		Logger:         logger,
		Chatbot:        bot,
		Notifier:       notifier,
		Directory:      inmemdb.NewDirectoryRepository(db),
		Limiter:        ratelimit.NewMemoryLimiter(chatLimit, conf.Chat.RateWindow),
		DisableReqLogs: true,
	})
	return &testApp{
		Server:   srv,
		conf:     conf,
		logger:   logger,
		mailSvc:  mailSvc,
		smsSvc:   smsSvc,
		notifier: notifier,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) token(t *testing.T, callerID, role string) string {
	t.Helper()
	token, err := GenerateToken(app.conf, NewClaims(app.conf, callerID, role))
	require.NoError(t, err)
	return token
}

func (app *testApp) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestHome(t *testing.T) {
	app := setup(t, 20)

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{path: "/", wantCode: http.StatusOK, wantBody: "Welcome to Campus API!"},
		{path: "/healthz", wantCode: http.StatusOK, wantBody: `{"status":"ok"}`},
		{path: "/nope", wantCode: http.StatusNotFound, wantBody: `{"error":"Not Found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, jsonOrString(tt.wantBody), jsonOrString(rec.Body.String()))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setup(t, 20)

	req, rec := newRequest(http.MethodGet, "/healthz")
	app.ServeHTTP(rec, req)
	req, rec = newRequest(http.MethodGet, "/metrics")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "campus_http_request_duration_seconds")
}

// jsonOrString lets plain text bodies go through assert.JSONEq.
func jsonOrString(s string) string {
	if json.Valid([]byte(s)) {
		return s
	}
	b, _ := json.Marshal(s)
	return string(b)
}
