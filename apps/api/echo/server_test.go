package echoapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	testutil "github.com/trezcool/campus/tests"
)

func TestHealthz(t *testing.T) {
	tests := []struct {
		name         string
		ping         func(context.Context) error
		wantCode     int
		wantShutdown bool
	}{
		{name: "no DB", wantCode: http.StatusOK},
		{name: "DB up", ping: func(context.Context) error { return nil }, wantCode: http.StatusOK},
		{
			name:         "DB down",
			ping:         func(context.Context) error { return errors.New("connection refused") },
			wantCode:     http.StatusInternalServerError,
			wantShutdown: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown := make(chan os.Signal, 1)
			srv := NewServer("", shutdown, &Deps{
				Conf:           core.NewTestConfig(),
				Logger:         testutil.NewRecordingLogger(),
				Ping:           tt.ping,
				DisableReqLogs: true,
			})

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			if tt.wantShutdown {
				require.Len(t, shutdown, 1)
				assert.Equal(t, syscall.SIGTERM, <-shutdown)
			} else {
				assert.Empty(t, shutdown)
			}
		})
	}
}
