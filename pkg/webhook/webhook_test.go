package webhook

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/updatectl/pkg/cleanup"
	"github.com/fleetops/updatectl/pkg/server"
)

func testState(t *testing.T) *State {
	t.Helper()
	reg, err := server.NewRegistry([]server.Server{server.Local()})
	require.NoError(t, err)
	return &State{
		Client:   &http.Client{Timeout: time.Second},
		Secret:   "s3cret",
		Registry: reg,
	}
}

func TestConstantTimeCompareEqualLength(t *testing.T) {
	assert.True(t, constantTimeCompare("abc", "abc"))
	assert.False(t, constantTimeCompare("abc", "abd"))
}

func TestConstantTimeCompareLengthMismatch(t *testing.T) {
	assert.False(t, constantTimeCompare("short", "a much longer token"))
	assert.False(t, constantTimeCompare("", "nonempty"))
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s := NewServer(testState(t))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestWebhookRouteRejectsMissingToken(t *testing.T) {
	s := NewServer(testState(t))
	req := httptest.NewRequest(http.MethodPost, "/webhook/update/os?server=localhost", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRouteRejectsWrongToken(t *testing.T) {
	s := NewServer(testState(t))
	q := url.Values{"server": {"localhost"}, "token": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/webhook/update/os?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRouteAcceptsValidTokenAndReturns202(t *testing.T) {
	state := testState(t)
	s := NewServer(state)
	q := url.Values{"server": {"unknown-server"}, "token": {state.Secret}}
	req := httptest.NewRequest(http.MethodPost, "/webhook/update/os?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	// Auth succeeds synchronously and the handler acknowledges
	// immediately; the background op (which will fail fast on the
	// unknown server name) runs after the response is already written.
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestHealthRouteIgnoresAuth(t *testing.T) {
	s := NewServer(testState(t))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSummarizeExecResult(t *testing.T) {
	noErrs := summarizeExecResult("safe cleanup", cleanup.ExecResult{BytesReclaimed: 100})
	assert.Contains(t, noErrs, "100 bytes")

	withErrs := summarizeExecResult("safe cleanup", cleanup.ExecResult{BytesReclaimed: 50, Errors: []string{"boom"}})
	assert.Contains(t, withErrs, "1 errors")
}
