package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "abc***xyz", maskToken("abcdefgxyz"))
	assert.Equal(t, "***", maskToken("ab"))
}

func TestSendGotifyNotConfigured(t *testing.T) {
	err := SendGotify(context.Background(), http.DefaultClient, GotifyConfig{}, "t", "b")
	assert.NoError(t, err)
}

func TestSendGotifyPostsExpectedPayload(t *testing.T) {
	var gotKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Gotify-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := SendGotify(context.Background(), server.Client(), GotifyConfig{URL: server.URL, Key: "secret-key"}, "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "hello", gotBody["title"])
	assert.Equal(t, "world", gotBody["message"])
	assert.Equal(t, float64(5), gotBody["priority"])
}

func TestSendNtfyActionsHeader(t *testing.T) {
	var gotActions, gotTitle string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActions = r.Header.Get("Actions")
		gotTitle = r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	actions := []NtfyAction{
		{Kind: "view", Label: "View", URL: "https://example.com"},
		{Kind: "http-post", Label: "Go", URL: "https://example.com/go", Method: "POST"},
	}
	err := SendNtfy(context.Background(), server.Client(), NtfyConfig{URL: server.URL}, "title", "body", actions)
	require.NoError(t, err)
	assert.Equal(t, "title", gotTitle)
	assert.Contains(t, gotActions, "view, View, https://example.com")
	assert.Contains(t, gotActions, "http, Go, https://example.com/go, method=POST")
}

func TestBuildActionsHeaderCapsAtThree(t *testing.T) {
	actions := []NtfyAction{
		{Kind: "view", Label: "A", URL: "u1"},
		{Kind: "view", Label: "B", URL: "u2"},
		{Kind: "view", Label: "C", URL: "u3"},
		{Kind: "view", Label: "D", URL: "u4"},
	}
	header := buildActionsHeader(actions)
	assert.NotContains(t, header, "D")
}

func TestBuildUpdateActionsOmittedWithoutSecret(t *testing.T) {
	actions := BuildUpdateActions("", "srv", "", true, true)
	assert.Nil(t, actions)
}

func TestBuildUpdateActionsURLEncoded(t *testing.T) {
	actions := BuildUpdateActions("https://hook.example.com", "my server", "tok en", true, true)
	require.Len(t, actions, 2)
	assert.Contains(t, actions[0].URL, "server=my+server")
	assert.Contains(t, actions[0].URL, "token=tok+en")
	assert.Equal(t, "Update OS", actions[0].Label)
	assert.Equal(t, "Update Docker", actions[1].Label)
}

func TestBuildCleanupActionsOnlyPresentWhenReclaimable(t *testing.T) {
	actions := BuildCleanupActions("https://hook.example.com", "srv", "tok", true, false)
	require.Len(t, actions, 1)
	assert.Equal(t, "Safe Cleanup", actions[0].Label)
}

func TestUpdateTitle(t *testing.T) {
	assert.Equal(t, "srv1 - OS, Docker updates available", UpdateTitle("srv1", true, true))
	assert.Equal(t, "srv1 - OS updates available", UpdateTitle("srv1", true, false))
}
