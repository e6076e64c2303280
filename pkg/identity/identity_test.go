package identity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mywio/ci-notify/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc, token string) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), core.NewSecret(token), srv.URL, srv.Client())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResolver(client, logger)
}

func TestDisplayName_Found(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/users/octocat", req.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"login":"octocat","name":"The Octocat"}`)
	}, "")

	assert.Equal(t, "The Octocat", r.DisplayName(context.Background(), "octocat"))
}

func TestDisplayName_NoName(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"login":"bot-user","name":null}`)
	}, "")

	assert.Equal(t, "bot-user", r.DisplayName(context.Background(), "bot-user"))
}

func TestDisplayName_NotFound(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
	}, "")

	assert.Equal(t, "ghost123", r.DisplayName(context.Background(), "ghost123"))
}

func TestDisplayName_SendsToken(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer ghs_test", req.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"login":"octocat","name":"Mona"}`)
	}, "ghs_test")

	assert.Equal(t, "Mona", r.DisplayName(context.Background(), "octocat"))
}

func TestDisplayName_EmptyHandle(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("unexpected lookup")
	}, "")

	assert.Equal(t, "", r.DisplayName(context.Background(), ""))
}
