package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/mywio/ci-notify/pkg/core"
	"golang.org/x/oauth2"
)

// NewClient builds a GitHub API client. The token is optional; without one
// lookups run unauthenticated against the public rate limit.
func NewClient(ctx context.Context, token core.Secret, apiURL string, httpClient *http.Client) (*github.Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if !token.IsZero() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value})
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
	}
	client := github.NewClient(httpClient)

	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		base, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		client.BaseURL = base
	}
	return client, nil
}

// Resolver maps a GitHub handle to the user's display name.
type Resolver struct {
	client *github.Client
	logger *slog.Logger
}

func NewResolver(client *github.Client, logger *slog.Logger) *Resolver {
	return &Resolver{client: client, logger: logger}
}

// DisplayName returns the profile name of handle, or handle itself when the
// lookup fails or the profile has no name set.
func (r *Resolver) DisplayName(ctx context.Context, handle string) string {
	if handle == "" {
		return handle
	}
	user, resp, err := r.client.Users.Get(ctx, handle)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		r.logger.WarnContext(ctx, "Identity lookup failed, using handle", "handle", handle, "status", status, "error", err)
		return handle
	}
	if name := strings.TrimSpace(user.GetName()); name != "" {
		return name
	}
	return handle
}
