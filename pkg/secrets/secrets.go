// Package secrets resolves configuration values that point at Google Cloud
// Secret Manager instead of carrying the credential itself.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/mywio/ci-notify/pkg/config"
	"github.com/mywio/ci-notify/pkg/core"
)

// Scheme prefixes a secret version resource name, e.g.
// gsm://projects/my-project/secrets/telegram-bot-token/versions/latest
const Scheme = "gsm://"

// Accessor reads the payload of a secret version.
type Accessor interface {
	Access(ctx context.Context, name string) (string, error)
	Close() error
}

// IsReference reports whether v is a secret manager reference.
func IsReference(v string) bool {
	return strings.HasPrefix(v, Scheme)
}

// HasReferences reports whether any credential in cfg needs resolving.
func HasReferences(cfg config.Config) bool {
	return IsReference(cfg.BotToken.Value) || IsReference(cfg.GitHubToken.Value) || IsReference(cfg.ChatID)
}

// Resolve replaces every secret reference in cfg with its current value.
func Resolve(ctx context.Context, cfg config.Config, acc Accessor, logger *slog.Logger) (config.Config, error) {
	resolve := func(field, v string) (string, error) {
		if !IsReference(v) {
			return v, nil
		}
		name := strings.TrimPrefix(v, Scheme)
		out, err := acc.Access(ctx, name)
		if err != nil {
			return "", fmt.Errorf("resolve %s from secret manager: %w", field, err)
		}
		logger.InfoContext(ctx, "Resolved secret reference", "field", field, "secret", name)
		return strings.TrimSpace(out), nil
	}

	bot, err := resolve("telegram bot token", cfg.BotToken.Value)
	if err != nil {
		return cfg, err
	}
	gh, err := resolve("github token", cfg.GitHubToken.Value)
	if err != nil {
		return cfg, err
	}
	chat, err := resolve("telegram chat id", cfg.ChatID)
	if err != nil {
		return cfg, err
	}
	cfg.BotToken = core.NewSecret(bot)
	cfg.GitHubToken = core.NewSecret(gh)
	cfg.ChatID = chat
	return cfg, nil
}

// GoogleAccessor reads secrets with application default credentials.
type GoogleAccessor struct {
	client *secretmanager.Client
}

func NewGoogleAccessor(ctx context.Context) (*GoogleAccessor, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &GoogleAccessor{client: client}, nil
}

func (g *GoogleAccessor) Access(ctx context.Context, name string) (string, error) {
	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	return string(resp.GetPayload().GetData()), nil
}

func (g *GoogleAccessor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
