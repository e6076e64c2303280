package notifier

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/mywio/ci-notify/pkg/format"
)

// Receipt describes what the messaging service answered for one message.
type Receipt struct {
	MessageID int
	ChatID    int64
	ThreadID  int
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg format.Message) (Receipt, error)
}

// DryRun logs messages instead of delivering them.
type DryRun struct {
	Logger *slog.Logger
}

func (d *DryRun) Name() string { return "dry-run" }

func (d *DryRun) Notify(ctx context.Context, msg format.Message) (Receipt, error) {
	attrs := []any{"text", msg.Text}
	if msg.Button != nil {
		attrs = append(attrs, "button", msg.Button.Label, "url", msg.Button.URL)
	}
	d.Logger.InfoContext(ctx, "DryRun: Would send message", attrs...)
	return Receipt{}, nil
}

// IsTransport reports whether err happened before the remote service
// answered. Any other error is a rejection of the message itself.
func IsTransport(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
