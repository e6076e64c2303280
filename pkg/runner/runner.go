// Package runner wires one CI event through lookup, formatting and delivery.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mywio/ci-notify/pkg/core"
	"github.com/mywio/ci-notify/pkg/format"
	"github.com/mywio/ci-notify/pkg/notifier"
	"github.com/mywio/ci-notify/pkg/payload"
)

// NameResolver maps a handle to a display name and never fails.
type NameResolver interface {
	DisplayName(ctx context.Context, handle string) string
}

type Runner struct {
	resolver  NameResolver
	formatter *format.Formatter
	notifier  notifier.Notifier
	logger    *slog.Logger
}

func New(resolver NameResolver, formatter *format.Formatter, n notifier.Notifier, logger *slog.Logger) *Runner {
	return &Runner{
		resolver:  resolver,
		formatter: formatter,
		notifier:  n,
		logger:    logger,
	}
}

// Run handles the event stored at payloadPath. Unhandled kinds and events that
// produce no message are not errors. A message the service rejects is logged
// and the remaining messages are still sent; a transport failure stops the run.
func (r *Runner) Run(ctx context.Context, kind core.EventKind, payloadPath string) error {
	logger := r.logger.With("event", kind)
	if !kind.Handled() {
		logger.InfoContext(ctx, "No message generated for event")
		return nil
	}

	ev, err := payload.Load(payloadPath, kind)
	if err != nil {
		return err
	}
	logger = logger.With("repo", ev.Repository.FullName)

	sender := r.resolver.DisplayName(ctx, ev.Sender)
	msgs := r.formatter.Format(ev, sender)
	if len(msgs) == 0 {
		logger.InfoContext(ctx, "No message generated for event", "ref", ev.Ref, "ref_type", ev.RefType)
		return nil
	}

	for i, msg := range msgs {
		logger.InfoContext(ctx, "Sending message", "notifier", r.notifier.Name(), "index", i+1, "total", len(msgs), "text", msg.Text)
		receipt, err := r.notifier.Notify(ctx, msg)
		if err != nil {
			if notifier.IsTransport(err) {
				return fmt.Errorf("send message %d/%d: %w", i+1, len(msgs), err)
			}
			logger.ErrorContext(ctx, "Message rejected", "index", i+1, "error", err)
			continue
		}
		logger.InfoContext(ctx, "Message sent", "index", i+1, "message_id", receipt.MessageID, "chat_id", receipt.ChatID, "thread_id", receipt.ThreadID)
	}
	return nil
}
