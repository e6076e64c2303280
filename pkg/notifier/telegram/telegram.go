// Package telegram delivers messages through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mywio/ci-notify/pkg/core"
	"github.com/mywio/ci-notify/pkg/format"
	"github.com/mywio/ci-notify/pkg/notifier"
	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token core.Secret
	// ChatID is a numeric chat id or an @channel username.
	ChatID string
	// ThreadID routes messages to a forum topic; 0 posts to the main thread.
	ThreadID int
	APIURL   string
	Client   *http.Client
}

// chat keeps the configured chat id verbatim so @usernames work too.
type chat string

func (c chat) Recipient() string { return string(c) }

type Notifier struct {
	bot      *tele.Bot
	chat     chat
	threadID int
	logger   *slog.Logger
}

var _ notifier.Notifier = (*Notifier)(nil)

func New(cfg Config, logger *slog.Logger) (*Notifier, error) {
	if cfg.Token.IsZero() {
		return nil, errors.New("telegram token is empty")
	}
	chatID := strings.TrimSpace(cfg.ChatID)
	if chatID == "" {
		return nil, errors.New("telegram chat id is empty")
	}
	// Offline skips the getMe round trip; sending does not need it.
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimSuffix(cfg.APIURL, "/"),
		Token:   cfg.Token.Value,
		Client:  cfg.Client,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{bot: b, chat: chat(chatID), threadID: cfg.ThreadID, logger: logger}, nil
}

func (n *Notifier) Name() string { return "telegram" }

// Notify sends msg once as HTML with link previews disabled.
func (n *Notifier) Notify(ctx context.Context, msg format.Message) (notifier.Receipt, error) {
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ThreadID:              n.threadID,
	}
	if msg.Button != nil {
		opts.ReplyMarkup = &tele.ReplyMarkup{
			InlineKeyboard: [][]tele.InlineButton{{
				{Text: msg.Button.Label, URL: msg.Button.URL},
			}},
		}
	}

	sent, err := n.bot.Send(n.chat, msg.Text, opts)
	if err != nil {
		return notifier.Receipt{}, err
	}

	r := notifier.Receipt{MessageID: sent.ID, ThreadID: sent.ThreadID}
	if sent.Chat != nil {
		r.ChatID = sent.Chat.ID
	}
	n.logger.DebugContext(ctx, "Telegram message delivered", "message_id", r.MessageID, "chat_id", r.ChatID, "thread_id", r.ThreadID)
	return r, nil
}
