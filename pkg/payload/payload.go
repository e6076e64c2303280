// Package payload reads the webhook event file a CI runner hands to a job.
package payload

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/mywio/ci-notify/pkg/core"
)

// ErrUnhandledKind is returned for event kinds no message is produced for.
var ErrUnhandledKind = errors.New("unhandled event kind")

type Repository struct {
	FullName string
	HTMLURL  string
}

type CommitRecord struct {
	ID      string
	Message string
	Author  string
	URL     string
}

type EventPayload struct {
	Kind       core.EventKind
	Repository Repository
	Sender     string

	// create events
	Ref     string
	RefType core.RefType

	// push events, oldest first
	Commits []CommitRecord
}

// Branch returns the pushed branch name without its refs/heads/ prefix.
func (p *EventPayload) Branch() string {
	return strings.TrimPrefix(p.Ref, "refs/heads/")
}

// Load reads and parses the event file at path.
func Load(path string, kind core.EventKind) (*EventPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event payload: %w", err)
	}
	return Parse(kind, data)
}

// Parse decodes a raw webhook payload of the given kind.
func Parse(kind core.EventKind, data []byte) (*EventPayload, error) {
	if !kind.Handled() {
		return nil, fmt.Errorf("%w: %s", ErrUnhandledKind, kind)
	}
	raw, err := github.ParseWebHook(string(kind), data)
	if err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", kind, err)
	}

	switch ev := raw.(type) {
	case *github.PushEvent:
		return fromPush(ev), nil
	case *github.CreateEvent:
		return fromCreate(ev), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledKind, kind)
	}
}

func fromPush(ev *github.PushEvent) *EventPayload {
	p := &EventPayload{
		Kind: core.EventPush,
		Repository: Repository{
			FullName: ev.GetRepo().GetFullName(),
			HTMLURL:  ev.GetRepo().GetHTMLURL(),
		},
		Sender:  ev.GetSender().GetLogin(),
		Ref:     ev.GetRef(),
		Commits: make([]CommitRecord, 0, len(ev.Commits)),
	}
	for _, c := range ev.Commits {
		if c == nil {
			continue
		}
		p.Commits = append(p.Commits, CommitRecord{
			ID:      c.GetID(),
			Message: c.GetMessage(),
			Author:  c.GetAuthor().GetName(),
			URL:     c.GetURL(),
		})
	}
	return p
}

func fromCreate(ev *github.CreateEvent) *EventPayload {
	return &EventPayload{
		Kind: core.EventCreate,
		Repository: Repository{
			FullName: ev.GetRepo().GetFullName(),
			HTMLURL:  ev.GetRepo().GetHTMLURL(),
		},
		Sender:  ev.GetSender().GetLogin(),
		Ref:     ev.GetRef(),
		RefType: core.RefType(ev.GetRefType()),
	}
}
