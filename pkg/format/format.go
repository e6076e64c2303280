// Package format turns event payloads into Telegram HTML messages. Nothing in
// here touches the network.
package format

import (
	"fmt"
	"html"
	"strings"

	"github.com/enescakir/emoji"
	"github.com/mywio/ci-notify/pkg/core"
	"github.com/mywio/ci-notify/pkg/payload"
)

// Button is a single inline URL button attached to a message.
type Button struct {
	Label string
	URL   string
}

type Message struct {
	Text   string
	Button *Button
}

type Options struct {
	MaxMessageLength int
	MaxCommits       int
	MergePrefixes    []string
	// Uniform lists merge commits with the rest instead of sending each one
	// on its own.
	Uniform bool
}

type Formatter struct {
	opts Options
}

func New(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// Format builds the messages for ev in send order. sender is the resolved
// display name of whoever triggered the event.
func (f *Formatter) Format(ev *payload.EventPayload, sender string) []Message {
	switch ev.Kind {
	case core.EventPush:
		return f.Push(ev, sender)
	case core.EventCreate:
		return f.Create(ev, sender)
	}
	return nil
}

// Push returns one message per merge commit followed by a summary of the
// regular commits, if any.
func (f *Formatter) Push(ev *payload.EventPayload, sender string) []Message {
	var regular, merges []payload.CommitRecord
	for _, c := range ev.Commits {
		if !f.opts.Uniform && IsMergeCommit(c.Message, f.opts.MergePrefixes) {
			merges = append(merges, c)
			continue
		}
		regular = append(regular, c)
	}

	repoURL := ev.Repository.HTMLURL
	repoLink := fmt.Sprintf(`<a href="%s">%s</a>[%s]`, repoURL, html.EscapeString(ev.Repository.FullName), html.EscapeString(ev.Branch()))

	out := make([]Message, 0, len(merges)+1)
	for _, c := range merges {
		out = append(out, Message{
			Text: fmt.Sprintf("%s <b>Merge commit to</b> %s\n\n%s", emoji.CounterclockwiseArrowsButton, repoLink, f.commitLine(c, sender)),
		})
	}

	if len(regular) == 0 {
		return out
	}

	listed := regular
	if n := f.opts.MaxCommits; n > 0 && len(listed) > n {
		listed = listed[len(listed)-n:]
	}
	var b strings.Builder
	for _, c := range listed {
		b.WriteString(f.commitLine(c, sender))
		b.WriteByte('\n')
	}

	noun := "commits"
	if len(regular) == 1 {
		noun = "commit"
	}
	text := fmt.Sprintf("%s <b>%d New %s to</b> %s\n\n%s", emoji.Hammer, len(regular), noun, repoLink, b.String())

	out = append(out, Message{
		Text: text,
		Button: &Button{
			Label: "Open Changes",
			URL:   fmt.Sprintf("%s/compare/%s...%s", repoURL, regular[0].ID, regular[len(regular)-1].ID),
		},
	})
	return out
}

// Create announces a new branch or tag. Other ref types produce nothing.
func (f *Formatter) Create(ev *payload.EventPayload, sender string) []Message {
	repoURL := ev.Repository.HTMLURL
	repo := html.EscapeString(ev.Repository.FullName)
	ref := html.EscapeString(ev.Ref)
	by := html.EscapeString(sender)

	var text string
	switch ev.RefType {
	case core.RefBranch:
		text = fmt.Sprintf("%s <b>New branch created in</b> <a href=\"%s\">%s</a>\n• <a href=\"%s/tree/%s\">%s</a> by %s",
			emoji.Hammer, repoURL, repo, repoURL, ev.Ref, ref, by)
	case core.RefTag:
		text = fmt.Sprintf("%s <b>New tag created in</b> <a href=\"%s\">%s</a>\n• <a href=\"%s/releases/tag/%s\">%s</a> by %s",
			emoji.Label, repoURL, repo, repoURL, ev.Ref, ref, by)
	default:
		return nil
	}
	return []Message{{Text: text}}
}

func (f *Formatter) commitLine(c payload.CommitRecord, sender string) string {
	author := c.Author
	if author == "" {
		author = sender
	}
	return fmt.Sprintf("• <a href=\"%s\">%s</a> - %s by %s",
		c.URL, ShortID(c.ID), html.EscapeString(FormatCommitMessage(c.Message, f.opts.MaxMessageLength)), html.EscapeString(author))
}
