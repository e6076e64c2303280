package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/mywio/ci-notify/pkg/core"
	"github.com/mywio/ci-notify/pkg/format"
	"github.com/mywio/ci-notify/pkg/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	names   map[string]string
	lookups []string
}

func (f *fakeResolver) DisplayName(ctx context.Context, handle string) string {
	f.lookups = append(f.lookups, handle)
	if name, ok := f.names[handle]; ok {
		return name
	}
	return handle
}

type fakeNotifier struct {
	sent []format.Message
	errs []error
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) Notify(ctx context.Context, msg format.Message) (notifier.Receipt, error) {
	f.sent = append(f.sent, msg)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return notifier.Receipt{}, err
		}
	}
	return notifier.Receipt{MessageID: len(f.sent)}, nil
}

const pushPayload = `{
  "ref": "refs/heads/main",
  "repository": {"full_name": "octo/<dice>", "html_url": "https://github.com/octo/dice"},
  "sender": {"login": "octocat"},
  "commits": [
    {"id": "1111111111", "message": "Add dice roll", "url": "https://github.com/octo/dice/commit/1111111111", "author": {"name": "Mona"}},
    {"id": "2222222222", "message": "Merge branch 'dev'", "url": "https://github.com/octo/dice/commit/2222222222", "author": {"name": "Mona"}},
    {"id": "3333333333", "message": "Tune scoring", "url": "https://github.com/octo/dice/commit/3333333333"}
  ]
}`

func writePayload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newRunner(res *fakeResolver, n *fakeNotifier) *Runner {
	f := format.New(format.Options{
		MaxMessageLength: 50,
		MaxCommits:       10,
		MergePrefixes:    []string{"Merge branch", "Merge pull request"},
	})
	return New(res, f, n, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRun_Push(t *testing.T) {
	res := &fakeResolver{names: map[string]string{"octocat": "The Octocat"}}
	n := &fakeNotifier{}

	err := newRunner(res, n).Run(context.Background(), core.EventPush, writePayload(t, pushPayload))
	require.NoError(t, err)

	assert.Equal(t, []string{"octocat"}, res.lookups)
	require.Len(t, n.sent, 2)
	assert.Contains(t, n.sent[0].Text, "Merge commit to")
	assert.Nil(t, n.sent[0].Button)
	assert.Contains(t, n.sent[1].Text, "<b>2 New commits to</b>")
	assert.Contains(t, n.sent[1].Text, "octo/&lt;dice&gt;")
	assert.Contains(t, n.sent[1].Text, "Tune scoring by The Octocat")
	require.NotNil(t, n.sent[1].Button)
	assert.Equal(t, "https://github.com/octo/dice/compare/1111111111...3333333333", n.sent[1].Button.URL)
}

func TestRun_UnhandledKind(t *testing.T) {
	res := &fakeResolver{}
	n := &fakeNotifier{}

	err := newRunner(res, n).Run(context.Background(), core.EventKind("issues"), "/does/not/exist.json")
	assert.NoError(t, err)
	assert.Empty(t, n.sent)
	assert.Empty(t, res.lookups)
}

func TestRun_NoMessage(t *testing.T) {
	n := &fakeNotifier{}
	path := writePayload(t, `{"ref":"main","ref_type":"repository","repository":{"full_name":"octo/dice"},"sender":{"login":"octocat"}}`)

	err := newRunner(&fakeResolver{}, n).Run(context.Background(), core.EventCreate, path)
	assert.NoError(t, err)
	assert.Empty(t, n.sent)
}

func TestRun_CreateTag(t *testing.T) {
	n := &fakeNotifier{}
	path := writePayload(t, `{"ref":"v1.2.0","ref_type":"tag","repository":{"full_name":"octo/dice","html_url":"https://github.com/octo/dice"},"sender":{"login":"ghost123"}}`)

	err := newRunner(&fakeResolver{}, n).Run(context.Background(), core.EventCreate, path)
	require.NoError(t, err)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0].Text, `href="https://github.com/octo/dice/releases/tag/v1.2.0"`)
	assert.Contains(t, n.sent[0].Text, "by ghost123")
}

func TestRun_RejectedContinues(t *testing.T) {
	n := &fakeNotifier{errs: []error{errors.New("telegram: Bad Request: can't parse entities (400)")}}

	err := newRunner(&fakeResolver{}, n).Run(context.Background(), core.EventPush, writePayload(t, pushPayload))
	assert.NoError(t, err)
	assert.Len(t, n.sent, 2)
}

func TestRun_TransportAborts(t *testing.T) {
	urlErr := &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: errors.New("connection refused")}
	n := &fakeNotifier{errs: []error{urlErr}}

	err := newRunner(&fakeResolver{}, n).Run(context.Background(), core.EventPush, writePayload(t, pushPayload))
	require.Error(t, err)
	assert.ErrorIs(t, err, urlErr)
	assert.Len(t, n.sent, 1)
}

func TestRun_BadPayload(t *testing.T) {
	n := &fakeNotifier{}

	err := newRunner(&fakeResolver{}, n).Run(context.Background(), core.EventPush, writePayload(t, `{oops`))
	assert.Error(t, err)

	err = newRunner(&fakeResolver{}, n).Run(context.Background(), core.EventPush, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.Empty(t, n.sent)
}
