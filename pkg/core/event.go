package core

// EventKind is the CI event name, as exported in GITHUB_EVENT_NAME.
type EventKind string

const (
	EventPush   EventKind = "push"
	EventCreate EventKind = "create"
)

// RefType is the kind of ref carried by a create event.
type RefType string

const (
	RefBranch RefType = "branch"
	RefTag    RefType = "tag"
)

// Handled reports whether a notification is ever produced for the kind.
func (k EventKind) Handled() bool {
	switch k {
	case EventPush, EventCreate:
		return true
	}
	return false
}
