package format

import "strings"

const ellipsis = "..."

// FormatCommitMessage keeps the first line of msg and cuts it to limit runes,
// appending an ellipsis when something was cut.
func FormatCommitMessage(msg string, limit int) string {
	line, _, _ := strings.Cut(msg, "\n")
	runes := []rune(line)
	if limit <= 0 || len(runes) <= limit {
		return line
	}
	return string(runes[:limit]) + ellipsis
}

// IsMergeCommit reports whether msg starts with one of prefixes.
func IsMergeCommit(msg string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(msg, p) {
			return true
		}
	}
	return false
}

// ShortID is the abbreviated commit id shown in messages.
func ShortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
