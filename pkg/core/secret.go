package core

import (
	"encoding/json"
	"log/slog"
)

// Secret holds a credential (bot token, GitHub token) that must never reach
// logs or JSON output in cleartext.
type Secret struct {
	Value string
}

// NewSecret wraps a raw value as a Secret.
func NewSecret(value string) Secret {
	return Secret{Value: value}
}

// IsZero reports whether no credential was configured.
func (s Secret) IsZero() bool {
	return s.Value == ""
}

// Redacted returns a redacted representation for display.
func (s Secret) Redacted() string {
	if s.Value == "" {
		return ""
	}
	return "REDACTED"
}

// MarshalJSON ensures secrets are never serialized in cleartext.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Redacted())
}

// LogValue keeps slog attributes redacted.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.Redacted())
}

func (s Secret) String() string {
	return s.Redacted()
}
