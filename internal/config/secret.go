package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// Secret holds a credential. Every default rendering of a Secret (fmt verbs,
// JSON, YAML, zap fields) yields a redacted placeholder; the raw value is only
// reachable through Expose.
type Secret struct {
	value string
}

// NewSecret wraps a raw credential
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Expose returns the raw value. Call it only where the credential is handed
// to the driver.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty reports whether no value is set
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return "config.Secret(" + redacted + ")"
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.value)
}

func (s Secret) MarshalYAML() (interface{}, error) {
	return redacted, nil
}

func (s *Secret) UnmarshalYAML(value *yaml.Node) error {
	return value.Decode(&s.value)
}
