// internal/config/types.go
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that unmarshals from the string forms used
// in YAML and environment values ("250ms", "1m30s"). Negative durations
// are rejected at parse time so downstream code never sees one.
type Duration time.Duration

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// redacted replaces secret values on every output path.
const redacted = "[REDACTED]"

// Secret holds a credential. Reading it back requires an explicit Value
// call; every formatting and marshaling path emits a placeholder instead,
// so a dumped config or log line cannot leak it. Unmarshaling accepts the
// raw value.
type Secret string

// Value returns the raw secret.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool {
	return s != ""
}

// String implements fmt.Stringer. Empty secrets stay empty so defaulted
// config fields do not print as redacted.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer, covering %#v.
func (s Secret) GoString() string {
	return "Secret(" + redacted + ")"
}

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalText implements encoding.TextMarshaler.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Both json.Unmarshal
// and the koanf mapstructure hook route through here.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
