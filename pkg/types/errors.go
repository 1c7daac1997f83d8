// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrMissingCredential reports that a live provider was configured without
// its API credential.
var ErrMissingCredential = errors.New("missing credential")

// ConfigError is a fatal configuration problem detected before any pipeline
// stage runs: an invalid field value, an unknown provider, or a missing
// credential.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("invalid configuration: %s=%q %s", e.Field, e.Value, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
	default:
		return "invalid configuration: " + e.Reason
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MissingCredential returns a ConfigError for an absent credential.
func MissingCredential(field, provider string) *ConfigError {
	return &ConfigError{
		Field:  field,
		Reason: "is required by the " + provider + " provider",
		Err:    ErrMissingCredential,
	}
}
