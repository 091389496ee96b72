// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package session

import (
	"errors"
	"fmt"
)

// CodeAuthFailed is the oops code of every validation failure.
const CodeAuthFailed = "AUTH_FAILED"

// Reason classifies why a session failed validation.
type Reason string

// Validation failure reasons.
const (
	ReasonMissing  Reason = "missing"
	ReasonExpired  Reason = "expired"
	ReasonRejected Reason = "rejected"
	// ReasonSuperseded means the token changed while validation was in flight.
	ReasonSuperseded Reason = "superseded"
)

// AuthError reports a session that could not be validated.
type AuthError struct {
	Reason Reason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("session %s", e.Reason)
	}
	return fmt.Sprintf("session %s: %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AsAuthError unwraps err to an *AuthError.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
