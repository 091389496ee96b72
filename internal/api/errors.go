// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes attached to gateway failures.
const (
	CodeRequestFailed = "REQUEST_FAILED"
	CodeNetworkFailed = "NETWORK_FAILED"
	CodeInvalidConfig = "GATEWAY_INVALID"
)

// RequestError is a response with a status outside 2xx.
type RequestError struct {
	Status int
	// Detail is the server's detail text, or a generic message when the
	// server sent none.
	Detail string
	// Provided reports whether Detail came from the server.
	Provided bool
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Detail)
}

// Unauthorized reports whether the server rejected the credential.
func (e *RequestError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// NetworkError is a request that never produced a response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AsRequestError unwraps err to a *RequestError.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// AsNetworkError unwraps err to a *NetworkError.
func AsNetworkError(err error) (*NetworkError, bool) {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	reqErr, ok := AsRequestError(err)
	return ok && reqErr.Unauthorized()
}

// newRequestError builds a RequestError from a non-2xx body.
func newRequestError(status int, body []byte) *RequestError {
	if detail, ok := parseDetail(body); ok {
		return &RequestError{Status: status, Detail: detail, Provided: true}
	}
	text := http.StatusText(status)
	if text == "" {
		text = fmt.Sprintf("status %d", status)
	}
	return &RequestError{Status: status, Detail: "request failed: " + text}
}

// parseDetail extracts the detail field. FastAPI validation errors send a
// list of objects with a msg field; those are joined with "; ".
func parseDetail(body []byte) (string, bool) {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return "", false
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text, text != ""
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err != nil {
		return "", false
	}
	msgs := make([]string, 0, len(items))
	for _, item := range items {
		if item.Msg != "" {
			msgs = append(msgs, item.Msg)
		}
	}
	if len(msgs) == 0 {
		return "", false
	}
	return strings.Join(msgs, "; "), true
}
