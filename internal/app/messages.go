// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app

import (
	"fmt"

	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/session"
)

// Notification texts.
const (
	MsgAccessGranted       = "Access Granted"
	MsgAccessDenied        = "Access Denied: Invalid Credentials"
	MsgRegistered          = "User Initialized successfully"
	MsgRegisterFailedFmt   = "Registration Failed: %s"
	MsgUsernameTaken       = "Username likely taken"
	MsgSessionExpired      = "Session expired. Please log in again."
	MsgChallengesFailed    = "Failed to load challenges"
	MsgSubmitFailed        = "Submission Failed"
	MsgSubmitNetworkFailed = "Error submitting flag"
	MsgCorrectFmt          = "Correct! +%d Points"
	MsgScoreboardFailed    = "Failed to load scoreboard"
	MsgCreated             = "Challenge Injected Successfully"
	MsgCreateFailed        = "Creation Failed"
	MsgDeleted             = "Challenge Deleted"
	MsgDeleteFailed        = "Delete failed"
	MsgDeleteNetworkFailed = "Error deleting challenge"
	MsgConfirmDelete       = "Are you sure you want to delete this challenge?"
)

// Error codes raised by the coordinator itself.
const (
	CodeInvalidDeps      = "APP_INVALID"
	CodeNavigationHidden = "NAV_HIDDEN"
	CodeDeclined         = "DECLINED"
)

// UserMessage maps an error to text suitable for the terminal.
func UserMessage(err error) string {
	if err == nil {
		return "Something went wrong. Try again."
	}
	if authErr, ok := session.AsAuthError(err); ok {
		switch authErr.Reason {
		case session.ReasonMissing:
			return "Not logged in. Run 'flagdeck login' first."
		case session.ReasonExpired:
			return MsgSessionExpired
		default:
			return "Session rejected. Please log in again."
		}
	}
	if reqErr, ok := api.AsRequestError(err); ok {
		if reqErr.Unauthorized() {
			return MsgSessionExpired
		}
		return reqErr.Detail
	}
	if netErr, ok := api.AsNetworkError(err); ok {
		return fmt.Sprintf("Cannot reach the platform (%s %s).", netErr.Method, netErr.Path)
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}
	switch oopsErr.Code() {
	case CodeNavigationHidden:
		return "Log in to use that view."
	case CodeDeclined:
		return "Cancelled."
	case "FORM_INVALID", "FORM_FIELD", "FILTER_INVALID", "VIEW_UNKNOWN":
		return oopsErr.Error()
	default:
		return "Something went wrong. Try again."
	}
}
