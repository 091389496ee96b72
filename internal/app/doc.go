// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

// Package app coordinates the session, the views and the platform API.
//
// Every user-facing operation lives here: bootstrap, login, registration,
// logout, the challenge board, the scoreboard and the admin panel. Each
// operation handles its own failures by showing a notification or, when the
// platform rejects the session, by logging the user out. Errors returned to
// callers have already been surfaced and exist so one-shot commands can set
// an exit status.
//
// View loads run as background tasks keyed by operation. A load superseded
// by navigation is not cancelled: it still renders into its now hidden view,
// and the last render wins.
package app
