// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

// Package session owns the client's single authenticated session.
//
// A Store holds the bearer token and, once validated, the user it belongs
// to. The token is mirrored to a TokenStore so it survives restarts. The
// user is never persisted: it is re-fetched by Validate on every start.
package session
