// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

// Package api is the gateway to the remote CTF platform.
//
// A Gateway issues every HTTP request the client makes. Authenticated
// requests carry the session token as a bearer credential. Responses outside
// 2xx become a *RequestError carrying the server's detail text when it sent
// one, and transport failures become a *NetworkError. The gateway has no side
// effects beyond the network call: it never touches session state and never
// notifies the user. Callers decide what a failure means.
package api
