// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

// Package shell is the terminal front end. It parses command lines, drives
// the coordinator, and is the only place that writes view models and
// notifications to the terminal.
package shell
