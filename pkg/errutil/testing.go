// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package errutil

import (
	"sort"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestingT is what the assertions need from a test. Both *testing.T and
// GinkgoT() satisfy it.
type TestingT interface {
	require.TestingT
	Helper()
}

func asOops(t TestingT, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t TestingT, err error, code string) {
	t.Helper()
	assert.Equal(t, code, asOops(t, err).Code())
}

// AssertErrorContext asserts that err carries key with value in its oops context.
func AssertErrorContext(t TestingT, err error, key string, value any) {
	t.Helper()
	AssertErrorFields(t, err, "", map[string]any{key: value})
}

// AssertErrorFields asserts the code (skipped when empty) and every context
// field at once, e.g. the method, path and status a failed request is
// tagged with. Missing keys are reported together, in name order.
func AssertErrorFields(t TestingT, err error, code string, fields map[string]any) {
	t.Helper()
	oopsErr := asOops(t, err)
	if code != "" {
		assert.Equal(t, code, oopsErr.Code())
	}

	ctx := oopsErr.Context()
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var missing []string
	for _, key := range keys {
		got, ok := ctx[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		assert.Equal(t, fields[key], got, "context field %q", key)
	}
	assert.Empty(t, missing, "oops context %v lacks fields", ctx)
}
