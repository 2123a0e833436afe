// Package assert mirrors testing/require but reports failures without
// aborting the test, matching the teacher's assert/require split (require
// for preconditions, assert for the property under test).
package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// NoError reports a test failure if err is non-nil, without stopping.
func NoError(tb testing.TB, err error, msgAndArgs ...interface{}) {
	tb.Helper()
	assert.NoError(tb, err, msgAndArgs...)
}

// Equal reports a failure unless want == got.
func Equal(tb testing.TB, want, got interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	assert.Equal(tb, want, got, msgAndArgs...)
}

// DeepEqual reports a failure unless want and got are deeply equal.
func DeepEqual(tb testing.TB, want, got interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	assert.Equal(tb, want, got, msgAndArgs...)
}

// True reports a failure unless ok is true.
func True(tb testing.TB, ok bool, msgAndArgs ...interface{}) {
	tb.Helper()
	assert.True(tb, ok, msgAndArgs...)
}

// ErrorContains reports a failure unless err's message contains want.
func ErrorContains(tb testing.TB, want string, err error, msgAndArgs ...interface{}) {
	tb.Helper()
	assert.ErrorContains(tb, err, want, msgAndArgs...)
}
