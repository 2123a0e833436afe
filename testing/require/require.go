// Package require wraps testify's require package with the handful of
// helpers the teacher's test suites lean on most (NoError, ErrorIs,
// ErrorContains, DeepEqual, Equal). Kept as a thin shim rather than calling
// testify directly from every test so call sites read exactly like the
// teacher's own testing/require package.
package require

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NoError fails the test immediately if err is non-nil.
func NoError(tb testing.TB, err error, msgAndArgs ...interface{}) {
	tb.Helper()
	require.NoError(tb, err, msgAndArgs...)
}

// Error fails the test immediately if err is nil.
func Error(tb testing.TB, err error, msgAndArgs ...interface{}) {
	tb.Helper()
	require.Error(tb, err, msgAndArgs...)
}

// ErrorIs fails the test unless errors.Is(err, target).
func ErrorIs(tb testing.TB, err, target error, msgAndArgs ...interface{}) {
	tb.Helper()
	require.ErrorIs(tb, err, target, msgAndArgs...)
}

// ErrorContains fails the test unless err's message contains want.
func ErrorContains(tb testing.TB, want string, err error, msgAndArgs ...interface{}) {
	tb.Helper()
	require.ErrorContains(tb, err, want, msgAndArgs...)
}

// Equal fails the test unless want == got.
func Equal(tb testing.TB, want, got interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.Equal(tb, want, got, msgAndArgs...)
}

// NotEqual fails the test if want == got.
func NotEqual(tb testing.TB, want, got interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.NotEqual(tb, want, got, msgAndArgs...)
}

// DeepEqual fails the test unless want and got are deeply equal.
func DeepEqual(tb testing.TB, want, got interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.Equal(tb, want, got, msgAndArgs...)
}

// True fails the test unless ok is true.
func True(tb testing.TB, ok bool, msgAndArgs ...interface{}) {
	tb.Helper()
	require.True(tb, ok, msgAndArgs...)
}

// NotNil fails the test if obj is nil.
func NotNil(tb testing.TB, obj interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.NotNil(tb, obj, msgAndArgs...)
}

// IsNil fails the test unless obj is nil.
func IsNil(tb testing.TB, obj interface{}, msgAndArgs ...interface{}) {
	tb.Helper()
	require.Nil(tb, obj, msgAndArgs...)
}
