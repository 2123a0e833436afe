// Package util holds small test-data builders shared across the core's
// test suites, mirroring the teacher's testing/util helper package.
package util

import (
	"math/rand"
	"testing"
)

// Random32Bytes returns a deterministic-per-run pseudo-random 32 byte
// array, useful for node IDs and roots in tests that don't care about
// the specific value.
func Random32Bytes(t *testing.T) [32]byte {
	t.Helper()
	var b [32]byte
	// #nosec G404 -- test data only, not security sensitive.
	r := rand.New(rand.NewSource(1))
	if _, err := r.Read(b[:]); err != nil {
		t.Fatal(err)
	}
	return b
}
