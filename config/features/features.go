// Package features holds runtime feature flags for fork-dependent
// behavior (PeerDAS custody, eager payload preparation). No other package
// in this module reads them; fork-dependent paths branch on the block's
// fork version instead. Grounded on the teacher's config/features
// flag-struct-plus-global pattern (see das/availability_columns_test.go's
// use of features.InitWithReset).
package features

import "sync"

// Flags is the full set of toggles this package stores; tests install them
// with InitWithReset.
type Flags struct {
	EnablePeerDAS     bool
	PrepareAllPayloads bool
}

var (
	mu     sync.RWMutex
	active = &Flags{}
)

// Get returns the active flag set.
func Get() *Flags {
	mu.RLock()
	defer mu.RUnlock()
	f := *active
	return &f
}

// Init installs f as the active flag set.
func Init(f *Flags) {
	mu.Lock()
	defer mu.Unlock()
	active = f
}

// InitWithReset installs f and returns a function that restores the
// previously active flags, for use in tests:
//
//	resetFn := features.InitWithReset(&features.Flags{EnablePeerDAS: true})
//	defer resetFn()
func InitWithReset(f *Flags) func() {
	mu.Lock()
	prev := active
	active = f
	mu.Unlock()
	return func() {
		mu.Lock()
		active = prev
		mu.Unlock()
	}
}
