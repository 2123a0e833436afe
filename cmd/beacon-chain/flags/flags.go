// Package flags holds the small set of process-wide CLI-derived flags the
// core consults outside of config/params and config/features — currently
// just the subnet-subscription breadth knob PeerDAS custody sizing reads.
package flags

import "sync"

// GlobalFlags are runtime flags parsed from the CLI at startup.
type GlobalFlags struct {
	// SubscribeToAllSubnets widens this node's PeerDAS custody group and
	// column-subnet subscriptions to every subnet rather than the minimum
	// CUSTODY_REQUIREMENT, trading bandwidth for stronger sampling
	// coverage (supernode operation).
	SubscribeToAllSubnets bool
}

var (
	mu     sync.RWMutex
	active = &GlobalFlags{}
)

// Get returns the active global flags.
func Get() *GlobalFlags {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Init installs f as the active global flags.
func Init(f *GlobalFlags) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		f = &GlobalFlags{}
	}
	active = f
}
