// Package version re-exports the fork ordinals as package-level constants
// so call sites can write version.Deneb the way the teacher's codebase
// does throughout beacon-chain/blockchain (see the retrieved
// execution_engine.go: "blk.Version() >= version.Deneb").
package version

import "github.com/ethwake/beacon-core/config/params"

const (
	Phase0    = int(params.Phase0)
	Altair    = int(params.Altair)
	Bellatrix = int(params.Bellatrix)
	Capella   = int(params.Capella)
	Deneb     = int(params.Deneb)
	Electra   = int(params.Electra)
	Fulu      = int(params.Fulu)
	Gloas     = int(params.Gloas)
)

// String returns the human-readable fork name for a version ordinal.
func String(v int) string {
	return params.Fork(v).String()
}
