// Package kzg wraps go-kzg-4844's trusted-setup context with the
// byte-slice <-> library-type conversions and batch-verify helper the
// rest of the core needs. The trusted setup itself is loaded once at
// process start via Start.
package kzg

import (
	"sync"

	GoKZG "github.com/crate-crypto/go-kzg-4844"
	"github.com/pkg/errors"
)

var (
	kzgContext *GoKZG.Context
	startOnce  sync.Once
	startErr   error
)

// Start initializes the package-level KZG context from go-kzg-4844's
// embedded trusted setup. It is idempotent and safe to call from
// multiple goroutines; only the first call does the work.
func Start() error {
	startOnce.Do(func() {
		ctx, err := GoKZG.NewContext4096Secure()
		if err != nil {
			startErr = errors.Wrap(err, "kzg: failed to initialize context")
			return
		}
		kzgContext = ctx
	})
	return startErr
}

func bytesToBlob(b []byte) GoKZG.Blob {
	var blob GoKZG.Blob
	copy(blob[:], b)
	return blob
}

func bytesToCommitment(b []byte) GoKZG.KZGCommitment {
	var c GoKZG.KZGCommitment
	copy(c[:], b)
	return c
}

func bytesToKZGProof(b []byte) GoKZG.KZGProof {
	var p GoKZG.KZGProof
	copy(p[:], b)
	return p
}
