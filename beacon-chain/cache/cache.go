// Package cache implements C2's seen-caches: bounded, metric-instrumented
// lookaside caches that let the gossip and import paths answer "have we
// already processed this?" without touching the database. The generic LRU
// helpers here back every typed cache in the package.
package cache

import (
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// ErrNilValueProvided is returned by add when the caller tries to insert a
// nil value; caches in this package treat that as a caller bug, not a
// legitimate cache miss.
var ErrNilValueProvided = errors.New("cache: nil value provided")

// ErrNotFound is returned by get on a cache miss.
var ErrNotFound = errors.New("cache: key not found")

// lruCache is the minimal contract a size-bounded cache with hit/miss
// metrics must satisfy for the generic add/get/purge helpers below to
// operate on it.
type lruCache[K comparable, V any] interface {
	get() *lru.Cache[K, V]
	hitCache()
	missCache()
}

func add[K comparable, V any](c lruCache[K, V], key K, value V) error {
	if isNilValue(value) {
		return ErrNilValueProvided
	}
	c.get().Add(key, value)
	return nil
}

// isNilValue reports whether v is a nil pointer, slice, map, chan, func, or
// interface. Plain interface-to-nil comparison misses a typed nil slice
// (the zero value callers pass for Value = []byte), so this checks via
// reflection instead.
func isNilValue(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

func get[K comparable, V any](c lruCache[K, V], key K) (V, error) {
	v, ok := c.get().Get(key)
	if !ok {
		c.missCache()
		var zero V
		return zero, ErrNotFound
	}
	c.hitCache()
	return v, nil
}

func purge[K comparable, V any](c lruCache[K, V]) {
	c.get().Purge()
}
