// Package cmap provides a concurrent map sharded by string key.
//
// Each shard has its own RWMutex, so operations on different keys rarely
// contend. Update runs a callback under the shard lock, which lets callers
// mutate a value in place without a second lock.
//
// Usage:
//
//	m := cmap.New[*entry]()
//	m.Set(id, e)
//	e, ok := m.Get(id)
package cmap
